package schedule

import (
	"regexp"

	"github.com/cmlabs-hris/hris-timesheet-go/internal/pkg/civil"
)

var nameRangeRegex = regexp.MustCompile(`^\s*(\d{1,2}:\d{2})\s*-\s*(\d{1,2}:\d{2})`)

// ParseNameRange extracts the planned start/end encoded at the front of a
// schedule name such as "09:00-18:00/office" or "22:00-06:00 night".
func ParseNameRange(name string) (start, end civil.Clock, ok bool) {
	m := nameRangeRegex.FindStringSubmatch(name)
	if m == nil {
		return civil.Clock{}, civil.Clock{}, false
	}

	start, err := civil.ParseClock(padHour(m[1]))
	if err != nil {
		return civil.Clock{}, civil.Clock{}, false
	}
	end, err = civil.ParseClock(padHour(m[2]))
	if err != nil {
		return civil.Clock{}, civil.Clock{}, false
	}

	return start, end, true
}

func padHour(s string) string {
	if len(s) == 4 {
		return "0" + s
	}
	return s
}

package attendance

import "fmt"

// Status is the attendance classification of a TimeRecord.
type Status string

const (
	StatusWeekend              Status = "weekend"
	StatusWeekendWorked        Status = "weekend_worked"
	StatusPlanned              Status = "planned"
	StatusAbsent               Status = "absent"
	StatusNoScheduleWorked     Status = "no_schedule_worked"
	StatusNoExit               Status = "no_exit"
	StatusLate                 Status = "late"
	StatusEarlyLeave           Status = "early_leave"
	StatusOnTime               Status = "on_time"
	StatusNightShiftOnTime     Status = "night_shift_on_time"
	StatusNightShiftLate       Status = "night_shift_late"
	StatusNightShiftEarlyLeave Status = "night_shift_early_leave"
	StatusNightShiftAuto       Status = "night_shift_auto"
	StatusInvalidDuration      Status = "invalid_duration"
)

var StatusValues = []string{
	string(StatusWeekend),
	string(StatusWeekendWorked),
	string(StatusPlanned),
	string(StatusAbsent),
	string(StatusNoScheduleWorked),
	string(StatusNoExit),
	string(StatusLate),
	string(StatusEarlyLeave),
	string(StatusOnTime),
	string(StatusNightShiftOnTime),
	string(StatusNightShiftLate),
	string(StatusNightShiftEarlyLeave),
	string(StatusNightShiftAuto),
	string(StatusInvalidDuration),
}

var nightVariants = map[Status]Status{
	StatusOnTime:     StatusNightShiftOnTime,
	StatusLate:       StatusNightShiftLate,
	StatusEarlyLeave: StatusNightShiftEarlyLeave,
	StatusNoExit:     StatusNightShiftAuto,
}

func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
	return st, nil
}

func (s Status) Valid() bool {
	for _, v := range StatusValues {
		if string(s) == v {
			return true
		}
	}
	return false
}

// NightVariant returns the overnight counterpart of a day-shift status, or s
// unchanged when it has none.
func (s Status) NightVariant() Status {
	if v, ok := nightVariants[s]; ok {
		return v
	}
	return s
}

func (s Status) IsNightShift() bool {
	for _, v := range nightVariants {
		if v == s {
			return true
		}
	}
	return false
}

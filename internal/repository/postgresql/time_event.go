package postgresql

import (
	"context"
	"fmt"

	"github.com/cmlabs-hris/hris-timesheet-go/internal/domain/timeevent"
	"github.com/cmlabs-hris/hris-timesheet-go/internal/pkg/database"
)

type timeEventRepository struct {
	db *database.DB
}

// ListRaw implements timeevent.TimeEventRepository.
func (r *timeEventRepository) ListRaw(ctx context.Context, scope timeevent.Scope) ([]timeevent.RawTimeEvent, error) {
	q := GetQuerier(ctx, r.db)

	// The raw text is matched on its date prefix with a day of margin, so an
	// offset-carrying timestamp that normalizes across midnight is not lost.
	baseWhere := "LEFT(t.event_time_raw, 10) BETWEEN $1 AND $2"
	args := []any{scope.From.AddDays(-1).String(), scope.To.AddDays(1).String()}
	argIdx := 3

	join := ""
	if scope.Organization != "" {
		baseWhere += fmt.Sprintf(" AND t.organization_code = $%d", argIdx)
		args = append(args, scope.Organization)
		argIdx++
	}
	if scope.Department != "" {
		join = "JOIN employees e ON e.organization_code = t.organization_code AND e.employee_number = t.employee_number"
		baseWhere += fmt.Sprintf(" AND e.department_code = $%d", argIdx)
		args = append(args, scope.Department)
	}

	query := fmt.Sprintf(`
		SELECT t.id, t.organization_code, t.employee_number, t.event_time_raw, t.event_kind, t.site_code
		FROM time_events t
		%s
		WHERE %s
		ORDER BY t.id
	`, join, baseWhere)

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query time events: %w", err)
	}
	defer rows.Close()

	var events []timeevent.RawTimeEvent
	for rows.Next() {
		var ev timeevent.RawTimeEvent
		if err := rows.Scan(&ev.ID, &ev.Organization, &ev.EmployeeNumber, &ev.RawTimestamp, &ev.KindCode, &ev.SiteCode); err != nil {
			return nil, fmt.Errorf("failed to scan time event: %w", err)
		}
		events = append(events, ev)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating time events: %w", err)
	}

	return events, nil
}

func NewTimeEventRepository(db *database.DB) timeevent.TimeEventRepository {
	return &timeEventRepository{db: db}
}

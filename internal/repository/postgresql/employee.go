package postgresql

import (
	"context"
	"fmt"

	"github.com/cmlabs-hris/hris-timesheet-go/internal/domain/employee"
	"github.com/cmlabs-hris/hris-timesheet-go/internal/pkg/database"
)

type employeeRepository struct {
	db *database.DB
}

// ListInScope implements employee.EmployeeRepository.
func (r *employeeRepository) ListInScope(ctx context.Context, organization, department string) ([]employee.Employee, error) {
	q := GetQuerier(ctx, r.db)

	baseWhere := "TRUE"
	args := []any{}
	argIdx := 1

	if organization != "" {
		baseWhere += fmt.Sprintf(" AND organization_code = $%d", argIdx)
		args = append(args, organization)
		argIdx++
	}
	if department != "" {
		baseWhere += fmt.Sprintf(" AND department_code = $%d", argIdx)
		args = append(args, department)
	}

	query := `
		SELECT organization_code, employee_number, full_name, department_code, is_active
		FROM employees
		WHERE ` + baseWhere + `
		ORDER BY organization_code, employee_number
	`

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query employees: %w", err)
	}
	defer rows.Close()

	var employees []employee.Employee
	for rows.Next() {
		var e employee.Employee
		if err := rows.Scan(&e.Organization, &e.Number, &e.FullName, &e.Department, &e.Active); err != nil {
			return nil, fmt.Errorf("failed to scan employee: %w", err)
		}
		employees = append(employees, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating employees: %w", err)
	}

	return employees, nil
}

func NewEmployeeRepository(db *database.DB) employee.EmployeeRepository {
	return &employeeRepository{db: db}
}

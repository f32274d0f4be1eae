package employee

import "context"

type EmployeeRepository interface {
	// ListInScope returns employees of an organization/department. Empty
	// arguments widen the scope. Inactive employees are included so that
	// events of people who left mid-month still resolve.
	ListInScope(ctx context.Context, organization, department string) ([]Employee, error)
}

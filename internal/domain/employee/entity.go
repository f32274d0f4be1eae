package employee

// Employee is the directory entry the engine needs to scope a recomputation.
// Numbers are unique per organization only.
type Employee struct {
	Organization string
	Number       string
	FullName     string
	Department   string
	Active       bool
}

// Key identifies an employee across organizations.
type Key struct {
	Organization string
	Number       string
}

func (e Employee) Key() Key {
	return Key{Organization: e.Organization, Number: e.Number}
}

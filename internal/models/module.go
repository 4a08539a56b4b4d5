package models

// Module is a teaching unit that can be shared between courses.
type Module struct {
	ID     string `db:"id" json:"id"`
	Name   string `db:"name" json:"name"`
	Active bool   `db:"status" json:"status"`
}

// CourseModule is a module as it appears in a course syllabus.
type CourseModule struct {
	ModuleID    string  `db:"module_id" json:"module_id"`
	Name        string  `db:"name" json:"name"`
	Description *string `db:"description" json:"description,omitempty"`
}

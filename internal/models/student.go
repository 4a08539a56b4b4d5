package models

import (
	"strings"
	"time"
)

// Student is a learner registered by the back office. Rows are never
// removed; Active=false hides them.
type Student struct {
	ID        string     `db:"id" json:"id"`
	DNI       string     `db:"dni" json:"dni"`
	Name      string     `db:"name" json:"name"`
	Lastname  string     `db:"lastname" json:"lastname"`
	Email     string     `db:"email" json:"email"`
	Phone     string     `db:"phone" json:"phone"`
	Address   *string    `db:"address" json:"address,omitempty"`
	BirthDate *time.Time `db:"birth_date" json:"birth_date,omitempty"`
	Active    bool       `db:"status" json:"status"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
}

// FullName joins name and lastname.
func (s Student) FullName() string {
	return strings.TrimSpace(s.Name + " " + s.Lastname)
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Search   string
	Page     int
	PageSize int
}

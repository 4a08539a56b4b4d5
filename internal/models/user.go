package models

import "time"

// AdminRole separates full administrators from regular staff.
type AdminRole string

const (
	RoleAdmin AdminRole = "admin"
	RoleStaff AdminRole = "staff"
)

// AdminUser is a back office account.
type AdminUser struct {
	ID           string     `db:"id" json:"id"`
	AuthID       string     `db:"auth_id" json:"auth_id"`
	Name         string     `db:"name" json:"name"`
	Lastname     string     `db:"lastname" json:"lastname"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	Role         AdminRole  `db:"role" json:"role"`
	Active       bool       `db:"status" json:"status"`
	LastLogin    *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
	TotalPages int `json:"total_pages"`
}

// NewPagination fills TotalPages from the count and page size.
func NewPagination(page, size, total int) *Pagination {
	pages := 0
	if size > 0 {
		pages = (total + size - 1) / size
	}
	return &Pagination{Page: page, PageSize: size, TotalCount: total, TotalPages: pages}
}

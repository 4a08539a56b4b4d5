package models

import "time"

// DashboardStats are the counters on the admin landing page.
type DashboardStats struct {
	ActiveStudents     int       `db:"active_students" json:"active_students"`
	MonthlyEnrollments int       `db:"monthly_enrollments" json:"monthly_enrollments"`
	ActiveCourses      int       `db:"active_courses" json:"active_courses"`
	ActiveModules      int       `db:"active_modules" json:"active_modules"`
	GeneratedAt        time.Time `db:"-" json:"generated_at"`
}

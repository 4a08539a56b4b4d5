package models

import "time"

// CertificateStatus tracks an enrollment through certification. The only
// transition performed by the API is pendiente -> completado.
type CertificateStatus string

const (
	CertificatePending     CertificateStatus = "pendiente"
	CertificateApproved    CertificateStatus = "aprobado"
	CertificateNotApproved CertificateStatus = "no_aprobado"
	CertificateCompleted   CertificateStatus = "completado"
)

// Valid reports whether s is one of the known statuses.
func (s CertificateStatus) Valid() bool {
	switch s {
	case CertificatePending, CertificateApproved, CertificateNotApproved, CertificateCompleted:
		return true
	}
	return false
}

// Enrollment links a student to a course.
type Enrollment struct {
	ID                string            `db:"id" json:"id"`
	StudentID         string            `db:"student_id" json:"student_id"`
	CourseID          string            `db:"course_id" json:"course_id"`
	StartDate         *time.Time        `db:"start_date" json:"start_date,omitempty"`
	EndDate           *time.Time        `db:"end_date" json:"end_date,omitempty"`
	FinalGrade        *float64          `db:"final_grade" json:"final_grade,omitempty"`
	CertificateStatus CertificateStatus `db:"certificate_status" json:"certificate_status"`
	PDFURL            *string           `db:"pdf_url" json:"pdf_url,omitempty"`
	Active            bool              `db:"status" json:"status"`
	CreatedAt         time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time         `db:"updated_at" json:"updated_at"`
}

// EnrollmentDetail enriches Enrollment with student and course names.
type EnrollmentDetail struct {
	Enrollment
	StudentDNI      string       `db:"student_dni" json:"student_dni"`
	StudentName     string       `db:"student_name" json:"student_name"`
	StudentLastname string       `db:"student_lastname" json:"student_lastname"`
	CourseName      string       `db:"course_name" json:"course_name"`
	DurationValue   int          `db:"duration_value" json:"-"`
	DurationUnit    DurationUnit `db:"duration_unit" json:"-"`
}

// EnrollmentFilter provides filters for listing enrollments and certificates.
type EnrollmentFilter struct {
	Search    string
	StudentID string
	CourseID  string
	Status    CertificateStatus
	Page      int
	PageSize  int
}

// PendingCourse is one enrollment still awaiting its certificate.
type PendingCourse struct {
	EnrollmentID string            `db:"enrollment_id" json:"enrollment_id"`
	CourseID     string            `db:"course_id" json:"course_id"`
	CourseName   string            `db:"course_name" json:"course_name"`
	Status       CertificateStatus `db:"certificate_status" json:"certificate_status"`
}

// PendingLookup is the result of searching a DNI for pending certificates.
type PendingLookup struct {
	StudentID string          `json:"student_id"`
	DNI       string          `json:"dni"`
	Name      string          `json:"name"`
	Lastname  string          `json:"lastname"`
	Courses   []PendingCourse `json:"courses"`
}

// PendingRow is the flat row PendingLookup is assembled from.
type PendingRow struct {
	StudentID string `db:"student_id"`
	DNI       string `db:"dni"`
	Name      string `db:"name"`
	Lastname  string `db:"lastname"`
	PendingCourse
}

// CertifiedCourse is a completed certificate shown on the public page.
type CertifiedCourse struct {
	EnrollmentID string    `db:"enrollment_id" json:"enrollment_id"`
	DNI          string    `db:"dni" json:"dni"`
	Name         string    `db:"name" json:"name"`
	Lastname     string    `db:"lastname" json:"lastname"`
	CourseName   string    `db:"course_name" json:"course_name"`
	StartDate    time.Time `db:"start_date" json:"start_date"`
	EndDate      time.Time `db:"end_date" json:"end_date"`
	FinalGrade   float64   `db:"final_grade" json:"final_grade"`
	PDFURL       string    `db:"pdf_url" json:"pdf_url"`
}

// CertificateCompletion is the record update written after a successful upload.
type CertificateCompletion struct {
	EnrollmentID string
	StartDate    time.Time
	EndDate      time.Time
	FinalGrade   float64
	PDFURL       string
	CompletedAt  time.Time
}

package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCourseDurationText(t *testing.T) {
	assert.Equal(t, "3 meses", Course{DurationValue: 3, DurationUnit: DurationMonths}.DurationText())
	assert.Equal(t, "1 semana", Course{DurationValue: 1, DurationUnit: DurationWeeks}.DurationText())
	assert.Equal(t, "", Course{}.DurationText())
}

func TestNewPagination(t *testing.T) {
	p := NewPagination(2, 10, 21)
	assert.Equal(t, 3, p.TotalPages)
	assert.Equal(t, 0, NewPagination(1, 10, 0).TotalPages)
}

func TestCertificateStatusValid(t *testing.T) {
	assert.True(t, CertificatePending.Valid())
	assert.True(t, CertificateCompleted.Valid())
	assert.False(t, CertificateStatus("cancelado").Valid())
}

func TestStudentFullName(t *testing.T) {
	assert.Equal(t, "Ana Ruiz", Student{Name: "Ana", Lastname: "Ruiz"}.FullName())
}

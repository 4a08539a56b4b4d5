// Package validation holds the form rules shared by the admin endpoints.
// Every rule is a pure function returning a message suitable for the user.
package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

const (
	DNILength  = 8
	MinGrade   = 1.0
	MaxGrade   = 20.0
	DateLayout = "2006-01-02"
)

var (
	dniPattern        = regexp.MustCompile(`^\d{8}$`)
	studentDNIPattern = regexp.MustCompile(`^[1-9]\d{7}$`)
	phonePattern      = regexp.MustCompile(`^[1-9]\d{8}$`)
	namePattern       = regexp.MustCompile(`^[a-zA-ZáéíóúÁÉÍÓÚüÜñÑ\s]+$`)
)

// DNI checks the eight digit national identity format used for lookups.
func DNI(dni string) error {
	if !dniPattern.MatchString(dni) {
		return fmt.Errorf("DNI debe tener %d dígitos", DNILength)
	}
	return nil
}

// StudentDNI is DNI plus the registration rule that it cannot start with 0.
func StudentDNI(dni string) error {
	if !studentDNIPattern.MatchString(dni) {
		return fmt.Errorf("DNI debe tener %d dígitos y no comenzar con 0", DNILength)
	}
	return nil
}

// Grade accepts 1 <= g <= 20.
func Grade(g float64) error {
	if g < MinGrade || g > MaxGrade {
		return fmt.Errorf("La nota debe estar entre %g y %g", MinGrade, MaxGrade)
	}
	return nil
}

// ParseDate reads a YYYY-MM-DD calendar date as midnight UTC.
func ParseDate(raw string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, strings.TrimSpace(raw), time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("Fecha inválida %q, use el formato AAAA-MM-DD", raw)
	}
	return t, nil
}

// DateRange parses both dates and requires end to be strictly after start.
func DateRange(start, end string) (time.Time, time.Time, error) {
	if strings.TrimSpace(start) == "" || strings.TrimSpace(end) == "" {
		return time.Time{}, time.Time{}, errors.New("Las fechas de inicio y fin son obligatorias")
	}
	s, err := ParseDate(start)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	e, err := ParseDate(end)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if !e.After(s) {
		return time.Time{}, time.Time{}, errors.New("La fecha de fin debe ser mayor a la fecha de inicio")
	}
	return s, e, nil
}

// Phone checks a nine digit Peruvian mobile number not starting with 0.
func Phone(phone string) error {
	if !phonePattern.MatchString(phone) {
		return errors.New("Teléfono debe tener 9 dígitos y no comenzar con 0")
	}
	return nil
}

// PersonName allows letters, Spanish accents and spaces only.
func PersonName(name string) error {
	if strings.TrimSpace(name) == "" || !namePattern.MatchString(name) {
		return errors.New("Nombre no debe contener caracteres especiales")
	}
	return nil
}

// Email only requires a local part and a domain around a single @.
func Email(email string) error {
	at := strings.Index(email, "@")
	if at <= 0 || at == len(email)-1 || strings.Count(email, "@") != 1 {
		return errors.New("Email debe ser válido")
	}
	return nil
}

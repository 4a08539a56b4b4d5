package models

import (
	"fmt"
	"time"
)

// DurationUnit is the unit a course duration is expressed in.
type DurationUnit string

const (
	DurationDays   DurationUnit = "dias"
	DurationWeeks  DurationUnit = "semanas"
	DurationMonths DurationUnit = "meses"
)

// Course is a training programme offered by the school.
type Course struct {
	ID            string       `db:"id" json:"id"`
	Name          string       `db:"name" json:"name"`
	Description   *string      `db:"description" json:"description,omitempty"`
	ImageURL      *string      `db:"image_url" json:"image_url,omitempty"`
	Discount      float64      `db:"discount" json:"discount"`
	DurationValue int          `db:"duration_value" json:"duration_value"`
	DurationUnit  DurationUnit `db:"duration_unit" json:"duration_unit"`
	Rating        float64      `db:"rating" json:"rating"`
	Active        bool         `db:"status" json:"status"`
	CreatedAt     time.Time    `db:"created_at" json:"created_at"`
}

// DurationText renders "3 meses"; empty when no duration is recorded.
func (c Course) DurationText() string {
	if c.DurationValue <= 0 || c.DurationUnit == "" {
		return ""
	}
	unit := string(c.DurationUnit)
	if c.DurationValue == 1 {
		switch c.DurationUnit {
		case DurationDays:
			unit = "dia"
		case DurationWeeks:
			unit = "semana"
		case DurationMonths:
			unit = "mes"
		}
	}
	return fmt.Sprintf("%d %s", c.DurationValue, unit)
}

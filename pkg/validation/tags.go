package validation

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Custom struct tags registered by New.
const (
	TagDNI        = "dni"
	TagStudentDNI = "student_dni"
	TagPhone      = "phone_pe"
	TagPersonName = "person_name"
	TagEmail      = "email_simple"
)

var rules = map[string]func(string) error{
	TagDNI:        DNI,
	TagStudentDNI: StudentDNI,
	TagPhone:      Phone,
	TagPersonName: PersonName,
	TagEmail:      Email,
}

// New returns a validator with the domain tags registered.
func New() *validator.Validate {
	v := validator.New()
	Register(v)
	return v
}

// Register adds the domain tags to an existing validator.
func Register(v *validator.Validate) {
	for tag, rule := range rules {
		rule := rule
		_ = v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
			return rule(fl.Field().String()) == nil
		})
	}
}

// Message turns validator errors into the first user facing message, falling
// back to err.Error() for anything else.
func Message(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err.Error()
	}
	fe := verrs[0]
	if rule, ok := rules[fe.Tag()]; ok {
		if ruleErr := rule(fieldString(fe.Value())); ruleErr != nil {
			return ruleErr.Error()
		}
	}
	if fe.Tag() == "required" {
		return "El campo " + strings.ToLower(fe.Field()) + " es obligatorio"
	}
	return fe.Error()
}

func fieldString(v interface{}) string {
	s, _ := v.(string)
	return s
}

package filename

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var safe = regexp.MustCompile(`^[A-Za-z0-9._-]*$`)

func TestSanitize(t *testing.T) {
	cases := map[string]string{
		"Excavadora Hidráulica":   "Excavadora_Hidraulica",
		"Montacargas Año 2024":    "Montacargas_Ano_2024",
		"PEÑA":                    "PENA",
		"Cargador/Frontal 950":    "Cargador_Frontal_950",
		"12345678":                "12345678",
		"retro-excavadora_v1.pdf": "retro-excavadora_v1.pdf",
		"":                        "",
	}
	for in, want := range cases {
		assert.Equal(t, want, Sanitize(in), in)
	}
}

func TestSanitizeIsIdempotentAndSafe(t *testing.T) {
	inputs := []string{"Grúa Telescópica (Nivel 2)", "¿Qué?", "日本語", "a b\tc\nd", "Ñandú"}
	for _, in := range inputs {
		once := Sanitize(in)
		assert.Equal(t, once, Sanitize(once), in)
		assert.Regexp(t, safe, once, in)
	}
}

func TestCertificatePath(t *testing.T) {
	at := time.UnixMilli(1718000000123)

	assert.Equal(t, "Certificados/12345678-Excavadora_Hidraulica-1718000000123.pdf",
		Certificate("Certificados/", "12345678", "Excavadora Hidráulica", at))
	assert.Equal(t, "12345678-Grua-1718000000123.pdf", Certificate("", "12345678", "Grúa", at))
}

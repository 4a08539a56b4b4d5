package certificate

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLayout() Layout {
	return Layout{
		Institution:   "CEP Cursos de Equipos Pesados",
		City:          "LIMA/PERU",
		LogoURL:       "https://cdn.navicf.pe/logo.png",
		SealURL:       "https://cdn.navicf.pe/sello.png",
		VerifyBaseURL: "https://navicf.pe/certificados/",
		Signatories:   ParseSignatories([]string{"Gerencia General|GERENTE GENERAL", "INSTRUCTOR"}),
	}
}

func TestRenderIncludesStudentAndCourse(t *testing.T) {
	r, err := NewRenderer(testLayout())
	require.NoError(t, err)

	out, err := r.Render(Data{
		StudentName: "José Peña",
		DNI:         "12345678",
		CourseName:  "Excavadora Hidráulica",
		StartDate:   time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
		EndDate:     time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC),
		IssuedAt:    time.Date(2026, 10, 19, 15, 0, 0, 0, time.UTC),
		Duration:    "3 meses",
	})
	require.NoError(t, err)

	html := string(out)
	assert.Contains(t, html, `id="certificate"`)
	assert.Contains(t, html, "JOSÉ PEÑA")
	assert.Contains(t, html, "DNI 12345678")
	assert.Contains(t, html, "EXCAVADORA HIDRÁULICA")
	assert.Contains(t, html, "LIMA/PERU, 19 DE OCTUBRE DEL 2026")
	assert.Contains(t, html, "del 10/01/2024 al 20/03/2024 con una duración de 3 meses")
	assert.Contains(t, html, "width: 1122px; height: 794px;")
	assert.Contains(t, html, "data:image/png;base64,")
	assert.Contains(t, html, "GERENTE GENERAL")
	assert.Equal(t, 2, strings.Count(html, `class="seal"`))
}

func TestRenderEscapesUserInput(t *testing.T) {
	r, err := NewRenderer(Layout{Institution: "CEP"})
	require.NoError(t, err)

	out, err := r.Render(Data{StudentName: "<script>alert(1)</script>", DNI: "12345678", CourseName: "Grúa"})
	require.NoError(t, err)

	assert.NotContains(t, string(out), "<SCRIPT>")
	assert.NotContains(t, string(out), "data:image/png")
}

func TestSpanishDate(t *testing.T) {
	assert.Equal(t, "1 DE SETIEMBRE DEL 2025", SpanishDate(time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)))
}

func TestSplitInstitution(t *testing.T) {
	short, long := splitInstitution("CEP Cursos de Equipos Pesados")
	assert.Equal(t, "CEP", short)
	assert.Equal(t, []string{"Cursos de", "Equipos", "Pesados"}, long)
}

func TestVerifyURL(t *testing.T) {
	assert.Equal(t, "https://navicf.pe/certificados?dni=12345678", VerifyURL("https://navicf.pe/certificados/", "12345678"))
}

func TestParseSignatories(t *testing.T) {
	got := ParseSignatories([]string{"Ana Ruiz | GERENTE", "INSTRUCTOR"})
	assert.Equal(t, []Signatory{{Name: "Ana Ruiz", Title: "GERENTE"}, {Title: "INSTRUCTOR"}}, got)
}

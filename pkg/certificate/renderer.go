// Package certificate turns an enrollment into the printable certificate:
// an HTML document, its bitmap capture and the normalised JPEG.
package certificate

import (
	"bytes"
	"embed"
	"encoding/base64"
	"fmt"
	"html/template"
	"net/url"
	"strings"
	"time"

	qrcode "github.com/skip2/go-qrcode"
)

// Page size of the rendered document in CSS pixels (A4 landscape at 96dpi).
const (
	Width  = 1122
	Height = 794
)

// ElementID identifies the node captured by the rasterizer.
const ElementID = "certificate"

//go:embed templates/certificate.html
var templateFS embed.FS

var spanishMonths = [...]string{
	"ENERO", "FEBRERO", "MARZO", "ABRIL", "MAYO", "JUNIO",
	"JULIO", "AGOSTO", "SETIEMBRE", "OCTUBRE", "NOVIEMBRE", "DICIEMBRE",
}

// Signatory is one signature block under the body.
type Signatory struct {
	Name  string
	Title string
}

// Layout carries the institution wide parts of the certificate.
type Layout struct {
	Institution   string
	City          string
	LogoURL       string
	SealURL       string
	BackgroundURL string
	VerifyBaseURL string
	Signatories   []Signatory
}

// Data is the per student content.
type Data struct {
	StudentName string
	DNI         string
	CourseName  string
	StartDate   time.Time
	EndDate     time.Time
	IssuedAt    time.Time
	Duration    string
}

type view struct {
	Width         int
	Height        int
	BrandShort    string
	BrandLong     []string
	LogoURL       string
	SealURL       string
	BackgroundURL string
	StudentName   string
	DNI           string
	CourseName    string
	Period        string
	Place         string
	QRCode        template.URL
	Signatories   []Signatory
}

// Renderer produces the certificate HTML.
type Renderer struct {
	layout Layout
	tmpl   *template.Template
}

// NewRenderer parses the embedded template.
func NewRenderer(layout Layout) (*Renderer, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/certificate.html")
	if err != nil {
		return nil, fmt.Errorf("parse certificate template: %w", err)
	}
	if layout.City == "" {
		layout.City = "LIMA/PERU"
	}
	return &Renderer{layout: layout, tmpl: tmpl}, nil
}

// Render executes the template for d.
func (r *Renderer) Render(d Data) ([]byte, error) {
	if d.IssuedAt.IsZero() {
		d.IssuedAt = time.Now()
	}
	short, long := splitInstitution(r.layout.Institution)
	v := view{
		Width:         Width,
		Height:        Height,
		BrandShort:    short,
		BrandLong:     long,
		LogoURL:       r.layout.LogoURL,
		SealURL:       r.layout.SealURL,
		BackgroundURL: r.layout.BackgroundURL,
		StudentName:   strings.ToUpper(strings.TrimSpace(d.StudentName)),
		DNI:           d.DNI,
		CourseName:    strings.ToUpper(strings.TrimSpace(d.CourseName)),
		Period:        Period(d.StartDate, d.EndDate, d.Duration),
		Place:         r.layout.City + ", " + SpanishDate(d.IssuedAt),
		Signatories:   r.layout.Signatories,
	}
	if r.layout.VerifyBaseURL != "" {
		qr, err := qrDataURI(VerifyURL(r.layout.VerifyBaseURL, d.DNI))
		if err != nil {
			return nil, err
		}
		v.QRCode = qr
	}

	buf := &bytes.Buffer{}
	if err := r.tmpl.Execute(buf, v); err != nil {
		return nil, fmt.Errorf("render certificate: %w", err)
	}
	return buf.Bytes(), nil
}

// SpanishDate formats t as "19 DE OCTUBRE DEL 2026".
func SpanishDate(t time.Time) string {
	return fmt.Sprintf("%d DE %s DEL %d", t.Day(), spanishMonths[t.Month()-1], t.Year())
}

// Period describes the programme dates and, when known, its duration.
func Period(start, end time.Time, duration string) string {
	text := fmt.Sprintf("En periodo programado del %s al %s", start.Format("02/01/2006"), end.Format("02/01/2006"))
	if duration != "" {
		text += " con una duración de " + duration
	}
	return text
}

// VerifyURL is the public lookup link encoded in the QR code.
func VerifyURL(base, dni string) string {
	return strings.TrimRight(base, "/") + "?" + url.Values{"dni": {dni}}.Encode()
}

// ParseSignatories reads "Name|Title" entries. Entries without a separator
// are treated as a title only.
func ParseSignatories(entries []string) []Signatory {
	out := make([]Signatory, 0, len(entries))
	for _, entry := range entries {
		name, title, ok := strings.Cut(entry, "|")
		if !ok {
			name, title = "", entry
		}
		out = append(out, Signatory{Name: strings.TrimSpace(name), Title: strings.TrimSpace(title)})
	}
	return out
}

// splitInstitution turns "CEP Cursos de Equipos Pesados" into the short mark
// "CEP" and the stacked lines "Cursos de", "Equipos", "Pesados".
func splitInstitution(name string) (string, []string) {
	words := strings.Fields(name)
	if len(words) == 0 {
		return "", nil
	}
	var lines []string
	for _, w := range words[1:] {
		if len(lines) > 0 && len([]rune(w)) <= 3 {
			lines[len(lines)-1] += " " + w
			continue
		}
		lines = append(lines, w)
	}
	return words[0], lines
}

func qrDataURI(content string) (template.URL, error) {
	png, err := qrcode.Encode(content, qrcode.Medium, 256)
	if err != nil {
		return "", fmt.Errorf("encode verification qr: %w", err)
	}
	return template.URL("data:image/png;base64," + base64.StdEncoding.EncodeToString(png)), nil
}

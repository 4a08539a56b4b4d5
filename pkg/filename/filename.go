package filename

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Sanitize strips diacritics (so ñ becomes n) and replaces every rune outside
// [A-Za-z0-9._-] with an underscore. Sanitize(Sanitize(s)) == Sanitize(s).
func Sanitize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range norm.NFD.String(s) {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		if allowed(r) {
			b.WriteRune(r)
			continue
		}
		b.WriteByte('_')
	}
	return b.String()
}

// Certificate builds the object path for a certificate PDF:
// <folder>/<dni>-<course>-<unix millis>.pdf with both parts sanitized.
func Certificate(folder, dni, course string, at time.Time) string {
	name := fmt.Sprintf("%s-%s-%d.pdf", Sanitize(dni), Sanitize(course), at.UnixMilli())
	folder = strings.Trim(folder, "/")
	if folder == "" {
		return name
	}
	return folder + "/" + name
}

func allowed(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '.', r == '_', r == '-':
		return true
	}
	return false
}

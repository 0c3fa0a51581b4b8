// Package extract enthält reine Funktionen, die aus bereits geladenem Label-Text strukturierte
// Felder gewinnen: Wirkstoffklasse, Molekültyp, Pharmakokinetik, klinisches Profil,
// Nebenwirkungshäufigkeiten, Interaktionskandidaten und Schweregrad.
package extract

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	hyphenationRegex  = regexp.MustCompile(`(?m)([\p{L}\p{N}])-(?:\r?\n)([\p{Ll}])`)
	spaceRegex        = regexp.MustCompile("[\t\f\v\u00A0]+")
	multiSpaceRegex   = regexp.MustCompile(` {2,}`)
	multiNewlineRegex = regexp.MustCompile(`\n{3,}`)
	anyWhitespace     = regexp.MustCompile(`\s+`)
	nonSlugRegex      = regexp.MustCompile(`[^a-z0-9-]`)

	ligatures = strings.NewReplacer(
		"ﬁ", "fi",
		"ﬂ", "fl",
		"ﬀ", "ff",
		"ﬃ", "ffi",
		"ﬄ", "ffl",
		"ﬆ", "st",
		"œ", "oe",
		"æ", "ae",
	)
)

// NormalizeName liefert den Lookup-Schlüssel eines Namens: getrimmt, Whitespace zusammengefasst,
// kleingeschrieben. Nie als Identität verwenden.
func NormalizeName(s string) string {
	return strings.ToLower(anyWhitespace.ReplaceAllString(strings.TrimSpace(s), " "))
}

// Slug leitet aus dem kanonischen Namen einen URL-Slug ab ("Metformin HCl" -> "metformin-hcl").
func Slug(name string) string {
	s := anyWhitespace.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "-")
	return nonSlugRegex.ReplaceAllString(s, "")
}

// NormalizeLabelText bereinigt Label-Text: Ligaturen, NFC, Silbentrennung am Zeilenende und Whitespace.
func NormalizeLabelText(s string) string {
	s = normalizeUnicodeAndLigatures(s)
	s, _ = fixHyphenation(s)
	return collapseWhitespace(s)
}

// normalizeUnicodeAndLigatures führt NFC-Normalisierung durch und ersetzt gängige Ligaturen
func normalizeUnicodeAndLigatures(s string) string {
	s = ligatures.Replace(s)
	normalized, _, _ := transform.String(norm.NFC, s)
	return normalized
}

// fixHyphenation entfernt Trennstriche am Zeilenende zwischen Wort und kleinem Anfangsbuchstaben der Folgezeile
func fixHyphenation(s string) (string, int) {
	// Beispiel: "metabo-\nlized" -> "metabolized"
	count := len(hyphenationRegex.FindAllStringIndex(s, -1))
	if count == 0 {
		return s, 0
	}
	return hyphenationRegex.ReplaceAllString(s, "$1$2"), count
}

func collapseWhitespace(s string) string {
	s = spaceRegex.ReplaceAllString(s, " ")
	s = multiSpaceRegex.ReplaceAllString(s, " ")
	s = multiNewlineRegex.ReplaceAllString(s, "\n\n")
	lines := splitLines(s)
	for i := range lines {
		lines[i] = strings.TrimRightFunc(lines[i], unicode.IsSpace)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func splitLines(s string) []string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.Split(s, "\n")
}

// Truncate kürzt s auf höchstens n Zeichen (Runen).
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

package extract

import (
	"regexp"
	"strings"
)

const (
	minCandidateLen       = 2
	maxCandidateLen       = 120
	maxInteractionDescLen = 1000
)

// InteractionCandidate ist ein aus dem Interaktionsabschnitt gelesener Partnername samt Beschreibung.
type InteractionCandidate struct {
	Name        string
	Description string
}

var (
	candidatePrefixRegex = regexp.MustCompile(`^\s*(?:\(?\d+(?:\.\d+)*[.)]?|[•\-*–])\s*`)
	leadingNameRegex     = regexp.MustCompile(`(?i)^([a-z][a-z0-9\-]*(?:\s+[a-z][a-z0-9\-]*){0,3})\s+(?:may|can|should)\b`)
	candidateStopwords   = map[string]bool{
		"major":    true,
		"moderate": true,
		"minor":    true,
		"see":      true,
		"avoid":    true,
		"use":      true,
	}
)

// InteractionCandidates zerlegt den Interaktionstext zeilenweise in Partnerkandidaten. Bevorzugt
// wird der Text vor einem Doppelpunkt, dann vor einer öffnenden Klammer, sonst ein führender
// Name vor "may/can/should".
func InteractionCandidates(text string) []InteractionCandidate {
	var out []InteractionCandidate
	seen := map[string]bool{}
	for _, line := range splitLines(text) {
		line = strings.TrimSpace(candidatePrefixRegex.ReplaceAllString(line, ""))
		if line == "" {
			continue
		}
		name := candidateName(line)
		if !validCandidate(name) {
			continue
		}
		key := NormalizeName(name)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, InteractionCandidate{
			Name:        name,
			Description: Truncate(line, maxInteractionDescLen),
		})
	}
	return out
}

func candidateName(line string) string {
	if i := strings.Index(line, ":"); i > 0 {
		return strings.TrimSpace(line[:i])
	}
	if i := strings.Index(line, "("); i > 0 {
		return strings.TrimSpace(line[:i])
	}
	if m := leadingNameRegex.FindStringSubmatch(line); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

func validCandidate(name string) bool {
	n := len([]rune(name))
	if n < minCandidateLen || n > maxCandidateLen {
		return false
	}
	first := strings.ToLower(strings.Fields(name)[0])
	return !candidateStopwords[first]
}

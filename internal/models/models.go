// Package models extracts printer/copier model identifiers from document
// text: exact model tokens, placeholder-pattern expansions (e.g. "Cxx0i"
// standing in for C450i/C550i/...), and series names inferred into their
// known member models, per §4.8.
package models

import (
	"regexp"
	"strings"

	"docingest/internal/patterns"
)

// Match is one extracted model with its provenance and confidence weight.
type Match struct {
	Model      string
	Source     string // "exact", "placeholder", "series"
	Confidence float64
}

// Result is the full extraction output for one document.
type Result struct {
	Models     []Match
	Series     []string
	Confidence float64
}

var exactModelPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b([A-Z]\d{3,4}[A-Z]?)\b`),
	regexp.MustCompile(`(?i)\b(HP\s+[A-Za-z0-9]+(?:\s+[A-Za-z0-9]+)*)\b`),
	regexp.MustCompile(`(?i)\b(Lexmark\s+[A-Za-z0-9]+(?:\s+[A-Za-z0-9]+)*)\b`),
	regexp.MustCompile(`(?i)\b(bizhub\s+[A-Za-z0-9]+(?:\s+[A-Za-z0-9]+)*)\b`),
}

var seriesPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(i-series)`),
	regexp.MustCompile(`(?i)(bizhub\s+[A-Za-z]+)`),
	regexp.MustCompile(`(?i)(LaserJet\s+[A-Za-z]+)`),
	regexp.MustCompile(`(?i)(DeskJet\s+[A-Za-z]+)`),
	regexp.MustCompile(`(?i)(CS\s*[A-Za-z]*)`),
	regexp.MustCompile(`(?i)(C\s*[A-Za-z]*)`),
}

// placeholderRangeRe recognizes placeholders shaped like "Cxx0i"/"Cxx1i",
// from which candidate models are generated: a letter, two wildcard
// hundreds/tens digits, a fixed trailing digit, and a trailing letter.
var placeholderRangeRe = regexp.MustCompile(`^([A-Za-z]?)x{2}(\d)([A-Za-z]*)$`)

// Extract runs all three extraction strategies and merges them with the
// confidence weighting from §4.8: exact=1.0, placeholder=0.8, series=0.6.
func Extract(text, manufacturer string, snap *patterns.Snapshot) Result {
	known := knownModelsFor(manufacturer)

	exact := extractExact(text, known)
	placeholderModels := extractPlaceholders(text, snap, known)
	seriesNames, seriesModels := extractSeries(text, manufacturer)

	all := dedup(append(append(exact, placeholderModels...), seriesModels...))
	return Result{
		Models:     all,
		Series:     seriesNames,
		Confidence: confidence(len(exact), len(placeholderModels), len(seriesModels)),
	}
}

func extractExact(text string, known map[string]bool) []Match {
	var out []Match
	seen := map[string]bool{}
	for _, re := range exactModelPatterns {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			candidate := strings.TrimSpace(m[1])
			if candidate == "" || seen[strings.ToUpper(candidate)] {
				continue
			}
			if !isValidModel(candidate, known) {
				continue
			}
			seen[strings.ToUpper(candidate)] = true
			out = append(out, Match{Model: candidate, Source: "exact", Confidence: 1.0})
		}
	}
	return out
}

// extractPlaceholders finds which configured placeholder shapes appear (via
// their compiled regex, not the literal placeholder token) and expands each
// to its actual_models list, or generates candidates when that list is empty.
func extractPlaceholders(text string, snap *patterns.Snapshot, known map[string]bool) []Match {
	var out []Match
	seen := map[string]bool{}
	for _, ph := range snap.AllPlaceholders() {
		if !ph.Regex.MatchString(text) {
			continue
		}
		candidates := ph.ActualModels
		if len(candidates) == 0 {
			candidates = generateFromPattern(ph.Placeholder, known)
		}
		for _, c := range candidates {
			key := strings.ToUpper(c)
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, Match{Model: c, Source: "placeholder", Confidence: 0.8})
		}
	}
	return out
}

// generateFromPattern expands an "Cxx0i"-shaped pattern into the numeric
// range of hundreds (4xx-7xx) x tens (0-9), keeping only models present in
// the known-models table, per §4.8's numeric-range generation.
func generateFromPattern(pattern string, known map[string]bool) []string {
	m := placeholderRangeRe.FindStringSubmatch(pattern)
	if m == nil {
		return nil
	}
	letter, fixedDigit, suffix := m[1], m[2], m[3]
	var out []string
	for hundreds := 4; hundreds <= 7; hundreds++ {
		for tens := 0; tens <= 9; tens++ {
			model := letter + itoa(hundreds) + itoa(tens) + fixedDigit + suffix
			if known[strings.ToUpper(model)] {
				out = append(out, model)
			}
		}
	}
	return out
}

func itoa(n int) string {
	return string(rune('0' + n))
}

func extractSeries(text, manufacturer string) ([]string, []Match) {
	var names []string
	seenNames := map[string]bool{}
	for _, re := range seriesPatterns {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			name := strings.TrimSpace(m[1])
			if name == "" {
				continue
			}
			key := strings.ToLower(name)
			if seenNames[key] {
				continue
			}
			seenNames[key] = true
			names = append(names, name)
		}
	}

	var out []Match
	seenModels := map[string]bool{}
	for _, name := range names {
		for seriesKey, members := range knownSeriesModels(manufacturer) {
			if !strings.Contains(strings.ToLower(name), strings.ToLower(seriesKey)) {
				continue
			}
			for _, model := range members {
				key := strings.ToUpper(model)
				if seenModels[key] {
					continue
				}
				seenModels[key] = true
				out = append(out, Match{Model: model, Source: "series", Confidence: 0.6})
			}
		}
	}
	return names, out
}

func isValidModel(model string, known map[string]bool) bool {
	if len(model) < 3 {
		return false
	}
	if len(known) == 0 {
		return true
	}
	return known[strings.ToUpper(model)]
}

func dedup(matches []Match) []Match {
	seen := map[string]bool{}
	var out []Match
	for _, m := range matches {
		key := strings.ToUpper(m.Model)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, m)
	}
	return out
}

// confidence mirrors §4.8's weighted-average: exact matches count fully,
// placeholder expansions at 0.8, series inferences at 0.6.
func confidence(exact, placeholder, series int) float64 {
	total := exact + placeholder + series
	if total == 0 {
		return 0
	}
	weighted := float64(exact) + float64(placeholder)*0.8 + float64(series)*0.6
	return weighted / float64(total)
}

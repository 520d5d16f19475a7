package patterns

import (
	"fmt"
	"regexp"
	"strings"
)

// CompiledCodeRuleSet is a CodeRuleSet with its regexes pre-compiled and its
// examples indexed for O(1) description lookup.
type CompiledCodeRuleSet struct {
	Patterns   []*regexp.Regexp
	Validation *regexp.Regexp
	examples   map[string]CodeExample
}

// Describe returns the known description/category for a matched token,
// falling back to "Unknown"/"unknown" on miss, per §4.9.
func (r CompiledCodeRuleSet) Describe(token string) (description, category string) {
	if ex, ok := r.examples[strings.ToUpper(token)]; ok {
		return ex.Description, ex.Category
	}
	return "Unknown", "unknown"
}

// Models returns the known compatible model list for a matched part number,
// or nil if the token isn't in the example table.
func (r CompiledCodeRuleSet) Models(token string) []string {
	if ex, ok := r.examples[strings.ToUpper(token)]; ok {
		return ex.Models
	}
	return nil
}

// CompiledPatterns exposes the compiled candidate regexes so extractors can run them
// directly against document text.
func (r CompiledCodeRuleSet) CompiledPatterns() []*regexp.Regexp { return r.Patterns }

// ValidationRegex exposes the compiled hard filter used to discard
// regex matches that don't have the exact shape of a real code.
func (r CompiledCodeRuleSet) ValidationRegex() *regexp.Regexp { return r.Validation }

func compileCodeRuleSet(name string, rs CodeRuleSet) (CompiledCodeRuleSet, error) {
	out := CompiledCodeRuleSet{examples: make(map[string]CodeExample, len(rs.Examples))}
	for _, p := range rs.Patterns {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return out, fmt.Errorf("%s: pattern %q: %w", name, p, err)
		}
		out.Patterns = append(out.Patterns, re)
	}
	if rs.ValidationRegex != "" {
		re, err := regexp.Compile(rs.ValidationRegex)
		if err != nil {
			return out, fmt.Errorf("%s: validation_regex %q: %w", name, rs.ValidationRegex, err)
		}
		out.Validation = re
	}
	for _, ex := range rs.Examples {
		key := strings.ToUpper(firstNonEmpty(ex.Code, ex.PartNumber))
		if key == "" {
			continue
		}
		out.examples[key] = ex
	}
	return out, nil
}

// CompiledVersionEntry pairs a compiled regex with its output template.
type CompiledVersionEntry struct {
	Regex        *regexp.Regexp
	OutputFormat string
}

// CompiledVersionCategory is one named category (edition_date, iso_date, ...)
// with all of its candidate patterns compiled.
type CompiledVersionCategory struct {
	Name    string
	Entries []CompiledVersionEntry
}

// CompiledVersionValidation is VersionValidation with its regexes compiled.
type CompiledVersionValidation struct {
	MinLen, MaxLen int
	AllowedChars   *regexp.Regexp
	Forbidden      []*regexp.Regexp
}

func compileVersionValidation(v VersionValidation) (CompiledVersionValidation, error) {
	out := CompiledVersionValidation{MinLen: v.MinVersionLength, MaxLen: v.MaxVersionLength}
	if v.AllowedCharacters != "" {
		re, err := regexp.Compile(v.AllowedCharacters)
		if err != nil {
			return out, fmt.Errorf("validation.allowed_characters %q: %w", v.AllowedCharacters, err)
		}
		out.AllowedChars = re
	}
	for _, fp := range v.ForbiddenPatterns {
		re, err := regexp.Compile(fp)
		if err != nil {
			return out, fmt.Errorf("validation.forbidden_patterns %q: %w", fp, err)
		}
		out.Forbidden = append(out.Forbidden, re)
	}
	return out, nil
}

// CompiledPlaceholder is one placeholder shape (e.g. "Cxx0i") with its
// matching regex pre-compiled.
type CompiledPlaceholder struct {
	Type         string
	Placeholder  string
	Regex        *regexp.Regexp
	GeneratePattern string // the raw pattern string as written in the config
	Manufacturer string
	Series       string
	ActualModels []string
}

func compilePlaceholder(typ string, ex PlaceholderExample) (CompiledPlaceholder, error) {
	re, err := regexp.Compile(ex.Pattern)
	if err != nil {
		return CompiledPlaceholder{}, fmt.Errorf("placeholder %q pattern %q: %w", ex.Placeholder, ex.Pattern, err)
	}
	return CompiledPlaceholder{
		Type:            typ,
		Placeholder:     ex.Placeholder,
		Regex:           re,
		GeneratePattern: ex.Pattern,
		Manufacturer:    ex.Manufacturer,
		Series:          ex.Series,
		ActualModels:    ex.ActualModels,
	}, nil
}

// CompiledManufacturerDetection is ManufacturerDetection with patterns compiled.
type CompiledManufacturerDetection struct {
	FilenamePatterns []*regexp.Regexp
	ContentPatterns  []*regexp.Regexp
	ModelSeries      []*regexp.Regexp
	ConfidenceBoost  float64
}

func compileManufacturerDetection(name string, d ManufacturerDetection) (CompiledManufacturerDetection, error) {
	var out CompiledManufacturerDetection
	out.ConfidenceBoost = d.ConfidenceBoost
	for _, p := range d.FilenamePatterns {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return out, fmt.Errorf("manufacturer %s filename_patterns %q: %w", name, p, err)
		}
		out.FilenamePatterns = append(out.FilenamePatterns, re)
	}
	for _, p := range d.ContentPatterns {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return out, fmt.Errorf("manufacturer %s content_patterns %q: %w", name, p, err)
		}
		out.ContentPatterns = append(out.ContentPatterns, re)
	}
	for _, p := range d.ModelSeries {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return out, fmt.Errorf("manufacturer %s model_series %q: %w", name, p, err)
		}
		out.ModelSeries = append(out.ModelSeries, re)
	}
	return out, nil
}

// CompiledDocumentTypeDetection is DocumentTypeDetection with patterns compiled.
type CompiledDocumentTypeDetection struct {
	FilenameKeywords []string
	ContentKeywords  []string
	ContentPatterns  []*regexp.Regexp
	ConfidenceWeight float64
}

func compileDocumentTypeDetection(name string, d DocumentTypeDetection) (CompiledDocumentTypeDetection, error) {
	out := CompiledDocumentTypeDetection{
		FilenameKeywords: lower(d.FilenameKeywords),
		ContentKeywords:  lower(d.ContentKeywords),
		ConfidenceWeight: d.ConfidenceWeight,
	}
	for _, p := range d.ContentPatterns {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return out, fmt.Errorf("document type %s content_patterns %q: %w", name, p, err)
		}
		out.ContentPatterns = append(out.ContentPatterns, re)
	}
	return out, nil
}

func lower(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(s)
	}
	return out
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

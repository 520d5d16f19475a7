// Package codes extracts manufacturer-specific error codes and part numbers
// from document text using the compiled regex/validation/example rule sets
// in the pattern snapshot, per §4.9.
package codes

import (
	"strings"

	"docingest/internal/patterns"
)

// ErrorCode is one matched, validated error code with its looked-up
// description.
type ErrorCode struct {
	Code         string
	Description  string
	Category     string
	Manufacturer string
}

// PartNumber is one matched, validated part number with its looked-up
// description and compatible models.
type PartNumber struct {
	PartNumber   string
	Description  string
	Category     string
	Models       []string
	Manufacturer string
}

// ExtractErrorCodes runs the manufacturer's error-code patterns against text,
// keeps only matches that pass the manufacturer's validation regex, and
// deduplicates by code within the document.
func ExtractErrorCodes(text, manufacturer string, snap *patterns.Snapshot) []ErrorCode {
	rs, ok := snap.ErrorPatterns(strings.ToLower(manufacturer))
	if !ok {
		return nil
	}
	var out []ErrorCode
	seen := map[string]bool{}
	for _, re := range rs.CompiledPatterns() {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			code := firstCapture(m)
			if code == "" || seen[code] {
				continue
			}
			if v := rs.ValidationRegex(); v != nil && !v.MatchString(code) {
				continue
			}
			seen[code] = true
			desc, cat := rs.Describe(code)
			out = append(out, ErrorCode{Code: code, Description: desc, Category: cat, Manufacturer: manufacturer})
		}
	}
	return out
}

// ExtractPartNumbers runs the manufacturer's part-number patterns the same
// way, attaching each match's known compatible models when available.
func ExtractPartNumbers(text, manufacturer string, snap *patterns.Snapshot) []PartNumber {
	rs, ok := snap.PartPatterns(strings.ToLower(manufacturer))
	if !ok {
		return nil
	}
	var out []PartNumber
	seen := map[string]bool{}
	for _, re := range rs.CompiledPatterns() {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			part := firstCapture(m)
			if part == "" || seen[part] {
				continue
			}
			if v := rs.ValidationRegex(); v != nil && !v.MatchString(part) {
				continue
			}
			seen[part] = true
			desc, cat := rs.Describe(part)
			out = append(out, PartNumber{
				PartNumber:   part,
				Description:  desc,
				Category:     cat,
				Models:       rs.Models(part),
				Manufacturer: manufacturer,
			})
		}
	}
	return out
}

// firstCapture returns the first capture group of a FindAllStringSubmatch
// result, or the whole match if the pattern has no group.
func firstCapture(m []string) string {
	if len(m) > 1 {
		return m[1]
	}
	if len(m) == 1 {
		return m[0]
	}
	return ""
}

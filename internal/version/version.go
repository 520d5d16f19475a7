// Package version extracts a document's edition/revision string from its
// text by walking the pattern snapshot's version categories in search-order,
// formatting the first validated match, per §4.7.
package version

import (
	"strings"

	"docingest/internal/patterns"
)

// Extract returns the version string and its confidence score (1.0 minus
// 0.1 per position in the search order), or ("", 0) if nothing validated.
func Extract(text, manufacturer string, snap *patterns.Snapshot) (string, float64) {
	order := snap.VersionSearchOrder(manufacturer)
	validation := snap.VersionValidation()

	for i, categoryName := range order {
		category, ok := snap.VersionCategory(categoryName)
		if !ok {
			continue
		}
		for _, entry := range category.Entries {
			match := entry.Regex.FindStringSubmatch(text)
			if match == nil {
				continue
			}
			formatted := formatVersion(match, entry.OutputFormat)
			if validate(formatted, validation) {
				return formatted, 1.0 - float64(i)*0.1
			}
		}
	}
	return "", 0
}

// formatVersion substitutes the regex's capture groups into the output
// template. A single-capture match fills every known placeholder name with
// that one value; a two-capture match maps group 1 to {edition}/{version}/
// {month_year} and group 2 to {date}, mirroring the original extractor's
// format_dict behavior.
func formatVersion(match []string, outputFormat string) string {
	if outputFormat == "" {
		outputFormat = "{version}"
	}
	groups := match[1:]
	replacements := map[string]string{}
	switch len(groups) {
	case 0:
		replacements["version"] = match[0]
	case 1:
		v := groups[0]
		replacements["version"] = v
		replacements["edition"] = v
		replacements["date"] = v
		replacements["month_year"] = v
	default:
		replacements["edition"] = groups[0]
		replacements["version"] = groups[0]
		replacements["month_year"] = groups[0]
		replacements["date"] = groups[1]
	}

	out := outputFormat
	for key, val := range replacements {
		out = strings.ReplaceAll(out, "{"+key+"}", val)
	}
	return out
}

func validate(v string, rules patterns.CompiledVersionValidation) bool {
	if v == "" {
		return false
	}
	if rules.MinLen > 0 && len(v) < rules.MinLen {
		return false
	}
	if rules.MaxLen > 0 && len(v) > rules.MaxLen {
		return false
	}
	if rules.AllowedChars != nil && !rules.AllowedChars.MatchString(v) {
		return false
	}
	for _, forbidden := range rules.Forbidden {
		if forbidden.MatchString(v) {
			return false
		}
	}
	return true
}

// Package patterns loads and validates the declarative JSON rule sets that
// drive classification and extraction: manufacturer/document-type detection,
// error codes, part numbers, version strings, model placeholders, and chunk
// sizing. The process refuses to start if any rule set fails to compile.
package patterns

// CodeRuleSet is the shared shape of error_code_patterns and
// part_number_patterns: a set of regexes, a hard validation filter, and a
// lookup table used to attach a human description to a matched token.
type CodeRuleSet struct {
	Patterns         []string       `json:"patterns"`
	ValidationRegex  string         `json:"validation_regex"`
	Examples         []CodeExample  `json:"examples"`
}

// CodeExample is one known code/part entry used for description lookup.
type CodeExample struct {
	Code        string   `json:"code,omitempty"`
	PartNumber  string   `json:"part_number,omitempty"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Models      []string `json:"models,omitempty"`
}

// errorCodeConfigFile mirrors error_code_patterns.json.
type errorCodeConfigFile struct {
	ErrorCodePatterns  map[string]CodeRuleSet `json:"error_code_patterns"`
	PartNumberPatterns map[string]CodeRuleSet `json:"part_number_patterns"`
}

// VersionPatternEntry is one regex + its output template within a category.
type VersionPatternEntry struct {
	Pattern      string `json:"pattern"`
	OutputFormat string `json:"output_format"`
}

// VersionCategory groups the patterns that make up one named category
// (edition_date, iso_date, firmware, ...).
type VersionCategory struct {
	Patterns []VersionPatternEntry `json:"patterns"`
}

// VersionValidation bounds and filters an extracted version string.
type VersionValidation struct {
	MinVersionLength  int      `json:"min_version_length"`
	MaxVersionLength  int      `json:"max_version_length"`
	AllowedCharacters string   `json:"allowed_characters"`
	ForbiddenPatterns []string `json:"forbidden_patterns"`
}

// ManufacturerVersionHints reorders the search order for one manufacturer.
type ManufacturerVersionHints struct {
	PreferredPatterns []string `json:"preferred_patterns"`
	Examples          []string `json:"examples"`
}

type versionConfigFile struct {
	VersionPatterns struct {
		Patterns           map[string]VersionCategory          `json:"patterns"`
		ExtractionSettings struct {
			SearchOrder []string `json:"search_order"`
		} `json:"extraction_settings"`
		ManufacturerSpecific map[string]ManufacturerVersionHints `json:"manufacturer_specific"`
		Validation           VersionValidation                   `json:"validation"`
	} `json:"version_patterns"`
}

// PlaceholderExample is one concrete placeholder shape, e.g. "Cxx0i".
type PlaceholderExample struct {
	Placeholder  string   `json:"placeholder"`
	Pattern      string   `json:"pattern"`
	Manufacturer string   `json:"manufacturer,omitempty"`
	Series       string   `json:"series,omitempty"`
	ActualModels []string `json:"actual_models,omitempty"`
}

type placeholderConfigFile struct {
	ModelPlaceholderPatterns struct {
		PlaceholderTypes map[string]struct {
			Examples []PlaceholderExample `json:"examples"`
		} `json:"placeholder_types"`
	} `json:"model_placeholder_patterns"`
}

// ChunkStrategy is one named chunking strategy's tuning.
type ChunkStrategy struct {
	ChunkSize    int    `json:"chunk_size"`
	ChunkOverlap int    `json:"chunk_overlap"`
	Strategy     string `json:"strategy"`
}

// DocumentTypeChunkOverride overrides strategy/size for a document type.
type DocumentTypeChunkOverride struct {
	Strategy          string `json:"strategy"`
	PreferredStrategy string `json:"preferred_strategy"`
	ChunkSize         int    `json:"chunk_size"`
	ChunkOverlap      int    `json:"chunk_overlap"`
}

// ManufacturerChunkOverride scales a strategy's chunk_size for a manufacturer.
type ManufacturerChunkOverride struct {
	PreferredStrategy   string  `json:"preferred_strategy"`
	ChunkSizeMultiplier float64 `json:"chunk_size_multiplier"`
}

type chunkSettingsConfigFile struct {
	ChunkSettings struct {
		DefaultStrategy       string                               `json:"default_strategy"`
		Strategies            map[string]ChunkStrategy             `json:"strategies"`
		DocumentTypeSpecific  map[string]DocumentTypeChunkOverride `json:"document_type_specific"`
		ManufacturerSpecific  map[string]ManufacturerChunkOverride `json:"manufacturer_specific"`
	} `json:"chunk_settings"`
}

// ManufacturerDetection describes how to recognize one manufacturer from a
// filename or from document content.
type ManufacturerDetection struct {
	FilenamePatterns []string `json:"filename_patterns"`
	ContentPatterns  []string `json:"content_patterns"`
	ModelSeries      []string `json:"model_series"`
	ConfidenceBoost  float64  `json:"confidence_boost"`
}

// DocumentTypeDetection describes how to recognize one document type.
type DocumentTypeDetection struct {
	FilenameKeywords []string `json:"filename_keywords"`
	ContentKeywords  []string `json:"content_keywords"`
	ContentPatterns  []string `json:"content_patterns"`
	ConfidenceWeight float64  `json:"confidence_weight"`
}

type classificationConfigFile struct {
	ManufacturerPatterns map[string]ManufacturerDetection `json:"manufacturer_patterns"`
	DocumentTypePatterns map[string]DocumentTypeDetection `json:"document_type_patterns"`
}

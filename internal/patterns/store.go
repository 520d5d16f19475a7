package patterns

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync/atomic"
)

// Snapshot is an immutable, fully-compiled view of the five configuration
// files. A Store swaps snapshots atomically on Reload so that no reader ever
// observes a partially-updated rule set (§4.1, §8 invariant 7).
type Snapshot struct {
	generation uint64

	errorPatterns map[string]CompiledCodeRuleSet
	partPatterns  map[string]CompiledCodeRuleSet

	versionCategories        map[string]CompiledVersionCategory
	versionSearchOrder       []string
	manufacturerVersionHints map[string]ManufacturerVersionHints
	versionValidation        CompiledVersionValidation

	placeholdersByType map[string][]CompiledPlaceholder
	allPlaceholders    []CompiledPlaceholder

	defaultChunkStrategy string
	chunkStrategies      map[string]ChunkStrategy
	docTypeChunkOverride map[string]DocumentTypeChunkOverride
	manuChunkOverride    map[string]ManufacturerChunkOverride

	manufacturerDetection map[string]CompiledManufacturerDetection
	documentTypeDetection map[string]CompiledDocumentTypeDetection
}

// Generation returns the monotonic generation number of this snapshot.
func (s *Snapshot) Generation() uint64 { return s.generation }

// ErrorPatterns returns the compiled error-code rule set for a manufacturer.
func (s *Snapshot) ErrorPatterns(manufacturer string) (CompiledCodeRuleSet, bool) {
	rs, ok := s.errorPatterns[manufacturer]
	return rs, ok
}

// PartPatterns returns the compiled part-number rule set for a manufacturer.
func (s *Snapshot) PartPatterns(manufacturer string) (CompiledCodeRuleSet, bool) {
	rs, ok := s.partPatterns[manufacturer]
	return rs, ok
}

// VersionSearchOrder returns the category search order for a manufacturer,
// with that manufacturer's preferred categories moved to the front.
func (s *Snapshot) VersionSearchOrder(manufacturer string) []string {
	hints, ok := s.manufacturerVersionHints[manufacturer]
	if !ok || len(hints.PreferredPatterns) == 0 {
		return s.versionSearchOrder
	}
	preferred := make(map[string]bool, len(hints.PreferredPatterns))
	order := make([]string, 0, len(s.versionSearchOrder))
	for _, c := range hints.PreferredPatterns {
		if _, exists := s.versionCategories[c]; exists {
			order = append(order, c)
			preferred[c] = true
		}
	}
	for _, c := range s.versionSearchOrder {
		if !preferred[c] {
			order = append(order, c)
		}
	}
	return order
}

// VersionCategory looks up one compiled version category by name.
func (s *Snapshot) VersionCategory(name string) (CompiledVersionCategory, bool) {
	c, ok := s.versionCategories[name]
	return c, ok
}

// VersionValidation returns the compiled validation rules for version strings.
func (s *Snapshot) VersionValidation() CompiledVersionValidation { return s.versionValidation }

// PlaceholderTypes returns every compiled placeholder, grouped by type.
func (s *Snapshot) PlaceholderTypes() map[string][]CompiledPlaceholder { return s.placeholdersByType }

// AllPlaceholders returns every compiled placeholder across all types.
func (s *Snapshot) AllPlaceholders() []CompiledPlaceholder { return s.allPlaceholders }

// ChunkSettings resolves the effective chunk strategy for a document type and
// manufacturer: document-type override beats manufacturer override beats the
// global default, per §4.10.
func (s *Snapshot) ChunkSettings(documentType, manufacturer string) ChunkStrategy {
	name := s.defaultChunkStrategy
	size, overlap := 0, 0
	if base, ok := s.chunkStrategies[name]; ok {
		size, overlap = base.ChunkSize, base.ChunkOverlap
	}

	docTypeStrategy := false
	if ov, ok := s.docTypeChunkOverride[documentType]; ok {
		strat := firstNonEmpty(ov.Strategy, ov.PreferredStrategy)
		if strat != "" {
			name = strat
			docTypeStrategy = true
		}
		if ov.ChunkSize > 0 {
			size = ov.ChunkSize
		}
		if ov.ChunkOverlap > 0 {
			overlap = ov.ChunkOverlap
		}
	} else if base, ok := s.chunkStrategies[name]; ok {
		size, overlap = base.ChunkSize, base.ChunkOverlap
	}

	if mv, ok := s.manuChunkOverride[manufacturer]; ok {
		if mv.PreferredStrategy != "" && !docTypeStrategy {
			name = mv.PreferredStrategy
		}
		if mv.ChunkSizeMultiplier > 0 {
			size = int(float64(size) * mv.ChunkSizeMultiplier)
		}
	}

	if base, ok := s.chunkStrategies[name]; ok {
		if size <= 0 {
			size = base.ChunkSize
		}
		if overlap <= 0 {
			overlap = base.ChunkOverlap
		}
	}

	return ChunkStrategy{ChunkSize: size, ChunkOverlap: overlap, Strategy: name}
}

// ManufacturerDetection returns the compiled filename/content detection rules
// for every configured manufacturer, keyed by manufacturer name.
func (s *Snapshot) ManufacturerDetection() map[string]CompiledManufacturerDetection {
	return s.manufacturerDetection
}

// DocumentTypeDetection returns the compiled detection rules for every
// configured document type, keyed by document type name.
func (s *Snapshot) DocumentTypeDetection() map[string]CompiledDocumentTypeDetection {
	return s.documentTypeDetection
}

// Store holds the current Snapshot behind an atomic pointer and knows how to
// reload it from a config directory on disk.
type Store struct {
	dir     string
	current atomic.Pointer[Snapshot]
}

// Load reads and compiles all five configuration files from dir. It refuses
// to return a Store on any validation failure (fail-fast per §4.1/§7).
func Load(dir string) (*Store, error) {
	st := &Store{dir: dir}
	snap, err := buildSnapshot(dir, 1)
	if err != nil {
		return nil, err
	}
	st.current.Store(snap)
	return st, nil
}

// Reload re-reads the configuration directory and, if it compiles cleanly,
// atomically swaps in the new snapshot. On failure the previous snapshot
// remains in effect and the error is returned to the caller.
func (s *Store) Reload() error {
	prev := s.current.Load()
	gen := uint64(1)
	if prev != nil {
		gen = prev.generation + 1
	}
	snap, err := buildSnapshot(s.dir, gen)
	if err != nil {
		return fmt.Errorf("patterns: reload rejected: %w", err)
	}
	s.current.Store(snap)
	return nil
}

// Snapshot returns the currently active snapshot. Callers should fetch this
// once per logical operation and hold the reference, so a concurrent Reload
// cannot produce a mixed result within that operation (§8 invariant 7).
func (s *Store) Snapshot() *Snapshot { return s.current.Load() }

func buildSnapshot(dir string, generation uint64) (*Snapshot, error) {
	snap := &Snapshot{
		generation:            generation,
		errorPatterns:         map[string]CompiledCodeRuleSet{},
		partPatterns:          map[string]CompiledCodeRuleSet{},
		versionCategories:     map[string]CompiledVersionCategory{},
		placeholdersByType:    map[string][]CompiledPlaceholder{},
		chunkStrategies:       map[string]ChunkStrategy{},
		docTypeChunkOverride:  map[string]DocumentTypeChunkOverride{},
		manuChunkOverride:     map[string]ManufacturerChunkOverride{},
		manufacturerDetection: map[string]CompiledManufacturerDetection{},
		documentTypeDetection: map[string]CompiledDocumentTypeDetection{},
	}

	var errCfg errorCodeConfigFile
	if err := readJSON(dir, "error_code_patterns.json", &errCfg); err != nil {
		return nil, err
	}
	for manu, rs := range errCfg.ErrorCodePatterns {
		c, err := compileCodeRuleSet("error_code_patterns."+manu, rs)
		if err != nil {
			return nil, err
		}
		snap.errorPatterns[manu] = c
	}
	for manu, rs := range errCfg.PartNumberPatterns {
		c, err := compileCodeRuleSet("part_number_patterns."+manu, rs)
		if err != nil {
			return nil, err
		}
		snap.partPatterns[manu] = c
	}

	var verCfg versionConfigFile
	if err := readJSON(dir, "version_patterns.json", &verCfg); err != nil {
		return nil, err
	}
	for name, cat := range verCfg.VersionPatterns.Patterns {
		cc := CompiledVersionCategory{Name: name}
		for _, entry := range cat.Patterns {
			re, err := compileVersionEntry(entry)
			if err != nil {
				return nil, fmt.Errorf("version_patterns.%s: %w", name, err)
			}
			cc.Entries = append(cc.Entries, re)
		}
		snap.versionCategories[name] = cc
	}
	for _, cat := range verCfg.VersionPatterns.ExtractionSettings.SearchOrder {
		if _, ok := snap.versionCategories[cat]; !ok {
			return nil, fmt.Errorf("version_patterns: search_order references undefined category %q", cat)
		}
	}
	snap.versionSearchOrder = verCfg.VersionPatterns.ExtractionSettings.SearchOrder
	snap.manufacturerVersionHints = verCfg.VersionPatterns.ManufacturerSpecific
	vv, err := compileVersionValidation(verCfg.VersionPatterns.Validation)
	if err != nil {
		return nil, fmt.Errorf("version_patterns: %w", err)
	}
	snap.versionValidation = vv

	var phCfg placeholderConfigFile
	if err := readJSON(dir, "model_placeholder_patterns.json", &phCfg); err != nil {
		return nil, err
	}
	for typ, block := range phCfg.ModelPlaceholderPatterns.PlaceholderTypes {
		for _, ex := range block.Examples {
			cp, err := compilePlaceholder(typ, ex)
			if err != nil {
				return nil, err
			}
			snap.placeholdersByType[typ] = append(snap.placeholdersByType[typ], cp)
			snap.allPlaceholders = append(snap.allPlaceholders, cp)
		}
	}

	var chunkCfg chunkSettingsConfigFile
	if err := readJSON(dir, "chunk_settings.json", &chunkCfg); err != nil {
		return nil, err
	}
	snap.defaultChunkStrategy = chunkCfg.ChunkSettings.DefaultStrategy
	snap.chunkStrategies = chunkCfg.ChunkSettings.Strategies
	snap.docTypeChunkOverride = chunkCfg.ChunkSettings.DocumentTypeSpecific
	snap.manuChunkOverride = chunkCfg.ChunkSettings.ManufacturerSpecific
	if snap.defaultChunkStrategy != "" {
		if _, ok := snap.chunkStrategies[snap.defaultChunkStrategy]; !ok {
			return nil, fmt.Errorf("chunk_settings: default_strategy %q is not defined in strategies", snap.defaultChunkStrategy)
		}
	}

	var classCfg classificationConfigFile
	if err := readJSON(dir, "classification_patterns.json", &classCfg); err != nil {
		return nil, err
	}
	for name, d := range classCfg.ManufacturerPatterns {
		cd, err := compileManufacturerDetection(name, d)
		if err != nil {
			return nil, err
		}
		snap.manufacturerDetection[name] = cd
	}
	for name, d := range classCfg.DocumentTypePatterns {
		cd, err := compileDocumentTypeDetection(name, d)
		if err != nil {
			return nil, err
		}
		snap.documentTypeDetection[name] = cd
	}

	return snap, nil
}

func compileVersionEntry(e VersionPatternEntry) (CompiledVersionEntry, error) {
	re, err := regexp.Compile("(?i)" + e.Pattern)
	if err != nil {
		return CompiledVersionEntry{}, fmt.Errorf("pattern %q: %w", e.Pattern, err)
	}
	return CompiledVersionEntry{Regex: re, OutputFormat: e.OutputFormat}, nil
}

func readJSON(dir, name string, out any) error {
	path := filepath.Join(dir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("patterns: reading %s: %w", path, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("patterns: parsing %s: %w", path, err)
	}
	return nil
}

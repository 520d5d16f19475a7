// Package chunker splits extracted document text into overlapping,
// size-bounded, structure-aware chunks. Word-window fallback splitting is
// delegated to textsplitters; section/case boundary detection and page
// attribution are specific to the strategies named in the pattern config.
package chunker

import (
	"crypto/sha1"
	"encoding/hex"
	"regexp"
	"strconv"
	"strings"

	"docingest/internal/patterns"
	"docingest/internal/textsplitters"
)

// TextChunk is one unit of chunked text ready for embedding, per §4.10.
type TextChunk struct {
	Text         string
	PageStart    int
	PageEnd      int
	ChunkIndex   int
	SectionTitle string
	TokenCount   int
	Fingerprint  string
}

var pageDelimiter = regexp.MustCompile(`--- PAGE (\d+) ---`)

// page is one page's text, already stripped of its delimiter line.
type page struct {
	number int
	text   string
}

func splitPages(text string) []page {
	locs := pageDelimiter.FindAllStringSubmatchIndex(text, -1)
	if len(locs) == 0 {
		return []page{{number: 1, text: text}}
	}
	pages := make([]page, 0, len(locs))
	for i, loc := range locs {
		numStr := text[loc[2]:loc[3]]
		num, _ := strconv.Atoi(numStr)
		start := loc[1]
		end := len(text)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		pages = append(pages, page{number: num, text: strings.TrimSpace(text[start:end])})
	}
	return pages
}

var sectionHeadRe = regexp.MustCompile(`(?m)^\s*\d+\.\s+[A-Z][^\n]*`)
var caseHeadRe = regexp.MustCompile(`(?m)^\s*Case\d+:[^\n]*`)

// Chunk splits documentText (already page-delimited by the PDF reader) into
// chunks using the strategy selected by the pattern snapshot for the given
// document type and manufacturer.
func Chunk(documentText, documentType, manufacturer string, snap *patterns.Snapshot) []TextChunk {
	strategy := snap.ChunkSettings(documentType, manufacturer)
	pages := splitPages(documentText)

	var raw []rawChunk
	switch strategy.Strategy {
	case "service_manual":
		raw = chunkByHeading(pages, sectionHeadRe, strategy)
	case "bulletin":
		raw = chunkByHeading(pages, caseHeadRe, strategy)
	case "contextual_chunking":
		raw = chunkContextual(pages, strategy)
	default: // generic
		raw = chunkGeneric(pages, strategy)
	}

	return assignIndices(raw)
}

type rawChunk struct {
	text         string
	pageStart    int
	pageEnd      int
	sectionTitle string
}

func wordWindowSplit(text string, size, overlap int) []string {
	if size <= 0 {
		size = 500
	}
	splitter, err := textsplitters.NewFromConfig(textsplitters.Config{
		Kind: textsplitters.KindFixed,
		Fixed: textsplitters.FixedConfig{
			Unit:    textsplitters.UnitTokens,
			Size:    size,
			Overlap: overlap,
		},
	})
	if err != nil {
		return []string{text}
	}
	return splitter.Split(text)
}

// chunkByHeading splits each page on a heading regex (section numbers or
// "CaseN:" markers); any section exceeding chunk_size words is further
// word-window split with overlap, per §4.10.
func chunkByHeading(pages []page, headRe *regexp.Regexp, strat patternsChunkStrategy) []rawChunk {
	var out []rawChunk
	for _, p := range pages {
		locs := headRe.FindAllStringIndex(p.text, -1)
		if len(locs) == 0 {
			out = append(out, splitOversizeSection(p.text, "", p.number, p.number, strat)...)
			continue
		}
		for i, loc := range locs {
			start := loc[0]
			end := len(p.text)
			if i+1 < len(locs) {
				end = locs[i+1][0]
			}
			section := strings.TrimSpace(p.text[start:end])
			title := strings.TrimSpace(p.text[loc[0]:loc[1]])
			out = append(out, splitOversizeSection(section, title, p.number, p.number, strat)...)
		}
	}
	return out
}

func splitOversizeSection(text, title string, pageStart, pageEnd int, strat patternsChunkStrategy) []rawChunk {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	words := strings.Fields(text)
	if len(words) <= strat.ChunkSize {
		return []rawChunk{{text: text, pageStart: pageStart, pageEnd: pageEnd, sectionTitle: title}}
	}
	var out []rawChunk
	for _, part := range wordWindowSplit(text, strat.ChunkSize, strat.ChunkOverlap) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, rawChunk{text: part, pageStart: pageStart, pageEnd: pageEnd, sectionTitle: title})
	}
	return out
}

// chunkContextual splits by page using the hybrid paragraph/sentence
// boundary splitter: paragraphs are grouped up to chunk_size tokens, and any
// paragraph that alone exceeds twice the target is broken down by sentence, per
// §4.10's "contextual_chunking" strategy.
func chunkContextual(pages []page, strat patternsChunkStrategy) []rawChunk {
	size := strat.ChunkSize
	if size <= 0 {
		size = 500
	}
	splitter, err := textsplitters.NewFromConfig(textsplitters.Config{
		Kind: textsplitters.KindHybrid,
		Boundary: textsplitters.BoundaryConfig{
			Unit: textsplitters.UnitTokens,
			Size: size,
		},
	})
	if err != nil {
		return chunkGeneric(pages, strat)
	}

	var out []rawChunk
	for _, p := range pages {
		for _, part := range splitter.Split(p.text) {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			out = append(out, rawChunk{text: part, pageStart: p.number, pageEnd: p.number})
		}
	}
	return out
}

// chunkGeneric is a flat word-window split over each page's text.
func chunkGeneric(pages []page, strat patternsChunkStrategy) []rawChunk {
	var out []rawChunk
	for _, p := range pages {
		for _, part := range wordWindowSplit(p.text, strat.ChunkSize, strat.ChunkOverlap) {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			out = append(out, rawChunk{text: part, pageStart: p.number, pageEnd: p.number})
		}
	}
	return out
}

// assignIndices drops empty chunks, deduplicates exact neighbor repeats
// caused by overlap windows, and assigns a dense 0-based chunk_index.
func assignIndices(raw []rawChunk) []TextChunk {
	out := make([]TextChunk, 0, len(raw))
	var prevText string
	for _, r := range raw {
		text := strings.TrimSpace(r.text)
		if text == "" || text == prevText {
			continue
		}
		prevText = text
		sum := sha1.Sum([]byte(text))
		out = append(out, TextChunk{
			Text:         text,
			PageStart:    r.pageStart,
			PageEnd:      r.pageEnd,
			ChunkIndex:   len(out),
			SectionTitle: r.sectionTitle,
			TokenCount:   len(strings.Fields(text)),
			Fingerprint:  hex.EncodeToString(sum[:]),
		})
	}
	return out
}

// patternsChunkStrategy is a local alias to keep this file readable without
// importing the patterns package name twice per signature.
type patternsChunkStrategy = patterns.ChunkStrategy

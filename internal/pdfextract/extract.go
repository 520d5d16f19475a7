// Package pdfextract pulls page text and embedded raster images out of PDF
// bytes. Text recovery works directly off pdfcpu's raw content streams since
// pdfcpu itself does not decode glyph runs into semantic text; image recovery
// uses pdfcpu's image extraction directly.
package pdfextract

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Image is one raster image recovered from the document, in document order.
type Image struct {
	Page       int
	Index      int
	Bytes      []byte
	Width      int
	Height     int
	Colorspace string
}

// Result is the outcome of extracting a PDF's content, per §4.2.
type Result struct {
	Text     string
	Pages    int
	Images   []Image
	Warnings []string
}

// PageDelimiter is inserted before each page's text so downstream chunkers
// can recover page boundaries.
const PageDelimiter = "--- PAGE %d ---"

var showTextOp = regexp.MustCompile(`\(((?:[^()\\]|\\.)*)\)\s*Tj|\[((?:[^\[\]]|\\.)*)\]\s*TJ`)
var parenRun = regexp.MustCompile(`\(((?:[^()\\]|\\.)*)\)`)

// Extract reads a PDF from memory and returns concatenated page text plus
// embedded images. A single page's extraction failure does not abort the
// whole document; its text becomes empty and a warning is recorded.
func Extract(data []byte) (Result, error) {
	if len(data) == 0 {
		return Result{}, fmt.Errorf("pdfextract: empty input")
	}

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	rs := bytes.NewReader(data)
	pageCount, err := api.PageCount(rs, conf)
	if err != nil {
		return Result{}, fmt.Errorf("pdfextract: reading page count: %w", err)
	}

	res := Result{Pages: pageCount}

	tmpDir, err := os.MkdirTemp("", "pdfextract-*")
	if err != nil {
		return Result{}, fmt.Errorf("pdfextract: creating scratch dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	var sb strings.Builder
	for page := 1; page <= pageCount; page++ {
		sb.WriteString(fmt.Sprintf(PageDelimiter+"\n", page))

		text, err := extractPageText(data, tmpDir, page, conf)
		if err != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("page %d: text extraction failed: %v", page, err))
			continue
		}
		sb.WriteString(text)
		sb.WriteString("\n")
	}
	res.Text = sb.String()

	images, warnings := extractImages(data, tmpDir, conf)
	res.Images = images
	res.Warnings = append(res.Warnings, warnings...)

	return res, nil
}

func extractPageText(data []byte, tmpDir string, page int, conf *model.Configuration) (string, error) {
	rs := bytes.NewReader(data)
	outDir := filepath.Join(tmpDir, fmt.Sprintf("content-%d", page))
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", err
	}
	sel := []string{strconv.Itoa(page)}
	if err := api.ExtractContent(rs, outDir, "page", sel, conf); err != nil {
		return "", err
	}
	entries, err := os.ReadDir(outDir)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	for _, e := range entries {
		raw, err := os.ReadFile(filepath.Join(outDir, e.Name()))
		if err != nil {
			continue
		}
		sb.WriteString(decodeShowTextOperators(raw))
	}
	return sb.String(), nil
}

// decodeShowTextOperators scans a raw PDF content stream for Tj/TJ show-text
// operators and concatenates the literal string operands. It does not handle
// encoding maps (CID fonts), so non-Latin text may come through garbled; that
// is an accepted limitation of content-stream scraping.
func decodeShowTextOperators(content []byte) string {
	var sb strings.Builder
	for _, m := range showTextOp.FindAllSubmatch(content, -1) {
		if len(m[1]) > 0 {
			sb.Write(unescapePDFString(m[1]))
			sb.WriteByte(' ')
			continue
		}
		if len(m[2]) > 0 {
			for _, run := range parenRun.FindAllSubmatch(m[2], -1) {
				sb.Write(unescapePDFString(run[1]))
			}
			sb.WriteByte(' ')
		}
	}
	return sb.String()
}

func unescapePDFString(b []byte) []byte {
	out := make([]byte, 0, len(b))
	for i := 0; i < len(b); i++ {
		if b[i] == '\\' && i+1 < len(b) {
			switch b[i+1] {
			case 'n':
				out = append(out, '\n')
			case 'r':
				out = append(out, '\r')
			case 't':
				out = append(out, '\t')
			case '(', ')', '\\':
				out = append(out, b[i+1])
			default:
				out = append(out, b[i+1])
			}
			i++
			continue
		}
		out = append(out, b[i])
	}
	return out
}

var extractedImageName = regexp.MustCompile(`_(\d+)_(\d+)\.\w+$`)

func extractImages(data []byte, tmpDir string, conf *model.Configuration) ([]Image, []string) {
	outDir := filepath.Join(tmpDir, "images")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, []string{fmt.Sprintf("image extraction: %v", err)}
	}
	rs := bytes.NewReader(data)
	if err := api.ExtractImages(rs, outDir, "img", nil, conf); err != nil {
		return nil, []string{fmt.Sprintf("image extraction: %v", err)}
	}

	entries, err := os.ReadDir(outDir)
	if err != nil {
		return nil, nil
	}
	type found struct {
		page, index int
		path        string
	}
	var all []found
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := extractedImageName.FindStringSubmatch(e.Name())
		page, index := 0, 0
		if len(m) == 3 {
			page, _ = strconv.Atoi(m[1])
			index, _ = strconv.Atoi(m[2])
		}
		all = append(all, found{page: page, index: index, path: filepath.Join(outDir, e.Name())})
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].page != all[j].page {
			return all[i].page < all[j].page
		}
		return all[i].index < all[j].index
	})

	var warnings []string
	images := make([]Image, 0, len(all))
	for _, f := range all {
		b, err := os.ReadFile(f.path)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("reading extracted image %s: %v", f.path, err))
			continue
		}
		w, h, cs := sniffImage(b, filepath.Ext(f.path))
		images = append(images, Image{
			Page:       f.page,
			Index:      f.index,
			Bytes:      b,
			Width:      w,
			Height:     h,
			Colorspace: cs,
		})
	}
	return images, warnings
}

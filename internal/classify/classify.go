// Package classify implements hybrid filename+content document
// classification: document type, manufacturer, series, and a confidence
// score, driven entirely by the pattern configuration (§4.6).
package classify

import (
	"math"
	"regexp"
	"strings"

	"docingest/internal/models"
	"docingest/internal/patterns"
	"docingest/internal/version"
)

// Result is the classifier's output, per §4.6.
type Result struct {
	DocumentType           string
	DocumentTypeConfidence float64
	Manufacturer           string
	ManufacturerConfidence float64
	Series                 SeriesInfo
	ModelSeries            []string
	Models                 []string
	Version                string
	VersionConfidence      float64
	HybridConfidence       float64
}

type pass struct {
	manufacturer   string
	manuConfidence float64
	docType        string
	docConfidence  float64
}

// Classify runs the filename pass, the content pass (if text is non-empty),
// and the hybrid merge described in §4.6 steps 1-4.
func Classify(filename, text string, snap *patterns.Snapshot) Result {
	fp := filenamePass(filename, snap)
	var cp pass
	if strings.TrimSpace(text) != "" {
		cp = contentPass(text, snap)
	}

	manufacturer, manuConf := mergeAxis(fp.manufacturer, fp.manuConfidence, cp.manufacturer, cp.manuConfidence)
	docType, docConf := mergeAxis(fp.docType, fp.docConfidence, cp.docType, cp.docConfidence)

	modelResult := models.Extract(filename+"\n"+text, manufacturer, snap)
	modelNames := make([]string, 0, len(modelResult.Models))
	for _, m := range modelResult.Models {
		modelNames = append(modelNames, m.Model)
	}

	ver, verConf := version.Extract(text, manufacturer, snap)
	if ver == "" {
		ver, verConf = version.Extract(filename, manufacturer, snap)
	}

	base := (manuConf + docConf) / 2
	agreeManu := fp.manufacturer != "" && fp.manufacturer == cp.manufacturer
	agreeDoc := fp.docType != "" && fp.docType == cp.docType
	switch {
	case agreeManu && agreeDoc:
		base *= 1.2
	case agreeManu || agreeDoc:
		base *= 1.1
	}
	if len(modelNames) > 0 {
		base *= 1.1
	}
	if ver != "" {
		base *= 1.1
	}
	if base > 1.0 {
		base = 1.0
	}

	return Result{
		DocumentType:           docType,
		DocumentTypeConfidence: docConf,
		Manufacturer:           manufacturer,
		ManufacturerConfidence: manuConf,
		Series:                 DetectSeries(filename, text, manufacturer),
		ModelSeries:            modelResult.Series,
		Models:                 modelNames,
		Version:                ver,
		VersionConfidence:      verConf,
		HybridConfidence:       base,
	}
}

// filenamePass implements §4.6 step 1.
func filenamePass(filename string, snap *patterns.Snapshot) pass {
	lower := strings.ToLower(filename)
	var p pass

	for manu, det := range snap.ManufacturerDetection() {
		for _, re := range det.FilenamePatterns {
			if re.MatchString(lower) {
				p.manufacturer = manu
				p.manuConfidence = 0.9
				break
			}
		}
		if p.manufacturer != "" {
			break
		}
	}

	for docType, det := range snap.DocumentTypeDetection() {
		for _, kw := range det.FilenameKeywords {
			if strings.Contains(lower, kw) {
				p.docType = docType
				p.docConfidence = 0.8
				break
			}
		}
		if p.docType != "" {
			break
		}
	}

	return p
}

// contentPass implements §4.6 step 2.
func contentPass(text string, snap *patterns.Snapshot) pass {
	var p pass

	bestManu, bestScore := "", 0.0
	for manu, det := range snap.ManufacturerDetection() {
		score := 0.3*countMatches(det.ContentPatterns, text) + 0.5*countMatches(det.ModelSeries, text)
		if score > bestScore {
			bestScore, bestManu = score, manu
		}
	}
	if bestScore > 0 {
		p.manufacturer = bestManu
		p.manuConfidence = math.Min(bestScore/5.0, 1.0)
	}

	bestDoc, bestDocScore := "", 0.0
	lower := strings.ToLower(text)
	for docType, det := range snap.DocumentTypeDetection() {
		kwScore := 0.0
		for _, kw := range det.ContentKeywords {
			kwScore += float64(strings.Count(lower, kw))
		}
		score := (0.1*kwScore + 0.2*countMatches(det.ContentPatterns, text)) * det.ConfidenceWeight
		if score > bestDocScore {
			bestDocScore, bestDoc = score, docType
		}
	}
	if bestDocScore > 0 {
		p.docType = bestDoc
		p.docConfidence = math.Min(bestDocScore/10.0, 1.0)
	}

	return p
}

func countMatches(patterns []*regexp.Regexp, text string) float64 {
	total := 0.0
	for _, re := range patterns {
		total += float64(len(re.FindAllString(text, -1)))
	}
	return total
}

// mergeAxis implements §4.6 step 3 for one classification axis: prefer the
// filename result if confident (>=0.8), otherwise prefer content if it fired,
// else fall back to filename.
func mergeAxis(filenameVal string, filenameConf float64, contentVal string, contentConf float64) (string, float64) {
	if filenameConf >= 0.8 {
		return filenameVal, filenameConf
	}
	if contentConf > 0 {
		return contentVal, contentConf
	}
	return filenameVal, filenameConf
}

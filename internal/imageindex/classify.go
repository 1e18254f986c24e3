package imageindex

import (
	"strings"

	"github.com/manualkit/manualkit/internal/model"
)

// Classification keywords are checked in order; the first matching type wins.
var typeKeywords = []struct {
	imageType model.ImageType
	keywords  []string
}{
	{model.ImageTypeTechnicalDiagram, []string{"diagram", "schematic", "wiring", "circuit"}},
	{model.ImageTypePhotograph, []string{"photo", "photograph", "picture"}},
	{model.ImageTypeTableChart, []string{"table", "chart", "specification"}},
	{model.ImageTypeSafetyWarning, []string{"warning", "caution", "danger"}},
	{model.ImageTypePartsDiagram, []string{"parts", "exploded", "assembly"}},
	{model.ImageTypeProcedureIllustration, []string{"procedure", "step", "instruction"}},
}

var advancedComplexity = []string{
	"electrical", "wiring", "circuit", "ecu", "injection",
	"timing", "valve", "piston", "crankshaft", "transmission",
}

var intermediateComplexity = []string{
	"maintenance", "adjustment", "replacement", "installation",
	"brake", "suspension", "chain", "filter",
}

// ClassifyType derives an image type from its description and OCR text.
func ClassifyType(description, ocrText string) model.ImageType {
	lower := strings.ToLower(description + " " + ocrText)
	for _, entry := range typeKeywords {
		for _, kw := range entry.keywords {
			if strings.Contains(lower, kw) {
				return entry.imageType
			}
		}
	}
	return model.ImageTypeGeneral
}

// AssessComplexity grades image content 1-3: user-level, mechanic-level,
// specialist-level.
func AssessComplexity(description, ocrText string) int {
	lower := strings.ToLower(description + " " + ocrText)
	advanced := countContained(lower, advancedComplexity)
	intermediate := countContained(lower, intermediateComplexity)
	switch {
	case advanced >= 2:
		return 3
	case intermediate >= 2 || advanced >= 1:
		return 2
	default:
		return 1
	}
}

func countContained(haystack string, keywords []string) int {
	count := 0
	for _, kw := range keywords {
		if strings.Contains(haystack, kw) {
			count++
		}
	}
	return count
}

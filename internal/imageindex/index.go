// Package imageindex ranks extracted manual images against a query by lexical
// overlap with their OCR text and description. Images live outside the text
// vector space; correlation with text results happens by (source, page), never
// by joint embedding.
package imageindex

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/manualkit/manualkit/internal/model"
	appErr "github.com/manualkit/manualkit/internal/pkg/errors"
)

// RecordLister is the slice of the image repository the index needs.
type RecordLister interface {
	ListAll(ctx context.Context) ([]model.ImageRecord, error)
}

type Index struct {
	records      RecordLister
	preferSimple bool
}

// New builds an index over the given record source. preferSimple picks the
// tie-break between equally relevant images: simpler visuals first when true.
func New(records RecordLister, preferSimple bool) *Index {
	return &Index{records: records, preferSimple: preferSimple}
}

// Search ranks records by the number of query tokens found in their OCR text
// and description, descending. Ties go to lower complexity (or higher, when
// configured), then id ascending for determinism. Records with zero overlap
// are excluded. Failures are wrapped as an image index error so callers can
// degrade to a text-only response.
func (i *Index) Search(ctx context.Context, query string, limit int) ([]model.ScoredImage, error) {
	if limit < 1 {
		return nil, fmt.Errorf("%w: max_images must be >= 1, got %d", appErr.ErrInvalidParams, limit)
	}
	records, err := i.records.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: list records: %v", appErr.ErrImageIndex, err)
	}
	tokens := Tokenize(query)
	if len(tokens) == 0 {
		return []model.ScoredImage{}, nil
	}
	matches := make([]model.ScoredImage, 0, len(records))
	for _, rec := range records {
		overlap := keywordOverlap(tokens, rec.OCRText+" "+rec.Description)
		if overlap == 0 {
			continue
		}
		matches = append(matches, model.ScoredImage{Image: rec, Relevance: overlap})
	}
	sort.Slice(matches, func(a, b int) bool {
		if matches[a].Relevance != matches[b].Relevance {
			return matches[a].Relevance > matches[b].Relevance
		}
		if matches[a].Image.ComplexityLevel != matches[b].Image.ComplexityLevel {
			if i.preferSimple {
				return matches[a].Image.ComplexityLevel < matches[b].Image.ComplexityLevel
			}
			return matches[a].Image.ComplexityLevel > matches[b].Image.ComplexityLevel
		}
		return matches[a].Image.ID < matches[b].Image.ID
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

func Tokenize(text string) []string {
	fields := strings.Fields(strings.ToLower(text))
	tokens := make([]string, 0, len(fields))
	seen := make(map[string]bool, len(fields))
	for _, tok := range fields {
		tok = strings.Trim(tok, ".,;:!?()[]\"'")
		if len(tok) < 3 || seen[tok] {
			continue
		}
		seen[tok] = true
		tokens = append(tokens, tok)
	}
	return tokens
}

func keywordOverlap(tokens []string, haystack string) int {
	lower := strings.ToLower(haystack)
	count := 0
	for _, tok := range tokens {
		if strings.Contains(lower, tok) {
			count++
		}
	}
	return count
}

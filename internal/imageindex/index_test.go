package imageindex

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/manualkit/manualkit/internal/model"
	appErr "github.com/manualkit/manualkit/internal/pkg/errors"
)

type fakeLister struct {
	records []model.ImageRecord
	err     error
}

func (f *fakeLister) ListAll(ctx context.Context) ([]model.ImageRecord, error) {
	return f.records, f.err
}

func record(id, ocr, desc string, complexity int) model.ImageRecord {
	return model.ImageRecord{
		ID:              id,
		Source:          "manual.pdf",
		OCRText:         ocr,
		Description:     desc,
		ImageType:       model.ImageTypeGeneral,
		ComplexityLevel: complexity,
	}
}

func TestSearch_RanksByKeywordOverlap(t *testing.T) {
	idx := New(&fakeLister{records: []model.ImageRecord{
		record("partial", "chain tension", "", 1),
		record("full", "chain tension adjustment rear axle", "", 1),
		record("miss", "fuel pump relay", "", 1),
	}}, true)

	got, err := idx.Search(context.Background(), "chain tension rear", 5)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "full", got[0].Image.ID)
	require.Equal(t, 3, got[0].Relevance)
	require.Equal(t, "partial", got[1].Image.ID)
}

func TestSearch_TieBreaksOnComplexityThenID(t *testing.T) {
	records := []model.ImageRecord{
		record("b-complex", "oil drain plug", "", 3),
		record("a-simple", "oil drain plug", "", 1),
		record("a-simple2", "oil drain plug", "", 1),
	}

	simpleFirst := New(&fakeLister{records: records}, true)
	got, err := simpleFirst.Search(context.Background(), "oil drain plug", 5)
	require.NoError(t, err)
	require.Equal(t, "a-simple", got[0].Image.ID)
	require.Equal(t, "a-simple2", got[1].Image.ID)
	require.Equal(t, "b-complex", got[2].Image.ID)

	complexFirst := New(&fakeLister{records: records}, false)
	got, err = complexFirst.Search(context.Background(), "oil drain plug", 5)
	require.NoError(t, err)
	require.Equal(t, "b-complex", got[0].Image.ID)
}

func TestSearch_LimitAndValidation(t *testing.T) {
	idx := New(&fakeLister{records: []model.ImageRecord{
		record("a", "brake lever", "", 1),
		record("b", "brake pedal", "", 1),
		record("c", "brake fluid", "", 1),
	}}, true)

	got, err := idx.Search(context.Background(), "brake", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)

	_, err = idx.Search(context.Background(), "brake", 0)
	require.ErrorIs(t, err, appErr.ErrInvalidParams)
}

func TestSearch_ListFailureIsImageIndexError(t *testing.T) {
	idx := New(&fakeLister{err: errors.New("connection refused")}, true)
	_, err := idx.Search(context.Background(), "brake", 3)
	require.ErrorIs(t, err, appErr.ErrImageIndex)
}

func TestSearch_ShortTokensIgnored(t *testing.T) {
	idx := New(&fakeLister{records: []model.ImageRecord{
		record("a", "an of to it", "", 1),
	}}, true)
	got, err := idx.Search(context.Background(), "an of to", 3)
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestTokenize(t *testing.T) {
	require.Equal(t, []string{"chain", "tension", "rear"}, Tokenize("Chain tension, rear chain!"))
	require.Empty(t, Tokenize("a an to"))
}

func TestClassifyType(t *testing.T) {
	require.Equal(t, model.ImageTypeTechnicalDiagram, ClassifyType("wiring layout", ""))
	require.Equal(t, model.ImageTypeSafetyWarning, ClassifyType("", "WARNING hot surface"))
	require.Equal(t, model.ImageTypePartsDiagram, ClassifyType("exploded view of the clutch", ""))
	require.Equal(t, model.ImageTypeTableChart, ClassifyType("torque specification", ""))
	require.Equal(t, model.ImageTypeGeneral, ClassifyType("front view of the bike", ""))
}

func TestAssessComplexity(t *testing.T) {
	require.Equal(t, 3, AssessComplexity("valve timing adjustment", ""))
	require.Equal(t, 2, AssessComplexity("brake pad replacement", ""))
	require.Equal(t, 2, AssessComplexity("ecu connector", ""))
	require.Equal(t, 1, AssessComplexity("side stand", ""))
}

package search

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/manualkit/manualkit/internal/model"
)

func scored(id, content string, score float64) model.ScoredChunk {
	return model.ScoredChunk{Chunk: model.Chunk{ID: id, Content: content}, Score: score}
}

func TestDedupe_DropsNearDuplicateOfHigherRankedChunk(t *testing.T) {
	chunks := []model.ScoredChunk{
		scored("a", "check the oil level with the engine warm and the bike upright", 0.95),
		scored("b", "check the oil level with the engine warm and the bike upright.", 0.90),
		scored("c", "adjust the chain tension using the rear axle blocks", 0.85),
	}
	got := Dedupe(chunks, 0.9)
	require.Equal(t, []string{"a", "c"}, ids(got))
}

func TestDedupe_KeepsDistinctContent(t *testing.T) {
	chunks := []model.ScoredChunk{
		scored("a", "valve clearance intake 0.10 to 0.15 mm", 0.9),
		scored("b", "spark plug gap 0.8 mm replace every 10000 km", 0.8),
	}
	got := Dedupe(chunks, 0.9)
	require.Len(t, got, 2)
}

func TestDedupe_ShortChunkContainedInLongerOne(t *testing.T) {
	chunks := []model.ScoredChunk{
		scored("long", "drain the coolant open the bleed screw refill slowly and check for air pockets", 0.9),
		scored("short", "drain the coolant open the bleed screw", 0.8),
	}
	got := Dedupe(chunks, 0.9)
	require.Equal(t, []string{"long"}, ids(got))
}

func TestDedupe_Idempotent(t *testing.T) {
	chunks := []model.ScoredChunk{
		scored("a", "check the oil level with the engine warm", 0.95),
		scored("b", "check the oil level with the engine warm and upright", 0.90),
		scored("c", "replace the air filter every 30 hours of offroad use", 0.85),
	}
	once := Dedupe(chunks, 0.9)
	twice := Dedupe(once, 0.9)
	require.Equal(t, ids(once), ids(twice))
}

func TestDedupe_PreservesRankOrder(t *testing.T) {
	chunks := []model.ScoredChunk{
		scored("first", "alpha beta gamma", 0.9),
		scored("second", "delta epsilon zeta", 0.8),
		scored("third", "eta theta iota", 0.7),
	}
	got := Dedupe(chunks, 0.9)
	require.Equal(t, []string{"first", "second", "third"}, ids(got))
}

func TestDedupe_SmallInputsPassThrough(t *testing.T) {
	require.Empty(t, Dedupe(nil, 0.9))
	single := []model.ScoredChunk{scored("a", "only one", 0.9)}
	require.Equal(t, single, Dedupe(single, 0.9))
}

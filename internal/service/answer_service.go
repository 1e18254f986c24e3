package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/manualkit/manualkit/internal/ai"
	"github.com/manualkit/manualkit/internal/model"
	appErr "github.com/manualkit/manualkit/internal/pkg/errors"
	"github.com/manualkit/manualkit/internal/safety"
)

const noResultsAnswer = "No relevant information found."

const fallbackDelimiter = "\n\n---\n\n"

var skillInstructions = map[string]string{
	"beginner":     "Use simple, clear language. Explain technical terms. Provide step-by-step instructions.",
	"intermediate": "Provide detailed technical information. Include specifications and procedures.",
	"expert":       "Focus on technical details and advanced procedures. Assume technical knowledge.",
}

type AnswerOptions struct {
	Retrieval  RetrievalOptions
	SkillLevel string
}

type AnswerService struct {
	retriever      *RetrievalService
	generator      ai.IGenerator
	classifier     *safety.Classifier
	genTimeout     time.Duration
	maxAnswerChars int
	cache          *expirable.LRU[string, *model.StructuredResponse]
}

func NewAnswerService(retriever *RetrievalService, generator ai.IGenerator, classifier *safety.Classifier,
	genTimeout time.Duration, maxAnswerChars int, cacheLen int, cacheTTL time.Duration) *AnswerService {
	var cache *expirable.LRU[string, *model.StructuredResponse]
	if cacheLen > 0 {
		cache = expirable.NewLRU[string, *model.StructuredResponse](cacheLen, nil, cacheTTL)
	}
	return &AnswerService{
		retriever:      retriever,
		generator:      generator,
		classifier:     classifier,
		genTimeout:     genTimeout,
		maxAnswerChars: maxAnswerChars,
		cache:          cache,
	}
}

// Answer retrieves supporting chunks and consolidates them into a structured
// response. Generation failures never surface to the caller; the deterministic
// fallback produces the same response shape.
func (s *AnswerService) Answer(ctx context.Context, query string, opts AnswerOptions) (*model.StructuredResponse, error) {
	logger := logutil.GetLogger(ctx).With(zap.String("query", query))
	if opts.SkillLevel == "" {
		opts.SkillLevel = "intermediate"
	}
	// resolve defaults before keying so an explicit zero threshold is cached
	// apart from the configured default
	opts.Retrieval = s.retriever.fill(opts.Retrieval)

	key := s.answerCacheKey(query, opts)
	if s.cache != nil {
		if cached, ok := s.cache.Get(key); ok {
			logger.Debug("answer cache hit")
			return cached, nil
		}
	}

	result, err := s.retriever.Retrieve(ctx, query, opts.Retrieval)
	if err != nil {
		return nil, err
	}

	resp := &model.StructuredResponse{
		Query:       query,
		ChunksFound: len(result.Chunks),
		Sources:     sourceRefs(result.Chunks),
	}

	answer, fallback := s.composeAnswer(ctx, logger, query, result, opts.SkillLevel)
	resp.FallbackUsed = fallback

	level := s.classifier.ResponseLevel(answer, result.Chunks)
	resp.SafetyLevel = level
	if banner := s.classifier.Banner(level); banner != "" {
		answer = banner + "\n\n" + answer
	}
	resp.Answer = answer

	// image attachment never blocks or fails the text path
	resp.Images = imageSummaries(result.Images)

	// fallback output is not cached so a recovered provider takes over on
	// the next identical query
	if s.cache != nil && !fallback {
		s.cache.Add(key, resp)
	}
	return resp, nil
}

func (s *AnswerService) composeAnswer(ctx context.Context, logger *zap.Logger, query string, result *model.QueryResult, skillLevel string) (string, bool) {
	if len(result.Chunks) == 0 {
		return noResultsAnswer, true
	}
	if s.generator == nil {
		return s.composeFallback(result.Chunks), true
	}
	genCtx, cancel := context.WithTimeout(ctx, s.genTimeout)
	defer cancel()
	answer, err := s.generator.Generate(genCtx, buildPrompt(query, result.Chunks, skillLevel))
	if err != nil {
		err = fmt.Errorf("%w: %v", appErr.ErrGenerationUnavailable, err)
		logger.Warn("generation failed, falling back to extractive answer", zap.Error(err))
		return s.composeFallback(result.Chunks), true
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return s.composeFallback(result.Chunks), true
	}
	return answer, false
}

func buildPrompt(query string, chunks []model.ScoredChunk, skillLevel string) string {
	instruction, ok := skillInstructions[skillLevel]
	if !ok {
		instruction = skillInstructions["intermediate"]
	}
	var context strings.Builder
	for i, chunk := range chunks {
		if i > 0 {
			context.WriteString("\n\n")
		}
		fmt.Fprintf(&context, "Source: %s (Page %d)\n%s", chunk.Chunk.Source, chunk.Chunk.PageNumber, chunk.Chunk.Content)
	}
	return fmt.Sprintf(`You are a technical expert on the equipment covered by the supplied manuals.
Answer the following question for a %s user.
Use ONLY the provided context. If you cannot answer from the context, say so.
%s
If the information involves safety warnings, emphasize them prominently.

Context:
%s

Question: %s

Answer:`, skillLevel, instruction, context.String(), query)
}

// composeFallback renders ranked chunks verbatim under source headers. Pure
// and deterministic: the same chunks always produce the same text.
func (s *AnswerService) composeFallback(chunks []model.ScoredChunk) string {
	if len(chunks) == 0 {
		return noResultsAnswer
	}
	parts := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		parts = append(parts, fmt.Sprintf("Source %d: %s (Page %d)\n%s",
			i+1, chunk.Chunk.Source, chunk.Chunk.PageNumber, chunk.Chunk.Content))
	}
	return truncateAtSentence(strings.Join(parts, fallbackDelimiter), s.maxAnswerChars)
}

// truncateAtSentence cuts text to at most limit runes, backing up to the last
// sentence end, or the last word boundary when the prefix has no sentence end,
// so the output never stops mid-word.
func truncateAtSentence(text string, limit int) string {
	if limit <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	cut := runes[:limit]
	if idx := lastIndexRune(cut, '.'); idx != -1 {
		cut = cut[:idx+1]
	} else if idx := lastSpace(cut); idx > 0 {
		cut = cut[:idx]
	}
	return strings.TrimSpace(string(cut))
}

func lastSpace(runes []rune) int {
	for i := len(runes) - 1; i >= 0; i-- {
		if unicode.IsSpace(runes[i]) {
			return i
		}
	}
	return -1
}

func sourceRefs(chunks []model.ScoredChunk) []model.SourceRef {
	refs := make([]model.SourceRef, 0, len(chunks))
	for _, chunk := range chunks {
		refs = append(refs, model.SourceRef{
			Source:      chunk.Chunk.Source,
			Page:        chunk.Chunk.PageNumber,
			Similarity:  chunk.Score,
			SafetyLevel: chunk.Chunk.SafetyLevel,
		})
	}
	return refs
}

const ocrExcerptLimit = 120

func imageSummaries(images []model.ScoredImage) []model.ImageSummary {
	if len(images) == 0 {
		return nil
	}
	summaries := make([]model.ImageSummary, 0, len(images))
	for _, img := range images {
		excerpt := img.Image.OCRText
		if runes := []rune(excerpt); len(runes) > ocrExcerptLimit {
			excerpt = string(runes[:ocrExcerptLimit])
		}
		summaries = append(summaries, model.ImageSummary{
			Source:          img.Image.Source,
			Page:            img.Image.PageNumber,
			ImageType:       img.Image.ImageType,
			OCRExcerpt:      excerpt,
			ComplexityLevel: img.Image.ComplexityLevel,
			StorageRef:      img.Image.StorageRef,
		})
	}
	return summaries
}

func (s *AnswerService) answerCacheKey(query string, opts AnswerOptions) string {
	normalized := strings.ToLower(strings.Join(strings.Fields(query), " "))
	raw := fmt.Sprintf("%s|%d|%.4f|%d|%s", normalized,
		opts.Retrieval.TopK, opts.Retrieval.Threshold, opts.Retrieval.MaxImages, opts.SkillLevel)
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

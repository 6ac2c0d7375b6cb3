package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/docport/docport/internal/ai"
	appErr "github.com/docport/docport/internal/pkg/errors"
)

const summaryPrompt = "Summarize this document concisely. Include key points.\n\n"

const truncationMarker = "..."

type AIService struct {
	provider      ai.IProvider
	model         string
	maxInputChars int
	timeout       time.Duration
	cache         *expirable.LRU[string, string]
}

func NewAIService(provider ai.IProvider, model string, maxInputChars int, timeout time.Duration) *AIService {
	cache := expirable.NewLRU[string, string](1000, nil, 2*time.Hour)
	return &AIService{
		provider:      provider,
		model:         model,
		maxInputChars: maxInputChars,
		timeout:       timeout,
		cache:         cache,
	}
}

func (s *AIService) Model() string {
	return s.model
}

func (s *AIService) Summarize(ctx context.Context, text string) (string, error) {
	text, err := s.cleanInput(text)
	if err != nil {
		return "", err
	}
	cacheKey := s.cacheKey("summary", text)
	if cached, ok := s.cache.Get(cacheKey); ok {
		return cached, nil
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	res, err := s.provider.Generate(ctx, s.model, summaryPrompt+text)
	if err != nil {
		return "", translateProviderErr(err)
	}
	s.cache.Add(cacheKey, res)
	return res, nil
}

// SummarizeStream delivers the summary incrementally via fn and bypasses the
// response cache; the accumulated result is the caller's to persist.
func (s *AIService) SummarizeStream(ctx context.Context, text string, fn func(chunk string) error) error {
	text, err := s.cleanInput(text)
	if err != nil {
		return err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	if err := s.provider.GenerateStream(ctx, s.model, summaryPrompt+text, fn); err != nil {
		return translateProviderErr(err)
	}
	return nil
}

// translateProviderErr keeps provider internals out of the API surface; an
// unconfigured backend becomes the app-level unavailable sentinel.
func translateProviderErr(err error) error {
	if errors.Is(err, ai.ErrUnavailable) {
		return appErr.ErrAIUnavailable
	}
	return err
}

func (s *AIService) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

func (s *AIService) cleanInput(input string) (string, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return "", appErr.ErrInvalid
	}
	return truncateInput(trimmed, s.maxInputChars), nil
}

// truncateInput cuts text beyond the character limit and appends a marker so
// the model sees that the document continues.
func truncateInput(text string, max int) string {
	if max <= 0 || len(text) <= max {
		return text
	}
	return text[:max] + truncationMarker
}

func (s *AIService) cacheKey(feature, text string) string {
	hash := sha256.Sum256([]byte(text))
	return feature + ":" + hex.EncodeToString(hash[:])
}

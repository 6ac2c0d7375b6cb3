package service

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/docport/docport/internal/filestore"
	"github.com/docport/docport/internal/model"
	"github.com/docport/docport/internal/pkg/timeutil"
	"github.com/docport/docport/internal/repo"
)

// ExtractFunc pulls plain text out of uploaded file bytes.
type ExtractFunc func(data []byte) (string, error)

type SummaryService struct {
	summaries *repo.DocumentSummaryRepo
	store     filestore.Store
	ai        *AIService
	extract   ExtractFunc

	// locks serializes generation per document so concurrent requests for
	// the same document produce a single provider call.
	locks sync.Map // document id -> *sync.Mutex
}

func NewSummaryService(summaries *repo.DocumentSummaryRepo, store filestore.Store, ai *AIService, extract ExtractFunc) *SummaryService {
	return &SummaryService{summaries: summaries, store: store, ai: ai, extract: extract}
}

func (s *SummaryService) lockFor(docID string) *sync.Mutex {
	mu, _ := s.locks.LoadOrStore(docID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// GetOrCreate returns the stored summary verbatim if one exists, otherwise
// generates, persists and returns a fresh one. Repeated calls for the same
// document do not hit the provider again.
func (s *SummaryService) GetOrCreate(ctx context.Context, docID, filePath string) (*model.DocumentSummary, error) {
	if sum, err := s.summaries.GetByDocID(ctx, docID); err == nil {
		return sum, nil
	}
	mu := s.lockFor(docID)
	mu.Lock()
	defer mu.Unlock()
	// another request may have finished while we waited on the lock
	if sum, err := s.summaries.GetByDocID(ctx, docID); err == nil {
		return sum, nil
	}
	text, err := s.documentText(ctx, filePath)
	if err != nil {
		return nil, err
	}
	summary, err := s.ai.Summarize(ctx, text)
	if err != nil {
		return nil, err
	}
	now := timeutil.NowUnix()
	if err := s.summaries.Upsert(ctx, docID, summary, s.ai.Model(), now); err != nil {
		return nil, err
	}
	return &model.DocumentSummary{
		DocumentID: docID,
		Summary:    summary,
		ModelUsed:  s.ai.Model(),
		Ctime:      now,
		Mtime:      now,
	}, nil
}

// Stream delivers the summary in chunks through fn. An already stored summary
// is replayed as a single chunk; otherwise chunks arrive as the provider
// emits them and the concatenation is persisted once the stream completes.
func (s *SummaryService) Stream(ctx context.Context, docID, filePath string, fn func(chunk string) error) error {
	if sum, err := s.summaries.GetByDocID(ctx, docID); err == nil {
		return fn(sum.Summary)
	}
	mu := s.lockFor(docID)
	mu.Lock()
	defer mu.Unlock()
	if sum, err := s.summaries.GetByDocID(ctx, docID); err == nil {
		return fn(sum.Summary)
	}
	text, err := s.documentText(ctx, filePath)
	if err != nil {
		return err
	}
	var full strings.Builder
	err = s.ai.SummarizeStream(ctx, text, func(chunk string) error {
		full.WriteString(chunk)
		return fn(chunk)
	})
	if err != nil {
		return err
	}
	return s.summaries.Upsert(ctx, docID, full.String(), s.ai.Model(), timeutil.NowUnix())
}

func (s *SummaryService) documentText(ctx context.Context, filePath string) (string, error) {
	rc, err := s.store.Open(ctx, filePath)
	if err != nil {
		return "", fmt.Errorf("open stored file: %w", err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return "", fmt.Errorf("read stored file: %w", err)
	}
	return s.extract(data)
}

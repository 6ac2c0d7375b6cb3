package service_test

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/docport/docport/internal/config"
	"github.com/docport/docport/internal/filestore"
	"github.com/docport/docport/internal/repo"
	"github.com/docport/docport/internal/service"
	"github.com/docport/docport/test/testutil"
)

type fakeProvider struct {
	mu     sync.Mutex
	calls  int
	chunks []string
}

func (p *fakeProvider) Name() string {
	return "fake"
}

func (p *fakeProvider) Generate(ctx context.Context, model string, prompt string) (string, error) {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()
	return strings.Join(p.chunks, ""), nil
}

func (p *fakeProvider) GenerateStream(ctx context.Context, model string, prompt string, fn func(chunk string) error) error {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()
	for _, chunk := range p.chunks {
		if err := fn(chunk); err != nil {
			return err
		}
	}
	return nil
}

func (p *fakeProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func newSummaryFixture(t *testing.T, provider *fakeProvider) (*service.SummaryService, filestore.Store) {
	conn, cleanup := testutil.OpenTestDB(t)
	t.Cleanup(cleanup)

	store, err := filestore.New(config.FileStoreConfig{
		Type: "local",
		Data: map[string]interface{}{"dir": t.TempDir()},
	})
	require.NoError(t, err)

	aiSvc := service.NewAIService(provider, "fake-model", 1000, 10*time.Second)
	extract := func(data []byte) (string, error) {
		return string(data), nil
	}
	summaries := service.NewSummaryService(repo.NewDocumentSummaryRepo(conn), store, aiSvc, extract)
	return summaries, store
}

func putDocument(t *testing.T, store filestore.Store, key, content string) {
	t.Helper()
	err := store.Save(context.Background(), key, bytes.NewReader([]byte(content)), int64(len(content)), "application/pdf")
	require.NoError(t, err)
}

func TestSummaryGeneratedOnceAndReused(t *testing.T) {
	provider := &fakeProvider{chunks: []string{"short ", "summary"}}
	summaries, store := newSummaryFixture(t, provider)
	ctx := context.Background()

	docID := fmt.Sprintf("doc-%d", time.Now().UnixNano())
	key := docID + "/file.pdf"
	putDocument(t, store, key, "document body text")

	first, err := summaries.GetOrCreate(ctx, docID, key)
	require.NoError(t, err)
	require.Equal(t, "short summary", first.Summary)
	require.Equal(t, "fake-model", first.ModelUsed)
	require.Equal(t, 1, provider.callCount())

	second, err := summaries.GetOrCreate(ctx, docID, key)
	require.NoError(t, err)
	require.Equal(t, first.Summary, second.Summary)
	require.Equal(t, 1, provider.callCount())
}

func TestSummaryConcurrentRequestsSingleProviderCall(t *testing.T) {
	provider := &fakeProvider{chunks: []string{"only once"}}
	summaries, store := newSummaryFixture(t, provider)
	ctx := context.Background()

	docID := fmt.Sprintf("doc-%d", time.Now().UnixNano())
	key := docID + "/file.pdf"
	putDocument(t, store, key, "document body text")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := summaries.GetOrCreate(ctx, docID, key)
			require.NoError(t, err)
		}()
	}
	wg.Wait()
	require.Equal(t, 1, provider.callCount())
}

func TestSummaryStreamConcatenationMatchesStored(t *testing.T) {
	provider := &fakeProvider{chunks: []string{"part one, ", "part two, ", "part three"}}
	summaries, store := newSummaryFixture(t, provider)
	ctx := context.Background()

	docID := fmt.Sprintf("doc-%d", time.Now().UnixNano())
	key := docID + "/file.pdf"
	putDocument(t, store, key, "document body text")

	var got []string
	err := summaries.Stream(ctx, docID, key, func(chunk string) error {
		got = append(got, chunk)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, provider.chunks, got)

	stored, err := summaries.GetOrCreate(ctx, docID, key)
	require.NoError(t, err)
	require.Equal(t, strings.Join(provider.chunks, ""), stored.Summary)
	require.Equal(t, 1, provider.callCount())
}

func TestSummaryStreamReplaysStoredAsSingleChunk(t *testing.T) {
	provider := &fakeProvider{chunks: []string{"alpha ", "beta"}}
	summaries, store := newSummaryFixture(t, provider)
	ctx := context.Background()

	docID := fmt.Sprintf("doc-%d", time.Now().UnixNano())
	key := docID + "/file.pdf"
	putDocument(t, store, key, "document body text")

	_, err := summaries.GetOrCreate(ctx, docID, key)
	require.NoError(t, err)

	var got []string
	err = summaries.Stream(ctx, docID, key, func(chunk string) error {
		got = append(got, chunk)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, []string{"alpha beta"}, got)
	require.Equal(t, 1, provider.callCount())
}

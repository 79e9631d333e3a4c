package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"nia/internal/chunk"
	"nia/internal/contextutil"
	"nia/internal/crawl"
	"nia/internal/vectorstore"
)

// ErrFetch marks a run that failed because the site could not be crawled.
// Callers can distinguish upstream fetch failures from bad parameters.
var ErrFetch = errors.New("fetch failed")

// Embedder converts texts to vectors.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Request describes one ingestion run. MaxTokens and OverlapTokens override
// the configured chunking defaults when positive.
type Request struct {
	SeedURL       string `json:"url"`
	MaxTokens     int    `json:"max_tokens,omitempty"`
	OverlapTokens int    `json:"overlap_tokens,omitempty"`
}

// DocumentFailure records one document that could not be ingested.
type DocumentFailure struct {
	URL   string `json:"url"`
	Error string `json:"error"`
}

// Report summarizes an ingestion run. Failures lists documents that were
// skipped; their presence does not mean the run failed.
type Report struct {
	PagesFetched   int               `json:"pages_fetched"`
	ChunksUpserted int               `json:"chunks_upserted"`
	Failures       []DocumentFailure `json:"failures"`
}

// Config configures the ingestion pipeline.
type Config struct {
	Collection      string
	MaxTokens       int
	OverlapTokens   int
	UpsertBatchSize int
	Concurrency     int
}

// Pipeline crawls a site and indexes its pages into the vector store.
// Documents are processed independently: a page that fails to chunk, embed or
// upsert is recorded in the report and never blocks the others.
type Pipeline struct {
	fetcher  crawl.Fetcher
	embedder Embedder
	store    vectorstore.VectorStore
	cfg      Config
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(fetcher crawl.Fetcher, embedder Embedder, store vectorstore.VectorStore, cfg Config) *Pipeline {
	if cfg.UpsertBatchSize <= 0 {
		cfg.UpsertBatchSize = 25
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	return &Pipeline{
		fetcher:  fetcher,
		embedder: embedder,
		store:    store,
		cfg:      cfg,
	}
}

// Run crawls from the request's seed URL and upserts every page's chunks.
// Re-running over unchanged content produces the same chunk IDs, so the
// corpus does not accumulate duplicates.
func (p *Pipeline) Run(ctx context.Context, req Request) (Report, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if strings.TrimSpace(req.SeedURL) == "" {
		return Report{}, fmt.Errorf("seed URL must not be empty")
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = p.cfg.MaxTokens
	}
	overlapTokens := req.OverlapTokens
	if overlapTokens <= 0 {
		overlapTokens = p.cfg.OverlapTokens
	}
	splitter, err := chunk.NewSplitter(maxTokens, overlapTokens)
	if err != nil {
		return Report{}, fmt.Errorf("invalid chunking parameters: %w", err)
	}

	pages, err := p.fetcher.Fetch(ctx, req.SeedURL)
	if err != nil {
		return Report{}, fmt.Errorf("%w: %w", ErrFetch, err)
	}

	var (
		mu       sync.Mutex
		report   = Report{PagesFetched: len(pages)}
		group, _ = errgroup.WithContext(ctx)
	)
	group.SetLimit(p.cfg.Concurrency)

	for _, page := range pages {
		group.Go(func() error {
			count, err := p.ingestPage(ctx, splitter, page)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				logger.WarnContext(ctx, "failed to ingest page", "url", page.URL, "error", err)
				report.Failures = append(report.Failures, DocumentFailure{URL: page.URL, Error: err.Error()})
				return nil
			}
			report.ChunksUpserted += count
			return nil
		})
	}
	_ = group.Wait()

	logger.InfoContext(ctx, "ingestion completed",
		"seed", req.SeedURL,
		"pages", report.PagesFetched,
		"chunks", report.ChunksUpserted,
		"failures", len(report.Failures),
	)
	return report, nil
}

// ingestPage chunks one page, embeds its chunks and upserts the points.
// Returns how many chunks were upserted.
func (p *Pipeline) ingestPage(ctx context.Context, splitter *chunk.Splitter, page crawl.Page) (int, error) {
	doc := chunk.Document{
		SourceURL: page.URL,
		Title:     resolveTitle(page.URL, page.Title, page.Text),
		Text:      page.Text,
		FetchedAt: page.FetchedAt,
	}

	chunks := splitter.Split(doc)
	kept := chunks[:0]
	for _, c := range chunks {
		if strings.TrimSpace(c.Text) != "" {
			kept = append(kept, c)
		}
	}
	if len(kept) == 0 {
		return 0, nil
	}

	// Prefix each chunk with its provenance so the embedding carries the
	// document identity, matching how queries reference sources. The stored
	// payload keeps the raw chunk text.
	inputs := make([]string, len(kept))
	for i, c := range kept {
		inputs[i] = fmt.Sprintf("Source: %s\nURL: %s\n\n%s", doc.Title, doc.SourceURL, c.Text)
	}

	vectors, err := p.embedder.EmbedTexts(ctx, inputs)
	if err != nil {
		return 0, fmt.Errorf("failed to embed chunks: %w", err)
	}

	points := make([]vectorstore.Point, len(kept))
	for i, c := range kept {
		points[i] = vectorstore.Point{
			ID:  c.ID,
			Vec: vectors[i],
			Meta: map[string]any{
				"source_url":   c.SourceURL,
				"title":        doc.Title,
				"text":         c.Text,
				"token_count":  c.TokenCount,
				"start_offset": c.StartOffset,
				"end_offset":   c.EndOffset,
			},
		}
	}

	upserted := 0
	for start := 0; start < len(points); start += p.cfg.UpsertBatchSize {
		end := min(start+p.cfg.UpsertBatchSize, len(points))
		if err := p.store.Upsert(ctx, p.cfg.Collection, points[start:end]); err != nil {
			return upserted, fmt.Errorf("failed to upsert points: %w", err)
		}
		upserted += end - start
	}
	return upserted, nil
}

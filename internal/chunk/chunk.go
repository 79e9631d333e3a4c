// Package chunk splits crawled documents into overlapping, size-bounded
// spans. Chunk boundaries and ids are deterministic so re-ingesting unchanged
// content upserts the same vector-store points instead of duplicating them.
package chunk

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Document is a crawled source document ready for chunking.
type Document struct {
	SourceURL string
	Title     string
	Text      string
	FetchedAt time.Time
}

// Chunk is a bounded contiguous span of a source document's text, the unit of
// storage and retrieval. StartOffset and EndOffset are byte offsets into the
// document text; Text is always exactly Document.Text[StartOffset:EndOffset].
type Chunk struct {
	ID          string
	SourceURL   string
	Text        string
	StartOffset int
	EndOffset   int
	TokenCount  int
}

// ID derives a stable UUIDv5 from the source URL and the chunk's start
// offset. Stability across re-ingestion makes upserts idempotent; the UUID
// form doubles as a valid Qdrant point id.
func ID(sourceURL string, startOffset int) string {
	name := fmt.Sprintf("%s#%d", sourceURL, startOffset)
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(name)).String()
}

package chunk

import (
	"fmt"
	"strings"
	"unicode"
)

// separators are tried in order when looking for a cut point near the token
// limit: markdown headings first, then paragraph breaks, then sentence ends.
var separators = []string{"\n# ", "\n## ", "\n\n", ". "}

// Splitter splits document text into chunks of at most maxTokens tokens,
// with adjacent chunks overlapping by roughly overlapTokens tokens.
type Splitter struct {
	maxTokens     int
	overlapTokens int
}

// NewSplitter validates the chunking parameters. Overlap must be strictly
// smaller than the chunk size or splitting could not make progress.
func NewSplitter(maxTokens, overlapTokens int) (*Splitter, error) {
	if maxTokens <= 0 {
		return nil, fmt.Errorf("max tokens must be positive, got %d", maxTokens)
	}
	if overlapTokens < 0 {
		return nil, fmt.Errorf("overlap tokens must not be negative, got %d", overlapTokens)
	}
	if overlapTokens >= maxTokens {
		return nil, fmt.Errorf("overlap tokens (%d) must be less than max tokens (%d)", overlapTokens, maxTokens)
	}
	return &Splitter{maxTokens: maxTokens, overlapTokens: overlapTokens}, nil
}

// EstimateTokens approximates the token count of text as its whitespace-
// delimited word count.
func EstimateTokens(text string) int {
	return len(strings.Fields(text))
}

// wordSpan is the byte range of one whitespace-delimited word.
type wordSpan struct {
	start int
	end   int
}

func wordSpans(text string) []wordSpan {
	var spans []wordSpan
	start := -1
	for i, r := range text {
		if unicode.IsSpace(r) {
			if start >= 0 {
				spans = append(spans, wordSpan{start: start, end: i})
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		spans = append(spans, wordSpan{start: start, end: len(text)})
	}
	return spans
}

// Split chunks the document text. The union of the produced spans always
// covers the whole text with no gaps; adjacent chunks overlap by up to the
// configured window. Splitting is deterministic: the same text and parameters
// always yield the same boundaries and ids.
//
// Degenerate inputs (empty text, text within the token limit) yield exactly
// one chunk spanning the whole text.
func (s *Splitter) Split(doc Document) []Chunk {
	text := doc.Text
	words := wordSpans(text)

	var chunks []Chunk
	startByte := 0
	i := 0 // index of the first word in the current chunk

	for {
		remaining := len(words) - i
		if remaining <= s.maxTokens {
			chunks = append(chunks, s.newChunk(doc, startByte, len(text), remaining))
			break
		}

		j := i + s.maxTokens - 1 // last word that fits
		cut := s.findCut(text, words, i, j, startByte)

		// Count the words wholly inside [startByte, cut).
		m := j
		for m >= i && words[m].end > cut {
			m--
		}
		chunks = append(chunks, s.newChunk(doc, startByte, cut, m-i+1))

		// Step forward, backing up by the overlap window. Overlap never
		// swallows a whole chunk: the next chunk always starts after the
		// previous chunk's first word.
		if s.overlapTokens == 0 {
			i = m + 1
			startByte = cut
			continue
		}
		next := m + 1 - s.overlapTokens
		if next <= i {
			next = i + 1
		}
		i = next
		if next > m {
			// The chunk was smaller than the overlap window; continue at the
			// cut so no text is skipped.
			startByte = cut
		} else {
			startByte = words[i].start
		}
	}
	return chunks
}

// findCut returns the byte offset ending the current chunk. It prefers the
// last semantic separator inside the window, falling back to a hard cut at
// the next word boundary. Heading separators cut before the heading marker so
// the heading opens the next chunk; paragraph and sentence separators are
// kept with the text they terminate.
func (s *Splitter) findCut(text string, words []wordSpan, i, j, startByte int) int {
	windowEnd := min(words[j].end+2, len(text))
	window := text[words[i].start:windowEnd]

	for _, sep := range separators {
		idx := strings.LastIndex(window, sep)
		for idx >= 0 {
			abs := words[i].start + idx
			var cut int
			if sep == "\n# " || sep == "\n## " {
				cut = abs + 1
			} else {
				cut = abs + len(sep)
			}
			if cut > startByte && cut > words[i].start {
				return cut
			}
			idx = strings.LastIndex(window[:idx], sep)
		}
	}
	return words[j+1].start
}

func (s *Splitter) newChunk(doc Document, start, end, tokens int) Chunk {
	return Chunk{
		ID:          ID(doc.SourceURL, start),
		SourceURL:   doc.SourceURL,
		Text:        doc.Text[start:end],
		StartOffset: start,
		EndOffset:   end,
		TokenCount:  tokens,
	}
}

package rag

import (
	"fmt"
	"strings"
)

const promptHeader = "You are a factual assistant. Answer strictly using the provided context. " +
	"If the context does not contain enough information to answer, say that you do not know."

// buildPrompt renders the final prompt. Pure and deterministic: the same
// question and context always produce byte-identical output.
func buildPrompt(question string, context Context) string {
	var sb strings.Builder
	sb.WriteString(promptHeader)
	sb.WriteString("\n\nContext:\n")

	if len(context.Passages) == 0 {
		sb.WriteString("\nNo supporting context was found for this question.\n")
	} else {
		for _, p := range context.Passages {
			sb.WriteString(fmt.Sprintf("\n[Source: %s]\n%s\n", p.Chunk.SourceURL, p.Chunk.Text))
		}
	}

	sb.WriteString("\nQuestion: ")
	sb.WriteString(question)
	return sb.String()
}

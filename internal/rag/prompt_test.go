package rag

import (
	"strings"
	"testing"
)

func TestBuildPromptWithPassages(t *testing.T) {
	context := Context{
		Passages: []Passage{
			passage("a", "http://docs.example.com/setup", "Install the package.", 0, 20, 3, 0.9),
			passage("b", "http://docs.example.com/usage", "Run the binary.", 0, 15, 3, 0.8),
		},
	}

	prompt := buildPrompt("How do I install it?", context)

	if !strings.Contains(prompt, "[Source: http://docs.example.com/setup]\nInstall the package.") {
		t.Errorf("first passage not rendered with its source:\n%s", prompt)
	}
	if !strings.Contains(prompt, "[Source: http://docs.example.com/usage]\nRun the binary.") {
		t.Errorf("second passage not rendered with its source:\n%s", prompt)
	}
	if !strings.HasSuffix(prompt, "Question: How do I install it?") {
		t.Errorf("prompt should end with the question:\n%s", prompt)
	}
	setupIdx := strings.Index(prompt, "setup")
	usageIdx := strings.Index(prompt, "usage")
	if setupIdx > usageIdx {
		t.Error("passages should appear in context order")
	}
}

func TestBuildPromptEmptyContext(t *testing.T) {
	prompt := buildPrompt("Anything?", Context{})
	if !strings.Contains(prompt, "No supporting context was found") {
		t.Errorf("empty context should be stated explicitly:\n%s", prompt)
	}
	if !strings.HasSuffix(prompt, "Question: Anything?") {
		t.Errorf("prompt should end with the question:\n%s", prompt)
	}
}

func TestBuildPromptDeterministic(t *testing.T) {
	context := Context{
		Passages: []Passage{
			passage("a", "http://x/1", "some text", 0, 9, 2, 0.9),
		},
	}

	first := buildPrompt("q", context)
	for i := 0; i < 5; i++ {
		if got := buildPrompt("q", context); got != first {
			t.Fatal("buildPrompt should be deterministic")
		}
	}
}

package analyzer

import (
	"reflect"
	"testing"
)

func TestTokenizer_Tokenize_WithFolding(t *testing.T) {
	tok := NewTokenizer(true)

	tokens := tok.Tokenize("Tagging tickets automatically")
	expected := []string{"tag", "ticket", "automatic"}
	if !reflect.DeepEqual(tokens, expected) {
		t.Errorf("expected %v, got %v", expected, tokens)
	}
}

func TestTokenizer_Tokenize_WithoutFolding(t *testing.T) {
	tok := NewTokenizer(false)

	tokens := tok.Tokenize("running dogs are playing")
	expected := []string{"running", "dogs", "playing"}
	if !reflect.DeepEqual(tokens, expected) {
		t.Errorf("expected %v, got %v", expected, tokens)
	}
}

func TestTokenizer_StopwordRemoval(t *testing.T) {
	tok := NewTokenizer(false)

	tokens := tok.Tokenize("how do I tag the tickets")
	for _, token := range tokens {
		if token == "the" || token == "how" || token == "do" {
			t.Errorf("stopword %q should be removed, got %v", token, tokens)
		}
	}
}

func TestTokenizer_ShortWordRemoval(t *testing.T) {
	tok := NewTokenizer(false)

	tokens := tok.Tokenize("a I go to")
	for _, token := range tokens {
		if len(token) < 2 {
			t.Errorf("short word should be removed: %s", token)
		}
	}
}

func TestTokenizer_EmptyInput(t *testing.T) {
	tok := NewTokenizer(true)

	tokens := tok.Tokenize("")
	if len(tokens) != 0 {
		t.Errorf("expected 0 tokens for empty input, got %d", len(tokens))
	}
}

func TestFoldSuffix(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"tags", "tag"},
		{"tagged", "tag"},
		{"tagging", "tag"},
		{"process", "process"},
		{"feed", "feed"},
		{"usually", "usu"},
		{"go", "go"},
	}

	for _, tt := range tests {
		if got := foldSuffix(tt.input); got != tt.expected {
			t.Errorf("foldSuffix(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestSplitWords(t *testing.T) {
	tests := []struct {
		input    string
		expected int
	}{
		{"hello world", 2},
		{"hello-world", 2},
		{"Auto Tagging.", 2},
		{"CamelCase", 1},
		{"123numbers456", 1},
		{"  ", 0},
	}

	for _, tt := range tests {
		words := splitWords(tt.input)
		if len(words) != tt.expected {
			t.Errorf("splitWords(%q) = %d words, want %d: %v", tt.input, len(words), tt.expected, words)
		}
	}
}

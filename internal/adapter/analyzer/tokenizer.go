package analyzer

import (
	"strings"
	"unicode"
)

// Tokenizer splits text into lower-cased terms with stopword removal and
// optional suffix folding.
type Tokenizer struct {
	stopwords map[string]struct{}
	fold      bool
}

// NewTokenizer creates a new Tokenizer.
func NewTokenizer(foldSuffixes bool) *Tokenizer {
	return &Tokenizer{
		stopwords: defaultStopwords(),
		fold:      foldSuffixes,
	}
}

// Tokenize splits text into tokens.
func (t *Tokenizer) Tokenize(text string) []string {
	words := splitWords(text)
	tokens := make([]string, 0, len(words))

	for _, word := range words {
		word = strings.ToLower(word)
		if len(word) < 2 {
			continue
		}
		if _, isStop := t.stopwords[word]; isStop {
			continue
		}
		if t.fold {
			word = foldSuffix(word)
		}
		tokens = append(tokens, word)
	}

	return tokens
}

// foldSuffix strips one inflectional suffix so that "tags", "tagged" and
// "tagging" share a term. The remaining stem is at least three bytes long.
func foldSuffix(word string) string {
	for _, suffix := range []string{"ally", "ing", "ed", "es", "s"} {
		stem, ok := strings.CutSuffix(word, suffix)
		if !ok || len(stem) < 3 {
			continue
		}
		if suffix == "s" && strings.HasSuffix(stem, "s") {
			return word
		}
		if n := len(stem); (suffix == "ing" || suffix == "ed") && stem[n-1] == stem[n-2] && !isVowel(stem[n-1]) {
			stem = stem[:n-1]
		}
		return stem
	}
	return word
}

func isVowel(b byte) bool {
	switch b {
	case 'a', 'e', 'i', 'o', 'u':
		return true
	}
	return false
}

// splitWords splits text into words using unicode word boundaries.
func splitWords(text string) []string {
	var words []string
	var current strings.Builder

	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			current.WriteRune(r)
		} else {
			if current.Len() > 0 {
				words = append(words, current.String())
				current.Reset()
			}
		}
	}
	if current.Len() > 0 {
		words = append(words, current.String())
	}

	return words
}

// defaultStopwords returns a set of common English stopwords.
func defaultStopwords() map[string]struct{} {
	stops := []string{
		"a", "an", "and", "are", "as", "at", "be", "by", "for",
		"from", "has", "he", "in", "is", "it", "its", "of", "on",
		"that", "the", "to", "was", "were", "will", "with", "this",
		"have", "had", "but", "not", "you", "your", "we", "our",
		"they", "their", "she", "her", "his", "if", "or", "so",
		"no", "can", "do", "does", "did", "been", "being", "would",
		"could", "should", "may", "might", "must", "shall", "which",
		"who", "whom", "what", "when", "where", "why", "how", "all",
		"each", "every", "both", "few", "more", "most", "other",
		"some", "such", "than", "too", "very", "just", "also", "my", "me",
	}
	m := make(map[string]struct{}, len(stops))
	for _, s := range stops {
		m[s] = struct{}{}
	}
	return m
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package enrich

import (
	"bufio"
	"bytes"
	"context"
	"embed"
	"regexp"
	"sort"
	"strings"
)

// KeywordExtractor derives a ranked keyword list from text. Rank order is
// most relevant first; at most topN keywords are returned.
type KeywordExtractor interface {
	Extract(ctx context.Context, text string, topN int) ([]string, error)
}

//go:embed stopwords.txt
var stopwordsFS embed.FS

var stopwords = loadStopwords()

func loadStopwords() map[string]bool {
	data, err := stopwordsFS.ReadFile("stopwords.txt")
	if err != nil {
		// The file is compiled into the binary; a read failure is a build
		// defect, not a runtime condition.
		panic(err)
	}
	words := make(map[string]bool)
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		if w := strings.TrimSpace(sc.Text()); w != "" {
			words[w] = true
		}
	}
	return words
}

var nonWord = regexp.MustCompile(`[^a-z0-9\s-]`)

// tokenize lowercases, strips punctuation, splits hyphens, and drops
// stop words and single-character tokens.
func tokenize(text string) []string {
	if text == "" {
		return nil
	}
	text = strings.ToLower(text)
	text = nonWord.ReplaceAllString(text, " ")
	text = strings.ReplaceAll(text, "-", " ")

	words := strings.Fields(text)
	tokens := make([]string, 0, len(words))
	for _, w := range words {
		if len(w) > 1 && !stopwords[w] {
			tokens = append(tokens, w)
		}
	}
	return tokens
}

// FrequencyExtractor ranks terms by how often they occur in the text,
// ties broken by first occurrence. It is the default keyword model; any
// smarter extractor can be swapped in behind KeywordExtractor.
type FrequencyExtractor struct{}

// NewFrequencyExtractor returns the term-frequency keyword extractor.
func NewFrequencyExtractor() *FrequencyExtractor {
	return &FrequencyExtractor{}
}

// Extract returns up to topN keywords ranked by term frequency.
func (e *FrequencyExtractor) Extract(_ context.Context, text string, topN int) ([]string, error) {
	tokens := tokenize(text)
	if len(tokens) == 0 {
		return []string{}, nil
	}

	counts := make(map[string]int, len(tokens))
	firstSeen := make(map[string]int, len(tokens))
	var terms []string
	for i, tok := range tokens {
		if counts[tok] == 0 {
			firstSeen[tok] = i
			terms = append(terms, tok)
		}
		counts[tok]++
	}

	sort.Slice(terms, func(i, j int) bool {
		if counts[terms[i]] != counts[terms[j]] {
			return counts[terms[i]] > counts[terms[j]]
		}
		return firstSeen[terms[i]] < firstSeen[terms[j]]
	})

	if topN > 0 && len(terms) > topN {
		terms = terms[:topN]
	}
	return terms, nil
}

// Copyright (C) 2026 NestReady Labs (oss@nestready.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package tools

import (
	"embed"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/tmc/langchaingo/textsplitter"
)

//go:embed corpus/*.md
var corpusFS embed.FS

// MaxRetrievalResults caps topK regardless of what the model asks for.
const MaxRetrievalResults = 5

// Passage is one scored chunk of the housing-program corpus.
type Passage struct {
	Source string  `json:"source"`
	Text   string  `json:"text"`
	Score  float64 `json:"score"`
}

// Retriever answers housing-program queries from the embedded corpus.
//
// # Description
//
// The corpus is chunked once at startup. Scoring is term frequency with
// length normalization; no external index or vector store is involved, so
// results are fully deterministic for a given query.
//
// # Thread Safety
//
// Immutable after construction, safe for concurrent use.
type Retriever struct {
	chunks []corpusChunk
}

type corpusChunk struct {
	source string
	text   string
	terms  map[string]int
	length int
}

var termPattern = regexp.MustCompile(`[a-z0-9]+`)

// NewRetriever chunks the embedded corpus and builds the term index.
func NewRetriever() (*Retriever, error) {
	entries, err := corpusFS.ReadDir("corpus")
	if err != nil {
		return nil, fmt.Errorf("read corpus: %w", err)
	}

	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(800),
		textsplitter.WithChunkOverlap(100),
	)

	var chunks []corpusChunk
	for _, entry := range entries {
		data, err := corpusFS.ReadFile("corpus/" + entry.Name())
		if err != nil {
			return nil, fmt.Errorf("read corpus file %s: %w", entry.Name(), err)
		}

		parts, err := splitter.SplitText(string(data))
		if err != nil {
			return nil, fmt.Errorf("split corpus file %s: %w", entry.Name(), err)
		}

		for _, part := range parts {
			terms := tokenize(part)
			total := 0
			for _, n := range terms {
				total += n
			}
			chunks = append(chunks, corpusChunk{
				source: strings.TrimSuffix(entry.Name(), ".md"),
				text:   strings.TrimSpace(part),
				terms:  terms,
				length: total,
			})
		}
	}

	if len(chunks) == 0 {
		return nil, fmt.Errorf("housing program corpus is empty")
	}
	return &Retriever{chunks: chunks}, nil
}

// Search returns the topK best-scoring passages for the query.
func (r *Retriever) Search(query string, topK int) []Passage {
	if topK <= 0 || topK > MaxRetrievalResults {
		topK = MaxRetrievalResults
	}

	queryTerms := tokenize(query)
	if len(queryTerms) == 0 {
		return nil
	}

	type scored struct {
		index int
		score float64
	}
	var results []scored
	for i, chunk := range r.chunks {
		if chunk.length == 0 {
			continue
		}
		var score float64
		for term := range queryTerms {
			score += float64(chunk.terms[term]) / float64(chunk.length)
		}
		if score > 0 {
			results = append(results, scored{index: i, score: score})
		}
	}

	// Score descending, chunk order as the deterministic tie-break.
	sort.Slice(results, func(i, j int) bool {
		if results[i].score != results[j].score {
			return results[i].score > results[j].score
		}
		return results[i].index < results[j].index
	})

	if len(results) > topK {
		results = results[:topK]
	}

	passages := make([]Passage, 0, len(results))
	for _, res := range results {
		chunk := r.chunks[res.index]
		passages = append(passages, Passage{
			Source: chunk.source,
			Text:   chunk.text,
			Score:  res.score,
		})
	}
	return passages
}

func tokenize(text string) map[string]int {
	terms := make(map[string]int)
	for _, term := range termPattern.FindAllString(strings.ToLower(text), -1) {
		terms[term]++
	}
	return terms
}

// Package search provides a small, deterministic, concurrency-safe in-memory
// index over command tokens. It backs the "did you mean" answer for unknown
// chat commands:
//
//   - No logging in the library (callers decide how/what to log)
//   - Functional options (Option pattern)
//   - Read-only after construction (safe for concurrent use)
//   - Deterministic scoring and sorting (stable order for ties)
//
// Terms and queries are folded (see Normalize) and split into padded
// character n-grams. Scoring uses Jaccard similarity between the query gram
// set and each term's gram set: score = |Q ∩ T| / |Q ∪ T|.
package search

import (
	"sort"
	"strings"
	"unicode/utf8"
)

// Result is a ranked term with its similarity score.
type Result struct {
	Term  string
	Score float64
}

// Index is the minimal interface implemented by all search indices.
type Index interface {
	TopK(query string, k int) []Result
}

// ----------------------------------------------------------------------------
// Options

type Option func(*config)

type config struct {
	gramSize int
	minScore float64
	maxDocs  int
}

func defaultConfig() config {
	return config{
		gramSize: 3,
		minScore: 0.2,
		maxDocs:  0,
	}
}

// WithGramSize sets the n-gram length. Values below 2 are ignored.
func WithGramSize(n int) Option {
	return func(c *config) {
		if n >= 2 {
			c.gramSize = n
		}
	}
}

// WithMinScore drops results scoring below s. Values outside [0, 1] are ignored.
func WithMinScore(s float64) Option {
	return func(c *config) {
		if s >= 0 && s <= 1 {
			c.minScore = s
		}
	}
}

func WithMaxDocs(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxDocs = n
		}
	}
}

// ----------------------------------------------------------------------------
// Implementation

type doc struct {
	term  string
	grams map[string]struct{}
}

type index struct {
	cfg  config
	docs []doc
}

// NewIndex builds an Index over terms. Blank terms and duplicates (after
// folding) are skipped; the first spelling wins.
func NewIndex(terms []string, opts ...Option) Index {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	docs := make([]doc, 0, len(terms))
	seen := make(map[string]struct{}, len(terms))
	for _, raw := range terms {
		t := strings.TrimSpace(raw)
		key := Normalize(t)
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		docs = append(docs, doc{term: t, grams: Grams(key, cfg.gramSize)})
		if cfg.maxDocs > 0 && len(docs) >= cfg.maxDocs {
			break
		}
	}
	return &index{cfg: cfg, docs: docs}
}

// TopK returns up to k best-matching terms by Jaccard similarity.
func (i *index) TopK(q string, k int) []Result {
	if len(i.docs) == 0 {
		return nil
	}
	key := Normalize(q)
	if key == "" {
		return nil
	}
	if k <= 0 {
		k = 3
	}
	qGrams := Grams(key, i.cfg.gramSize)
	qLen := len(qGrams)

	type scored struct {
		term     string
		score    float64
		lenRunes int
	}

	buf := make([]scored, 0, min(k*4, len(i.docs)))
	for _, d := range i.docs {
		over := overlap(qGrams, d.grams)
		if over == 0 {
			continue
		}
		union := float64(qLen + len(d.grams) - over)
		score := float64(over) / union
		if score < i.cfg.minScore {
			continue
		}
		buf = append(buf, scored{
			term:     d.term,
			score:    score,
			lenRunes: utf8.RuneCountInString(d.term),
		})
	}
	if len(buf) == 0 {
		return nil
	}

	sort.SliceStable(buf, func(a, b int) bool {
		if buf[a].score != buf[b].score {
			return buf[a].score > buf[b].score
		}
		if buf[a].lenRunes != buf[b].lenRunes {
			return buf[a].lenRunes < buf[b].lenRunes
		}
		return buf[a].term < buf[b].term
	})

	if k > len(buf) {
		k = len(buf)
	}
	out := make([]Result, k)
	for i := 0; i < k; i++ {
		out[i] = Result{Term: buf[i].term, Score: buf[i].score}
	}
	return out
}

// ----------------------------------------------------------------------------
// Helpers

func overlap(a, b map[string]struct{}) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	n := 0
	if len(a) > len(b) {
		a, b = b, a
	}
	for k := range a {
		if _, ok := b[k]; ok {
			n++
		}
	}
	return n
}

package retrieval

import (
	"sort"

	"github.com/cheonanurc/urcbot/ai/textnorm"
	"github.com/cheonanurc/urcbot/store"
)

// docEntry is one indexed document, shared by the sparse index and the
// fuzzy corpus fallback.
type docEntry struct {
	ID      int64
	Title   string
	Section string
	URL     string
	Text    string
	tokens  int
}

// corpusIndex is an immutable snapshot of the document corpus with a
// term-frequency inverted index. Rebuilds produce a fresh snapshot
// that readers pick up atomically; an in-flight query keeps scoring
// against the snapshot it started on.
type corpusIndex struct {
	docs     []*docEntry
	byID     map[int64]*docEntry
	postings map[string]map[int64]int // term -> docID -> count
}

func buildCorpusIndex(documents []*store.Document) *corpusIndex {
	idx := &corpusIndex{
		docs:     make([]*docEntry, 0, len(documents)),
		byID:     make(map[int64]*docEntry, len(documents)),
		postings: make(map[string]map[int64]int),
	}

	for _, doc := range documents {
		terms := textnorm.Tokenize(doc.Title + " " + doc.Text)
		entry := &docEntry{
			ID:      doc.ID,
			Title:   doc.Title,
			Section: doc.Section,
			URL:     doc.URL,
			Text:    doc.Text,
			tokens:  len(terms),
		}
		idx.docs = append(idx.docs, entry)
		idx.byID[doc.ID] = entry

		for _, term := range terms {
			posting, ok := idx.postings[term]
			if !ok {
				posting = make(map[int64]int)
				idx.postings[term] = posting
			}
			posting[doc.ID]++
		}
	}

	return idx
}

// search scores documents by length-normalized term frequency over the
// query terms and returns the top k matches, best first.
func (idx *corpusIndex) search(query string, k int) []*store.DocumentMatch {
	terms := textnorm.Tokenize(query)
	if len(terms) == 0 || len(idx.docs) == 0 {
		return nil
	}

	scores := make(map[int64]float64)
	for _, term := range terms {
		for docID, count := range idx.postings[term] {
			entry := idx.byID[docID]
			if entry.tokens == 0 {
				continue
			}
			scores[docID] += float64(count) / float64(entry.tokens)
		}
	}

	matches := make([]*store.DocumentMatch, 0, len(scores))
	for docID, score := range scores {
		entry := idx.byID[docID]
		matches = append(matches, &store.DocumentMatch{
			Document: &store.Document{
				ID:      entry.ID,
				Title:   entry.Title,
				Section: entry.Section,
				URL:     entry.URL,
				Text:    entry.Text,
			},
			Score: score,
		})
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	if k > 0 && len(matches) > k {
		matches = matches[:k]
	}
	return matches
}

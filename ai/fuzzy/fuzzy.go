// Package fuzzy scores string similarity on a 0-100 scale.
// The blended scorer combines a token-set overlap ratio with a
// partial-substring ratio (60/40), which tolerates word reordering and
// partial mentions the way catalog aliases are actually typed.
package fuzzy

import (
	"sort"
	"strings"

	"github.com/cheonanurc/urcbot/ai/textnorm"
)

// Weights of the blended scorer.
const (
	tokenSetWeight = 0.6
	partialWeight  = 0.4
)

// Match is one scored candidate from a pool.
type Match struct {
	Value string // the pool string that matched
	Index int    // its position in the pool
	Score int    // 0-100
}

// Scorer is a pairwise similarity function on 0-100.
type Scorer func(a, b string) int

// Ratio returns the blended token-set/partial score of two strings.
func Ratio(a, b string) int {
	ts := TokenSetRatio(a, b)
	pr := PartialRatio(a, b)
	return int(tokenSetWeight*float64(ts) + partialWeight*float64(pr))
}

// TokenSetRatio compares the unique-token sets of a and b: the shared
// tokens are scored against each full token set and the best of the three
// pairings wins. Word order and duplicate tokens do not matter.
func TokenSetRatio(a, b string) int {
	ta, tb := tokenSet(a), tokenSet(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	var inter, diffA, diffB []string
	for _, t := range ta {
		if contains(tb, t) {
			inter = append(inter, t)
		} else {
			diffA = append(diffA, t)
		}
	}
	for _, t := range tb {
		if !contains(ta, t) {
			diffB = append(diffB, t)
		}
	}

	sect := strings.Join(inter, " ")
	s1 := joinNonEmpty(sect, strings.Join(diffA, " "))
	s2 := joinNonEmpty(sect, strings.Join(diffB, " "))

	best := simRatio(sect, s1)
	if r := simRatio(sect, s2); r > best {
		best = r
	}
	if r := simRatio(s1, s2); r > best {
		best = r
	}
	return best
}

// PartialRatio slides the shorter string over the longer one and returns
// the best window score. An exact substring always scores 100.
func PartialRatio(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 || len(rb) == 0 {
		return 0
	}
	short, long := ra, rb
	if len(short) > len(long) {
		short, long = long, short
	}
	if strings.Contains(string(long), string(short)) {
		return 100
	}
	best := 0
	for i := 0; i+len(short) <= len(long); i++ {
		window := long[i : i+len(short)]
		if r := simRatio(string(short), string(window)); r > best {
			best = r
			if best == 100 {
				break
			}
		}
	}
	// Also try the full strings so length mismatch alone cannot zero the score.
	if r := simRatio(string(ra), string(rb)); r > best {
		best = r
	}
	return best
}

// BestMatch returns the best blended match in pool with score >= minScore.
func BestMatch(query string, pool []string, minScore int) (Match, bool) {
	return BestMatchFunc(query, pool, minScore, Ratio)
}

// BestMatchFunc is BestMatch with a caller-supplied scorer.
func BestMatchFunc(query string, pool []string, minScore int, scorer Scorer) (Match, bool) {
	best := Match{Index: -1, Score: -1}
	for i, cand := range pool {
		s := scorer(query, cand)
		if s > best.Score {
			best = Match{Value: cand, Index: i, Score: s}
		}
	}
	if best.Index < 0 || best.Score < minScore {
		return Match{}, false
	}
	return best, true
}

// BestMatchDual runs the normalized pool first and, when that misses,
// retries the no-space pool with a no-space query. Catalog aliases are
// inconsistently spaced, so a single pass loses real matches.
func BestMatchDual(query string, pool, noSpacePool []string, minScore int) (Match, bool) {
	if m, ok := BestMatch(query, pool, minScore); ok {
		return m, true
	}
	return BestMatch(textnorm.NoSpace(query), noSpacePool, minScore)
}

// Extract returns up to limit matches with score >= minScore, best first.
func Extract(query string, pool []string, limit, minScore int, scorer Scorer) []Match {
	matches := make([]Match, 0, len(pool))
	for i, cand := range pool {
		if s := scorer(query, cand); s >= minScore {
			matches = append(matches, Match{Value: cand, Index: i, Score: s})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}

// simRatio is the normalized indel similarity of two strings on 0-100.
func simRatio(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	la, lb := len(ra), len(rb)
	if la == 0 && lb == 0 {
		return 100
	}
	if la == 0 || lb == 0 {
		return 0
	}
	dist := indelDistance(ra, rb)
	return int(100 * (1 - float64(dist)/float64(la+lb)))
}

// indelDistance is the edit distance with insertions and deletions only
// (substitution counts as delete+insert). Two rows keep it O(min) memory.
func indelDistance(a, b []rune) int {
	if len(a) < len(b) {
		a, b = b, a
	}
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		cur[0] = i
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				cur[j] = prev[j-1]
			} else {
				cur[j] = min(prev[j], cur[j-1]) + 1
			}
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}

func tokenSet(s string) []string {
	fields := strings.Fields(s)
	seen := make(map[string]struct{}, len(fields))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

func contains(set []string, s string) bool {
	for _, t := range set {
		if t == s {
			return true
		}
	}
	return false
}

func joinNonEmpty(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	default:
		return a + " " + b
	}
}

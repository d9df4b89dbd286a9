// Package faq answers recurring questions from a curated list before any
// retrieval machinery runs. Each question variant carries an intent hint
// so rule stages can prefer or block whole answer families.
package faq

import (
	"fmt"
	"regexp"
	"strings"

	_ "embed"

	"gopkg.in/yaml.v3"

	"github.com/cheonanurc/urcbot/ai/fuzzy"
	"github.com/cheonanurc/urcbot/ai/textnorm"
)

//go:embed faq.yaml
var faqYAML []byte

// Intent hints inferred from entry text.
const (
	HintContact  = "contact"
	HintCost     = "cost"
	HintSchedule = "schedule"
	HintAddress  = "address"
	HintInfo     = "info"
)

var (
	contactHintRegex  = regexp.MustCompile(`(연락|문의|전화|번호|메일|이메일)`)
	costHintRegex     = regexp.MustCompile(`(비용|가격|요금|수강료|참가비|투어비)`)
	scheduleHintRegex = regexp.MustCompile(`(일정|날짜|시간|기간|운영\s*시간|업무\s*시간)`)
	addressHintRegex  = regexp.MustCompile(`(주소|위치|오시는길|지도|약도|층|동)`)
)

// Entry is one YAML FAQ record.
type Entry struct {
	Questions []string `yaml:"questions"`
	Answer    string   `yaml:"answer"`
}

// Answer is a resolved FAQ hit.
type Answer struct {
	Text  string
	Hint  string
	Score int // 100 for containment hits
}

// Options narrow the candidate pool by intent hint.
type Options struct {
	PreferredHint string   // when set and matched by any candidate, others are dropped
	BlockedHints  []string // candidates with these hints are never returned
}

type candidate struct {
	raw    string
	norm   string
	answer string
	hint   string
}

// Index is the built FAQ matcher. Immutable after New.
type Index struct {
	cands []candidate
}

// New parses the embedded FAQ file and indexes every question variant.
func New() (*Index, error) {
	var doc struct {
		Entries []Entry `yaml:"entries"`
	}
	if err := yaml.Unmarshal(faqYAML, &doc); err != nil {
		return nil, fmt.Errorf("parse faq: %w", err)
	}
	if len(doc.Entries) == 0 {
		return nil, fmt.Errorf("faq has no entries")
	}

	x := &Index{}
	for _, e := range doc.Entries {
		hint := guessHint(e.Questions, e.Answer)
		for _, q := range e.Questions {
			n := textnorm.Normalize(q)
			if n == "" {
				continue
			}
			x.cands = append(x.cands, candidate{raw: q, norm: n, answer: e.Answer, hint: hint})
		}
	}
	return x, nil
}

// MustNew is New for wiring paths where the embedded file must parse.
func MustNew() *Index {
	x, err := New()
	if err != nil {
		panic(err)
	}
	return x
}

// minContainRunes is the shortest candidate allowed to match as a
// substring of a longer query. A generic one-worder like "전화" or "주소"
// inside "봉명 센터 전화" says nothing about which record the user wants.
const minContainRunes = 4

// Exact returns an answer when a candidate question and the query contain
// one another after normalization.
func (x *Index) Exact(query string, opt Options) (Answer, bool) {
	qn := textnorm.Normalize(query)
	if qn == "" {
		return Answer{}, false
	}
	for _, c := range x.filter(opt) {
		if strings.Contains(c.norm, qn) {
			return Answer{Text: c.answer, Hint: c.hint, Score: 100}, true
		}
		if len([]rune(c.norm)) >= minContainRunes && strings.Contains(qn, c.norm) {
			return Answer{Text: c.answer, Hint: c.hint, Score: 100}, true
		}
	}
	return Answer{}, false
}

// Match returns the best fuzzy answer scoring at or above threshold.
func (x *Index) Match(query string, threshold int, opt Options) (Answer, bool) {
	qn := textnorm.Normalize(query)
	if qn == "" {
		return Answer{}, false
	}
	pool := x.filter(opt)
	best, bestScore := -1, -1
	for i, c := range pool {
		if s := fuzzy.Ratio(qn, c.norm); s > bestScore {
			best, bestScore = i, s
		}
	}
	if best < 0 || bestScore < threshold {
		return Answer{}, false
	}
	return Answer{Text: pool[best].answer, Hint: pool[best].hint, Score: bestScore}, true
}

func (x *Index) filter(opt Options) []candidate {
	pool := x.cands
	if opt.PreferredHint != "" {
		var preferred []candidate
		for _, c := range pool {
			if c.hint == opt.PreferredHint {
				preferred = append(preferred, c)
			}
		}
		if len(preferred) > 0 {
			pool = preferred
		}
	}
	if len(opt.BlockedHints) > 0 {
		blocked := make(map[string]struct{}, len(opt.BlockedHints))
		for _, h := range opt.BlockedHints {
			blocked[h] = struct{}{}
		}
		var kept []candidate
		for _, c := range pool {
			if _, ok := blocked[c.hint]; !ok {
				kept = append(kept, c)
			}
		}
		pool = kept
	}
	return pool
}

func guessHint(questions []string, answer string) string {
	blob := strings.Join(append(append([]string(nil), questions...), answer), " ")
	switch {
	case contactHintRegex.MatchString(blob):
		return HintContact
	case costHintRegex.MatchString(blob):
		return HintCost
	case scheduleHintRegex.MatchString(blob):
		return HintSchedule
	case addressHintRegex.MatchString(blob):
		return HintAddress
	default:
		return HintInfo
	}
}

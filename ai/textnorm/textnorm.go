// Package textnorm canonicalizes user queries for matching.
// Korean and English queries share one normalizer: NFKC, lowercase,
// punctuation collapsed to spaces, politeness suffixes stripped, plus a
// no-space form for scripts where users join words unpredictably.
package textnorm

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// zero-width characters that survive copy-paste from web pages.
const zeroWidth = "​‌‍⁠ "

// Pre-compiled patterns for suffix and trailer stripping.
var (
	politeSuffixRegex = regexp.MustCompile(`(좀|조금|구체적으로|자세히|정확히|빨리|바로|지금|한번|한 번)$`)
	endingNoiseRegex  = regexp.MustCompile(`(인가요|인가|이란|이야|이에요|예요|에요|뭐야|뭐예요|알려줘요?|알려 ?주세요|가르쳐줘요?|보여줘요?|찾아줘요?|주세요|해주세요)$`)
	particleRegex     = regexp.MustCompile(`(요|죠|냐|니)$`)
	wsRegex           = regexp.MustCompile(`\s+`)
)

// Synonym is one entry of the declarative canonicalization table.
// Patterns are applied in order against the lowercased, punctuation-free text.
type Synonym struct {
	Pattern *regexp.Regexp
	Replace string
}

// Synonyms is the consolidated synonym/abbreviation table. Every component
// that compares user text against catalog text goes through this one table.
var Synonyms = []Synonym{
	{regexp.MustCompile(`이\s*메일|e[-\s]*mail`), "메일"},
	{regexp.MustCompile(`연락\s*처|전화\s*번호`), "전화"},
	{regexp.MustCompile(`오시는\s*길|오는\s*길|찾아오시는\s*길|찾아오는\s*길|약도`), "오시는길"},
	{regexp.MustCompile(`홈\s*페이지|누리집|사이트`), "홈페이지"},
	{regexp.MustCompile(`도시재생\s*선도\s*사업`), "도시재생선도사업"},
	{regexp.MustCompile(`(도시)?재생\s*플러스`), "도시재생+"},
	{regexp.MustCompile(`인스타그램|insta(gram)?\b|\big\b`), "인스타"},
	{regexp.MustCompile(`자료실`), "아카이브"},
	{regexp.MustCompile(`봉평`), "봉명"},
}

// Normalize returns the canonical matching form of a raw query:
// NFKC, lowercase, punctuation collapsed to single spaces, synonyms
// canonicalized, politeness/ending suffixes stripped.
// Pure and total; an unusable input simply normalizes to "".
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	s = norm.NFKC.String(s)
	s = stripNoise(s)
	for _, syn := range Synonyms {
		s = syn.Pattern.ReplaceAllString(s, syn.Replace)
	}
	s = strings.TrimSpace(wsRegex.ReplaceAllString(s, " "))
	s = strings.TrimSpace(politeSuffixRegex.ReplaceAllString(s, ""))
	s = strings.TrimSpace(endingNoiseRegex.ReplaceAllString(s, ""))
	s = strings.TrimSpace(particleRegex.ReplaceAllString(s, ""))
	return s
}

// NoSpace removes all whitespace. Used as a secondary comparison form
// because catalog aliases are inconsistently spaced.
func NoSpace(s string) string {
	return wsRegex.ReplaceAllString(s, "")
}

// NormalizeNoSpace is Normalize followed by NoSpace.
func NormalizeNoSpace(s string) string {
	return NoSpace(Normalize(s))
}

// stripNoise lowercases and replaces punctuation, symbols and zero-width
// characters with spaces in a single rune pass.
func stripNoise(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case strings.ContainsRune(zeroWidth, r):
			b.WriteRune(' ')
		case r == '+': // keep: "도시재생+" is a real section name
			b.WriteRune(r)
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			b.WriteRune(' ')
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + 32)
		default:
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

// AliasVariants expands one catalog alias into the spacing/casing variants
// registered into lookup pools: the normalized form and its no-space form.
func AliasVariants(phrase string) []string {
	if phrase == "" {
		return nil
	}
	n := Normalize(phrase)
	if n == "" {
		return nil
	}
	seen := map[string]struct{}{n: {}}
	variants := []string{n}
	if ns := NoSpace(n); ns != "" {
		if _, ok := seen[ns]; !ok {
			variants = append(variants, ns)
		}
	}
	return variants
}

// Tokenize splits a normalized query into tokens.
func Tokenize(s string) []string {
	n := Normalize(s)
	if n == "" {
		return nil
	}
	return strings.Fields(n)
}

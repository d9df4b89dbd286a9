// Package intent classifies normalized queries into a small fixed intent
// set and extracts the entity the user is talking about. Rules live in an
// ordered table evaluated top to bottom, so precedence is explicit and
// testable on its own.
package intent

import (
	"regexp"
	"strings"

	"github.com/cheonanurc/urcbot/ai/registry"
	"github.com/cheonanurc/urcbot/ai/session"
	"github.com/cheonanurc/urcbot/ai/textnorm"
)

// Intent labels.
const (
	Navigate   = "navigate"
	AskContact = "ask_contact"
	AskInfo    = "ask_info"
	General    = "general"
)

// Contact sub-types.
const (
	ContactEmail   = "email"
	ContactPhone   = "phone"
	ContactFax     = "fax"
	ContactHours   = "hours"
	ContactAddress = "address"
)

// CourseRef is a tour-course number mention extracted from the query.
type CourseRef struct {
	Kind   string // "일반코스", "전문코스" or "" when unqualified
	Number string // "1".."3"
}

// Result is the classification outcome for one query.
type Result struct {
	Intent      string
	ContactType string
	Entity      registry.Entity
	HasEntity   bool
	Tag         string
	Section     string // set for section broadcast queries
	Course      *CourseRef
	FromSession bool // entity inherited from session carry-over
	Rule        string
}

// Config tunes the fuzzy thresholds of entity extraction.
type Config struct {
	AliasScore int // minimum fuzzy alias score
	TagScore   int // minimum fuzzy tag score
}

// DefaultConfig mirrors the catalog's tuning.
func DefaultConfig() Config {
	return Config{AliasScore: 78, TagScore: 80}
}

// rule is one row of the ordered cascade. A rule fires when its pattern
// matches the normalized query and, when requireEntity is set, the query
// also mentions a catalog keyword.
type rule struct {
	name          string
	intent        string
	contactType   string
	pattern       *regexp.Regexp
	requireEntity bool
}

var (
	emailRegex = regexp.MustCompile(`(메일|mail)`)
	phoneRegex = regexp.MustCompile(`(전화|연락|문의처|통화|tel)`)
	faxRegex   = regexp.MustCompile(`(팩스|fax)`)
	hoursRegex = regexp.MustCompile(`(운영 ?시간|업무 ?시간|근무 ?시간|몇 ?시)`)
	navRegex   = regexp.MustCompile(`(어디|위치|오시는길|가는 ?길|가는 ?법|길 ?찾기|링크|바로가기|신청|참여|접수|페이지|사이트|홈페이지|url)`)
	addrRegex  = regexp.MustCompile(`(주소|위치|오시는길|지도|약도|찾아가|어떻게 가)`)
	infoRegex  = regexp.MustCompile(`(무엇|뭐|뭔지|설명|소개|어떻게|방법|절차|대상|자격|일정|기간|예산|비용|현황|진행|알려|궁금)`)

	courseRegex    = regexp.MustCompile(`(일반|전문)? ?코스 ?([0-9일이삼])`)
	pageIDRegex    = regexp.MustCompile(`(?:^| |/)(new|[0-9]{2,3})(?: |$)`)
	broadcastRegex = regexp.MustCompile(`(목록|전체|전부|정리|한눈|목차|메뉴|카테고리)`)
)

var koreanNumerals = map[string]string{"일": "1", "이": "2", "삼": "3"}

// rules is the cascade, most specific first. Address sits below navigate
// so that "오시는 길 센터" resolves the catalog page instead of the
// plain-text contact card.
var rules = []rule{
	{name: "contact-email", intent: AskContact, contactType: ContactEmail, pattern: emailRegex},
	{name: "contact-fax", intent: AskContact, contactType: ContactFax, pattern: faxRegex},
	{name: "contact-phone", intent: AskContact, contactType: ContactPhone, pattern: phoneRegex},
	{name: "contact-hours", intent: AskContact, contactType: ContactHours, pattern: hoursRegex},
	{name: "navigate-trigger", intent: Navigate, pattern: navRegex, requireEntity: true},
	{name: "contact-address", intent: AskContact, contactType: ContactAddress, pattern: addrRegex},
	{name: "ask-info", intent: AskInfo, pattern: infoRegex},
}

// Resolver classifies queries against the catalog.
type Resolver struct {
	reg *registry.Registry
	cfg Config
}

// NewResolver creates a resolver over the given registry.
func NewResolver(reg *registry.Registry, cfg Config) *Resolver {
	if cfg.AliasScore <= 0 {
		cfg.AliasScore = DefaultConfig().AliasScore
	}
	if cfg.TagScore <= 0 {
		cfg.TagScore = DefaultConfig().TagScore
	}
	return &Resolver{reg: reg, cfg: cfg}
}

// Classify resolves the intent and entity of a query. Prior session
// state, when given, resolves elliptical follow-ups: a turn without any
// extractable entity inherits the session's entity while the session is
// in navigation mode.
func (r *Resolver) Classify(query string, prior *session.State) Result {
	n := textnorm.Normalize(query)
	if n == "" {
		return Result{Intent: General, Rule: "empty"}
	}

	// Specific references beat every regex rule.
	if course, ok := r.extractCourse(n); ok {
		return course
	}
	if page, ok := r.extractPageID(n); ok {
		return page
	}
	if sect, ok := r.extractSection(n); ok {
		return sect
	}

	res := Result{Intent: General}
	for _, ru := range rules {
		if !ru.pattern.MatchString(n) {
			continue
		}
		if ru.requireEntity && !r.reg.ContainsKeyword(n) {
			continue
		}
		res.Intent = ru.intent
		res.ContactType = ru.contactType
		res.Rule = ru.name
		break
	}

	// Entity extraction is best-effort for every intent.
	if e, ok := r.reg.LookupAlias(n); ok {
		res.Entity, res.HasEntity = e, true
	} else if e, _, ok := r.reg.FuzzyAlias(n, r.cfg.AliasScore); ok {
		res.Entity, res.HasEntity = e, true
	}
	if tag, ok := r.reg.FuzzyTag(n, r.cfg.TagScore); ok {
		res.Tag = tag
	}

	if res.Intent == General {
		if res.HasEntity || res.Tag != "" {
			// A resolvable entity with no other signal reads as navigation.
			res.Intent = Navigate
			res.Rule = "entity-only"
		} else if prior != nil && prior.NavigationMode && (prior.LastAlias != "" || prior.LastTag != "") {
			res.Intent = Navigate
			res.Rule = "session-carryover"
			res.FromSession = true
			res.Tag = prior.LastTag
			if prior.LastAlias != "" {
				if e, ok := r.reg.LookupAlias(prior.LastAlias); ok {
					res.Entity, res.HasEntity = e, true
				}
			}
		}
	}
	return res
}

// extractCourse resolves numbered tour-course mentions. The numbered
// entity outranks whatever a generic fuzzy match would pick.
func (r *Resolver) extractCourse(n string) (Result, bool) {
	m := courseRegex.FindStringSubmatch(n)
	if m == nil {
		return Result{}, false
	}
	num := m[2]
	if k, ok := koreanNumerals[num]; ok {
		num = k
	}
	ref := &CourseRef{Number: num}
	var tries []string
	switch m[1] {
	case "일반":
		ref.Kind = "일반코스"
		tries = []string{"일반코스" + num}
	case "전문":
		ref.Kind = "전문코스"
		tries = []string{"전문코스" + num}
	default:
		tries = []string{"일반코스" + num, "전문코스" + num}
	}
	for _, alias := range tries {
		if e, ok := r.reg.LookupAlias(alias); ok {
			return Result{Intent: Navigate, Entity: e, HasEntity: true, Course: ref, Rule: "course-number"}, true
		}
	}
	return Result{}, false
}

// extractPageID resolves bare page references like "131", "/41" or "new".
func (r *Resolver) extractPageID(n string) (Result, bool) {
	m := pageIDRegex.FindStringSubmatch(n)
	if m == nil {
		return Result{}, false
	}
	e, ok := r.reg.ByPageID(m[1])
	if !ok {
		return Result{}, false
	}
	return Result{Intent: Navigate, Entity: e, HasEntity: true, Rule: "page-id"}, true
}

// extractSection detects section broadcast queries: the bare section
// name, or a section name next to a list-hint word.
func (r *Resolver) extractSection(n string) (Result, bool) {
	ns := textnorm.NoSpace(n)
	for _, s := range registry.SectionNames {
		sn := textnorm.NoSpace(s)
		if ns == sn {
			return Result{Intent: Navigate, Section: s, Rule: "section"}, true
		}
		if strings.Contains(ns, sn) && broadcastRegex.MatchString(n) {
			return Result{Intent: Navigate, Section: s, Rule: "section-broadcast"}, true
		}
	}
	return Result{}, false
}

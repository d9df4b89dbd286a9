// Package registry indexes the site's page catalog: named entities with
// URLs, aliases and tags, plus per-center contact records. Lookups go
// through normalized and no-space alias pools so spacing variants of the
// same alias resolve to the same entity.
package registry

import (
	"fmt"
	"net/url"
	"strings"

	_ "embed"

	"gopkg.in/yaml.v3"

	"github.com/cheonanurc/urcbot/ai/fuzzy"
	"github.com/cheonanurc/urcbot/ai/textnorm"
)

//go:embed catalog.yaml
var catalogYAML []byte

// Entity is one addressable page of the site.
type Entity struct {
	Name    string   `yaml:"name"`
	URL     string   `yaml:"url"`
	Section string   `yaml:"section"`
	Aliases []string `yaml:"aliases"`
	Tags    []string `yaml:"tags"`
}

// Contact is one physical center with its address book entry.
type Contact struct {
	Key     string   `yaml:"key"`
	Title   string   `yaml:"title"`
	Aliases []string `yaml:"aliases"`
	Address string   `yaml:"address"`
	Tel     string   `yaml:"tel"`
	Fax     string   `yaml:"fax"`
	Email   string   `yaml:"email"`
	Link    string   `yaml:"link"`
}

type catalog struct {
	Entities []Entity  `yaml:"entities"`
	Contacts []Contact `yaml:"contacts"`
}

// Registry holds the built alias/tag/page-id indexes. Immutable after New.
type Registry struct {
	entities []Entity
	contacts []Contact

	aliasPool   []string
	aliasNSPool []string
	aliasIdx    map[string]int // normalized alias -> entity index
	aliasNSIdx  map[string]int // no-space alias -> entity index

	tagPool   []string
	tagNSPool []string

	pageIdx    map[string]int // page id ("131", "new") -> entity index
	sectionIdx map[string][]int
}

// SectionNames lists the top navigation sections in site order.
var SectionNames = []string{"센터소개", "사업소개", "도시재생+", "커뮤니티", "아카이브"}

// New parses the embedded catalog and builds the lookup indexes.
// A normalized alias owned by two different entities is a configuration
// mistake and fails the build.
func New() (*Registry, error) {
	var cat catalog
	if err := yaml.Unmarshal(catalogYAML, &cat); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if len(cat.Entities) == 0 {
		return nil, fmt.Errorf("catalog has no entities")
	}

	r := &Registry{
		entities:   cat.Entities,
		contacts:   cat.Contacts,
		aliasIdx:   make(map[string]int),
		aliasNSIdx: make(map[string]int),
		pageIdx:    make(map[string]int),
		sectionIdx: make(map[string][]int),
	}

	tagSeen := make(map[string]struct{})
	for i, e := range r.entities {
		// The formal name doubles as an alias.
		for _, a := range append([]string{e.Name}, e.Aliases...) {
			for _, v := range textnorm.AliasVariants(a) {
				ns := textnorm.NoSpace(v)
				if prev, ok := r.aliasIdx[v]; ok {
					if prev != i {
						return nil, fmt.Errorf("alias %q claimed by both %q and %q",
							v, r.entities[prev].Name, e.Name)
					}
					continue
				}
				if prev, ok := r.aliasNSIdx[ns]; ok && prev != i {
					return nil, fmt.Errorf("alias %q claimed by both %q and %q",
						ns, r.entities[prev].Name, e.Name)
				}
				r.aliasPool = append(r.aliasPool, v)
				r.aliasNSPool = append(r.aliasNSPool, ns)
				r.aliasIdx[v] = i
				r.aliasNSIdx[ns] = i
			}
		}
		for _, t := range e.Tags {
			nt := textnorm.Normalize(t)
			if nt == "" {
				continue
			}
			if _, ok := tagSeen[nt]; !ok {
				tagSeen[nt] = struct{}{}
				r.tagPool = append(r.tagPool, nt)
				r.tagNSPool = append(r.tagNSPool, textnorm.NoSpace(nt))
			}
		}
		if id := pageID(e.URL); id != "" {
			if _, ok := r.pageIdx[id]; !ok {
				r.pageIdx[id] = i
			}
		}
		if e.Section != "" {
			r.sectionIdx[e.Section] = append(r.sectionIdx[e.Section], i)
		}
	}
	return r, nil
}

// MustNew is New for wiring paths where a broken embedded catalog
// cannot be recovered from.
func MustNew() *Registry {
	r, err := New()
	if err != nil {
		panic(err)
	}
	return r
}

// LookupAlias resolves an exact alias after normalization, trying the
// no-space form when the spaced form misses.
func (r *Registry) LookupAlias(q string) (Entity, bool) {
	n := textnorm.Normalize(q)
	if n == "" {
		return Entity{}, false
	}
	if i, ok := r.aliasIdx[n]; ok {
		return r.entities[i], true
	}
	if i, ok := r.aliasNSIdx[textnorm.NoSpace(n)]; ok {
		return r.entities[i], true
	}
	return Entity{}, false
}

// FuzzyAlias finds the closest alias at or above minScore and returns
// its entity.
func (r *Registry) FuzzyAlias(q string, minScore int) (Entity, int, bool) {
	n := textnorm.Normalize(q)
	if n == "" {
		return Entity{}, 0, false
	}
	m, ok := fuzzy.BestMatchDual(n, r.aliasPool, r.aliasNSPool, minScore)
	if !ok {
		return Entity{}, 0, false
	}
	// Pools are parallel, so the index maps back either way.
	return r.entities[r.aliasNSIdx[r.aliasNSPool[m.Index]]], m.Score, true
}

// FuzzyTag finds the closest tag at or above minScore, returning the
// original tag string.
func (r *Registry) FuzzyTag(q string, minScore int) (string, bool) {
	n := textnorm.Normalize(q)
	if n == "" || len(r.tagPool) == 0 {
		return "", false
	}
	if m, ok := fuzzy.BestMatch(n, r.tagPool, minScore); ok {
		return m.Value, true
	}
	if m, ok := fuzzy.BestMatch(textnorm.NoSpace(n), r.tagNSPool, minScore); ok {
		return r.tagPool[m.Index], true
	}
	return "", false
}

// EntitiesByTag returns every entity carrying the given tag.
func (r *Registry) EntitiesByTag(tag string) []Entity {
	nt := textnorm.Normalize(tag)
	if nt == "" {
		return nil
	}
	var out []Entity
	for _, e := range r.entities {
		for _, t := range e.Tags {
			if textnorm.Normalize(t) == nt {
				out = append(out, e)
				break
			}
		}
	}
	return out
}

// ByPageID resolves a raw page reference like "131", "/41" or "new".
func (r *Registry) ByPageID(id string) (Entity, bool) {
	id = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(id), "/"))
	if i, ok := r.pageIdx[id]; ok {
		return r.entities[i], true
	}
	return Entity{}, false
}

// Section returns the entities of one top navigation section, in
// catalog order. Used for section broadcasts.
func (r *Registry) Section(name string) []Entity {
	idx := r.sectionIdx[name]
	out := make([]Entity, 0, len(idx))
	for _, i := range idx {
		out = append(out, r.entities[i])
	}
	return out
}

// ContactsFor returns the centers whose aliases appear in the query,
// best match first; with no match every center is returned.
func (r *Registry) ContactsFor(q string) []Contact {
	n := textnorm.Normalize(q)
	ns := textnorm.NoSpace(n)
	type hit struct {
		c     Contact
		score int
	}
	var hits []hit
	for _, c := range r.contacts {
		score := 0
		for _, a := range c.Aliases {
			na := textnorm.Normalize(a)
			if na != "" && (strings.Contains(n, na) || strings.Contains(ns, textnorm.NoSpace(na))) {
				score += 2
			}
		}
		if score > 0 {
			hits = append(hits, hit{c, score})
		}
	}
	if len(hits) == 0 {
		return append([]Contact(nil), r.contacts...)
	}
	// Insertion-stable selection keeps catalog order on ties.
	out := make([]Contact, 0, len(hits))
	for len(hits) > 0 {
		best := 0
		for i := 1; i < len(hits); i++ {
			if hits[i].score > hits[best].score {
				best = i
			}
		}
		out = append(out, hits[best].c)
		hits = append(hits[:best], hits[best+1:]...)
	}
	return out
}

// ContainsKeyword reports whether any catalog alias or tag occurs inside
// the query, spacing ignored.
func (r *Registry) ContainsKeyword(q string) bool {
	n := textnorm.Normalize(q)
	if n == "" {
		return false
	}
	ns := textnorm.NoSpace(n)
	for _, a := range r.aliasPool {
		if strings.Contains(n, a) {
			return true
		}
	}
	for _, a := range r.aliasNSPool {
		if strings.Contains(ns, a) {
			return true
		}
	}
	for _, t := range r.tagPool {
		if strings.Contains(n, t) {
			return true
		}
	}
	return false
}

// AllAliases returns a copy of the normalized alias pool.
func (r *Registry) AllAliases() []string {
	return append([]string(nil), r.aliasPool...)
}

// AllTags returns a copy of the normalized tag pool.
func (r *Registry) AllTags() []string {
	return append([]string(nil), r.tagPool...)
}

// Entities returns the full catalog.
func (r *Registry) Entities() []Entity {
	return append([]Entity(nil), r.entities...)
}

// pageID extracts the trailing path element of a catalog URL when it
// looks like a site page reference.
func pageID(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || !strings.Contains(u.Host, "cheonanurc") {
		return ""
	}
	p := strings.Trim(u.Path, "/")
	if p == "" || strings.Contains(p, "/") {
		return ""
	}
	return strings.ToLower(p)
}

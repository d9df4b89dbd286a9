package store

import (
	"context"
	"regexp"
	"strings"

	"github.com/cheonanurc/urcbot/internal/profile"
)

// Driver is the database abstraction for the document corpus.
type Driver interface {
	Migrate(ctx context.Context) error

	CreateDocument(ctx context.Context, create *Document) (*Document, error)
	ListDocuments(ctx context.Context, find *FindDocument) ([]*Document, error)
	DeleteDocument(ctx context.Context, delete *DeleteDocument) error

	UpsertDocumentEmbedding(ctx context.Context, upsert *DocumentEmbedding) (*DocumentEmbedding, error)
	ListDocumentEmbeddings(ctx context.Context, find *FindDocumentEmbedding) ([]*DocumentEmbedding, error)

	// SearchDocumentsByEmbedding returns the closest documents by cosine
	// similarity, best first.
	SearchDocumentsByEmbedding(ctx context.Context, vector []float32, limit int) ([]*DocumentMatch, error)

	Close() error
}

// Store provides database access to the document corpus.
type Store struct {
	profile *profile.Profile
	driver  Driver
}

// New creates a new Store over the given driver.
func New(driver Driver, profile *profile.Profile) *Store {
	return &Store{driver: driver, profile: profile}
}

func (s *Store) GetDriver() Driver {
	return s.driver
}

func (s *Store) Migrate(ctx context.Context) error {
	return s.driver.Migrate(ctx)
}

func (s *Store) Close() error {
	return s.driver.Close()
}

func (s *Store) CreateDocument(ctx context.Context, create *Document) (*Document, error) {
	return s.driver.CreateDocument(ctx, create)
}

func (s *Store) ListDocuments(ctx context.Context, find *FindDocument) ([]*Document, error) {
	return s.driver.ListDocuments(ctx, find)
}

func (s *Store) DeleteDocument(ctx context.Context, delete *DeleteDocument) error {
	return s.driver.DeleteDocument(ctx, delete)
}

func (s *Store) UpsertDocumentEmbedding(ctx context.Context, upsert *DocumentEmbedding) (*DocumentEmbedding, error) {
	return s.driver.UpsertDocumentEmbedding(ctx, upsert)
}

func (s *Store) ListDocumentEmbeddings(ctx context.Context, find *FindDocumentEmbedding) ([]*DocumentEmbedding, error) {
	return s.driver.ListDocumentEmbeddings(ctx, find)
}

func (s *Store) SearchDocumentsByEmbedding(ctx context.Context, vector []float32, limit int) ([]*DocumentMatch, error) {
	return s.driver.SearchDocumentsByEmbedding(ctx, vector, limit)
}

// Program status extraction over crawled markdown.

const programStatusCategory = "도시재생+"

var (
	programSectionMarker = "## 현재 진행중인 프로그램"
	programItemRegex     = regexp.MustCompile(`(?m)^-\s*(.+)`)
)

// CurrentPrograms scans the 도시재생+ category for the running-programs
// markdown section and returns the deduplicated item list.
func (s *Store) CurrentPrograms(ctx context.Context) ([]string, error) {
	category := programStatusCategory
	docs, err := s.driver.ListDocuments(ctx, &FindDocument{Category: &category})
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var programs []string
	for _, d := range docs {
		for _, item := range parseProgramSection(d.Text) {
			if _, ok := seen[item]; ok {
				continue
			}
			seen[item] = struct{}{}
			programs = append(programs, item)
		}
	}
	return programs, nil
}

// parseProgramSection extracts list items from the running-programs
// section of one markdown document, stopping at the next heading.
func parseProgramSection(text string) []string {
	_, rest, found := strings.Cut(text, programSectionMarker)
	if !found {
		return nil
	}
	if next := strings.Index(rest, "## "); next >= 0 {
		rest = rest[:next]
	}
	var items []string
	for _, m := range programItemRegex.FindAllStringSubmatch(rest, -1) {
		if item := strings.TrimSpace(m[1]); item != "" {
			items = append(items, item)
		}
	}
	return items
}

// Package postgres is the production corpus driver. Dense search runs
// inside the database via pgvector cosine distance.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	// Import the PostgreSQL driver.
	_ "github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/cheonanurc/urcbot/internal/profile"
	"github.com/cheonanurc/urcbot/store"
)

type DB struct {
	db      *sql.DB
	profile *profile.Profile
}

// NewDB opens the postgres corpus database.
func NewDB(profile *profile.Profile) (store.Driver, error) {
	if profile.DSN == "" {
		return nil, errors.New("dsn required")
	}

	pgDB, err := sql.Open("postgres", profile.DSN)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open db with dsn: %s", profile.DSN)
	}

	return &DB{db: pgDB, profile: profile}, nil
}

func (d *DB) GetDB() *sql.DB {
	return d.db
}

func (d *DB) Close() error {
	return d.db.Close()
}

const schema = `
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS document (
	id BIGSERIAL PRIMARY KEY,
	title TEXT NOT NULL DEFAULT '',
	section TEXT NOT NULL DEFAULT '',
	url TEXT NOT NULL DEFAULT '',
	category TEXT NOT NULL DEFAULT '',
	text TEXT NOT NULL,
	created_ts BIGINT NOT NULL DEFAULT extract(epoch from now()),
	updated_ts BIGINT NOT NULL DEFAULT extract(epoch from now())
);

CREATE INDEX IF NOT EXISTS idx_document_category ON document (category);

CREATE TABLE IF NOT EXISTS document_embedding (
	id BIGSERIAL PRIMARY KEY,
	document_id BIGINT NOT NULL REFERENCES document (id) ON DELETE CASCADE,
	embedding vector(1536) NOT NULL,
	model TEXT NOT NULL,
	created_ts BIGINT NOT NULL DEFAULT extract(epoch from now()),
	updated_ts BIGINT NOT NULL DEFAULT extract(epoch from now()),
	UNIQUE (document_id, model)
);
`

// Migrate creates the corpus tables and the pgvector extension.
func (d *DB) Migrate(ctx context.Context) error {
	if _, err := d.db.ExecContext(ctx, schema); err != nil {
		return errors.Wrap(err, "failed to migrate postgres schema")
	}
	return nil
}

// placeholder returns the numbered parameter marker for position n.
func placeholder(n int) string {
	return fmt.Sprintf("$%d", n)
}

// placeholders returns "$1, $2, ... $n".
func placeholders(n int) string {
	s := ""
	for i := 1; i <= n; i++ {
		if i > 1 {
			s += ", "
		}
		s += placeholder(i)
	}
	return s
}

package postgres

import (
	"context"
	"strings"
	"time"

	"github.com/pgvector/pgvector-go"
	"github.com/pkg/errors"

	"github.com/cheonanurc/urcbot/store"
)

func (d *DB) CreateDocument(ctx context.Context, create *store.Document) (*store.Document, error) {
	now := time.Now().Unix()
	stmt := `
		INSERT INTO document (title, section, url, category, text, created_ts, updated_ts)
		VALUES (` + placeholders(7) + `)
		RETURNING id
	`
	err := d.db.QueryRowContext(ctx, stmt,
		create.Title, create.Section, create.URL, create.Category, create.Text, now, now,
	).Scan(&create.ID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create document")
	}
	create.CreatedTs, create.UpdatedTs = now, now
	return create, nil
}

func (d *DB) ListDocuments(ctx context.Context, find *store.FindDocument) ([]*store.Document, error) {
	where, args := []string{"1 = 1"}, []any{}
	if find.ID != nil {
		where, args = append(where, "id = "+placeholder(len(args)+1)), append(args, *find.ID)
	}
	if find.Category != nil {
		where, args = append(where, "category = "+placeholder(len(args)+1)), append(args, *find.Category)
	}

	query := `
		SELECT id, title, section, url, category, text, created_ts, updated_ts
		FROM document
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY id
	`
	if find.Limit > 0 {
		query += " LIMIT " + placeholder(len(args)+1)
		args = append(args, find.Limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list documents")
	}
	defer rows.Close()

	list := []*store.Document{}
	for rows.Next() {
		var doc store.Document
		if err := rows.Scan(
			&doc.ID, &doc.Title, &doc.Section, &doc.URL, &doc.Category, &doc.Text,
			&doc.CreatedTs, &doc.UpdatedTs,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan document")
		}
		list = append(list, &doc)
	}
	return list, rows.Err()
}

func (d *DB) DeleteDocument(ctx context.Context, delete *store.DeleteDocument) error {
	if delete.ID == nil {
		return errors.New("document id required")
	}
	if _, err := d.db.ExecContext(ctx, "DELETE FROM document WHERE id = $1", *delete.ID); err != nil {
		return errors.Wrap(err, "failed to delete document")
	}
	return nil
}

func (d *DB) UpsertDocumentEmbedding(ctx context.Context, upsert *store.DocumentEmbedding) (*store.DocumentEmbedding, error) {
	now := time.Now().Unix()
	stmt := `
		INSERT INTO document_embedding (document_id, embedding, model, created_ts, updated_ts)
		VALUES (` + placeholders(5) + `)
		ON CONFLICT (document_id, model)
		DO UPDATE SET
			embedding = EXCLUDED.embedding,
			updated_ts = EXCLUDED.updated_ts
		RETURNING id
	`
	err := d.db.QueryRowContext(ctx, stmt,
		upsert.DocumentID, pgvector.NewVector(upsert.Embedding), upsert.Model, now, now,
	).Scan(&upsert.ID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to upsert document embedding")
	}
	upsert.UpdatedTs = now
	return upsert, nil
}

func (d *DB) ListDocumentEmbeddings(ctx context.Context, find *store.FindDocumentEmbedding) ([]*store.DocumentEmbedding, error) {
	where, args := []string{"1 = 1"}, []any{}
	if find.DocumentID != nil {
		where, args = append(where, "document_id = "+placeholder(len(args)+1)), append(args, *find.DocumentID)
	}
	if find.Model != nil {
		where, args = append(where, "model = "+placeholder(len(args)+1)), append(args, *find.Model)
	}

	query := `
		SELECT id, document_id, embedding, model, created_ts, updated_ts
		FROM document_embedding
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY document_id
	`
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list document embeddings")
	}
	defer rows.Close()

	list := []*store.DocumentEmbedding{}
	for rows.Next() {
		var emb store.DocumentEmbedding
		var vector pgvector.Vector
		if err := rows.Scan(
			&emb.ID, &emb.DocumentID, &vector, &emb.Model, &emb.CreatedTs, &emb.UpdatedTs,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan document embedding")
		}
		emb.Embedding = vector.Slice()
		list = append(list, &emb)
	}
	return list, rows.Err()
}

// SearchDocumentsByEmbedding ranks documents by pgvector cosine
// distance; the returned score is 1 - distance, best first.
func (d *DB) SearchDocumentsByEmbedding(ctx context.Context, vector []float32, limit int) ([]*store.DocumentMatch, error) {
	if limit <= 0 {
		limit = 10
	}
	query := `
		SELECT d.id, d.title, d.section, d.url, d.category, d.text, d.created_ts, d.updated_ts,
			1 - (e.embedding <=> $1) AS score
		FROM document_embedding e
		JOIN document d ON d.id = e.document_id
		ORDER BY e.embedding <=> $1
		LIMIT $2
	`
	rows, err := d.db.QueryContext(ctx, query, pgvector.NewVector(vector), limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to search documents by embedding")
	}
	defer rows.Close()

	matches := []*store.DocumentMatch{}
	for rows.Next() {
		var doc store.Document
		var score float64
		if err := rows.Scan(
			&doc.ID, &doc.Title, &doc.Section, &doc.URL, &doc.Category, &doc.Text,
			&doc.CreatedTs, &doc.UpdatedTs, &score,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan document match")
		}
		matches = append(matches, &store.DocumentMatch{Document: &doc, Score: score})
	}
	return matches, rows.Err()
}

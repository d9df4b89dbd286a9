package sqlite

import (
	"context"
	"encoding/binary"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/cheonanurc/urcbot/store"
)

func (d *DB) CreateDocument(ctx context.Context, create *store.Document) (*store.Document, error) {
	now := time.Now().Unix()
	stmt := `
		INSERT INTO document (title, section, url, category, text, created_ts, updated_ts)
		VALUES (?, ?, ?, ?, ?, ?, ?)
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
		where, args = append(where, "id = ?"), append(args, *find.ID)
	}
	if find.Category != nil {
		where, args = append(where, "category = ?"), append(args, *find.Category)
	}

	query := `
		SELECT id, title, section, url, category, text, created_ts, updated_ts
		FROM document
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY id
	`
	if find.Limit > 0 {
		query += " LIMIT ?"
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
	if _, err := d.db.ExecContext(ctx, "DELETE FROM document WHERE id = ?", *delete.ID); err != nil {
		return errors.Wrap(err, "failed to delete document")
	}
	if _, err := d.db.ExecContext(ctx, "DELETE FROM document_embedding WHERE document_id = ?", *delete.ID); err != nil {
		return errors.Wrap(err, "failed to delete document embeddings")
	}
	return nil
}

func (d *DB) UpsertDocumentEmbedding(ctx context.Context, upsert *store.DocumentEmbedding) (*store.DocumentEmbedding, error) {
	now := time.Now().Unix()
	stmt := `
		INSERT INTO document_embedding (document_id, embedding, model, created_ts, updated_ts)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (document_id, model)
		DO UPDATE SET embedding = excluded.embedding, updated_ts = excluded.updated_ts
		RETURNING id
	`
	err := d.db.QueryRowContext(ctx, stmt,
		upsert.DocumentID, vectorToBlob(upsert.Embedding), upsert.Model, now, now,
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
		where, args = append(where, "document_id = ?"), append(args, *find.DocumentID)
	}
	if find.Model != nil {
		where, args = append(where, "model = ?"), append(args, *find.Model)
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
		var blob []byte
		if err := rows.Scan(
			&emb.ID, &emb.DocumentID, &blob, &emb.Model, &emb.CreatedTs, &emb.UpdatedTs,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan document embedding")
		}
		emb.Embedding = blobToVector(blob)
		list = append(list, &emb)
	}
	return list, rows.Err()
}

// SearchDocumentsByEmbedding computes cosine similarity in the
// application layer. Fine for a municipal-site corpus; the postgres
// driver pushes this into pgvector instead.
func (d *DB) SearchDocumentsByEmbedding(ctx context.Context, vector []float32, limit int) ([]*store.DocumentMatch, error) {
	embeddings, err := d.ListDocumentEmbeddings(ctx, &store.FindDocumentEmbedding{})
	if err != nil {
		return nil, err
	}
	if len(embeddings) == 0 {
		return []*store.DocumentMatch{}, nil
	}

	type scored struct {
		id    int64
		score float64
	}
	candidates := make([]scored, 0, len(embeddings))
	for _, emb := range embeddings {
		candidates = append(candidates, scored{id: emb.DocumentID, score: cosine(vector, emb.Embedding)})
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })
	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}

	matches := make([]*store.DocumentMatch, 0, len(candidates))
	for _, c := range candidates {
		id := c.id
		docs, err := d.ListDocuments(ctx, &store.FindDocument{ID: &id})
		if err != nil {
			return nil, err
		}
		if len(docs) == 0 {
			continue
		}
		matches = append(matches, &store.DocumentMatch{Document: docs[0], Score: c.score})
	}
	return matches, nil
}

func vectorToBlob(vec []float32) []byte {
	buf := make([]byte, len(vec)*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:i*4+4], math.Float32bits(v))
	}
	return buf
}

func blobToVector(blob []byte) []float32 {
	vec := make([]float32, len(blob)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4 : i*4+4]))
	}
	return vec
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

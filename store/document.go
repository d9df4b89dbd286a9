package store

// Document is one crawled corpus page, the unit the retrieval pipeline
// ranks and the generator cites.
type Document struct {
	ID        int64
	Title     string
	Section   string
	URL       string
	Category  string
	Text      string
	CreatedTs int64
	UpdatedTs int64
}

// FindDocument filters ListDocuments. Nil fields match everything.
type FindDocument struct {
	ID       *int64
	Category *string
	Limit    int
}

// DeleteDocument identifies documents to remove.
type DeleteDocument struct {
	ID *int64
}

// DocumentEmbedding is the dense vector of one document under one model.
type DocumentEmbedding struct {
	ID         int64
	DocumentID int64
	Embedding  []float32
	Model      string
	CreatedTs  int64
	UpdatedTs  int64
}

// FindDocumentEmbedding filters ListDocumentEmbeddings.
type FindDocumentEmbedding struct {
	DocumentID *int64
	Model      *string
}

// DocumentMatch is a document with its dense similarity score.
type DocumentMatch struct {
	Document *Document
	Score    float64
}

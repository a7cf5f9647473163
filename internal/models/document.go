package models

// NoSourceDocument is returned as the answer source when retrieval finds nothing.
const NoSourceDocument = "No source document found"

// MetadataEmbeddingModel is the metadata key recording which embedding model
// produced a stored vector.
const MetadataEmbeddingModel = "embedding_model"

// Document is the cleaned content of one scraped page.
type Document struct {
	URL     string
	Content string
}

// Answer is what the query workflow returns to callers.
type Answer struct {
	Text   string `json:"text"`
	Source string `json:"source"`
}

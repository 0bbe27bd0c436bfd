package mcp

// IndexDocumentInput defines the input schema for the index_document tool.
type IndexDocumentInput struct {
	Path         string `json:"path" jsonschema:"absolute path of the document to index"`
	OriginalName string `json:"original_name,omitempty" jsonschema:"display filename; defaults to the path basename"`
}

// IndexDocumentOutput defines the output schema for the index_document tool.
type IndexDocumentOutput struct {
	FileID string `json:"file_id" jsonschema:"stable id for all later operations on this document"`
	Status string `json:"status" jsonschema:"initial indexing status, normally uploaded"`
}

// DocumentStatusInput defines the input schema for the document_status tool.
type DocumentStatusInput struct {
	FileID string `json:"file_id" jsonschema:"document id returned by index_document"`
}

// DocumentStatus is the wire shape of one indexing status record.
type DocumentStatus struct {
	FileID       string `json:"file_id"`
	OriginalName string `json:"original_filename,omitempty"`
	Status       string `json:"status"`
	Message      string `json:"message,omitempty"`
	Attempts     int    `json:"attempts"`
	IndexedCount int    `json:"indexed_count"`
	UpdatedAt    string `json:"updated_at"`
}

// ListDocumentsInput defines the input schema for the list_documents tool.
type ListDocumentsInput struct{}

// ListDocumentsOutput defines the output schema for the list_documents tool.
type ListDocumentsOutput struct {
	Documents []DocumentStatus `json:"documents" jsonschema:"all known documents, most recently updated first"`
}

// ReindexDocumentInput defines the input schema for the reindex_document tool.
type ReindexDocumentInput struct {
	FileID string `json:"file_id" jsonschema:"document id to reindex"`
}

// ReindexDocumentOutput defines the output schema for the reindex_document tool.
type ReindexDocumentOutput struct {
	FileID    string `json:"file_id"`
	Submitted bool   `json:"submitted" jsonschema:"false when the document is already being indexed"`
}

// DeleteDocumentInput defines the input schema for the delete_document tool.
type DeleteDocumentInput struct {
	FileID string `json:"file_id" jsonschema:"document id to delete"`
}

// DeleteDocumentOutput defines the output schema for the delete_document tool.
type DeleteDocumentOutput struct {
	FileID       string `json:"file_id"`
	DeletedCount int    `json:"deleted_count" jsonschema:"number of index entries removed"`
}

// ClearDocumentsInput defines the input schema for the clear_documents tool.
type ClearDocumentsInput struct {
	Confirm bool `json:"confirm" jsonschema:"must be true; clearing is irreversible"`
}

// ClearDocumentsOutput defines the output schema for the clear_documents tool.
type ClearDocumentsOutput struct {
	FilesDeleted   int `json:"files_deleted"`
	VectorsCleared int `json:"vectors_cleared"`
}

// SearchDocumentsInput defines the input schema for the search_documents tool.
type SearchDocumentsInput struct {
	Query       string `json:"query" jsonschema:"the search query to execute"`
	TopK        int    `json:"top_k,omitempty" jsonschema:"maximum number of results, default 5, max 100"`
	FileID      string `json:"file_id,omitempty" jsonschema:"restrict results to one document"`
	WithContext bool   `json:"with_context,omitempty" jsonschema:"also return a token-budgeted context block for answering"`
}

// SearchDocumentsOutput defines the output schema for the search_documents tool.
type SearchDocumentsOutput struct {
	Results []SearchResultOutput `json:"results" jsonschema:"matches ordered by ascending distance"`
	Context string               `json:"context,omitempty" jsonschema:"formatted context block when with_context was set"`
}

// SearchResultOutput defines a single search result.
type SearchResultOutput struct {
	Document   string  `json:"document" jsonschema:"matched chunk text"`
	Distance   float32 `json:"distance" jsonschema:"cosine distance to the query, lower is closer"`
	FileID     string  `json:"file_id"`
	ChunkIndex int     `json:"chunk_index"`
	Source     string  `json:"source" jsonschema:"original filename the chunk came from"`
}

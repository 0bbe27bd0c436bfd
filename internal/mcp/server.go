package mcp

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/servibot/docindex/internal/status"
	"github.com/servibot/docindex/pkg/engine"
	"github.com/servibot/docindex/pkg/version"
)

// serverName identifies this server to MCP clients.
const serverName = "docindex"

// Server bridges MCP clients with the document indexing engine. Every
// tool is a thin adapter over one engine operation.
type Server struct {
	mcp    *mcp.Server
	engine *engine.Engine
	logger *slog.Logger
}

// ToolInfo describes a registered tool.
type ToolInfo struct {
	Name        string
	Description string
}

// NewServer creates an MCP server over eng.
func NewServer(eng *engine.Engine) (*Server, error) {
	if eng == nil {
		return nil, errors.New("engine is required")
	}

	s := &Server{
		engine: eng,
		logger: slog.Default(),
	}

	s.mcp = mcp.NewServer(
		&mcp.Implementation{
			Name:    serverName,
			Version: version.Version,
		},
		nil,
	)

	s.registerTools()
	s.registerResources()

	return s, nil
}

// MCPServer returns the underlying SDK server.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// Info returns the server name and version.
func (s *Server) Info() (name, ver string) {
	return serverName, version.Version
}

// ListTools returns all registered tools.
func (s *Server) ListTools() []ToolInfo {
	return []ToolInfo{
		{Name: "index_document", Description: "Upload and index a document (pdf, txt, md, png, jpg). Returns a file_id; indexing runs in the background, poll document_status for progress."},
		{Name: "document_status", Description: "Check the indexing status of a document: uploaded, indexing, indexed, retrying, or error with the failure message."},
		{Name: "list_documents", Description: "List every known document with its indexing status, most recently updated first."},
		{Name: "reindex_document", Description: "Re-run indexing for a document, resetting its retry budget. Use after fixing the cause of a permanent failure."},
		{Name: "delete_document", Description: "Remove a document: its index entries, status record, and stored file."},
		{Name: "clear_documents", Description: "Remove ALL documents, index entries, and statuses. Irreversible; requires confirm=true."},
		{Name: "search_documents", Description: "Semantic search over indexed documents. Returns matching chunks ordered by distance, optionally with a ready-to-use context block."},
	}
}

// CallTool invokes a tool by name with raw arguments. The stdio
// transport goes through the typed handlers instead; this path serves
// in-process callers.
func (s *Server) CallTool(ctx context.Context, name string, args map[string]any) (any, error) {
	switch name {
	case "index_document":
		return s.handleIndexDocument(ctx, IndexDocumentInput{
			Path:         stringArg(args, "path"),
			OriginalName: stringArg(args, "original_name"),
		})
	case "document_status":
		return s.handleDocumentStatus(ctx, DocumentStatusInput{FileID: stringArg(args, "file_id")})
	case "list_documents":
		return s.handleListDocuments(ctx)
	case "reindex_document":
		return s.handleReindexDocument(ctx, ReindexDocumentInput{FileID: stringArg(args, "file_id")})
	case "delete_document":
		return s.handleDeleteDocument(ctx, DeleteDocumentInput{FileID: stringArg(args, "file_id")})
	case "clear_documents":
		return s.handleClearDocuments(ctx, ClearDocumentsInput{Confirm: boolArg(args, "confirm")})
	case "search_documents":
		return s.handleSearchDocuments(ctx, SearchDocumentsInput{
			Query:       stringArg(args, "query"),
			TopK:        intArg(args, "top_k"),
			FileID:      stringArg(args, "file_id"),
			WithContext: boolArg(args, "with_context"),
		})
	default:
		return nil, NewMethodNotFoundError(name)
	}
}

func (s *Server) handleIndexDocument(ctx context.Context, input IndexDocumentInput) (*IndexDocumentOutput, error) {
	if strings.TrimSpace(input.Path) == "" {
		return nil, NewInvalidParamsError("path parameter is required")
	}

	requestID := generateRequestID()
	s.logger.Info("index_document started",
		slog.String("request_id", requestID),
		slog.String("path", input.Path))

	doc, err := s.engine.SubmitUpload(ctx, input.Path, input.OriginalName)
	if err != nil {
		s.logger.Warn("index_document failed",
			slog.String("request_id", requestID),
			slog.String("error", err.Error()))
		return nil, MapError(err)
	}

	s.logger.Info("index_document accepted",
		slog.String("request_id", requestID),
		slog.String("file_id", doc.FileID))

	return &IndexDocumentOutput{
		FileID: doc.FileID,
		Status: string(status.StateUploaded),
	}, nil
}

func (s *Server) handleDocumentStatus(_ context.Context, input DocumentStatusInput) (*DocumentStatus, error) {
	if input.FileID == "" {
		return nil, NewInvalidParamsError("file_id parameter is required")
	}

	rec, err := s.engine.Status(input.FileID)
	if err != nil {
		return nil, MapError(err)
	}

	out := toDocumentStatus(rec)
	return &out, nil
}

func (s *Server) handleListDocuments(_ context.Context) (*ListDocumentsOutput, error) {
	records := s.engine.ListStatuses()
	out := &ListDocumentsOutput{Documents: make([]DocumentStatus, 0, len(records))}
	for _, rec := range records {
		out.Documents = append(out.Documents, toDocumentStatus(rec))
	}
	return out, nil
}

func (s *Server) handleReindexDocument(ctx context.Context, input ReindexDocumentInput) (*ReindexDocumentOutput, error) {
	if input.FileID == "" {
		return nil, NewInvalidParamsError("file_id parameter is required")
	}

	submitted, err := s.engine.Reindex(ctx, input.FileID)
	if err != nil {
		return nil, MapError(err)
	}

	return &ReindexDocumentOutput{FileID: input.FileID, Submitted: submitted}, nil
}

func (s *Server) handleDeleteDocument(ctx context.Context, input DeleteDocumentInput) (*DeleteDocumentOutput, error) {
	if input.FileID == "" {
		return nil, NewInvalidParamsError("file_id parameter is required")
	}

	deleted, err := s.engine.Delete(ctx, input.FileID)
	if err != nil {
		return nil, MapError(err)
	}

	return &DeleteDocumentOutput{FileID: input.FileID, DeletedCount: deleted}, nil
}

func (s *Server) handleClearDocuments(ctx context.Context, input ClearDocumentsInput) (*ClearDocumentsOutput, error) {
	if !input.Confirm {
		return nil, NewInvalidParamsError("clearing removes every document; pass confirm=true to proceed")
	}

	result, err := s.engine.ClearAll(ctx)
	if err != nil {
		return nil, MapError(err)
	}

	return &ClearDocumentsOutput{
		FilesDeleted:   result.FilesDeleted,
		VectorsCleared: result.VectorsCleared,
	}, nil
}

func (s *Server) handleSearchDocuments(ctx context.Context, input SearchDocumentsInput) (*SearchDocumentsOutput, error) {
	if strings.TrimSpace(input.Query) == "" {
		return nil, NewInvalidParamsError("query parameter is required and must be a non-empty string")
	}

	start := time.Now()
	requestID := generateRequestID()
	s.logger.Info("search_documents started",
		slog.String("request_id", requestID),
		slog.String("query", input.Query),
		slog.Int("top_k", input.TopK))

	results, err := s.engine.Search(ctx, input.Query, input.TopK, input.FileID)
	if err != nil {
		s.logger.Error("search_documents failed",
			slog.String("request_id", requestID),
			slog.Duration("duration", time.Since(start)),
			slog.String("error", err.Error()))
		return nil, MapError(err)
	}

	out := &SearchDocumentsOutput{Results: make([]SearchResultOutput, 0, len(results))}
	for _, r := range results {
		out.Results = append(out.Results, SearchResultOutput{
			Document:   r.Document,
			Distance:   r.Distance,
			FileID:     r.Metadata.FileID,
			ChunkIndex: r.Metadata.ChunkIndex,
			Source:     r.Metadata.Source,
		})
	}

	if input.WithContext {
		out.Context = buildContextBlock(s.engine, results)
	}

	s.logger.Info("search_documents completed",
		slog.String("request_id", requestID),
		slog.Duration("duration", time.Since(start)),
		slog.Int("result_count", len(out.Results)))

	return out, nil
}

// registerTools registers all tools with the MCP server.
func (s *Server) registerTools() {
	tools := s.ListTools()
	byName := make(map[string]string, len(tools))
	for _, t := range tools {
		byName[t.Name] = t.Description
	}

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "index_document",
		Description: byName["index_document"],
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input IndexDocumentInput) (*mcp.CallToolResult, *IndexDocumentOutput, error) {
		out, err := s.handleIndexDocument(ctx, input)
		return nil, out, err
	})

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "document_status",
		Description: byName["document_status"],
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input DocumentStatusInput) (*mcp.CallToolResult, *DocumentStatus, error) {
		out, err := s.handleDocumentStatus(ctx, input)
		return nil, out, err
	})

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "list_documents",
		Description: byName["list_documents"],
	}, func(ctx context.Context, _ *mcp.CallToolRequest, _ ListDocumentsInput) (*mcp.CallToolResult, *ListDocumentsOutput, error) {
		out, err := s.handleListDocuments(ctx)
		return nil, out, err
	})

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "reindex_document",
		Description: byName["reindex_document"],
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input ReindexDocumentInput) (*mcp.CallToolResult, *ReindexDocumentOutput, error) {
		out, err := s.handleReindexDocument(ctx, input)
		return nil, out, err
	})

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "delete_document",
		Description: byName["delete_document"],
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input DeleteDocumentInput) (*mcp.CallToolResult, *DeleteDocumentOutput, error) {
		out, err := s.handleDeleteDocument(ctx, input)
		return nil, out, err
	})

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "clear_documents",
		Description: byName["clear_documents"],
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input ClearDocumentsInput) (*mcp.CallToolResult, *ClearDocumentsOutput, error) {
		out, err := s.handleClearDocuments(ctx, input)
		return nil, out, err
	})

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "search_documents",
		Description: byName["search_documents"],
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input SearchDocumentsInput) (*mcp.CallToolResult, *SearchDocumentsOutput, error) {
		out, err := s.handleSearchDocuments(ctx, input)
		return nil, out, err
	})

	s.logger.Debug("MCP tools registered", slog.Int("count", len(tools)))
}

// Serve runs the server over the given transport until ctx is done.
func (s *Server) Serve(ctx context.Context, transport string) error {
	s.logger.Info("Starting MCP server", slog.String("transport", transport))

	switch transport {
	case "stdio":
		err := s.mcp.Run(ctx, &mcp.StdioTransport{})
		if err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error("MCP server stopped with error",
				slog.String("error", err.Error()))
			return err
		}
		s.logger.Info("MCP server stopped")
		return nil
	default:
		return fmt.Errorf("unknown transport: %s (supported: stdio)", transport)
	}
}

func toDocumentStatus(rec status.Record) DocumentStatus {
	return DocumentStatus{
		FileID:       rec.FileID,
		OriginalName: rec.OriginalName,
		Status:       string(rec.Status),
		Message:      rec.Message,
		Attempts:     rec.Attempts,
		IndexedCount: rec.IndexedCount,
		UpdatedAt:    rec.UpdatedAt.Format(time.RFC3339),
	}
}

func stringArg(args map[string]any, key string) string {
	v, _ := args[key].(string)
	return v
}

func boolArg(args map[string]any, key string) bool {
	v, _ := args[key].(bool)
	return v
}

func intArg(args map[string]any, key string) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}

// generateRequestID creates a short unique request ID for log correlation.
func generateRequestID() string {
	b := make([]byte, 4)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

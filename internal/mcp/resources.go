package mcp

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Resource URIs exposed by the server.
const (
	ResourceURICollections = "docindex://collections"
	ResourceURIMetrics     = "docindex://metrics"
)

// ResourceInfo describes an available resource.
type ResourceInfo struct {
	URI      string
	Name     string
	MIMEType string
}

// ResourceContent is the content of one resource read.
type ResourceContent struct {
	URI      string
	Content  string
	MIMEType string
}

// MetricsOutput is the payload of the metrics resource.
type MetricsOutput struct {
	Query  any `json:"query,omitempty"`
	Ingest any `json:"ingest,omitempty"`
}

// ListResources returns all available resources.
func (s *Server) ListResources() []ResourceInfo {
	return []ResourceInfo{
		{URI: ResourceURICollections, Name: "collections", MIMEType: "application/json"},
		{URI: ResourceURIMetrics, Name: "metrics", MIMEType: "application/json"},
	}
}

// ReadResource reads a resource by URI. In-process counterpart of the
// SDK resource handlers.
func (s *Server) ReadResource(ctx context.Context, uri string) (*ResourceContent, error) {
	switch uri {
	case ResourceURICollections:
		payload, err := s.collectionsPayload(ctx)
		if err != nil {
			return nil, err
		}
		return &ResourceContent{URI: uri, Content: payload, MIMEType: "application/json"}, nil
	case ResourceURIMetrics:
		payload, err := s.metricsPayload()
		if err != nil {
			return nil, err
		}
		return &ResourceContent{URI: uri, Content: payload, MIMEType: "application/json"}, nil
	default:
		return nil, NewResourceNotFoundError(uri)
	}
}

// registerResources registers the collections and metrics resources.
func (s *Server) registerResources() {
	s.mcp.AddResource(
		&mcp.Resource{
			Name:        "collections",
			URI:         ResourceURICollections,
			Description: "Vector collection introspection: name, entry count, and sample entries",
			MIMEType:    "application/json",
		},
		s.makeResourceHandler(ResourceURICollections),
	)

	s.mcp.AddResource(
		&mcp.Resource{
			Name:        "metrics",
			URI:         ResourceURIMetrics,
			Description: "Ingestion and query telemetry snapshots",
			MIMEType:    "application/json",
		},
		s.makeResourceHandler(ResourceURIMetrics),
	)

	s.logger.Debug("MCP resources registered", slog.Int("count", 2))
}

func (s *Server) makeResourceHandler(uri string) mcp.ResourceHandler {
	return func(ctx context.Context, _ *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		content, err := s.ReadResource(ctx, uri)
		if err != nil {
			return nil, err
		}
		return &mcp.ReadResourceResult{
			Contents: []*mcp.ResourceContents{
				{
					URI:      content.URI,
					MIMEType: content.MIMEType,
					Text:     content.Content,
				},
			},
		}, nil
	}
}

func (s *Server) collectionsPayload(ctx context.Context) (string, error) {
	infos, err := s.engine.Collections(ctx)
	if err != nil {
		return "", MapError(err)
	}
	payload, err := json.MarshalIndent(infos, "", "  ")
	if err != nil {
		return "", MapError(err)
	}
	return string(payload), nil
}

func (s *Server) metricsPayload() (string, error) {
	var out MetricsOutput
	if qm := s.engine.QueryMetrics(); qm != nil {
		out.Query = qm.Snapshot()
	}
	if im := s.engine.IngestMetrics(); im != nil {
		out.Ingest = im.Snapshot()
	}
	payload, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return "", MapError(err)
	}
	return string(payload), nil
}

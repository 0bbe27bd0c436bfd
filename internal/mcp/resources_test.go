package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServer_ListResources(t *testing.T) {
	s := newTestServer(t)

	resources := s.ListResources()

	require.Len(t, resources, 2)
	uris := make(map[string]string)
	for _, r := range resources {
		uris[r.URI] = r.MIMEType
	}
	assert.Equal(t, "application/json", uris[ResourceURICollections])
	assert.Equal(t, "application/json", uris[ResourceURIMetrics])
}

func TestServer_ReadResource_Collections(t *testing.T) {
	// Given: a server with one indexed document
	s := newTestServer(t)
	indexAndWait(t, s, writeDocument(t, "report.txt", sampleText))

	// When: reading the collections resource
	content, err := s.ReadResource(context.Background(), ResourceURICollections)
	require.NoError(t, err)

	// Then: the payload is JSON naming the collection
	assert.Equal(t, "application/json", content.MIMEType)
	assert.True(t, json.Valid([]byte(content.Content)))
	assert.Contains(t, content.Content, "servibot_docs")
}

func TestServer_ReadResource_Metrics(t *testing.T) {
	// Given: a server with telemetry disabled
	s := newTestServer(t)

	// When: reading the metrics resource
	content, err := s.ReadResource(context.Background(), ResourceURIMetrics)
	require.NoError(t, err)

	// Then: the payload is still valid JSON
	assert.True(t, json.Valid([]byte(content.Content)))
}

func TestServer_ReadResource_UnknownURI(t *testing.T) {
	s := newTestServer(t)

	_, err := s.ReadResource(context.Background(), "docindex://bogus")

	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrCodeMethodNotFound, mcpErr.Code)
}

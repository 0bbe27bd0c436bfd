// Package mcp implements the Model Context Protocol server for docindex.
package mcp

import (
	"context"
	"errors"
	"fmt"

	dxerrors "github.com/servibot/docindex/internal/errors"
)

// Custom MCP error codes for docindex.
const (
	// ErrCodeDocumentNotFound indicates no document exists with the given id.
	ErrCodeDocumentNotFound = -32001

	// ErrCodeEmbeddingFailed indicates embedding generation failed.
	ErrCodeEmbeddingFailed = -32002

	// ErrCodeTimeout indicates the request timed out.
	ErrCodeTimeout = -32003

	// ErrCodeUnsupportedFormat indicates the document format is not indexable.
	ErrCodeUnsupportedFormat = -32004

	// ErrCodeFileTooLarge indicates an upload over the size cap.
	ErrCodeFileTooLarge = -32005

	// Standard JSON-RPC error codes.
	ErrCodeInvalidRequest = -32600
	ErrCodeMethodNotFound = -32601
	ErrCodeInvalidParams  = -32602
	ErrCodeInternalError  = -32603
)

// MCPError represents an MCP protocol error with code and message.
type MCPError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// MapError converts internal errors to MCP errors. Engine errors map by
// code where one is specific, then by category.
func MapError(err error) *MCPError {
	if err == nil {
		return nil
	}

	var engineErr *dxerrors.EngineError
	if errors.As(err, &engineErr) {
		return mapEngineError(engineErr)
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &MCPError{Code: ErrCodeTimeout, Message: "Request timed out."}
	case errors.Is(err, context.Canceled):
		return &MCPError{Code: ErrCodeTimeout, Message: "Request was canceled."}
	default:
		return &MCPError{Code: ErrCodeInternalError, Message: "Internal server error."}
	}
}

// NewInvalidParamsError creates an error for invalid parameters.
func NewInvalidParamsError(msg string) *MCPError {
	return &MCPError{Code: ErrCodeInvalidParams, Message: msg}
}

// NewMethodNotFoundError creates an error for unknown tools.
func NewMethodNotFoundError(name string) *MCPError {
	return &MCPError{
		Code:    ErrCodeMethodNotFound,
		Message: fmt.Sprintf("Tool '%s' not found.", name),
	}
}

// NewResourceNotFoundError creates an error for unknown resources.
func NewResourceNotFoundError(uri string) *MCPError {
	return &MCPError{
		Code:    ErrCodeMethodNotFound,
		Message: fmt.Sprintf("Resource '%s' not found.", uri),
	}
}

func mapEngineError(ee *dxerrors.EngineError) *MCPError {
	message := ee.Message
	if ee.Suggestion != "" {
		message = fmt.Sprintf("%s %s", ee.Message, ee.Suggestion)
	}

	switch ee.Code {
	case dxerrors.ErrCodeFileNotFound:
		return &MCPError{Code: ErrCodeDocumentNotFound, Message: message}
	case dxerrors.ErrCodeFileTooLarge:
		return &MCPError{Code: ErrCodeFileTooLarge, Message: message}
	case dxerrors.ErrCodeUnsupportedFormat, dxerrors.ErrCodeProtectedDocument:
		return &MCPError{Code: ErrCodeUnsupportedFormat, Message: message}
	case dxerrors.ErrCodeEmbedTimeout:
		return &MCPError{Code: ErrCodeTimeout, Message: message}
	case dxerrors.ErrCodeEmbedUnavailable, dxerrors.ErrCodeEmbeddingFailed:
		return &MCPError{Code: ErrCodeEmbeddingFailed, Message: message}
	}

	switch ee.Category {
	case dxerrors.CategoryValidation:
		return &MCPError{Code: ErrCodeInvalidParams, Message: message}
	case dxerrors.CategoryNetwork:
		return &MCPError{Code: ErrCodeTimeout, Message: message}
	default:
		return &MCPError{Code: ErrCodeInternalError, Message: message}
	}
}

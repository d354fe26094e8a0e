package sdk

import (
	"encoding/json"
	"time"

	"github.com/ethanbaker/api/pkg/api_types"
)

// ApiResponse represents a standard API response structure
type ApiResponse[T any] struct {
	Status  api_types.StatusType `json:"status"`          // Status message
	Code    int                  `json:"code"`            // Status code
	Message string               `json:"message"`         // Human-readable message
	Data    T                    `json:"data,omitempty"`  // Optional data field for successful responses
	Error   any                  `json:"error,omitempty"` // Optional errors field for error responses
}

// AsGinResponse converts the ApiResponse to a format suitable for Gin framework
func (r ApiResponse[T]) AsGinResponse() (int, any) {
	return r.Code, r
}

// AsJSON converts the ApiResponse to a format suitable for JSON responses
func (r ApiResponse[T]) AsJSON() (string, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func NewSuccessResponse[T any](message string, data T) ApiResponse[T] {
	return ApiResponse[T]{
		Status:  api_types.StatusSuccess,
		Code:    200,
		Message: message,
		Data:    data,
	}
}

// NewErrorResponse builds an error envelope. Error values are rendered as
// their message so they survive JSON encoding
func NewErrorResponse(code int, message string, err any) ApiResponse[any] {
	if e, ok := err.(error); ok {
		err = e.Error()
	}

	return ApiResponse[any]{
		Status:  api_types.StatusError,
		Code:    code,
		Message: message,
		Error:   err,
	}
}

/** Chat Module DTOs */

// Entry is one transcript entry, role "user" or "assistant"
type Entry struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Session is the view of a session
type Session struct {
	ID           string  `json:"id"`
	Binding      string  `json:"binding"`          // none, data or search
	Source       string  `json:"source,omitempty"` // Filename or search provider
	Bound        bool    `json:"bound"`
	Transcript   []Entry `json:"transcript"`
	InputEnabled bool    `json:"input_enabled"`
	Placeholder  string  `json:"placeholder"`
	Version      uint64  `json:"version"`
}

// IngestResponse is returned after an upload or a search binding
type IngestResponse struct {
	Transcript   []Entry `json:"transcript"`
	InputEnabled bool    `json:"input_enabled"`
	Placeholder  string  `json:"placeholder"`
}

// BindSearchRequest binds a session to web search. An empty provider uses
// the server default
type BindSearchRequest struct {
	Provider string `json:"provider"`
}

// PostMessageRequest represents the request body for adding a message to a session
type PostMessageRequest struct {
	Content string  `json:"content"`
	History []Entry `json:"history,omitempty"` // Client-held transcript, the stored one is used when absent
}

// PostMessageResponse represents the response body after adding a message to a session
type PostMessageResponse struct {
	Transcript []Entry `json:"transcript"`
	Input      string  `json:"input"`
}

// TranscriptRecord is one archived transcript entry
type TranscriptRecord struct {
	ID        uint      `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	SessionID string    `json:"session_id"`
	Source    string    `json:"source"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
}

// TranscriptSessionResponse lists every archived record of one session
type TranscriptSessionResponse struct {
	SessionID string             `json:"session_id"`
	Count     int                `json:"count"`
	Records   []TranscriptRecord `json:"records"`
}

// TranscriptSearchResponse lists archive matches for a query
type TranscriptSearchResponse struct {
	Query   string             `json:"query"`
	Count   int                `json:"count"`
	Records []TranscriptRecord `json:"records"`
}

package sdk

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path/filepath"
)

const chatBase = "/api/chat"

// Create a new session with a server generated id
func (c *Client) CreateSession(ctx context.Context) (*Session, error) {
	var out ApiResponse[Session]
	if err := c.doJSON(ctx, http.MethodPost, chatBase+"/sessions", nil, &out); err != nil {
		return nil, err
	}
	if err := checkStatus("create session", out); err != nil {
		return nil, err
	}

	if out.Data.ID == "" {
		return nil, fmt.Errorf("no id returned")
	}

	return &out.Data, nil
}

// Get a session by UUID, creating it on the server if needed
func (c *Client) GetSession(ctx context.Context, uuid string) (*Session, error) {
	path := fmt.Sprintf("%s/sessions/%s", chatBase, url.PathEscape(uuid))

	var out ApiResponse[Session]
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	if err := checkStatus("get session", out); err != nil {
		return nil, err
	}

	return &out.Data, nil
}

// Upload a CSV file to a session
func (c *Client) Upload(ctx context.Context, uuid, filename string, r io.Reader) (*IngestResponse, error) {
	path := fmt.Sprintf("%s/sessions/%s/upload", chatBase, url.PathEscape(uuid))

	var out ApiResponse[IngestResponse]
	if err := c.doMultipart(ctx, path, "file", filepath.Base(filename), r, &out); err != nil {
		return nil, err
	}
	if err := checkStatus("upload file", out); err != nil {
		return nil, err
	}

	return &out.Data, nil
}

// Bind a session to web search
func (c *Client) BindSearch(ctx context.Context, uuid string, req *BindSearchRequest) (*IngestResponse, error) {
	path := fmt.Sprintf("%s/sessions/%s/search", chatBase, url.PathEscape(uuid))

	var out ApiResponse[IngestResponse]
	if err := c.doJSON(ctx, http.MethodPost, path, req, &out); err != nil {
		return nil, err
	}
	if err := checkStatus("bind search", out); err != nil {
		return nil, err
	}

	return &out.Data, nil
}

// Send a message to a session provided by UUID
func (c *Client) SendMessage(ctx context.Context, uuid string, msg *PostMessageRequest) (*PostMessageResponse, error) {
	path := fmt.Sprintf("%s/sessions/%s/message", chatBase, url.PathEscape(uuid))

	var out ApiResponse[PostMessageResponse]
	if err := c.doJSON(ctx, http.MethodPost, path, msg, &out); err != nil {
		return nil, err
	}
	if err := checkStatus("send message", out); err != nil {
		return nil, err
	}

	return &out.Data, nil
}

// Clear a session by UUID and return the fresh view
func (c *Client) ClearSession(ctx context.Context, uuid string) (*Session, error) {
	path := fmt.Sprintf("%s/sessions/%s", chatBase, url.PathEscape(uuid))

	var out ApiResponse[Session]
	if err := c.doJSON(ctx, http.MethodDelete, path, nil, &out); err != nil {
		return nil, err
	}

	return &out.Data, nil
}

// Search archived transcripts for query
func (c *Client) SearchTranscripts(ctx context.Context, query string) (*TranscriptSearchResponse, error) {
	path := chatBase + "/transcripts/search?q=" + url.QueryEscape(query)

	var out ApiResponse[TranscriptSearchResponse]
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}

	return &out.Data, nil
}

// GetSessionTranscript returns the archived records of one session
func (c *Client) GetSessionTranscript(ctx context.Context, uuid string) (*TranscriptSessionResponse, error) {
	path := fmt.Sprintf("%s/transcripts/sessions/%s", chatBase, url.PathEscape(uuid))

	var out ApiResponse[TranscriptSessionResponse]
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}

	return &out.Data, nil
}

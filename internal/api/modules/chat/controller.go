package chat_module

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/ethanbaker/tabletalk/internal/chat"
	"github.com/ethanbaker/tabletalk/internal/stores/session"
	"github.com/ethanbaker/tabletalk/internal/stores/transcript"
	"github.com/ethanbaker/tabletalk/pkg/agent"
	"github.com/ethanbaker/tabletalk/pkg/sdk"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CreateSession handles POST requests to create a new session
func CreateSession(c *gin.Context) {
	view, err := GetService().Open(uuid.NewString())
	if err != nil {
		c.JSON(sdk.NewErrorResponse(http.StatusInternalServerError, "Failed to create session", err).AsGinResponse())
		return
	}

	c.JSON(sdk.NewSuccessResponse("Session created successfully", toSDKSession(view)).AsGinResponse())
}

// GetSession handles GET requests to open a session by UUID
func GetSession(c *gin.Context) {
	view, err := GetService().Open(c.Param("uuid"))
	if err != nil {
		c.JSON(errorResponse("Failed to open session", err))
		return
	}

	c.JSON(sdk.NewSuccessResponse("Session retrieved successfully", toSDKSession(view)).AsGinResponse())
}

// UploadFile handles multipart uploads of a CSV file in the "file" field
func UploadFile(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(sdk.NewErrorResponse(http.StatusBadRequest, "Could not read uploaded file", err).AsGinResponse())
		return
	}

	file, err := header.Open()
	if err != nil {
		c.JSON(sdk.NewErrorResponse(http.StatusBadRequest, "Could not open uploaded file", err).AsGinResponse())
		return
	}
	defer file.Close()

	result, err := GetService().Ingest(c.Request.Context(), c.Param("uuid"), header.Filename, file)
	if err != nil {
		c.JSON(errorResponse("Failed to ingest file", err))
		return
	}

	c.JSON(sdk.NewSuccessResponse("File processed", toSDKIngest(result)).AsGinResponse())
}

// BindSearch handles POST requests binding a session to web search
func BindSearch(c *gin.Context) {
	// An empty body selects the default provider
	var req sdk.BindSearchRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(sdk.NewErrorResponse(http.StatusBadRequest, "Could not parse request body", err).AsGinResponse())
			return
		}
	}

	result, err := GetService().BindSearch(c.Request.Context(), c.Param("uuid"), req.Provider)
	if err != nil {
		c.JSON(errorResponse("Failed to bind search", err))
		return
	}

	c.JSON(sdk.NewSuccessResponse("Search bound successfully", toSDKIngest(result)).AsGinResponse())
}

// PostMessage handles POST requests running one conversation turn
func PostMessage(c *gin.Context) {
	// Parse request body
	var req sdk.PostMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(sdk.NewErrorResponse(http.StatusBadRequest, "Could not parse request body", err).AsGinResponse())
		return
	}

	var prior []agent.Entry
	if req.History != nil {
		prior = make([]agent.Entry, len(req.History))
		for i, e := range req.History {
			prior[i] = agent.Entry{Role: agent.Role(e.Role), Content: e.Content}
		}
	}

	result, err := GetService().Turn(c.Request.Context(), c.Param("uuid"), req.Content, prior)
	if err != nil {
		c.JSON(errorResponse("Failed to add message", err))
		return
	}

	c.JSON(sdk.NewSuccessResponse("Message sent successfully", sdk.PostMessageResponse{
		Transcript: toSDKEntries(result.Transcript),
		Input:      result.Input,
	}).AsGinResponse())
}

// DeleteSession handles DELETE requests clearing a session
func DeleteSession(c *gin.Context) {
	view, err := GetService().Clear(c.Request.Context(), c.Param("uuid"))
	if err != nil {
		c.JSON(errorResponse("Failed to clear session", err))
		return
	}

	c.JSON(sdk.NewSuccessResponse("Session cleared successfully", toSDKSession(view)).AsGinResponse())
}

// SearchTranscripts handles GET requests searching the transcript archive
func SearchTranscripts(c *gin.Context) {
	archive := GetService().Archive()
	if archive == nil {
		c.JSON(sdk.NewErrorResponse(http.StatusNotFound, "Transcript archive is disabled", nil).AsGinResponse())
		return
	}

	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		c.JSON(sdk.NewErrorResponse(http.StatusBadRequest, "Query parameter 'q' is required", nil).AsGinResponse())
		return
	}

	records, err := archive.Search(c.Request.Context(), query)
	if err != nil {
		c.JSON(sdk.NewErrorResponse(http.StatusInternalServerError, "Failed to search transcripts", err).AsGinResponse())
		return
	}

	c.JSON(sdk.NewSuccessResponse("Transcripts retrieved successfully", sdk.TranscriptSearchResponse{
		Query:   query,
		Count:   len(records),
		Records: toSDKRecords(records),
	}).AsGinResponse())
}

// GetSessionTranscript handles GET requests for one session's archived records
func GetSessionTranscript(c *gin.Context) {
	archive := GetService().Archive()
	if archive == nil {
		c.JSON(sdk.NewErrorResponse(http.StatusNotFound, "Transcript archive is disabled", nil).AsGinResponse())
		return
	}

	id := c.Param("uuid")
	if !session.ValidID(id) {
		c.JSON(errorResponse("Invalid session ID", chat.ErrInvalidSession))
		return
	}

	records, err := archive.Session(c.Request.Context(), id)
	if err != nil {
		c.JSON(sdk.NewErrorResponse(http.StatusInternalServerError, "Failed to read session transcript", err).AsGinResponse())
		return
	}

	c.JSON(sdk.NewSuccessResponse("Session transcript retrieved successfully", sdk.TranscriptSessionResponse{
		SessionID: id,
		Count:     len(records),
		Records:   toSDKRecords(records),
	}).AsGinResponse())
}

// errorResponse maps service errors onto status codes
func errorResponse(message string, err error) (int, any) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, chat.ErrInvalidSession), errors.Is(err, chat.ErrInvalidTranscript):
		code = http.StatusBadRequest
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		code = http.StatusServiceUnavailable
	}

	return sdk.NewErrorResponse(code, message, err).AsGinResponse()
}

// Helper method to convert transcript entries to sdk entries
func toSDKEntries(entries []agent.Entry) []sdk.Entry {
	out := make([]sdk.Entry, len(entries))
	for i, e := range entries {
		out[i] = sdk.Entry{Role: string(e.Role), Content: e.Content}
	}
	return out
}

// Helper method to convert a session view to an sdk session
func toSDKSession(view chat.View) sdk.Session {
	return sdk.Session{
		ID:           view.ID,
		Binding:      string(view.Binding),
		Source:       view.Source,
		Bound:        view.Bound,
		Transcript:   toSDKEntries(view.Transcript),
		InputEnabled: view.InputEnabled,
		Placeholder:  view.Placeholder,
		Version:      view.Version,
	}
}

func toSDKIngest(result chat.IngestResult) sdk.IngestResponse {
	return sdk.IngestResponse{
		Transcript:   toSDKEntries(result.Transcript),
		InputEnabled: result.InputEnabled,
		Placeholder:  result.Placeholder,
	}
}

func toSDKRecords(records []*transcript.Record) []sdk.TranscriptRecord {
	out := make([]sdk.TranscriptRecord, len(records))
	for i, r := range records {
		out[i] = sdk.TranscriptRecord{
			ID:        r.ID,
			CreatedAt: r.CreatedAt,
			SessionID: r.SessionID,
			Source:    r.Source,
			Role:      r.Role,
			Content:   r.Content,
		}
	}
	return out
}

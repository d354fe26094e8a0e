package chat_module

import (
	"fmt"
	"log"

	"github.com/ethanbaker/api/pkg/api_key"
	"github.com/ethanbaker/tabletalk/pkg/utils"
	"github.com/gin-gonic/gin"
)

// Register routes for the chat module
func RegisterRoutes(g *gin.RouterGroup, cfg *utils.Config) {
	// Make api key validator
	validator, err := makeApiKeyValidator(cfg)
	if err != nil {
		log.Fatalf("failed to create API key validator: %v", err)
	}

	// Create base group for chat routes
	group := g.Group("/chat")
	group.Handlers = append(group.Handlers, api_key.APIKeyHeaderHandler(validator))

	// Session routes
	group.POST("/sessions", CreateSession)             // Create a session with a new UUID
	group.GET("/sessions/:uuid", GetSession)           // Open a session, creating it if needed
	group.POST("/sessions/:uuid/upload", UploadFile)   // Upload a CSV and bind a data agent
	group.POST("/sessions/:uuid/search", BindSearch)   // Bind a web search agent
	group.POST("/sessions/:uuid/message", PostMessage) // Run a conversation turn
	group.DELETE("/sessions/:uuid", DeleteSession)     // Clear a session

	// Archive routes
	group.GET("/transcripts/search", SearchTranscripts)            // Search archived transcripts
	group.GET("/transcripts/sessions/:uuid", GetSessionTranscript) // Archived records of one session
}

// makeApiKeyValidator checks if the provided API key is valid
func makeApiKeyValidator(cfg *utils.Config) (func(key string) bool, error) {
	// Get api key from config
	apiKey := cfg.Get("API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("API_KEY not set in environment")
	}

	return func(key string) bool {
		return apiKey == key
	}, nil
}

package chat

import "fmt"

// Placeholders shown in the input box
const (
	PlaceholderUpload = "Upload a CSV to begin..."
	PlaceholderData   = "Ask a question about the data..."
	PlaceholderSearch = "Ask a question to search the web..."
)

// Fixed assistant replies
const (
	MessageUnbound     = "Error: Please upload a CSV file first."
	MessageEmptyOutput = "Sorry, I encountered an error."
	MessageTimeout     = "An error occurred: the request timed out, please try again."
)

func uploadedMessage(name string, rows int) string {
	return fmt.Sprintf("File '%s' uploaded successfully with %d rows. What would you like to know?", name, rows)
}

func searchReadyMessage(provider string) string {
	return fmt.Sprintf("Web search via %s is ready. What would you like to know?", provider)
}

func parseErrorMessage(err error) string {
	return fmt.Sprintf("Error processing file: %v", err)
}

func turnErrorMessage(err error) string {
	return fmt.Sprintf("An error occurred: %v", err)
}

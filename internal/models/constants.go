// Package models contains data types and constants for the grantchat backend API.
package models

// Endpoint paths, relative to the configured API base URL.
// EndSession and Conversations take the user id as the next path segment;
// History takes the user id and the conversation id.
const (
	EndpointStartSession  = "/start_session"
	EndpointChat          = "/chat"
	EndpointEndSession    = "/end_session/"
	EndpointConversations = "/conversations/"
	EndpointHistory       = "/history/"
	EndpointSaveChat      = "/save_chat"
)

// Fixed user-visible fallback texts. A failed exchange always shows one of
// these in place of the expected content.
const (
	// FallbackGreetingError replaces the greeting when the session could not be opened
	FallbackGreetingError = "Could not start the session."
	// FallbackGreetingEmpty replaces the greeting when the backend answered without one
	FallbackGreetingEmpty = "No message was received from the assistant."
	// FallbackReply replaces a bot reply when the exchange failed
	FallbackReply = "There was an error processing your message."
	// SessionEndedNotice is the system turn appended when a conversation terminates
	SessionEndedNotice = "The session has ended."
)

// DefaultHeaders returns the headers sent with every backend request
func DefaultHeaders() map[string]string {
	return map[string]string{
		"Accept":       "application/json",
		"Content-Type": "application/json; charset=utf-8",
		"User-Agent":   "grantchat/0.1",
	}
}

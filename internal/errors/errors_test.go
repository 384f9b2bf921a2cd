package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestNetworkError(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewNetworkError("start session", "/start_session", cause)

	expected := "network error during start session at /start_session: connection refused"
	if err.Error() != expected {
		t.Errorf("Error() = %s, want %s", err.Error(), expected)
	}

	if !errors.Is(err, ErrTransport) {
		t.Error("Expected NetworkError to match ErrTransport")
	}

	if !errors.Is(err, cause) {
		t.Error("Expected NetworkError to unwrap to its cause")
	}

	if errors.Is(err, ErrMarkup) {
		t.Error("Expected NetworkError not to match ErrMarkup")
	}
}

func TestAPIError(t *testing.T) {
	err := NewAPIError(404, "/chat", "session not found")

	expected := "API error [404] at /chat: session not found"
	if err.Error() != expected {
		t.Errorf("Error() = %s, want %s", err.Error(), expected)
	}

	noStatus := NewAPIError(0, "/chat", "boom")
	if noStatus.Error() != "API error at /chat: boom" {
		t.Errorf("Error() = %s", noStatus.Error())
	}

	if !IsTransportError(err) {
		t.Error("Expected APIError to be a transport error")
	}
}

func TestAPIError_WithBody(t *testing.T) {
	long := make([]byte, 600)
	for i := range long {
		long[i] = 'x'
	}

	err := NewAPIError(500, "/chat", "failed").WithBody(string(long))
	if len(err.Body) != 515 {
		t.Errorf("expected truncated body of 515 bytes, got %d", len(err.Body))
	}
}

func TestDecodeError(t *testing.T) {
	err := NewDecodeError("/start_session", "missing message")

	if err.Error() != "decode error at /start_session: missing message" {
		t.Errorf("Error() = %s", err.Error())
	}
	if !errors.Is(err, ErrTransport) {
		t.Error("Expected DecodeError to match ErrTransport")
	}
}

func TestMarkupError(t *testing.T) {
	tests := []struct {
		name string
		err  *MarkupError
		want string
	}{
		{
			name: "with tag",
			err:  NewMarkupError("callout", 12, "unclosed tag"),
			want: "markup error at offset 12 ({% callout %}): unclosed tag",
		},
		{
			name: "without tag",
			err:  NewMarkupError("", 3, "stray delimiter"),
			want: "markup error at offset 3: stray delimiter",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Error() != tt.want {
				t.Errorf("Error() = %s, want %s", tt.err.Error(), tt.want)
			}
			if !IsMarkupError(tt.err) {
				t.Error("Expected IsMarkupError to be true")
			}
			if IsTransportError(tt.err) {
				t.Error("Expected markup error not to be a transport error")
			}
		})
	}
}

func TestHelpers_Wrapped(t *testing.T) {
	apiErr := NewAPIError(502, "/chat", "bad gateway")
	wrapped := fmt.Errorf("send message: %w", apiErr)

	if GetHTTPStatus(wrapped) != 502 {
		t.Errorf("GetHTTPStatus() = %d, want 502", GetHTTPStatus(wrapped))
	}
	if GetEndpoint(wrapped) != "/chat" {
		t.Errorf("GetEndpoint() = %s, want /chat", GetEndpoint(wrapped))
	}
	if IsNetworkError(wrapped) {
		t.Error("APIError should not be reported as network error")
	}

	netErr := fmt.Errorf("outer: %w", NewNetworkError("chat", "/chat", errors.New("reset")))
	if !IsNetworkError(netErr) {
		t.Error("Expected wrapped NetworkError to be detected")
	}
	if GetHTTPStatus(netErr) != 0 {
		t.Error("NetworkError carries no status")
	}
	if GetEndpoint(netErr) != "/chat" {
		t.Errorf("GetEndpoint() = %s, want /chat", GetEndpoint(netErr))
	}

	decErr := NewDecodeError("/history", "not an array")
	if GetEndpoint(decErr) != "/history" {
		t.Errorf("GetEndpoint() = %s, want /history", GetEndpoint(decErr))
	}

	if GetEndpoint(errors.New("plain")) != "" {
		t.Error("plain errors carry no endpoint")
	}
}

func TestIsAuthError(t *testing.T) {
	if !IsAuthError(fmt.Errorf("login: %w", ErrInvalidCredentials)) {
		t.Error("wrapped ErrInvalidCredentials should be an auth error")
	}
	if !IsAuthError(ErrNotAuthenticated) {
		t.Error("ErrNotAuthenticated should be an auth error")
	}
	if IsAuthError(NewAPIError(401, "/chat", "unauthorized")) {
		t.Error("backend statuses are transport errors, not auth errors")
	}
}

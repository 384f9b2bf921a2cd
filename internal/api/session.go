package api

import (
	"context"
	"strings"

	http "github.com/bogdanfinn/fhttp"
	"github.com/tidwall/gjson"

	apierrors "github.com/diogo/grantchat/internal/errors"
	"github.com/diogo/grantchat/internal/logging"
	"github.com/diogo/grantchat/internal/models"
)

// StartSession opens a backend session for userID. It never fails: when the
// exchange does not produce a greeting, Message holds a fallback text.
func (c *Client) StartSession(ctx context.Context, userID string) models.SessionStart {
	start, err := c.doStartSession(ctx, userID)
	if err != nil {
		logger().WithFields(logging.Fields{
			"user_id":  userID,
			"endpoint": models.EndpointStartSession,
		}).WithError(err).Warn("start session failed")
		return models.SessionStart{Message: models.FallbackGreetingError, Fallback: true}
	}

	if strings.TrimSpace(start.Message) == "" {
		start.Message = models.FallbackGreetingEmpty
		start.Fallback = true
	}
	return start
}

func (c *Client) doStartSession(ctx context.Context, userID string) (models.SessionStart, error) {
	data, err := c.do(ctx, "start session", http.MethodPost, models.EndpointStartSession,
		models.SessionRequest{UserID: userID})
	if err != nil {
		return models.SessionStart{}, err
	}
	if !gjson.ValidBytes(data) {
		return models.SessionStart{}, apierrors.NewDecodeError(models.EndpointStartSession, "invalid JSON")
	}

	return models.SessionStart{
		SessionID: gjson.GetBytes(data, "session_id").String(),
		Message:   gjson.GetBytes(data, "message").String(),
	}, nil
}

// SendMessage exchanges one turn. Any failure is contained: the returned
// Reply carries FallbackReply and Failed is set.
func (c *Client) SendMessage(ctx context.Context, userID, text string) models.Reply {
	reply, err := c.doSendMessage(ctx, userID, text)
	if err != nil {
		logger().WithFields(logging.Fields{
			"user_id":  userID,
			"endpoint": models.EndpointChat,
			"status":   apierrors.GetHTTPStatus(err),
		}).WithError(err).Warn("send message failed")
		return models.Reply{Text: models.FallbackReply, Failed: true}
	}
	return reply
}

func (c *Client) doSendMessage(ctx context.Context, userID, text string) (models.Reply, error) {
	data, err := c.do(ctx, "send message", http.MethodPost, models.EndpointChat,
		models.SessionRequest{UserID: userID, Message: text})
	if err != nil {
		return models.Reply{}, err
	}
	if !gjson.ValidBytes(data) {
		return models.Reply{}, apierrors.NewDecodeError(models.EndpointChat, "invalid JSON")
	}

	message := gjson.GetBytes(data, "message")
	ended := gjson.GetBytes(data, "session_ended").Bool()
	// a closing response may carry no text
	if !message.Exists() && !ended {
		return models.Reply{}, apierrors.NewDecodeError(models.EndpointChat, "missing message")
	}

	return models.Reply{Text: message.String(), SessionEnded: ended}, nil
}

// EndSession closes the backend session. Failures are logged and ignored.
func (c *Client) EndSession(ctx context.Context, userID string) {
	if err := c.doEndSession(ctx, userID); err != nil {
		logger().WithFields(logging.Fields{
			"user_id":  userID,
			"endpoint": models.EndpointEndSession,
		}).WithError(err).Warn("end session failed")
	}
}

func (c *Client) doEndSession(ctx context.Context, userID string) error {
	_, err := c.do(ctx, "end session", http.MethodDelete, userPath(models.EndpointEndSession, userID), nil)
	return err
}

package mockserver

import (
	"context"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"testing"
	"time"

	http "github.com/bogdanfinn/fhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diogo/grantchat/internal/api"
	"github.com/diogo/grantchat/internal/chat"
	"github.com/diogo/grantchat/internal/models"
)

// handlerDoer serves fhttp requests from an in-process handler
type handlerDoer struct {
	handler nethttp.Handler
}

func (d handlerDoer) Do(req *http.Request) (*http.Response, error) {
	var body io.Reader
	if req.Body != nil {
		body = req.Body
	}
	inner, err := nethttp.NewRequestWithContext(req.Context(), req.Method, req.URL.String(), body)
	if err != nil {
		return nil, err
	}
	for k, v := range req.Header {
		inner.Header[k] = v
	}

	w := httptest.NewRecorder()
	d.handler.ServeHTTP(w, inner)
	res := w.Result()

	header := http.Header{}
	for k, v := range res.Header {
		header[k] = v
	}
	return &http.Response{
		StatusCode: res.StatusCode,
		Status:     res.Status,
		Header:     header,
		Body:       res.Body,
	}, nil
}

func newTestClient(t *testing.T, srv *Server) *api.Client {
	t.Helper()
	client, err := api.NewClient("http://mock.local/api", api.WithHTTPClient(handlerDoer{handler: srv.Router()}))
	require.NoError(t, err)
	return client
}

func TestClientAgainstMockServer(t *testing.T) {
	srv := New(WithResponder(ScriptedResponder([]string{"Hi there"})))
	client := newTestClient(t, srv)
	ctx := context.Background()

	start := client.StartSession(ctx, "u1")
	assert.False(t, start.Fallback)
	assert.NotEmpty(t, start.SessionID)
	assert.Equal(t, DefaultGreeting, start.Message)

	m := chat.NewMachine()
	require.NoError(t, m.Seed(start.Message))

	prompt, err := m.Submit("Hello")
	require.NoError(t, err)
	reply := client.SendMessage(ctx, "u1", prompt)
	require.False(t, reply.Failed)
	require.NoError(t, m.Resolve(reply.Text))

	turns := m.Turns()
	require.Len(t, turns, 3)
	assert.Equal(t, "Hi there", turns[2].Text)

	require.NoError(t, client.SaveChat(ctx, chat.ToSaved("u1", turns)))

	convs, err := client.ListConversations(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.WithinDuration(t, time.Now(), convs[0].Date, time.Minute)

	history, err := client.FetchHistory(ctx, "u1", convs[0].ID)
	require.NoError(t, err)
	assert.Equal(t, []models.HistoryEntry{
		{Role: "bot", Content: DefaultGreeting},
		{Role: "user", Content: "Hello"},
		{Role: "bot", Content: "Hi there"},
	}, history)

	client.EndSession(ctx, "u1")
	assert.Equal(t, 0, srv.SessionCount())
}

func TestClientAgainstMockServer_SessionEnded(t *testing.T) {
	srv := New()
	client := newTestClient(t, srv)
	ctx := context.Background()

	client.StartSession(ctx, "u1")
	reply := client.SendMessage(ctx, "u1", "bye")
	assert.True(t, reply.SessionEnded)
	assert.Equal(t, FarewellReply, reply.Text)

	// The session is gone, so the next message fails and falls back
	reply = client.SendMessage(ctx, "u1", "hello again")
	assert.True(t, reply.Failed)
	assert.Equal(t, models.FallbackReply, reply.Text)
}

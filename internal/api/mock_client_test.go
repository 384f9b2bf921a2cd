package api

import (
	"context"
	"errors"
	"testing"

	"github.com/diogo/grantchat/internal/models"
)

func TestMockSessionClient_Replies(t *testing.T) {
	mock := &MockSessionClient{
		Replies: []models.Reply{{Text: "one"}, {Text: "two"}},
	}
	ctx := context.Background()

	if got := mock.SendMessage(ctx, "u", "a").Text; got != "one" {
		t.Errorf("first reply = %s", got)
	}
	if got := mock.SendMessage(ctx, "u", "b").Text; got != "two" {
		t.Errorf("second reply = %s", got)
	}
	if got := mock.SendMessage(ctx, "u", "c").Text; got != "two" {
		t.Errorf("last reply should repeat, got %s", got)
	}

	sent := mock.Sent()
	if len(sent) != 3 || sent[2] != "c" {
		t.Errorf("Sent() = %v", sent)
	}
}

func TestMockSessionClient_NoReplies(t *testing.T) {
	mock := &MockSessionClient{}
	reply := mock.SendMessage(context.Background(), "u", "a")
	if !reply.Failed || reply.Text != models.FallbackReply {
		t.Errorf("reply = %+v", reply)
	}
}

func TestMockSessionClient_SaveChat(t *testing.T) {
	mock := &MockSessionClient{}
	msgs := []models.SavedMessage{{Role: "user", MessageContent: "x"}}

	if err := mock.SaveChat(context.Background(), msgs); err != nil {
		t.Fatalf("SaveChat() returned error: %v", err)
	}
	if len(mock.SavedChats) != 1 {
		t.Errorf("SavedChats = %v", mock.SavedChats)
	}

	mock.SaveErr = errors.New("boom")
	if err := mock.SaveChat(context.Background(), msgs); err == nil {
		t.Error("expected SaveErr")
	}
}

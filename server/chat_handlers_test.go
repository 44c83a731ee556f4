package server

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/techagentng/sakany/models"
)

func (a *testApp) deliver(from, to *models.User, content string) *models.Message {
	a.t.Helper()
	message, _, err := a.server.Relay.Deliver(from.ID, to.ID, content)
	if err != nil {
		a.t.Fatalf("deliver: %v", err)
	}
	return message
}

func (a *testApp) conversationID(token string) uint {
	a.t.Helper()
	w, env := a.do(http.MethodGet, "/api/conversations", token, nil)
	a.expectStatus(w, http.StatusOK)
	var conversations []models.ConversationView
	decodeData(a.t, env, &conversations)
	if len(conversations) != 1 {
		a.t.Fatalf("expected one conversation, got %d", len(conversations))
	}
	return conversations[0].ID
}

func TestMarkReadIsIdempotent(t *testing.T) {
	app := newTestApp(t)
	alice, _ := app.createUser("alice", false, false)
	bob, bobToken := app.createUser("bob", false, false)
	app.deliver(alice, bob, "first")
	app.deliver(alice, bob, "second")

	var result struct {
		Updated int64 `json:"updated"`
	}
	w, env := app.do(http.MethodPost, "/api/messages/read", bobToken, models.MarkReadRequest{SenderID: alice.ID})
	app.expectStatus(w, http.StatusOK)
	decodeData(t, env, &result)
	if result.Updated != 2 {
		t.Fatalf("expected 2 messages marked, got %d", result.Updated)
	}

	w, env = app.do(http.MethodPost, "/api/messages/read", bobToken, models.MarkReadRequest{SenderID: alice.ID})
	app.expectStatus(w, http.StatusOK)
	decodeData(t, env, &result)
	if result.Updated != 0 {
		t.Fatalf("second call should change nothing, got %d", result.Updated)
	}

	w, env = app.do(http.MethodGet, fmt.Sprintf("/api/messages/%d", app.conversationID(bobToken)), bobToken, nil)
	app.expectStatus(w, http.StatusOK)
	var history []models.Message
	decodeData(t, env, &history)
	for _, m := range history {
		if !m.IsRead {
			t.Errorf("message %d should be read", m.ID)
		}
	}
}

func TestMarkReadLeavesOtherDirectionUnread(t *testing.T) {
	app := newTestApp(t)
	alice, aliceToken := app.createUser("alice", false, false)
	bob, bobToken := app.createUser("bob", false, false)
	app.deliver(alice, bob, "to bob")
	app.deliver(bob, alice, "to alice")

	w, _ := app.do(http.MethodPost, "/api/messages/read", bobToken, models.MarkReadRequest{SenderID: alice.ID})
	app.expectStatus(w, http.StatusOK)

	w, env := app.do(http.MethodGet, fmt.Sprintf("/api/messages/%d", app.conversationID(aliceToken)), aliceToken, nil)
	app.expectStatus(w, http.StatusOK)
	var history []models.Message
	decodeData(t, env, &history)
	if len(history) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(history))
	}
	for _, m := range history {
		if want := m.SenderID == alice.ID; m.IsRead != want {
			t.Errorf("message %q: isRead=%v, want %v", m.Content, m.IsRead, want)
		}
	}
}

func TestMarkReadRequiresSender(t *testing.T) {
	app := newTestApp(t)
	_, token := app.createUser("bob", false, false)

	w, _ := app.do(http.MethodPost, "/api/messages/read", token, map[string]interface{}{})
	app.expectStatus(w, http.StatusBadRequest)
}

func TestHistoryHiddenFromNonParticipants(t *testing.T) {
	app := newTestApp(t)
	alice, aliceToken := app.createUser("alice", false, false)
	bob, _ := app.createUser("bob", false, false)
	_, eveToken := app.createUser("eve", false, false)
	app.deliver(alice, bob, "private")

	id := app.conversationID(aliceToken)
	w, _ := app.do(http.MethodGet, fmt.Sprintf("/api/messages/%d", id), eveToken, nil)
	app.expectStatus(w, http.StatusNotFound)

	w, _ = app.do(http.MethodGet, "/api/messages/999", aliceToken, nil)
	app.expectStatus(w, http.StatusNotFound)
}

func TestHistoryPagesAfterID(t *testing.T) {
	app := newTestApp(t)
	alice, aliceToken := app.createUser("alice", false, false)
	bob, _ := app.createUser("bob", false, false)
	first := app.deliver(alice, bob, "one")
	app.deliver(bob, alice, "two")
	app.deliver(alice, bob, "three")

	path := fmt.Sprintf("/api/messages/%d?after_id=%d&limit=1", app.conversationID(aliceToken), first.ID)
	w, env := app.do(http.MethodGet, path, aliceToken, nil)
	app.expectStatus(w, http.StatusOK)
	var history []models.Message
	decodeData(t, env, &history)
	if len(history) != 1 || history[0].Content != "two" {
		t.Fatalf("expected only %q, got %+v", "two", history)
	}
}

func TestConversationsOrderedByLatestActivity(t *testing.T) {
	app := newTestApp(t)
	alice, aliceToken := app.createUser("alice", false, false)
	bob, _ := app.createUser("bob", false, false)
	carol, _ := app.createUser("carol", false, false)
	app.deliver(alice, bob, "hi bob")
	app.deliver(carol, alice, "hi alice")

	w, env := app.do(http.MethodGet, "/api/conversations", aliceToken, nil)
	app.expectStatus(w, http.StatusOK)
	var conversations []models.ConversationView
	decodeData(t, env, &conversations)
	if len(conversations) != 2 {
		t.Fatalf("expected 2 conversations, got %d", len(conversations))
	}
	if conversations[0].OtherUser.ID != carol.ID {
		t.Errorf("most recent conversation should be with carol, got %+v", conversations[0].OtherUser)
	}
}

package chat

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	apiError "github.com/techagentng/sakany/errors"
)

func TestAppendAndListForConversation(t *testing.T) {
	f, users := newFixture(t, "amina", "omar")
	a, b := users[0].ID, users[1].ID
	ctx := context.Background()

	first, err := f.messages.Append(ctx, a, b, "  hello  ")
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if first.ID == 0 || first.Content != "hello" || first.IsRead || first.CreatedAt.IsZero() {
		t.Fatalf("unexpected stored message %+v", first)
	}
	second, err := f.messages.Append(ctx, b, a, "hi back")
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if second.ID <= first.ID {
		t.Fatalf("ids not monotonic: %d then %d", first.ID, second.ID)
	}

	conv, err := f.ledger.Touch(ctx, a, b)
	if err != nil {
		t.Fatal(err)
	}
	list, err := f.messages.ListForConversation(ctx, conv.ID, 0, 0)
	if err != nil {
		t.Fatalf("ListForConversation: %v", err)
	}
	if len(list) != 2 || list[0].ID != first.ID || list[1].ID != second.ID {
		t.Fatalf("list = %+v", list)
	}

	paged, err := f.messages.ListForConversation(ctx, conv.ID, first.ID, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(paged) != 1 || paged[0].ID != second.ID {
		t.Fatalf("paged = %+v", paged)
	}
}

func TestAppendValidation(t *testing.T) {
	f, users := newFixture(t, "amina", "omar")
	a, b := users[0].ID, users[1].ID

	tests := []struct {
		name             string
		sender, receiver uint
		content          string
	}{
		{"empty content", a, b, ""},
		{"whitespace content", a, b, " \n\t "},
		{"zero sender", 0, b, "hi"},
		{"zero receiver", a, 0, "hi"},
		{"self message", a, a, "hi"},
		{"unknown receiver", a, 999, "hi"},
		{"unknown sender", 999, b, "hi"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.messages.Append(context.Background(), tt.sender, tt.receiver, tt.content)
			if !errors.Is(err, apiError.ErrValidation) {
				t.Fatalf("err = %v, want validation error", err)
			}
		})
	}

	got, _ := f.store.ChatRepository().MessagesBetween(context.Background(), a, b, 0, 0)
	if len(got) != 0 {
		t.Fatalf("rejected messages were stored: %+v", got)
	}
}

func TestListForUnknownConversation(t *testing.T) {
	f, _ := newFixture(t)
	_, err := f.messages.ListForConversation(context.Background(), 42, 0, 0)
	if !errors.Is(err, apiError.ErrNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
}

func TestMarkReadIsIdempotent(t *testing.T) {
	f, users := newFixture(t, "amina", "omar")
	a, b := users[0].ID, users[1].ID
	ctx := context.Background()

	for _, content := range []string{"one", "two"} {
		if _, err := f.messages.Append(ctx, a, b, content); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := f.messages.Append(ctx, b, a, "reply"); err != nil {
		t.Fatal(err)
	}

	n, err := f.messages.MarkRead(ctx, a, b)
	if err != nil || n != 2 {
		t.Fatalf("first MarkRead = %d, %v; want 2", n, err)
	}
	n, err = f.messages.MarkRead(ctx, a, b)
	if err != nil || n != 0 {
		t.Fatalf("second MarkRead = %d, %v; want 0", n, err)
	}

	all, _ := f.store.ChatRepository().MessagesBetween(ctx, a, b, 0, 0)
	for _, m := range all {
		wantRead := m.SenderID == a
		if m.IsRead != wantRead {
			t.Errorf("message %d from %d: isRead=%v", m.ID, m.SenderID, m.IsRead)
		}
	}
}

func TestAppendUsesClock(t *testing.T) {
	f, users := newFixture(t, "amina", "omar")
	fixed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	f.messages.now = func() time.Time { return fixed }

	m, err := f.messages.Append(context.Background(), users[0].ID, users[1].ID, "hi")
	if err != nil {
		t.Fatal(err)
	}
	if !m.CreatedAt.Equal(fixed) {
		t.Errorf("CreatedAt = %v, want %v", m.CreatedAt, fixed)
	}
}

func TestPagingFollowsInsertOrderWhenClockGoesBack(t *testing.T) {
	f, users := newFixture(t, "amina", "omar")
	a, b := users[0].ID, users[1].ID
	ctx := context.Background()

	t2 := time.Date(2024, 5, 1, 12, 0, 1, 0, time.UTC)
	t1 := t2.Add(-time.Second)
	clock := []time.Time{t2, t1, t2.Add(time.Second)}
	f.messages.now = func() time.Time {
		next := clock[0]
		clock = clock[1:]
		return next
	}

	var appended []uint
	for _, content := range []string{"one", "two", "three"} {
		m, err := f.messages.Append(ctx, a, b, content)
		if err != nil {
			t.Fatal(err)
		}
		appended = append(appended, m.ID)
	}
	conv, err := f.ledger.Touch(ctx, a, b)
	if err != nil {
		t.Fatal(err)
	}

	var seen []uint
	var cursor uint
	for i := 0; i < 10; i++ {
		page, err := f.messages.ListForConversation(ctx, conv.ID, cursor, 1)
		if err != nil {
			t.Fatal(err)
		}
		if len(page) == 0 {
			break
		}
		seen = append(seen, page[0].ID)
		cursor = page[0].ID
	}
	if len(seen) != len(appended) {
		t.Fatalf("paging returned %v, want %v", seen, appended)
	}
	for i := range seen {
		if seen[i] != appended[i] {
			t.Fatalf("paging returned %v, want %v", seen, appended)
		}
	}
}

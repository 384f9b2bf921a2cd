package history

import (
	"strings"
	"testing"
)

func storeWithTitles(t *testing.T, titles ...string) (*Store, []*Conversation) {
	t.Helper()
	store := newTestStore(t)
	var convs []*Conversation
	for _, title := range titles {
		conv, err := store.CreateConversation("u1")
		if err != nil {
			t.Fatalf("CreateConversation failed: %v", err)
		}
		if err := store.UpdateTitle(conv.ID, title); err != nil {
			t.Fatalf("UpdateTitle failed: %v", err)
		}
		conv.Title = title
		convs = append(convs, conv)
	}
	return store, convs
}

func TestResolver_Aliases(t *testing.T) {
	store, convs := storeWithTitles(t, "oldest", "middle", "newest")
	resolver := NewResolver(store)

	tests := []struct {
		ref  string
		want string
	}{
		{"@last", convs[2].ID},
		{"@LAST", convs[2].ID},
		{"@first", convs[0].ID},
		{"1", convs[2].ID},
		{"3", convs[0].ID},
		{convs[1].ID, convs[1].ID},
		{"  middle  ", convs[1].ID},
	}

	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			got, err := resolver.Resolve(tt.ref)
			if err != nil {
				t.Fatalf("Resolve(%q) failed: %v", tt.ref, err)
			}
			if got != tt.want {
				t.Errorf("Resolve(%q) = %s, want %s", tt.ref, got, tt.want)
			}
		})
	}
}

func TestResolver_Errors(t *testing.T) {
	store, _ := storeWithTitles(t, "Grant deadlines", "Grant budget")
	resolver := NewResolver(store)

	tests := []struct {
		ref     string
		errPart string
	}{
		{"", "empty reference"},
		{"0", "out of range"},
		{"5", "out of range"},
		{"conv-missing", "not found"},
		{"grant", "multiple conversations"},
		{"zzzz", "no conversation matching"},
	}

	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			_, err := resolver.Resolve(tt.ref)
			if err == nil {
				t.Fatalf("Resolve(%q) expected error", tt.ref)
			}
			if !strings.Contains(err.Error(), tt.errPart) {
				t.Errorf("error = %v, want it to contain %q", err, tt.errPart)
			}
		})
	}
}

func TestResolver_FuzzyFallback(t *testing.T) {
	store, convs := storeWithTitles(t, "Eligibility requirements", "Budget template")
	resolver := NewResolver(store)

	// Not a substring of any title, but a subsequence of one
	id, err := resolver.Resolve("elgreq")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if id != convs[0].ID {
		t.Errorf("Resolve = %s, want %s", id, convs[0].ID)
	}
}

func TestResolver_NoConversations(t *testing.T) {
	resolver := NewResolver(newTestStore(t))

	_, err := resolver.Resolve("@last")
	if err == nil || !strings.Contains(err.Error(), "no conversations") {
		t.Errorf("expected no conversations error, got %v", err)
	}
}

func TestResolver_ResolveWithInfo(t *testing.T) {
	store, convs := storeWithTitles(t, "Only one")
	resolver := NewResolver(store)

	conv, err := resolver.ResolveWithInfo("@last")
	if err != nil {
		t.Fatalf("ResolveWithInfo failed: %v", err)
	}
	if conv.ID != convs[0].ID || conv.Title != "Only one" {
		t.Errorf("unexpected conversation: %+v", conv)
	}
}

func TestListAliases(t *testing.T) {
	help := ListAliases()
	for _, want := range []string{"@last", "@first", "conv-"} {
		if !strings.Contains(help, want) {
			t.Errorf("ListAliases() missing %s", want)
		}
	}
}

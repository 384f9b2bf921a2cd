package history

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sahilm/fuzzy"
)

// Resolver resolves user-friendly references to conversation IDs
type Resolver struct {
	store *Store
}

// NewResolver creates a new alias resolver
func NewResolver(store *Store) *Resolver {
	return &Resolver{store: store}
}

// titleSource adapts a conversation list to fuzzy.Source
type titleSource []*Conversation

func (t titleSource) String(i int) string { return t[i].Title }
func (t titleSource) Len() int { return len(t) }

// Resolve converts a user-friendly reference to a conversation ID
//
// Supported references:
//   - "@last" - most recently modified conversation
//   - "@first" - oldest conversation
//   - "1", "2", "3" - by index (1-based)
//   - "conv-..." - direct ID
//   - "text" - title substring, then fuzzy title match (error if ambiguous)
func (r *Resolver) Resolve(ref string) (string, error) {
	ref = strings.TrimSpace(ref)

	if ref == "" {
		return "", fmt.Errorf("empty reference")
	}

	conversations, err := r.store.ListConversations()
	if err != nil {
		return "", fmt.Errorf("failed to list conversations: %w", err)
	}

	if len(conversations) == 0 {
		return "", fmt.Errorf("no conversations found")
	}

	switch strings.ToLower(ref) {
	case "@last":
		// Already sorted by UpdatedAt descending
		return conversations[0].ID, nil
	case "@first":
		return conversations[len(conversations)-1].ID, nil
	}

	if index, err := strconv.Atoi(ref); err == nil {
		if index < 1 || index > len(conversations) {
			return "", fmt.Errorf("index %d out of range (1-%d)", index, len(conversations))
		}
		return conversations[index-1].ID, nil
	}

	if strings.HasPrefix(ref, idPrefix) {
		for _, conv := range conversations {
			if conv.ID == ref {
				return conv.ID, nil
			}
		}
		return "", fmt.Errorf("conversation not found: %s", ref)
	}

	refLower := strings.ToLower(ref)
	var matches []*Conversation
	for _, conv := range conversations {
		if strings.Contains(strings.ToLower(conv.Title), refLower) {
			matches = append(matches, conv)
		}
	}

	if len(matches) == 0 {
		matches = fuzzyMatches(ref, conversations)
	}

	switch len(matches) {
	case 0:
		return "", fmt.Errorf("no conversation matching '%s'", ref)
	case 1:
		return matches[0].ID, nil
	default:
		var titles []string
		for _, m := range matches {
			titles = append(titles, fmt.Sprintf("'%s'", m.Title))
		}
		return "", fmt.Errorf("multiple conversations match '%s': %s. Use ID or be more specific",
			ref, strings.Join(titles, ", "))
	}
}

// fuzzyMatches returns the best-scoring fuzzy title matches. A single clear
// winner is returned alone; ties are all returned.
func fuzzyMatches(ref string, conversations []*Conversation) []*Conversation {
	found := fuzzy.FindFrom(ref, titleSource(conversations))
	if len(found) == 0 {
		return nil
	}

	best := found[0].Score
	var out []*Conversation
	for _, m := range found {
		if m.Score != best {
			break
		}
		out = append(out, conversations[m.Index])
	}
	return out
}

// ResolveWithInfo resolves a reference and returns the conversation
func (r *Resolver) ResolveWithInfo(ref string) (*Conversation, error) {
	id, err := r.Resolve(ref)
	if err != nil {
		return nil, err
	}

	return r.store.GetConversation(id)
}

// ListAliases returns information about supported aliases
func ListAliases() string {
	return `Supported references:
  @last          Most recently modified conversation
  @first         Oldest conversation
  1, 2, 3        By index (1-based, from most recent)
  "text"         Search by title (substring, then fuzzy)
  conv-...       Direct conversation ID`
}

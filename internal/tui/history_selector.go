package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/diogo/grantchat/internal/history"
)

// HistoryStore is the part of the history store the selector reads
type HistoryStore interface {
	ListConversations() ([]*history.Conversation, error)
}

// historyLoadedMsg is sent when conversations are loaded
type historyLoadedMsg struct {
	conversations []*history.Conversation
	err           error
}

// HistorySelectorModel lets the user pick a saved conversation to resume,
// or start a new one.
type HistorySelectorModel struct {
	store  HistoryStore
	userID string

	conversations []*history.Conversation

	cursor int

	loading   bool
	err       error
	confirmed bool

	// selected is nil when a new conversation was chosen
	selected *history.Conversation

	width  int
	height int
	ready  bool
}

// NewHistorySelectorModel creates a selector over the conversations of userID.
// An empty userID lists every conversation in the store.
func NewHistorySelectorModel(store HistoryStore, userID string) HistorySelectorModel {
	return HistorySelectorModel{
		store:   store,
		userID:  userID,
		loading: true,
	}
}

// Init starts loading conversations
func (m HistorySelectorModel) Init() tea.Cmd {
	return m.loadConversations()
}

func (m HistorySelectorModel) loadConversations() tea.Cmd {
	store, userID := m.store, m.userID
	return func() tea.Msg {
		all, err := store.ListConversations()
		if err != nil {
			return historyLoadedMsg{err: err}
		}
		if userID == "" {
			return historyLoadedMsg{conversations: all}
		}
		var mine []*history.Conversation
		for _, conv := range all {
			if conv.UserID == userID {
				mine = append(mine, conv)
			}
		}
		return historyLoadedMsg{conversations: mine}
	}
}

// Update handles messages and updates the model
func (m HistorySelectorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true

	case historyLoadedMsg:
		m.loading = false
		m.err = msg.err
		m.conversations = msg.conversations

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if m.loading {
			return m, nil
		}

		// Index 0 is "New conversation"
		last := len(m.conversations)

		switch msg.String() {
		case "esc", "q":
			return m, tea.Quit

		case "up", "k":
			m.cursor--
			if m.cursor < 0 {
				m.cursor = last
			}

		case "down", "j":
			m.cursor++
			if m.cursor > last {
				m.cursor = 0
			}

		case "home", "g":
			m.cursor = 0

		case "end", "G":
			m.cursor = last

		case "enter":
			m.confirmed = true
			if m.cursor > 0 {
				m.selected = m.conversations[m.cursor-1]
			}
			return m, tea.Quit
		}
	}

	return m, nil
}

// View renders the selector
func (m HistorySelectorModel) View() string {
	if !m.ready {
		return loadingStyle.Render("  Initializing...")
	}
	if m.loading {
		return loadingStyle.Render("  Loading conversations...")
	}
	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("  Error: %v", m.err))
	}

	contentWidth := max(m.width-4, 40)

	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(contentWidth),
		m.renderList(contentWidth),
		m.renderStatusBar(contentWidth),
	)
}

func (m HistorySelectorModel) renderHeader(width int) string {
	title := listTitleStyle.Render("Resume a conversation")
	subtitle := hintStyle.Render(fmt.Sprintf("  %d saved", len(m.conversations)))
	return headerStyle.Width(width).Render(lipgloss.JoinHorizontal(lipgloss.Center, title, subtitle))
}

func (m HistorySelectorModel) renderList(width int) string {
	items := []string{
		listSectionTitleStyle.Render("Conversations"),
		"",
		m.renderItem(0, "+ New conversation", ""),
	}

	if len(m.conversations) == 0 {
		items = append(items, hintStyle.Render("  No saved conversations"))
		return listPanelStyle.Width(width).Render(lipgloss.JoinVertical(lipgloss.Left, items...))
	}

	maxItems := max(5, (m.height-12)/2)
	offset := 0
	if m.cursor >= maxItems {
		offset = m.cursor - maxItems + 1
	}
	end := min(offset+maxItems, len(m.conversations)+1)

	if offset > 1 {
		items = append(items, hintStyle.Render("  ..."))
	}
	for i := max(offset, 1); i < end; i++ {
		conv := m.conversations[i-1]
		meta := fmt.Sprintf(" %s · %d messages", history.FormatRelativeTime(conv.UpdatedAt), len(conv.Messages))
		title := history.TruncateTitle(conv.Title, width-len(meta)-10)
		items = append(items, m.renderItem(i, title, meta))
	}
	if end < len(m.conversations)+1 {
		items = append(items, hintStyle.Render("  ..."))
	}

	return listPanelStyle.Width(width).Render(lipgloss.JoinVertical(lipgloss.Left, items...))
}

func (m HistorySelectorModel) renderItem(index int, title, meta string) string {
	cursor := "  "
	style := listItemStyle
	if index == m.cursor {
		cursor = listCursorStyle.Render("> ")
		style = listSelectedStyle
	}
	return cursor + style.Render(title) + listMetaStyle.Render(meta)
}

func (m HistorySelectorModel) renderStatusBar(width int) string {
	shortcuts := []struct {
		key  string
		desc string
	}{
		{"↑/↓", "Navigate"},
		{"Enter", "Select"},
		{"Esc", "Quit"},
	}

	var items []string
	for _, s := range shortcuts {
		items = append(items, statusKeyStyle.Render(s.key)+statusDescStyle.Render(" "+s.desc))
	}
	return listStatusBarStyle.Width(width).Render(strings.Join(items, "  │  "))
}

// HistorySelectorResult is the outcome of the selector
type HistorySelectorResult struct {
	// Conversation is nil when a new conversation was chosen
	Conversation *history.Conversation
	Confirmed    bool
}

// Result returns the current selection
func (m HistorySelectorModel) Result() HistorySelectorResult {
	return HistorySelectorResult{Conversation: m.selected, Confirmed: m.confirmed}
}

// RunHistorySelector runs the selector and returns the choice
func RunHistorySelector(store HistoryStore, userID string) (HistorySelectorResult, error) {
	p := tea.NewProgram(NewHistorySelectorModel(store, userID), tea.WithAltScreen())

	final, err := p.Run()
	if err != nil {
		return HistorySelectorResult{}, err
	}
	if hm, ok := final.(HistorySelectorModel); ok {
		return hm.Result(), nil
	}
	return HistorySelectorResult{}, nil
}

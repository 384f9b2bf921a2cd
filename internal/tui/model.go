package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/diogo/grantchat/internal/api"
	"github.com/diogo/grantchat/internal/chat"
	"github.com/diogo/grantchat/internal/history"
	"github.com/diogo/grantchat/internal/logging"
	"github.com/diogo/grantchat/internal/models"
	"github.com/diogo/grantchat/internal/render"
)

const (
	// requestTimeout bounds every backend call made from the chat surface
	requestTimeout = 2 * time.Minute

	// typingInterval is the frame rate of the typing indicator
	typingInterval = 80 * time.Millisecond

	loggedOutNotice = "You have been logged out."
	endedHint       = "Conversation ended. Press ctrl+n for a new one or esc to quit."
)

// Message types for the TUI
type (
	typingTickMsg time.Time

	sessionStartedMsg struct {
		epoch uint64
		start models.SessionStart
	}
	replyMsg struct {
		exchange uint64
		reply    models.Reply
	}
	// releaseReplyMsg delivers a reply held back by the typing delay
	releaseReplyMsg struct {
		exchange uint64
		reply    models.Reply
	}
	savedMsg struct {
		err error
	}
	logoutDoneMsg struct {
		err error
	}
)

// Config wires the chat surface to its collaborators
type Config struct {
	UserID string

	// TypingDelay is the minimum time the typing indicator stays visible
	TypingDelay time.Duration

	// Saver persists the conversation before it is cleared; nil keeps nothing
	Saver history.Saver

	Render render.Options

	// Logout clears the persisted login; nil disables /logout
	Logout func() error

	// Restore preloads turns from a saved conversation
	Restore []chat.Turn

	// CopyReplies copies every resolved reply to the clipboard
	CopyReplies bool

	// Copy writes to the clipboard (default clipboard.WriteAll)
	Copy func(string) error

	// Now overrides time.Now
	Now func() time.Time
}

// Result reports how a chat run ended
type Result struct {
	LoggedOut bool
	Turns     []chat.Turn
}

// Model is the conversation container: it owns the turn state machine and
// the session with the backend.
type Model struct {
	client  api.SessionClientInterface
	cfg     Config
	machine *chat.Machine

	// UI components
	viewport viewport.Model
	textarea textarea.Model
	spinner  spinner.Model

	ready  bool
	width  int
	height int

	// epoch identifies the current session start; greetings from older
	// starts are dropped
	epoch    uint64
	starting bool

	// ticking is set while a typing tick is scheduled; at most one chain runs
	ticking     bool
	frame       int
	lastVersion uint64
	rendered    map[string]string

	feedback  string
	err       error
	quitting  bool
	loggedOut bool
}

// NewChatModel creates a new chat TUI model
func NewChatModel(client api.SessionClientInterface, cfg Config) Model {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Copy == nil {
		cfg.Copy = clipboard.WriteAll
	}
	if cfg.Render.Width == 0 {
		cfg.Render = render.DefaultOptions()
	}

	ta := textarea.New()
	ta.Placeholder = "Ask about grants, eligibility or deadlines..."
	ta.CharLimit = 4000
	ta.ShowLineNumbers = false
	ta.SetHeight(2)

	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ta.FocusedStyle.Base = lipgloss.NewStyle().Foreground(colorText)
	ta.FocusedStyle.Placeholder = lipgloss.NewStyle().Foreground(colorTextDim)
	ta.BlurredStyle = ta.FocusedStyle

	s := spinner.New()
	s.Spinner = spinner.Points
	s.Style = loadingStyle

	m := Model{
		client:   client,
		cfg:      cfg,
		textarea: ta,
		spinner:  s,
		epoch:    1,
		starting: true,
		ticking:  true,
		rendered: make(map[string]string),
	}
	m.machine = m.newMachine()
	if len(cfg.Restore) > 0 {
		if err := m.machine.Restore(cfg.Restore); err != nil {
			logging.Named("tui").WithError(err).Warn("could not restore conversation")
		}
	}
	m.lastVersion = m.machine.Version()
	return m
}

func (m Model) newMachine() *chat.Machine {
	return chat.NewMachine(
		chat.WithMinPending(m.cfg.TypingDelay),
		chat.WithClock(m.cfg.Now),
	)
}

// Init opens the session; the greeting arrives as a sessionStartedMsg
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		textarea.Blink,
		m.spinner.Tick,
		m.startSession(m.epoch, false),
		typingTick(),
	)
}

// startTyping schedules the typing indicator unless a tick is already pending
func (m *Model) startTyping() tea.Cmd {
	if m.ticking {
		return nil
	}
	m.ticking = true
	return typingTick()
}

// typingTick returns a command that advances the typing indicator
func typingTick() tea.Cmd {
	return tea.Tick(typingInterval, func(t time.Time) tea.Msg {
		return typingTickMsg(t)
	})
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)

	case tea.KeyMsg:
		var handled bool
		handled, cmd = m.handleKey(msg)
		cmds = append(cmds, cmd)
		if !handled {
			if !m.inputLocked() {
				m.textarea, cmd = m.textarea.Update(msg)
				cmds = append(cmds, cmd)
			}
			// Printable keys belong to the input, not to scrolling
			if msg.Type != tea.KeyRunes {
				m.viewport, cmd = m.viewport.Update(msg)
				cmds = append(cmds, cmd)
			}
		}

	case tea.MouseMsg:
		m.viewport, cmd = m.viewport.Update(msg)
		cmds = append(cmds, cmd)

	case sessionStartedMsg:
		m.sessionStarted(msg)

	case replyMsg:
		cmds = append(cmds, m.receiveReply(msg.exchange, msg.reply))

	case releaseReplyMsg:
		cmds = append(cmds, m.releaseReply(msg.exchange, msg.reply))

	case savedMsg:
		if msg.err != nil && !m.quitting {
			m.err = msg.err
		}

	case logoutDoneMsg:
		m.loggedOut = msg.err == nil
		if msg.err != nil {
			m.err = msg.err
		}

	case spinner.TickMsg:
		if m.starting {
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}

	case typingTickMsg:
		if m.animating() {
			m.frame++
			m.refreshViewport()
			cmds = append(cmds, typingTick())
		} else {
			m.ticking = false
		}
	}

	if v := m.machine.Version(); v != m.lastVersion {
		m.lastVersion = v
		m.refreshViewport()
		m.viewport.GotoBottom()
	}
	cmds = append(cmds, m.syncInput())

	return m, tea.Batch(cmds...)
}

func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height

	headerHeight := 4 // Header panel with border
	inputHeight := 6  // Input panel with border
	statusHeight := 2 // Status bar and feedback line
	padding := 2

	vpHeight := height - headerHeight - inputHeight - statusHeight - padding
	if vpHeight < 5 {
		vpHeight = 5
	}
	contentWidth := width - 4

	if !m.ready {
		m.viewport = viewport.New(contentWidth, vpHeight)
		m.ready = true
	} else {
		m.viewport.Width = contentWidth
		m.viewport.Height = vpHeight
	}
	m.textarea.SetWidth(contentWidth - 4)
	m.refreshViewport()
	m.viewport.GotoBottom()
}

// handleKey runs global keys and slash commands. It reports whether the
// key was consumed.
func (m *Model) handleKey(msg tea.KeyMsg) (bool, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		return true, m.quit()

	case "ctrl+n":
		return true, m.newConversation()

	case "enter":
		if m.inputLocked() {
			return true, nil
		}
		input := strings.TrimSpace(m.textarea.Value())
		if input == "" {
			return true, nil
		}
		if cmd, ok := m.runCommand(input); ok {
			m.textarea.Reset()
			return true, cmd
		}
		return true, m.submit(input)
	}
	return false, nil
}

// runCommand handles slash commands; ok is false for ordinary messages
func (m *Model) runCommand(input string) (tea.Cmd, bool) {
	switch strings.ToLower(input) {
	case "exit", "quit", "/exit", "/quit":
		return m.quit(), true
	case "/new":
		return m.newConversation(), true
	case "/logout":
		return m.logout(), true
	case "/copy":
		m.copyLastReply()
		return nil, true
	case "/help":
		m.feedback = helpText
		return nil, true
	}
	if strings.HasPrefix(input, "/") && !strings.ContainsAny(input, " \n") {
		m.feedback = fmt.Sprintf("Unknown command %s (try /help)", input)
		return nil, true
	}
	return nil, false
}

const helpText = "/new  new conversation  •  /copy  copy last reply  •  /logout  log out  •  /quit  quit"

func (m *Model) submit(input string) tea.Cmd {
	prompt, err := m.machine.Submit(input)
	if err != nil {
		m.feedback = err.Error()
		return nil
	}

	m.textarea.Reset()
	m.feedback = ""
	m.err = nil
	m.frame = 0

	return tea.Batch(
		m.sendMessage(m.machine.Exchange(), prompt),
		m.startTyping(),
	)
}

func (m *Model) sessionStarted(msg sessionStartedMsg) {
	if msg.epoch != m.epoch || m.quitting {
		logging.Named("tui").WithField("epoch", msg.epoch).Debug("discarding stale greeting")
		return
	}
	m.starting = false
	if msg.start.Fallback {
		logging.Named("tui").Warn("session started with fallback greeting")
	}
	if msg.start.Message == "" {
		return
	}
	if err := m.machine.Seed(msg.start.Message); err != nil {
		logging.Named("tui").WithError(err).Warn("could not show greeting")
	}
}

// receiveReply matches a reply to the exchange that asked for it and holds
// it back until the typing indicator has been visible long enough.
func (m *Model) receiveReply(exchange uint64, reply models.Reply) tea.Cmd {
	if !m.acceptsReply(exchange) {
		return nil
	}
	if hold := m.machine.HoldFor(m.cfg.Now()); hold > 0 {
		return tea.Tick(hold, func(time.Time) tea.Msg {
			return releaseReplyMsg{exchange: exchange, reply: reply}
		})
	}
	return m.applyReply(reply)
}

func (m *Model) releaseReply(exchange uint64, reply models.Reply) tea.Cmd {
	if !m.acceptsReply(exchange) {
		return nil
	}
	return m.applyReply(reply)
}

func (m *Model) acceptsReply(exchange uint64) bool {
	if m.quitting || exchange != m.machine.Exchange() || !m.machine.Pending() {
		logging.Named("tui").WithField("exchange", exchange).Debug("discarding stale reply")
		return false
	}
	return true
}

func (m *Model) applyReply(reply models.Reply) tea.Cmd {
	var err error
	if reply.Failed {
		err = m.machine.ResolveError()
	} else {
		err = m.machine.Resolve(reply.Text)
	}
	if err != nil {
		logging.Named("tui").WithError(err).Warn("could not resolve reply")
		return nil
	}

	if m.cfg.CopyReplies && !reply.Failed {
		if err := m.cfg.Copy(render.Plain(reply.Text)); err != nil {
			logging.Named("tui").WithError(err).Warn("clipboard copy failed")
		}
	}

	if reply.SessionEnded {
		m.machine.Terminate(models.SessionEndedNotice)
		m.feedback = endedHint
	}
	return nil
}

// newConversation saves the current turns, clears the conversation and
// opens a fresh session.
func (m *Model) newConversation() tea.Cmd {
	if m.quitting {
		return nil
	}
	turns := m.machine.Turns()

	if m.machine.Terminated() {
		m.machine = m.newMachine()
		m.lastVersion = ^uint64(0)
	} else if err := m.machine.Reset(); err != nil {
		m.err = err
		return nil
	}

	m.epoch++
	m.starting = true
	m.frame = 0
	m.feedback = ""
	m.err = nil
	m.rendered = make(map[string]string)
	m.textarea.Reset()

	return tea.Batch(
		m.saveCmd(turns),
		m.startSession(m.epoch, true),
		m.spinner.Tick,
		m.startTyping(),
	)
}

func (m *Model) logout() tea.Cmd {
	if m.cfg.Logout == nil {
		m.feedback = "Logout is not available in this session"
		return nil
	}
	turns := m.machine.Turns()
	m.machine.Terminate(loggedOutNotice)
	m.quitting = true

	return tea.Sequence(m.saveCmd(turns), m.logoutCmd(), tea.Quit)
}

func (m *Model) quit() tea.Cmd {
	if m.quitting {
		return tea.Quit
	}
	m.quitting = true
	turns := m.machine.Turns()
	return tea.Sequence(m.saveCmd(turns), m.endSessionCmd(), tea.Quit)
}

func (m *Model) copyLastReply() {
	text, ok := m.machine.LastReply()
	if !ok {
		m.feedback = "Nothing to copy yet"
		return
	}
	if err := m.cfg.Copy(render.Plain(text)); err != nil {
		m.err = fmt.Errorf("copy to clipboard: %w", err)
		return
	}
	m.feedback = "Copied last reply to clipboard"
}

func (m Model) inputLocked() bool {
	return m.quitting || m.starting || m.machine.State() != chat.StateIdle
}

func (m Model) animating() bool {
	return !m.quitting && (m.starting || m.machine.Pending())
}

// syncInput blurs the textarea while input is locked and focuses it again
// once the turn resolves.
func (m *Model) syncInput() tea.Cmd {
	locked := m.inputLocked()
	switch {
	case locked && m.textarea.Focused():
		m.textarea.Blur()
	case !locked && !m.textarea.Focused():
		return m.textarea.Focus()
	}
	return nil
}

// Commands

func (m Model) startSession(epoch uint64, endFirst bool) tea.Cmd {
	client, userID := m.client, m.cfg.UserID
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		if endFirst {
			client.EndSession(ctx, userID)
		}
		return sessionStartedMsg{epoch: epoch, start: client.StartSession(ctx, userID)}
	}
}

func (m Model) sendMessage(exchange uint64, prompt string) tea.Cmd {
	client, userID := m.client, m.cfg.UserID
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		return replyMsg{exchange: exchange, reply: client.SendMessage(ctx, userID, prompt)}
	}
}

func (m Model) saveCmd(turns []chat.Turn) tea.Cmd {
	saver, userID := m.cfg.Saver, m.cfg.UserID
	if saver == nil {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		err := saver.Save(ctx, userID, turns)
		if err != nil {
			logging.Named("tui").WithError(err).Warn("history save failed")
		}
		return savedMsg{err: err}
	}
}

func (m Model) endSessionCmd() tea.Cmd {
	client, userID := m.client, m.cfg.UserID
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		client.EndSession(ctx, userID)
		return nil
	}
}

func (m Model) logoutCmd() tea.Cmd {
	client, userID, logout := m.client, m.cfg.UserID, m.cfg.Logout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		client.EndSession(ctx, userID)
		return logoutDoneMsg{err: logout()}
	}
}

// View renders the TUI
func (m Model) View() string {
	if !m.ready {
		return loadingStyle.Render("  Initializing...")
	}

	var sections []string
	contentWidth := m.width - 4

	// Header
	headerParts := []string{
		titleStyle.Render("✦ Grant Assistant"),
		hintStyle.Render("  •  "),
		subtitleStyle.Render(m.client.BaseURL()),
	}
	header := headerStyle.Width(contentWidth).Render(lipgloss.JoinHorizontal(lipgloss.Center, headerParts...))
	sections = append(sections, header)

	// Messages
	messagesContent := m.viewport.View()
	if m.machine.Len() == 0 {
		messagesContent = m.renderWelcome()
	}
	messagesPanel := messagesAreaStyle.
		Width(contentWidth).
		Height(m.viewport.Height).
		Render(messagesContent)
	sections = append(sections, messagesPanel)

	// Input
	var inputContent string
	switch {
	case m.machine.Terminated():
		inputContent = hintStyle.Render(endedHint)
	case m.starting:
		inputContent = m.spinner.View() + loadingStyle.Render(" Connecting to the assistant")
	case m.machine.Pending():
		inputContent = loadingStyle.Render("Assistant is typing ") + typingDots(m.frame)
	default:
		inputContent = lipgloss.JoinVertical(
			lipgloss.Left,
			inputLabelStyle.Render("You"),
			m.textarea.View(),
		)
	}
	sections = append(sections, inputPanelStyle.Width(contentWidth).Render(inputContent))

	sections = append(sections, m.renderStatusBar(contentWidth))

	switch {
	case m.err != nil:
		sections = append(sections, FormatError(m.err))
	case m.feedback != "":
		sections = append(sections, feedbackStyle.Render(m.feedback))
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// renderWelcome renders the placeholder shown before the greeting arrives
func (m Model) renderWelcome() string {
	width := m.viewport.Width - 4
	title := welcomeTitleStyle.Width(width).Align(lipgloss.Center).Render("Welcome to the grant assistant")
	subtitle := welcomeStyle.Width(width).Render("Ask about public funding for your company")

	content := lipgloss.JoinVertical(lipgloss.Center, "", title, subtitle, "")
	topPadding := (m.viewport.Height - lipgloss.Height(content)) / 2
	if topPadding < 0 {
		topPadding = 0
	}
	return strings.Repeat("\n", topPadding) + content
}

// renderStatusBar renders the bottom status bar with shortcuts
func (m Model) renderStatusBar(width int) string {
	shortcuts := []struct {
		key  string
		desc string
	}{
		{"Enter", "Send"},
		{"Ctrl+N", "New"},
		{"/help", "Commands"},
		{"Esc", "Quit"},
	}

	var items []string
	for _, s := range shortcuts {
		items = append(items, statusKeyStyle.Render(s.key)+statusDescStyle.Render(" "+s.desc))
	}
	return statusBarStyle.Width(width).Align(lipgloss.Center).Render(strings.Join(items, "  │  "))
}

// typingDots renders the three-dot indicator; one dot is lit per phase
func typingDots(frame int) string {
	active := (frame / 3) % 3
	dots := make([]string, 3)
	for i := range dots {
		color := colorTextMute
		if i == active {
			color = typingColors[i]
		}
		dots[i] = lipgloss.NewStyle().Foreground(color).Render("●")
	}
	return strings.Join(dots, " ")
}

// refreshViewport redraws the turns into the viewport
func (m *Model) refreshViewport() {
	if !m.ready {
		return
	}

	var content strings.Builder
	bubbleWidth := m.viewport.Width - 6

	for i, turn := range m.machine.Turns() {
		if i > 0 {
			content.WriteString("\n")
		}

		switch {
		case turn.Sender == chat.SenderUser:
			content.WriteString(userLabelStyle.Render("● You"))
			content.WriteString("\n")
			content.WriteString(userBubbleStyle.Width(bubbleWidth).Render(turn.Text))

		case turn.Sender == chat.SenderSystem:
			content.WriteString(systemNoticeStyle.Width(bubbleWidth).Render(turn.Text))

		case turn.Pending:
			content.WriteString(assistantLabelStyle.Render("✦ Assistant"))
			content.WriteString("\n")
			content.WriteString(assistantBubbleStyle.Render(typingDots(m.frame)))

		default:
			content.WriteString(assistantLabelStyle.Render("✦ Assistant"))
			content.WriteString("\n")
			content.WriteString(assistantBubbleStyle.Width(bubbleWidth).Render(m.renderReply(turn.Text, bubbleWidth-4)))
		}
		content.WriteString("\n")
	}

	m.viewport.SetContent(content.String())
}

// renderReply renders bot markup, caching by width and text so animation
// frames do not re-run glamour.
func (m *Model) renderReply(text string, width int) string {
	key := fmt.Sprintf("%d\x00%s", width, text)
	if out, ok := m.rendered[key]; ok {
		return out
	}
	out := render.Reply(text, m.cfg.Render.WithWidth(width), render.GetTUITheme())
	m.rendered[key] = out
	return out
}

// Result returns how the run ended
func (m Model) Result() Result {
	return Result{LoggedOut: m.loggedOut, Turns: m.machine.Turns()}
}

// RunChat starts the chat TUI and blocks until it quits
func RunChat(client api.SessionClientInterface, cfg Config) (Result, error) {
	p := tea.NewProgram(
		NewChatModel(client, cfg),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)

	final, err := p.Run()
	if err != nil {
		return Result{}, err
	}
	if m, ok := final.(Model); ok {
		return m.Result(), nil
	}
	return Result{}, nil
}

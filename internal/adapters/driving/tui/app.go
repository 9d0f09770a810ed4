package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/askme/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/askme/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/askme/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/askme/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/askme/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/askme/internal/core/domain"
)

// Rows taken by the header, the input box and the status bar.
const chromeHeight = 6

// turn is one rendered entry of the transcript.
type turn struct {
	role string
	text string
	err  bool
}

// App is the chat application following the Elm architecture.
// It implements tea.Model for use with Bubbletea.
type App struct {
	ports    *Ports
	ctx      context.Context
	tenantID string
	mode     domain.DeliveryMode

	styles   *styles.Styles
	keymap   *keymap.KeyMap
	input    *input.ChatInput
	status   *status.Bar
	viewport viewport.Model

	title      string
	transcript []turn

	// history holds completed user/assistant exchanges passed to LLM mode.
	history []domain.ChatMessage

	// question and answer track the exchange in flight.
	question string
	answer   strings.Builder
	chunks   <-chan domain.Chunk
	cancel   context.CancelFunc
	busy     bool
	stopped  bool

	err    error
	width  int
	height int
	ready  bool
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// NewApp creates a chat for the given tenant.
func NewApp(ports *Ports, tenantID string) (*App, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}
	if tenantID == "" {
		return nil, fmt.Errorf("creating app: %w", ErrMissingTenant)
	}

	s := styles.DefaultStyles()
	km := keymap.DefaultKeyMap()

	return &App{
		ports:    ports,
		ctx:      context.Background(),
		tenantID: tenantID,
		styles:   s,
		keymap:   km,
		input:    input.NewChatInput(s),
		status:   status.NewBar(s, km),
		viewport: viewport.New(80, 18),
		title:    tenantID,
	}, nil
}

// WithContext sets the context that bounds every question.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	return a
}

// WithMode forces a delivery mode instead of the tenant default.
func (a *App) WithMode(mode domain.DeliveryMode) *App {
	a.mode = mode
	return a
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		a.input.Init(),
		tea.SetWindowTitle("askme"),
		a.loadGreeting(),
	)
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.SetDimensions(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		return a.handleKey(msg)

	case messages.GreetingLoaded:
		if msg.TenantName != "" {
			a.title = msg.TenantName
		}
		if msg.Greeting != "" {
			a.transcript = append(a.transcript, turn{role: domain.RoleAssistant, text: msg.Greeting})
			a.refresh()
		}
		return a, nil

	case messages.AnswerStarted:
		a.chunks = msg.Chunks
		a.status.SetState(status.StateStreaming)
		a.status.SetMode(msg.Mode.String())
		a.status.SetResultCount(len(msg.Results))
		return a, waitForChunk(a.chunks)

	case messages.ChunkReceived:
		a.answer.WriteString(msg.Text)
		a.refresh()
		return a, waitForChunk(a.chunks)

	case messages.AnswerFinished:
		a.finish(msg.Err)
		return a, nil

	case messages.AskFailed:
		a.fail(msg.Err)
		return a, nil
	}

	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	return a, cmd
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, a.keymap.Quit):
		if a.cancel != nil {
			a.cancel()
		}
		return a, tea.Quit

	case key.Matches(msg, a.keymap.Cancel):
		if a.busy && a.cancel != nil {
			a.stopped = true
			a.cancel()
		}
		return a, nil

	case key.Matches(msg, a.keymap.ScrollUp), key.Matches(msg, a.keymap.ScrollDown):
		var cmd tea.Cmd
		a.viewport, cmd = a.viewport.Update(msg)
		return a, cmd

	case key.Matches(msg, a.keymap.Clear):
		if !a.busy {
			a.transcript = nil
			a.history = nil
			a.status.Clear()
			a.refresh()
		}
		return a, nil

	case key.Matches(msg, a.keymap.Send):
		return a, a.submit()
	}

	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	return a, cmd
}

// submit starts answering the typed question. It ignores blank input and
// input sent while an answer is still in flight.
func (a *App) submit() tea.Cmd {
	query := strings.TrimSpace(a.input.Value())
	if query == "" || a.busy {
		return nil
	}

	a.input.Reset()
	a.err = nil
	a.busy = true
	a.stopped = false
	a.question = query
	a.answer.Reset()
	a.transcript = append(a.transcript, turn{role: domain.RoleUser, text: query})
	a.status.Clear()
	a.status.SetState(status.StateThinking)
	a.refresh()

	ctx, cancel := context.WithCancel(a.ctx)
	a.cancel = cancel

	req := domain.AskRequest{
		TenantID: a.tenantID,
		Query:    query,
		Mode:     a.mode,
		History:  append([]domain.ChatMessage(nil), a.history...),
	}
	ask := a.ports.Ask
	return func() tea.Msg {
		resp, err := ask.Ask(ctx, req)
		if err != nil {
			return messages.AskFailed{Err: err}
		}
		return messages.AnswerStarted{Results: resp.Results, Mode: resp.Mode, Chunks: resp.Chunks}
	}
}

// waitForChunk reads the next chunk as a message.
func waitForChunk(chunks <-chan domain.Chunk) tea.Cmd {
	return func() tea.Msg {
		c, ok := <-chunks
		switch {
		case !ok:
			return messages.AnswerFinished{}
		case c.Err != nil:
			return messages.AnswerFinished{Err: c.Err}
		default:
			return messages.ChunkReceived{Text: c.Text}
		}
	}
}

func (a *App) finish(err error) {
	a.release()

	text := strings.TrimSpace(a.answer.String())
	if text != "" {
		a.transcript = append(a.transcript, turn{role: domain.RoleAssistant, text: text})
		a.history = append(a.history,
			domain.ChatMessage{Role: domain.RoleUser, Content: a.question},
			domain.ChatMessage{Role: domain.RoleAssistant, Content: text},
		)
	}

	switch {
	case a.stopped:
		a.status.SetState(status.StateReady)
		a.status.SetMessage("Stopped")
	case err != nil:
		a.err = err
		a.transcript = append(a.transcript, turn{role: domain.RoleAssistant, text: describe(err), err: true})
		a.status.SetState(status.StateError)
		a.status.SetMessage(describe(err))
	default:
		a.status.SetState(status.StateReady)
	}
	a.answer.Reset()
	a.refresh()
}

func (a *App) fail(err error) {
	a.release()
	a.err = err
	a.transcript = append(a.transcript, turn{role: domain.RoleAssistant, text: describe(err), err: true})
	a.status.SetState(status.StateError)
	a.status.SetMessage(describe(err))
	a.refresh()
}

func (a *App) release() {
	if a.cancel != nil {
		a.cancel()
	}
	a.cancel = nil
	a.chunks = nil
	a.busy = false
}

// describe turns service errors into short user-facing text.
func describe(err error) string {
	switch {
	case errors.Is(err, domain.ErrNoResults):
		return "No FAQs are stored for this tenant yet."
	case errors.Is(err, domain.ErrTenantNotFound):
		return "Unknown tenant."
	case errors.Is(err, domain.ErrLLMUnavailable):
		return "The language model is unavailable. Try direct mode."
	default:
		return err.Error()
	}
}

func (a *App) loadGreeting() tea.Cmd {
	tenants := a.ports.Tenants
	if tenants == nil {
		return nil
	}
	ctx, id := a.ctx, a.tenantID
	return func() tea.Msg {
		msg := messages.GreetingLoaded{}
		if t, err := tenants.Get(ctx, id); err == nil {
			msg.TenantName = t.Name
		}
		if settings, err := tenants.Settings(ctx, id); err == nil {
			msg.Greeting = settings[domain.TenantSettingGreeting]
		}
		return msg
	}
}

// refresh re-renders the transcript into the viewport and follows the tail.
func (a *App) refresh() {
	a.viewport.SetContent(a.renderTranscript())
	a.viewport.GotoBottom()
}

func (a *App) renderTranscript() string {
	width := max(a.viewport.Width-2, 10)
	body := a.styles.Message.Width(width)

	var sb strings.Builder
	for _, t := range a.transcript {
		sb.WriteString(a.label(t.role))
		sb.WriteByte('\n')
		if t.err {
			sb.WriteString(a.styles.Error.PaddingLeft(2).Width(width).Render(t.text))
		} else {
			sb.WriteString(body.Render(t.text))
		}
		sb.WriteString("\n\n")
	}
	if a.busy {
		sb.WriteString(a.label(domain.RoleAssistant))
		sb.WriteByte('\n')
		if a.answer.Len() == 0 {
			sb.WriteString(a.styles.Muted.PaddingLeft(2).Render("..."))
		} else {
			sb.WriteString(body.Render(a.answer.String()))
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

func (a *App) label(role string) string {
	if role == domain.RoleUser {
		return a.styles.UserLabel.Render("You")
	}
	return a.styles.AssistantLabel.Render("Assistant")
}

// View implements tea.Model.
func (a *App) View() string {
	if !a.ready {
		return "Loading..."
	}
	header := a.styles.Title.Render("askme") + a.styles.Muted.Render("  "+a.title)
	return strings.Join([]string{
		header,
		a.viewport.View(),
		a.input.View(),
		a.status.View(),
	}, "\n")
}

// Run starts the Bubbletea program.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen(), tea.WithContext(a.ctx))
	_, err := p.Run()
	return err
}

// SetDimensions sizes every component to the terminal.
func (a *App) SetDimensions(width, height int) {
	a.width = width
	a.height = height
	a.viewport.Width = width
	a.viewport.Height = max(height-chromeHeight, 3)
	a.input.SetWidth(width)
	a.status.SetWidth(width)
	a.ready = true
	a.refresh()
}

// History returns the completed exchanges, oldest first.
func (a *App) History() []domain.ChatMessage {
	return a.history
}

// Busy reports whether an answer is in flight.
func (a *App) Busy() bool {
	return a.busy
}

// Title returns the header text, the tenant name once loaded.
func (a *App) Title() string {
	return a.title
}

// Err returns the last error.
func (a *App) Err() error {
	return a.err
}

// Ready reports whether the app has received its dimensions.
func (a *App) Ready() bool {
	return a.ready
}

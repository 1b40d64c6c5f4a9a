// Package tui is the interactive terminal chat.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dgallion1/docchat/internal/memory"
	"github.com/dgallion1/docchat/internal/rag"
)

// Chat is the subset of the query orchestrator the TUI drives.
type Chat interface {
	Query(ctx context.Context, text string) (rag.Answer, error)
	History(ctx context.Context) []memory.Entry
	ResetMemory(ctx context.Context) error
}

type turn struct {
	user    string
	bot     string
	sources []rag.Source
	err     error
}

type answerMsg struct {
	answer rag.Answer
	err    error
}

type resetMsg struct{ err error }

// Model is the Bubble Tea model for the chat screen.
type Model struct {
	chat     Chat
	ctx      context.Context
	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	turns    []turn
	pending  string
	status   string
	ready    bool
}

// New creates a chat model seeded with the saved conversation.
func New(ctx context.Context, chat Chat) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask about your documents"
	ti.Focus()
	ti.CharLimit = 4000

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := Model{
		chat:     chat,
		ctx:      ctx,
		input:    ti,
		viewport: viewport.New(0, 0),
		spinner:  sp,
	}
	for _, e := range chat.History(ctx) {
		m.turns = append(m.turns, turn{user: e.User, bot: e.Bot})
	}
	if len(m.turns) > 0 {
		m.status = fmt.Sprintf("Restored %d previous exchanges. ctrl+r starts over.", len(m.turns))
	} else {
		m.status = "Enter sends, ctrl+r restarts the chat, ctrl+c quits."
	}
	return m
}

func (m Model) Init() tea.Cmd { return textinput.Blink }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, ch := chatBoxStyle.GetFrameSize()
		_, ih := inputBoxStyle.GetFrameSize()
		reserved := 1 + 1 + ih + 1 // header, status, input line, spacer
		m.viewport.Width = max(20, msg.Width-2)
		m.viewport.Height = max(3, msg.Height-reserved-ch)
		m.input.Width = max(10, msg.Width-6)
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyCtrlD:
			return m, tea.Quit
		case tea.KeyCtrlR:
			if m.pending != "" {
				return m, nil
			}
			m.status = "Clearing chat..."
			return m, m.reset()
		case tea.KeyEnter:
			q := strings.TrimSpace(m.input.Value())
			if q == "" || m.pending != "" {
				return m, nil
			}
			m.pending = q
			m.input.Reset()
			m.status = ""
			m.refresh()
			return m, tea.Batch(m.ask(q), m.spinner.Tick)
		case tea.KeyPgUp, tea.KeyPgDown, tea.KeyUp, tea.KeyDown:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}

	case answerMsg:
		t := turn{user: m.pending, err: msg.err}
		if msg.err == nil {
			t.bot = msg.answer.Text
			t.sources = msg.answer.Sources
			m.status = fmt.Sprintf("Answered in %s", msg.answer.Duration.Round(10*time.Millisecond))
		} else {
			m.status = "Error: " + msg.err.Error()
		}
		m.turns = append(m.turns, t)
		m.pending = ""
		m.refresh()
		return m, nil

	case resetMsg:
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
			return m, nil
		}
		m.turns = nil
		m.status = "Chat restarted."
		m.refresh()
		return m, nil

	case spinner.TickMsg:
		if m.pending == "" {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		m.refresh()
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) ask(q string) tea.Cmd {
	chat, ctx := m.chat, m.ctx
	return func() tea.Msg {
		ans, err := chat.Query(ctx, q)
		return answerMsg{answer: ans, err: err}
	}
}

func (m Model) reset() tea.Cmd {
	chat, ctx := m.chat, m.ctx
	return func() tea.Msg {
		return resetMsg{err: chat.ResetMemory(ctx)}
	}
}

func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := headerStyle.Render("Document Chat")
	chat := chatBoxStyle.Render(m.viewport.View())
	input := inputBoxStyle.Render(m.input.View())
	status := statusStyle.Render(m.status)
	return header + "\n" + chat + "\n" + input + "\n" + status
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.render())
	m.viewport.GotoBottom()
}

func (m Model) render() string {
	var b strings.Builder
	if len(m.turns) == 0 && m.pending == "" {
		b.WriteString(dimStyle.Render("No messages yet."))
	}
	for _, t := range m.turns {
		b.WriteString(userStyle.Render("You: ") + t.user + "\n")
		if t.err != nil {
			b.WriteString(errorStyle.Render("Error: "+t.err.Error()) + "\n\n")
			continue
		}
		b.WriteString(botStyle.Render("Bot: ") + t.bot + "\n")
		if len(t.sources) > 0 {
			b.WriteString(dimStyle.Render(formatSources(t.sources)) + "\n")
		}
		b.WriteString("\n")
	}
	if m.pending != "" {
		b.WriteString(userStyle.Render("You: ") + m.pending + "\n")
		b.WriteString(m.spinner.View() + dimStyle.Render(" thinking...") + "\n")
	}
	return b.String()
}

// formatSources lists distinct source pages in retrieval order.
func formatSources(sources []rag.Source) string {
	seen := map[string]bool{}
	var parts []string
	for _, s := range sources {
		label := fmt.Sprintf("%s p.%d", s.Source, s.Page+1)
		if seen[label] {
			continue
		}
		seen[label] = true
		parts = append(parts, label)
	}
	return "sources: " + strings.Join(parts, ", ")
}

var (
	headerStyle   = lipgloss.NewStyle().Bold(true)
	chatBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	inputBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	statusStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	userStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	botStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("13")).Bold(true)
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

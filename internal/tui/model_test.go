package tui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/docchat/internal/memory"
	"github.com/dgallion1/docchat/internal/rag"
)

type fakeChat struct {
	history []memory.Entry
	queries []string
	err     error
	resets  int
}

func (f *fakeChat) Query(ctx context.Context, text string) (rag.Answer, error) {
	f.queries = append(f.queries, text)
	if f.err != nil {
		return rag.Answer{}, f.err
	}
	return rag.Answer{
		Text:    "answer to " + text,
		Sources: []rag.Source{{Source: "data/a.pdf", Page: 0}, {Source: "data/a.pdf", Page: 0}},
	}, nil
}

func (f *fakeChat) History(ctx context.Context) []memory.Entry { return f.history }

func (f *fakeChat) ResetMemory(ctx context.Context) error {
	f.resets++
	return nil
}

func sized(t *testing.T, m Model) Model {
	t.Helper()
	next, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	return next.(Model)
}

// submit types q, presses enter and delivers the async answer.
func submit(t *testing.T, m Model, q string) Model {
	t.Helper()
	m.input.SetValue(q)
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)
	require.NotNil(t, cmd)
	assert.Equal(t, q, m.pending)

	next, _ = m.Update(m.ask(q)())
	return next.(Model)
}

func TestNew_RestoresHistory(t *testing.T) {
	chat := &fakeChat{history: []memory.Entry{{User: "earlier", Bot: "reply"}}}

	m := sized(t, New(context.Background(), chat))

	require.Len(t, m.turns, 1)
	assert.Contains(t, m.render(), "earlier")
	assert.Contains(t, m.status, "Restored 1")
}

func TestEnter_AsksAndRendersAnswer(t *testing.T) {
	chat := &fakeChat{}
	m := sized(t, New(context.Background(), chat))

	m = submit(t, m, "what is covered?")

	assert.Empty(t, m.pending)
	assert.Equal(t, []string{"what is covered?"}, chat.queries)
	require.Len(t, m.turns, 1)
	assert.Equal(t, "answer to what is covered?", m.turns[0].bot)
	assert.Contains(t, m.render(), "sources: data/a.pdf p.1")
	assert.Empty(t, m.input.Value())
}

func TestEnter_IgnoresBlankInput(t *testing.T) {
	chat := &fakeChat{}
	m := sized(t, New(context.Background(), chat))

	m.input.SetValue("   ")
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})

	assert.Nil(t, cmd)
	assert.Empty(t, next.(Model).pending)
}

func TestAnswerError_IsShown(t *testing.T) {
	chat := &fakeChat{err: errors.New("model offline")}
	m := sized(t, New(context.Background(), chat))

	m = submit(t, m, "question")

	assert.Contains(t, m.status, "model offline")
	assert.Contains(t, m.render(), "model offline")
}

func TestCtrlR_ClearsConversation(t *testing.T) {
	chat := &fakeChat{history: []memory.Entry{{User: "a", Bot: "b"}}}
	m := sized(t, New(context.Background(), chat))

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlR})
	require.NotNil(t, cmd)
	next, _ = next.Update(cmd())
	m = next.(Model)

	assert.Equal(t, 1, chat.resets)
	assert.Empty(t, m.turns)
	assert.Equal(t, "Chat restarted.", m.status)
}

func TestCtrlC_Quits(t *testing.T) {
	m := sized(t, New(context.Background(), &fakeChat{}))

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})

	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestView_BeforeResize(t *testing.T) {
	m := New(context.Background(), &fakeChat{})
	assert.Equal(t, "Loading...", m.View())
}

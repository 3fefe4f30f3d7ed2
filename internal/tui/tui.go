// Package tui is the Bubble Tea chat front-end: a scrolling transcript
// viewport over a textarea prompt, with queries answered asynchronously.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Answerer answers one query.
type Answerer interface {
	Answer(ctx context.Context, query string) (string, error)
}

// ─────────────────────────────────────────────────────
// Bubble Tea messages
// ─────────────────────────────────────────────────────

type answerMsg struct {
	query  string
	answer string
	err    error
}

// ─────────────────────────────────────────────────────
// Styles
// ─────────────────────────────────────────────────────

var (
	primaryColor = lipgloss.Color("#D97706") // amber
	accentColor  = lipgloss.Color("#06B6D4") // cyan
	mutedColor   = lipgloss.Color("#6B7280") // gray
	okColor      = lipgloss.Color("#10B981") // green
	errColor     = lipgloss.Color("#EF4444") // red

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(primaryColor).
			Padding(0, 1)

	chatBorder = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(accentColor)

	userMsg = lipgloss.NewStyle().
		Foreground(accentColor).
		Bold(true)

	agentMsg = lipgloss.NewStyle().
			Foreground(okColor).
			Bold(true)

	errMsg = lipgloss.NewStyle().
		Foreground(errColor)

	chatText = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#E5E7EB"))

	footerStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	thinkingStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Italic(true)
)

// ─────────────────────────────────────────────────────
// Model
// ─────────────────────────────────────────────────────

type chatEntry struct {
	sender  string
	content string
	time    time.Time
	isUser  bool
	isError bool
}

// Model is the chat TUI model.
type Model struct {
	answerer Answerer
	ctx      context.Context
	input    textarea.Model
	chat     viewport.Model
	messages []chatEntry
	width    int
	height   int
	ready    bool
	busy     bool
}

// NewModel creates the chat model. ctx bounds query execution.
func NewModel(ctx context.Context, answerer Answerer) Model {
	ti := textarea.New()
	ti.Placeholder = "Ask about the news..."
	ti.Focus()
	ti.CharLimit = 4096
	ti.SetHeight(3)
	ti.ShowLineNumbers = false
	ti.KeyMap.InsertNewline.SetEnabled(false) // Enter sends

	return Model{
		answerer: answerer,
		ctx:      ctx,
		input:    ti,
		messages: []chatEntry{},
	}
}

// Run starts the TUI program and blocks until it exits.
func Run(ctx context.Context, answerer Answerer) error {
	p := tea.NewProgram(NewModel(ctx, answerer), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

func (m Model) Init() tea.Cmd {
	return textarea.Blink
}

// askCmd runs the query off the UI loop and delivers the result.
func (m Model) askCmd(query string) tea.Cmd {
	return func() tea.Msg {
		answer, err := m.answerer.Answer(m.ctx, query)
		return answerMsg{query: query, answer: answer, err: err}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "enter":
			if m.busy {
				return m, nil
			}
			text := strings.TrimSpace(m.input.Value())
			if text == "" {
				return m, nil
			}

			m.messages = append(m.messages, chatEntry{
				sender:  "You",
				content: text,
				time:    time.Now(),
				isUser:  true,
			})
			m.busy = true
			m.input.Reset()
			m.refreshChat()

			return m, m.askCmd(text)
		}

	case answerMsg:
		m.busy = false
		entry := chatEntry{
			sender: "newshound",
			time:   time.Now(),
		}
		if msg.err != nil {
			entry.content = msg.err.Error()
			entry.isError = true
		} else {
			entry.content = msg.answer
		}
		m.messages = append(m.messages, entry)
		m.refreshChat()
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		chatW := m.width - 4
		chatH := m.height - 9 // header + input + footer

		if !m.ready {
			m.chat = viewport.New(chatW, chatH)
			m.ready = true
		} else {
			m.chat.Width = chatW
			m.chat.Height = chatH
		}
		m.refreshChat()
		m.input.SetWidth(chatW)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)

	m.chat, cmd = m.chat.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m *Model) refreshChat() {
	if !m.ready {
		return
	}
	m.chat.SetContent(m.renderChat())
	m.chat.GotoBottom()
}

func (m Model) View() string {
	if !m.ready {
		return "Starting newshound..."
	}

	header := headerStyle.Width(m.width).Render("  newshound")

	chatArea := chatBorder.Width(m.width - 2).Render(m.chat.View())
	inputArea := m.input.View()

	status := "  Enter: ask │ Ctrl+C: quit │ ↑↓: scroll"
	if m.busy {
		status = "  " + thinkingStyle.Render("thinking...")
	}
	footer := footerStyle.Render(status)

	return lipgloss.JoinVertical(lipgloss.Left, header, chatArea, inputArea, footer)
}

func (m Model) renderChat() string {
	if len(m.messages) == 0 {
		return lipgloss.NewStyle().
			Foreground(mutedColor).
			Padding(1).
			Render("No messages yet. Ask about the news to get started.")
	}

	var sb strings.Builder
	for _, entry := range m.messages {
		ts := lipgloss.NewStyle().Foreground(mutedColor).Render(entry.time.Format("15:04"))

		switch {
		case entry.isUser:
			sb.WriteString(fmt.Sprintf("%s %s %s\n", ts, userMsg.Render("[You]"), chatText.Render(entry.content)))
		case entry.isError:
			sb.WriteString(fmt.Sprintf("%s %s\n%s\n", ts, agentMsg.Render("[newshound]"), errMsg.Render("✗ "+entry.content)))
		default:
			sb.WriteString(fmt.Sprintf("%s %s\n%s\n", ts, agentMsg.Render("[newshound]"), chatText.Render(entry.content)))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

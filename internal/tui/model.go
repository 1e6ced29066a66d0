package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"lawrag/internal/domain"
)

// QueryPort is the TUI-facing subset of the query pipeline.
type QueryPort interface {
	Query(ctx context.Context, question string) (domain.QueryResult, error)
}

// Model is the Bubble Tea model for the interactive legal Q&A session.
type Model struct {
	querier QueryPort
	input   textinput.Model
	view    viewport.Model
	result  *domain.QueryResult
	status  string
	ready   bool
	busy    bool
}

type answerMsg struct {
	result domain.QueryResult
	err    error
}

// New creates a new TUI model instance.
func New(querier QueryPort) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "輸入法律問題，按 Enter 送出"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return Model{querier: querier, input: ti, view: vp, status: "就緒。輸入問題開始查詢。"}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key and window events and updates the view state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, rh := resultBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 1 + 1 + qh + 1 // header + status + query box + spacer
		vh := msg.Height - reserved
		if vh < 3 {
			vh = 3
		}
		m.view.Width = max(20, msg.Width)
		m.view.Height = max(3, vh-rh)
		m.view.SetContent(m.renderResult())
		return m, nil
	case answerMsg:
		m.busy = false
		if msg.err != nil {
			m.status = "查詢失敗：" + msg.err.Error()
			m.result = nil
		} else {
			m.status = "完成。"
			m.result = &msg.result
		}
		m.view.SetContent(m.renderResult())
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			q := strings.TrimSpace(m.input.Value())
			if q != "" && !m.busy {
				m.busy = true
				m.status = "查詢中…"
				return m, m.ask(q)
			}
		case "down":
			m.view.LineDown(1)
			return m, nil
		case "up":
			m.view.LineUp(1)
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// ask runs the query pipeline off the UI goroutine.
func (m Model) ask(question string) tea.Cmd {
	querier := m.querier
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		res, err := querier.Query(ctx, question)
		return answerMsg{result: res, err: err}
	}
}

// View renders the TUI layout and the current answer.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("台灣法律問答")
	input := queryBoxStyle.Render(m.input.View())
	status := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(m.status)
	result := resultBoxStyle.Render(m.view.View())
	return header + "\n" + result + "\n" + input + "\n" + status
}

func (m Model) renderResult() string {
	if m.result == nil {
		return "尚無查詢結果。"
	}
	r := m.result
	if !r.Found {
		return r.Message
	}
	var b strings.Builder
	if r.Degraded {
		b.WriteString(warnStyle.Render("模型輸出格式異常，僅顯示檢索到的條文來源。"))
		b.WriteString("\n" + r.Message + "\n\n")
	} else {
		b.WriteString(sectionStyle.Render("【重點摘要】") + "\n" + r.Answer.Summary + "\n\n")
		b.WriteString(sectionStyle.Render("【法律規範】") + "\n" + r.Answer.RuleStatement + "\n\n")
		b.WriteString(sectionStyle.Render("【白話解釋與舉例】") + "\n" + r.Answer.ExplanationExample + "\n\n")
	}
	b.WriteString(sectionStyle.Render("【引用來源】") + "\n")
	for i, s := range r.Sources {
		fmt.Fprintf(&b, "%d. %s 第%s條\n", i+1, s.LawName, s.ArticleNo)
	}
	return b.String()
}

var (
	resultBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	sectionStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	warnStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
)

package tui

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"ragpipeline/internal/answer"
	"ragpipeline/internal/splitter"
)

// RAGPort is the TUI-facing subset of the pipeline.
type RAGPort interface {
	Ask(ctx context.Context, query string) (*answer.Response, error)
}

// answerMsg delivers the result of an Ask started by the enter key.
type answerMsg struct {
	query string
	resp  *answer.Response
	err   error
}

// Model is the Bubble Tea model for the TUI application.
type Model struct {
	ctx      context.Context
	service  RAGPort
	input    textinput.Model
	viewport viewport.Model
	resp     *answer.Response
	header   string
	status   string
	cursor   int
	width    int
	height   int
	ready    bool
	busy     bool
}

// New creates a new TUI model instance. header is shown under the title,
// typically the indexed file and chunk count.
func New(ctx context.Context, service RAGPort, header string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask a question and press Enter"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return Model{ctx: ctx, service: service, input: ti, viewport: vp, header: header, status: "Indexed. Ask away."}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

func (m Model) ask(q string) tea.Cmd {
	return func() tea.Msg {
		resp, err := m.service.Ask(m.ctx, q)
		return answerMsg{query: q, resp: resp, err: err}
	}
}

// Update handles key, window and answer events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		m.width, m.height = msg.Width, msg.Height
		m.layout()
		m.viewport.SetContent(m.renderCurrentSource())
		return m, nil
	case answerMsg:
		m.busy = false
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
			m.resp = nil
		} else {
			m.status = fmt.Sprintf("Answered %q from %d chunks", msg.query, len(msg.resp.Context))
			m.resp = msg.resp
			m.cursor = 0
		}
		m.layout()
		m.viewport.SetContent(m.renderCurrentSource())
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
				m.status = "Thinking..."
				return m, m.ask(q)
			}
		case "down":
			if n := m.sourceCount(); n > 0 {
				m.cursor = (m.cursor + 1) % n
				m.viewport.SetContent(m.renderCurrentSource())
				return m, nil
			}
		case "up":
			if n := m.sourceCount(); n > 0 {
				m.cursor = (m.cursor - 1 + n) % n
				m.viewport.SetContent(m.renderCurrentSource())
				return m, nil
			}
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// layout sizes the sources viewport around the answer, which can span
// several lines.
func (m *Model) layout() {
	if !m.ready {
		return
	}
	_, rh := sourceBoxStyle.GetFrameSize()
	_, qh := queryBoxStyle.GetFrameSize()
	reserved := 2 + answerLines(m.resp) + 1 + qh + 1 // title+header, answer, status, spacer
	m.viewport.Width = max(20, m.width)
	m.viewport.Height = max(3, m.height-reserved-rh)
}

// View renders the TUI layout.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	title := lipgloss.NewStyle().Bold(true).Render("RAG Question Answering")
	header := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(m.header)
	ans := ""
	if m.resp != nil {
		ans = answerStyle.Render("Answer: "+m.resp.Answer) + "\n"
	}
	sources := sourceBoxStyle.Render(m.viewport.View())
	input := queryBoxStyle.Render(m.input.View())
	status := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(m.status)
	return title + "\n" + header + "\n" + ans + sources + "\n" + input + "\n" + status
}

func (m Model) sourceCount() int {
	if m.resp == nil {
		return 0
	}
	return len(m.resp.Context)
}

func (m Model) renderCurrentSource() string {
	if m.sourceCount() == 0 {
		return "No sources yet."
	}
	d := m.resp.Context[m.cursor]
	title := fmt.Sprintf("Source %d/%d  score=%.3f", m.cursor+1, len(m.resp.Context), d.Score())
	if src, ok := d.MetaData["_source"].(string); ok {
		title += "  " + src
	}
	return title + "\n\n" + highlightBestSentence(d.Content, m.resp.Input)
}

func answerLines(r *answer.Response) int {
	if r == nil {
		return 0
	}
	return strings.Count(r.Answer, "\n") + 1
}

var (
	sourceBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	answerStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	highlightStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	unicodeWordRe  = regexp.MustCompile(`[\p{L}\p{N}]+(?:['’]\p{L}+)*`)
)

// highlightBestSentence renders text sentence by sentence, styling the one
// sharing the most words with query. Ties go to the earliest sentence.
func highlightBestSentence(text, query string) string {
	sentences := splitter.Sentences(text)
	if len(sentences) == 0 {
		return text
	}
	if best := bestSentence(sentences, query); best >= 0 {
		sentences[best] = highlightStyle.Render(sentences[best])
	}
	return strings.Join(sentences, " ")
}

// bestSentence returns the index of the sentence sharing the most words
// with query, or -1 when none shares any.
func bestSentence(sentences []string, query string) int {
	qTokens := toTokenSet(query)
	best, bestScore := -1, 0
	for i, sent := range sentences {
		if score := tokenOverlapScore(qTokens, sent); score > bestScore {
			best, bestScore = i, score
		}
	}
	return best
}

func toTokenSet(s string) map[string]struct{} {
	tokens := unicodeWordRe.FindAllString(strings.ToLower(s), -1)
	m := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		m[t] = struct{}{}
	}
	return m
}

func tokenOverlapScore(queryTokens map[string]struct{}, sentence string) int {
	score := 0
	tokens := unicodeWordRe.FindAllString(strings.ToLower(sentence), -1)
	seen := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		if _, ok := queryTokens[t]; ok {
			score++
		}
	}
	return score
}

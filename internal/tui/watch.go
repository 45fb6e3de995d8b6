package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ShayCichocki/agentsmith/internal/client"
)

// FetchFunc returns the current status of the watched item.
type FetchFunc func(ctx context.Context) (client.Status, error)

// statusMsg carries a fresh status.
type statusMsg struct {
	status client.Status
}

// fetchErrMsg carries a failed poll. Polling continues after it.
type fetchErrMsg struct {
	err error
}

// pollMsg triggers the next poll.
type pollMsg struct{}

// WatchModel polls an item until it reaches a terminal status.
type WatchModel struct {
	kind     string
	id       string
	fetch    FetchFunc
	interval time.Duration
	started  time.Time

	spinner spinner.Model
	header  *Header
	status  client.Status
	lastErr error
	polls   int
	quit    bool

	// Styles
	labelStyle   lipgloss.Style
	pendingStyle lipgloss.Style
	runningStyle lipgloss.Style
	doneStyle    lipgloss.Style
	failedStyle  lipgloss.Style
	outputStyle  lipgloss.Style
	hintStyle    lipgloss.Style
}

// NewWatchModel creates a watch view for a task or execution.
func NewWatchModel(kind, id string, fetch FetchFunc, interval time.Duration) WatchModel {
	if interval <= 0 {
		interval = time.Second
	}
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFC857"))

	return WatchModel{
		kind:     kind,
		id:       id,
		fetch:    fetch,
		interval: interval,
		started:  time.Now(),
		spinner:  s,
		header:   NewHeader(),

		labelStyle:   lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		pendingStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("243")),
		runningStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("#FFC857")).Bold(true),
		doneStyle:    lipgloss.NewStyle().Foreground(lipgloss.Color("#96E6A1")).Bold(true),
		failedStyle:  lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true),
		outputStyle: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("238")).
			Padding(0, 1),
		hintStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Italic(true),
	}
}

// Init starts the spinner and the first poll.
func (m WatchModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.poll())
}

func (m WatchModel) poll() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s, err := m.fetch(ctx)
		if err != nil {
			return fetchErrMsg{err: err}
		}
		return statusMsg{status: s}
	}
}

func (m WatchModel) schedule() tea.Cmd {
	return tea.Tick(m.interval, func(time.Time) tea.Msg { return pollMsg{} })
}

// Update handles messages.
func (m WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quit = true
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.header.SetWidth(msg.Width)
	case pollMsg:
		return m, m.poll()
	case statusMsg:
		m.polls++
		m.status = msg.status
		m.lastErr = nil
		if m.status.Terminal() {
			return m, tea.Quit
		}
		return m, m.schedule()
	case fetchErrMsg:
		m.polls++
		m.lastErr = msg.err
		if client.IsNotFound(msg.err) {
			return m, tea.Quit
		}
		return m, m.schedule()
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View renders the watch screen.
func (m WatchModel) View() string {
	var b strings.Builder
	b.WriteString(m.header.View(fmt.Sprintf("watching %s %s", m.kind, m.id)))
	b.WriteString("\n")

	status := m.status.Status
	if status == "" {
		status = "waiting"
	}
	if m.status.Terminal() {
		b.WriteString(m.renderStatus(status))
	} else {
		b.WriteString(m.spinner.View() + " " + m.renderStatus(status))
	}
	b.WriteString(m.labelStyle.Render(fmt.Sprintf("  %s elapsed", time.Since(m.started).Round(time.Second))))
	b.WriteString("\n\n")

	if m.lastErr != nil {
		b.WriteString(m.failedStyle.Render("poll failed: ") + m.lastErr.Error() + "\n\n")
	}

	if out := m.output(); out != "" {
		b.WriteString(m.outputStyle.Render(out) + "\n")
	}
	if m.status.Error != nil {
		b.WriteString(m.failedStyle.Render("error: ") + *m.status.Error + "\n")
	}

	if !m.status.Terminal() {
		b.WriteString(m.hintStyle.Render("press q to stop watching") + "\n")
	}
	return b.String()
}

func (m WatchModel) renderStatus(status string) string {
	switch status {
	case "completed":
		return m.doneStyle.Render(status)
	case "failed":
		return m.failedStyle.Render(status)
	case "processing", "running":
		return m.runningStyle.Render(status)
	default:
		return m.pendingStyle.Render(status)
	}
}

// output picks the text worth showing: an execution's output, or the
// agent and output of a completed task.
func (m WatchModel) output() string {
	if m.status.Output != nil {
		return *m.status.Output
	}
	if m.status.Result == nil {
		return ""
	}
	var lines []string
	if name, ok := m.status.Result["agent_name"].(string); ok {
		agentType, _ := m.status.Result["agent_type"].(string)
		lines = append(lines, m.labelStyle.Render("agent: ")+fmt.Sprintf("%s (%s)", name, agentType))
	}
	if out, ok := m.status.Result["output"].(string); ok {
		lines = append(lines, "", out)
	}
	return strings.Join(lines, "\n")
}

// Status returns the last status received.
func (m WatchModel) Status() client.Status {
	return m.status
}

// Interrupted reports whether the user quit before a terminal status.
func (m WatchModel) Interrupted() bool {
	return m.quit
}

// Watch runs the watch view until the item finishes or the user quits.
func Watch(kind, id string, fetch FetchFunc, interval time.Duration) (client.Status, error) {
	final, err := tea.NewProgram(NewWatchModel(kind, id, fetch, interval)).Run()
	if err != nil {
		return client.Status{}, err
	}
	m := final.(WatchModel)
	if m.lastErr != nil && !m.status.Terminal() {
		return m.status, m.lastErr
	}
	return m.status, nil
}

package cmd

import (
	"fmt"
	"io"
	"strings"

	"mod-deployer/ui"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// OperationMsg represents one event of a running batch
type OperationMsg struct {
	Type    string // "begin", "progress", "result", "summary", "done"
	Mod     string
	Color   int
	Op      string
	Done    int
	Total   int
	Result  string
	Message string
}

// ProgressModel controls the UI while the queue works through a batch
type ProgressModel struct {
	spinner      spinner.Model
	bar          progress.Model
	progressChan chan OperationMsg
	start        func(chan<- OperationMsg)
	abort        func()

	// State
	status    string
	percent   float64
	completed []string
	errors    []string
	summary   string
	aborting  bool
	done      bool
}

func initialProgressModel(start func(chan<- OperationMsg), abort func()) ProgressModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = ui.AccentStyle

	return ProgressModel{
		spinner:      s,
		bar:          progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		progressChan: make(chan OperationMsg, 100), // Buffer slightly to avoid blocking the worker
		start:        start,
		abort:        abort,
		status:       "Starting...",
	}
}

func (m ProgressModel) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		m.startBatch(),
		m.waitForActivity(),
	)
}

func (m ProgressModel) startBatch() tea.Cmd {
	return func() tea.Msg {
		m.start(m.progressChan)
		return nil
	}
}

func (m ProgressModel) waitForActivity() tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-m.progressChan
		if !ok {
			return OperationMsg{Type: "done"}
		}
		return msg
	}
}

func (m ProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.done {
			return m, tea.Quit
		}
		// The worker must finish undoing the current mod, so quitting
		// waits for the batch to end.
		if (msg.String() == "q" || msg.String() == "ctrl+c") && !m.aborting {
			m.aborting = true
			m.status = "Aborting..."
			m.abort()
		}

	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case OperationMsg:
		switch msg.Type {
		case "done":
			m.done = true
			m.status = "Finished"
			return m, tea.Quit

		case "begin":
			m.percent = 0
			if !m.aborting {
				m.status = fmt.Sprintf("%s %s...", verbing(msg.Op), ui.Colorize(msg.Mod, msg.Color))
			}

		case "progress":
			if msg.Total > 0 {
				m.percent = float64(msg.Done) / float64(msg.Total)
			}

		case "result":
			switch msg.Result {
			case "ok":
				m.completed = append(m.completed, fmt.Sprintf("%s %s", pastTense(msg.Op), ui.Colorize(msg.Mod, msg.Color)))
			case "abort":
				m.errors = append(m.errors, fmt.Sprintf("%s: aborted", msg.Mod))
			default:
				m.errors = append(m.errors, fmt.Sprintf("%s: %s", msg.Mod, msg.Message))
			}

		case "summary":
			m.summary = msg.Message
		}

		return m, m.waitForActivity()
	}

	return m, nil
}

func (m ProgressModel) View() string {
	var symbol string
	if m.done {
		symbol = ui.SuccessStyle.Render("✓")
	} else {
		symbol = m.spinner.View()
	}

	var b strings.Builder
	fmt.Fprintf(&b, "\n %s %s\n", symbol, m.status)
	if !m.done {
		fmt.Fprintf(&b, "   %s\n", m.bar.ViewAs(m.percent))
	}
	b.WriteString("\n")

	if len(m.errors) > 0 {
		b.WriteString(ui.ErrorStyle.Render("Errors:") + "\n")
		for _, e := range m.errors {
			fmt.Fprintf(&b, "  • %s\n", e)
		}
		b.WriteString("\n")
	}

	// Show last few completed
	if len(m.completed) > 0 {
		b.WriteString(ui.SuccessStyle.Render("Completed:") + "\n")
		start := 0
		if len(m.completed) > 5 && !m.done {
			start = len(m.completed) - 5
		}
		for i := start; i < len(m.completed); i++ {
			fmt.Fprintf(&b, "  • %s\n", m.completed[i])
		}
		b.WriteString("\n")
	}

	if m.done {
		b.WriteString(lipgloss.NewStyle().Bold(true).Render(m.summary) + "\n")
	} else if !m.aborting {
		b.WriteString(ui.MutedStyle.Render("Press q to abort") + "\n")
	}

	return b.String()
}

func verbing(op string) string {
	if op == "uninstall" {
		return "Uninstalling"
	}
	return "Installing"
}

func pastTense(op string) string {
	if op == "uninstall" {
		return "Uninstalled"
	}
	return "Installed"
}

// lineProgress redraws a single progress bar line for commands that run
// without the full view.
type lineProgress struct {
	w     io.Writer
	bar   progress.Model
	fancy bool
	last  int
}

func newLineProgress(w io.Writer, fancy bool) *lineProgress {
	return &lineProgress{w: w, bar: progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)), fancy: fancy, last: -1}
}

func (p *lineProgress) report(done, total int) bool {
	if total <= 0 {
		return true
	}
	pct := done * 100 / total
	if pct == p.last {
		return true
	}
	p.last = pct
	if p.fancy {
		fmt.Fprintf(p.w, "\r%s", p.bar.ViewAs(float64(done)/float64(total)))
	} else if pct%10 == 0 {
		fmt.Fprintf(p.w, "%d%%\n", pct)
	}
	return true
}

func (p *lineProgress) finish() {
	if p.fancy && p.last >= 0 {
		fmt.Fprintln(p.w)
	}
}

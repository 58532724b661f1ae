package cmd

import (
	"context"
	"fmt"

	"apk-catalog/client"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ImportProgressMsg represents a progress update from the import process
type ImportProgressMsg struct {
	Type    string // "status", "skip", "upload_start", "upload_success", "error", "summary", "done"
	Message string
	File    string
}

// ImportModel controls the UI for the import command
type ImportModel struct {
	spinner      spinner.Model
	progressChan chan ImportProgressMsg
	start        func(chan<- ImportProgressMsg)

	// State
	status    string
	uploading []string
	completed []string
	skipped   []string
	errors    []string
	summary   string
	done      bool
}

func initialImportModel(ctx context.Context, c *client.Client, dir string, opts importOptions) ImportModel {
	return newImportModel(func(progress chan<- ImportProgressMsg) {
		runImport(ctx, c, dir, opts, progress)
	})
}

func newImportModel(start func(chan<- ImportProgressMsg)) ImportModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return ImportModel{
		spinner:      s,
		progressChan: make(chan ImportProgressMsg, 100),
		start:        start,
		status:       "Initializing...",
	}
}

func (m ImportModel) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		m.startImport(),
		m.waitForActivity(),
	)
}

func (m ImportModel) startImport() tea.Cmd {
	return func() tea.Msg {
		go func() {
			defer close(m.progressChan)
			m.start(m.progressChan)
		}()
		return nil
	}
}

func (m ImportModel) waitForActivity() tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-m.progressChan
		if !ok {
			return ImportProgressMsg{Type: "done"}
		}
		return msg
	}
}

func (m ImportModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "q" || msg.String() == "ctrl+c" || m.done {
			return m, tea.Quit
		}

	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case ImportProgressMsg:
		switch msg.Type {
		case "done":
			m.done = true
			m.status = "Finished"
			return m, tea.Quit
		case "status":
			m.status = msg.Message
		case "upload_start":
			m.status = fmt.Sprintf("Uploading %s...", msg.File)
			m.uploading = append(m.uploading, msg.File)
		case "upload_success":
			m.uploading = remove(m.uploading, msg.File)
			m.completed = append(m.completed, msg.Message)
		case "skip":
			m.skipped = append(m.skipped, msg.File)
		case "error":
			m.uploading = remove(m.uploading, msg.File)
			m.errors = append(m.errors, fmt.Sprintf("%s: %s", msg.File, msg.Message))
		case "summary":
			m.summary = msg.Message
		}
		return m, m.waitForActivity()
	}

	return m, nil
}

func remove(list []string, name string) []string {
	for i, v := range list {
		if v == name {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}

func (m ImportModel) View() string {
	var symbol string
	if m.done {
		symbol = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render("✓")
	} else {
		symbol = m.spinner.View()
	}

	s := fmt.Sprintf("\n %s %s\n\n", symbol, m.status)

	if len(m.uploading) > 0 {
		s += lipgloss.NewStyle().Bold(true).Render("Uploading:") + "\n"
		for _, u := range m.uploading {
			s += fmt.Sprintf("  • %s\n", u)
		}
		s += "\n"
	}

	if len(m.errors) > 0 {
		s += lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Render("Errors:") + "\n"
		for _, e := range m.errors {
			s += fmt.Sprintf("  • %s\n", e)
		}
		s += "\n"
	}

	if len(m.completed) > 0 {
		s += lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render("Published:") + "\n"
		start := 0
		if len(m.completed) > 5 && !m.done {
			start = len(m.completed) - 5
		}
		for i := start; i < len(m.completed); i++ {
			s += fmt.Sprintf("  • %s\n", m.completed[i])
		}
		s += "\n"
	}

	if len(m.skipped) > 0 {
		s += lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(fmt.Sprintf("Skipped %d already published", len(m.skipped))) + "\n\n"
	}

	if m.done {
		s += lipgloss.NewStyle().Bold(true).Render(m.summary) + "\n"
	}

	return s
}

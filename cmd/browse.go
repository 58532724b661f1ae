package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"apk-catalog/catalog"
	"apk-catalog/client"
	"apk-catalog/logger"
	"apk-catalog/ui"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// browseCmd represents the browse command
var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Browse a running catalog in the terminal",
	Long: `Launch an interactive TUI listing the catalog of a running server.
Select entries with space and download them with ctrl+d.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		dir, _ := cmd.Flags().GetString("dir")
		return runBrowse(cmd.Context(), dir)
	},
}

func init() {
	rootCmd.AddCommand(browseCmd)
	browseCmd.Flags().StringP("dir", "d", ".", "directory downloads are saved into")
}

// catalogSource is the part of the API client the browser needs.
type catalogSource interface {
	ListAll(ctx context.Context) ([]catalog.EntryWithFeatures, error)
	Featured(ctx context.Context) ([]catalog.EntryWithFeatures, error)
	Trending(ctx context.Context) ([]catalog.EntryWithFeatures, error)
	Latest(ctx context.Context, limit int) ([]catalog.EntryWithFeatures, error)
	Download(ctx context.Context, log *zap.SugaredLogger, id int, destDir string) (string, error)
}

var _ catalogSource = (*client.Client)(nil)

type browseView int

const (
	viewAll browseView = iota
	viewFeatured
	viewTrending
	viewLatest
)

var browseViewNames = []string{"All", "Featured", "Trending", "Latest"}

func (v browseView) String() string { return browseViewNames[v] }

// EntryRow is one catalog entry as shown in the browser.
type EntryRow struct {
	ID        int
	Name      string
	Version   string
	Category  catalog.Category
	Rating    int
	Downloads int
	Selected  bool
}

// BrowseModel represents the state of the TUI
type BrowseModel struct {
	ctx           context.Context
	source        catalogSource
	destDir       string
	view          browseView
	entries       []EntryRow
	selectedIndex int
	loading       bool
	downloading   bool
	error         string
	message       string
	spinner       spinner.Model
	width         int
	height        int
}

func newBrowseModel(ctx context.Context, source catalogSource, destDir string) BrowseModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	return BrowseModel{
		ctx:     ctx,
		source:  source,
		destDir: destDir,
		loading: true,
		spinner: s,
		width:   80,
		height:  24,
	}
}

// Message types
type entriesLoadedMsg struct {
	view    browseView
	entries []EntryRow
}

type errorMsg string

type downloadCompleteMsg struct {
	message string
}

type clearMessageMsg struct{}

func (m BrowseModel) Init() tea.Cmd {
	return tea.Batch(m.loadEntries(), m.spinner.Tick)
}

// Update handles messages
func (m BrowseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case entriesLoadedMsg:
		if msg.view == m.view {
			m.entries = msg.entries
			m.loading = false
			if m.selectedIndex >= len(m.entries) {
				m.selectedIndex = 0
			}
		}
	case spinner.TickMsg:
		if !m.loading && !m.downloading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case errorMsg:
		m.error = string(msg)
		m.loading = false
		m.downloading = false
	case downloadCompleteMsg:
		m.downloading = false
		m.message = msg.message
		for i := range m.entries {
			m.entries[i].Selected = false
		}
		return m, tea.Batch(
			m.loadEntries(),
			tea.Tick(3*time.Second, func(time.Time) tea.Msg { return clearMessageMsg{} }),
		)
	case clearMessageMsg:
		m.message = ""
	}
	return m, nil
}

func (m BrowseModel) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "up", "k":
		if m.selectedIndex > 0 {
			m.selectedIndex--
		}
	case "down", "j":
		if m.selectedIndex < len(m.entries)-1 {
			m.selectedIndex++
		}
	case " ":
		if len(m.entries) > 0 {
			m.entries[m.selectedIndex].Selected = !m.entries[m.selectedIndex].Selected
		}
	case "tab":
		m.view = (m.view + 1) % browseView(len(browseViewNames))
		m.loading = true
		m.error = ""
		m.selectedIndex = 0
		return m, tea.Batch(m.loadEntries(), m.spinner.Tick)
	case "ctrl+d":
		if !m.downloading && !m.loading {
			m.downloading = true
			return m, tea.Batch(m.downloadSelected(), m.spinner.Tick)
		}
	}
	return m, nil
}

func (m BrowseModel) loadEntries() tea.Cmd {
	view := m.view
	return func() tea.Msg {
		var (
			entries []catalog.EntryWithFeatures
			err     error
		)
		switch view {
		case viewFeatured:
			entries, err = m.source.Featured(m.ctx)
		case viewTrending:
			entries, err = m.source.Trending(m.ctx)
		case viewLatest:
			entries, err = m.source.Latest(m.ctx, 0)
		default:
			entries, err = m.source.ListAll(m.ctx)
		}
		if err != nil {
			logger.Log.Errorw("Failed to fetch catalog", zap.Error(err))
			return errorMsg(fmt.Sprintf("Failed to fetch catalog: %v", err))
		}
		return entriesLoadedMsg{view: view, entries: toRows(entries)}
	}
}

func toRows(entries []catalog.EntryWithFeatures) []EntryRow {
	rows := make([]EntryRow, len(entries))
	for i, e := range entries {
		rows[i] = EntryRow{
			ID:        e.ID,
			Name:      e.Name,
			Version:   e.Version,
			Category:  e.Category,
			Rating:    e.Rating,
			Downloads: e.Downloads,
		}
	}
	return rows
}

func (m BrowseModel) downloadSelected() tea.Cmd {
	var selected []EntryRow
	for _, e := range m.entries {
		if e.Selected {
			selected = append(selected, e)
		}
	}
	return func() tea.Msg {
		if len(selected) == 0 {
			return downloadCompleteMsg{message: "No entries selected for download"}
		}
		successCount := 0
		for _, e := range selected {
			if _, err := m.source.Download(m.ctx, logger.Log, e.ID, m.destDir); err != nil {
				logger.Log.Warnw("Failed to download APK", zap.Int("id", e.ID), zap.Error(err))
				continue
			}
			successCount++
		}
		return downloadCompleteMsg{message: fmt.Sprintf("Downloaded %d/%d selected APKs", successCount, len(selected))}
	}
}

// View renders the UI
func (m BrowseModel) View() string {
	if m.loading {
		return lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true).
			Render(fmt.Sprintf("%s Loading %s...", m.spinner.View(), strings.ToLower(m.view.String()))) + "\n"
	}
	if m.downloading {
		return lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true).
			Render(fmt.Sprintf("%s Downloading selected APKs...", m.spinner.View())) + "\n"
	}
	if m.error != "" {
		return fmt.Sprintf("Error: %s\n", m.error)
	}

	var b strings.Builder
	b.WriteString(renderTabs(m.view))
	b.WriteString("\n\n")

	if len(m.entries) == 0 {
		b.WriteString("No APKs in this view.\n")
	} else {
		b.WriteString(renderHeader())
		b.WriteString("\n")
		for i, e := range m.entries {
			b.WriteString(m.renderRow(i, e))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n" + renderFooter())
	if m.message != "" {
		b.WriteString("\n" + lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(m.message))
	}
	return b.String()
}

func renderTabs(active browseView) string {
	tabs := make([]string, len(browseViewNames))
	for i, name := range browseViewNames {
		style := lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("8"))
		if browseView(i) == active {
			style = style.Bold(true).Foreground(lipgloss.Color("12")).Underline(true)
		}
		tabs[i] = style.Render(name)
	}
	return strings.Join(tabs, " ")
}

func renderHeader() string {
	headerStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		Padding(0, 1)

	return headerStyle.Render(fmt.Sprintf("  %-30s %-12s %-15s %-10s %10s", "Name", "Version", "Category", "Rating", "Downloads"))
}

func renderFooter() string {
	footerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("8")).
		Italic(true)

	return footerStyle.Render("↑/k: up  ↓/j: down  space: select  tab: view  ctrl+d: download  q: quit")
}

func (m BrowseModel) renderRow(index int, e EntryRow) string {
	rowStyle := lipgloss.NewStyle().Padding(0, 1)
	if index == m.selectedIndex {
		rowStyle = rowStyle.
			Background(lipgloss.Color("8")).
			Bold(true)
	}

	selectionIndicator := " "
	if e.Selected {
		selectionIndicator = "✓"
	}

	// Pad before coloring to keep columns aligned
	category := ui.Colorize(fmt.Sprintf("%-15s", truncate(string(e.Category), 15)), ui.CategoryColor(e.Category))

	row := fmt.Sprintf("%s %-30s %-12s %s %-10s %10d",
		selectionIndicator,
		truncate(e.Name, 30),
		truncate(e.Version, 12),
		category,
		ui.Stars(e.Rating),
		e.Downloads,
	)
	return rowStyle.Render(row)
}

// truncate shortens s to maxLen runes, ending in "...".
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) > maxLen {
		return string(r[:maxLen-3]) + "..."
	}
	return s
}

func runBrowse(ctx context.Context, destDir string) error {
	_, c, err := bootstrapClient()
	if err != nil {
		return err
	}
	defer logger.Sync()

	p := tea.NewProgram(newBrowseModel(ctx, c, destDir), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("failed to run browser: %w", err)
	}
	return nil
}

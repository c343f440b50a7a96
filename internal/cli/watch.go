package cli

import (
	"context"
	"fmt"
	"time"

	"charm.land/bubbles/v2/spinner"
	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/raphaelgruber/veridata-go/internal/client"
	"github.com/raphaelgruber/veridata-go/internal/models"
)

const (
	pollInterval = time.Second

	// visibleLogLines bounds the live log tail; the full ring is still
	// available via `veridata jobs <id>` afterwards.
	visibleLogLines = 10
)

var watchCmd = &cobra.Command{
	Use:   "watch <job-id>",
	Short: "Follow a running job's log until it finishes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return RunJobWatch(apiClient, args[0])
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

// Theme holds the color scheme for the watch display.
type Theme struct {
	Status  lipgloss.Color
	Success lipgloss.Color
	Error   lipgloss.Color
	Warn    lipgloss.Color
	Hint    lipgloss.Color
}

// defaultTheme provides default colors.
var defaultTheme = Theme{
	Status:  lipgloss.Color("#5FAFD7"), // light blue
	Success: lipgloss.Color("#00D787"), // green
	Error:   lipgloss.Color("#FF005F"), // red
	Warn:    lipgloss.Color("#FFAF00"), // amber
	Hint:    lipgloss.Color("#6C6C6C"), // dim gray
}

func (t Theme) statusStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Status)
}

func (t Theme) completedStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Success).Bold(true)
}

func (t Theme) errorStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Error).Bold(true)
}

func (t Theme) warnStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Warn)
}

func (t Theme) hintStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Hint).Italic(true)
}

// tickMsg triggers polling the job status
type tickMsg time.Time

// jobUpdateMsg carries the updated job snapshot
type jobUpdateMsg struct {
	job *models.JobInfo
	err error
}

// watchModel is the bubbletea model for following a job.
type watchModel struct {
	client   *client.Client
	jobID    string
	job      *models.JobInfo
	since    int
	logs     []models.JobLogEntry
	spinner  spinner.Model
	theme    Theme
	done     bool
	quitting bool
	err      error
}

// newWatchModel creates a new watch model.
func newWatchModel(c *client.Client, jobID string) watchModel {
	sp := spinner.New(spinner.WithSpinner(spinner.Dot))

	return watchModel{
		client:  c,
		jobID:   jobID,
		spinner: sp,
		theme:   defaultTheme,
	}
}

// Init returns the initial command (start polling).
func (m watchModel) Init() tea.Cmd {
	return tea.Batch(
		tickCmd(),
		m.spinner.Tick,
	)
}

// Update handles messages and returns the updated model.
func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyPressMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true
			return m, tea.Quit
		}

	case tickMsg:
		return m, m.fetchJob()

	case jobUpdateMsg:
		if msg.err != nil {
			m.err = fmt.Errorf("failed to fetch job status: %w", msg.err)
			m.done = true
			return m, tea.Quit
		}

		m.job = msg.job
		m.since = msg.job.NextIndex
		m.logs = append(m.logs, msg.job.Logs...)
		if len(m.logs) > visibleLogLines {
			m.logs = m.logs[len(m.logs)-visibleLogLines:]
		}

		if m.job.IsComplete {
			m.done = true
			if m.job.Status == models.JobFailed {
				if m.job.Error != "" {
					m.err = fmt.Errorf("%s", m.job.Error)
				} else {
					m.err = fmt.Errorf("job failed with unknown error")
				}
			}
			return m, tea.Quit
		}

		return m, tickCmd()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the watch display.
func (m watchModel) View() tea.View {
	return tea.NewView(m.renderContent())
}

// renderContent builds the display string.
func (m watchModel) renderContent() string {
	if m.done {
		return m.finalView()
	}

	if m.job == nil {
		return fmt.Sprintf("%s Loading job status...\n", m.spinner.View())
	}

	status := m.theme.statusStyle().Render(fmt.Sprintf("[%s]", m.job.Status))
	header := fmt.Sprintf("%s %s job %s\n", m.spinner.View(), status, m.jobID)

	var body string
	for _, entry := range m.logs {
		body += m.renderLogLine(entry)
	}

	hint := m.theme.hintStyle().Render("Press Ctrl+C to continue in background")

	return header + body + hint + "\n"
}

func (m watchModel) renderLogLine(entry models.JobLogEntry) string {
	if entry.Level == models.LogDebug && !verbose {
		return ""
	}

	line := fmt.Sprintf("  %s %s\n", entry.Time.Format("15:04:05"), entry.Message)
	switch entry.Level {
	case models.LogError:
		return m.theme.errorStyle().Render(line)
	case models.LogWarn:
		return m.theme.warnStyle().Render(line)
	case models.LogDebug:
		return m.theme.hintStyle().Render(line)
	default:
		return line
	}
}

// finalView renders the completion message.
func (m watchModel) finalView() string {
	if m.quitting {
		msg := fmt.Sprintf("\nJob %s continues in background.\nUse 'veridata jobs %s' to check status.\n",
			m.jobID, m.jobID)
		return m.theme.hintStyle().Render(msg)
	}

	if m.err != nil {
		return m.theme.errorStyle().Render(fmt.Sprintf("\n✗ Job failed: %s\n", m.err))
	}

	if m.job != nil && m.job.Status == models.JobCancelled {
		return m.theme.warnStyle().Render(fmt.Sprintf("\n⊘ Job %s cancelled\n", m.jobID))
	}

	var output string
	output += m.theme.completedStyle().Render("✓ Completed") + "\n"
	if m.job != nil && m.job.Completed != nil {
		output += fmt.Sprintf("  Duration: %s\n", m.job.Completed.Sub(m.job.Started).Round(time.Second))
	}
	return output
}

// fetchJob fetches new log entries since the last poll.
// Runs in a separate goroutine (command) to avoid blocking Update().
func (m watchModel) fetchJob() tea.Cmd {
	since := m.since
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		job, err := m.client.JobInfo(ctx, m.jobID, since)
		return jobUpdateMsg{job: job, err: err}
	}
}

// tickCmd returns a command that sends a tick after the poll interval.
func tickCmd() tea.Cmd {
	return tea.Tick(pollInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// RunJobWatch runs the interactive log-tail UI for a job.
// Returns nil on success or Ctrl+C (background), error on job failure.
func RunJobWatch(c *client.Client, jobID string) error {
	model := newWatchModel(c, jobID)
	p := tea.NewProgram(model)

	finalModel, err := p.Run()
	if err != nil {
		return fmt.Errorf("watch UI error: %w", err)
	}

	if m, ok := finalModel.(watchModel); ok {
		// Ctrl+C leaves the job running in the background, not an error
		if m.quitting {
			return nil
		}
		if m.err != nil {
			return m.err
		}
	}

	return nil
}

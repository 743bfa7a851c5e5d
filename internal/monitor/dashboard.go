package monitor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/NimbleMarkets/ntcharts/sparkline"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fyrsmithlabs/thoughtd/internal/analysis"
	"github.com/fyrsmithlabs/thoughtd/internal/thought"
)

const (
	sparklineWidth  = 30
	sparklineHeight = 3
	historySize     = 30
	fetchTimeout    = 5 * time.Second
	listLimit       = 5
)

// Source reads a project's thought history.
type Source interface {
	All(ctx context.Context, projectID string) ([]*thought.Thought, error)
}

// Model is the bubbletea model of the live thought dashboard. It polls the
// source every interval and re-renders the project summary.
type Model struct {
	source     Source
	project    string
	interval   time.Duration
	lastUpdate time.Time
	snapshot   Snapshot
	err        error
	quitting   bool

	completion progress.Model
}

// Snapshot is one poll of a project.
type Snapshot struct {
	Result analysis.SummaryResult

	// Confidence holds the confidence scores of the most recent thoughts,
	// oldest first.
	Confidence []float64

	Latest *thought.Thought
}

var (
	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("51")).
			Bold(true).
			Padding(0, 1)

	sectionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("51")).
			Bold(true).
			MarginTop(1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("45"))

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("231")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	healthyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("46")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("226")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	containerStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("238")).
			Padding(1, 2)

	footerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			MarginTop(1)

	footerKeyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("51")).
			Bold(true)

	sparklineStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("51"))
)

// NewModel creates a dashboard for project. A non-positive interval
// defaults to two seconds.
func NewModel(source Source, project string, interval time.Duration) Model {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return Model{
		source:   source,
		project:  project,
		interval: interval,
		completion: progress.New(
			progress.WithGradient("#ff0000", "#00ff00"),
			progress.WithWidth(40),
		),
	}
}

// riskBadge colors the high-risk count.
func riskBadge(high int) string {
	switch {
	case high == 0:
		return healthyStyle.Render("[✓]")
	case high < 3:
		return warningStyle.Render("[⚠]")
	default:
		return errorStyle.Render("[✗]")
	}
}

func statusBadge(status analysis.SummaryStatus, complete bool) string {
	switch {
	case status == analysis.SummaryDegraded:
		return errorStyle.Render("✗ DEGRADED")
	case status == analysis.SummaryEmpty:
		return dimStyle.Render("○ EMPTY")
	case complete:
		return healthyStyle.Render("✓ ALL STAGES")
	default:
		return warningStyle.Render("⋯ IN PROGRESS")
	}
}

func createSparkline(data []float64) string {
	if len(data) == 0 {
		return dimStyle.Render(fmt.Sprintf("%*s", sparklineWidth, "no data"))
	}

	spark := sparkline.New(sparklineWidth, sparklineHeight)
	spark.PushAll(data)
	spark.Draw()

	return sparklineStyle.Render(spark.View())
}

type tickMsg time.Time
type snapshotMsg Snapshot
type errMsg error

// Init starts the refresh loop.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		tick(m.interval),
		fetch(m.source, m.project),
	)
}

func tick(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func fetch(source Source, project string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()

		all, err := source.All(ctx, project)
		if err != nil {
			return errMsg(err)
		}
		return snapshotMsg(TakeSnapshot(all))
	}
}

// TakeSnapshot summarizes thoughts for display.
func TakeSnapshot(all []*thought.Thought) Snapshot {
	snap := Snapshot{Result: analysis.Summarize(all)}
	start := 0
	if len(all) > historySize {
		start = len(all) - historySize
	}
	for _, t := range all[start:] {
		snap.Confidence = append(snap.Confidence, t.Confidence)
	}
	if len(all) > 0 {
		snap.Latest = all[len(all)-1]
	}
	return snap
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "r":
			return m, fetch(m.source, m.project)
		}

	case tickMsg:
		return m, tea.Batch(
			tick(m.interval),
			fetch(m.source, m.project),
		)

	case snapshotMsg:
		m.snapshot = Snapshot(msg)
		m.lastUpdate = time.Now()
		m.err = nil
		return m, nil

	case errMsg:
		m.err = error(msg)
		return m, nil
	}

	return m, nil
}

// View renders the dashboard.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.err != nil {
		return m.renderError()
	}
	return m.renderDashboard()
}

func (m Model) renderError() string {
	header := headerStyle.Render(" thoughtd Dashboard ")

	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(errorStyle.Render("⚠ Cannot read thought history") + "\n\n")
	b.WriteString(dimStyle.Render("Project: ") + valueStyle.Render(m.project) + "\n")
	b.WriteString(dimStyle.Render("Error: ") + errorStyle.Render(m.err.Error()) + "\n")
	b.WriteString(footerStyle.Render("[q] quit  [r] retry") + "\n")

	return containerStyle.Render(header + "\n" + b.String())
}

func (m Model) renderDashboard() string {
	var b strings.Builder

	lastUpdate := "Never"
	if !m.lastUpdate.IsZero() {
		lastUpdate = m.lastUpdate.Format("3:04:05 PM")
	}

	res := m.snapshot.Result
	complete := res.Summary != nil && res.Summary.CompletionStatus.HasAllStages
	b.WriteString(headerStyle.Render(" thoughtd Dashboard ") + "\n")
	fmt.Fprintf(&b, "%s   %s   %s   %s\n",
		statusBadge(res.Status, complete),
		dimStyle.Render("Project:"),
		valueStyle.Render(m.project),
		dimStyle.Render(lastUpdate))

	b.WriteString(renderSummary(res, m.completion))

	if len(m.snapshot.Confidence) > 0 {
		b.WriteString("\n" + sectionStyle.Render("┃ Confidence") + "\n")
		b.WriteString(createSparkline(m.snapshot.Confidence) + "\n")
	}

	if t := m.snapshot.Latest; t != nil {
		b.WriteString("\n" + sectionStyle.Render("┃ Latest Thought") + "\n")
		b.WriteString(labelStyle.Render(fmt.Sprintf("  #%d/%d ", t.Number, t.Total)) +
			valueStyle.Render(string(t.Stage)) + "\n")
		b.WriteString("  " + dimStyle.Render(truncate(t.Content, 72)) + "\n")
	}

	footer := footerKeyStyle.Render("[q]") + footerStyle.Render(" quit  ") +
		footerKeyStyle.Render("[r]") + footerStyle.Render(" refresh  ") +
		footerStyle.Render(fmt.Sprintf("Auto: %v", m.interval))
	b.WriteString("\n" + footer)

	return containerStyle.Render(b.String())
}

// RenderSummary renders a summary result as styled text for terminals.
func RenderSummary(project string, res analysis.SummaryResult) string {
	bar := progress.New(progress.WithGradient("#ff0000", "#00ff00"), progress.WithWidth(40))

	var b strings.Builder
	complete := res.Summary != nil && res.Summary.CompletionStatus.HasAllStages
	fmt.Fprintf(&b, "%s  %s\n",
		headerStyle.Render(" "+project+" "),
		statusBadge(res.Status, complete))
	b.WriteString(renderSummary(res, bar))
	return b.String()
}

func renderSummary(res analysis.SummaryResult, bar progress.Model) string {
	var b strings.Builder

	switch res.Status {
	case analysis.SummaryEmpty:
		b.WriteString("\n" + dimStyle.Render(analysis.EmptySummaryMessage) + "\n")
		return b.String()
	case analysis.SummaryDegraded:
		b.WriteString("\n" + labelStyle.Render("  Thoughts: ") +
			valueStyle.Render(fmt.Sprintf("%d", res.TotalThoughts)) + "\n")
		b.WriteString(labelStyle.Render("  Error: ") + errorStyle.Render(res.Error) + "\n")
		return b.String()
	}

	s := res.Summary
	b.WriteString("\n" + sectionStyle.Render("┃ Progress") + "\n")
	b.WriteString(labelStyle.Render("  Thoughts: ") + valueStyle.Render(FormatCount(s.TotalThoughts, "thought")) + "\n")
	b.WriteString(labelStyle.Render("  Complete: ") +
		bar.ViewAs(s.CompletionStatus.PercentComplete/100) +
		" " + dimStyle.Render(FormatPercent(s.CompletionStatus.PercentComplete)) + "\n")
	b.WriteString(labelStyle.Render("  Confidence: ") + valueStyle.Render(FormatConfidence(s.ConfidenceAverage)) + "\n")

	b.WriteString("\n" + sectionStyle.Render("┃ Stages") + "\n")
	for _, sc := range s.Stages {
		style := dimStyle
		if sc.Count > 0 {
			style = valueStyle
		}
		fmt.Fprintf(&b, "  %s %s\n",
			labelStyle.Render(fmt.Sprintf("%-15s", sc.Stage)),
			style.Render(fmt.Sprintf("%d", sc.Count)))
	}

	b.WriteString("\n" + sectionStyle.Render("┃ Risk") + "\n")
	fmt.Fprintf(&b, "  %s %s  %s %s  %s %s %s\n",
		labelStyle.Render("high"), valueStyle.Render(fmt.Sprintf("%d", s.RiskProfile.High)),
		labelStyle.Render("medium"), valueStyle.Render(fmt.Sprintf("%d", s.RiskProfile.Medium)),
		labelStyle.Render("low"), valueStyle.Render(fmt.Sprintf("%d", s.RiskProfile.Low)),
		riskBadge(s.RiskProfile.High))

	tags := make([]string, 0, len(s.TopTags))
	for _, tc := range s.TopTags {
		tags = append(tags, fmt.Sprintf("%s (%d)", tc.Tag, tc.Count))
	}
	b.WriteString("\n" + sectionStyle.Render("┃ Context") + "\n")
	b.WriteString(labelStyle.Render("  Tags: ") + valueStyle.Render(FormatList(tags, listLimit)) + "\n")
	b.WriteString(labelStyle.Render("  Files: ") + valueStyle.Render(FormatList(s.FilesTouched, listLimit)) + "\n")

	return b.String()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

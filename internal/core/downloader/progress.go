package downloader

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guiyumin/vkit/internal/core/i18n"
)

// ErrCancelled is returned when the user quits the progress UI mid-download
var ErrCancelled = errors.New("download cancelled")

var (
	helpStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	infoStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	doneStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	errStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

// downloadState holds the shared download state
type downloadState struct {
	mu         sync.RWMutex
	current    int64
	total      int64
	speed      float64
	done       bool
	err        error
	startTime  time.Time
	endTime    time.Time
	finalSpeed float64
}

func (s *downloadState) update(current, total int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = current
	s.total = total
	elapsed := time.Since(s.startTime).Seconds()
	if elapsed > 0 {
		s.speed = float64(current) / elapsed
	}
}

func (s *downloadState) finish(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.endTime = time.Now()
	elapsed := s.endTime.Sub(s.startTime).Seconds()
	if elapsed > 0 {
		s.finalSpeed = float64(s.current) / elapsed
	}
	s.err = err
	s.done = true
}

func (s *downloadState) get() (int64, int64, float64, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current, s.total, s.speed, s.done, s.err
}

func (s *downloadState) getFinal() (elapsed time.Duration, avgSpeed float64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.endTime.IsZero() {
		return time.Since(s.startTime), s.speed
	}
	return s.endTime.Sub(s.startTime), s.finalSpeed
}

// tickMsg triggers UI updates
type tickMsg time.Time

// downloadModel is the Bubble Tea model for download progress
type downloadModel struct {
	progress progress.Model
	spinner  spinner.Model
	t        *i18n.Translations

	output string
	label  string

	state     *downloadState
	cancelled bool
}

func newDownloadModel(output, label, lang string, state *downloadState) downloadModel {
	p := progress.New(
		progress.WithDefaultGradient(),
		progress.WithWidth(50),
	)

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return downloadModel{
		progress: p,
		spinner:  s,
		t:        i18n.T(lang),
		output:   output,
		label:    label,
		state:    state,
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m downloadModel) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		tickCmd(),
	)
}

func (m downloadModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.cancelled = true
			return m, tea.Quit
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case progress.FrameMsg:
		progressModel, cmd := m.progress.Update(msg)
		m.progress = progressModel.(progress.Model)
		return m, cmd

	case tickMsg:
		current, total, _, done, _ := m.state.get()
		if done {
			return m, tea.Quit
		}

		cmds := []tea.Cmd{tickCmd()}
		if total > 0 {
			cmds = append(cmds, m.progress.SetPercent(float64(current)/float64(total)))
		}
		return m, tea.Batch(cmds...)
	}

	return m, nil
}

func (m downloadModel) View() string {
	current, total, speed, done, err := m.state.get()

	if err != nil {
		return fmt.Sprintf("\n  %s %s: %v\n\n",
			errStyle.Render("✗"),
			m.t.Download.Failed,
			err,
		)
	}

	if done {
		elapsed, avgSpeed := m.state.getFinal()
		displayPath := m.output
		if absPath, err := filepath.Abs(displayPath); err == nil {
			displayPath = absPath
		}
		return fmt.Sprintf("\n  %s %s\n  %s: %s (%s)\n  %s: %s  |  %s: %s/s\n\n",
			doneStyle.Render("✓"),
			m.t.Download.Completed,
			m.t.Download.FileSaved,
			displayPath,
			formatBytes(current),
			m.t.Download.Elapsed,
			formatDuration(elapsed),
			m.t.Download.AvgSpeed,
			formatBytes(int64(avgSpeed)),
		)
	}

	s := "\n"
	s += fmt.Sprintf("  %s %s: %s\n\n",
		m.spinner.View(),
		m.t.Download.Downloading,
		infoStyle.Render(m.label),
	)
	s += fmt.Sprintf("  %s\n\n", m.progress.View())

	if total > 0 {
		percent := float64(current) / float64(total) * 100
		eta := calculateETA(total-current, speed)
		s += fmt.Sprintf("  %s: %.1f%%  |  %s/%s  |  %s: %s/s  |  %s: %s\n",
			m.t.Download.Progress,
			percent,
			formatBytes(current),
			formatBytes(total),
			m.t.Download.Speed,
			formatBytes(int64(speed)),
			m.t.Download.ETA,
			eta,
		)
	} else {
		s += fmt.Sprintf("  %s  |  %s: %s/s\n",
			formatBytes(current),
			m.t.Download.Speed,
			formatBytes(int64(speed)),
		)
	}

	s += "\n"
	s += helpStyle.Render("  " + m.t.Download.CancelHint)
	s += "\n"

	return s
}

func calculateETA(remaining int64, speed float64) string {
	if speed <= 0 {
		return "??:??"
	}
	eta := time.Duration(float64(remaining)/speed) * time.Second
	return formatDuration(eta)
}

// RunDownloadTUI runs d.Download behind a Bubble Tea progress display.
// Quitting the UI cancels the transfer and returns ErrCancelled.
func RunDownloadTUI(ctx context.Context, d *Downloader, url, output, label, lang string) (*Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	state := &downloadState{startTime: time.Now()}

	tuiDownloader := *d
	tuiDownloader.Progress = state.update

	var result *Result
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		var err error
		result, err = tuiDownloader.Download(ctx, url, output)
		state.finish(err)
	}()

	model := newDownloadModel(output, label, lang, state)

	finalModel, runErr := tea.NewProgram(model).Run()
	if runErr != nil {
		cancel()
		<-finished
		return nil, runErr
	}

	if m, ok := finalModel.(downloadModel); ok && m.cancelled {
		cancel()
		<-finished
		return nil, ErrCancelled
	}

	<-finished
	if _, _, _, _, err := state.get(); err != nil {
		return nil, err
	}
	return result, nil
}

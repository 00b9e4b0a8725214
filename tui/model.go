package tui

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"h265-compressor/config"
	"h265-compressor/encoder"
)

// State represents the current application state
type State int

const (
	StateForm State = iota
	StateStarting
	StateEncoding
	StateDone
	StateError
	StateCancelled
)

// Starter launches an encode. *encoder.Encoder satisfies it.
type Starter interface {
	Start(ctx context.Context, req encoder.Request) (*encoder.Supervisor, <-chan encoder.Event, error)
}

// encodeStartedMsg is sent once the supervisor is running
type encodeStartedMsg struct {
	sup    *encoder.Supervisor
	events <-chan encoder.Event
}

// startRejectedMsg carries a request that failed validation
type startRejectedMsg struct {
	err error
}

// eventMsg wraps one supervisor event
type eventMsg encoder.Event

// TickMsg is sent periodically to refresh stats while encoding
type TickMsg time.Time

// Model is the Bubble Tea model for the TUI
type Model struct {
	Config  config.Config
	State   State
	starter Starter
	ctx     context.Context

	form form

	Progress    progress.Model
	Spinner     spinner.Model
	LogViewport viewport.Model
	ShowLogs    bool
	Width       int
	Height      int

	sup          *encoder.Supervisor
	events       <-chan encoder.Event
	request      encoder.Request
	percent      int
	haveProgress bool
	mediaTime    time.Duration
	usage        encoder.Usage
	outputSize   int64
	StartTime    time.Time
	Outcome      *encoder.Outcome
	quitting     bool
	// stop hard-stops the current run by cancelling its context.
	stop context.CancelFunc
}

// NewModel creates the form, prefilled with input when given.
func NewModel(ctx context.Context, cfg config.Config, starter Starter, input string) Model {
	prog := progress.New(
		progress.WithGradient(gradientFrom, gradientTo),
		progress.WithWidth(50),
		progress.WithoutPercentage(),
	)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(colorSecondary)

	vp := viewport.New(80, 12)
	vp.SetContent("")

	return Model{
		Config:      cfg,
		State:       StateForm,
		starter:     starter,
		ctx:         ctx,
		form:        newForm(cfg, input),
		Progress:    prog,
		Spinner:     sp,
		LogViewport: vp,
	}
}

// Init initializes the Bubble Tea program
func (m Model) Init() tea.Cmd {
	return m.form.init()
}

func (m Model) startEncoding(ctx context.Context, req encoder.Request) tea.Cmd {
	starter := m.starter
	return func() tea.Msg {
		sup, events, err := starter.Start(ctx, req)
		if err != nil {
			return startRejectedMsg{err: err}
		}
		return encodeStartedMsg{sup: sup, events: events}
	}
}

// waitForEvent blocks on the supervisor channel for the next event.
func waitForEvent(events <-chan encoder.Event) tea.Cmd {
	return func() tea.Msg {
		if ev, ok := <-events; ok {
			return eventMsg(ev)
		}
		return nil
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(200*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.Progress.Width = msg.Width - 20
		if m.Progress.Width < 10 {
			m.Progress.Width = 10
		}
		m.LogViewport.Width = msg.Width - 4

		// Ensure viewport height doesn't go negative
		logHeight := msg.Height - 22
		if logHeight < 0 {
			logHeight = 0
		}
		m.LogViewport.Height = logHeight

	case startRejectedMsg:
		m.release()
		if m.quitting {
			return m, tea.Quit
		}
		m.State = StateForm
		m.form.err = formMessage(msg.err)
		return m, m.form.focusCmd()

	case encodeStartedMsg:
		m.sup = msg.sup
		m.events = msg.events
		m.State = StateEncoding
		m.StartTime = time.Now()
		if m.quitting {
			m.sup.Cancel()
		}
		return m, tea.Batch(waitForEvent(m.events), tickCmd(), m.Spinner.Tick)

	case eventMsg:
		return m.handleEvent(encoder.Event(msg))

	case TickMsg:
		if m.State == StateEncoding && m.sup != nil {
			m.refreshStats()
			cmds = append(cmds, tickCmd())
		}

	case spinner.TickMsg:
		if m.State == StateStarting || m.State == StateEncoding {
			var cmd tea.Cmd
			m.Spinner, cmd = m.Spinner.Update(msg)
			cmds = append(cmds, cmd)
		}

	default:
		if m.State == StateForm {
			cmds = append(cmds, m.form.update(msg))
		}
	}

	// Update viewport if showing logs
	if m.ShowLogs {
		var cmd tea.Cmd
		m.LogViewport, cmd = m.LogViewport.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if key == "ctrl+c" {
		return m.quit()
	}

	switch m.State {
	case StateForm:
		switch key {
		case "esc":
			return m, tea.Quit
		case "enter":
			req, err := m.form.request(m.Config)
			if err != nil {
				m.form.err = formMessage(err)
				return m, nil
			}
			m.form.err = ""
			m.form.blur()
			m.request = req
			m.State = StateStarting
			m.resetRun()
			return m, tea.Batch(m.startEncoding(m.ctx, req), m.Spinner.Tick)
		}
		return m, m.form.update(msg)

	case StateStarting:
		if key == "q" {
			return m.quit()
		}
		return m, nil

	case StateEncoding:
		switch key {
		case "c", "esc":
			m.sup.Cancel()
		case "q":
			return m.quit()
		case "l", "L":
			m.ShowLogs = !m.ShowLogs
		default:
			if m.ShowLogs {
				var cmd tea.Cmd
				m.LogViewport, cmd = m.LogViewport.Update(msg)
				return m, cmd
			}
		}
		return m, nil

	default:
		switch key {
		case "q", "esc":
			return m, tea.Quit
		case "l", "L":
			m.ShowLogs = !m.ShowLogs
		case "enter", "n":
			m.State = StateForm
			m.form.reset(m.Config)
			return m, m.form.focusCmd()
		default:
			if m.ShowLogs {
				var cmd tea.Cmd
				m.LogViewport, cmd = m.LogViewport.Update(msg)
				return m, cmd
			}
		}
		return m, nil
	}
}

// quit cancels a running encode and waits for its outcome before exiting,
// so ffmpeg is never left running behind the program. The first press asks
// the supervisor to cancel; a second press kills ffmpeg through the run
// context. Either way the program exits only once the outcome arrives.
func (m Model) quit() (tea.Model, tea.Cmd) {
	switch {
	case m.State == StateStarting:
		m.quitting = true
		m.hardStop()
		return m, nil
	case m.State == StateEncoding && m.sup != nil:
		if m.quitting {
			m.hardStop()
			return m, nil
		}
		m.quitting = true
		m.sup.Cancel()
		return m, nil
	}
	return m, tea.Quit
}

func (m Model) hardStop() {
	if m.stop != nil {
		m.stop()
	}
}

// release frees the run context once its run has settled.
func (m *Model) release() {
	m.hardStop()
	m.stop = nil
}

func (m Model) handleEvent(ev encoder.Event) (tea.Model, tea.Cmd) {
	if ev.Progress != nil {
		m.percent = ev.Progress.Percent
		m.haveProgress = true
		m.mediaTime = ev.Progress.Elapsed
		return m, waitForEvent(m.events)
	}
	if ev.Outcome == nil {
		return m, waitForEvent(m.events)
	}

	out := *ev.Outcome
	m.Outcome = &out
	m.release()
	m.refreshStats()
	switch out.Status {
	case encoder.StatusSuccess:
		m.State = StateDone
	case encoder.StatusCancelled:
		m.State = StateCancelled
	default:
		m.State = StateError
	}
	if m.quitting {
		return m, tea.Quit
	}
	return m, nil
}

func (m *Model) refreshStats() {
	if m.sup == nil {
		return
	}
	m.usage = m.sup.Usage()
	if size, err := m.sup.OutputSize(); err == nil {
		m.outputSize = size
	}
	if logs := m.sup.Logs(); len(logs) > 0 {
		m.LogViewport.SetContent(strings.Join(logs, "\n"))
		m.LogViewport.GotoBottom()
	}
}

func (m *Model) resetRun() {
	m.sup = nil
	m.events = nil
	m.percent = 0
	m.haveProgress = false
	m.mediaTime = 0
	m.usage = encoder.Usage{}
	m.outputSize = 0
	m.Outcome = nil
	m.quitting = false
	m.stop = nil
	m.LogViewport.SetContent("")
}

package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/wasm-clipboard/clipboard"
	"github.com/wippyai/wasm-clipboard/runtime"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	funcStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	typeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFD166"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

const (
	activityLimit = 8
	pollInterval  = 200 * time.Millisecond
)

// activityLog keeps the most recent clipboard events for display.
type activityLog struct {
	mu     sync.Mutex
	events []clipboard.Event
}

func (l *activityLog) observe(ev clipboard.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
	if len(l.events) > activityLimit {
		l.events = l.events[len(l.events)-activityLimit:]
	}
}

func (l *activityLog) snapshot() []clipboard.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]clipboard.Event(nil), l.events...)
}

type interactiveModel struct {
	// guestMu serializes guest calls, polls and shutdown; commands run on
	// their own goroutines.
	guestMu  sync.Mutex
	err      error
	rt       *runtime.Runtime
	instance *runtime.Instance
	module   *runtime.Module
	activity *activityLog
	opts     options
	result   string
	funcs    []runtime.FuncInfo
	inputs   []textinput.Model
	selected int
	focusIdx int
	state    modelState
}

type modelState int

const (
	stateSelectFunc modelState = iota
	stateInputArgs
	stateShowResult
)

func newInteractiveModel(opts options) *interactiveModel {
	return &interactiveModel{
		opts:     opts,
		activity: &activityLog{},
		state:    stateSelectFunc,
	}
}

type loadedMsg struct {
	err   error
	rt    *runtime.Runtime
	mod   *runtime.Module
	funcs []runtime.FuncInfo
}

type callResultMsg struct {
	err    error
	result string
}

type tickMsg struct{}

func tick() tea.Cmd {
	return tea.Tick(pollInterval, func(time.Time) tea.Msg { return tickMsg{} })
}

func (m *interactiveModel) Init() tea.Cmd {
	return tea.Batch(m.loadModule, tick())
}

// poll delivers clipboard completions that landed since the last call. A
// call in progress already polls, so a busy guest is skipped.
func (m *interactiveModel) poll() tea.Msg {
	if !m.guestMu.TryLock() {
		return nil
	}
	defer m.guestMu.Unlock()
	if m.rt != nil {
		_, _ = m.rt.Poll(context.Background())
	}
	return nil
}

func (m *interactiveModel) loadModule() tea.Msg {
	ctx := context.Background()

	data, err := os.ReadFile(m.opts.wasmFile)
	if err != nil {
		return loadedMsg{err: err}
	}

	cfg, err := loadConfig(m.opts)
	if err != nil {
		return loadedMsg{err: err}
	}

	rt, _, err := newRuntime(ctx, cfg, m.opts, m.activity.observe)
	if err != nil {
		return loadedMsg{err: err}
	}

	mod, err := rt.Compile(ctx, data)
	if err != nil {
		rt.Close(ctx)
		return loadedMsg{err: err}
	}

	return loadedMsg{funcs: mod.Exports(), rt: rt, mod: mod}
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			if m.state == stateInputArgs && msg.String() == "q" {
				break
			}
			m.shutdown()
			return m, tea.Quit

		case "up", "k":
			if m.state == stateSelectFunc && m.selected > 0 {
				m.selected--
			}

		case "down", "j":
			if m.state == stateSelectFunc && m.selected < len(m.funcs)-1 {
				m.selected++
			}

		case "enter":
			switch m.state {
			case stateSelectFunc:
				if len(m.funcs) == 0 {
					break
				}
				m.prepareInputs()
				if len(m.inputs) == 0 {
					return m, m.callFunction
				}
				m.state = stateInputArgs

			case stateInputArgs:
				return m, m.callFunction

			case stateShowResult:
				m.state = stateSelectFunc
				m.result = ""
				m.err = nil
			}

		case "tab":
			if m.state == stateInputArgs && len(m.inputs) > 1 {
				m.inputs[m.focusIdx].Blur()
				m.focusIdx = (m.focusIdx + 1) % len(m.inputs)
				m.inputs[m.focusIdx].Focus()
			}

		case "esc":
			switch m.state {
			case stateInputArgs:
				m.state = stateSelectFunc
				m.inputs = nil
			case stateShowResult:
				m.state = stateSelectFunc
				m.result = ""
				m.err = nil
			}
		}

	case loadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.guestMu.Lock()
		m.funcs = msg.funcs
		m.rt = msg.rt
		m.module = msg.mod
		m.guestMu.Unlock()

	case callResultMsg:
		m.result = msg.result
		m.err = msg.err
		m.state = stateShowResult

	case tickMsg:
		// Returning re-renders the activity log.
		return m, tea.Batch(m.poll, tick())
	}

	if m.state == stateInputArgs {
		var cmds []tea.Cmd
		for i := range m.inputs {
			var cmd tea.Cmd
			m.inputs[i], cmd = m.inputs[i].Update(msg)
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)
	}

	return m, nil
}

func (m *interactiveModel) prepareInputs() {
	f := m.funcs[m.selected]
	m.inputs = make([]textinput.Model, len(f.Params))
	for i, p := range f.Params {
		ti := textinput.New()
		ti.Placeholder = api.ValueTypeName(p)
		ti.Prompt = fmt.Sprintf("arg%d: ", i)
		ti.Width = 40
		if i == 0 {
			ti.Focus()
		}
		m.inputs[i] = ti
	}
	m.focusIdx = 0
}

func (m *interactiveModel) shutdown() {
	m.guestMu.Lock()
	defer m.guestMu.Unlock()
	ctx := context.Background()
	if m.instance != nil {
		m.instance.Close(ctx)
		m.instance = nil
	}
	if m.rt != nil {
		m.rt.Close(ctx)
	}
}

// callFunction calls the selected export, then runs whatever clipboard work
// is already done. Reads still in flight land on a later tick.
func (m *interactiveModel) callFunction() tea.Msg {
	m.guestMu.Lock()
	defer m.guestMu.Unlock()
	ctx := context.Background()

	if m.instance == nil {
		if m.module == nil {
			return callResultMsg{err: fmt.Errorf("module not loaded")}
		}
		inst, err := m.module.Instantiate(ctx)
		if err != nil {
			return callResultMsg{err: err}
		}
		m.instance = inst
	}

	f := m.funcs[m.selected]
	args := make([]string, len(m.inputs))
	for i, input := range m.inputs {
		args[i] = input.Value()
	}

	results, err := m.instance.CallArgs(ctx, f.Name, args)
	if err != nil && !exitedCleanly(err) {
		return callResultMsg{err: err}
	}
	if _, err := m.rt.Poll(ctx); err != nil {
		return callResultMsg{err: err}
	}

	if len(results) == 0 {
		return callResultMsg{result: "(no results)"}
	}
	return callResultMsg{result: strings.Join(results, ", ")}
}

func (m *interactiveModel) View() string {
	if m.err != nil && m.state != stateShowResult {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err))
	}

	if m.rt == nil {
		return "Loading module..."
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("WASM Clipboard Runner"))
	b.WriteString(" ")
	b.WriteString(m.opts.wasmFile)
	b.WriteString("\n\n")

	switch m.state {
	case stateSelectFunc:
		if len(m.funcs) == 0 {
			b.WriteString("Module exports no functions.\n\n")
			b.WriteString(helpStyle.Render("q quit"))
			break
		}
		b.WriteString("Select a function to call:\n\n")
		for i, f := range m.funcs {
			if i == m.selected {
				b.WriteString(selectedStyle.Render("> " + f.String()))
			} else {
				b.WriteString("  " + formatFunc(f))
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter call • q quit"))

	case stateInputArgs:
		f := m.funcs[m.selected]
		b.WriteString(fmt.Sprintf("Calling %s\n\n", funcStyle.Render(f.Name)))
		for i, input := range m.inputs {
			b.WriteString(input.View())
			b.WriteString(" ")
			b.WriteString(typeStyle.Render(api.ValueTypeName(f.Params[i])))
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("tab next field • enter call • esc back"))

	case stateShowResult:
		f := m.funcs[m.selected]
		b.WriteString(fmt.Sprintf("Result of %s:\n\n", funcStyle.Render(f.Name)))
		if m.err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		} else {
			b.WriteString(resultStyle.Render(m.result))
		}
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter continue • q quit"))
	}

	if events := m.activity.snapshot(); len(events) > 0 {
		b.WriteString("\n\nClipboard activity:\n")
		for _, ev := range events {
			b.WriteString("  ")
			b.WriteString(formatEvent(ev))
			b.WriteString("\n")
		}
	}

	return b.String()
}

func formatFunc(f runtime.FuncInfo) string {
	params := make([]string, len(f.Params))
	for i, p := range f.Params {
		params[i] = typeStyle.Render(api.ValueTypeName(p))
	}
	result := ""
	if len(f.Results) > 0 {
		results := make([]string, len(f.Results))
		for i, r := range f.Results {
			results[i] = typeStyle.Render(api.ValueTypeName(r))
		}
		result = " -> " + strings.Join(results, ", ")
	}
	return funcStyle.Render(f.Name) + "(" + strings.Join(params, ", ") + ")" + result
}

func formatEvent(ev clipboard.Event) string {
	line := fmt.Sprintf("%-5s %-11s", ev.Op, ev.Outcome)
	switch ev.Outcome {
	case clipboard.OutcomeCompleted:
		if ev.Op == clipboard.OpRead {
			return resultStyle.Render(fmt.Sprintf("%s %d bytes at 0x%x", line, ev.Bytes, ev.Addr))
		}
		return resultStyle.Render(fmt.Sprintf("%s %d bytes", line, ev.Bytes))
	case clipboard.OutcomeRejected, clipboard.OutcomeFailed:
		return errorStyle.Render(fmt.Sprintf("%s %v", line, ev.Err))
	case clipboard.OutcomeUnavailable:
		return warnStyle.Render(line)
	default:
		return line
	}
}

func runInteractive(opts options) error {
	p := tea.NewProgram(newInteractiveModel(opts), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

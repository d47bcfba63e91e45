package ui

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rovshanmuradov/burn-portal/internal/amount"
	"github.com/rovshanmuradov/burn-portal/internal/burn"
	"github.com/rovshanmuradov/burn-portal/internal/events"
	"github.com/rovshanmuradov/burn-portal/internal/logger"
	"github.com/rovshanmuradov/burn-portal/internal/portal"
	"github.com/rovshanmuradov/burn-portal/internal/ui/component"
	"github.com/rovshanmuradov/burn-portal/internal/ui/style"
	"go.uber.org/zap"
)

type focus int

const (
	focusAmount focus = iota
	focusPresets
)

// amountChars are the keys the amount field accepts.
const amountChars = "0123456789,."

// Options wires a Model.
type Options struct {
	Session *portal.Session
	Bridge  *Bridge
	// Approvals is nil when signatures are approved automatically.
	Approvals *Approvals
	Logs      *logger.LogBuffer
	Logger    *zap.Logger
}

// Model is the single-screen portal UI.
type Model struct {
	ctx       context.Context
	session   *portal.Session
	bridge    *Bridge
	approvals *Approvals
	logger    *zap.Logger

	keys    KeyMap
	help    help.Model
	input   textinput.Model
	spinner spinner.Model
	header  *component.Header
	logs    *component.LogPane
	toasts  *component.Toasts

	focus       focus
	preset      int
	inputAmount amount.TokenAmount
	inputErr    string
	approval    *ApprovalMsg
	confirming  bool
	width       int
	now         func() time.Time
}

func NewModel(ctx context.Context, opts Options) *Model {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	input := textinput.New()
	input.Placeholder = "0"
	input.Prompt = ""
	input.CharLimit = 40
	input.Width = 28
	input.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = style.WarningStyle

	return &Model{
		ctx:       ctx,
		session:   opts.Session,
		bridge:    opts.Bridge,
		approvals: opts.Approvals,
		logger:    opts.Logger.Named("ui"),
		keys:      DefaultKeyMap(),
		help:      help.New(),
		input:     input,
		spinner:   sp,
		header:    component.NewHeader(),
		logs:      component.NewLogPane(opts.Logs),
		toasts:    component.NewToasts(),
		now:       time.Now,
	}
}

func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink, m.spinner.Tick, tick()}
	if m.bridge != nil {
		cmds = append(cmds, m.bridge.Listen())
	}
	if m.approvals != nil {
		cmds = append(cmds, m.approvals.Listen())
	}
	return tea.Batch(cmds...)
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.header.SetWidth(msg.Width)
		m.help.Width = msg.Width
		m.logs.SetSize(msg.Width, 10)
		return m, nil

	case tickMsg:
		m.toasts.Expire(time.Time(msg))
		return m, tick()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case EventMsg:
		m.handleEvent(msg.Event)
		return m, m.bridge.Listen()

	case ApprovalMsg:
		m.approval = &msg
		return m, nil

	case burnDoneMsg:
		m.confirming = false
		if msg.err != nil {
			m.logger.Debug("Burn finished with error", zap.Error(msg.err))
		}
		return m, nil

	case refreshDoneMsg:
		if msg.err != nil {
			m.toasts.Push(false, "Refresh failed", m.now())
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) handleEvent(e events.Event) {
	switch ev := e.(type) {
	case *events.NotificationEvent:
		m.toasts.Push(ev.Kind == string(burn.KindSuccess), ev.Message, m.now())
	case *events.AmountChangedEvent:
		m.syncInput()
	}
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		if m.approval != nil {
			m.approval.Answer(false)
			m.approval = nil
		}
		return m, tea.Quit
	}

	if m.approval != nil {
		return m.handleApprovalKey(msg)
	}

	if key.Matches(msg, m.keys.ToggleLogs) {
		m.logs.Toggle()
		return m, nil
	}

	snap := m.session.Machine().Snapshot()
	switch {
	case snap.State == burn.AwaitingConfirmation:
		return m.handleDialogKey(msg)
	case snap.IsPending() || m.confirming:
		return m, m.logs.Update(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	case key.Matches(msg, m.keys.Enter):
		m.requestBurn()
		return m, nil
	case key.Matches(msg, m.keys.Tab):
		m.toggleFocus()
		return m, nil
	case key.Matches(msg, m.keys.Max):
		m.session.SetMax()
		m.syncInput()
		return m, nil
	case key.Matches(msg, m.keys.Refresh):
		return m, m.refreshCmd()
	}

	if m.focus == focusPresets {
		return m.handlePresetKey(msg)
	}
	return m.handleAmountKey(msg)
}

// typing reports whether msg edits the amount field.
func (m *Model) typing(msg tea.KeyMsg) bool {
	if m.focus != focusAmount || msg.Type != tea.KeyRunes {
		return false
	}
	for _, r := range msg.Runes {
		if !strings.ContainsRune(amountChars, r) {
			return false
		}
	}
	return true
}

func (m *Model) handleApprovalKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var ok bool
	switch {
	case key.Matches(msg, m.keys.Approve):
		ok = true
	case key.Matches(msg, m.keys.Reject), key.Matches(msg, m.keys.Cancel):
		ok = false
	default:
		return m, nil
	}
	m.approval.Answer(ok)
	m.approval = nil
	return m, m.approvals.Listen()
}

func (m *Model) handleDialogKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Confirm is already scheduled; the request can no longer be cancelled.
	if m.confirming {
		return m, nil
	}
	switch {
	case key.Matches(msg, m.keys.Enter):
		m.confirming = true
		return m, m.confirmCmd()
	case key.Matches(msg, m.keys.Cancel):
		if err := m.session.Cancel(); err != nil {
			m.logger.Debug("Cancel ignored", zap.Error(err))
		}
	}
	return m, nil
}

func (m *Model) handlePresetKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	presets := m.session.Presets()
	if len(presets) == 0 {
		return m, nil
	}
	switch {
	case key.Matches(msg, m.keys.Left):
		m.preset = (m.preset - 1 + len(presets)) % len(presets)
	case key.Matches(msg, m.keys.Right):
		m.preset = (m.preset + 1) % len(presets)
	case key.Matches(msg, m.keys.Presets):
		i := int(msg.Runes[0] - '1')
		if i >= len(presets) {
			return m, nil
		}
		m.preset = i
	default:
		return m, nil
	}
	if err := m.session.SelectPreset(m.preset); err != nil {
		m.logger.Debug("Preset not applied", zap.Error(err))
	}
	m.syncInput()
	return m, nil
}

func (m *Model) handleAmountKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyRunes && !m.typing(msg) {
		return m, nil
	}

	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	after := m.input.Value()
	if after == before {
		return m, cmd
	}

	if err := m.session.SetAmountInput(after); err != nil {
		m.input.SetValue(before)
		m.input.CursorEnd()
		m.inputErr = err.Error()
		return m, cmd
	}
	m.inputErr = ""
	m.inputAmount = m.session.Amount()
	return m, cmd
}

// syncInput rewrites the field when the amount changed from elsewhere.
func (m *Model) syncInput() {
	current := m.session.Amount()
	if current.Equal(m.inputAmount) {
		return
	}
	m.inputAmount = current
	m.inputErr = ""
	if current.IsZero() {
		m.input.SetValue("")
	} else {
		m.input.SetValue(m.session.AmountDisplay())
	}
	m.input.CursorEnd()
}

func (m *Model) toggleFocus() {
	if m.focus == focusAmount {
		m.focus = focusPresets
		m.input.Blur()
		return
	}
	m.focus = focusAmount
	m.input.Focus()
}

func (m *Model) requestBurn() {
	_, err := m.session.RequestBurn()
	switch {
	case err == nil:
	case errors.Is(err, burn.ErrZeroAmount):
		m.toasts.Push(false, "Enter an amount to burn", m.now())
	case errors.Is(err, burn.ErrNotConnected):
		m.toasts.Push(false, "Connect a wallet first", m.now())
	default:
		m.logger.Debug("Burn request refused", zap.Error(err))
	}
}

func (m *Model) confirmCmd() tea.Cmd {
	ctx, s := m.ctx, m.session
	return func() tea.Msg {
		return burnDoneMsg{err: s.Confirm(ctx)}
	}
}

func (m *Model) refreshCmd() tea.Cmd {
	ctx, s := m.ctx, m.session
	return func() tea.Msg {
		rctx, cancel := context.WithTimeout(ctx, burn.DefaultRefreshTimeout)
		defer cancel()
		return refreshDoneMsg{err: s.Refresh(rctx)}
	}
}

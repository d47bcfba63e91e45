package ui

import (
	"context"
	"io"
	"sync/atomic"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// mockModel quits from Init unless told to panic or to keep running.
type mockModel struct {
	panicOnInit   bool
	panicOnUpdate bool
	panicOnView   bool
	stay          bool
}

func (m *mockModel) Init() tea.Cmd {
	if m.panicOnInit {
		panic("init panic test")
	}
	if m.stay {
		return nil
	}
	return tea.Quit
}

func (m *mockModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.panicOnUpdate {
		panic("update panic test")
	}
	return m, nil
}

func (m *mockModel) View() string {
	if m.panicOnView {
		panic("view panic test")
	}
	return "Test UI"
}

func headless() []tea.ProgramOption {
	return []tea.ProgramOption{
		tea.WithInput(nil),
		tea.WithOutput(io.Discard),
		tea.WithoutRenderer(),
		tea.WithoutSignalHandler(),
	}
}

func runHandler(t *testing.T, ctx context.Context, handler *RecoveryHandler) error {
	t.Helper()
	done := make(chan error, 1)
	go func() { done <- handler.Run(ctx) }()
	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("recovery handler did not return")
		return nil
	}
}

func TestRecoveryHandlerNormalExit(t *testing.T) {
	handler := NewRecoveryHandler(zaptest.NewLogger(t), func() (tea.Model, []tea.ProgramOption) {
		return &mockModel{}, headless()
	})

	require.NoError(t, runHandler(t, context.Background(), handler))
	assert.Equal(t, 0, handler.RestartCount())
}

func TestRecoveryHandlerRestartsAfterPanic(t *testing.T) {
	var runs atomic.Int32
	handler := NewRecoveryHandler(zaptest.NewLogger(t), func() (tea.Model, []tea.ProgramOption) {
		return &mockModel{panicOnInit: runs.Add(1) == 1}, headless()
	})
	handler.restartDelay = 10 * time.Millisecond

	require.NoError(t, runHandler(t, context.Background(), handler))
	assert.Equal(t, 1, handler.RestartCount())
	assert.Equal(t, int32(2), runs.Load())
}

func TestRecoveryHandlerFactoryPanic(t *testing.T) {
	var runs atomic.Int32
	handler := NewRecoveryHandler(zaptest.NewLogger(t), func() (tea.Model, []tea.ProgramOption) {
		if runs.Add(1) == 1 {
			panic("factory panic test")
		}
		return &mockModel{}, headless()
	})
	handler.restartDelay = 10 * time.Millisecond

	require.NoError(t, runHandler(t, context.Background(), handler))
	assert.Equal(t, 1, handler.RestartCount())
}

func TestRecoveryHandlerGivesUp(t *testing.T) {
	handler := NewRecoveryHandler(zaptest.NewLogger(t), func() (tea.Model, []tea.ProgramOption) {
		return &mockModel{panicOnInit: true}, headless()
	})
	handler.restartDelay = time.Millisecond
	handler.maxRestarts = 2

	err := runHandler(t, context.Background(), handler)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too many times")
	assert.Equal(t, 3, handler.RestartCount())
}

func TestRecoveryHandlerContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	handler := NewRecoveryHandler(zaptest.NewLogger(t), func() (tea.Model, []tea.ProgramOption) {
		return &mockModel{stay: true}, headless()
	})

	time.AfterFunc(50*time.Millisecond, cancel)
	require.NoError(t, runHandler(t, ctx, handler))
	assert.Equal(t, 0, handler.RestartCount())
}

func TestSafeUIWrapper(t *testing.T) {
	logger := zaptest.NewLogger(t)

	t.Run("view panic", func(t *testing.T) {
		w := NewSafeUIWrapper(&mockModel{panicOnView: true}, logger)
		assert.Contains(t, w.View(), "View crashed")
	})

	t.Run("update panic", func(t *testing.T) {
		w := NewSafeUIWrapper(&mockModel{panicOnUpdate: true}, logger)
		model, cmd := w.Update(tea.KeyMsg{Type: tea.KeyEnter})
		assert.Same(t, w, model)
		assert.Nil(t, cmd)
	})

	t.Run("init panic", func(t *testing.T) {
		w := NewSafeUIWrapper(&mockModel{panicOnInit: true}, logger)
		assert.Nil(t, w.Init())
	})

	t.Run("passes through", func(t *testing.T) {
		w := NewSafeUIWrapper(&mockModel{}, logger)
		assert.Equal(t, "Test UI", w.View())
		assert.NotNil(t, w.Init())
	})
}

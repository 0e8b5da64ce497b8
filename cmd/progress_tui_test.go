package cmd

import (
	"bytes"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func feed(t *testing.T, m ProgressModel, msgs ...tea.Msg) ProgressModel {
	t.Helper()
	for _, msg := range msgs {
		next, _ := m.Update(msg)
		var ok bool
		m, ok = next.(ProgressModel)
		require.True(t, ok)
	}
	return m
}

func TestProgressModelTracksBatch(t *testing.T) {
	m := initialProgressModel(func(chan<- OperationMsg) {}, func() {})

	m = feed(t, m,
		OperationMsg{Type: "begin", Mod: "Foo_v1", Op: "install"},
		OperationMsg{Type: "progress", Mod: "Foo_v1", Done: 3, Total: 4},
	)
	assert.InDelta(t, 0.75, m.percent, 1e-9)
	assert.Contains(t, m.status, "Installing")

	m = feed(t, m,
		OperationMsg{Type: "result", Mod: "Foo_v1", Op: "install", Result: "ok"},
		OperationMsg{Type: "begin", Mod: "Bar_v1", Op: "install"},
		OperationMsg{Type: "result", Mod: "Bar_v1", Op: "install", Result: "error", Message: "boom"},
		OperationMsg{Type: "summary", Message: "1 succeeded, 1 failed, 0 aborted"},
	)
	require.Len(t, m.completed, 1)
	assert.Contains(t, m.completed[0], "Foo_v1")
	assert.Equal(t, []string{"Bar_v1: boom"}, m.errors)
	assert.Zero(t, m.percent, "a new mod restarts the bar")

	next, cmd := m.Update(OperationMsg{Type: "done"})
	m = next.(ProgressModel)
	assert.True(t, m.done)
	require.NotNil(t, cmd)
	assert.Contains(t, m.View(), "1 succeeded, 1 failed, 0 aborted")
}

func TestProgressModelAbortWaitsForWorker(t *testing.T) {
	aborts := 0
	m := initialProgressModel(func(chan<- OperationMsg) {}, func() { aborts++ })

	m = feed(t, m,
		tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")},
		tea.KeyMsg{Type: tea.KeyCtrlC},
	)
	assert.Equal(t, 1, aborts)
	assert.True(t, m.aborting)
	assert.False(t, m.done, "quitting waits for the undo to finish")
	assert.NotContains(t, m.View(), "Press q to abort")

	m = feed(t, m, OperationMsg{Type: "result", Mod: "Foo_v1", Op: "install", Result: "abort"})
	assert.Equal(t, []string{"Foo_v1: aborted"}, m.errors)
}

func TestProgressModelClosedChannelEnds(t *testing.T) {
	m := initialProgressModel(func(chan<- OperationMsg) {}, func() {})
	close(m.progressChan)
	msg := m.waitForActivity()()
	assert.Equal(t, OperationMsg{Type: "done"}, msg)
}

func TestLineProgress(t *testing.T) {
	var buf bytes.Buffer
	p := newLineProgress(&buf, false)
	for i := 0; i <= 20; i++ {
		assert.True(t, p.report(i, 20))
	}
	p.finish()
	assert.Equal(t, "0%\n10%\n20%\n30%\n40%\n50%\n60%\n70%\n80%\n90%\n100%\n", buf.String())
}

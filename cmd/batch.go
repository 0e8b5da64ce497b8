package cmd

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"mod-deployer/db"
	"mod-deployer/logger"
	"mod-deployer/modpack"
	"mod-deployer/pathutil"
	"mod-deployer/queue"
	"mod-deployer/ui"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
)

// journal collects the outcome of every mod of a batch and writes them
// once the batch id is known.
type journal struct {
	targetDir string

	mu      sync.Mutex
	started map[uint64]time.Time
	ops     []*db.Operation
}

func newJournal(targetDir string) *journal {
	return &journal{targetDir: targetDir, started: map[uint64]time.Time{}}
}

func (j *journal) begin(m *modpack.Mod) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.started[m.Hash] = time.Now()
}

func (j *journal) result(m *modpack.Mod, op queue.Op, res queue.Result, err error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	now := time.Now()
	started, ok := j.started[m.Hash]
	if !ok {
		started = now
	}
	entry := &db.Operation{
		Kind:       op.String(),
		Identity:   m.Identity,
		Hash:       pathutil.FormatHash(m.Hash),
		Result:     res.String(),
		TargetDir:  j.targetDir,
		StartedAt:  started,
		FinishedAt: now,
	}
	if err != nil {
		entry.Message = err.Error()
	}
	j.ops = append(j.ops, entry)
}

func (j *journal) flush(s queue.Summary) {
	j.mu.Lock()
	defer j.mu.Unlock()
	for _, op := range j.ops {
		op.Batch = s.Batch.String()
		if err := db.Record(op); err != nil {
			logger.Log.Warnw("Failed to journal operation",
				zap.String("identity", op.Identity),
				zap.Error(err),
			)
		}
	}
	j.ops = nil
}

// runBatch installs or uninstalls mods in order on a fresh queue and
// blocks until the batch ends.
func runBatch(a *app, mods []*modpack.Mod) queue.Summary {
	q := queue.New(a.coll, logger.Log)
	jr := newJournal(a.cfg.TargetDir)

	var summary queue.Summary
	handler := func(events chan<- OperationMsg) queue.Handler {
		send := func(msg OperationMsg) {
			if events != nil {
				events <- msg
			}
		}
		return queue.Handler{
			Begin: func(m *modpack.Mod, op queue.Op) {
				jr.begin(m)
				send(OperationMsg{Type: "begin", Mod: m.Identity, Color: ui.ColorFor(m.Hash), Op: op.String()})
			},
			Progress: func(m *modpack.Mod, done, total int) bool {
				send(OperationMsg{Type: "progress", Mod: m.Identity, Done: done, Total: total})
				return true
			},
			Result: func(m *modpack.Mod, op queue.Op, res queue.Result, err error) {
				jr.result(m, op, res, err)
				msg := OperationMsg{Type: "result", Mod: m.Identity, Color: ui.ColorFor(m.Hash), Op: op.String(), Result: res.String()}
				if err != nil {
					msg.Message = err.Error()
				}
				send(msg)
			},
			Ended: func(s queue.Summary) {
				jr.flush(s)
				summary = s
				send(OperationMsg{Type: "summary", Message: summaryLine(s)})
				if events != nil {
					close(events)
				}
			},
		}
	}

	if plainOutput {
		h := handler(nil)
		h.Begin = chain(h.Begin, func(m *modpack.Mod, op queue.Op) {
			fmt.Printf("%s %s...\n", verbing(op.String()), m.Identity)
		})
		h.Result = chainResult(h.Result, func(m *modpack.Mod, op queue.Op, res queue.Result, err error) {
			printResult(os.Stdout, m, op, res, err)
		})
		q.Enqueue(mods, h)
		q.Wait()
		fmt.Println(summaryLine(summary))
		return summary
	}

	model := initialProgressModel(func(events chan<- OperationMsg) {
		q.Enqueue(mods, handler(events))
	}, q.Abort)
	if _, err := tea.NewProgram(model).Run(); err != nil {
		logger.Log.Errorw("Progress view failed", zap.Error(err))
		q.Abort()
		// keep the worker from blocking on a view that is gone
		go func() {
			for range model.progressChan {
			}
		}()
	}
	q.Wait()
	return summary
}

func chain(a, b func(*modpack.Mod, queue.Op)) func(*modpack.Mod, queue.Op) {
	return func(m *modpack.Mod, op queue.Op) {
		a(m, op)
		b(m, op)
	}
}

func chainResult(a, b func(*modpack.Mod, queue.Op, queue.Result, error)) func(*modpack.Mod, queue.Op, queue.Result, error) {
	return func(m *modpack.Mod, op queue.Op, res queue.Result, err error) {
		a(m, op, res, err)
		b(m, op, res, err)
	}
}

func printResult(w io.Writer, m *modpack.Mod, op queue.Op, res queue.Result, err error) {
	switch res {
	case queue.ResultOK:
		fmt.Fprintf(w, "  %s %s\n", pastTense(op.String()), m.Identity)
	case queue.ResultAbort:
		fmt.Fprintf(w, "  %s: aborted\n", m.Identity)
	default:
		fmt.Fprintf(w, "  %s: %v\n", m.Identity, err)
	}
}

func summaryLine(s queue.Summary) string {
	return fmt.Sprintf("%d succeeded, %d failed, %d aborted", s.OK, s.Failed, s.Aborted)
}

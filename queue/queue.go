// Package queue serializes install and uninstall requests against one
// collection on a single background worker.
package queue

import (
	"sync"
	"sync/atomic"

	"mod-deployer/collection"
	"mod-deployer/errs"
	"mod-deployer/modpack"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Op is what the worker does with a mod.
type Op int

const (
	OpInstall Op = iota
	OpUninstall
)

func (o Op) String() string {
	if o == OpUninstall {
		return "uninstall"
	}
	return "install"
}

// Result is the outcome of one queued mod.
type Result int

const (
	ResultOK Result = iota
	ResultError
	ResultAbort
)

func (r Result) String() string {
	switch r {
	case ResultError:
		return "error"
	case ResultAbort:
		return "abort"
	}
	return "ok"
}

// Summary counts the outcomes of one Enqueue call.
type Summary struct {
	Batch   uuid.UUID
	OK      int
	Failed  int
	Aborted int
}

// Handler receives the events of a batch. Every callback is optional and
// runs on the worker goroutine.
type Handler struct {
	Begin func(m *modpack.Mod, op Op)
	// Progress returns false to abort this mod and everything queued after it.
	Progress func(m *modpack.Mod, done, total int) bool
	Result   func(m *modpack.Mod, op Op, res Result, err error)
	Ended    func(s Summary)
}

type batch struct {
	h       Handler
	pending int
	summary Summary

	// access is checked once, before the first mod of the batch runs
	checked bool
	denied  error
}

type job struct {
	mod   *modpack.Mod
	batch *batch
}

// Queue drains queued mods one at a time. The collection is locked while
// the worker runs.
type Queue struct {
	c   *collection.Collection
	log *zap.SugaredLogger

	mu      sync.Mutex
	idle    *sync.Cond
	jobs    []job
	queued  map[uint64]bool
	running bool

	aborting atomic.Bool
}

// New creates an idle queue for c.
func New(c *collection.Collection, log *zap.SugaredLogger) *Queue {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	q := &Queue{c: c, log: log, queued: map[uint64]bool{}}
	q.idle = sync.NewCond(&q.mu)
	return q
}

// Enqueue appends the mods not already queued and starts the worker if it
// is idle. It returns the batch id passed to h.Ended.
func (q *Queue) Enqueue(mods []*modpack.Mod, h Handler) uuid.UUID {
	b := &batch{h: h, summary: Summary{Batch: uuid.New()}}

	q.mu.Lock()
	for _, m := range mods {
		if m == nil || q.queued[m.Hash] {
			continue
		}
		q.queued[m.Hash] = true
		q.jobs = append(q.jobs, job{mod: m, batch: b})
		b.pending++
	}
	if b.pending == 0 {
		q.mu.Unlock()
		if h.Ended != nil {
			h.Ended(b.summary)
		}
		return b.summary.Batch
	}
	q.log.Infow("Batch queued", "batch", b.summary.Batch, "mods", b.pending)
	if !q.running {
		q.running = true
		q.aborting.Store(false)
		q.c.Lock()
		go q.run()
	}
	q.mu.Unlock()
	return b.summary.Batch
}

// Abort stops the current mod at its next progress step and drains the
// rest of the queue with ResultAbort.
func (q *Queue) Abort() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.running {
		q.log.Infow("Abort requested", "pending", len(q.jobs))
		q.aborting.Store(true)
	}
}

// Busy reports whether the worker is running.
func (q *Queue) Busy() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.running
}

// Wait blocks until the queue is empty and the worker has stopped.
func (q *Queue) Wait() {
	q.mu.Lock()
	defer q.mu.Unlock()
	for q.running {
		q.idle.Wait()
	}
}

func (q *Queue) run() {
	for {
		q.mu.Lock()
		if len(q.jobs) == 0 {
			q.mu.Unlock()
			q.c.Unlock()
			// uninstalled mods without source are ghosts now
			q.c.PurgeGhosts()

			q.mu.Lock()
			if len(q.jobs) > 0 {
				// enqueued while purging
				q.aborting.Store(false)
				q.c.Lock()
				q.mu.Unlock()
				continue
			}
			q.running = false
			q.idle.Broadcast()
			q.mu.Unlock()
			return
		}
		j := q.jobs[0]
		q.jobs[0] = job{}
		q.jobs = q.jobs[1:]
		delete(q.queued, j.mod.Hash)
		q.mu.Unlock()

		q.process(j)

		b := j.batch
		b.pending--
		if b.pending == 0 {
			q.log.Infow("Batch finished",
				"batch", b.summary.Batch,
				"ok", b.summary.OK,
				"failed", b.summary.Failed,
				"aborted", b.summary.Aborted,
			)
			if b.h.Ended != nil {
				b.h.Ended(b.summary)
			}
		}
	}
}

func (q *Queue) process(j job) {
	m, h := j.mod, j.batch.h
	op := OpInstall
	if m.HasBackup() {
		op = OpUninstall
	}
	log := q.log.With("batch", j.batch.summary.Batch, "identity", m.Identity, "op", op.String())

	if q.aborting.Load() {
		q.finish(j, op, ResultAbort, errs.Abort(op.String(), m.Identity))
		return
	}
	if b := j.batch; !b.checked {
		b.checked = true
		if b.denied = q.c.CheckAccess(); b.denied != nil {
			q.log.Errorw("Batch refused", "batch", b.summary.Batch, "error", b.denied)
		}
	}
	if j.batch.denied != nil {
		q.finish(j, op, ResultError, j.batch.denied)
		return
	}
	if h.Begin != nil {
		h.Begin(m, op)
	}

	progress := func(done, total int) bool {
		if q.aborting.Load() {
			return false
		}
		if h.Progress != nil && !h.Progress(m, done, total) {
			q.aborting.Store(true)
			return false
		}
		return true
	}

	var err error
	if op == OpInstall {
		err = q.c.Install(m, progress)
	} else {
		err = q.c.Uninstall(m, progress)
	}

	switch {
	case err == nil:
		q.finish(j, op, ResultOK, nil)
	case errs.Is(err, errs.Aborted):
		q.aborting.Store(true)
		log.Infow("Operation aborted")
		q.finish(j, op, ResultAbort, err)
	default:
		log.Errorw("Operation failed", "error", err)
		q.finish(j, op, ResultError, err)
	}
}

func (q *Queue) finish(j job, op Op, res Result, err error) {
	switch res {
	case ResultOK:
		j.batch.summary.OK++
	case ResultError:
		j.batch.summary.Failed++
	case ResultAbort:
		j.batch.summary.Aborted++
	}
	if j.batch.h.Result != nil {
		j.batch.h.Result(j.mod, op, res, err)
	}
}

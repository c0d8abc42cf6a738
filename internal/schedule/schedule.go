// Package schedule provides cancellable repeating jobs. Ticks of one job run
// strictly in order; every job carries a unique id so it can be cancelled
// without touching any other job.
package schedule

import (
	"sync"
	"sync/atomic"
	"time"
)

var jobSeq atomic.Uint64

// TickFunc runs once per tick. Returning false stops the job.
type TickFunc func() bool

// Scheduler starts repeating jobs.
type Scheduler interface {
	Every(interval time.Duration, tick TickFunc) *Job
}

// Job is a handle to one scheduled repeating task.
type Job struct {
	id   uint64
	once sync.Once
	stop chan struct{}
	done chan struct{}
}

func newJob() *Job {
	return &Job{
		id:   jobSeq.Add(1),
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
}

// ID uniquely identifies the job within the process.
func (j *Job) ID() uint64 {
	return j.id
}

// Cancel stops the job. No tick starts after Cancel returns. It is safe to
// call more than once and from inside the job's own tick.
func (j *Job) Cancel() {
	j.once.Do(func() { close(j.stop) })
}

// Cancelled reports whether Cancel has been called or the job stopped itself.
func (j *Job) Cancelled() bool {
	select {
	case <-j.stop:
		return true
	default:
		return false
	}
}

// Done is closed once the job will never tick again.
func (j *Job) Done() <-chan struct{} {
	return j.done
}

// Ticker runs jobs on their own goroutine using time.Ticker.
type Ticker struct{}

// Every implements Scheduler.
func (Ticker) Every(interval time.Duration, tick TickFunc) *Job {
	j := newJob()
	go func() {
		defer close(j.done)
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-j.stop:
				return
			case <-t.C:
				if j.Cancelled() {
					return
				}
				if !tick() {
					j.Cancel()
					return
				}
			}
		}
	}()
	return j
}

// Manual is a deterministic Scheduler for tests: ticks happen only when
// Advance is called.
type Manual struct {
	mu   sync.Mutex
	jobs []*manualJob
}

type manualJob struct {
	job      *Job
	interval time.Duration
	tick     TickFunc
}

// NewManual creates an idle manual scheduler.
func NewManual() *Manual {
	return &Manual{}
}

// Every implements Scheduler.
func (m *Manual) Every(interval time.Duration, tick TickFunc) *Job {
	j := newJob()
	m.mu.Lock()
	m.jobs = append(m.jobs, &manualJob{job: j, interval: interval, tick: tick})
	m.mu.Unlock()
	return j
}

// Advance fires one tick on every live job, in creation order, and returns
// how many ticks ran.
func (m *Manual) Advance() int {
	m.mu.Lock()
	jobs := make([]*manualJob, len(m.jobs))
	copy(jobs, m.jobs)
	m.mu.Unlock()

	ran := 0
	for _, mj := range jobs {
		if mj.job.Cancelled() {
			m.finish(mj)
			continue
		}
		ran++
		if !mj.tick() {
			mj.job.Cancel()
		}
		if mj.job.Cancelled() {
			m.finish(mj)
		}
	}
	return ran
}

// RunUntilIdle advances until no live jobs remain or limit ticks pass.
func (m *Manual) RunUntilIdle(limit int) {
	for i := 0; i < limit && m.Active() > 0; i++ {
		m.Advance()
	}
}

// Active returns the number of jobs that have not been cancelled.
func (m *Manual) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, mj := range m.jobs {
		if !mj.job.Cancelled() {
			n++
		}
	}
	return n
}

func (m *Manual) finish(mj *manualJob) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, other := range m.jobs {
		if other == mj {
			m.jobs = append(m.jobs[:i], m.jobs[i+1:]...)
			close(mj.job.done)
			return
		}
	}
}

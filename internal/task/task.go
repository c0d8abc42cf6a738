// Package task owns the authoritative collection of agent tasks, keyed by
// company ticker, and persists it through a pluggable Backend.
package task

import "time"

// Status tags where a task is in its authoring lifecycle.
type Status string

// Task status constants
const (
	StatusDraft     Status = "draft"
	StatusRecording Status = "recording"
	StatusAnalyzing Status = "analyzing"
	StatusReviewing Status = "reviewing"
)

// Screenshot is a still frame sampled from a task's recording.
type Screenshot struct {
	ID        string  `json:"id"`
	TS        float64 `json:"ts"`        // seconds into the source recording
	ImageData string  `json:"imageData"` // data URL of the captured frame
	Note      string  `json:"note"`
}

// PlanStep is one unit of a task's execution plan. Slice order is execution order.
type PlanStep struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Detail   string `json:"detail"`
	Blocking bool   `json:"blocking"`
}

// Understanding is the drafted restatement of a task plus clarifying questions.
// Questions and Answers always have the same length.
type Understanding struct {
	Summary   string   `json:"summary"`
	Questions []string `json:"questions"`
	Answers   []string `json:"answers"`
}

// Task is one unit of agent work scoped to one company.
type Task struct {
	ID            string         `json:"id"`
	Ticker        string         `json:"ticker"`
	Name          string         `json:"name"`
	Desc          string         `json:"desc"`
	Status        Status         `json:"status"`
	VideoURL      string         `json:"videoUrl,omitempty"`
	Screenshots   []Screenshot   `json:"screenshots"`
	Understanding *Understanding `json:"understanding,omitempty"`
	Plan          []PlanStep     `json:"plan"`
	CreatedAt     time.Time      `json:"createdAt"`
}

// HasVideo reports whether a recording reference has been attached.
func (t Task) HasVideo() bool {
	return t.VideoURL != ""
}

// Clone returns a deep copy so callers never share slices with the store.
func (t Task) Clone() Task {
	out := t
	out.Screenshots = cloneSlice(t.Screenshots)
	out.Plan = cloneSlice(t.Plan)
	if t.Understanding != nil {
		u := *t.Understanding
		u.Questions = cloneSlice(u.Questions)
		u.Answers = cloneSlice(u.Answers)
		out.Understanding = &u
	}
	return out
}

// cloneSlice copies s while keeping nil and empty slices distinct.
func cloneSlice[T any](s []T) []T {
	if s == nil {
		return nil
	}
	out := make([]T, len(s))
	copy(out, s)
	return out
}

package task

import "fmt"

// Mutation is a typed change applied to a single task by Store.Apply.
// The set of mutations is closed; fields not covered here (ticker, name,
// desc, createdAt) are fixed at creation.
type Mutation interface {
	Kind() string
	apply(t *Task) error
}

// SetStatus sets the task's status tag.
type SetStatus struct {
	Status Status
}

func (SetStatus) Kind() string { return "set_status" }

func (m SetStatus) apply(t *Task) error {
	t.Status = m.Status
	return nil
}

// AttachVideo records the finished recording reference and the status that
// accompanies it.
type AttachVideo struct {
	Ref    string
	Status Status
}

func (AttachVideo) Kind() string { return "attach_video" }

func (m AttachVideo) apply(t *Task) error {
	if m.Ref == "" {
		return fmt.Errorf("attach video: empty recording reference")
	}
	t.VideoURL = m.Ref
	if m.Status != "" {
		t.Status = m.Status
	}
	return nil
}

// SetScreenshots replaces the whole screenshot sequence.
type SetScreenshots struct {
	Screenshots []Screenshot
	Status      Status
}

func (SetScreenshots) Kind() string { return "set_screenshots" }

func (m SetScreenshots) apply(t *Task) error {
	for i := 1; i < len(m.Screenshots); i++ {
		if m.Screenshots[i].TS <= m.Screenshots[i-1].TS {
			return fmt.Errorf("set screenshots: offsets must be strictly ascending (%.2f after %.2f)",
				m.Screenshots[i].TS, m.Screenshots[i-1].TS)
		}
	}
	shots := cloneSlice(m.Screenshots)
	if shots == nil {
		shots = []Screenshot{}
	}
	t.Screenshots = shots
	if m.Status != "" {
		t.Status = m.Status
	}
	return nil
}

// SetScreenshotNote edits the free-text note of one screenshot.
type SetScreenshotNote struct {
	ScreenshotID string
	Note         string
}

func (SetScreenshotNote) Kind() string { return "set_screenshot_note" }

func (m SetScreenshotNote) apply(t *Task) error {
	for i := range t.Screenshots {
		if t.Screenshots[i].ID == m.ScreenshotID {
			t.Screenshots[i].Note = m.Note
			return nil
		}
	}
	return fmt.Errorf("screenshot %s: %w", m.ScreenshotID, ErrNotFound)
}

// SetUnderstanding replaces the drafted understanding record.
type SetUnderstanding struct {
	Understanding Understanding
}

func (SetUnderstanding) Kind() string { return "set_understanding" }

func (m SetUnderstanding) apply(t *Task) error {
	if len(m.Understanding.Questions) != len(m.Understanding.Answers) {
		return fmt.Errorf("set understanding: %d questions but %d answers",
			len(m.Understanding.Questions), len(m.Understanding.Answers))
	}
	u := Understanding{
		Summary:   m.Understanding.Summary,
		Questions: cloneSlice(m.Understanding.Questions),
		Answers:   cloneSlice(m.Understanding.Answers),
	}
	t.Understanding = &u
	return nil
}

// SetAnswer edits one answer of the understanding record.
type SetAnswer struct {
	Index  int
	Answer string
}

func (SetAnswer) Kind() string { return "set_answer" }

func (m SetAnswer) apply(t *Task) error {
	if t.Understanding == nil {
		return fmt.Errorf("set answer: task has no understanding yet")
	}
	if m.Index < 0 || m.Index >= len(t.Understanding.Answers) {
		return fmt.Errorf("set answer: index %d out of range [0,%d)", m.Index, len(t.Understanding.Answers))
	}
	t.Understanding.Answers[m.Index] = m.Answer
	return nil
}

// SetPlan replaces the whole plan sequence.
type SetPlan struct {
	Steps []PlanStep
}

func (SetPlan) Kind() string { return "set_plan" }

func (m SetPlan) apply(t *Task) error {
	steps := cloneSlice(m.Steps)
	if steps == nil {
		steps = []PlanStep{}
	}
	t.Plan = steps
	return nil
}

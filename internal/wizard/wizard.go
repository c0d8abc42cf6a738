// Package wizard sequences task authoring into three stages: details,
// capture and review. The controller holds only the current task id; all
// task fields are read from the store on demand.
package wizard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/PreetShah25/arbitra-AI/internal/capture"
	"github.com/PreetShah25/arbitra-AI/internal/frames"
	"github.com/PreetShah25/arbitra-AI/internal/logging"
	"github.com/PreetShah25/arbitra-AI/internal/planedit"
	"github.com/PreetShah25/arbitra-AI/internal/task"
	"github.com/PreetShah25/arbitra-AI/internal/upload"
)

// DefaultName is used when the details form leaves the name blank.
const DefaultName = "Untitled task"

var (
	// ErrNotConfirmed is returned when the user declines a destructive action.
	ErrNotConfirmed = errors.New("action not confirmed")
	// ErrStageGuard is returned when a transition's entry guard fails.
	ErrStageGuard = errors.New("stage not ready")
	// ErrNoCurrentTask is returned by operations that need an open task.
	ErrNoCurrentTask = errors.New("no current task")
)

// Stage is a wizard stage.
type Stage int

// Wizard stages
const (
	StageDetails Stage = iota + 1
	StageCapture
	StageReview
)

func (s Stage) String() string {
	switch s {
	case StageDetails:
		return "details"
	case StageCapture:
		return "capture"
	case StageReview:
		return "review"
	}
	return fmt.Sprintf("stage(%d)", int(s))
}

// Extractor turns a recording into screenshots. *frames.Extractor satisfies it.
type Extractor interface {
	Extract(ctx context.Context, req frames.Request) ([]task.Screenshot, error)
}

// Deps are the controller's collaborators.
type Deps struct {
	Store     *task.Store
	Capture   *capture.Source
	Upload    *upload.Simulator
	Extractor Extractor
	Companies CompanySource
	Notifier  Notifier
	Confirmer Confirmer
	Logger    *slog.Logger
}

// Controller is the wizard state machine.
type Controller struct {
	store     *task.Store
	capture   *capture.Source
	upload    *upload.Simulator
	extractor Extractor
	companies CompanySource
	notifier  Notifier
	confirmer Confirmer
	logger    *slog.Logger

	mu        sync.Mutex
	open      bool
	stage     Stage
	ticker    string
	currentID string
	progress  int
	uploaded  bool
	recording string // latest finished recording in this session
	upToken   uint64 // identifies the upload whose progress is shown
	onChange  func()
}

// New creates a controller. Notifier and Confirmer default to a no-op
// notifier and a confirmer that always declines.
func New(d Deps) *Controller {
	if d.Notifier == nil {
		d.Notifier = NotifierFunc(func(Notice) {})
	}
	if d.Confirmer == nil {
		d.Confirmer = ConfirmerFunc(func(string) bool { return false })
	}
	if d.Logger == nil {
		d.Logger = logging.Discard()
	}
	return &Controller{
		store:     d.Store,
		capture:   d.Capture,
		upload:    d.Upload,
		extractor: d.Extractor,
		companies: d.Companies,
		notifier:  d.Notifier,
		confirmer: d.Confirmer,
		logger:    d.Logger,
		stage:     StageDetails,
	}
}

// OnChange registers a callback run after progress or stage changes that
// happen off the caller's goroutine.
func (c *Controller) OnChange(fn func()) {
	c.mu.Lock()
	c.onChange = fn
	c.mu.Unlock()
}

// Open reports whether a wizard session is active.
func (c *Controller) Open() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

// Stage returns the current stage.
func (c *Controller) Stage() Stage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stage
}

// CurrentTaskID returns the open task's id, or "" before details are committed.
func (c *Controller) CurrentTaskID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentID
}

// Ticker returns the company the session is scoped to.
func (c *Controller) Ticker() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ticker
}

// Progress returns the upload progress shown in the capture stage.
func (c *Controller) Progress() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.progress
}

// Current returns a snapshot of the open task.
func (c *Controller) Current() (task.Task, bool) {
	id := c.CurrentTaskID()
	if id == "" {
		return task.Task{}, false
	}
	return c.store.Get(id)
}

// NewAnalysis starts a fresh session at the details stage for the selected company.
func (c *Controller) NewAnalysis() {
	c.teardown()

	c.mu.Lock()
	c.open = true
	c.stage = StageDetails
	if c.companies != nil {
		c.ticker = c.companies.SelectedTicker()
	}
	c.mu.Unlock()
	c.logger.Info("wizard_opened", "ticker", c.Ticker())
}

// Resume reopens an existing task. It enters the capture stage when the task
// already has a recording, otherwise the details stage; it never jumps
// straight to review.
func (c *Controller) Resume(id string) error {
	t, ok := c.store.Get(id)
	if !ok {
		err := fmt.Errorf("task %s: %w", id, task.ErrNotFound)
		c.notify(NoticePrecondition, "Task no longer exists", err)
		return err
	}
	c.teardown()

	c.mu.Lock()
	c.open = true
	c.ticker = t.Ticker
	c.currentID = t.ID
	if t.HasVideo() {
		c.stage = StageCapture
		c.progress = 100
		c.uploaded = true
		c.recording = t.VideoURL
	} else {
		c.stage = StageDetails
	}
	stage := c.stage
	c.mu.Unlock()

	c.logger.Info("wizard_resumed", "task_id", id, "stage", stage.String())
	return nil
}

// CommitDetails leaves the details stage. For a new session it creates the
// task; a resumed task keeps its stored name and description.
func (c *Controller) CommitDetails(ctx context.Context, name, desc string) (task.Task, error) {
	c.mu.Lock()
	stage, ticker, currentID := c.stage, c.ticker, c.currentID
	c.mu.Unlock()
	if stage != StageDetails {
		return task.Task{}, fmt.Errorf("commit details in %s stage: %w", stage, ErrStageGuard)
	}

	if currentID != "" {
		t, ok := c.store.Get(currentID)
		if !ok {
			c.reset()
			return task.Task{}, fmt.Errorf("task %s: %w", currentID, task.ErrNotFound)
		}
		c.setStage(StageCapture)
		return t, nil
	}

	if strings.TrimSpace(desc) == "" {
		c.notify(NoticeValidation, "Describe what the agent should do", task.ErrEmptyDescription)
		return task.Task{}, task.ErrEmptyDescription
	}
	if strings.TrimSpace(name) == "" {
		name = DefaultName
	}

	t, err := c.store.Create(ctx, ticker, name, desc)
	if err != nil {
		c.notify(NoticeFailure, "Could not save task", err)
		return task.Task{}, err
	}

	c.mu.Lock()
	c.currentID = t.ID
	c.stage = StageCapture
	c.progress = 0
	c.uploaded = false
	c.recording = ""
	c.mu.Unlock()
	return t, nil
}

// StartRecording begins a live capture for the current task. A permission
// denial is reported as a notice; supplying a file remains available.
func (c *Controller) StartRecording(ctx context.Context) error {
	t, err := c.captureTask()
	if err != nil {
		return err
	}

	if err := c.capture.StartLive(ctx, t.Name); err != nil {
		if errors.Is(err, capture.ErrPermissionDenied) {
			c.notify(NoticePermission, "Screen capture was not allowed. You can supply a recording file instead", err)
		} else {
			c.notify(NoticeFailure, "Could not start recording", err)
		}
		return err
	}
	c.apply(ctx, t.ID, task.SetStatus{Status: task.StatusRecording})
	return nil
}

// Recording reports whether a live capture is in progress.
func (c *Controller) Recording() bool {
	return c.capture.Recording()
}

// StopRecording finalizes the live capture and starts its upload.
func (c *Controller) StopRecording(ctx context.Context) error {
	if _, err := c.captureTask(); err != nil {
		return err
	}
	rec, err := c.capture.StopLive()
	if err != nil {
		c.notify(NoticeFailure, "Recording failed", err)
		return err
	}
	return c.beginUpload(ctx, rec)
}

// SupplyFile uses an existing media file as the recording and starts its upload.
func (c *Controller) SupplyFile(ctx context.Context, path string) error {
	if _, err := c.captureTask(); err != nil {
		return err
	}
	rec, err := c.capture.SupplyFile(path)
	if err != nil {
		c.notify(NoticeValidation, "Cannot use that file", err)
		return err
	}
	return c.beginUpload(ctx, rec)
}

func (c *Controller) beginUpload(ctx context.Context, rec capture.Recording) error {
	c.mu.Lock()
	id := c.currentID
	c.upToken++
	token := c.upToken
	c.progress = 0
	c.uploaded = false
	c.recording = rec.Ref()
	c.mu.Unlock()

	c.upload.Start(ctx, id, rec, func(p upload.Progress) {
		c.uploadProgress(token, p)
	})
	return nil
}

func (c *Controller) uploadProgress(token uint64, p upload.Progress) {
	c.mu.Lock()
	if c.upToken != token || c.currentID != p.TaskID {
		c.mu.Unlock()
		return
	}
	c.progress = p.Percent
	if p.Done && p.Err == nil {
		c.uploaded = true
	}
	onChange := c.onChange
	c.mu.Unlock()

	if p.Done && p.Err != nil && !errors.Is(p.Err, task.ErrNotFound) {
		c.notify(NoticeFailure, "Could not save recording", p.Err)
	}
	if onChange != nil {
		onChange()
	}
}

// Continue advances from capture to review once the upload has completed.
// Screenshots are extracted first unless the task already has some.
func (c *Controller) Continue(ctx context.Context) error {
	c.mu.Lock()
	stage, ready := c.stage, c.uploaded && c.progress >= 100
	c.mu.Unlock()
	if stage != StageCapture {
		return fmt.Errorf("continue from %s stage: %w", stage, ErrStageGuard)
	}
	if !ready {
		return fmt.Errorf("upload still in progress: %w", ErrStageGuard)
	}

	t, err := c.captureTask()
	if err != nil {
		return err
	}
	if len(t.Screenshots) == 0 {
		if err := c.extract(ctx, t); err != nil {
			return err
		}
	}
	return c.enterReview(ctx, t.ID)
}

// GenerateNow extracts screenshots immediately, without waiting for the
// upload, and advances to review. Existing screenshots are replaced.
func (c *Controller) GenerateNow(ctx context.Context) error {
	t, err := c.captureTask()
	if err != nil {
		c.notify(NoticePrecondition, "Open a task first", err)
		return err
	}
	if err := c.extract(ctx, t); err != nil {
		return err
	}
	return c.enterReview(ctx, t.ID)
}

// extract runs the extractor detached from ctx cancellation so that closing
// the wizard never abandons an extraction that has started.
func (c *Controller) extract(ctx context.Context, t task.Task) error {
	c.mu.Lock()
	// The recording from this session is newer than any attached URL.
	ref := c.recording
	if ref == "" {
		ref = t.VideoURL
	}
	c.mu.Unlock()

	company := t.Ticker
	if c.companies != nil {
		if name := c.companies.CompanyName(t.Ticker); name != "" {
			company = name
		}
	}

	_, err := c.extractor.Extract(context.WithoutCancel(ctx), frames.Request{
		Ref:         ref,
		TaskID:      t.ID,
		Description: strings.TrimSpace(t.Desc),
		CompanyName: company,
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, frames.ErrNoRecording):
		c.notify(NoticePrecondition, "Record or supply a video first", err)
	case errors.Is(err, frames.ErrNoTask):
		c.notify(NoticePrecondition, "Open a task first", err)
	default:
		c.notify(NoticeFailure, "Screenshot extraction failed", err)
	}
	return err
}

// enterReview moves to review unless the session was discarded while
// extraction ran; the task keeps the extraction results either way.
func (c *Controller) enterReview(ctx context.Context, id string) error {
	c.mu.Lock()
	if c.currentID != id || c.stage != StageCapture {
		c.mu.Unlock()
		c.logger.Info("wizard_review_skipped", "task_id", id)
		return nil
	}
	c.stage = StageReview
	c.mu.Unlock()

	c.apply(ctx, id, task.SetStatus{Status: task.StatusReviewing})
	return nil
}

// SetScreenshotNote edits a screenshot's note on the current task.
func (c *Controller) SetScreenshotNote(ctx context.Context, screenshotID, note string) error {
	id, err := c.reviewTaskID()
	if err != nil {
		return err
	}
	return c.store.Apply(ctx, id, task.SetScreenshotNote{ScreenshotID: screenshotID, Note: note})
}

// SetAnswer edits the answer to one clarifying question.
func (c *Controller) SetAnswer(ctx context.Context, index int, answer string) error {
	id, err := c.reviewTaskID()
	if err != nil {
		return err
	}
	return c.store.Apply(ctx, id, task.SetAnswer{Index: index, Answer: answer})
}

// Plan returns an editor for the current task's plan.
func (c *Controller) Plan() (*planedit.Editor, error) {
	id, err := c.reviewTaskID()
	if err != nil {
		return nil, err
	}
	return planedit.New(c.store, id), nil
}

// Close discards the session. The task and any extraction already running
// are left alone; an unfinished upload is cancelled.
func (c *Controller) Close() {
	id := c.CurrentTaskID()
	c.teardown()
	c.mu.Lock()
	c.open = false
	c.mu.Unlock()
	c.logger.Info("wizard_closed", "task_id", id)
}

// DeleteTask deletes a task after confirmation. Deleting the open task
// resets the wizard to the details stage with no current task.
func (c *Controller) DeleteTask(ctx context.Context, id string) error {
	t, ok := c.store.Get(id)
	if !ok {
		return fmt.Errorf("task %s: %w", id, task.ErrNotFound)
	}
	if !c.confirmer.Confirm(fmt.Sprintf("Delete task %q? This cannot be undone.", t.Name)) {
		return ErrNotConfirmed
	}

	if c.CurrentTaskID() == id {
		c.teardown()
	} else {
		c.upload.Cancel(id)
	}
	if err := c.store.Delete(ctx, id); err != nil {
		c.notify(NoticeFailure, "Could not delete task", err)
		return err
	}
	return nil
}

// teardown cancels session-owned work and clears session state.
func (c *Controller) teardown() {
	if id := c.CurrentTaskID(); id != "" {
		c.upload.Cancel(id)
	}
	c.capture.Discard()
	c.reset()
}

func (c *Controller) reset() {
	c.mu.Lock()
	c.stage = StageDetails
	c.currentID = ""
	c.progress = 0
	c.uploaded = false
	c.recording = ""
	c.upToken++
	c.mu.Unlock()
}

func (c *Controller) setStage(s Stage) {
	c.mu.Lock()
	c.stage = s
	c.mu.Unlock()
}

func (c *Controller) captureTask() (task.Task, error) {
	c.mu.Lock()
	stage, id := c.stage, c.currentID
	c.mu.Unlock()
	if stage != StageCapture {
		return task.Task{}, fmt.Errorf("%s stage: %w", stage, ErrStageGuard)
	}
	return c.lookup(id)
}

func (c *Controller) reviewTaskID() (string, error) {
	c.mu.Lock()
	stage, id := c.stage, c.currentID
	c.mu.Unlock()
	if stage != StageReview {
		return "", fmt.Errorf("%s stage: %w", stage, ErrStageGuard)
	}
	if id == "" {
		return "", ErrNoCurrentTask
	}
	return id, nil
}

func (c *Controller) lookup(id string) (task.Task, error) {
	if id == "" {
		return task.Task{}, ErrNoCurrentTask
	}
	t, ok := c.store.Get(id)
	if !ok {
		return task.Task{}, fmt.Errorf("task %s: %w", id, task.ErrNotFound)
	}
	return t, nil
}

// apply patches a task, treating a vanished task as a no-op.
func (c *Controller) apply(ctx context.Context, id string, muts ...task.Mutation) {
	err := c.store.Apply(ctx, id, muts...)
	switch {
	case err == nil:
	case errors.Is(err, task.ErrNotFound):
		c.logger.Debug("wizard_patch_skipped", "task_id", id)
	default:
		c.notify(NoticeFailure, "Could not save task", err)
	}
}

func (c *Controller) notify(kind NoticeKind, msg string, err error) {
	c.logger.Warn("wizard_notice", "kind", string(kind), "message", msg, "error", err)
	c.notifier.Notify(Notice{Kind: kind, Message: msg, Err: err})
}

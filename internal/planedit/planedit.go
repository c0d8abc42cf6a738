// Package planedit edits the ordered execution plan of a task. Every edit
// reads the current plan from the store and writes the full sequence back.
package planedit

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/PreetShah25/arbitra-AI/internal/task"
)

// ErrStepNotFound is returned for an unknown step id.
var ErrStepNotFound = errors.New("plan step not found")

// Field names an editable plan step field.
type Field string

// Editable fields
const (
	FieldTitle    Field = "title"
	FieldDetail   Field = "detail"
	FieldBlocking Field = "blocking"
)

// Direction is a move direction.
type Direction string

// Move directions
const (
	Up   Direction = "up"
	Down Direction = "down"
)

// ParseDirection validates a direction string.
func ParseDirection(s string) (Direction, error) {
	switch Direction(s) {
	case Up, Down:
		return Direction(s), nil
	}
	return "", fmt.Errorf("invalid direction %q (want up or down)", s)
}

// ParseField validates a field name.
func ParseField(s string) (Field, error) {
	switch Field(s) {
	case FieldTitle, FieldDetail, FieldBlocking:
		return Field(s), nil
	}
	return "", fmt.Errorf("invalid field %q (want title, detail or blocking)", s)
}

// Store is the subset of *task.Store the editor needs.
type Store interface {
	Get(id string) (task.Task, bool)
	Apply(ctx context.Context, id string, muts ...task.Mutation) error
	NewID() string
}

// Editor edits one task's plan.
type Editor struct {
	store  Store
	taskID string
}

// New creates an editor bound to taskID.
func New(store Store, taskID string) *Editor {
	return &Editor{store: store, taskID: taskID}
}

// Steps returns the current plan in execution order.
func (e *Editor) Steps() ([]task.PlanStep, error) {
	t, ok := e.store.Get(e.taskID)
	if !ok {
		return nil, fmt.Errorf("task %s: %w", e.taskID, task.ErrNotFound)
	}
	return t.Plan, nil
}

// Add appends an empty, non-blocking step.
func (e *Editor) Add(ctx context.Context) (task.PlanStep, error) {
	steps, err := e.Steps()
	if err != nil {
		return task.PlanStep{}, err
	}
	step := task.PlanStep{ID: e.store.NewID()}
	if err := e.save(ctx, append(steps, step)); err != nil {
		return task.PlanStep{}, err
	}
	return step, nil
}

// UpdateField sets one field of a step in place. Blocking values are parsed
// with strconv.ParseBool.
func (e *Editor) UpdateField(ctx context.Context, stepID string, field Field, value string) error {
	steps, idx, err := e.locate(stepID)
	if err != nil {
		return err
	}

	switch field {
	case FieldTitle:
		steps[idx].Title = value
	case FieldDetail:
		steps[idx].Detail = value
	case FieldBlocking:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("blocking: %w", err)
		}
		steps[idx].Blocking = b
	default:
		return fmt.Errorf("invalid field %q", field)
	}
	return e.save(ctx, steps)
}

// Move swaps a step with its neighbour. Moving past either end is a no-op.
func (e *Editor) Move(ctx context.Context, stepID string, dir Direction) error {
	steps, idx, err := e.locate(stepID)
	if err != nil {
		return err
	}

	target := idx
	switch dir {
	case Up:
		target = idx - 1
	case Down:
		target = idx + 1
	default:
		return fmt.Errorf("invalid direction %q", dir)
	}
	if target < 0 || target >= len(steps) {
		return nil
	}

	steps[idx], steps[target] = steps[target], steps[idx]
	return e.save(ctx, steps)
}

// Remove deletes a step.
func (e *Editor) Remove(ctx context.Context, stepID string) error {
	steps, idx, err := e.locate(stepID)
	if err != nil {
		return err
	}
	return e.save(ctx, append(steps[:idx], steps[idx+1:]...))
}

func (e *Editor) locate(stepID string) ([]task.PlanStep, int, error) {
	steps, err := e.Steps()
	if err != nil {
		return nil, -1, err
	}
	for i := range steps {
		if steps[i].ID == stepID {
			return steps, i, nil
		}
	}
	return nil, -1, fmt.Errorf("%s: %w", stepID, ErrStepNotFound)
}

func (e *Editor) save(ctx context.Context, steps []task.PlanStep) error {
	return e.store.Apply(ctx, e.taskID, task.SetPlan{Steps: steps})
}

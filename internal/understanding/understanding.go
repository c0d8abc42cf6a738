// Package understanding drafts a restatement of what the agent was shown
// plus the clarifying questions the user answers before planning.
package understanding

import (
	"context"
	"fmt"
	"strings"

	"github.com/PreetShah25/arbitra-AI/internal/task"
)

// Questions are the fixed clarifying prompts, in display order.
var Questions = []string{
	"Where should the extracted KPIs be written (e.g. the KPI table, a spreadsheet, a shared drive)?",
	"Beyond revenue, gross margin and operating income, which additional metrics should the agent capture?",
	"Who should be notified when the run completes, and through which channel?",
}

// Draft derives the understanding record. It performs no I/O.
func Draft(screenshotCount int, description, companyName string) task.Understanding {
	description = strings.TrimSpace(description)
	company := strings.TrimSpace(companyName)
	if company == "" {
		company = "the selected company"
	}

	var summary string
	if description != "" {
		summary = fmt.Sprintf(
			"For %s, the agent will %s. It will follow the workflow shown in %s extracted from your recording.",
			company, lowerFirst(strings.TrimSuffix(description, ".")), frameCount(screenshotCount))
	} else {
		summary = fmt.Sprintf(
			"The agent will repeat the workflow demonstrated for %s, using %s extracted from your recording.",
			company, frameCount(screenshotCount))
	}

	questions := make([]string, len(Questions))
	copy(questions, Questions)
	return task.Understanding{
		Summary:   summary,
		Questions: questions,
		Answers:   make([]string, len(Questions)),
	}
}

func frameCount(n int) string {
	if n == 1 {
		return "1 frame"
	}
	return fmt.Sprintf("%d frames", n)
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	// Keep acronyms such as "KPI" or "SEC" intact.
	if len(r) > 1 && strings.ToUpper(string(r[:2])) == string(r[:2]) {
		return s
	}
	return strings.ToLower(string(r[:1])) + string(r[1:])
}

// Patcher applies task mutations. *task.Store satisfies it.
type Patcher interface {
	Apply(ctx context.Context, id string, muts ...task.Mutation) error
}

// Drafter writes drafted understandings onto tasks.
type Drafter struct {
	patcher Patcher
}

// NewDrafter creates a Drafter that patches through p.
func NewDrafter(p Patcher) *Drafter {
	return &Drafter{patcher: p}
}

// Draft derives the understanding and stores it on taskID. An empty taskID
// is a no-op.
func (d *Drafter) Draft(ctx context.Context, taskID string, screenshotCount int, description, companyName string) error {
	if taskID == "" {
		return nil
	}
	u := Draft(screenshotCount, description, companyName)
	return d.patcher.Apply(ctx, taskID, task.SetUnderstanding{Understanding: u})
}

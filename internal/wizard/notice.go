package wizard

import "fmt"

// NoticeKind classifies a user-facing notice.
type NoticeKind string

// Notice kinds
const (
	NoticeValidation   NoticeKind = "validation"
	NoticePermission   NoticeKind = "permission"
	NoticePrecondition NoticeKind = "precondition"
	NoticeFailure      NoticeKind = "failure"
)

// Notice is a message the user must acknowledge.
type Notice struct {
	Kind    NoticeKind
	Message string
	Err     error
}

func (n Notice) String() string {
	if n.Err != nil {
		return fmt.Sprintf("%s: %v", n.Message, n.Err)
	}
	return n.Message
}

// Notifier surfaces notices. Notify should not return until the notice has
// been queued for acknowledgement.
type Notifier interface {
	Notify(Notice)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notice)

// Notify calls f(n).
func (f NotifierFunc) Notify(n Notice) { f(n) }

// Confirmer asks the user a yes/no question.
type Confirmer interface {
	Confirm(prompt string) bool
}

// ConfirmerFunc adapts a function to Confirmer.
type ConfirmerFunc func(prompt string) bool

// Confirm calls f(prompt).
func (f ConfirmerFunc) Confirm(prompt string) bool { return f(prompt) }

// CompanySource reports the company selected in the KPI table.
type CompanySource interface {
	SelectedTicker() string
	CompanyName(ticker string) string
}

package appeal

import "time"

// Status is the lifecycle state of an appeal.
type Status string

const (
	StatusNew        Status = "new"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
	StatusCanceled   Status = "canceled"
)

// Statuses lists every valid lifecycle state.
var Statuses = []Status{StatusNew, StatusInProgress, StatusCompleted, StatusCanceled}

// Valid reports whether s is one of the defined lifecycle states.
func (s Status) Valid() bool {
	switch s {
	case StatusNew, StatusInProgress, StatusCompleted, StatusCanceled:
		return true
	}
	return false
}

// Terminal reports whether no further transitions are defined from s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCanceled
}

// CanTransitionTo reports whether the lifecycle permits moving from s to next.
// The table is one-directional: new -> in-progress -> completed, and
// new|in-progress -> canceled. Terminal states have no outgoing edges.
func (s Status) CanTransitionTo(next Status) bool {
	switch next {
	case StatusInProgress:
		return s == StatusNew
	case StatusCompleted:
		return s == StatusInProgress
	case StatusCanceled:
		return s == StatusNew || s == StatusInProgress
	}
	return false
}

// Appeal is a user-submitted issue record tracked through the status lifecycle.
// Title, Description and CreatedAt are immutable after creation. UpdatedAt is
// set on every status change and absent before the first one. Solution is
// recorded only when completing, Reason only when canceling.
type Appeal struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      Status     `json:"status"`
	Solution    string     `json:"solution,omitempty"`
	Reason      string     `json:"reason,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   *time.Time `json:"updatedAt,omitempty"`
}

// Filter narrows a listing to matching appeals. Zero-value fields are
// ignored. CreatedFrom and CreatedTo are inclusive bounds on CreatedAt;
// Limit and Page are expected to be normalised by the caller.
type Filter struct {
	Status      Status
	CreatedFrom time.Time
	CreatedTo   time.Time
	Limit       int
	Page        int
}

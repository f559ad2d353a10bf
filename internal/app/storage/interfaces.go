package storage

import (
	"context"
	"errors"
	"time"

	"github.com/appealdesk/appealdesk/internal/app/domain/appeal"
)

// ErrNotFound is returned by every store implementation when no appeal
// matches the given identifier. Malformed identifiers are treated the same
// as absent records.
var ErrNotFound = errors.New("appeal not found")

// AppealStore persists appeal records.
type AppealStore interface {
	// CreateAppeal inserts a new record, assigning ID and CreatedAt.
	CreateAppeal(ctx context.Context, a appeal.Appeal) (appeal.Appeal, error)

	// GetAppeal returns the record with the given id or ErrNotFound.
	GetAppeal(ctx context.Context, id string) (appeal.Appeal, error)

	// ListAppeals returns the requested page ordered by CreatedAt descending,
	// plus the total number of records matching the filter.
	ListAppeals(ctx context.Context, f appeal.Filter) ([]appeal.Appeal, int, error)

	// UpdateAppeal overwrites the mutable fields (status, solution, reason,
	// update time) of an existing record. ID, Title, Description and
	// CreatedAt are preserved from the stored record.
	UpdateAppeal(ctx context.Context, a appeal.Appeal) (appeal.Appeal, error)

	// CancelInProgress cancels every in-progress appeal in one bulk write,
	// recording reason and the update time, and returns how many records
	// were modified.
	CancelInProgress(ctx context.Context, reason string, at time.Time) (int, error)
}

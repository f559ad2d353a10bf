// Package appeals implements the appeal lifecycle: creation, filtered
// listing, and the status transitions new -> in-progress -> completed /
// canceled.
package appeals

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/appealdesk/appealdesk/internal/app/domain/appeal"
	"github.com/appealdesk/appealdesk/internal/app/storage"
	"github.com/appealdesk/appealdesk/pkg/logger"
)

var (
	// ErrInvalidArgument signals malformed or missing input, detected before
	// any store call.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrInvalidTransition signals that the appeal's current status does not
	// permit the requested transition.
	ErrInvalidTransition = errors.New("invalid status transition")
)

const (
	// DefaultLimit is the page size used when none is requested.
	DefaultLimit = 50
	// MaxLimit caps the page size regardless of what was requested.
	MaxLimit = 100

	dateLayout = "2006-01-02"
)

// Service manages appeal records and their status lifecycle.
type Service struct {
	store storage.AppealStore
	log   *logger.Logger
}

// New constructs an appeals service.
func New(store storage.AppealStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("appeals")
	}
	return &Service{store: store, log: log}
}

// Create registers a new appeal with status "new". Title and description are
// both required.
func (s *Service) Create(ctx context.Context, title, description string) (appeal.Appeal, error) {
	title = strings.TrimSpace(title)
	description = strings.TrimSpace(description)
	if title == "" || description == "" {
		return appeal.Appeal{}, fmt.Errorf("%w: title and description are required", ErrInvalidArgument)
	}

	created, err := s.store.CreateAppeal(ctx, appeal.Appeal{
		Title:       title,
		Description: description,
		Status:      appeal.StatusNew,
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		return appeal.Appeal{}, err
	}
	s.log.WithField("appeal_id", created.ID).Info("appeal created")
	return created, nil
}

// ListQuery carries the raw, unparsed listing filters as received from the
// caller. Empty fields are treated as absent.
type ListQuery struct {
	Date      string
	StartDate string
	EndDate   string
	Status    string
	Limit     string
	Page      string
}

// Pagination describes the page of results returned by List.
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

// List returns appeals matching the query, newest first, plus pagination
// metadata. All filter validation happens before the store is consulted.
func (s *Service) List(ctx context.Context, q ListQuery) ([]appeal.Appeal, Pagination, error) {
	filter, err := buildFilter(q)
	if err != nil {
		return nil, Pagination{}, err
	}

	items, total, err := s.store.ListAppeals(ctx, filter)
	if err != nil {
		return nil, Pagination{}, err
	}
	if items == nil {
		items = []appeal.Appeal{}
	}

	pages := 0
	if total > 0 {
		pages = (total + filter.Limit - 1) / filter.Limit
	}
	return items, Pagination{
		Page:  filter.Page,
		Limit: filter.Limit,
		Total: total,
		Pages: pages,
	}, nil
}

// StartProgress moves a new appeal to in-progress.
func (s *Service) StartProgress(ctx context.Context, id string) (appeal.Appeal, error) {
	return s.transition(ctx, id, appeal.StatusInProgress, func(a *appeal.Appeal) {})
}

// Complete moves an in-progress appeal to completed, recording the solution.
func (s *Service) Complete(ctx context.Context, id, solution string) (appeal.Appeal, error) {
	solution = strings.TrimSpace(solution)
	if solution == "" {
		return appeal.Appeal{}, fmt.Errorf("%w: solution is required", ErrInvalidArgument)
	}
	return s.transition(ctx, id, appeal.StatusCompleted, func(a *appeal.Appeal) {
		a.Solution = solution
	})
}

// Cancel moves a new or in-progress appeal to canceled, recording the reason.
func (s *Service) Cancel(ctx context.Context, id, reason string) (appeal.Appeal, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return appeal.Appeal{}, fmt.Errorf("%w: reason is required", ErrInvalidArgument)
	}
	return s.transition(ctx, id, appeal.StatusCanceled, func(a *appeal.Appeal) {
		a.Reason = reason
	})
}

// CancelAllInProgress cancels every in-progress appeal in one bulk write and
// returns how many were affected. Zero in-progress appeals is reported as
// storage.ErrNotFound rather than an empty success.
func (s *Service) CancelAllInProgress(ctx context.Context, reason string) (int, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return 0, fmt.Errorf("%w: reason is required", ErrInvalidArgument)
	}

	modified, err := s.store.CancelInProgress(ctx, reason, time.Now().UTC())
	if err != nil {
		return 0, err
	}
	if modified == 0 {
		return 0, fmt.Errorf("%w: no appeals in progress", storage.ErrNotFound)
	}
	s.log.WithField("count", modified).Info("in-progress appeals canceled")
	return modified, nil
}

func (s *Service) transition(ctx context.Context, id string, next appeal.Status, apply func(*appeal.Appeal)) (appeal.Appeal, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return appeal.Appeal{}, fmt.Errorf("%w: id is required", ErrInvalidArgument)
	}

	a, err := s.store.GetAppeal(ctx, id)
	if err != nil {
		return appeal.Appeal{}, err
	}
	if !a.Status.CanTransitionTo(next) {
		return appeal.Appeal{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, a.Status, next)
	}

	now := time.Now().UTC()
	a.Status = next
	a.UpdatedAt = &now
	apply(&a)

	updated, err := s.store.UpdateAppeal(ctx, a)
	if err != nil {
		return appeal.Appeal{}, err
	}
	s.log.WithField("appeal_id", updated.ID).
		WithField("status", updated.Status).
		Info("appeal status changed")
	return updated, nil
}

func buildFilter(q ListQuery) (appeal.Filter, error) {
	var filter appeal.Filter

	hasDate := strings.TrimSpace(q.Date) != ""
	hasStart := strings.TrimSpace(q.StartDate) != ""
	hasEnd := strings.TrimSpace(q.EndDate) != ""

	switch {
	case hasDate && (hasStart || hasEnd):
		return appeal.Filter{}, fmt.Errorf("%w: date cannot be combined with startDate/endDate", ErrInvalidArgument)
	case hasStart != hasEnd:
		return appeal.Filter{}, fmt.Errorf("%w: startDate and endDate must be supplied together", ErrInvalidArgument)
	case hasDate:
		day, err := parseDate(q.Date, "date")
		if err != nil {
			return appeal.Filter{}, err
		}
		filter.CreatedFrom = startOfDay(day)
		filter.CreatedTo = endOfDay(day)
	case hasStart:
		start, err := parseDate(q.StartDate, "startDate")
		if err != nil {
			return appeal.Filter{}, err
		}
		end, err := parseDate(q.EndDate, "endDate")
		if err != nil {
			return appeal.Filter{}, err
		}
		if start.After(end) {
			return appeal.Filter{}, fmt.Errorf("%w: startDate must not be after endDate", ErrInvalidArgument)
		}
		filter.CreatedFrom = startOfDay(start)
		filter.CreatedTo = endOfDay(end)
	}

	if raw := strings.TrimSpace(q.Status); raw != "" {
		status := appeal.Status(raw)
		if !status.Valid() {
			return appeal.Filter{}, fmt.Errorf("%w: status must be one of new, in-progress, completed, canceled", ErrInvalidArgument)
		}
		filter.Status = status
	}

	limit, err := parsePositiveInt(q.Limit, "limit", DefaultLimit)
	if err != nil {
		return appeal.Filter{}, err
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	filter.Limit = limit

	page, err := parsePositiveInt(q.Page, "page", 1)
	if err != nil {
		return appeal.Filter{}, err
	}
	filter.Page = page

	return filter, nil
}

func parseDate(raw, name string) (time.Time, error) {
	t, err := time.ParseInLocation(dateLayout, strings.TrimSpace(raw), time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s must be a YYYY-MM-DD date", ErrInvalidArgument, name)
	}
	return t, nil
}

// startOfDay and endOfDay build independent boundary values so neither can
// alias the other.
func startOfDay(day time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
}

func endOfDay(day time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), 23, 59, 59, 999_000_000, day.Location())
}

func parsePositiveInt(raw, name string, fallback int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", ErrInvalidArgument, name)
	}
	if n < 1 {
		return 1, nil
	}
	return n, nil
}

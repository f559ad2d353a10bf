// Package postgres implements the storage interfaces backed by PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/appealdesk/appealdesk/internal/app/domain/appeal"
	"github.com/appealdesk/appealdesk/internal/app/storage"
)

// Store implements storage.AppealStore backed by PostgreSQL.
type Store struct {
	db *sql.DB
}

var _ storage.AppealStore = (*Store)(nil)

// New creates a Store using the provided database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) CreateAppeal(ctx context.Context, a appeal.Appeal) (appeal.Appeal, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	a.UpdatedAt = nil

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO appeals (id, title, description, status, solution, reason, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULL)
	`, a.ID, a.Title, a.Description, a.Status, toNullString(a.Solution), toNullString(a.Reason), a.CreatedAt)
	if err != nil {
		return appeal.Appeal{}, err
	}
	return a, nil
}

func (s *Store) GetAppeal(ctx context.Context, id string) (appeal.Appeal, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, title, description, status, solution, reason, created_at, updated_at
		FROM appeals
		WHERE id = $1
	`, id)

	a, err := scanAppeal(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appeal.Appeal{}, storage.ErrNotFound
		}
		return appeal.Appeal{}, err
	}
	return a, nil
}

func (s *Store) ListAppeals(ctx context.Context, f appeal.Filter) ([]appeal.Appeal, int, error) {
	var (
		conds []string
		args  []any
	)
	if f.Status != "" {
		args = append(args, f.Status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if !f.CreatedFrom.IsZero() {
		args = append(args, f.CreatedFrom)
		conds = append(conds, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if !f.CreatedTo.IsZero() {
		args = append(args, f.CreatedTo)
		conds = append(conds, fmt.Sprintf("created_at <= $%d", len(args)))
	}

	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM appeals"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT id, title, description, status, solution, reason, created_at, updated_at
		FROM appeals` + where + `
		ORDER BY created_at DESC`
	if f.Limit > 0 {
		page := f.Page
		if page < 1 {
			page = 1
		}
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
		args = append(args, (page-1)*f.Limit)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []appeal.Appeal
	for rows.Next() {
		a, err := scanAppeal(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, a)
	}
	return result, total, rows.Err()
}

func (s *Store) UpdateAppeal(ctx context.Context, a appeal.Appeal) (appeal.Appeal, error) {
	var updatedAt sql.NullTime
	if a.UpdatedAt != nil {
		updatedAt = sql.NullTime{Time: a.UpdatedAt.UTC(), Valid: true}
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE appeals
		SET status = $2, solution = $3, reason = $4, updated_at = $5
		WHERE id = $1
	`, a.ID, a.Status, toNullString(a.Solution), toNullString(a.Reason), updatedAt)
	if err != nil {
		return appeal.Appeal{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return appeal.Appeal{}, storage.ErrNotFound
	}
	return s.GetAppeal(ctx, a.ID)
}

func (s *Store) CancelInProgress(ctx context.Context, reason string, at time.Time) (int, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE appeals
		SET status = $1, reason = $2, updated_at = $3
		WHERE status = $4
	`, appeal.StatusCanceled, toNullString(reason), at.UTC(), appeal.StatusInProgress)
	if err != nil {
		return 0, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(rows), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAppeal(row rowScanner) (appeal.Appeal, error) {
	var (
		a         appeal.Appeal
		solution  sql.NullString
		reason    sql.NullString
		updatedAt sql.NullTime
	)
	if err := row.Scan(&a.ID, &a.Title, &a.Description, &a.Status, &solution, &reason, &a.CreatedAt, &updatedAt); err != nil {
		return appeal.Appeal{}, err
	}
	if solution.Valid {
		a.Solution = solution.String
	}
	if reason.Valid {
		a.Reason = reason.String
	}
	if updatedAt.Valid {
		t := updatedAt.Time.UTC()
		a.UpdatedAt = &t
	}
	return a, nil
}

func toNullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

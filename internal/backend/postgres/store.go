package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"quicktasks/internal/service"
)

const selectTasks = `SELECT id, user_id, doc, created_at, updated_at FROM tasks`

// Create implements service.Store.
func (s *Store) Create(ctx context.Context, ownerID string, f service.Fields) (string, error) {
	db, err := s.handle()
	if err != nil {
		return "", err
	}
	doc, err := json.Marshal(service.FieldsDocument(f))
	if err != nil {
		return "", service.Remote("create", err)
	}

	id := uuid.NewString()
	_, err = db.ExecContext(ctx,
		`INSERT INTO tasks (id, user_id, doc) VALUES ($1, $2, $3)`,
		id, ownerID, doc)
	if err != nil {
		return "", service.Remote("create", err)
	}
	return id, nil
}

// Update implements service.Store. The patch is merged into the stored
// document and updated_at always moves forward.
func (s *Store) Update(ctx context.Context, id string, p service.Patch) error {
	db, err := s.handle()
	if err != nil {
		return err
	}
	patch, err := json.Marshal(p.Document())
	if err != nil {
		return service.Remote("update", err)
	}

	res, err := db.ExecContext(ctx, `
		UPDATE tasks
		SET doc = doc || $2::jsonb,
		    updated_at = greatest(now(), updated_at + interval '1 microsecond')
		WHERE id = $1`, id, patch)
	if err != nil {
		return service.Remote("update", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return service.Remote("update", err)
	}
	if n == 0 {
		return service.Remote("update", fmt.Errorf("no document to update: %s: %w", id, service.ErrNotFound))
	}
	return nil
}

// Delete implements service.Store. Deleting a missing task succeeds.
func (s *Store) Delete(ctx context.Context, id string) error {
	db, err := s.handle()
	if err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id); err != nil {
		return service.Remote("delete", err)
	}
	return nil
}

// ListForOwner implements service.Store. Tasks are ordered by creation
// time. Documents that fail to decode are logged and skipped.
func (s *Store) ListForOwner(ctx context.Context, ownerID string) ([]service.Task, error) {
	db, err := s.handle()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, selectTasks+` WHERE user_id = $1 ORDER BY created_at, id`, ownerID)
	if err != nil {
		return nil, service.Remote("list", err)
	}
	defer rows.Close()

	tasks := []service.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			s.logger.Printf("skipping task document: %v", err)
			continue
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, service.Remote("list", err)
	}
	return tasks, nil
}

// Get implements service.Store.
func (s *Store) Get(ctx context.Context, id string) (service.Task, error) {
	db, err := s.handle()
	if err != nil {
		return service.Task{}, err
	}
	row := db.QueryRowContext(ctx, selectTasks+` WHERE id = $1`, id)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return service.Task{}, service.Remote("get", fmt.Errorf("task %s: %w", id, service.ErrNotFound))
	}
	if err != nil {
		return service.Task{}, service.Remote("get", err)
	}
	return t, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(row scanner) (service.Task, error) {
	var (
		id, userID           string
		raw                  []byte
		createdAt, updatedAt time.Time
	)
	if err := row.Scan(&id, &userID, &raw, &createdAt, &updatedAt); err != nil {
		return service.Task{}, err
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return service.Task{}, fmt.Errorf("task %s: %w", id, err)
	}
	return service.DecodeTask(id, userID, doc, createdAt.UTC(), updatedAt.UTC())
}

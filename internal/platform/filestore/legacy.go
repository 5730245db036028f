package filestore

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/phrazzld/bubbletasks/internal/domain"
)

// fileTask decodes one stored task. The outer ID and Status shadow the
// embedded fields so files written by older versions, which used short
// string ids and the Queued/Done statuses, still load.
type fileTask struct {
	*domain.Task
	ID     string `json:"id"`
	Status string `json:"status"`
}

// legacyNamespace seeds the UUIDs derived from non-UUID ids.
var legacyNamespace = uuid.MustParse("5b0c4c53-7c1f-4b7e-9d7e-2f4a0e6f1b21")

func decodeTasks(data []byte) ([]*domain.Task, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return []*domain.Task{}, nil
	}

	var records []fileTask
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to unmarshal task file: %w", err)
	}

	tasks := make([]*domain.Task, 0, len(records))
	for _, rec := range records {
		if rec.Task == nil {
			rec.Task = &domain.Task{}
		}
		task, err := rec.normalize()
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

func (r fileTask) normalize() (*domain.Task, error) {
	task := r.Task

	id, err := uuid.Parse(r.ID)
	if err != nil {
		if r.ID == "" {
			return nil, fmt.Errorf("task file contains a task without an id")
		}
		id = uuid.NewSHA1(legacyNamespace, []byte(r.ID))
	}
	task.ID = id

	status, err := domain.ParseTaskStatus(r.Status)
	if err != nil {
		return nil, fmt.Errorf("task %s: %w", r.ID, err)
	}
	if task.TemplateKey == "" {
		task.TemplateKey = domain.Slugify(task.Title)
	}
	if task.UpdatedAt.IsZero() {
		task.UpdatedAt = task.CreatedAt
	}
	task.SetStatus(status, task.UpdatedAt)

	return task, nil
}

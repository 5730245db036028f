package store

import (
	"database/sql"
	"time"

	"github.com/phrazzld/bubbletasks/internal/domain"
)

// TaskColumns is the column list shared by the SQL task stores, in the
// order ScanTask and TaskValues use.
const TaskColumns = `id, title, est_minutes, status, image_data_url, template_key,
	remaining_seconds, timer_started_at, remaining_updated_at, created_at, updated_at,
	is_archived, archived_at`

// RowScanner is satisfied by *sql.Row and *sql.Rows.
type RowScanner interface {
	Scan(dest ...any) error
}

// ScanTask reads one task row selected with TaskColumns.
func ScanTask(row RowScanner) (*domain.Task, error) {
	var (
		task           domain.Task
		status         string
		remaining      sql.NullInt64
		timerStartedAt sql.NullTime
		remainingAt    sql.NullTime
		archivedAt     sql.NullTime
	)

	err := row.Scan(
		&task.ID,
		&task.Title,
		&task.EstMinutes,
		&status,
		&task.ImageDataURL,
		&task.TemplateKey,
		&remaining,
		&timerStartedAt,
		&remainingAt,
		&task.CreatedAt,
		&task.UpdatedAt,
		&task.IsArchived,
		&archivedAt,
	)
	if err != nil {
		return nil, err
	}

	task.Status = domain.TaskStatus(status)
	task.CreatedAt = task.CreatedAt.UTC()
	task.UpdatedAt = task.UpdatedAt.UTC()
	if remaining.Valid {
		task.RemainingSeconds = domain.IntPtr(int(remaining.Int64))
	}
	task.TimerStartedAt = nullTimePtr(timerStartedAt)
	task.RemainingUpdatedAt = nullTimePtr(remainingAt)
	task.ArchivedAt = nullTimePtr(archivedAt)

	return &task, nil
}

// TaskValues returns the column values of task in TaskColumns order.
func TaskValues(task *domain.Task) []any {
	var remaining sql.NullInt64
	if task.RemainingSeconds != nil {
		remaining = sql.NullInt64{Int64: int64(*task.RemainingSeconds), Valid: true}
	}

	return []any{
		task.ID.String(),
		task.Title,
		task.EstMinutes,
		string(task.Status),
		task.ImageDataURL,
		task.TemplateKey,
		remaining,
		timePtrToNull(task.TimerStartedAt),
		timePtrToNull(task.RemainingUpdatedAt),
		task.CreatedAt.UTC(),
		task.UpdatedAt.UTC(),
		task.IsArchived,
		timePtrToNull(task.ArchivedAt),
	}
}

func nullTimePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time.UTC()
	return &t
}

func timePtrToNull(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

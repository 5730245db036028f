package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/phrazzld/bubbletasks/internal/domain"
	"github.com/phrazzld/bubbletasks/internal/service"
)

var jsonNull = []byte("null")

// Nullable distinguishes an absent JSON field from an explicit null.
type Nullable[T any] struct {
	// Set is true when the field was present in the payload.
	Set bool
	// Null is true when the field was present and null.
	Null  bool
	Value T
}

// UnmarshalJSON implements json.Unmarshaler. It is only called for fields
// present in the payload.
func (n *Nullable[T]) UnmarshalJSON(data []byte) error {
	n.Set = true
	if bytes.Equal(bytes.TrimSpace(data), jsonNull) {
		n.Null = true
		return nil
	}
	return json.Unmarshal(data, &n.Value)
}

// FlexInt accepts a JSON number or a numeric string holding an integer.
type FlexInt int

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexInt) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if unquoted, err := strconv.Unquote(raw); err == nil {
		raw = strings.TrimSpace(unquoted)
	}

	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsInf(v, 0) || math.IsNaN(v) || v != math.Trunc(v) {
		return fmt.Errorf("%q is not an integer", raw)
	}
	if v > math.MaxInt32 || v < math.MinInt32 {
		return fmt.Errorf("%q is out of range", raw)
	}
	*f = FlexInt(v)
	return nil
}

// CreateTaskRequest is the body of POST /api/tasks.
type CreateTaskRequest struct {
	Title        string   `json:"title"                  validate:"notblank,max=200"`
	EstMinutes   *FlexInt `json:"estMinutes,omitempty"   validate:"omitempty,min=1,max=1440"`
	ImageDataURL string   `json:"imageDataUrl,omitempty"`
}

// ToInput converts a validated request into service input.
func (r CreateTaskRequest) ToInput() service.CreateTaskInput {
	input := service.CreateTaskInput{
		Title:        r.Title,
		ImageDataURL: r.ImageDataURL,
	}
	if r.EstMinutes != nil {
		input.EstMinutes = int(*r.EstMinutes)
	}
	return input
}

// UpdateTaskRequest is the body of PUT /api/tasks/{id}. Every field is optional.
type UpdateTaskRequest struct {
	Title            *string             `json:"title,omitempty"            validate:"omitempty,notblank,max=200"`
	EstMinutes       *FlexInt            `json:"estMinutes,omitempty"       validate:"omitempty,min=1,max=1440"`
	Status           *string             `json:"status,omitempty"           validate:"omitempty,oneof=Upcoming Active Paused Completed Cancelled Queued Done"`
	ImageDataURL     Nullable[string]    `json:"imageDataUrl"`
	RemainingSeconds *FlexInt            `json:"remainingSeconds,omitempty" validate:"omitempty,min=0"`
	TimerStartedAt   Nullable[time.Time] `json:"timerStartedAt"`
}

// ToPatch converts a validated request into a domain patch. Legacy status
// names are mapped to their current equivalents.
func (r UpdateTaskRequest) ToPatch() (domain.TaskPatch, error) {
	var patch domain.TaskPatch

	patch.Title = r.Title
	if r.EstMinutes != nil {
		v := int(*r.EstMinutes)
		patch.EstMinutes = &v
	}
	if r.Status != nil {
		status, err := domain.ParseTaskStatus(*r.Status)
		if err != nil {
			return patch, err
		}
		patch.Status = &status
	}
	if r.ImageDataURL.Set {
		image := ""
		if !r.ImageDataURL.Null {
			image = r.ImageDataURL.Value
		}
		patch.ImageDataURL = &image
	}
	if r.RemainingSeconds != nil {
		v := int(*r.RemainingSeconds)
		patch.RemainingSeconds = &v
	}
	if r.TimerStartedAt.Set {
		if r.TimerStartedAt.Null {
			patch.ClearTimerStartedAt = true
		} else {
			ts := r.TimerStartedAt.Value
			patch.TimerStartedAt = &ts
		}
	}
	return patch, nil
}

// TaskListResponse is returned by GET /api/tasks.
type TaskListResponse struct {
	Success bool           `json:"success"`
	Tasks   []*domain.Task `json:"tasks"`
}

// TaskResponse wraps a single task.
type TaskResponse struct {
	Success bool         `json:"success"`
	Task    *domain.Task `json:"task"`
}

// FinishResponse is returned by the complete and cancel endpoints.
type FinishResponse struct {
	Success   bool         `json:"success"`
	Task      *domain.Task `json:"task"`
	Activated *domain.Task `json:"activated,omitempty"`
}

// UploadResponse is returned by POST /api/upload.
type UploadResponse struct {
	Success  bool   `json:"success"`
	ImageURL string `json:"imageUrl"`
	Filename string `json:"filename"`
}

// HealthResponse is returned by GET /api/health.
type HealthResponse struct {
	Success   bool      `json:"success"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Storage   string    `json:"storage"`
}

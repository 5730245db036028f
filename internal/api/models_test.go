package api

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/phrazzld/bubbletasks/internal/api/shared"
	"github.com/phrazzld/bubbletasks/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlexInt(t *testing.T) {
	tests := []struct {
		in      string
		want    FlexInt
		wantErr bool
	}{
		{`25`, 25, false},
		{`"25"`, 25, false},
		{`" 7 "`, 7, false},
		{`30.0`, 30, false},
		{`-4`, -4, false},
		{`2.5`, 0, true},
		{`"abc"`, 0, true},
		{`true`, 0, true},
		{`1e12`, 0, true},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			var got FlexInt
			err := json.Unmarshal([]byte(tc.in), &got)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestUpdateTaskRequestToPatch(t *testing.T) {
	t.Run("absent fields stay nil", func(t *testing.T) {
		var req UpdateTaskRequest
		require.NoError(t, json.Unmarshal([]byte(`{}`), &req))

		patch, err := req.ToPatch()
		require.NoError(t, err)
		assert.True(t, patch.IsEmpty())
	})

	t.Run("nulls clear", func(t *testing.T) {
		var req UpdateTaskRequest
		require.NoError(t, json.Unmarshal([]byte(`{"imageDataUrl":null,"timerStartedAt":null}`), &req))

		patch, err := req.ToPatch()
		require.NoError(t, err)
		require.NotNil(t, patch.ImageDataURL)
		assert.Empty(t, *patch.ImageDataURL)
		assert.True(t, patch.ClearTimerStartedAt)
		assert.Nil(t, patch.TimerStartedAt)
	})

	t.Run("values are carried", func(t *testing.T) {
		var req UpdateTaskRequest
		body := `{"title":"T","estMinutes":"12","status":"Queued","remainingSeconds":60,` +
			`"timerStartedAt":"2026-05-04T09:00:00Z","imageDataUrl":"http://x/uploads/a.png"}`
		require.NoError(t, json.Unmarshal([]byte(body), &req))

		patch, err := req.ToPatch()
		require.NoError(t, err)
		assert.Equal(t, "T", *patch.Title)
		assert.Equal(t, 12, *patch.EstMinutes)
		assert.Equal(t, domain.TaskStatusUpcoming, *patch.Status)
		assert.Equal(t, 60, *patch.RemainingSeconds)
		assert.Equal(t, "http://x/uploads/a.png", *patch.ImageDataURL)
		assert.True(t, patch.TimerStartedAt.Equal(time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)))
		assert.False(t, patch.ClearTimerStartedAt)
	})

	t.Run("bad status", func(t *testing.T) {
		status := "Finished"
		_, err := UpdateTaskRequest{Status: &status}.ToPatch()
		assert.ErrorIs(t, err, domain.ErrInvalidTaskStatus)
	})
}

func TestCreateTaskRequestToInput(t *testing.T) {
	est := FlexInt(15)
	input := CreateTaskRequest{Title: "Read", EstMinutes: &est, ImageDataURL: "http://x/uploads/a.png"}.ToInput()
	assert.Equal(t, "Read", input.Title)
	assert.Equal(t, 15, input.EstMinutes)
	assert.Equal(t, "http://x/uploads/a.png", input.ImageDataURL)

	assert.Equal(t, 0, CreateTaskRequest{Title: "Read"}.ToInput().EstMinutes)
}

func TestRequestValidationTags(t *testing.T) {
	zero, big, negative, ok := FlexInt(0), FlexInt(1441), FlexInt(-1), FlexInt(30)
	blank, bogus, legacy := "  ", "Finished", "Done"

	tests := []struct {
		name    string
		req     interface{}
		wantMsg string
	}{
		{"create ok", &CreateTaskRequest{Title: "Read", EstMinutes: &ok}, ""},
		{"create default estimate", &CreateTaskRequest{Title: "Read"}, ""},
		{"create blank title", &CreateTaskRequest{Title: " \t"}, "Invalid title: required field"},
		{"create zero estimate", &CreateTaskRequest{Title: "x", EstMinutes: &zero}, "Invalid estMinutes: too small"},
		{"create huge estimate", &CreateTaskRequest{Title: "x", EstMinutes: &big}, "Invalid estMinutes: too large"},
		{"update empty", &UpdateTaskRequest{}, ""},
		{"update legacy status", &UpdateTaskRequest{Status: &legacy}, ""},
		{"update zero remaining", &UpdateTaskRequest{RemainingSeconds: &zero}, ""},
		{"update blank title", &UpdateTaskRequest{Title: &blank}, "Invalid title: required field"},
		{"update bad status", &UpdateTaskRequest{Status: &bogus}, "Invalid status: invalid value"},
		{"update negative remaining", &UpdateTaskRequest{RemainingSeconds: &negative}, "Invalid remainingSeconds: too small"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := shared.ValidateRequest(tc.req)
			if tc.wantMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, http.StatusBadRequest, MapErrorToStatusCode(err))
			assert.Equal(t, tc.wantMsg, GetSafeErrorMessage(err))
		})
	}
}

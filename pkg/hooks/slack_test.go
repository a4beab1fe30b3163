package hooks_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ogulcanaydogan/pfm-alerts/pkg/hooks"
	"github.com/ogulcanaydogan/pfm-alerts/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleEvent(kind model.AlertKind) hooks.Event {
	alertID := "alert-1"
	return hooks.Event{
		Notification: model.Notification{
			ID:        "n-1",
			UserID:    "user-1",
			AlertID:   &alertID,
			Title:     "Checking balance below $500.00",
			Message:   "Your Checking balance is $450.00, which is below your alert threshold of $500.00.",
			Metadata:  map[string]any{"account_name": "Checking", "current_balance": "450.00", "threshold": "500.00"},
			CreatedAt: time.Date(2025, time.May, 15, 12, 0, 0, 0, time.UTC),
		},
		AlertID:   alertID,
		AlertName: "Low checking",
		Kind:      kind,
	}
}

func TestSlackHook_Name(t *testing.T) {
	h := hooks.NewSlackHook("https://hooks.slack.com/test", "#test")
	assert.Equal(t, "slack", h.Name())
}

func TestSlackHook_Send(t *testing.T) {
	var received map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, http.MethodPost, r.Method)

		err := json.NewDecoder(r.Body).Decode(&received)
		require.NoError(t, err)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	h := hooks.NewSlackHook(server.URL, "#money")
	err := h.Send(context.Background(), sampleEvent(model.KindAccountThreshold))
	require.NoError(t, err)
	assert.Equal(t, "#money", received["channel"])

	attachments, ok := received["attachments"].([]any)
	require.True(t, ok)
	require.Len(t, attachments, 1)
	att := attachments[0].(map[string]any)
	assert.Equal(t, "Checking balance below $500.00", att["title"])
	assert.Equal(t, "#ff0000", att["color"])
	// alert, kind and three highlighted metadata fields
	assert.Len(t, att["fields"], 5)
}

func TestSlackHook_Send_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	h := hooks.NewSlackHook(server.URL, "#test")
	err := h.Send(context.Background(), sampleEvent(model.KindGoalMilestone))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
}

func TestSlackHook_EveryKind(t *testing.T) {
	for _, kind := range model.AllKinds() {
		t.Run(string(kind), func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			h := hooks.NewSlackHook(server.URL, "#test")
			require.NoError(t, h.Send(context.Background(), sampleEvent(kind)))
		})
	}
}

package notifications

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/replypilot/replypilot/internal/config"
	"github.com/replypilot/replypilot/internal/models"
)

func sampleDigest() *Digest {
	return &Digest{
		GeneratedAt:    time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC),
		Period:         "daily",
		Stats:          models.Stats{PostsProcessed: 12, SuggestionsGenerated: 48},
		Enabled:        true,
		DecoratedPosts: 7,
	}
}

func TestService_SendDigest_Webhook(t *testing.T) {
	var received Digest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	svc := NewService(&config.Config{DigestWebhookURL: server.URL})
	require.NoError(t, svc.SendDigest(sampleDigest()))

	assert.Equal(t, "daily", received.Period)
	assert.Equal(t, 12, received.Stats.PostsProcessed)
	assert.Equal(t, 7, received.DecoratedPosts)
}

func TestService_SendDigest_WebhookFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	svc := NewService(&config.Config{DigestWebhookURL: server.URL})
	err := svc.SendDigest(sampleDigest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "webhook")
}

func TestService_SendDigest_NoChannelsConfigured(t *testing.T) {
	svc := NewService(&config.Config{})
	assert.NoError(t, svc.SendDigest(sampleDigest()))
}

func TestService_buildEmailBody(t *testing.T) {
	svc := NewService(&config.Config{})
	body := svc.buildEmailBody(sampleDigest())

	assert.Contains(t, body, "daily")
	assert.Contains(t, body, "Posts processed: 12")
	assert.Contains(t, body, "Suggestions generated: 48")
	assert.Contains(t, body, "Pipeline: enabled")
}

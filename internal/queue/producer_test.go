package queue

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognobserve/labeling/internal/model"
)

func setupProducer(t *testing.T) (*RedisProducer, *miniredis.Miniredis) {
	s := miniredis.RunT(t)
	p, err := NewRedisProducer("redis://" + s.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { p.Close() })
	return p, s
}

func TestNewRedisProducerBadURL(t *testing.T) {
	_, err := NewRedisProducer("not-a-url")
	assert.Error(t, err)
}

func TestPublishEvents(t *testing.T) {
	p, s := setupProducer(t)
	ctx := context.Background()
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, p.AssessmentSaved(ctx, model.AssessmentEvent{
		ID:        "ev-1",
		SessionID: "sess-1",
		ItemID:    "item-1",
		TraceID:   "tr-1",
		Assessment: model.Assessment{
			AssessmentID: "1000",
			Name:         "quality",
			Type:         model.AssessmentTypeFeedback,
			Value:        4.0,
			Source:       model.HumanSource("alice@example.com"),
		},
		Created:   true,
		Timestamp: ts,
	}))
	require.NoError(t, p.ItemChanged(ctx, model.ItemEvent{
		ID:        "ev-2",
		SessionID: "sess-1",
		ItemID:    "item-1",
		State:     model.ItemStateCompleted,
		Timestamp: ts,
	}))

	items, err := s.List(EventQueueKey)
	require.NoError(t, err)
	require.Len(t, items, 2)

	// LPUSH puts the newest event first
	var env Envelope
	require.NoError(t, json.Unmarshal([]byte(items[0]), &env))
	assert.Equal(t, EventItemChanged, env.Type)
	var item model.ItemEvent
	require.NoError(t, json.Unmarshal(env.Data, &item))
	assert.Equal(t, model.ItemStateCompleted, item.State)

	require.NoError(t, json.Unmarshal([]byte(items[1]), &env))
	assert.Equal(t, EventAssessmentSaved, env.Type)
	var saved model.AssessmentEvent
	require.NoError(t, json.Unmarshal(env.Data, &saved))
	assert.Equal(t, "1000", saved.Assessment.AssessmentID)
	assert.Equal(t, model.SourceTypeHuman, saved.Assessment.Source.SourceType)
	assert.True(t, saved.Created)
}

func TestPublishFailsWhenRedisIsDown(t *testing.T) {
	p, s := setupProducer(t)
	s.Close()
	assert.Error(t, p.ItemChanged(context.Background(), model.ItemEvent{ID: "ev-1"}))
}

package services

import (
	"context"
	"errors"
	"sort"
	"time"

	"adlink-platform/internal/kafka"
	"adlink-platform/internal/metrics"
	"adlink-platform/internal/models"

	"github.com/sirupsen/logrus"
)

type RollupStore interface {
	UpsertRollups(ctx context.Context, rollups []models.DailyRollup) error
}

// EventSource yields mirrored events, typically a *kafka.Consumer.
type EventSource interface {
	ReadEvent(ctx context.Context) (kafka.EventMessage, error)
}

// RollupQueue buffers mirrored events and folds them into daily counters in batches.
type RollupQueue struct {
	events       chan kafka.EventMessage
	store        RollupStore
	logger       *logrus.Logger
	batchSize    int
	batchTimeout time.Duration
	retryDelay   time.Duration
}

func NewRollupQueue(store RollupStore, logger *logrus.Logger, bufferSize int) *RollupQueue {
	return &RollupQueue{
		events:       make(chan kafka.EventMessage, bufferSize),
		store:        store,
		logger:       logger,
		batchSize:    100,
		batchTimeout: 5 * time.Second,
		retryDelay:   time.Second,
	}
}

func (q *RollupQueue) Enqueue(event kafka.EventMessage) bool {
	select {
	case q.events <- event:
		metrics.RollupQueueSize.Set(float64(len(q.events)))
		return true
	default:
		// Queue is full, handle gracefully
		q.logger.Warn("Rollup queue is full, dropping event")
		return false
	}
}

// Consume feeds the queue from src until ctx is cancelled.
func (q *RollupQueue) Consume(ctx context.Context, src EventSource) {
	for {
		event, err := src.ReadEvent(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return
			}
			q.logger.WithError(err).Warn("Failed to read mirrored event")
			select {
			case <-ctx.Done():
				return
			case <-time.After(q.retryDelay):
			}
			continue
		}
		q.Enqueue(event)
	}
}

func (q *RollupQueue) StartProcessor(ctx context.Context) {
	batch := make([]kafka.EventMessage, 0, q.batchSize)
	timer := time.NewTimer(q.batchTimeout)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			// Process remaining events
			if len(batch) > 0 {
				q.processBatch(context.Background(), batch)
			}
			return
		case event := <-q.events:
			batch = append(batch, event)
			if len(batch) >= q.batchSize {
				q.processBatch(ctx, batch)
				batch = batch[:0]
				timer.Reset(q.batchTimeout)
			}
		case <-timer.C:
			if len(batch) > 0 {
				q.processBatch(ctx, batch)
				batch = batch[:0]
			}
			timer.Reset(q.batchTimeout)
		}
		metrics.RollupQueueSize.Set(float64(len(q.events)))
	}
}

func (q *RollupQueue) processBatch(ctx context.Context, events []kafka.EventMessage) {
	if len(events) == 0 {
		return
	}
	rollups := Aggregate(events)

	// Batch upsert with retry logic
	maxRetries := 3
	for i := 0; i < maxRetries; i++ {
		if err := q.store.UpsertRollups(ctx, rollups); err != nil {
			q.logger.WithError(err).Warnf("Failed to upsert rollups (attempt %d/%d)", i+1, maxRetries)
			if i == maxRetries-1 {
				q.logger.WithError(err).WithField("events", len(events)).Error("Dropping rollup batch after all retries")
				return
			}
			time.Sleep(time.Duration(i+1) * q.retryDelay)
			continue
		}
		metrics.RollupsProcessed.Add(float64(len(events)))
		return
	}
}

type rollupKey struct {
	date        time.Time
	eventType   string
	placementID uint
	creativeID  uint
	campaignID  uint
}

// Aggregate merges events into one rollup per (UTC day, type, placement, creative, campaign).
// Missing references count under id 0.
func Aggregate(events []kafka.EventMessage) []models.DailyRollup {
	counts := make(map[rollupKey]int64)
	for _, e := range events {
		created := e.CreatedAt.UTC()
		key := rollupKey{
			date:        time.Date(created.Year(), created.Month(), created.Day(), 0, 0, 0, 0, time.UTC),
			eventType:   e.EventType,
			placementID: deref(e.PlacementID),
			creativeID:  deref(e.CreativeID),
			campaignID:  deref(e.CampaignID),
		}
		counts[key]++
	}

	rollups := make([]models.DailyRollup, 0, len(counts))
	for k, n := range counts {
		rollups = append(rollups, models.DailyRollup{
			EventDate:   k.date,
			EventType:   k.eventType,
			PlacementID: k.placementID,
			CreativeID:  k.creativeID,
			CampaignID:  k.campaignID,
			EventCount:  n,
		})
	}
	sort.Slice(rollups, func(i, j int) bool {
		a, b := rollups[i], rollups[j]
		if !a.EventDate.Equal(b.EventDate) {
			return a.EventDate.Before(b.EventDate)
		}
		if a.EventType != b.EventType {
			return a.EventType < b.EventType
		}
		if a.PlacementID != b.PlacementID {
			return a.PlacementID < b.PlacementID
		}
		if a.CreativeID != b.CreativeID {
			return a.CreativeID < b.CreativeID
		}
		return a.CampaignID < b.CampaignID
	})
	return rollups
}

func deref(id *uint) uint {
	if id == nil {
		return 0
	}
	return *id
}

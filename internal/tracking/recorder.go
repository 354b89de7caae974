// Package tracking persists impression and click events. Recording is best effort: it
// reports what happened through Outcome and never fails the caller.
package tracking

import (
	"context"
	"fmt"

	"adlink-platform/internal/metrics"
	"adlink-platform/internal/models"

	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
)

type Outcome int

const (
	OutcomeRecorded Outcome = iota
	OutcomeSkippedDisabled
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeRecorded:
		return "recorded"
	case OutcomeSkippedDisabled:
		return "skipped_disabled"
	default:
		return "failed"
	}
}

// RequestMeta is the request context stored with an event. Missing values stay empty strings.
type RequestMeta struct {
	PageURL   string
	Referrer  string
	UserAgent string
	SessionID string
	Site      string
	IP        string
}

// MetaFromMap reads the well-known keys of a loosely typed request mapping.
func MetaFromMap(m map[string]string) RequestMeta {
	return RequestMeta{
		PageURL:   m["page_url"],
		Referrer:  m["referrer"],
		UserAgent: m["user_agent"],
		SessionID: m["session_id"],
		Site:      m["site"],
		IP:        m["ip"],
	}
}

func (m RequestMeta) Map() map[string]string {
	out := make(map[string]string)
	for k, v := range map[string]string{
		"page_url":   m.PageURL,
		"referrer":   m.Referrer,
		"user_agent": m.UserAgent,
		"session_id": m.SessionID,
		"site":       m.Site,
		"ip":         m.IP,
	} {
		if v != "" {
			out[k] = v
		}
	}
	return out
}

// EventInput names the entities an event refers to. Any of them may be nil.
type EventInput struct {
	Type      string
	Placement *models.Placement
	Creative  *models.Creative
	Campaign  *models.Campaign
	UserID    *uint
	Meta      RequestMeta
}

type EventStore interface {
	CreateEvent(ctx context.Context, event *models.Event) error
}

// EventPublisher mirrors persisted events to downstream consumers.
type EventPublisher interface {
	PublishEvent(ctx context.Context, event *models.Event) error
}

type Recorder struct {
	store     EventStore
	publisher EventPublisher
	logger    *logrus.Logger
}

func NewRecorder(store EventStore, publisher EventPublisher, logger *logrus.Logger) *Recorder {
	return &Recorder{
		store:     store,
		publisher: publisher,
		logger:    logger,
	}
}

// Record writes one event row. It is a no-op when ads are disabled and never panics or
// returns an error; failures are logged at warning level.
func (r *Recorder) Record(ctx context.Context, cfg models.TargetingConfig, in EventInput) (outcome Outcome) {
	if !cfg.AdsEnabled {
		return OutcomeSkippedDisabled
	}

	defer func() {
		if p := recover(); p != nil {
			r.fail(in, fmt.Errorf("panic while recording event: %v", p))
			outcome = OutcomeFailed
		}
	}()

	if in.Type != models.EventTypeImpression && in.Type != models.EventTypeClick {
		r.fail(in, fmt.Errorf("unknown event type %q", in.Type))
		return OutcomeFailed
	}

	event := buildEvent(in)
	if err := r.store.CreateEvent(ctx, event); err != nil {
		r.fail(in, err)
		return OutcomeFailed
	}

	metrics.EventsRecorded.WithLabelValues(in.Type).Inc()
	r.logger.WithFields(logrus.Fields{
		"event":      "ads.event.recorded",
		"event_type": in.Type,
		"placement":  placementSlug(in.Placement),
		"creative":   event.CreativeID,
		"campaign":   event.CampaignID,
	}).Info("Recorded ad event")

	if r.publisher != nil {
		if err := r.publisher.PublishEvent(ctx, event); err != nil {
			metrics.EventMirrorFailures.Inc()
			r.logger.WithError(err).WithField("event_id", event.ID).Warn("Failed to mirror ad event")
		}
	}

	return OutcomeRecorded
}

func (r *Recorder) fail(in EventInput, err error) {
	metrics.EventsFailed.WithLabelValues(in.Type).Inc()
	r.logger.WithError(err).WithFields(logrus.Fields{
		"event_type": in.Type,
		"placement":  placementSlug(in.Placement),
	}).Warn("record_event failed")
}

func buildEvent(in EventInput) *models.Event {
	event := &models.Event{
		EventType:   in.Type,
		UserID:      in.UserID,
		RequestMeta: datatypes.NewJSONType(in.Meta.Map()),
		PageURL:     in.Meta.PageURL,
		ReferrerURL: in.Meta.Referrer,
		UserAgent:   in.Meta.UserAgent,
		SessionID:   in.Meta.SessionID,
		SiteDomain:  in.Meta.Site,
	}
	if in.Placement != nil {
		event.PlacementID = idPtr(in.Placement.ID)
	}
	if in.Creative != nil {
		event.CreativeID = idPtr(in.Creative.ID)
	}
	if in.Campaign != nil {
		event.CampaignID = idPtr(in.Campaign.ID)
	}
	return event
}

func idPtr(id uint) *uint {
	return &id
}

func placementSlug(p *models.Placement) string {
	if p == nil {
		return ""
	}
	return p.Slug
}

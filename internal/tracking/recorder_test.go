package tracking

import (
	"context"
	"errors"
	"testing"

	"adlink-platform/internal/database/dbtest"
	"adlink-platform/internal/logger"
	"adlink-platform/internal/models"
	"adlink-platform/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var adsOn = models.TargetingConfig{AdsEnabled: true}

type mockStore struct {
	mock.Mock
}

func (m *mockStore) CreateEvent(ctx context.Context, e *models.Event) error {
	return m.Called(ctx, e).Error(0)
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishEvent(ctx context.Context, e *models.Event) error {
	return m.Called(ctx, e).Error(0)
}

type panickingStore struct{}

func (panickingStore) CreateEvent(context.Context, *models.Event) error {
	panic("driver exploded")
}

func TestRecord_NilEntitiesAndEmptyMeta(t *testing.T) {
	db := dbtest.Open(t)
	rec := NewRecorder(repository.NewAnalyticsRepository(db, logger.Discard()), nil, logger.Discard())

	outcome := rec.Record(context.Background(), adsOn, EventInput{Type: models.EventTypeImpression})
	assert.Equal(t, OutcomeRecorded, outcome)

	var events []models.Event
	require.NoError(t, db.Find(&events).Error)
	require.Len(t, events, 1)

	e := events[0]
	assert.Nil(t, e.PlacementID)
	assert.Nil(t, e.CreativeID)
	assert.Nil(t, e.CampaignID)
	assert.Equal(t, "", e.PageURL)
	assert.Equal(t, "", e.ReferrerURL)
	assert.Equal(t, "", e.UserAgent)
	assert.Equal(t, "", e.SessionID)
	assert.Equal(t, "", e.SiteDomain)
	assert.Empty(t, e.RequestMeta.Data())
}

func TestRecord_PersistsReferencesAndMeta(t *testing.T) {
	db := dbtest.Open(t)
	rec := NewRecorder(repository.NewAnalyticsRepository(db, logger.Discard()), nil, logger.Discard())

	meta := MetaFromMap(map[string]string{
		"page_url":   "https://example.com/blog/root",
		"referrer":   "https://google.com/",
		"user_agent": "Mozilla/5.0",
		"site":       "example.com",
		"unknown":    "ignored",
	})
	outcome := rec.Record(context.Background(), adsOn, EventInput{
		Type:      models.EventTypeClick,
		Placement: &models.Placement{ID: 3, Slug: "sidebar"},
		Creative:  &models.Creative{ID: 7},
		Campaign:  &models.Campaign{ID: 9},
		Meta:      meta,
	})
	require.Equal(t, OutcomeRecorded, outcome)

	var e models.Event
	require.NoError(t, db.First(&e).Error)
	assert.Equal(t, models.EventTypeClick, e.EventType)
	require.NotNil(t, e.PlacementID)
	assert.Equal(t, uint(3), *e.PlacementID)
	assert.Equal(t, uint(7), *e.CreativeID)
	assert.Equal(t, uint(9), *e.CampaignID)
	assert.Equal(t, "https://example.com/blog/root", e.PageURL)
	assert.Equal(t, "https://google.com/", e.ReferrerURL)
	assert.Equal(t, "Mozilla/5.0", e.UserAgent)
	assert.Equal(t, "", e.SessionID)
	assert.Equal(t, "example.com", e.SiteDomain)
	assert.Equal(t, "example.com", e.RequestMeta.Data()["site"])
}

func TestRecord_AdsDisabledWritesNothing(t *testing.T) {
	store := new(mockStore)
	rec := NewRecorder(store, nil, logger.Discard())

	outcome := rec.Record(context.Background(), models.TargetingConfig{}, EventInput{Type: models.EventTypeClick})

	assert.Equal(t, OutcomeSkippedDisabled, outcome)
	store.AssertNotCalled(t, "CreateEvent", mock.Anything, mock.Anything)
}

func TestRecord_StoreFailureIsSwallowed(t *testing.T) {
	store := new(mockStore)
	store.On("CreateEvent", mock.Anything, mock.Anything).Return(errors.New("disk full"))
	pub := new(mockPublisher)
	rec := NewRecorder(store, pub, logger.Discard())

	var outcome Outcome
	assert.NotPanics(t, func() {
		outcome = rec.Record(context.Background(), adsOn, EventInput{Type: models.EventTypeImpression})
	})
	assert.Equal(t, OutcomeFailed, outcome)
	pub.AssertNotCalled(t, "PublishEvent", mock.Anything, mock.Anything)
}

func TestRecord_PanicIsRecovered(t *testing.T) {
	rec := NewRecorder(panickingStore{}, nil, logger.Discard())

	var outcome Outcome
	assert.NotPanics(t, func() {
		outcome = rec.Record(context.Background(), adsOn, EventInput{Type: models.EventTypeImpression})
	})
	assert.Equal(t, OutcomeFailed, outcome)
}

func TestRecord_UnknownType(t *testing.T) {
	store := new(mockStore)
	rec := NewRecorder(store, nil, logger.Discard())

	assert.Equal(t, OutcomeFailed, rec.Record(context.Background(), adsOn, EventInput{Type: "view"}))
	store.AssertNotCalled(t, "CreateEvent", mock.Anything, mock.Anything)
}

func TestRecord_MirrorFailureKeepsOutcome(t *testing.T) {
	store := new(mockStore)
	store.On("CreateEvent", mock.Anything, mock.Anything).Return(nil)
	pub := new(mockPublisher)
	pub.On("PublishEvent", mock.Anything, mock.MatchedBy(func(e *models.Event) bool {
		return e.EventType == models.EventTypeClick
	})).Return(errors.New("broker down"))
	rec := NewRecorder(store, pub, logger.Discard())

	outcome := rec.Record(context.Background(), adsOn, EventInput{Type: models.EventTypeClick})

	assert.Equal(t, OutcomeRecorded, outcome)
	pub.AssertExpectations(t)
}

func TestRequestMeta_Map(t *testing.T) {
	m := RequestMeta{PageURL: "https://a", IP: "10.0.0.1"}
	assert.Equal(t, map[string]string{"page_url": "https://a", "ip": "10.0.0.1"}, m.Map())
	assert.Empty(t, RequestMeta{}.Map())
	assert.Equal(t, RequestMeta{}, MetaFromMap(nil))
}

func TestOutcome_String(t *testing.T) {
	assert.Equal(t, "recorded", OutcomeRecorded.String())
	assert.Equal(t, "skipped_disabled", OutcomeSkippedDisabled.String())
	assert.Equal(t, "failed", OutcomeFailed.String())
}

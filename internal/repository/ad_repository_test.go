package repository

import (
	"context"
	"testing"
	"time"

	"adlink-platform/internal/database/dbtest"
	"adlink-platform/internal/logger"
	"adlink-platform/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func createCampaign(t *testing.T, db *gorm.DB, name string, active, locked bool, endAt *time.Time) *models.Campaign {
	t.Helper()
	c := &models.Campaign{Name: name, Type: models.CampaignTypeHouse, IsActive: active, Locked: locked, Weight: 1, EndAt: endAt}
	require.NoError(t, db.Create(c).Error)
	return c
}

func createCreative(t *testing.T, db *gorm.DB, camp *models.Campaign, name string, enabled bool) *models.Creative {
	t.Helper()
	c := &models.Creative{CampaignID: camp.ID, Name: name, CreativeType: models.CreativeTypeBanner, Weight: 1, IsEnabled: enabled, IsActive: true}
	require.NoError(t, db.Create(c).Error)
	return c
}

func TestEligibleAssignments_LeavesCampaignLivenessToCaller(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewAdRepository(db, logger.Discard())
	ctx := context.Background()

	expired := time.Now().Add(-48 * time.Hour)
	live := createCampaign(t, db, "Live", true, false, nil)
	lockedExpired := createCampaign(t, db, "Locked and expired", true, true, &expired)
	lockedInactive := createCampaign(t, db, "Locked and paused", false, true, nil)
	paused := createCampaign(t, db, "Paused", false, false, nil)

	placement := &models.Placement{Name: "Sidebar", Code: "sidebar", Slug: "sidebar", IsEnabled: true, IsActive: true}
	require.NoError(t, db.Create(placement).Error)

	creatives := []*models.Creative{
		createCreative(t, db, live, "live", true),
		createCreative(t, db, lockedExpired, "locked-expired", true),
		createCreative(t, db, lockedInactive, "locked-inactive", true),
		createCreative(t, db, paused, "paused", true),
		createCreative(t, db, live, "disabled creative", false),
	}
	for i, c := range creatives {
		a := &models.Assignment{PlacementID: placement.ID, CreativeID: c.ID, Weight: i + 1, IsEnabled: true, IsActive: true}
		require.NoError(t, db.Create(a).Error)
	}
	off := createCreative(t, db, live, "assignment off", true)
	require.NoError(t, db.Create(&models.Assignment{PlacementID: placement.ID, CreativeID: off.ID, Weight: 1, IsEnabled: false, IsActive: true}).Error)

	assignments, err := repo.EligibleAssignments(ctx, placement.ID)
	require.NoError(t, err)

	var names []string
	for _, a := range assignments {
		require.NotNil(t, a.Creative)
		require.NotNil(t, a.Creative.Campaign, a.Creative.Name)
		names = append(names, a.Creative.Name)
	}
	assert.Equal(t, []string{"live", "locked-expired", "locked-inactive", "paused"}, names)

	byName := map[string]models.Assignment{}
	for _, a := range assignments {
		byName[a.Creative.Name] = a
	}
	assert.True(t, byName["locked-expired"].Creative.Campaign.Locked)
	assert.False(t, byName["locked-expired"].Creative.Campaign.IsLive(time.Now()))
	assert.False(t, byName["paused"].Creative.Campaign.IsActive)
}

func TestEligibleAssignments_SkipsDeletedCampaigns(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewAdRepository(db, logger.Discard())

	camp := createCampaign(t, db, "Gone", true, true, nil)
	creative := createCreative(t, db, camp, "orphaned", true)
	placement := &models.Placement{Name: "Header", Code: "header", Slug: "header", IsEnabled: true, IsActive: true}
	require.NoError(t, db.Create(placement).Error)
	require.NoError(t, db.Create(&models.Assignment{PlacementID: placement.ID, CreativeID: creative.ID, Weight: 1, IsEnabled: true, IsActive: true}).Error)
	require.NoError(t, db.Delete(camp).Error)

	assignments, err := repo.EligibleAssignments(context.Background(), placement.ID)
	require.NoError(t, err)
	assert.Empty(t, assignments)
}

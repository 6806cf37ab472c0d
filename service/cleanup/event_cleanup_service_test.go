package cleanup

import (
	"context"
	"formbuilder-service/service/models"
	"formbuilder-service/testutil"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanupExpiredEvents(t *testing.T) {
	tdb := testutil.NewTestDB()
	defer tdb.Close()

	now := time.Date(2024, 3, 5, 2, 0, 0, 0, time.UTC)
	events := []models.FormEvent{
		{EventType: "form.created", FormID: 1, UserID: "owner", CreatedAt: now.AddDate(0, 0, -45)},
		{EventType: "form.deleted", FormID: 1, UserID: "owner", CreatedAt: now.AddDate(0, 0, -31)},
		{EventType: "form.created", FormID: 2, UserID: "owner", CreatedAt: now.AddDate(0, 0, -3)},
	}
	require.NoError(t, tdb.DB.Create(&events).Error)

	service := NewEventCleanupService(tdb.DB, 30, nil)
	service.now = func() time.Time { return now }

	deleted, err := service.CleanupExpiredEvents(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	var remaining []models.FormEvent
	require.NoError(t, tdb.DB.Find(&remaining).Error)
	require.Len(t, remaining, 1)
	assert.Equal(t, uint(2), remaining[0].FormID)
}

func TestNewEventCleanupService_DefaultRetention(t *testing.T) {
	tdb := testutil.NewTestDB()
	defer tdb.Close()

	service := NewEventCleanupService(tdb.DB, 0, nil)
	assert.Equal(t, DefaultRetentionDays, service.retentionDays)
}

func TestEventCleanupService_StartStop(t *testing.T) {
	tdb := testutil.NewTestDB()
	defer tdb.Close()

	service := NewEventCleanupService(tdb.DB, 7, nil)
	require.NoError(t, service.Start(""))
	assert.Error(t, service.Start(""), "重复启动应报错")
	service.Stop()
	service.Stop()

	invalid := NewEventCleanupService(tdb.DB, 7, nil)
	assert.Error(t, invalid.Start("not a cron"))
}

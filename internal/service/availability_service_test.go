package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"field-service/internal/model"
)

func technicianIDs(users []model.User) []string {
	ids := make([]string, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID.String())
	}
	return ids
}

func TestGetAvailableTechnicians_FiltersBusyTech(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	busyTech := f.seedTechnician(t, "busy")
	freeTech := f.seedTechnician(t, "free")
	now := time.Now().UTC()

	f.seedRequest(t, requestSeed{
		technicianID:  &busyTech,
		status:        model.RequestStatusAssigned,
		scheduledDate: &now,
		slaHours:      2,
	})

	available, err := f.availability.GetAvailableTechnicians(ctx, now.Add(30*time.Minute), 1)
	require.NoError(t, err)

	ids := technicianIDs(available)
	assert.NotContains(t, ids, busyTech.String())
	assert.Contains(t, ids, freeTech.String())
}

func TestGetAvailableTechnicians_HalfOpenBoundary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	techID := f.seedTechnician(t, "tech1")
	now := time.Now().UTC()

	// committed [now, now+2h)
	f.seedRequest(t, requestSeed{
		technicianID:  &techID,
		status:        model.RequestStatusAssigned,
		scheduledDate: &now,
		slaHours:      2,
	})

	// [now+2h, now+3h) touches the boundary but does not overlap
	available, err := f.availability.GetAvailableTechnicians(ctx, now.Add(2*time.Hour), 1)
	require.NoError(t, err)
	assert.Contains(t, technicianIDs(available), techID.String())

	// [now+1h59m, ...) still overlaps
	available, err = f.availability.GetAvailableTechnicians(ctx, now.Add(119*time.Minute), 1)
	require.NoError(t, err)
	assert.NotContains(t, technicianIDs(available), techID.String())
}

func TestGetAvailableTechnicians_NonBlockingStatuses(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	techID := f.seedTechnician(t, "tech1")
	now := time.Now().UTC()

	for _, status := range []model.RequestStatus{
		model.RequestStatusRequested,
		model.RequestStatusCompleted,
		model.RequestStatusClosed,
		model.RequestStatusCancelled,
	} {
		f.seedRequest(t, requestSeed{
			technicianID:  &techID,
			status:        status,
			scheduledDate: &now,
			slaHours:      2,
		})
	}

	available, err := f.availability.GetAvailableTechnicians(ctx, now, 1)
	require.NoError(t, err)
	assert.Contains(t, technicianIDs(available), techID.String())
}

func TestGetAvailableTechnicians_MissingScheduledDateDoesNotBlock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	techID := f.seedTechnician(t, "tech1")

	f.seedRequest(t, requestSeed{
		technicianID: &techID,
		status:       model.RequestStatusAssigned,
	})

	available, err := f.availability.GetAvailableTechnicians(ctx, time.Now().UTC(), 1)
	require.NoError(t, err)
	assert.Contains(t, technicianIDs(available), techID.String())
}

func TestHasConflict_ExcludesOwnRequest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	techID := f.seedTechnician(t, "tech1")
	now := time.Now().UTC()

	request := f.seedRequest(t, requestSeed{
		technicianID:  &techID,
		status:        model.RequestStatusAssigned,
		scheduledDate: &now,
		slaHours:      2,
	})

	conflict, err := f.availability.HasConflict(ctx, techID, now, 2, nil)
	require.NoError(t, err)
	assert.True(t, conflict)

	conflict, err = f.availability.HasConflict(ctx, techID, now, 2, &request.ID)
	require.NoError(t, err)
	assert.False(t, conflict)
}

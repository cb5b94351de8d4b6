// internal/services/admin_service_test.go
package services

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javajoker/gemstore-backend/internal/models"
)

func TestAnalyticsWindow(t *testing.T) {
	now := time.Date(2024, 6, 30, 12, 0, 0, 0, time.UTC)

	from, to, err := AnalyticsWindow(time.Time{}, time.Time{}, now)
	require.NoError(t, err)
	assert.Equal(t, now, to)
	assert.Equal(t, now.AddDate(0, 0, -30), from)

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	from, to, err = AnalyticsWindow(start, time.Time{}, now)
	require.NoError(t, err)
	assert.Equal(t, start, from)
	assert.Equal(t, now, to)

	_, _, err = AnalyticsWindow(now, now, now)
	assert.True(t, errors.Is(err, ErrInvalidDateRange))

	_, _, err = AnalyticsWindow(now.AddDate(-2, 0, 0), now, now)
	assert.True(t, errors.Is(err, ErrInvalidDateRange))
}

func TestGrowthPercent(t *testing.T) {
	assert.Equal(t, 50.0, growthPercent(decimal.NewFromInt(150), decimal.NewFromInt(100)))
	assert.Equal(t, -25.0, growthPercent(decimal.NewFromInt(75), decimal.NewFromInt(100)))
	assert.Equal(t, 0.0, growthPercent(decimal.NewFromInt(10), decimal.Zero))
}

func TestAdminCannotModifySelf(t *testing.T) {
	svc := NewAdminService(nil, nil, 3)
	adminID := uuid.New()

	_, err := svc.UpdateUserStatus(adminID, adminID, &UpdateUserStatusRequest{Status: models.UserStatusSuspended})
	assert.True(t, errors.Is(err, ErrSelfModification))

	_, err = svc.UpdateUserRole(adminID, adminID, &UpdateUserRoleRequest{Role: models.UserRoleCustomer})
	assert.True(t, errors.Is(err, ErrSelfModification))

	_, err = svc.UpdateUserRole(uuid.New(), adminID, &UpdateUserRoleRequest{Role: "owner"})
	assert.ErrorContains(t, err, "validation failed")
}

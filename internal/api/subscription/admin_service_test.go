package subscription

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/melodia-app/subscriptions/internal/types"
)

func setupAdminServiceTest(now time.Time) (*AdminServiceImpl, *MockLedgerRepository, *MockPlanService) {
	mockLedger := new(MockLedgerRepository)
	mockPlans := new(MockPlanService)
	service := NewAdminService(mockLedger, mockPlans, testLogger())
	service.now = func() time.Time { return now }
	return service, mockLedger, mockPlans
}

func TestAdminServiceImpl_Grant(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	userID := uuid.New()

	t.Run("success opens a period without payment metadata", func(t *testing.T) {
		service, mockLedger, mockPlans := setupAdminServiceTest(now)
		planRow := basicPlan()

		mockPlans.On("GetPlan", ctx, planRow.ID).Return(planRow, nil).Once()

		granted := &types.UserSubscription{
			ID:        uuid.New(),
			UserID:    userID,
			PlanID:    planRow.ID,
			PlanName:  "basic",
			StartDate: now,
			EndDate:   now.AddDate(0, 0, 30),
			IsActive:  true,
		}
		mockLedger.On("CreatePeriod", ctx, mock.MatchedBy(func(p NewPeriodParams) bool {
			return p.UserID == userID &&
				p.PlanID == planRow.ID &&
				p.EndDate.Equal(now.AddDate(0, 0, 30)) &&
				p.OrderID == nil &&
				p.PaymentKey == nil &&
				p.AmountCents == nil
		})).Return(granted, nil).Once()

		snapshot, err := service.Grant(ctx, userID, planRow.ID)
		require.NoError(t, err)
		assert.Equal(t, types.SubscriptionStatusActive, snapshot.Status)
		assert.Empty(t, snapshot.OrderID)
		assert.Empty(t, snapshot.PaymentKey)
		mockLedger.AssertExpectations(t)
		mockPlans.AssertExpectations(t)
	})

	t.Run("unknown plan", func(t *testing.T) {
		service, mockLedger, mockPlans := setupAdminServiceTest(now)
		planID := uuid.New()

		mockPlans.On("GetPlan", ctx, planID).Return(nil, types.ErrNotFound).Once()

		_, err := service.Grant(ctx, userID, planID)
		require.Error(t, err)
		assert.True(t, errors.Is(err, types.ErrNotFound))
		mockLedger.AssertNotCalled(t, "CreatePeriod", mock.Anything, mock.Anything)
	})
}

func TestAdminServiceImpl_Cancel(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("success closes the period", func(t *testing.T) {
		service, mockLedger, _ := setupAdminServiceTest(now)
		subID := uuid.New()
		closed := &types.UserSubscription{
			ID:        subID,
			UserID:    uuid.New(),
			PlanID:    uuid.New(),
			PlanName:  "basic",
			StartDate: now.AddDate(0, 0, -10),
			EndDate:   now,
			IsActive:  false,
		}
		mockLedger.On("Cancel", ctx, subID, now).Return(closed, nil).Once()

		snapshot, err := service.Cancel(ctx, subID)
		require.NoError(t, err)
		assert.Equal(t, types.SubscriptionStatusInactive, snapshot.Status)
		assert.Equal(t, now, snapshot.EndDate)
		mockLedger.AssertExpectations(t)
	})

	t.Run("missing period", func(t *testing.T) {
		service, mockLedger, _ := setupAdminServiceTest(now)
		subID := uuid.New()
		mockLedger.On("Cancel", ctx, subID, now).Return(nil, types.ErrNotFound).Once()

		_, err := service.Cancel(ctx, subID)
		require.Error(t, err)
		assert.True(t, errors.Is(err, types.ErrNotFound))
	})
}

func TestAdminServiceImpl_Update(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	userID := uuid.New()

	t.Run("extends the current period", func(t *testing.T) {
		service, mockLedger, _ := setupAdminServiceTest(now)
		newEnd := now.AddDate(0, 0, 60)
		params := types.UpdateSubscriptionParams{EndDate: &newEnd}

		updated := &types.UserSubscription{
			ID:        uuid.New(),
			UserID:    userID,
			PlanID:    uuid.New(),
			PlanName:  "basic",
			StartDate: now.AddDate(0, 0, -10),
			EndDate:   newEnd,
			IsActive:  true,
		}
		mockLedger.On("UpdateActive", ctx, userID, params).Return(updated, nil).Once()

		snapshot, err := service.Update(ctx, userID, params)
		require.NoError(t, err)
		assert.Equal(t, newEnd, snapshot.EndDate)
		assert.Equal(t, types.SubscriptionStatusActive, snapshot.Status)
		mockLedger.AssertExpectations(t)
	})

	t.Run("no active period to update", func(t *testing.T) {
		service, mockLedger, _ := setupAdminServiceTest(now)
		mockLedger.On("UpdateActive", ctx, userID, mock.Anything).
			Return(nil, types.ErrNotFound).Once()

		_, err := service.Update(ctx, userID, types.UpdateSubscriptionParams{})
		require.Error(t, err)
		assert.True(t, errors.Is(err, types.ErrNotFound))
	})
}

func TestAdminServiceImpl_GetCurrent(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	userID := uuid.New()

	t.Run("returns the live period", func(t *testing.T) {
		service, mockLedger, _ := setupAdminServiceTest(now)
		sub := &types.UserSubscription{
			ID:        uuid.New(),
			UserID:    userID,
			PlanID:    uuid.New(),
			PlanName:  "premium",
			StartDate: now.AddDate(0, 0, -5),
			EndDate:   now.AddDate(0, 0, 25),
			IsActive:  true,
		}
		mockLedger.On("FindActive", ctx, userID).Return(sub, nil).Once()

		snapshot, err := service.GetCurrent(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, "premium", snapshot.PlanName)
		assert.Equal(t, types.SubscriptionStatusActive, snapshot.Status)
	})

	t.Run("no current subscription", func(t *testing.T) {
		service, mockLedger, _ := setupAdminServiceTest(now)
		mockLedger.On("FindActive", ctx, userID).Return(nil, types.ErrNotFound).Once()

		_, err := service.GetCurrent(ctx, userID)
		require.Error(t, err)
		assert.True(t, errors.Is(err, types.ErrNotFound))
	})

	t.Run("two live periods surface as an invariant violation", func(t *testing.T) {
		service, mockLedger, _ := setupAdminServiceTest(now)
		mockLedger.On("FindActive", ctx, userID).
			Return(nil, types.ErrInvariantViolation).Once()

		_, err := service.GetCurrent(ctx, userID)
		require.Error(t, err)
		assert.True(t, errors.Is(err, types.ErrInvariantViolation))
	})
}

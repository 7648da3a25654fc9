package subscription

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/melodia-app/subscriptions/internal/types"
)

// MockLedgerRepository is a mock implementation of Repository
type MockLedgerRepository struct {
	mock.Mock
}

func (m *MockLedgerRepository) FindActive(ctx context.Context, userID uuid.UUID) (*types.UserSubscription, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.UserSubscription), args.Error(1)
}

func (m *MockLedgerRepository) FindByID(ctx context.Context, id uuid.UUID) (*types.UserSubscription, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.UserSubscription), args.Error(1)
}

func (m *MockLedgerRepository) FindByOrderID(ctx context.Context, orderID string) (*types.UserSubscription, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.UserSubscription), args.Error(1)
}

func (m *MockLedgerRepository) CreatePeriod(ctx context.Context, params NewPeriodParams) (*types.UserSubscription, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.UserSubscription), args.Error(1)
}

func (m *MockLedgerRepository) Cancel(ctx context.Context, id uuid.UUID, at time.Time) (*types.UserSubscription, error) {
	args := m.Called(ctx, id, at)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.UserSubscription), args.Error(1)
}

func (m *MockLedgerRepository) UpdateActive(ctx context.Context, userID uuid.UUID, params types.UpdateSubscriptionParams) (*types.UserSubscription, error) {
	args := m.Called(ctx, userID, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.UserSubscription), args.Error(1)
}

func (m *MockLedgerRepository) ListExpiringBetween(ctx context.Context, from, to time.Time) ([]types.UserSubscription, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.UserSubscription), args.Error(1)
}

func (m *MockLedgerRepository) MarkNotified(ctx context.Context, id uuid.UUID, expiry, at time.Time) error {
	args := m.Called(ctx, id, expiry, at)
	return args.Error(0)
}

// MockPlanService is a mock implementation of plan.Service
type MockPlanService struct {
	mock.Mock
}

func (m *MockPlanService) GetPlan(ctx context.Context, id uuid.UUID) (*types.SubscriptionPlan, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.SubscriptionPlan), args.Error(1)
}

func (m *MockPlanService) GetPlanByName(ctx context.Context, name string) (*types.SubscriptionPlan, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.SubscriptionPlan), args.Error(1)
}

func (m *MockPlanService) ListPlans(ctx context.Context) ([]types.SubscriptionPlan, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.SubscriptionPlan), args.Error(1)
}

func (m *MockPlanService) CreatePlan(ctx context.Context, params types.CreatePlanParams) (*types.SubscriptionPlan, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.SubscriptionPlan), args.Error(1)
}

func (m *MockPlanService) UpdatePlan(ctx context.Context, id uuid.UUID, params types.UpdatePlanParams) (*types.SubscriptionPlan, error) {
	args := m.Called(ctx, id, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.SubscriptionPlan), args.Error(1)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Helper to setup service with mock collaborators and a frozen clock
func setupSettlementServiceTest(now time.Time) (*SettlementServiceImpl, *MockLedgerRepository, *MockPlanService) {
	mockLedger := new(MockLedgerRepository)
	mockPlans := new(MockPlanService)
	service := NewSettlementService(mockLedger, mockPlans, nil, testLogger())
	service.now = func() time.Time { return now }
	return service, mockLedger, mockPlans
}

func basicPlan() *types.SubscriptionPlan {
	return &types.SubscriptionPlan{
		ID:           uuid.New(),
		Name:         "basic",
		PriceCents:   9900,
		DurationDays: 30,
	}
}

func TestSettlementServiceImpl_ConfirmPayment(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	userID := uuid.New()

	t.Run("first settlement opens a period covering the plan duration", func(t *testing.T) {
		service, mockLedger, mockPlans := setupSettlementServiceTest(now)
		planRow := basicPlan()
		req := types.ConfirmPaymentRequest{
			PlanID:      planRow.ID,
			OrderID:     "order-1",
			PaymentKey:  "pk-1",
			AmountCents: 9900,
		}

		mockLedger.On("FindByOrderID", ctx, "order-1").
			Return(nil, types.ErrNotFound).Once()
		mockPlans.On("GetPlan", ctx, planRow.ID).Return(planRow, nil).Once()

		committed := &types.UserSubscription{
			ID:        uuid.New(),
			UserID:    userID,
			PlanID:    planRow.ID,
			PlanName:  "basic",
			StartDate: now,
			EndDate:   now.AddDate(0, 0, 30),
			IsActive:  true,
		}
		amount := int64(9900)
		committed.AmountCents = &amount
		orderID := "order-1"
		committed.OrderID = &orderID
		paymentKey := "pk-1"
		committed.PaymentKey = &paymentKey

		mockLedger.On("CreatePeriod", ctx, mock.MatchedBy(func(p NewPeriodParams) bool {
			return p.UserID == userID &&
				p.PlanID == planRow.ID &&
				p.PlanName == "basic" &&
				p.StartDate.Equal(now) &&
				p.EndDate.Equal(now.AddDate(0, 0, 30)) &&
				p.OrderID != nil && *p.OrderID == "order-1" &&
				p.PaymentKey != nil && *p.PaymentKey == "pk-1" &&
				p.AmountCents != nil && *p.AmountCents == 9900
		})).Return(committed, nil).Once()

		snapshot, err := service.ConfirmPayment(ctx, userID, req)
		require.NoError(t, err)
		assert.Equal(t, types.SubscriptionStatusActive, snapshot.Status)
		assert.Equal(t, "basic", snapshot.PlanName)
		assert.Equal(t, "order-1", snapshot.OrderID)
		assert.Equal(t, "pk-1", snapshot.PaymentKey)
		assert.Equal(t, int64(9900), snapshot.AmountCents)
		assert.Equal(t, now.AddDate(0, 0, 30), snapshot.EndDate)
		mockLedger.AssertExpectations(t)
		mockPlans.AssertExpectations(t)
	})

	t.Run("repeat confirmation returns the committed period without writing", func(t *testing.T) {
		service, mockLedger, mockPlans := setupSettlementServiceTest(now)
		planRow := basicPlan()
		orderID := "order-1"
		amount := int64(9900)
		existing := &types.UserSubscription{
			ID:          uuid.New(),
			UserID:      userID,
			PlanID:      planRow.ID,
			PlanName:    "basic",
			AmountCents: &amount,
			OrderID:     &orderID,
			StartDate:   now.Add(-time.Hour),
			EndDate:     now.AddDate(0, 0, 29),
			IsActive:    true,
		}
		mockLedger.On("FindByOrderID", ctx, "order-1").Return(existing, nil).Twice()

		req := types.ConfirmPaymentRequest{PlanID: planRow.ID, OrderID: "order-1", PaymentKey: "pk-1", AmountCents: 9900}

		first, err := service.ConfirmPayment(ctx, userID, req)
		require.NoError(t, err)

		// A retry with a different amount still answers with the real row.
		req.AmountCents = 19900
		second, err := service.ConfirmPayment(ctx, userID, req)
		require.NoError(t, err)

		assert.Equal(t, first, second)
		assert.Equal(t, existing.ID, second.ID)
		mockLedger.AssertNotCalled(t, "CreatePeriod", mock.Anything, mock.Anything)
		mockPlans.AssertNotCalled(t, "GetPlan", mock.Anything, mock.Anything)
		mockLedger.AssertExpectations(t)
	})

	t.Run("losing the settlement race re-reads the winner's row", func(t *testing.T) {
		service, mockLedger, mockPlans := setupSettlementServiceTest(now)
		planRow := basicPlan()
		orderID := "order-9"
		winner := &types.UserSubscription{
			ID:        uuid.New(),
			UserID:    userID,
			PlanID:    planRow.ID,
			PlanName:  "basic",
			OrderID:   &orderID,
			StartDate: now,
			EndDate:   now.AddDate(0, 0, 30),
			IsActive:  true,
		}

		mockLedger.On("FindByOrderID", ctx, "order-9").
			Return(nil, types.ErrNotFound).Once()
		mockPlans.On("GetPlan", ctx, planRow.ID).Return(planRow, nil).Once()
		mockLedger.On("CreatePeriod", ctx, mock.Anything).
			Return(nil, types.ErrDuplicateOrder).Once()
		mockLedger.On("FindByOrderID", ctx, "order-9").Return(winner, nil).Once()

		snapshot, err := service.ConfirmPayment(ctx, userID, types.ConfirmPaymentRequest{
			PlanID: planRow.ID, OrderID: "order-9", PaymentKey: "pk-9", AmountCents: 9900,
		})
		require.NoError(t, err)
		assert.Equal(t, winner.ID, snapshot.ID)
		mockLedger.AssertExpectations(t)
		mockPlans.AssertExpectations(t)
	})

	t.Run("failed re-read surfaces a retryable conflict", func(t *testing.T) {
		service, mockLedger, mockPlans := setupSettlementServiceTest(now)
		planRow := basicPlan()

		mockLedger.On("FindByOrderID", ctx, "order-9").
			Return(nil, types.ErrNotFound).Once()
		mockPlans.On("GetPlan", ctx, planRow.ID).Return(planRow, nil).Once()
		mockLedger.On("CreatePeriod", ctx, mock.Anything).
			Return(nil, types.ErrDuplicateOrder).Once()
		mockLedger.On("FindByOrderID", ctx, "order-9").
			Return(nil, errors.New("connection reset")).Once()

		_, err := service.ConfirmPayment(ctx, userID, types.ConfirmPaymentRequest{
			PlanID: planRow.ID, OrderID: "order-9", PaymentKey: "pk-9", AmountCents: 9900,
		})
		require.Error(t, err)
		assert.True(t, errors.Is(err, types.ErrConcurrencyConflict))
		mockLedger.AssertExpectations(t)
	})

	t.Run("unknown plan is fatal", func(t *testing.T) {
		service, mockLedger, mockPlans := setupSettlementServiceTest(now)
		planID := uuid.New()

		mockLedger.On("FindByOrderID", ctx, "order-2").
			Return(nil, types.ErrNotFound).Once()
		mockPlans.On("GetPlan", ctx, planID).
			Return(nil, types.ErrNotFound).Once()

		_, err := service.ConfirmPayment(ctx, userID, types.ConfirmPaymentRequest{
			PlanID: planID, OrderID: "order-2", PaymentKey: "pk-2", AmountCents: 9900,
		})
		require.Error(t, err)
		assert.True(t, errors.Is(err, types.ErrNotFound))
		mockLedger.AssertNotCalled(t, "CreatePeriod", mock.Anything, mock.Anything)
	})

	t.Run("unrelated storage failure is never converted into success", func(t *testing.T) {
		service, mockLedger, mockPlans := setupSettlementServiceTest(now)
		planRow := basicPlan()
		dbErr := errors.New("lock timeout on unrelated table")

		mockLedger.On("FindByOrderID", ctx, "order-3").
			Return(nil, types.ErrNotFound).Once()
		mockPlans.On("GetPlan", ctx, planRow.ID).Return(planRow, nil).Once()
		mockLedger.On("CreatePeriod", ctx, mock.Anything).Return(nil, dbErr).Once()

		snapshot, err := service.ConfirmPayment(ctx, userID, types.ConfirmPaymentRequest{
			PlanID: planRow.ID, OrderID: "order-3", PaymentKey: "pk-3", AmountCents: 9900,
		})
		require.Error(t, err)
		assert.Nil(t, snapshot)
		assert.True(t, errors.Is(err, dbErr))
		mockLedger.AssertExpectations(t)
	})

	t.Run("missing settlement metadata is a validation error, not a missing resource", func(t *testing.T) {
		service, mockLedger, _ := setupSettlementServiceTest(now)

		_, err := service.ConfirmPayment(ctx, userID, types.ConfirmPaymentRequest{
			PlanID: uuid.New(), OrderID: "", PaymentKey: "pk-5", AmountCents: 9900,
		})
		require.Error(t, err)
		assert.True(t, errors.Is(err, types.ErrInvalidInput))
		assert.False(t, errors.Is(err, types.ErrNotFound))
		mockLedger.AssertNotCalled(t, "FindByOrderID", mock.Anything, mock.Anything)
	})

	t.Run("idempotency lookup failure is fatal", func(t *testing.T) {
		service, mockLedger, _ := setupSettlementServiceTest(now)
		dbErr := errors.New("database connection error")

		mockLedger.On("FindByOrderID", ctx, "order-4").Return(nil, dbErr).Once()

		_, err := service.ConfirmPayment(ctx, userID, types.ConfirmPaymentRequest{
			PlanID: uuid.New(), OrderID: "order-4", PaymentKey: "pk-4", AmountCents: 9900,
		})
		require.Error(t, err)
		assert.True(t, errors.Is(err, dbErr))
	})
}

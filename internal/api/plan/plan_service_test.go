package plan

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

// MockPlanRepository is a mock implementation of Repository
type MockPlanRepository struct {
	mock.Mock
}

func (m *MockPlanRepository) FindByID(ctx context.Context, id uuid.UUID) (*types.SubscriptionPlan, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.SubscriptionPlan), args.Error(1)
}

func (m *MockPlanRepository) FindByName(ctx context.Context, name string) (*types.SubscriptionPlan, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.SubscriptionPlan), args.Error(1)
}

func (m *MockPlanRepository) ListAll(ctx context.Context) ([]types.SubscriptionPlan, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.SubscriptionPlan), args.Error(1)
}

func (m *MockPlanRepository) Create(ctx context.Context, params types.CreatePlanParams) (*types.SubscriptionPlan, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.SubscriptionPlan), args.Error(1)
}

func (m *MockPlanRepository) Update(ctx context.Context, id uuid.UUID, params types.UpdatePlanParams) (*types.SubscriptionPlan, error) {
	args := m.Called(ctx, id, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.SubscriptionPlan), args.Error(1)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupPlanServiceTest() (*ServiceImpl, *MockPlanRepository) {
	mockRepo := new(MockPlanRepository)
	return NewPlanService(mockRepo, testLogger()), mockRepo
}

func catalogPlan(name string) *types.SubscriptionPlan {
	return &types.SubscriptionPlan{
		ID:           uuid.New(),
		Name:         name,
		PriceCents:   9900,
		DurationDays: 30,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
}

func TestServiceImpl_GetPlan(t *testing.T) {
	ctx := context.Background()

	t.Run("repeat lookups are served from cache", func(t *testing.T) {
		service, mockRepo := setupPlanServiceTest()
		planRow := catalogPlan("basic")
		mockRepo.On("FindByID", ctx, planRow.ID).Return(planRow, nil).Once()

		first, err := service.GetPlan(ctx, planRow.ID)
		require.NoError(t, err)
		second, err := service.GetPlan(ctx, planRow.ID)
		require.NoError(t, err)

		assert.Equal(t, first, second)
		mockRepo.AssertNumberOfCalls(t, "FindByID", 1)
	})

	t.Run("lookup by id warms the name key too", func(t *testing.T) {
		service, mockRepo := setupPlanServiceTest()
		planRow := catalogPlan("premium")
		mockRepo.On("FindByID", ctx, planRow.ID).Return(planRow, nil).Once()

		_, err := service.GetPlan(ctx, planRow.ID)
		require.NoError(t, err)

		byName, err := service.GetPlanByName(ctx, "premium")
		require.NoError(t, err)
		assert.Equal(t, planRow.ID, byName.ID)
		mockRepo.AssertNotCalled(t, "FindByName", mock.Anything, mock.Anything)
	})

	t.Run("unknown plan", func(t *testing.T) {
		service, mockRepo := setupPlanServiceTest()
		id := uuid.New()
		mockRepo.On("FindByID", ctx, id).Return(nil, types.ErrNotFound).Once()

		_, err := service.GetPlan(ctx, id)
		require.Error(t, err)
		assert.True(t, errors.Is(err, types.ErrNotFound))
	})
}

func TestServiceImpl_ListPlans(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		service, mockRepo := setupPlanServiceTest()
		expected := []types.SubscriptionPlan{*catalogPlan("basic"), *catalogPlan("premium")}
		mockRepo.On("ListAll", ctx).Return(expected, nil).Once()

		plans, err := service.ListPlans(ctx)
		require.NoError(t, err)
		assert.Len(t, plans, 2)
	})

	t.Run("repo error", func(t *testing.T) {
		service, mockRepo := setupPlanServiceTest()
		dbErr := errors.New("database connection error")
		mockRepo.On("ListAll", ctx).Return(nil, dbErr).Once()

		_, err := service.ListPlans(ctx)
		require.Error(t, err)
		assert.True(t, errors.Is(err, dbErr))
	})
}

func TestServiceImpl_CreatePlan(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		service, mockRepo := setupPlanServiceTest()
		params := types.CreatePlanParams{Name: "family", PriceCents: 14900, DurationDays: 30}
		created := catalogPlan("family")
		created.PriceCents = 14900
		mockRepo.On("Create", ctx, params).Return(created, nil).Once()

		plan, err := service.CreatePlan(ctx, params)
		require.NoError(t, err)
		assert.Equal(t, "family", plan.Name)
		assert.Equal(t, int64(14900), plan.PriceCents)
	})

	t.Run("duplicate name", func(t *testing.T) {
		service, mockRepo := setupPlanServiceTest()
		params := types.CreatePlanParams{Name: "basic", PriceCents: 9900, DurationDays: 30}
		mockRepo.On("Create", ctx, params).Return(nil, types.ErrConcurrencyConflict).Once()

		_, err := service.CreatePlan(ctx, params)
		require.Error(t, err)
		assert.True(t, errors.Is(err, types.ErrConcurrencyConflict))
	})
}

func TestServiceImpl_UpdatePlan(t *testing.T) {
	ctx := context.Background()

	t.Run("update invalidates cached copies under both keys", func(t *testing.T) {
		service, mockRepo := setupPlanServiceTest()
		planRow := catalogPlan("basic")
		mockRepo.On("FindByID", ctx, planRow.ID).Return(planRow, nil).Once()

		// Warm the cache under both keys.
		_, err := service.GetPlan(ctx, planRow.ID)
		require.NoError(t, err)

		newPrice := int64(12900)
		updated := *planRow
		updated.PriceCents = newPrice
		mockRepo.On("Update", ctx, planRow.ID, types.UpdatePlanParams{PriceCents: &newPrice}).
			Return(&updated, nil).Once()
		_, err = service.UpdatePlan(ctx, planRow.ID, types.UpdatePlanParams{PriceCents: &newPrice})
		require.NoError(t, err)

		// Both lookup paths must go back to the repository now.
		mockRepo.On("FindByName", ctx, "basic").Return(&updated, nil).Once()
		byName, err := service.GetPlanByName(ctx, "basic")
		require.NoError(t, err)
		assert.Equal(t, newPrice, byName.PriceCents)
		mockRepo.AssertExpectations(t)
	})

	t.Run("unknown plan", func(t *testing.T) {
		service, mockRepo := setupPlanServiceTest()
		id := uuid.New()
		mockRepo.On("Update", ctx, id, mock.Anything).Return(nil, types.ErrNotFound).Once()

		_, err := service.UpdatePlan(ctx, id, types.UpdatePlanParams{})
		require.Error(t, err)
		assert.True(t, errors.Is(err, types.ErrNotFound))
	})
}

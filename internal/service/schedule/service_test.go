package schedule

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Aerzsu/render-dental-clinic-sub000/internal/model"
	"github.com/Aerzsu/render-dental-clinic-sub000/pkg/clock"
	"github.com/Aerzsu/render-dental-clinic-sub000/pkg/errors"
)

type mockScheduleRepo struct {
	mock.Mock
}

func (m *mockScheduleRepo) Create(ctx context.Context, day *model.ScheduleDay) error {
	args := m.Called(ctx, day)
	return args.Error(0)
}

func (m *mockScheduleRepo) GetByDate(ctx context.Context, date model.Date) (*model.ScheduleDay, error) {
	args := m.Called(ctx, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ScheduleDay), args.Error(1)
}

func (m *mockScheduleRepo) ExistsForDate(ctx context.Context, date model.Date) (bool, error) {
	args := m.Called(ctx, date)
	return args.Bool(0), args.Error(1)
}

func (m *mockScheduleRepo) ListRange(ctx context.Context, from, to model.Date) ([]*model.ScheduleDay, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.ScheduleDay), args.Error(1)
}

func (m *mockScheduleRepo) Update(ctx context.Context, day *model.ScheduleDay) error {
	args := m.Called(ctx, day)
	return args.Error(0)
}

func (m *mockScheduleRepo) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockScheduleRepo) DeleteFrom(ctx context.Context, date model.Date) (int64, error) {
	args := m.Called(ctx, date)
	return args.Get(0).(int64), args.Error(1)
}

type passthroughTxManager struct{}

func (passthroughTxManager) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func fixedClock(t *testing.T) clock.Clock {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Manila")
	require.NoError(t, err)
	// Tuesday, September 1st 2026, 10:00 clinic time.
	return clock.Fixed(time.Date(2026, time.September, 1, 10, 0, 0, 0, loc))
}

func newTestService(t *testing.T, repo *mockScheduleRepo) *Service {
	t.Helper()
	return NewService(repo, passthroughTxManager{}, fixedClock(t), zerolog.Nop())
}

func TestCreateScheduleDay(t *testing.T) {
	repo := new(mockScheduleRepo)
	svc := newTestService(t, repo)

	req := &model.CreateScheduleDayRequest{
		Date:      model.NewDate(2026, time.September, 7),
		StartTime: model.NewTimeOfDay(9, 0),
		EndTime:   model.NewTimeOfDay(17, 0),
	}
	staffID := uuid.New()

	repo.On("ExistsForDate", mock.Anything, req.Date).Return(false, nil)
	repo.On("Create", mock.Anything, mock.AnythingOfType("*model.ScheduleDay")).Return(nil)

	day, err := svc.Create(context.Background(), req, &staffID)
	require.NoError(t, err)
	assert.Equal(t, req.Date, day.Date)
	assert.Equal(t, req.StartTime, day.StartTime)
	assert.Equal(t, req.EndTime, day.EndTime)
	assert.Equal(t, &staffID, day.CreatedBy)
	repo.AssertExpectations(t)
}

func TestCreateScheduleDayValidation(t *testing.T) {
	tests := []struct {
		name string
		req  model.CreateScheduleDayRequest
	}{
		{
			name: "closed weekday",
			req: model.CreateScheduleDayRequest{
				// Sunday.
				Date:      model.NewDate(2026, time.September, 6),
				StartTime: model.NewTimeOfDay(9, 0),
				EndTime:   model.NewTimeOfDay(17, 0),
			},
		},
		{
			name: "past date",
			req: model.CreateScheduleDayRequest{
				Date:      model.NewDate(2026, time.August, 31),
				StartTime: model.NewTimeOfDay(9, 0),
				EndTime:   model.NewTimeOfDay(17, 0),
			},
		},
		{
			name: "start after end",
			req: model.CreateScheduleDayRequest{
				Date:      model.NewDate(2026, time.September, 7),
				StartTime: model.NewTimeOfDay(17, 0),
				EndTime:   model.NewTimeOfDay(9, 0),
			},
		},
		{
			name: "zero-length window",
			req: model.CreateScheduleDayRequest{
				Date:      model.NewDate(2026, time.September, 7),
				StartTime: model.NewTimeOfDay(9, 0),
				EndTime:   model.NewTimeOfDay(9, 0),
			},
		},
		{
			name: "misaligned start",
			req: model.CreateScheduleDayRequest{
				Date:      model.NewDate(2026, time.September, 7),
				StartTime: model.NewTimeOfDay(9, 15),
				EndTime:   model.NewTimeOfDay(17, 0),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(mockScheduleRepo)
			svc := newTestService(t, repo)

			_, err := svc.Create(context.Background(), &tt.req, nil)
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.ErrValidation))
			repo.AssertNotCalled(t, "Create")
		})
	}
}

func TestCreateScheduleDayDuplicate(t *testing.T) {
	repo := new(mockScheduleRepo)
	svc := newTestService(t, repo)

	req := &model.CreateScheduleDayRequest{
		Date:      model.NewDate(2026, time.September, 7),
		StartTime: model.NewTimeOfDay(9, 0),
		EndTime:   model.NewTimeOfDay(17, 0),
	}
	repo.On("ExistsForDate", mock.Anything, req.Date).Return(true, nil)

	_, err := svc.Create(context.Background(), req, nil)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrValidation))
	repo.AssertNotCalled(t, "Create")
}

func TestUpdateScheduleDayRevalidatesWindow(t *testing.T) {
	repo := new(mockScheduleRepo)
	svc := newTestService(t, repo)

	date := model.NewDate(2026, time.September, 7)
	existing := &model.ScheduleDay{
		Date:      date,
		StartTime: model.NewTimeOfDay(9, 0),
		EndTime:   model.NewTimeOfDay(17, 0),
	}
	repo.On("GetByDate", mock.Anything, date).Return(existing, nil)

	badStart := model.NewTimeOfDay(18, 0)
	_, err := svc.Update(context.Background(), date, &model.UpdateScheduleDayRequest{StartTime: &badStart})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrValidation))
	repo.AssertNotCalled(t, "Update")
}

func TestBulkGenerateWeek(t *testing.T) {
	repo := new(mockScheduleRepo)
	svc := newTestService(t, repo)

	req := &model.BulkGenerateRequest{
		// Monday through Sunday.
		StartDate: model.NewDate(2026, time.September, 7),
		EndDate:   model.NewDate(2026, time.September, 13),
		StartTime: model.NewTimeOfDay(9, 0),
		EndTime:   model.NewTimeOfDay(17, 0),
	}

	existingDate := model.NewDate(2026, time.September, 9)
	repo.On("ExistsForDate", mock.Anything, existingDate).Return(true, nil)
	repo.On("ExistsForDate", mock.Anything, mock.Anything).Return(false, nil)
	repo.On("Create", mock.Anything, mock.AnythingOfType("*model.ScheduleDay")).Return(nil)

	result, err := svc.BulkGenerate(context.Background(), req, nil)
	require.NoError(t, err)
	assert.Equal(t, 5, result.Created)
	assert.Equal(t, 1, result.SkippedClosed)
	assert.Equal(t, 1, result.SkippedExisting)
	repo.AssertNumberOfCalls(t, "Create", 5)
}

func TestBulkGenerateValidation(t *testing.T) {
	repo := new(mockScheduleRepo)
	svc := newTestService(t, repo)

	// Reversed range.
	_, err := svc.BulkGenerate(context.Background(), &model.BulkGenerateRequest{
		StartDate: model.NewDate(2026, time.September, 13),
		EndDate:   model.NewDate(2026, time.September, 7),
		StartTime: model.NewTimeOfDay(9, 0),
		EndTime:   model.NewTimeOfDay(17, 0),
	}, nil)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrValidation))

	// Range starting in the past.
	_, err = svc.BulkGenerate(context.Background(), &model.BulkGenerateRequest{
		StartDate: model.NewDate(2026, time.August, 24),
		EndDate:   model.NewDate(2026, time.September, 7),
		StartTime: model.NewTimeOfDay(9, 0),
		EndTime:   model.NewTimeOfDay(17, 0),
	}, nil)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrValidation))
}

func TestBulkGenerateRollsBackOnFailure(t *testing.T) {
	repo := new(mockScheduleRepo)
	svc := newTestService(t, repo)

	req := &model.BulkGenerateRequest{
		StartDate: model.NewDate(2026, time.September, 7),
		EndDate:   model.NewDate(2026, time.September, 8),
		StartTime: model.NewTimeOfDay(9, 0),
		EndTime:   model.NewTimeOfDay(17, 0),
	}

	repo.On("ExistsForDate", mock.Anything, mock.Anything).Return(false, nil)
	repo.On("Create", mock.Anything, mock.Anything).Return(assert.AnError)

	_, err := svc.BulkGenerate(context.Background(), req, nil)
	require.Error(t, err)
}

func TestDeleteFrom(t *testing.T) {
	repo := new(mockScheduleRepo)
	svc := newTestService(t, repo)

	from := model.NewDate(2026, time.September, 7)
	repo.On("DeleteFrom", mock.Anything, from).Return(int64(12), nil)

	deleted, err := svc.DeleteFrom(context.Background(), from)
	require.NoError(t, err)
	assert.Equal(t, int64(12), deleted)
}

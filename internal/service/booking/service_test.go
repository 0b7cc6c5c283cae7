package booking

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Aerzsu/render-dental-clinic-sub000/internal/model"
	"github.com/Aerzsu/render-dental-clinic-sub000/internal/service/approval"
	"github.com/Aerzsu/render-dental-clinic-sub000/internal/service/availability"
	"github.com/Aerzsu/render-dental-clinic-sub000/pkg/clock"
	"github.com/Aerzsu/render-dental-clinic-sub000/pkg/errors"
	"github.com/Aerzsu/render-dental-clinic-sub000/pkg/security"
)

type mockScheduleRepo struct {
	mock.Mock
}

func (m *mockScheduleRepo) Create(ctx context.Context, day *model.ScheduleDay) error {
	return m.Called(ctx, day).Error(0)
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
	return m.Called(ctx, day).Error(0)
}

func (m *mockScheduleRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockScheduleRepo) DeleteFrom(ctx context.Context, date model.Date) (int64, error) {
	args := m.Called(ctx, date)
	return args.Get(0).(int64), args.Error(1)
}

type mockAppointmentRepo struct {
	mock.Mock
}

func (m *mockAppointmentRepo) Create(ctx context.Context, appt *model.Appointment) error {
	args := m.Called(ctx, appt)
	if args.Error(0) == nil && appt.ID == uuid.Nil {
		appt.ID = uuid.New()
	}
	return args.Error(0)
}

func (m *mockAppointmentRepo) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Appointment), args.Error(1)
}

func (m *mockAppointmentRepo) Update(ctx context.Context, appt *model.Appointment) error {
	return m.Called(ctx, appt).Error(0)
}

func (m *mockAppointmentRepo) List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	args := m.Called(ctx, filters)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Appointment), args.Error(1)
}

func (m *mockAppointmentRepo) ListForDate(ctx context.Context, date model.Date, statuses []model.AppointmentStatus) ([]*model.Appointment, error) {
	args := m.Called(ctx, date, statuses)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Appointment), args.Error(1)
}

func (m *mockAppointmentRepo) FindBlockingForPatient(ctx context.Context, patientID uuid.UUID, date model.Date) (*model.Appointment, error) {
	args := m.Called(ctx, patientID, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Appointment), args.Error(1)
}

func (m *mockAppointmentRepo) HasCompletedVisit(ctx context.Context, patientID uuid.UUID) (bool, error) {
	args := m.Called(ctx, patientID)
	return args.Bool(0), args.Error(1)
}

func (m *mockAppointmentRepo) CountByStatusForDate(ctx context.Context, date model.Date) (map[model.AppointmentStatus]int, error) {
	args := m.Called(ctx, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[model.AppointmentStatus]int), args.Error(1)
}

type mockPatientRepo struct {
	mock.Mock
}

func (m *mockPatientRepo) Create(ctx context.Context, patient *model.Patient) error {
	args := m.Called(ctx, patient)
	if args.Error(0) == nil && patient.ID == uuid.Nil {
		patient.ID = uuid.New()
	}
	return args.Error(0)
}

func (m *mockPatientRepo) Get(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Patient), args.Error(1)
}

// recordingOutbox captures the event types emitted during a test.
type recordingOutbox struct {
	events []*model.OutboxEvent
}

func (o *recordingOutbox) Create(ctx context.Context, event *model.OutboxEvent) error {
	o.events = append(o.events, event)
	return nil
}

func (o *recordingOutbox) GetPendingEvents(ctx context.Context, limit int) ([]*model.OutboxEvent, error) {
	return nil, nil
}

func (o *recordingOutbox) MarkProcessed(ctx context.Context, id uuid.UUID) error { return nil }

func (o *recordingOutbox) MarkFailed(ctx context.Context, id uuid.UUID, errMsg string, retryAt *time.Time) error {
	return nil
}

func (o *recordingOutbox) types() []string {
	out := make([]string, 0, len(o.events))
	for _, e := range o.events {
		out = append(out, e.EventType)
	}
	return out
}

type passthroughTxManager struct{}

func (passthroughTxManager) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fixture struct {
	svc       *Service
	schedules *mockScheduleRepo
	appts     *mockAppointmentRepo
	patients  *mockPatientRepo
	outbox    *recordingOutbox
	tokens    security.TokenManager
}

// Tuesday, September 1st 2026, 10:00 clinic time.
func testNow(t *testing.T) time.Time {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Manila")
	require.NoError(t, err)
	return time.Date(2026, time.September, 1, 10, 0, 0, 0, loc)
}

func newFixture(t *testing.T, policy approval.Policy) *fixture {
	t.Helper()

	schedules := new(mockScheduleRepo)
	appts := new(mockAppointmentRepo)
	patients := new(mockPatientRepo)
	outbox := &recordingOutbox{}
	clk := clock.Fixed(testNow(t))
	tokens := security.NewTokenManager(4)

	availSvc := availability.NewService(schedules, appts, clk, nil)
	svc := NewService(
		appts, patients, outbox, passthroughTxManager{},
		availSvc, policy, tokens, clk,
		Config{NoticeHours: 24, CancellationWindowHours: 24},
		nil, zerolog.Nop(),
	)

	return &fixture{
		svc:       svc,
		schedules: schedules,
		appts:     appts,
		patients:  patients,
		outbox:    outbox,
		tokens:    tokens,
	}
}

func openDay(date model.Date) *model.ScheduleDay {
	return &model.ScheduleDay{
		Date:      date,
		StartTime: model.NewTimeOfDay(9, 0),
		EndTime:   model.NewTimeOfDay(17, 0),
	}
}

func contactRequest(date model.Date, start model.TimeOfDay, minutes int) *model.CreateAppointmentRequest {
	return &model.CreateAppointmentRequest{
		Date:            date,
		StartTime:       start,
		DurationMinutes: minutes,
		PatientType:     model.PatientTypeNew,
		Reason:          "tooth extraction",
		Contact: &model.TemporaryContact{
			FirstName: "Maria",
			LastName:  "Santos",
			Email:     "maria@example.com",
			Phone:     "+63-917-555-0101",
		},
	}
}

func TestCreateBooking(t *testing.T) {
	f := newFixture(t, approval.Never{})
	date := model.NewDate(2026, time.September, 3)

	f.schedules.On("GetByDate", mock.Anything, date).Return(openDay(date), nil)
	f.appts.On("ListForDate", mock.Anything, date, mock.Anything).Return([]*model.Appointment{}, nil)
	f.appts.On("Create", mock.Anything, mock.AnythingOfType("*model.Appointment")).Return(nil)

	appt, err := f.svc.Create(context.Background(), contactRequest(date, model.NewTimeOfDay(10, 0), 60))
	require.NoError(t, err)

	assert.Equal(t, model.AppointmentStatusPending, appt.Status)
	assert.Equal(t, model.NewTimeOfDay(11, 0), appt.EndTime())
	assert.Nil(t, appt.PatientID)
	assert.Equal(t, "Maria", appt.TempFirst)
	assert.Equal(t, []string{model.EventBookingCreated}, f.outbox.types())
}

func TestCreateBookingSlotConflict(t *testing.T) {
	f := newFixture(t, approval.Never{})
	date := model.NewDate(2026, time.September, 3)

	held := &model.Appointment{
		Date:            date,
		StartTime:       model.NewTimeOfDay(10, 0),
		DurationMinutes: 60,
		Status:          model.AppointmentStatusPending,
	}
	held.ID = uuid.New()

	f.schedules.On("GetByDate", mock.Anything, date).Return(openDay(date), nil)
	f.appts.On("ListForDate", mock.Anything, date, mock.Anything).Return([]*model.Appointment{held}, nil)

	_, err := f.svc.Create(context.Background(), contactRequest(date, model.NewTimeOfDay(10, 30), 30))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrSlotConflict))
	assert.Contains(t, err.Error(), "10:00 AM")
	f.appts.AssertNotCalled(t, "Create")
	assert.Empty(t, f.outbox.events)
}

func TestCreateBookingUnconfiguredDate(t *testing.T) {
	f := newFixture(t, approval.Never{})
	date := model.NewDate(2026, time.September, 3)

	f.schedules.On("GetByDate", mock.Anything, date).Return(nil, errors.NotFound("schedule day", nil))

	_, err := f.svc.Create(context.Background(), contactRequest(date, model.NewTimeOfDay(10, 0), 30))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrNoConfig))
	assert.Contains(t, err.Error(), "no timeslots configured for September 03, 2026")
}

func TestCreateBookingClosedWeekday(t *testing.T) {
	f := newFixture(t, approval.Never{})
	sunday := model.NewDate(2026, time.September, 6)

	_, err := f.svc.Create(context.Background(), contactRequest(sunday, model.NewTimeOfDay(10, 0), 30))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrValidation))
	assert.Contains(t, err.Error(), "closed on Sundays")
	f.schedules.AssertNotCalled(t, "GetByDate")
}

func TestCreateBookingNotice(t *testing.T) {
	f := newFixture(t, approval.Never{})

	// 20 hours ahead: tomorrow 06:00.
	tomorrow := model.NewDate(2026, time.September, 2)
	_, err := f.svc.Create(context.Background(), contactRequest(tomorrow, model.NewTimeOfDay(6, 0), 30))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrValidation))

	// 28 hours ahead: tomorrow 14:00 clears the 24 hour minimum.
	f.schedules.On("GetByDate", mock.Anything, tomorrow).Return(openDay(tomorrow), nil)
	f.appts.On("ListForDate", mock.Anything, tomorrow, mock.Anything).Return([]*model.Appointment{}, nil)
	f.appts.On("Create", mock.Anything, mock.Anything).Return(nil)

	_, err = f.svc.Create(context.Background(), contactRequest(tomorrow, model.NewTimeOfDay(14, 0), 30))
	require.NoError(t, err)
}

func TestCreateBookingPastDate(t *testing.T) {
	f := newFixture(t, approval.Never{})

	_, err := f.svc.Create(context.Background(),
		contactRequest(model.NewDate(2026, time.August, 31), model.NewTimeOfDay(10, 0), 30))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrValidation))
}

func TestCreateBookingIdentityExclusive(t *testing.T) {
	f := newFixture(t, approval.Never{})
	date := model.NewDate(2026, time.September, 3)

	req := contactRequest(date, model.NewTimeOfDay(10, 0), 30)
	patientID := uuid.New()
	req.PatientID = &patientID

	_, err := f.svc.Create(context.Background(), req)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrValidation))

	req.PatientID = nil
	req.Contact = nil
	_, err = f.svc.Create(context.Background(), req)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrValidation))
}

func TestCreateBookingDoubleBooking(t *testing.T) {
	f := newFixture(t, approval.Never{})
	date := model.NewDate(2026, time.September, 3)
	patientID := uuid.New()

	f.schedules.On("GetByDate", mock.Anything, date).Return(openDay(date), nil)
	f.appts.On("ListForDate", mock.Anything, date, mock.Anything).Return([]*model.Appointment{}, nil)
	patient := &model.Patient{FirstName: "Jose", LastName: "Rizal", Email: "jose@example.com"}
	patient.ID = patientID
	f.patients.On("Get", mock.Anything, patientID).Return(patient, nil)

	existing := &model.Appointment{Date: date, StartTime: model.NewTimeOfDay(14, 0), DurationMinutes: 30, Status: model.AppointmentStatusConfirmed}
	f.appts.On("FindBlockingForPatient", mock.Anything, patientID, date).Return(existing, nil)

	req := &model.CreateAppointmentRequest{
		Date:            date,
		StartTime:       model.NewTimeOfDay(10, 0),
		DurationMinutes: 30,
		PatientType:     model.PatientTypeReturning,
		PatientID:       &patientID,
	}
	_, err := f.svc.Create(context.Background(), req)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrDoubleBooking))
	f.appts.AssertNotCalled(t, "Create")
}

func TestCreateBookingAutoApproved(t *testing.T) {
	appts := new(mockAppointmentRepo)
	policy := approval.NewPolicy(approval.Config{Enabled: true}, appts)

	f := newFixture(t, policy)
	date := model.NewDate(2026, time.September, 3)

	f.schedules.On("GetByDate", mock.Anything, date).Return(openDay(date), nil)
	f.appts.On("ListForDate", mock.Anything, date, mock.Anything).Return([]*model.Appointment{}, nil)
	f.appts.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.appts.On("Update", mock.Anything, mock.Anything).Return(nil)
	f.patients.On("Create", mock.Anything, mock.AnythingOfType("*model.Patient")).Return(nil)

	appt, err := f.svc.Create(context.Background(), contactRequest(date, model.NewTimeOfDay(10, 0), 60))
	require.NoError(t, err)

	assert.Equal(t, model.AppointmentStatusConfirmed, appt.Status)
	require.NotNil(t, appt.PatientID)
	assert.Equal(t, "Maria Santos", appt.PatientName)
	assert.Empty(t, appt.TempEmail)
	assert.NotEmpty(t, appt.RescheduleTokenHash)
	assert.NotNil(t, appt.ConfirmedAt)
	assert.Equal(t, []string{model.EventBookingCreated, model.EventBookingConfirmed}, f.outbox.types())
}

func TestCreateBookingAutoApproveRevalidatesSlot(t *testing.T) {
	policy := approval.NewPolicy(approval.Config{Enabled: true}, new(mockAppointmentRepo))

	f := newFixture(t, policy)
	date := model.NewDate(2026, time.September, 3)

	// The slot is free when the request is checked, but a competing booking
	// is confirmed before the automatic promotion runs.
	winner := &model.Appointment{
		Date:            date,
		StartTime:       model.NewTimeOfDay(10, 0),
		DurationMinutes: 60,
		Status:          model.AppointmentStatusConfirmed,
	}
	winner.ID = uuid.New()

	f.schedules.On("GetByDate", mock.Anything, date).Return(openDay(date), nil)
	f.appts.On("ListForDate", mock.Anything, date, mock.Anything).Return([]*model.Appointment{}, nil).Once()
	f.appts.On("ListForDate", mock.Anything, date, mock.Anything).Return([]*model.Appointment{winner}, nil)
	f.appts.On("Create", mock.Anything, mock.Anything).Return(nil)

	_, err := f.svc.Create(context.Background(), contactRequest(date, model.NewTimeOfDay(10, 0), 60))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrSlotConflict))
	f.appts.AssertNotCalled(t, "Update")
	f.patients.AssertNotCalled(t, "Create")
}

func pendingAppointment(date model.Date, start model.TimeOfDay, minutes int) *model.Appointment {
	a := &model.Appointment{
		Date:            date,
		StartTime:       start,
		DurationMinutes: minutes,
		Status:          model.AppointmentStatusPending,
		PatientType:     model.PatientTypeNew,
		TempFirst:       "Maria",
		TempLast:        "Santos",
		TempEmail:       "maria@example.com",
	}
	a.ID = uuid.New()
	return a
}

func TestApprove(t *testing.T) {
	f := newFixture(t, approval.Never{})
	date := model.NewDate(2026, time.September, 3)
	appt := pendingAppointment(date, model.NewTimeOfDay(10, 0), 60)
	staffID := uuid.New()
	dentistID := uuid.New()

	f.appts.On("Get", mock.Anything, appt.ID).Return(appt, nil)
	f.schedules.On("GetByDate", mock.Anything, date).Return(openDay(date), nil)
	f.appts.On("ListForDate", mock.Anything, date, mock.Anything).Return([]*model.Appointment{appt}, nil)
	f.appts.On("Update", mock.Anything, appt).Return(nil)
	f.patients.On("Create", mock.Anything, mock.AnythingOfType("*model.Patient")).Return(nil)

	approved, err := f.svc.Approve(context.Background(), appt.ID, staffID, &model.ApproveAppointmentRequest{
		DentistID: &dentistID,
	})
	require.NoError(t, err)

	assert.Equal(t, model.AppointmentStatusConfirmed, approved.Status)
	assert.Equal(t, &staffID, approved.DecidedBy)
	assert.Equal(t, &dentistID, approved.DentistID)
	require.NotNil(t, approved.PatientID)
	assert.Equal(t, "Maria Santos", approved.PatientName)
	assert.Empty(t, approved.TempFirst)
	assert.NotEmpty(t, approved.RescheduleTokenHash)

	// The confirmation event carries the raw token and the contact email
	// captured before promotion; the raw token verifies against the hash.
	require.Equal(t, []string{model.EventBookingConfirmed}, f.outbox.types())
	var event model.BookingEvent
	require.NoError(t, json.Unmarshal(f.outbox.events[0].Payload, &event))
	assert.Equal(t, "maria@example.com", event.ContactEmail)
	require.NotEmpty(t, event.RescheduleToken)
	assert.NoError(t, f.tokens.Compare(approved.RescheduleTokenHash, event.RescheduleToken))
}

func TestApproveRevalidatesSlot(t *testing.T) {
	f := newFixture(t, approval.Never{})
	date := model.NewDate(2026, time.September, 3)
	appt := pendingAppointment(date, model.NewTimeOfDay(10, 0), 60)

	// A competing booking was confirmed after this one was requested.
	winner := &model.Appointment{
		Date:            date,
		StartTime:       model.NewTimeOfDay(10, 30),
		DurationMinutes: 30,
		Status:          model.AppointmentStatusConfirmed,
	}
	winner.ID = uuid.New()

	f.appts.On("Get", mock.Anything, appt.ID).Return(appt, nil)
	f.schedules.On("GetByDate", mock.Anything, date).Return(openDay(date), nil)
	f.appts.On("ListForDate", mock.Anything, date, mock.Anything).Return([]*model.Appointment{appt, winner}, nil)

	_, err := f.svc.Approve(context.Background(), appt.ID, uuid.New(), nil)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrSlotConflict))
	f.appts.AssertNotCalled(t, "Update")
}

func TestApproveRequiresPending(t *testing.T) {
	f := newFixture(t, approval.Never{})
	date := model.NewDate(2026, time.September, 3)
	appt := pendingAppointment(date, model.NewTimeOfDay(10, 0), 30)
	appt.Status = model.AppointmentStatusConfirmed

	f.appts.On("Get", mock.Anything, appt.ID).Return(appt, nil)

	_, err := f.svc.Approve(context.Background(), appt.ID, uuid.New(), nil)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrInvalidTransition))
}

func TestReject(t *testing.T) {
	f := newFixture(t, approval.Never{})
	date := model.NewDate(2026, time.September, 3)
	appt := pendingAppointment(date, model.NewTimeOfDay(10, 0), 30)

	f.appts.On("Get", mock.Anything, appt.ID).Return(appt, nil)
	f.appts.On("Update", mock.Anything, appt).Return(nil)

	staffID := uuid.New()
	rejected, err := f.svc.Reject(context.Background(), appt.ID, staffID, &model.RejectAppointmentRequest{
		StaffNotes: "fully booked that week",
	})
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusRejected, rejected.Status)
	assert.Equal(t, "fully booked that week", rejected.StaffNotes)
	assert.Equal(t, &staffID, rejected.DecidedBy)
	assert.Nil(t, rejected.ConfirmedAt)
	assert.Equal(t, []string{model.EventBookingRejected}, f.outbox.types())
}

func confirmedAppointment(date model.Date, start model.TimeOfDay) *model.Appointment {
	a := pendingAppointment(date, start, 30)
	a.Status = model.AppointmentStatusConfirmed
	return a
}

func TestCancelWindow(t *testing.T) {
	f := newFixture(t, approval.Never{})

	// Tomorrow 06:00 is only 20 hours out: inside the protected window.
	near := confirmedAppointment(model.NewDate(2026, time.September, 2), model.NewTimeOfDay(6, 0))
	f.appts.On("Get", mock.Anything, near.ID).Return(near, nil)

	_, err := f.svc.Cancel(context.Background(), near.ID)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCancellationWindow))
	assert.Equal(t, model.AppointmentStatusConfirmed, near.Status)

	// Two days out is fine.
	far := confirmedAppointment(model.NewDate(2026, time.September, 3), model.NewTimeOfDay(10, 0))
	f.appts.On("Get", mock.Anything, far.ID).Return(far, nil)
	f.appts.On("Update", mock.Anything, far).Return(nil)

	cancelled, err := f.svc.Cancel(context.Background(), far.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusCancelled, cancelled.Status)
	assert.Equal(t, []string{model.EventBookingCancelled}, f.outbox.types())
}

func TestCancelRequiresConfirmed(t *testing.T) {
	f := newFixture(t, approval.Never{})
	appt := pendingAppointment(model.NewDate(2026, time.September, 3), model.NewTimeOfDay(10, 0), 30)

	f.appts.On("Get", mock.Anything, appt.ID).Return(appt, nil)

	_, err := f.svc.Cancel(context.Background(), appt.ID)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrInvalidTransition))
}

func TestTokenCancel(t *testing.T) {
	f := newFixture(t, approval.Never{})
	appt := confirmedAppointment(model.NewDate(2026, time.September, 3), model.NewTimeOfDay(10, 0))

	raw, hash, err := f.tokens.Generate()
	require.NoError(t, err)
	appt.RescheduleTokenHash = hash

	f.appts.On("Get", mock.Anything, appt.ID).Return(appt, nil)
	f.appts.On("Update", mock.Anything, appt).Return(nil)

	_, err = f.svc.TokenCancel(context.Background(), appt.ID, "not-the-token")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrUnauthorized))

	cancelled, err := f.svc.TokenCancel(context.Background(), appt.ID, raw)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusCancelled, cancelled.Status)
}

func TestComplete(t *testing.T) {
	f := newFixture(t, approval.Never{})

	today := confirmedAppointment(model.NewDate(2026, time.September, 1), model.NewTimeOfDay(9, 0))
	f.appts.On("Get", mock.Anything, today.ID).Return(today, nil)
	f.appts.On("Update", mock.Anything, today).Return(nil)

	done, err := f.svc.Complete(context.Background(), today.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusCompleted, done.Status)

	// A future visit cannot be marked as having happened.
	future := confirmedAppointment(model.NewDate(2026, time.September, 3), model.NewTimeOfDay(10, 0))
	f.appts.On("Get", mock.Anything, future.ID).Return(future, nil)

	_, err = f.svc.Complete(context.Background(), future.ID)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrFutureDate))
}

func TestMarkDidNotArrive(t *testing.T) {
	f := newFixture(t, approval.Never{})

	future := confirmedAppointment(model.NewDate(2026, time.September, 3), model.NewTimeOfDay(10, 0))
	f.appts.On("Get", mock.Anything, future.ID).Return(future, nil)

	_, err := f.svc.MarkDidNotArrive(context.Background(), future.ID)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrFutureDate))

	past := confirmedAppointment(model.NewDate(2026, time.September, 1), model.NewTimeOfDay(9, 0))
	f.appts.On("Get", mock.Anything, past.ID).Return(past, nil)
	f.appts.On("Update", mock.Anything, past).Return(nil)

	marked, err := f.svc.MarkDidNotArrive(context.Background(), past.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusDidNotArrive, marked.Status)
}

func TestTerminalStatesAreFinal(t *testing.T) {
	f := newFixture(t, approval.Never{})
	date := model.NewDate(2026, time.September, 3)

	for _, status := range []model.AppointmentStatus{
		model.AppointmentStatusRejected,
		model.AppointmentStatusCancelled,
		model.AppointmentStatusCompleted,
		model.AppointmentStatusDidNotArrive,
	} {
		appt := pendingAppointment(date, model.NewTimeOfDay(10, 0), 30)
		appt.Status = status
		f.appts.On("Get", mock.Anything, appt.ID).Return(appt, nil)

		_, err := f.svc.Cancel(context.Background(), appt.ID)
		require.Error(t, err, "cancel from %s", status)
		assert.True(t, errors.IsCode(err, errors.ErrInvalidTransition))

		_, err = f.svc.Approve(context.Background(), appt.ID, uuid.New(), nil)
		require.Error(t, err, "approve from %s", status)
		assert.True(t, errors.IsCode(err, errors.ErrInvalidTransition))
	}
}

func TestReschedule(t *testing.T) {
	f := newFixture(t, approval.Never{})
	date := model.NewDate(2026, time.September, 3)
	newDate := model.NewDate(2026, time.September, 4)
	appt := confirmedAppointment(date, model.NewTimeOfDay(10, 0))

	f.appts.On("Get", mock.Anything, appt.ID).Return(appt, nil)
	f.schedules.On("GetByDate", mock.Anything, newDate).Return(openDay(newDate), nil)
	f.appts.On("ListForDate", mock.Anything, newDate, mock.Anything).Return([]*model.Appointment{}, nil)
	f.appts.On("Update", mock.Anything, appt).Return(nil)

	moved, err := f.svc.Reschedule(context.Background(), appt.ID, &model.RescheduleAppointmentRequest{
		Date:      newDate,
		StartTime: model.NewTimeOfDay(14, 0),
	})
	require.NoError(t, err)
	assert.Equal(t, newDate, moved.Date)
	assert.Equal(t, model.NewTimeOfDay(14, 0), moved.StartTime)
	assert.Equal(t, model.AppointmentStatusConfirmed, moved.Status)
}

func TestRescheduleSameSlotExcludesSelf(t *testing.T) {
	f := newFixture(t, approval.Never{})
	date := model.NewDate(2026, time.September, 3)
	appt := confirmedAppointment(date, model.NewTimeOfDay(10, 0))

	f.appts.On("Get", mock.Anything, appt.ID).Return(appt, nil)
	f.schedules.On("GetByDate", mock.Anything, date).Return(openDay(date), nil)
	f.appts.On("ListForDate", mock.Anything, date, mock.Anything).Return([]*model.Appointment{appt}, nil)
	f.appts.On("Update", mock.Anything, appt).Return(nil)

	// Moving within its own footprint must not conflict with itself.
	moved, err := f.svc.Reschedule(context.Background(), appt.ID, &model.RescheduleAppointmentRequest{
		Date:      date,
		StartTime: model.NewTimeOfDay(10, 0),
	})
	require.NoError(t, err)
	assert.Equal(t, model.NewTimeOfDay(10, 0), moved.StartTime)
}

func TestRescheduleTerminalState(t *testing.T) {
	f := newFixture(t, approval.Never{})
	appt := pendingAppointment(model.NewDate(2026, time.September, 3), model.NewTimeOfDay(10, 0), 30)
	appt.Status = model.AppointmentStatusCompleted

	f.appts.On("Get", mock.Anything, appt.ID).Return(appt, nil)

	_, err := f.svc.Reschedule(context.Background(), appt.ID, &model.RescheduleAppointmentRequest{
		Date:      model.NewDate(2026, time.September, 4),
		StartTime: model.NewTimeOfDay(10, 0),
	})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrValidation))
}

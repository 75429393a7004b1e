package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/wecare-health/wecare/internal/appointment"
	"github.com/wecare-health/wecare/internal/auth"
	"github.com/wecare-health/wecare/internal/directory"
	"github.com/wecare-health/wecare/internal/identity"
	"github.com/wecare-health/wecare/internal/metrics"
	"github.com/wecare-health/wecare/internal/validation"
)

// MockAppointments is a mock implementation of AppointmentService
type MockAppointments struct {
	mock.Mock
}

func (m *MockAppointments) CreateAppointment(ctx context.Context, actor identity.Actor, in appointment.CreateInput) (*appointment.Appointment, error) {
	args := m.Called(ctx, actor, in)
	a, _ := args.Get(0).(*appointment.Appointment)
	return a, args.Error(1)
}

func (m *MockAppointments) GetAppointment(ctx context.Context, actor identity.Actor, id uuid.UUID) (*appointment.Appointment, error) {
	args := m.Called(ctx, actor, id)
	a, _ := args.Get(0).(*appointment.Appointment)
	return a, args.Error(1)
}

func (m *MockAppointments) ListForPatient(ctx context.Context, actor identity.Actor, patientID uuid.UUID) ([]appointment.Appointment, error) {
	args := m.Called(ctx, actor, patientID)
	a, _ := args.Get(0).([]appointment.Appointment)
	return a, args.Error(1)
}

func (m *MockAppointments) ListForNurse(ctx context.Context, actor identity.Actor, status *appointment.Status) ([]appointment.Appointment, error) {
	args := m.Called(ctx, actor, status)
	a, _ := args.Get(0).([]appointment.Appointment)
	return a, args.Error(1)
}

func (m *MockAppointments) Transition(ctx context.Context, actor identity.Actor, id uuid.UUID, action appointment.Action) (*appointment.Appointment, error) {
	args := m.Called(ctx, actor, id, action)
	a, _ := args.Get(0).(*appointment.Appointment)
	return a, args.Error(1)
}

func (m *MockAppointments) Rate(ctx context.Context, actor identity.Actor, id uuid.UUID, rating int, feedback string) (*appointment.Appointment, error) {
	args := m.Called(ctx, actor, id, rating, feedback)
	a, _ := args.Get(0).(*appointment.Appointment)
	return a, args.Error(1)
}

func (m *MockAppointments) ServicePrices() map[appointment.ServiceType]int {
	return appointment.ServicePrices()
}

// MockIdentity is a mock implementation of IdentityService
type MockIdentity struct {
	mock.Mock
}

func (m *MockIdentity) Signup(ctx context.Context, in identity.SignupInput) (*identity.Account, error) {
	args := m.Called(ctx, in)
	a, _ := args.Get(0).(*identity.Account)
	return a, args.Error(1)
}

func (m *MockIdentity) Authenticate(ctx context.Context, email, password string) (*identity.Account, error) {
	args := m.Called(ctx, email, password)
	a, _ := args.Get(0).(*identity.Account)
	return a, args.Error(1)
}

func (m *MockIdentity) GetAccount(ctx context.Context, id uuid.UUID) (*identity.Account, error) {
	args := m.Called(ctx, id)
	a, _ := args.Get(0).(*identity.Account)
	return a, args.Error(1)
}

func (m *MockIdentity) UpdateProfile(ctx context.Context, actor identity.Actor, accountID uuid.UUID, upd identity.ProfileUpdate) (*identity.Account, error) {
	args := m.Called(ctx, actor, accountID, upd)
	a, _ := args.Get(0).(*identity.Account)
	return a, args.Error(1)
}

// MockDirectory is a mock implementation of DirectoryService
type MockDirectory struct {
	mock.Mock
}

func (m *MockDirectory) ListActive(ctx context.Context) ([]directory.Listing, error) {
	args := m.Called(ctx)
	l, _ := args.Get(0).([]directory.Listing)
	return l, args.Error(1)
}

func (m *MockDirectory) GetListing(ctx context.Context, id uuid.UUID) (*directory.Listing, error) {
	args := m.Called(ctx, id)
	l, _ := args.Get(0).(*directory.Listing)
	return l, args.Error(1)
}

func (m *MockDirectory) GetListingByAccount(ctx context.Context, accountID uuid.UUID) (*directory.Listing, error) {
	args := m.Called(ctx, accountID)
	l, _ := args.Get(0).(*directory.Listing)
	return l, args.Error(1)
}

func (m *MockDirectory) UpdateDetails(ctx context.Context, actor identity.Actor, upd directory.ListingUpdate) (*directory.Listing, error) {
	args := m.Called(ctx, actor, upd)
	l, _ := args.Get(0).(*directory.Listing)
	return l, args.Error(1)
}

type testServer struct {
	handler      http.Handler
	appointments *MockAppointments
	identity     *MockIdentity
	directory    *MockDirectory
	sessions     *auth.Sessions
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	ts := &testServer{
		appointments: &MockAppointments{},
		identity:     &MockIdentity{},
		directory:    &MockDirectory{},
		sessions:     auth.NewSessions("router-test-secret", time.Hour, "wecare_session", false),
	}

	up := PingFunc(func(context.Context) error { return nil })
	ts.handler = NewRouter(RouterConfig{
		Appointments: ts.appointments,
		Identity:     ts.identity,
		Directory:    ts.directory,
		Sessions:     ts.sessions,
		Health:       NewHealthHandler(up, up, "test", "v0"),
		Metrics:      metrics.New(),
		Logger:       zerolog.Nop(),
	})
	return ts
}

func (ts *testServer) login(t *testing.T, role identity.Role) identity.Actor {
	t.Helper()
	return identity.Actor{ID: uuid.New(), Role: role}
}

func (ts *testServer) do(t *testing.T, method, path string, actor *identity.Actor, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if actor != nil {
		token, _, err := ts.sessions.Issue(&identity.Account{ID: actor.ID, Role: actor.Role})
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)

	var out map[string]any
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

func sampleAppointment(userID uuid.UUID, status appointment.Status) *appointment.Appointment {
	date, _ := appointment.ParseDate("2025-03-14")
	return &appointment.Appointment{
		ID:              uuid.New(),
		UserID:          userID,
		NurseSnapshot:   appointment.NurseSnapshot{NurseID: uuid.New(), NurseName: "Meera Nair"},
		ServiceType:     appointment.ServiceConsultation,
		ServicePrice:    500,
		AppointmentDate: date,
		AppointmentTime: "10:00 AM",
		Status:          status,
	}
}

func TestCreateAppointment(t *testing.T) {
	ts := newTestServer(t)
	patient := ts.login(t, identity.RolePatient)
	nurseID := uuid.New()

	appt := sampleAppointment(patient.ID, appointment.StatusPending)
	ts.appointments.On("CreateAppointment", mock.Anything, patient, mock.MatchedBy(func(in appointment.CreateInput) bool {
		return in.NurseID == nurseID && in.ServiceType == appointment.ServiceConsultation && *in.ServicePrice == 500
	})).Return(appt, nil)

	for _, path := range []string{"/api/appointments", "/book-appointment"} {
		rec, body := ts.do(t, http.MethodPost, path, &patient, map[string]any{
			"nurseId":         nurseID.String(),
			"nurseName":       "ignored",
			"serviceType":     "Consultation",
			"servicePrice":    500,
			"appointmentDate": "2025-03-14",
			"appointmentTime": "10:00 AM",
			"paymentMethod":   "upi",
		})

		assert.Equal(t, http.StatusCreated, rec.Code, path)
		assert.Equal(t, true, body["ok"])
		created := body["appointment"].(map[string]any)
		assert.Equal(t, "pending", created["status"])
		assert.Equal(t, "2025-03-14", created["appointmentDate"])
	}
	ts.appointments.AssertNumberOfCalls(t, "CreateAppointment", 2)
}

func TestCreateAppointment_Auth(t *testing.T) {
	ts := newTestServer(t)
	nurse := ts.login(t, identity.RoleNurse)

	rec, body := ts.do(t, http.MethodPost, "/api/appointments", nil, map[string]any{})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, false, body["ok"])
	assert.Equal(t, "unauthenticated", body["error"])

	rec, body = ts.do(t, http.MethodPost, "/api/appointments", &nurse, map[string]any{})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "forbidden", body["error"])

	ts.appointments.AssertNotCalled(t, "CreateAppointment", mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateAppointment_ValidationDetails(t *testing.T) {
	ts := newTestServer(t)
	patient := ts.login(t, identity.RolePatient)

	verr := validation.New()
	verr.Add("appointmentTime", "is required")
	ts.appointments.On("CreateAppointment", mock.Anything, patient, mock.Anything).Return(nil, verr)

	rec, body := ts.do(t, http.MethodPost, "/api/appointments", &patient, map[string]any{"nurseId": uuid.NewString()})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation_failed", body["error"])
	assert.Equal(t, map[string]any{"appointmentTime": "is required"}, body["details"])
}

func TestCreateAppointment_MalformedNurseID(t *testing.T) {
	ts := newTestServer(t)
	patient := ts.login(t, identity.RolePatient)

	rec, body := ts.do(t, http.MethodPost, "/api/appointments", &patient, map[string]any{"nurseId": "not-a-uuid"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation_failed", body["error"])
	assert.Equal(t, map[string]any{"nurseId": "must be a valid id"}, body["details"])

	ts.appointments.AssertNotCalled(t, "CreateAppointment", mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateAppointment_BadJSON(t *testing.T) {
	ts := newTestServer(t)
	patient := ts.login(t, identity.RolePatient)

	token, _, err := ts.sessions.Issue(&identity.Account{ID: patient.ID, Role: patient.Role})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/appointments", strings.NewReader("{nope"))
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid_request_body")
}

func TestAccept_InvalidStateCarriesCurrentStatus(t *testing.T) {
	ts := newTestServer(t)
	nurse := ts.login(t, identity.RoleNurse)
	id := uuid.New()

	ts.appointments.On("Transition", mock.Anything, nurse, id, appointment.ActionAccept).
		Return(nil, &appointment.InvalidStateError{Action: appointment.ActionAccept, Current: appointment.StatusCancelled})

	rec, body := ts.do(t, http.MethodPost, "/api/nurse/appointments/"+id.String()+"/accept", &nurse, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "invalid_state", body["error"])
	details := body["details"].(map[string]any)
	assert.Equal(t, "cancelled", details["currentStatus"])
	assert.Equal(t, "accept", details["action"])
}

func TestTransitions_RouteToActions(t *testing.T) {
	ts := newTestServer(t)
	patient := ts.login(t, identity.RolePatient)
	nurse := ts.login(t, identity.RoleNurse)
	admin := ts.login(t, identity.RoleAdmin)
	id := uuid.New()

	tests := []struct {
		name   string
		path   string
		actor  identity.Actor
		action appointment.Action
		status appointment.Status
	}{
		{"decline", "/api/nurse/appointments/%s/decline", nurse, appointment.ActionDecline, appointment.StatusCancelled},
		{"cancel", "/api/appointments/%s/cancel", patient, appointment.ActionCancel, appointment.StatusCancelled},
		{"cancel alias", "/cancel-appointment/%s", patient, appointment.ActionCancel, appointment.StatusCancelled},
		{"complete", "/api/admin/appointments/%s/complete", admin, appointment.ActionComplete, appointment.StatusCompleted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts.appointments.On("Transition", mock.Anything, tt.actor, id, tt.action).
				Return(sampleAppointment(patient.ID, tt.status), nil).Once()

			actor := tt.actor
			rec, body := ts.do(t, http.MethodPost, strings.Replace(tt.path, "%s", id.String(), 1), &actor, nil)
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, string(tt.status), body["appointment"].(map[string]any)["status"])
		})
	}

	// completion is admin only
	rec, _ := ts.do(t, http.MethodPost, "/api/admin/appointments/"+id.String()+"/complete", &nurse, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCancel_OtherPatientGetsGenericForbidden(t *testing.T) {
	ts := newTestServer(t)
	patient := ts.login(t, identity.RolePatient)
	id := uuid.New()

	ts.appointments.On("Transition", mock.Anything, patient, id, appointment.ActionCancel).Return(nil, appointment.ErrUnauthorized)

	rec, body := ts.do(t, http.MethodPost, "/api/appointments/"+id.String()+"/cancel", &patient, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "you are not allowed to do that", body["message"])
}

func TestRateAppointment(t *testing.T) {
	ts := newTestServer(t)
	patient := ts.login(t, identity.RolePatient)
	id := uuid.New()

	rated := sampleAppointment(patient.ID, appointment.StatusCompleted)
	four := 4
	rated.Rating = &four
	ts.appointments.On("Rate", mock.Anything, patient, id, 4, "Great care").Return(rated, nil)

	rec, body := ts.do(t, http.MethodPost, "/api/appointments/"+id.String()+"/rate", &patient, RateAppointmentRequest{Rating: 4, Feedback: "Great care"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(4), body["appointment"].(map[string]any)["rating"])
}

func TestRateAppointment_Errors(t *testing.T) {
	ts := newTestServer(t)
	patient := ts.login(t, identity.RolePatient)

	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"already rated", appointment.ErrAlreadyRated, http.StatusConflict, "already_rated"},
		{"busy", appointment.ErrRatingBusy, http.StatusConflict, "rating_in_progress"},
		{"not found", appointment.ErrAppointmentNotFound, http.StatusNotFound, "appointment_not_found"},
		{"storage", errors.New("tx aborted"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id := uuid.New()
			ts.appointments.On("Rate", mock.Anything, patient, id, 5, "").Return(nil, tt.err)

			rec, body := ts.do(t, http.MethodPost, "/api/appointments/"+id.String()+"/rate", &patient, RateAppointmentRequest{Rating: 5})
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.code, body["error"])
		})
	}
}

func TestListNurseAppointments_StatusFilter(t *testing.T) {
	ts := newTestServer(t)
	nurse := ts.login(t, identity.RoleNurse)

	ts.appointments.On("ListForNurse", mock.Anything, nurse, mock.MatchedBy(func(s *appointment.Status) bool {
		return s != nil && *s == appointment.StatusPending
	})).Return([]appointment.Appointment{*sampleAppointment(uuid.New(), appointment.StatusPending)}, nil)
	ts.appointments.On("ListForNurse", mock.Anything, nurse, (*appointment.Status)(nil)).Return(nil, nil)

	rec, body := ts.do(t, http.MethodGet, "/api/nurse/appointments", &nurse, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["appointments"], 1)

	rec, body = ts.do(t, http.MethodGet, "/api/nurse/appointments?status=all", &nurse, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []any{}, body["appointments"])

	rec, _ = ts.do(t, http.MethodGet, "/api/nurse/appointments?status=expired", &nurse, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListMyAppointments(t *testing.T) {
	ts := newTestServer(t)
	patient := ts.login(t, identity.RolePatient)

	ts.appointments.On("ListForPatient", mock.Anything, patient, patient.ID).Return([]appointment.Appointment{
		*sampleAppointment(patient.ID, appointment.StatusConfirmed),
		*sampleAppointment(patient.ID, appointment.StatusPending),
	}, nil)

	rec, body := ts.do(t, http.MethodGet, "/api/appointments", &patient, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["ok"])
	assert.Len(t, body["appointments"], 2)
}

func TestSignupSetsSessionCookie(t *testing.T) {
	ts := newTestServer(t)

	acct := &identity.Account{ID: uuid.New(), Email: "meera@wecare.test", Role: identity.RoleNurse, Name: "Meera"}
	ts.identity.On("Signup", mock.Anything, identity.SignupInput{
		Email: "meera@wecare.test", Password: "secret1", Name: "Meera", Role: identity.RoleNurse,
	}).Return(acct, nil)

	rec, body := ts.do(t, http.MethodPost, "/api/signup", nil, SignupRequest{
		Email: "meera@wecare.test", Password: "secret1", Name: "Meera", Role: identity.RoleNurse,
	})
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.NotEmpty(t, body["token"])
	assert.NotContains(t, body["account"].(map[string]any), "PasswordHash")

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	actor, err := ts.sessions.Parse(cookies[0].Value)
	require.NoError(t, err)
	assert.Equal(t, acct.ID, actor.ID)
}

func TestLogin_Errors(t *testing.T) {
	ts := newTestServer(t)

	ts.identity.On("Authenticate", mock.Anything, "x@wecare.test", "bad").Return(nil, identity.ErrInvalidCredentials)

	rec, body := ts.do(t, http.MethodPost, "/api/login", nil, LoginRequest{Email: "x@wecare.test", Password: "bad"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid_credentials", body["error"])
	assert.Empty(t, rec.Result().Cookies())
}

func TestMe_IncludesNurseListing(t *testing.T) {
	ts := newTestServer(t)
	nurse := ts.login(t, identity.RoleNurse)

	ts.identity.On("GetAccount", mock.Anything, nurse.ID).Return(&identity.Account{ID: nurse.ID, Role: identity.RoleNurse, Name: "Meera"}, nil)
	ts.directory.On("GetListingByAccount", mock.Anything, nurse.ID).Return(&directory.Listing{ID: uuid.New(), AccountID: nurse.ID, Rating: 4.5}, nil)

	rec, body := ts.do(t, http.MethodGet, "/api/me", &nurse, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 4.5, body["listing"].(map[string]any)["rating"])
}

func TestNurseDirectory(t *testing.T) {
	ts := newTestServer(t)
	listing := directory.Listing{ID: uuid.New(), Name: "Meera", Rating: 4.5, IsActive: true}

	ts.directory.On("ListActive", mock.Anything).Return([]directory.Listing{listing}, nil)
	ts.directory.On("GetListing", mock.Anything, listing.ID).Return(&listing, nil)
	ts.directory.On("GetListing", mock.Anything, mock.Anything).Return(nil, directory.ErrListingNotFound)

	rec, body := ts.do(t, http.MethodGet, "/api/nurses", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["nurses"], 1)

	rec, body = ts.do(t, http.MethodGet, "/api/nurses/"+listing.ID.String(), nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Meera", body["nurse"].(map[string]any)["name"])

	rec, _ = ts.do(t, http.MethodGet, "/api/nurses/"+uuid.NewString(), nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = ts.do(t, http.MethodGet, "/api/nurses/not-a-uuid", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServices(t *testing.T) {
	ts := newTestServer(t)

	rec, body := ts.do(t, http.MethodGet, "/api/services", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	services := body["services"].([]any)
	require.Len(t, services, 3)
	assert.Equal(t, map[string]any{"name": "Consultation", "price": float64(500)}, services[0])
	assert.Equal(t, map[string]any{"name": "Emergency", "price": float64(2000)}, services[2])
}

func TestHealthAndMetrics(t *testing.T) {
	ts := newTestServer(t)

	rec, body := ts.do(t, http.MethodGet, "/health/ready", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])

	rec, _ = ts.do(t, http.MethodGet, "/metrics", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "wecare_http_requests_total")
}

func TestReadiness_Degraded(t *testing.T) {
	down := PingFunc(func(context.Context) error { return errors.New("down") })
	up := PingFunc(func(context.Context) error { return nil })

	tests := []struct {
		name   string
		pg, rd Pinger
		code   int
		status string
	}{
		{"redis down", up, down, http.StatusOK, "degraded"},
		{"postgres down", down, up, http.StatusServiceUnavailable, "error"},
		{"both down", down, down, http.StatusServiceUnavailable, "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(tt.pg, tt.rd, "test", "v0")
			rec := httptest.NewRecorder()
			h.Readiness(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

			assert.Equal(t, tt.code, rec.Code)
			var resp ReadinessResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.status, resp.Status)
		})
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	h := RequestIDMiddleware(RecoveryMiddleware(zerolog.Nop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestRecoveryMiddleware_AfterHeaderWritten(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`{"ok":true}`))
		panic("late boom")
	})
	logger := zerolog.Nop()
	h := LoggingMiddleware(logger)(MetricsMiddleware(metrics.New())(RecoveryMiddleware(logger)(handler)))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, `{"ok":true}`, rec.Body.String())
}

package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/subtrack/subscription-api/internal/domain"
	"github.com/subtrack/subscription-api/internal/store"
)

type serviceStub struct {
	subs      map[string]*domain.Subscription
	triggered []string
}

func newServiceStub() *serviceStub {
	return &serviceStub{subs: make(map[string]*domain.Subscription)}
}

func (s *serviceStub) Create(ctx context.Context, sub *domain.Subscription, ownerID string) (*domain.Subscription, error) {
	sub.ID = uuid.NewString()
	sub.UserID = ownerID
	sub.Normalize(time.Now())
	if err := sub.Validate(time.Now()); err != nil {
		return nil, err
	}
	s.subs[sub.ID] = sub
	return sub, nil
}

func (s *serviceStub) GetByID(ctx context.Context, id string) (*domain.Subscription, error) {
	sub, ok := s.subs[id]
	if !ok {
		return nil, store.ErrSubscriptionNotFound
	}
	return sub, nil
}

func (s *serviceStub) ListAll(ctx context.Context) ([]domain.Subscription, error) {
	out := make([]domain.Subscription, 0, len(s.subs))
	for _, sub := range s.subs {
		out = append(out, *sub)
	}
	return out, nil
}

func (s *serviceStub) ListByUser(ctx context.Context, requesterID, userID string) ([]domain.Subscription, error) {
	if requesterID != userID {
		return nil, domain.ErrNotOwner
	}
	var out []domain.Subscription
	for _, sub := range s.subs {
		if sub.UserID == userID {
			out = append(out, *sub)
		}
	}
	return out, nil
}

func (s *serviceStub) Update(ctx context.Context, sub *domain.Subscription) (*domain.Subscription, error) {
	if _, ok := s.subs[sub.ID]; !ok {
		return nil, store.ErrSubscriptionNotFound
	}
	s.subs[sub.ID] = sub
	return sub, nil
}

func (s *serviceStub) Delete(ctx context.Context, id string) error {
	if _, ok := s.subs[id]; !ok {
		return store.ErrSubscriptionNotFound
	}
	delete(s.subs, id)
	return nil
}

func (s *serviceStub) Cancel(ctx context.Context, id string) (*domain.Subscription, error) {
	sub, ok := s.subs[id]
	if !ok {
		return nil, store.ErrSubscriptionNotFound
	}
	if sub.Status == domain.StatusCancelled {
		return nil, domain.ErrAlreadyCancelled
	}
	sub.Status = domain.StatusCancelled
	return sub, nil
}

func (s *serviceStub) TriggerReminders(ctx context.Context, subscriptionID string) error {
	s.triggered = append(s.triggered, subscriptionID)
	return nil
}

type authServiceStub struct{}

func (authServiceStub) SignUp(ctx context.Context, name, email, password string) (*domain.User, string, error) {
	return &domain.User{ID: "user-1", Name: name, Email: email}, "stub-token", nil
}

func (authServiceStub) SignIn(ctx context.Context, email, password string) (*domain.User, string, error) {
	return &domain.User{ID: "user-1", Email: email}, "stub-token", nil
}

func (authServiceStub) SignOut(ctx context.Context, rawToken string) (time.Time, error) {
	return time.Now(), nil
}

func (authServiceStub) GetUser(ctx context.Context, id string) (*domain.User, error) {
	return &domain.User{ID: id}, nil
}

func (authServiceStub) ListUsers(ctx context.Context) ([]domain.User, error) {
	return nil, nil
}

type verifierStub struct {
	userID string
}

func (v verifierStub) VerifyToken(ctx context.Context, rawToken string) (string, error) {
	if rawToken != "valid-token" {
		return "", store.ErrUserNotFound
	}
	return v.userID, nil
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newTestRouter(service *serviceStub) http.Handler {
	handler := NewHandler(service)
	authHandler := NewAuthHandler(authServiceStub{})
	limiter := NewRateLimiter(1000, 1000)
	return NewRouter(handler, authHandler, verifierStub{userID: "user-1"}, limiter)
}

func doRequest(t *testing.T, router http.Handler, method, path, token, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("{}")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("response is not a JSON envelope: %v (body %q)", err, rec.Body.String())
	}
	return rec, env
}

func TestCreateSubscription_RequiresAuth(t *testing.T) {
	router := newTestRouter(newServiceStub())

	rec, env := doRequest(t, router, http.MethodPost, "/api/v1/subscriptions", "", `{"name":"Netflix"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if env.Success {
		t.Error("expected success=false")
	}
}

func TestCreateSubscription_RejectsInvalidToken(t *testing.T) {
	router := newTestRouter(newServiceStub())

	rec, _ := doRequest(t, router, http.MethodPost, "/api/v1/subscriptions", "bad-token", `{"name":"Netflix"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestCreateSubscription_Success(t *testing.T) {
	service := newServiceStub()
	router := newTestRouter(service)

	body := `{
		"name": "Netflix",
		"price": 15.99,
		"currency": "USD",
		"frequency": "monthly",
		"category": "entertainment",
		"payment_method": "credit card",
		"start_date": "2025-01-01T00:00:00Z",
		"renewal_date": "2099-01-31T00:00:00Z"
	}`
	rec, env := doRequest(t, router, http.MethodPost, "/api/v1/subscriptions", "valid-token", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201 (body %s)", rec.Code, rec.Body.String())
	}
	if !env.Success {
		t.Error("expected success=true")
	}

	var created domain.Subscription
	if err := json.Unmarshal(env.Data, &created); err != nil {
		t.Fatalf("cannot decode created subscription: %v", err)
	}
	if created.UserID != "user-1" {
		t.Errorf("owner = %q, want the authenticated user", created.UserID)
	}
}

func TestCreateSubscription_ValidationError(t *testing.T) {
	router := newTestRouter(newServiceStub())

	rec, env := doRequest(t, router, http.MethodPost, "/api/v1/subscriptions", "valid-token", `{"name":"ab"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if !strings.Contains(env.Message, "name") {
		t.Errorf("expected validation message to name the field, got %q", env.Message)
	}
}

func TestGetSubscription_InvalidIDFormat(t *testing.T) {
	router := newTestRouter(newServiceStub())

	rec, env := doRequest(t, router, http.MethodGet, "/api/v1/subscriptions/not-a-uuid", "valid-token", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if env.Message != "Invalid subscription ID format" {
		t.Errorf("unexpected message %q", env.Message)
	}
}

func TestGetSubscription_NotFound(t *testing.T) {
	router := newTestRouter(newServiceStub())

	rec, _ := doRequest(t, router, http.MethodGet, "/api/v1/subscriptions/"+uuid.NewString(), "valid-token", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestCancelSubscription_AlreadyCancelled(t *testing.T) {
	service := newServiceStub()
	id := uuid.NewString()
	service.subs[id] = &domain.Subscription{ID: id, UserID: "user-1", Status: domain.StatusCancelled}
	router := newTestRouter(service)

	rec, env := doRequest(t, router, http.MethodPut, "/api/v1/subscriptions/"+id+"/cancel", "valid-token", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if env.Message != "Subscription is already cancelled" {
		t.Errorf("unexpected message %q", env.Message)
	}
}

func TestListUserSubscriptions_OtherUser(t *testing.T) {
	router := newTestRouter(newServiceStub())

	rec, _ := doRequest(t, router, http.MethodGet, "/api/v1/users/user-2/subscriptions", "valid-token", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestTriggerReminders_Accepted(t *testing.T) {
	service := newServiceStub()
	router := newTestRouter(service)

	rec, env := doRequest(t, router, http.MethodPost, "/api/v1/workflows/subscriptions/reminder", "", `{"subscriptionId":"sub-1"}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", rec.Code)
	}
	if !env.Success {
		t.Error("expected success=true")
	}
	if len(service.triggered) != 1 || service.triggered[0] != "sub-1" {
		t.Errorf("expected trigger for sub-1, got %v", service.triggered)
	}
}

func TestTriggerReminders_MissingSubscriptionID(t *testing.T) {
	router := newTestRouter(newServiceStub())

	rec, _ := doRequest(t, router, http.MethodPost, "/api/v1/workflows/subscriptions/reminder", "", `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestBearerToken(t *testing.T) {
	cases := []struct {
		header string
		want   string
		ok     bool
	}{
		{"Bearer abc123", "abc123", true},
		{"Bearer   abc123  ", "abc123", true},
		{"abc123", "", false},
		{"Bearer ", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, ok := bearerToken(tc.header)
		if got != tc.want || ok != tc.ok {
			t.Errorf("bearerToken(%q) = (%q, %v), want (%q, %v)", tc.header, got, ok, tc.want, tc.ok)
		}
	}
}

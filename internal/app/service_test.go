package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"pathwise/api/internal/checkin"
	"pathwise/api/internal/config"
	"pathwise/api/internal/goals"
	"pathwise/api/internal/identity"
	"pathwise/api/internal/session"
	"pathwise/api/internal/tutor"
)

const testSecret = "test-secret"

type testEnv struct {
	service  *Service
	server   *HTTPServer
	identity *identity.Service
	sessions session.Store
	goals    *goals.Repository
	ledger   *checkin.Ledger
}

type envOption func(*Deps)

func withTutor(r tutor.Responder) envOption {
	return func(d *Deps) { d.Tutor = r }
}

func withSessions(store session.Store) envOption {
	return func(d *Deps) {
		d.Identity = identity.NewService(identity.NewMemoryUserStore(), store, testSecret, time.Hour,
			identity.WithBcryptCost(bcrypt.MinCost))
		d.Checks = map[string]Pinger{"sessions": store}
	}
}

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()
	sessions := session.NewMemoryStore()
	deps := Deps{
		Identity: identity.NewService(identity.NewMemoryUserStore(), sessions, testSecret, time.Hour,
			identity.WithBcryptCost(bcrypt.MinCost)),
		Goals:   goals.NewRepository(goals.DefaultTemplate()),
		Ledger:  checkin.NewLedger(checkin.NewMemoryStore()),
		Tutor:   tutor.MustTemplateResponder(),
		History: tutor.NewHistory(),
		Checks:  map[string]Pinger{"sessions": sessions},
	}
	for _, opt := range opts {
		opt(&deps)
	}
	svc := New(config.Config{PingMessage: "pong"}, deps)
	return &testEnv{
		service:  svc,
		server:   NewHTTPServer(svc, "*", nil),
		identity: deps.Identity,
		sessions: sessions,
		goals:    deps.Goals,
		ledger:   deps.Ledger,
	}
}

func (e *testEnv) do(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Buffer
	if body != "" {
		reader = bytes.NewBufferString(body)
	} else {
		reader = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rr, req)
	return rr
}

// login registers email (password "password123") and returns a bearer token.
func (e *testEnv) login(t *testing.T, email string) string {
	t.Helper()
	rr := e.do(t, http.MethodPost, "/api/auth/signup", "", `{"email":"`+email+`","password":"password123"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("signup: expected 201, got %d body=%s", rr.Code, rr.Body.String())
	}
	rr = e.do(t, http.MethodPost, "/api/auth/login", "", `{"email":"`+email+`","password":"password123"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	payload := decodeMap(t, rr)
	token, _ := payload["token"].(string)
	if token == "" {
		t.Fatalf("expected token in %v", payload)
	}
	return token
}

func decodeMap(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse response: %v body=%s", err, rr.Body.String())
	}
	return payload
}

func decodeInto(t *testing.T, rr *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(rr.Body.Bytes(), target); err != nil {
		t.Fatalf("parse response: %v body=%s", err, rr.Body.String())
	}
}

func assertStatusCode(t *testing.T, rr *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	if rr.Code != status {
		t.Fatalf("expected status %d, got %d body=%s", status, rr.Code, rr.Body.String())
	}
	if code == "" {
		return
	}
	payload := decodeMap(t, rr)
	if payload["code"] != code {
		t.Fatalf("expected code %s, got %v", code, payload["code"])
	}
}

func TestServiceSessionFromTokenRejectsUnknownToken(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.service.SessionFromToken(context.Background(), "nope")
	if err != errUnauthorized {
		t.Fatalf("expected errUnauthorized, got %v", err)
	}
}

func TestServiceDeleteGoalForgetsChatButKeepsCheckins(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	user, err := env.service.SignUp(ctx, "ada@example.com", "password123")
	if err != nil {
		t.Fatalf("sign up: %v", err)
	}
	sess := Session{UserID: user.ID}

	goal, err := env.service.CreateGoal(ctx, sess, CreateGoalInput{Title: "Learn ML", Timeline: "3 months"})
	if err != nil {
		t.Fatalf("create goal: %v", err)
	}
	if _, err := env.service.Chat(ctx, sess, ChatInput{GoalID: goal.ID, Message: "hi"}); err != nil {
		t.Fatalf("chat: %v", err)
	}
	if _, err := env.service.RecordCheckin(ctx, sess, RecordCheckinInput{GoalID: goal.ID, Mood: "ok"}); err != nil {
		t.Fatalf("record: %v", err)
	}

	if err := env.service.DeleteGoal(ctx, sess, goal.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if msgs := env.service.history.List(user.ID, goal.ID); len(msgs) != 0 {
		t.Fatalf("expected transcript to be dropped, got %d messages", len(msgs))
	}
	records, err := env.service.CheckinHistory(ctx, sess, goal.ID)
	if err != nil {
		t.Fatalf("checkin history: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected dangling check-in to survive, got %d", len(records))
	}
}

func TestClassifyLeavesUnknownErrorsAlone(t *testing.T) {
	err := context.DeadlineExceeded
	if classify(err) != err {
		t.Fatalf("expected unknown error to pass through")
	}
	status, code, _, _ := mapError(err)
	if status != http.StatusInternalServerError || code != "SERVER_ERROR" {
		t.Fatalf("expected 500 SERVER_ERROR, got %d %s", status, code)
	}
}

func TestClassifyMapsSentinels(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{identity.ErrInvalidEmail, http.StatusBadRequest, "VALIDATION_ERROR"},
		{identity.ErrWeakPassword, http.StatusBadRequest, "VALIDATION_ERROR"},
		{goals.ErrInvalidInput, http.StatusBadRequest, "VALIDATION_ERROR"},
		{checkin.ErrInvalidInput, http.StatusBadRequest, "VALIDATION_ERROR"},
		{tutor.ErrUnknownType, http.StatusBadRequest, "VALIDATION_ERROR"},
		{identity.ErrInvalidCredentials, http.StatusUnauthorized, "INVALID_CREDENTIALS"},
		{identity.ErrDuplicateEmail, http.StatusConflict, "EMAIL_EXISTS"},
		{goals.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
		{errUnauthorized, http.StatusUnauthorized, "UNAUTHORIZED"},
	}
	for _, tc := range cases {
		status, code, _, _ := mapError(tc.err)
		if status != tc.status || code != tc.code {
			t.Errorf("%v: expected %d %s, got %d %s", tc.err, tc.status, tc.code, status, code)
		}
	}
}

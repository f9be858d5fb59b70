package app

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"pathwise/api/internal/checkin"
	"pathwise/api/internal/config"
	"pathwise/api/internal/goals"
	"pathwise/api/internal/identity"
	"pathwise/api/internal/logging"
	"pathwise/api/internal/progress"
	"pathwise/api/internal/tutor"
)

// Session is the authenticated caller of a request.
type Session struct {
	Token     string
	UserID    string
	Email     string
	ExpiresAt time.Time
}

type CreateGoalInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Timeline    string `json:"timeline"`
}

type ToggleMilestoneInput struct {
	Week      *int `json:"week"`
	Completed bool `json:"completed"`
}

type ChatInput struct {
	GoalID  string `json:"goalId"`
	Message string `json:"message"`
	Type    string `json:"type"`
}

type CheckinConfigInput struct {
	Interval         *string `json:"interval"`
	Time             *string `json:"time"`
	RemindersEnabled *bool   `json:"remindersEnabled"`
}

type RecordCheckinInput struct {
	GoalID         string `json:"goalId"`
	Mood           string `json:"mood"`
	Notes          string `json:"notes"`
	ProgressUpdate *int   `json:"progressUpdate"`
}

// Pinger reports whether a backend is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the repositories the service is built from. Each is constructed
// once at startup.
type Deps struct {
	Identity *identity.Service
	Goals    *goals.Repository
	Ledger   *checkin.Ledger
	Tutor    tutor.Responder
	History  *tutor.History
	Checks   map[string]Pinger
	Logger   *logrus.Entry
}

type Service struct {
	cfg      config.Config
	identity *identity.Service
	goals    *goals.Repository
	ledger   *checkin.Ledger
	tutor    tutor.Responder
	history  *tutor.History
	checks   map[string]Pinger
	logger   *logrus.Entry
	now      func() time.Time
}

func New(cfg config.Config, deps Deps) *Service {
	if deps.History == nil {
		deps.History = tutor.NewHistory()
	}
	if deps.Logger == nil {
		deps.Logger = logging.Component(logging.Discard(), "app")
	}
	return &Service{
		cfg:      cfg,
		identity: deps.Identity,
		goals:    deps.Goals,
		ledger:   deps.Ledger,
		tutor:    deps.Tutor,
		history:  deps.History,
		checks:   deps.Checks,
		logger:   deps.Logger,
		now:      time.Now,
	}
}

func (s *Service) PingMessage() string {
	return s.cfg.PingMessage
}

// Ping checks every registered backend and returns the failures by name.
func (s *Service) Ping(ctx context.Context) map[string]error {
	failures := map[string]error{}
	for name, check := range s.checks {
		if err := check.Ping(ctx); err != nil {
			failures[name] = err
		}
	}
	return failures
}

func (s *Service) CheckNames() []string {
	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	return names
}

func (s *Service) SignUp(ctx context.Context, email, password string) (identity.User, error) {
	user, err := s.identity.Register(ctx, email, password)
	if err != nil {
		return identity.User{}, classify(err)
	}
	s.logger.WithField("user_id", user.ID).Info("user registered")
	return user, nil
}

func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	issued, err := s.identity.Authenticate(ctx, email, password)
	if err != nil {
		return Session{}, classify(err)
	}
	return Session{
		Token:     issued.Token,
		UserID:    issued.UserID,
		Email:     strings.ToLower(strings.TrimSpace(email)),
		ExpiresAt: issued.ExpiresAt,
	}, nil
}

func (s *Service) Logout(ctx context.Context, token string) error {
	return s.identity.Logout(ctx, token)
}

// SessionFromToken resolves a bearer token. Unresolvable tokens yield the
// UNAUTHORIZED domain error; anything else is a backend failure.
func (s *Service) SessionFromToken(ctx context.Context, token string) (Session, error) {
	user, ok, err := s.identity.Resolve(ctx, token)
	if err != nil {
		return Session{}, err
	}
	if !ok {
		return Session{}, errUnauthorized
	}
	return Session{Token: token, UserID: user.ID, Email: user.Email}, nil
}

func (s *Service) CreateGoal(_ context.Context, session Session, input CreateGoalInput) (goals.Goal, error) {
	goal, err := s.goals.Create(session.UserID, goals.CreateInput{
		Title:       input.Title,
		Description: input.Description,
		Timeline:    input.Timeline,
	})
	if err != nil {
		return goals.Goal{}, classify(err)
	}
	return goal, nil
}

func (s *Service) ListGoals(_ context.Context, session Session) []goals.Summary {
	return s.goals.List(session.UserID)
}

func (s *Service) GetGoal(_ context.Context, session Session, goalID string) (goals.Goal, error) {
	goal, err := s.goals.Get(session.UserID, goalID)
	if err != nil {
		return goals.Goal{}, classify(err)
	}
	return goal, nil
}

// DeleteGoal removes the goal and its chat transcript. Check-ins that name
// the goal are kept.
func (s *Service) DeleteGoal(_ context.Context, session Session, goalID string) error {
	if err := s.goals.Delete(session.UserID, goalID); err != nil {
		return classify(err)
	}
	s.history.Forget(session.UserID, goalID)
	return nil
}

func (s *Service) ToggleMilestone(_ context.Context, session Session, goalID string, input ToggleMilestoneInput) (goals.Goal, error) {
	if input.Week == nil {
		return goals.Goal{}, validationError("week is required")
	}
	goal, err := s.goals.ToggleMilestone(session.UserID, goalID, *input.Week, input.Completed)
	if err != nil {
		return goals.Goal{}, classify(err)
	}
	return goal, nil
}

func (s *Service) Chat(ctx context.Context, session Session, input ChatInput) (string, error) {
	message := strings.TrimSpace(input.Message)
	if message == "" {
		return "", validationError("message is required")
	}
	goal, err := s.goals.Get(session.UserID, input.GoalID)
	if err != nil {
		return "", classify(err)
	}

	asked := s.now().UTC()
	reply, err := s.tutor.Reply(ctx, tutor.Request{Goal: goal, Message: message, Type: tutor.Type(input.Type)})
	if err != nil {
		return "", classify(err)
	}
	s.history.Append(session.UserID, goal.ID,
		tutor.Message{Role: tutor.RoleUser, Content: message, Timestamp: asked},
		tutor.Message{Role: tutor.RoleAssistant, Content: reply, Timestamp: s.now().UTC()},
	)
	return reply, nil
}

func (s *Service) ChatHistory(_ context.Context, session Session, goalID string) ([]tutor.Message, error) {
	if _, err := s.goals.Get(session.UserID, goalID); err != nil {
		return nil, classify(err)
	}
	return s.history.List(session.UserID, goalID), nil
}

func (s *Service) Progress(ctx context.Context, session Session, goalID string) (progress.Report, error) {
	goal, err := s.goals.Get(session.UserID, goalID)
	if err != nil {
		return progress.Report{}, classify(err)
	}
	records, err := s.ledger.ListForGoal(ctx, session.UserID, goalID)
	if err != nil {
		return progress.Report{}, err
	}
	return progress.Build(goal, records), nil
}

func (s *Service) CheckinConfig(ctx context.Context, session Session) (checkin.Config, error) {
	return s.ledger.GetConfig(ctx, session.UserID)
}

func (s *Service) UpdateCheckinConfig(ctx context.Context, session Session, input CheckinConfigInput) (checkin.Config, error) {
	patch := checkin.ConfigPatch{
		Time:             input.Time,
		RemindersEnabled: input.RemindersEnabled,
	}
	if input.Interval != nil {
		interval := checkin.Interval(strings.ToLower(strings.TrimSpace(*input.Interval)))
		patch.Interval = &interval
	}
	cfg, err := s.ledger.UpdateConfig(ctx, session.UserID, patch)
	if err != nil {
		return checkin.Config{}, classify(err)
	}
	return cfg, nil
}

func (s *Service) RecordCheckin(ctx context.Context, session Session, input RecordCheckinInput) (checkin.Record, error) {
	record, err := s.ledger.Record(ctx, session.UserID, checkin.RecordInput{
		GoalID:         input.GoalID,
		Mood:           input.Mood,
		Notes:          input.Notes,
		ProgressUpdate: input.ProgressUpdate,
	})
	if err != nil {
		return checkin.Record{}, classify(err)
	}
	return record, nil
}

func (s *Service) ListCheckins(ctx context.Context, session Session) ([]checkin.Record, error) {
	return s.ledger.ListAll(ctx, session.UserID)
}

// CheckinHistory lists a goal's check-ins. The goal need not exist any more.
func (s *Service) CheckinHistory(ctx context.Context, session Session, goalID string) ([]checkin.Record, error) {
	if strings.TrimSpace(goalID) == "" {
		return nil, validationError("goalId is required")
	}
	return s.ledger.ListForGoal(ctx, session.UserID, goalID)
}

func isDomainError(err error) bool {
	var domainErr *DomainError
	return errors.As(err, &domainErr)
}

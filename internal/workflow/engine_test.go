package workflow

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/subtrack/subscription-api/internal/domain"
	"github.com/subtrack/subscription-api/internal/mailer"
	"github.com/subtrack/subscription-api/internal/store"
)

type subsSourceStub struct {
	sub  *domain.Subscription
	user *domain.User
	err  error
}

func (s *subsSourceStub) GetByIDWithOwner(ctx context.Context, id string) (*domain.Subscription, *domain.User, error) {
	if s.err != nil {
		return nil, nil, s.err
	}
	return s.sub, s.user, nil
}

// runStoreStub keeps the persisted run state in memory so a test can play
// the role of the database across simulated restarts.
type runStoreStub struct {
	state       domain.RunState
	offsetIndex int
	wakeAt      time.Time
	failReason  string
	saveErr     error
}

func (s *runStoreStub) SaveState(ctx context.Context, id string, state domain.RunState, offsetIndex int, wakeAt *time.Time) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.state = state
	s.offsetIndex = offsetIndex
	if wakeAt != nil {
		s.wakeAt = *wakeAt
	}
	return nil
}

func (s *runStoreStub) MarkFailed(ctx context.Context, id string, reason string) error {
	s.state = domain.RunFailed
	s.failReason = reason
	return nil
}

func (s *runStoreStub) run() domain.ReminderRun {
	return domain.ReminderRun{
		ID:             "run-1",
		SubscriptionID: "sub-1",
		State:          s.state,
		OffsetIndex:    s.offsetIndex,
		WakeAt:         s.wakeAt,
	}
}

type dispatcherStub struct {
	sent []mailer.ReminderKind
	to   []string
	err  error
}

func (d *dispatcherStub) SendReminder(ctx context.Context, to string, kind mailer.ReminderKind, sub *domain.Subscription, userName string) error {
	if d.err != nil {
		return d.err
	}
	d.sent = append(d.sent, kind)
	d.to = append(d.to, to)
	return nil
}

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func activeSubscription(renewal time.Time) (*domain.Subscription, *domain.User) {
	sub := &domain.Subscription{
		ID:            "sub-1",
		Name:          "Netflix",
		Price:         15.99,
		Currency:      domain.CurrencyUSD,
		Frequency:     domain.FrequencyMonthly,
		Category:      domain.CategoryEntertainment,
		PaymentMethod: "credit card",
		Status:        domain.StatusActive,
		StartDate:     renewal.AddDate(0, 0, -30),
		RenewalDate:   renewal,
		UserID:        "user-1",
	}
	user := &domain.User{ID: "user-1", Name: "Jane", Email: "jane@example.com"}
	return sub, user
}

// driveRun advances the run until it reaches a terminal state, jumping the
// fake clock to each persisted wake time the way the real runner wakes a
// sleeping run. Returns the number of Advance calls made.
func driveRun(t *testing.T, engine *Engine, runs *runStoreStub, clock *fakeClock) int {
	t.Helper()

	calls := 0
	for !runs.state.Terminal() {
		calls++
		if calls > 20 {
			t.Fatalf("run did not terminate, state %s at offset %d", runs.state, runs.offsetIndex)
		}
		if err := engine.Advance(context.Background(), runs.run()); err != nil {
			t.Fatalf("Advance returned error: %v", err)
		}
		if runs.state == domain.RunSleeping {
			clock.now = runs.wakeAt
		}
	}
	return calls
}

func TestAdvance_DispatchesAllFourRemindersInOrder(t *testing.T) {
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	renewal := now.AddDate(0, 0, 10)

	sub, user := activeSubscription(renewal)
	subs := &subsSourceStub{sub: sub, user: user}
	runs := &runStoreStub{state: domain.RunPending}
	dispatcher := &dispatcherStub{}
	clock := &fakeClock{now: now}
	engine := NewEngine(subs, runs, dispatcher, testLogger()).WithClock(clock.Now)

	driveRun(t, engine, runs, clock)

	want := []mailer.ReminderKind{mailer.Reminder7Days, mailer.Reminder5Days, mailer.Reminder2Days, mailer.Reminder1Day}
	if len(dispatcher.sent) != len(want) {
		t.Fatalf("expected %d dispatches, got %d", len(want), len(dispatcher.sent))
	}
	for i, kind := range want {
		if dispatcher.sent[i] != kind {
			t.Errorf("dispatch %d: expected %s, got %s", i, kind.Label(), dispatcher.sent[i].Label())
		}
		if dispatcher.to[i] != "jane@example.com" {
			t.Errorf("dispatch %d: expected owner email, got %s", i, dispatcher.to[i])
		}
	}
	if runs.state != domain.RunDone {
		t.Errorf("expected run state done, got %s", runs.state)
	}
}

func TestAdvance_StopsWhenRenewalDateHasPassed(t *testing.T) {
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	sub, user := activeSubscription(now.AddDate(0, 0, -1))
	subs := &subsSourceStub{sub: sub, user: user}
	runs := &runStoreStub{state: domain.RunPending}
	dispatcher := &dispatcherStub{}
	engine := NewEngine(subs, runs, dispatcher, testLogger()).WithClock((&fakeClock{now: now}).Now)

	if err := engine.Advance(context.Background(), runs.run()); err != nil {
		t.Fatalf("Advance returned error: %v", err)
	}

	if len(dispatcher.sent) != 0 {
		t.Errorf("expected zero dispatches, got %d", len(dispatcher.sent))
	}
	if runs.state != domain.RunDone {
		t.Errorf("expected run state done, got %s", runs.state)
	}
}

func TestAdvance_StopsWhenSubscriptionNotActive(t *testing.T) {
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	sub, user := activeSubscription(now.AddDate(0, 0, 10))
	sub.Status = domain.StatusCancelled
	subs := &subsSourceStub{sub: sub, user: user}
	runs := &runStoreStub{state: domain.RunPending}
	dispatcher := &dispatcherStub{}
	engine := NewEngine(subs, runs, dispatcher, testLogger()).WithClock((&fakeClock{now: now}).Now)

	if err := engine.Advance(context.Background(), runs.run()); err != nil {
		t.Fatalf("Advance returned error: %v", err)
	}

	if len(dispatcher.sent) != 0 {
		t.Errorf("expected zero dispatches, got %d", len(dispatcher.sent))
	}
	if runs.state != domain.RunDone {
		t.Errorf("expected run state done, got %s", runs.state)
	}
}

func TestAdvance_StopsWhenSubscriptionMissing(t *testing.T) {
	subs := &subsSourceStub{err: store.ErrSubscriptionNotFound}
	runs := &runStoreStub{state: domain.RunPending}
	dispatcher := &dispatcherStub{}
	engine := NewEngine(subs, runs, dispatcher, testLogger())

	if err := engine.Advance(context.Background(), runs.run()); err != nil {
		t.Fatalf("Advance returned error: %v", err)
	}

	if len(dispatcher.sent) != 0 {
		t.Errorf("expected zero dispatches, got %d", len(dispatcher.sent))
	}
	if runs.state != domain.RunDone {
		t.Errorf("expected run state done, got %s", runs.state)
	}
}

func TestAdvance_ResumesFromPersistedOffsetAfterRestart(t *testing.T) {
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	renewal := now.AddDate(0, 0, 10)

	sub, user := activeSubscription(renewal)
	subs := &subsSourceStub{sub: sub, user: user}
	runs := &runStoreStub{state: domain.RunPending}
	clock := &fakeClock{now: now}

	// First process: run until the workflow is suspended between the 5-day
	// and 2-day offsets.
	first := &dispatcherStub{}
	engine := NewEngine(subs, runs, first, testLogger()).WithClock(clock.Now)
	for !(runs.state == domain.RunSleeping && runs.offsetIndex == 2) {
		if err := engine.Advance(context.Background(), runs.run()); err != nil {
			t.Fatalf("Advance returned error: %v", err)
		}
		if runs.state == domain.RunSleeping && runs.offsetIndex < 2 {
			clock.now = runs.wakeAt
		}
	}
	if len(first.sent) != 2 {
		t.Fatalf("expected 2 dispatches before restart, got %d", len(first.sent))
	}

	// Second process: a fresh engine resumes from the stored run row.
	second := &dispatcherStub{}
	resumed := NewEngine(subs, runs, second, testLogger()).WithClock(clock.Now)
	clock.now = runs.wakeAt
	driveRun(t, resumed, runs, clock)

	want := []mailer.ReminderKind{mailer.Reminder2Days, mailer.Reminder1Day}
	if len(second.sent) != len(want) {
		t.Fatalf("expected %d dispatches after restart, got %d", len(want), len(second.sent))
	}
	for i, kind := range want {
		if second.sent[i] != kind {
			t.Errorf("dispatch %d after restart: expected %s, got %s", i, kind.Label(), second.sent[i].Label())
		}
	}
}

func TestAdvance_SkipsReminderDaysMissedDuringDowntime(t *testing.T) {
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	renewal := now.AddDate(0, 0, 10)

	sub, user := activeSubscription(renewal)
	subs := &subsSourceStub{sub: sub, user: user}
	runs := &runStoreStub{state: domain.RunPending}
	dispatcher := &dispatcherStub{}
	clock := &fakeClock{now: now}
	engine := NewEngine(subs, runs, dispatcher, testLogger()).WithClock(clock.Now)

	// Suspend for the 7-day reminder, then simulate the process being down
	// across that day: wake two days late.
	if err := engine.Advance(context.Background(), runs.run()); err != nil {
		t.Fatalf("Advance returned error: %v", err)
	}
	if runs.state != domain.RunSleeping || runs.offsetIndex != 0 {
		t.Fatalf("expected run sleeping at offset 0, got %s at %d", runs.state, runs.offsetIndex)
	}
	clock.now = runs.wakeAt.AddDate(0, 0, 2)

	driveRun(t, engine, runs, clock)

	// The 7-day reminder day passed unmatched and the wake landed exactly on
	// the 5-day reminder day, so only 5, 2 and 1 fire. No catch-up dispatch.
	want := []mailer.ReminderKind{mailer.Reminder5Days, mailer.Reminder2Days, mailer.Reminder1Day}
	if len(dispatcher.sent) != len(want) {
		t.Fatalf("expected %d dispatches, got %d", len(want), len(dispatcher.sent))
	}
	for i, kind := range want {
		if dispatcher.sent[i] != kind {
			t.Errorf("dispatch %d: expected %s, got %s", i, kind.Label(), dispatcher.sent[i].Label())
		}
	}
}

func TestAdvance_MarksRunFailedOnDispatchError(t *testing.T) {
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	renewal := now.AddDate(0, 0, 7) // 7-day reminder is today

	sub, user := activeSubscription(renewal)
	subs := &subsSourceStub{sub: sub, user: user}
	runs := &runStoreStub{state: domain.RunPending}
	dispatcher := &dispatcherStub{err: mailer.ErrUnknownReminder}
	engine := NewEngine(subs, runs, dispatcher, testLogger()).WithClock((&fakeClock{now: now}).Now)

	err := engine.Advance(context.Background(), runs.run())
	if !errors.Is(err, mailer.ErrUnknownReminder) {
		t.Fatalf("expected dispatch error to propagate, got %v", err)
	}
	if runs.state != domain.RunFailed {
		t.Errorf("expected run state failed, got %s", runs.state)
	}
	if runs.failReason == "" {
		t.Error("expected failure reason to be recorded")
	}
}

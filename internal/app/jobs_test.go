package app

import (
	"context"
	"errors"
	"testing"
)

type tokenPurgerStub struct {
	purged int64
	err    error
	calls  int
}

func (s *tokenPurgerStub) PurgeExpired(ctx context.Context) (int64, error) {
	s.calls++
	return s.purged, s.err
}

type expirerStub struct {
	expired int64
	err     error
	calls   int
}

func (s *expirerStub) ExpireLapsed(ctx context.Context) (int64, error) {
	s.calls++
	return s.expired, s.err
}

func TestPurgeRevokedTokens(t *testing.T) {
	purger := &tokenPurgerStub{purged: 3}
	jobs := NewJobs(purger, &expirerStub{}, testLogger())

	jobs.PurgeRevokedTokens()

	if purger.calls != 1 {
		t.Errorf("expected 1 purge call, got %d", purger.calls)
	}
}

func TestExpireLapsedSubscriptions_SurvivesStoreError(t *testing.T) {
	expirer := &expirerStub{err: errors.New("connection refused")}
	jobs := NewJobs(&tokenPurgerStub{}, expirer, testLogger())

	// The job logs and returns; the scheduler must never see a panic.
	jobs.ExpireLapsedSubscriptions()

	if expirer.calls != 1 {
		t.Errorf("expected 1 expire call, got %d", expirer.calls)
	}
}

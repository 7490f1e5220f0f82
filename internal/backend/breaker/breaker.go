// Package breaker wraps a record store in a circuit breaker so a failing
// backend fails fast instead of stalling every mutation.
package breaker

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"tarevity/internal/service"
)

// Settings tune the breaker.
type Settings struct {
	Name string

	// Timeout is how long the breaker stays open before probing again.
	Timeout time.Duration

	// FailureThreshold is the run of consecutive transport failures that
	// trips the breaker.
	FailureThreshold uint32
}

// DefaultSettings match the service-to-service breakers the store backends use.
func DefaultSettings() Settings {
	return Settings{Name: "record-store", Timeout: 5 * time.Second, FailureThreshold: 4}
}

// Store is a service.RecordStore guarded by a circuit breaker.
type Store struct {
	next service.RecordStore
	cb   *gobreaker.CircuitBreaker
}

// New wraps next.
func New(next service.RecordStore, s Settings, log logrus.FieldLogger) *Store {
	if log == nil {
		log = logrus.StandardLogger()
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        s.Name,
		MaxRequests: 1,
		Timeout:     s.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= s.FailureThreshold
		},
		IsSuccessful: countsAsSuccess,
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.WithFields(logrus.Fields{"breaker": name, "from": from.String(), "to": to.String()}).Warn("circuit breaker state changed")
		},
	})
	return &Store{next: next, cb: cb}
}

// State returns the breaker state.
func (s *Store) State() gobreaker.State {
	return s.cb.State()
}

// countsAsSuccess keeps answers from a healthy backend, such as a rejected
// title or a missing record, from tripping the breaker. A call cancelled by
// its caller, as when a newer read supersedes a fetch, says nothing about
// the backend either.
func countsAsSuccess(err error) bool {
	if errors.Is(err, context.Canceled) {
		return true
	}
	switch service.KindOf(err) {
	case service.KindValidation, service.KindNotFound, service.KindUnauthenticated:
		return true
	}
	return err == nil
}

func (s *Store) execute(op string, fn func() (interface{}, error)) (interface{}, error) {
	v, err := s.cb.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, service.Wrap(service.KindTransport, op, err)
	}
	return v, err
}

func (s *Store) List(ctx context.Context) ([]service.Task, error) {
	v, err := s.execute("list", func() (interface{}, error) {
		return s.next.List(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.([]service.Task), nil
}

func (s *Store) Create(ctx context.Context, in service.NewTask) (*service.Task, error) {
	v, err := s.execute("create", func() (interface{}, error) {
		return s.next.Create(ctx, in)
	})
	if err != nil {
		return nil, err
	}
	return v.(*service.Task), nil
}

func (s *Store) Update(ctx context.Context, id string, patch service.TaskPatch) (*service.Task, error) {
	v, err := s.execute("update", func() (interface{}, error) {
		return s.next.Update(ctx, id, patch)
	})
	if err != nil {
		return nil, err
	}
	return v.(*service.Task), nil
}

func (s *Store) Delete(ctx context.Context, id string) (int, error) {
	v, err := s.execute("delete", func() (interface{}, error) {
		return s.next.Delete(ctx, id)
	})
	if err != nil {
		return 0, err
	}
	return v.(int), nil
}

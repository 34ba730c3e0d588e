// Package trip holds the trip record model and the repository that reads
// and writes it through the remote store.
package trip

import (
	"context"
	"errors"
	"log/slog"

	"github.com/rpggio/trips/internal/reactive"
	"github.com/rpggio/trips/internal/result"
)

// Service is the record repository. Every operation returns a stream that
// emits exactly one Result on the loop.
type Service struct {
	loop     *reactive.Loop
	store    Store
	auth     AuthChecker
	keys     *KeyClock
	recorder Recorder
	logger   *slog.Logger
}

// NewService creates a new trip service. keys, recorder and logger may be nil.
func NewService(
	loop *reactive.Loop,
	store Store,
	auth AuthChecker,
	keys *KeyClock,
	recorder Recorder,
	logger *slog.Logger,
) *Service {
	if keys == nil {
		keys = NewKeyClock(nil)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{
		loop:     loop,
		store:    store,
		auth:     auth,
		keys:     keys,
		recorder: recorder,
		logger:   logger,
	}
}

// FetchAll reads every record once, ascending by key.
func (s *Service) FetchAll() reactive.Stream[result.Result[[]Record]] {
	return call(s, "fetch", func(ctx context.Context) ([]Record, error) {
		snap, err := s.store.ReadOrderedByKey(ctx, Collection)
		if err != nil {
			return nil, asStorage(err)
		}
		records := make([]Record, 0, len(snap.Children))
		for _, child := range snap.Children {
			records = append(records, FromChild(child))
		}
		return records, nil
	})
}

// Create writes a new record keyed by the current time in milliseconds.
func (s *Service) Create(name, tripType, startDate, endDate string) reactive.Stream[result.Result[result.Unit]] {
	return call(s, "create", func(ctx context.Context) (result.Unit, error) {
		rec := Record{
			Key:       s.keys.Next(),
			Name:      name,
			Type:      tripType,
			StartDate: startDate,
			EndDate:   endDate,
		}
		if err := s.store.SetValue(ctx, RecordPath(rec.Key), rec.Fields()); err != nil {
			return result.Unit{}, asStorage(err)
		}
		s.logger.Debug("trip created", "key", rec.Key)
		return result.Unit{}, nil
	})
}

// Delete removes the record with key. It needs an active session.
func (s *Service) Delete(key string) reactive.Stream[result.Result[result.Unit]] {
	return call(s, "delete", func(ctx context.Context) (result.Unit, error) {
		if s.auth == nil || !s.auth.Authenticated() {
			return result.Unit{}, result.ErrUnauthenticated
		}
		if err := s.store.RemoveValue(ctx, RecordPath(key)); err != nil {
			return result.Unit{}, asStorage(err)
		}
		s.logger.Debug("trip deleted", "key", key)
		return result.Unit{}, nil
	})
}

func call[T any](s *Service, op string, fn func(ctx context.Context) (T, error)) reactive.Stream[result.Result[T]] {
	return reactive.Async(s.loop, func(ctx context.Context) result.Result[T] {
		v, err := fn(ctx)
		if err != nil {
			s.logger.Warn("trip operation failed", "op", op, "error", err)
		}
		if s.recorder != nil {
			s.recorder.RecordOperation(op, err == nil)
		}
		return result.From(v, err)
	})
}

func asStorage(err error) error {
	var classified *result.Error
	if errors.As(err, &classified) {
		return err
	}
	return result.Storage(err.Error(), err)
}

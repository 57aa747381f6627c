package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Astemirdum/lending-service/lending/internal/model"
	"github.com/Astemirdum/lending-service/lending/internal/repository"
	"github.com/Astemirdum/lending-service/pkg/kafka"
)

const (
	DefaultLoanDays = 14
	MaxLoanDays     = 365
)

// EventLogger publishes borrowing events after the ledger change is committed.
type EventLogger interface {
	Log(ctx context.Context, ev kafka.EventBorrowing) error
}

type Service struct {
	log    *zap.Logger
	repo   repository.Repository
	events EventLogger

	now         func() time.Time
	loc         *time.Location
	loanDays    int
	maxLoanDays int
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithLoanPeriod sets the default and the maximum loan length in days.
// Non-positive values keep the built-in limits.
func WithLoanPeriod(def, max int) Option {
	return func(s *Service) {
		if def > 0 {
			s.loanDays = def
		}
		if max > 0 {
			s.maxLoanDays = max
		}
	}
}

func WithEventLogger(ev EventLogger) Option {
	return func(s *Service) {
		s.events = ev
	}
}

func NewService(repo repository.Repository, log *zap.Logger, opts ...Option) *Service {
	s := &Service{
		log:         log.Named("service"),
		repo:        repo,
		now:         time.Now,
		loc:         time.UTC,
		loanDays:    DefaultLoanDays,
		maxLoanDays: MaxLoanDays,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Today is the current calendar date in the configured time zone.
func (s *Service) Today() time.Time {
	return model.DateOf(s.now(), s.loc)
}

// LastMonth is the reporting window anchored at today.
func (s *Service) LastMonth() model.DateWindow {
	return LastMonthWindow(s.Today())
}

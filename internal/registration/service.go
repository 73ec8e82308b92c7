package registration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-waitlist-go/internal/registration/entity"
	regrepo "github.com/ovaphlow/pitchfork/service-waitlist-go/internal/registration/repo"
	statsrepo "github.com/ovaphlow/pitchfork/service-waitlist-go/internal/stats/repo"
	"github.com/ovaphlow/pitchfork/service-waitlist-go/pkg/database"
)

// SubmitInput is one signup attempt as received from the transport.
type SubmitInput struct {
	Email         string
	FullName      string
	ClientAddress string
	ClientAgent   string
}

// Service runs the signup workflow: validation, duplicate detection,
// persistence and counter updates.
type Service struct {
	db    *sqlx.DB
	regs  *regrepo.RegistrationRepo
	stats *statsrepo.StatsRepo
	now   func() time.Time
}

func NewService(db *sqlx.DB, regs *regrepo.RegistrationRepo, stats *statsrepo.StatsRepo) *Service {
	if regs == nil {
		regs = regrepo.NewRegistrationRepo(db)
	}
	if stats == nil {
		stats = statsrepo.NewStatsRepo(db)
	}
	return &Service{db: db, regs: regs, stats: stats, now: func() time.Time { return time.Now().UTC() }}
}

// EnsureSchema creates the registrations table.
func (s *Service) EnsureSchema(ctx context.Context) error {
	if err := s.regs.EnsureTable(ctx); err != nil {
		return fmt.Errorf("ensure registrations table: %w", err)
	}
	return nil
}

// Submit validates and stores one registration.
//
// Validation failures bump form_errors and return a *ValidationError; the
// rejection is only reported once that increment is stored. A known email
// returns ErrDuplicate and changes no counter. On success the registration
// and the form_submissions increment commit together.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (*entity.Registration, error) {
	email := NormalizeEmail(in.Email)
	name := NormalizeName(in.FullName)

	if verr := validate(email, name); verr != nil {
		if err := s.stats.Increment(ctx, statsrepo.FormErrors, s.now()); err != nil {
			return nil, fmt.Errorf("record form error: %w", err)
		}
		return nil, verr
	}

	reg := &entity.Registration{
		Email:         email,
		FullName:      name,
		CreatedAt:     s.now(),
		ClientAddress: optional(in.ClientAddress),
		ClientAgent:   optional(in.ClientAgent),
	}
	err := database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		regs := s.regs.WithTx(tx)

		// advisory: the unique index below is what actually decides
		if _, err := regs.GetByEmail(ctx, email); err == nil {
			return ErrDuplicate
		} else if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("lookup registration: %w", err)
		}

		if err := regs.Create(ctx, reg); err != nil {
			if database.IsUniqueViolation(err) {
				return ErrDuplicate
			}
			return fmt.Errorf("insert registration: %w", err)
		}
		if err := s.stats.WithTx(tx).Increment(ctx, statsrepo.FormSubmissions, reg.CreatedAt); err != nil {
			return fmt.Errorf("record form submission: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reg, nil
}

// List returns all registrations, newest first.
func (s *Service) List(ctx context.Context) ([]entity.Registration, error) {
	rows, err := s.regs.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	return rows, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"onepiece-admin/internal/config"
	"onepiece-admin/internal/model"
	"onepiece-admin/internal/repository"
	"onepiece-admin/internal/tgrest"
)

// WarlordService appoints, edits and revokes time-boxed warlord grants.
type WarlordService struct {
	warlordRepo *repository.WarlordRepository
	userRepo    *repository.UserRepository
	notifier    Notifier
	cfg         *config.WarlordConfig
}

// NewWarlordService creates a new WarlordService instance.
func NewWarlordService(
	warlordRepo *repository.WarlordRepository,
	userRepo *repository.UserRepository,
	notifier Notifier,
	cfg *config.WarlordConfig,
) *WarlordService {
	return &WarlordService{
		warlordRepo: warlordRepo,
		userRepo:    userRepo,
		notifier:    notifier,
		cfg:         cfg,
	}
}

// Appoint grants a user the warlord role for a number of days. A user holds
// at most one active grant, the number of active grants is capped globally,
// and the epithet must be free among other users' active grants.
func (s *WarlordService) Appoint(ctx context.Context, userID int64, epithet, reason string, durationDays int) (*model.Warlord, error) {
	epithet = strings.TrimSpace(epithet)
	reason = strings.TrimSpace(reason)
	if epithet == "" {
		return nil, Validationf("epithet is required")
	}
	if reason == "" {
		return nil, Validationf("appointment reason is required")
	}
	if durationDays <= 0 {
		return nil, Validationf("duration must be at least 1 day")
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	now := time.Now()
	if _, err := s.warlordRepo.GetActiveByUser(ctx, userID, now); err == nil {
		return nil, Validationf("%s already holds an active warlord grant", user.DisplayName(false))
	} else if !errors.Is(err, repository.ErrWarlordNotFound) {
		return nil, fmt.Errorf("failed to check active grant: %w", err)
	}

	count, err := s.warlordRepo.ActiveCount(ctx, now)
	if err != nil {
		return nil, err
	}
	if count >= s.cfg.MaxCount {
		return nil, Validationf("the maximum of %d active warlords is reached", s.cfg.MaxCount)
	}

	if err := s.checkEpithet(ctx, epithet, userID, now); err != nil {
		return nil, err
	}

	endDate := now.Add(time.Duration(durationDays) * 24 * time.Hour)
	created, err := s.warlordRepo.Insert(ctx, &model.Warlord{
		UserID:          userID,
		Epithet:         epithet,
		Reason:          reason,
		Date:            now,
		EndDate:         endDate,
		OriginalEndDate: endDate,
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Int64("warlord_id", created.ID).
		Int64("user_id", userID).
		Str("epithet", epithet).
		Int("days", durationDays).
		Msg("warlord appointed")

	return created, s.notifier.Send(ctx, tgrest.WarlordAppointment{
		UserID:    userID,
		WarlordID: created.ID,
		Days:      durationDays,
	})
}

// Edit changes a grant's epithet, reason or duration. The duration is
// counted from the original grant start; an expired grant is immutable and
// the end date can never move below the time already elapsed.
func (s *WarlordService) Edit(ctx context.Context, warlordID int64, epithet, reason string, durationDays int) (*model.Warlord, error) {
	epithet = strings.TrimSpace(epithet)
	reason = strings.TrimSpace(reason)
	if epithet == "" {
		return nil, Validationf("epithet is required")
	}
	if reason == "" {
		return nil, Validationf("appointment reason is required")
	}
	if durationDays <= 0 {
		return nil, Validationf("duration must be at least 1 day")
	}

	w, err := s.warlordRepo.GetByID(ctx, warlordID)
	if err != nil {
		return nil, fmt.Errorf("failed to get warlord: %w", err)
	}

	now := time.Now()
	if !w.IsActive(now) {
		return nil, Validationf("the grant has already ended and cannot be edited")
	}

	endDate := w.EndDateByDuration(durationDays)
	if !endDate.After(now) {
		return nil, Validationf("duration cannot be shorter than the time already elapsed")
	}

	if err := s.checkEpithet(ctx, epithet, w.UserID, now); err != nil {
		return nil, err
	}

	w.Epithet = epithet
	w.Reason = reason
	w.EndDate = endDate
	updated, err := s.warlordRepo.Update(ctx, w)
	if err != nil {
		return nil, err
	}

	log.Info().
		Int64("warlord_id", warlordID).
		Time("end_date", endDate).
		Msg("warlord grant updated")
	return updated, nil
}

// Revoke ends a grant immediately with a mandatory reason and announces the
// revocation to the bot.
func (s *WarlordService) Revoke(ctx context.Context, warlordID int64, reason string) (*model.Warlord, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, Validationf("revocation reason is required")
	}

	w, err := s.warlordRepo.GetByID(ctx, warlordID)
	if err != nil {
		return nil, fmt.Errorf("failed to get warlord: %w", err)
	}

	now := time.Now()
	if !w.IsActive(now) {
		return nil, &StaleStateError{
			Entity:   "warlord grant",
			ID:       warlordID,
			Expected: "active",
			Actual:   "ended",
		}
	}

	revoked, err := s.warlordRepo.Revoke(ctx, warlordID, reason, now)
	if err != nil {
		return nil, err
	}

	log.Info().
		Int64("warlord_id", warlordID).
		Int64("user_id", revoked.UserID).
		Msg("warlord revoked")

	return revoked, s.notifier.Send(ctx, tgrest.WarlordRevocation{
		UserID:    revoked.UserID,
		WarlordID: revoked.ID,
	})
}

func (s *WarlordService) checkEpithet(ctx context.Context, epithet string, userID int64, now time.Time) error {
	if _, err := s.warlordRepo.GetActiveByEpithet(ctx, epithet, userID, now); err == nil {
		return Validationf("the epithet %q is already taken by an active warlord", epithet)
	} else if !errors.Is(err, repository.ErrWarlordNotFound) {
		return fmt.Errorf("failed to check epithet: %w", err)
	}
	return nil
}

// Get retrieves a grant by id.
func (s *WarlordService) Get(ctx context.Context, warlordID int64) (*model.Warlord, error) {
	return s.warlordRepo.GetByID(ctx, warlordID)
}

// List retrieves grants, optionally only the active ones.
func (s *WarlordService) List(ctx context.Context, onlyActive bool, limit int) ([]*model.Warlord, error) {
	return s.warlordRepo.List(ctx, onlyActive, time.Now(), limit)
}

// Search retrieves grants matching a free-text filter.
func (s *WarlordService) Search(ctx context.Context, filter string, onlyActive bool, limit int) ([]*model.Warlord, error) {
	return s.warlordRepo.Search(ctx, filter, onlyActive, time.Now(), limit)
}

package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"onepiece-admin/internal/model"
	"onepiece-admin/internal/repository"
	"onepiece-admin/internal/tgrest"
)

// ImpelDownForm is the moderator input for a disciplinary action.
type ImpelDownForm struct {
	UserID           int64
	SentenceType     model.SentenceType
	ReleaseDateTime  *time.Time
	BountyAction     model.BountyAction
	Reason           string
	SendNotification bool
}

// ImpelDownService applies and reverses disciplinary actions. Every applied
// action leaves an audit log row; logs are never deleted and can be reversed
// at most once.
type ImpelDownService struct {
	logRepo  *repository.ImpelDownRepository
	userRepo *repository.UserRepository
	notifier Notifier
}

// NewImpelDownService creates a new ImpelDownService instance.
func NewImpelDownService(
	logRepo *repository.ImpelDownRepository,
	userRepo *repository.UserRepository,
	notifier Notifier,
) *ImpelDownService {
	return &ImpelDownService{
		logRepo:  logRepo,
		userRepo: userRepo,
		notifier: notifier,
	}
}

// Apply sanctions a user: sets the arrest state, applies the bounty action
// and writes the audit log, all in one transaction. The notification is
// dispatched after the commit; its failure is reported but never rolls the
// sanction back.
func (s *ImpelDownService) Apply(ctx context.Context, form *ImpelDownForm) (*model.ImpelDownLog, error) {
	if !form.SentenceType.IsValid() {
		return nil, Validationf("unknown sentence type")
	}
	if !form.BountyAction.IsValid() {
		return nil, Validationf("unknown bounty action")
	}

	now := time.Now()
	var releaseDate *time.Time
	if form.SentenceType == model.SentenceTemporary {
		if form.ReleaseDateTime == nil {
			return nil, Validationf("a temporary sentence requires a release date")
		}
		if !form.ReleaseDateTime.After(now) {
			return nil, Validationf("release date must be in the future")
		}
		releaseDate = form.ReleaseDateTime
	}

	reason := strings.TrimSpace(form.Reason)
	if form.SendNotification && form.SentenceType != model.SentenceNone && reason == "" {
		return nil, Validationf("a reason is required when notifying the user")
	}

	user, err := s.userRepo.GetByID(ctx, form.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	sentenceType := form.SentenceType
	bountyAction := form.BountyAction
	entry := &model.ImpelDownLog{
		UserID:          user.ID,
		SentenceType:    &sentenceType,
		ReleaseDateTime: releaseDate,
		IsPermanent:     form.SentenceType == model.SentencePermanent,
		BountyAction:    &bountyAction,
		PreviousBounty:  user.Bounty,
		NewBounty:       bountyAction.Apply(user.Bounty),
		DateTime:        now,
	}
	if reason != "" {
		entry.Reason = &reason
	}

	created, err := s.logRepo.Apply(ctx, entry)
	if err != nil {
		return nil, err
	}

	log.Info().
		Int64("log_id", created.ID).
		Int64("user_id", user.ID).
		Str("sentence", string(form.SentenceType)).
		Str("bounty_action", string(form.BountyAction)).
		Int64("previous_bounty", created.PreviousBounty).
		Int64("new_bounty", created.NewBounty).
		Msg("impel down action applied")

	if !form.SendNotification {
		return created, nil
	}

	err = s.notifier.Send(ctx, tgrest.ImpelDownNotification{
		UserID:          user.ID,
		SentenceType:    string(form.SentenceType),
		ReleaseDateTime: releaseDate,
		BountyAction:    string(form.BountyAction),
		Reason:          reason,
	})
	if err != nil {
		log.Warn().Err(err).Int64("log_id", created.ID).Msg("impel down notification delivery failed")
		return created, err
	}
	if err := s.logRepo.MarkMessageSent(ctx, created.ID); err != nil {
		return created, err
	}
	created.MessageSent = true
	return created, nil
}

// Reverse undoes a sanction once: the recorded bounty delta is restored and
// the arrest state cleared. The bounty is incremented, not reset, so changes
// made since the sanction are preserved.
func (s *ImpelDownService) Reverse(ctx context.Context, logID int64) (*model.ImpelDownLog, error) {
	reversed, err := s.logRepo.Reverse(ctx, logID)
	if err != nil {
		if errors.Is(err, repository.ErrLogNotFound) {
			return nil, Validationf("log %d does not exist or was already reversed", logID)
		}
		return nil, err
	}

	log.Info().
		Int64("log_id", logID).
		Int64("user_id", reversed.UserID).
		Int64("restored_bounty", reversed.LostBounty()).
		Msg("impel down action reversed")
	return reversed, nil
}

// Get retrieves a log entry.
func (s *ImpelDownService) Get(ctx context.Context, logID int64) (*model.ImpelDownLog, error) {
	return s.logRepo.GetByID(ctx, logID)
}

// Recent retrieves the newest log entries.
func (s *ImpelDownService) Recent(ctx context.Context, limit int) ([]*model.ImpelDownLog, error) {
	return s.logRepo.Recent(ctx, limit)
}

// Search retrieves log entries by the subject's name, username or id.
func (s *ImpelDownService) Search(ctx context.Context, filter string, limit int) ([]*model.ImpelDownLog, error) {
	return s.logRepo.Search(ctx, filter, limit)
}

package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"onepiece-admin/internal/model"
	"onepiece-admin/internal/repository"
	"onepiece-admin/internal/tgrest"
)

// UserService backs the user browse surface and direct messaging.
type UserService struct {
	userRepo *repository.UserRepository
	notifier Notifier
}

// NewUserService creates a new UserService instance.
func NewUserService(userRepo *repository.UserRepository, notifier Notifier) *UserService {
	return &UserService{
		userRepo: userRepo,
		notifier: notifier,
	}
}

// Get retrieves a user by id.
func (s *UserService) Get(ctx context.Context, id int64) (*model.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

// Search retrieves users matching the filter against name, username or
// telegram id.
func (s *UserService) Search(ctx context.Context, filter string, limit int) ([]*model.User, error) {
	return s.userRepo.Search(ctx, filter, limit)
}

// Recent retrieves the most recently active users.
func (s *UserService) Recent(ctx context.Context, limit int) ([]*model.User, error) {
	return s.userRepo.Recent(ctx, limit)
}

// SendPrivateMessage delivers a text message to a user through the bot.
func (s *UserService) SendPrivateMessage(ctx context.Context, userID int64, message string) error {
	message = strings.TrimSpace(message)
	if message == "" {
		return Validationf("message text is required")
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}

	if err := s.notifier.Send(ctx, tgrest.PrivateMessage{
		TgUserID: user.TgUserID,
		Message:  message,
	}); err != nil {
		return err
	}

	log.Info().Int64("user_id", userID).Msg("private message dispatched")
	return nil
}

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

const (
	minPredictionOptions = 2
	maxPredictionOptions = 10
)

// PredictionForm is the moderator input for creating or editing a prediction.
// ID is zero for a new prediction. Nil dates mean the corresponding schedule
// is not set.
type PredictionForm struct {
	ID                   int64
	Type                 model.PredictionType
	Question             string
	Options              []string
	SendDate             *time.Time
	EndDate              *time.Time
	CutOffDate           *time.Time
	RefundWager          bool
	MaxRefundWager       *int64
	AllowMultipleChoices bool
	CanWithdrawBet       bool
}

// PredictionService validates and persists predictions and drives their
// lifecycle. Status only ever advances; every transition re-checks the
// current status so a double submit fails instead of re-applying.
type PredictionService struct {
	predRepo *repository.PredictionRepository
	notifier Notifier
	cfg      *config.PredictionConfig
}

// NewPredictionService creates a new PredictionService instance.
func NewPredictionService(
	predRepo *repository.PredictionRepository,
	notifier Notifier,
	cfg *config.PredictionConfig,
) *PredictionService {
	return &PredictionService{
		predRepo: predRepo,
		notifier: notifier,
		cfg:      cfg,
	}
}

// Save validates a prediction form and persists it. Option rows are replaced
// only when the option texts changed, so is_correct flags survive edits that
// leave the options alone.
func (s *PredictionService) Save(ctx context.Context, form *PredictionForm) (*model.Prediction, error) {
	if !form.Type.IsValid() {
		return nil, Validationf("unknown prediction type")
	}

	question := strings.TrimSpace(form.Question)
	if question == "" {
		return nil, Validationf("question is required")
	}

	if len(form.Options) < minPredictionOptions || len(form.Options) > maxPredictionOptions {
		return nil, Validationf("a prediction needs between %d and %d options",
			minPredictionOptions, maxPredictionOptions)
	}
	options := make([]string, len(form.Options))
	for i, o := range form.Options {
		o = strings.TrimSpace(o)
		if o == "" {
			return nil, Validationf("option %d is empty", i+1)
		}
		options[i] = o
	}

	var current *model.Prediction
	if form.ID != 0 {
		var err error
		current, err = s.predRepo.GetByID(ctx, form.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to get prediction: %w", err)
		}
	}

	if _, err := s.predRepo.GetByQuestion(ctx, question, form.ID); err == nil {
		return nil, Validationf("a prediction with this question already exists")
	} else if !errors.Is(err, repository.ErrPredictionNotFound) {
		return nil, fmt.Errorf("failed to check question: %w", err)
	}

	status := model.PredictionStatusNew
	if current != nil {
		status = current.Status
	}

	now := time.Now()
	sendDate, endDate, cutOffDate, err := validateSchedule(form, current, status, now)
	if err != nil {
		return nil, err
	}

	replaceOptions := true
	if current != nil {
		existing, err := s.predRepo.GetOptions(ctx, form.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to get options: %w", err)
		}
		replaceOptions = !optionTextsEqual(model.OptionTexts(existing), options)
	}

	p := &model.Prediction{
		ID:                   form.ID,
		Type:                 form.Type,
		Status:               status,
		Question:             question,
		SendDate:             sendDate,
		EndDate:              endDate,
		CutOffDate:           cutOffDate,
		RefundWager:          form.RefundWager,
		MaxRefundWager:       form.MaxRefundWager,
		AllowMultipleChoices: form.AllowMultipleChoices,
		CanWithdrawBet:       form.CanWithdrawBet,
	}
	if current != nil {
		p.ResultSetDate = current.ResultSetDate
	}
	if p.RefundWager && p.MaxRefundWager == nil {
		p.MaxRefundWager = &s.cfg.MaxRefundableWager
	}

	saved, err := s.predRepo.SaveWithOptions(ctx, p, options, replaceOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to save prediction: %w", err)
	}

	log.Info().
		Int64("prediction_id", saved.ID).
		Str("status", saved.Status.String()).
		Bool("options_replaced", replaceOptions).
		Msg("prediction saved")
	return saved, nil
}

// validateSchedule applies the date ordering rules. A date whose stage has
// already passed is immutable: the stored value is kept and the input is
// ignored rather than rejected.
func validateSchedule(form *PredictionForm, current *model.Prediction, status model.PredictionStatus, now time.Time) (sendDate, endDate, cutOffDate *time.Time, err error) {
	sendDate = form.SendDate
	if status >= model.PredictionStatusSent {
		if current != nil {
			sendDate = current.SendDate
		}
	} else if sendDate != nil && sendDate.Before(now) {
		return nil, nil, nil, Validationf("send date cannot be in the past")
	}

	endDate = form.EndDate
	cutOffDate = form.CutOffDate
	if status >= model.PredictionStatusBetsClosed {
		if current != nil {
			endDate = current.EndDate
			cutOffDate = current.CutOffDate
		}
	} else {
		if endDate != nil && endDate.Before(now) {
			return nil, nil, nil, Validationf("end date cannot be in the past")
		}
		if cutOffDate != nil {
			if cutOffDate.After(now) {
				return nil, nil, nil, Validationf("cut-off date cannot be in the future")
			}
			if sendDate != nil && !cutOffDate.After(*sendDate) {
				return nil, nil, nil, Validationf("cut-off date must be after the send date")
			}
		}
	}

	if sendDate != nil && endDate != nil && !endDate.After(*sendDate) {
		return nil, nil, nil, Validationf("end date must be after the send date")
	}
	return sendDate, endDate, cutOffDate, nil
}

func optionTextsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Send transitions a prediction from New to Sent, stamps send_date and
// dispatches the send command to the bot. The prediction is returned even
// when delivery fails; the returned error then reports the failed dispatch.
func (s *PredictionService) Send(ctx context.Context, id int64) (*model.Prediction, error) {
	p, err := s.predRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get prediction: %w", err)
	}
	if p.Status != model.PredictionStatusNew {
		return nil, &StaleStateError{
			Entity:   "prediction",
			ID:       id,
			Expected: model.PredictionStatusNew.String(),
			Actual:   p.Status.String(),
		}
	}

	updated, err := s.predRepo.AdvanceStatus(ctx, id, p.Status, model.PredictionStatusSent, time.Now())
	if err != nil {
		return nil, err
	}
	log.Info().Int64("prediction_id", id).Msg("prediction sent")

	return updated, s.dispatch(ctx, tgrest.ActionSend, id)
}

// CloseBets transitions a prediction to Bets Closed, stamps end_date and
// dispatches the close command.
func (s *PredictionService) CloseBets(ctx context.Context, id int64) (*model.Prediction, error) {
	p, err := s.predRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get prediction: %w", err)
	}
	if p.Status >= model.PredictionStatusBetsClosed {
		return nil, &StaleStateError{
			Entity:   "prediction",
			ID:       id,
			Expected: "a status before " + model.PredictionStatusBetsClosed.String(),
			Actual:   p.Status.String(),
		}
	}

	updated, err := s.predRepo.AdvanceStatus(ctx, id, p.Status, model.PredictionStatusBetsClosed, time.Now())
	if err != nil {
		return nil, err
	}
	log.Info().Int64("prediction_id", id).Msg("prediction bets closed")

	return updated, s.dispatch(ctx, tgrest.ActionCloseBets, id)
}

// SetResults marks the given options correct, moves the prediction to Result
// Set and dispatches the results command. All other options stay incorrect.
func (s *PredictionService) SetResults(ctx context.Context, id int64, correctOptionIDs []int64) (*model.Prediction, error) {
	if len(correctOptionIDs) == 0 {
		return nil, Validationf("at least one correct option is required")
	}

	p, err := s.predRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get prediction: %w", err)
	}
	if p.Status >= model.PredictionStatusResultSet {
		return nil, &StaleStateError{
			Entity:   "prediction",
			ID:       id,
			Expected: "a status before " + model.PredictionStatusResultSet.String(),
			Actual:   p.Status.String(),
		}
	}

	options, err := s.predRepo.GetOptions(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get options: %w", err)
	}
	known := make(map[int64]bool, len(options))
	for _, o := range options {
		known[o.ID] = true
	}
	for _, optID := range correctOptionIDs {
		if !known[optID] {
			return nil, Validationf("option %d does not belong to this prediction", optID)
		}
	}

	updated, err := s.predRepo.SetResults(ctx, id, correctOptionIDs, time.Now())
	if err != nil {
		return nil, err
	}
	log.Info().
		Int64("prediction_id", id).
		Int("correct_options", len(correctOptionIDs)).
		Msg("prediction results set")

	return updated, s.dispatch(ctx, tgrest.ActionSetResults, id)
}

// Delete removes a prediction. Only a prediction that was never sent can be
// deleted.
func (s *PredictionService) Delete(ctx context.Context, id int64) error {
	p, err := s.predRepo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get prediction: %w", err)
	}
	if p.Status != model.PredictionStatusNew {
		return &StaleStateError{
			Entity:   "prediction",
			ID:       id,
			Expected: model.PredictionStatusNew.String(),
			Actual:   p.Status.String(),
		}
	}

	if err := s.predRepo.Delete(ctx, id); err != nil {
		return err
	}
	log.Info().Int64("prediction_id", id).Msg("prediction deleted")
	return nil
}

// Refresh asks the bot to re-render the live prediction message. The
// prediction must already be sent.
func (s *PredictionService) Refresh(ctx context.Context, id int64) error {
	return s.dispatchSentOnly(ctx, tgrest.ActionRefresh, id)
}

// Resend asks the bot to post the prediction message again.
func (s *PredictionService) Resend(ctx context.Context, id int64) error {
	return s.dispatchSentOnly(ctx, tgrest.ActionResend, id)
}

func (s *PredictionService) dispatchSentOnly(ctx context.Context, action tgrest.PredictionAction, id int64) error {
	p, err := s.predRepo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get prediction: %w", err)
	}
	if p.Status < model.PredictionStatusSent {
		return &StaleStateError{
			Entity:   "prediction",
			ID:       id,
			Expected: model.PredictionStatusSent.String() + " or later",
			Actual:   p.Status.String(),
		}
	}
	return s.dispatch(ctx, action, id)
}

func (s *PredictionService) dispatch(ctx context.Context, action tgrest.PredictionAction, id int64) error {
	err := s.notifier.Send(ctx, tgrest.Prediction{Action: action, PredictionID: id})
	if err != nil {
		log.Warn().Err(err).
			Int64("prediction_id", id).
			Str("action", string(action)).
			Msg("prediction command delivery failed")
	}
	return err
}

// Get retrieves a prediction with its options.
func (s *PredictionService) Get(ctx context.Context, id int64) (*model.Prediction, []*model.PredictionOption, error) {
	p, err := s.predRepo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get prediction: %w", err)
	}
	options, err := s.predRepo.GetOptions(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get options: %w", err)
	}
	return p, options, nil
}

// List retrieves predictions matching the question filter.
func (s *PredictionService) List(ctx context.Context, filter string, limit int) ([]*model.Prediction, error) {
	return s.predRepo.List(ctx, filter, limit)
}

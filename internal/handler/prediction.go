package handler

import (
	"context"
	"fmt"
	"strings"

	tele "gopkg.in/telebot.v3"

	"onepiece-admin/internal/config"
	"onepiece-admin/internal/model"
	"onepiece-admin/internal/service"
)

// PredictionHandler handles the prediction lifecycle commands.
type PredictionHandler struct {
	predictionService *service.PredictionService
	cfg               *config.Config
}

// NewPredictionHandler creates a new PredictionHandler.
func NewPredictionHandler(predictionService *service.PredictionService, cfg *config.Config) *PredictionHandler {
	return &PredictionHandler{
		predictionService: predictionService,
		cfg:               cfg,
	}
}

// HandlePredictions handles the /predictions command.
// Format: /predictions [filter]
func (h *PredictionHandler) HandlePredictions(c tele.Context) error {
	ctx := context.Background()
	filter := strings.TrimSpace(c.Message().Payload)

	predictions, err := h.predictionService.List(ctx, filter, h.cfg.List.MaxItems)
	if err != nil {
		return err
	}
	if len(predictions) == 0 {
		return c.Reply("No predictions found")
	}

	var sb strings.Builder
	sb.WriteString("🔮 Predictions\n\n")
	for _, p := range predictions {
		fmt.Fprintf(&sb, "#%d [%s] %s - %s\n", p.ID, p.Status, p.Question, p.Type)
	}
	return c.Reply(sb.String())
}

// HandleNew handles the /prediction_new command.
// Format: /prediction_new <Versus|Preference|Event> | <question> | <option> | <option> [| <option> ...]
// Trailing fields may set the schedule: send=<datetime>, cutoff=<datetime>, end=<datetime>.
func (h *PredictionHandler) HandleNew(c tele.Context) error {
	fields := splitFields(c.Message().Payload)
	if len(fields) < 4 {
		return service.Validationf(
			"usage: /prediction_new <Versus|Preference|Event> | <question> | <option> | <option> [| <option> ...]")
	}

	form, err := h.parseForm(fields, 0)
	if err != nil {
		return err
	}
	form.RefundWager = h.cfg.Prediction.RefundWagerDefault
	form.AllowMultipleChoices = h.cfg.Prediction.AllowMultipleChoicesDefault
	form.CanWithdrawBet = h.cfg.Prediction.CanWithdrawBetDefault

	p, err := h.predictionService.Save(context.Background(), form)
	if err != nil {
		return err
	}
	return c.Reply(fmt.Sprintf("✅ Prediction #%d created with %d options", p.ID, len(form.Options)))
}

// HandleEdit handles the /prediction_edit command.
// Format: /prediction_edit <id> | <Versus|Preference|Event> | <question> | <option> | <option> [| ...]
// Schedule fields work as in /prediction_new; dates whose stage has passed
// keep their stored value. The betting flags are kept as stored.
func (h *PredictionHandler) HandleEdit(c tele.Context) error {
	ctx := context.Background()
	fields := splitFields(c.Message().Payload)
	if len(fields) < 5 {
		return service.Validationf(
			"usage: /prediction_edit <id> | <Versus|Preference|Event> | <question> | <option> | <option> [| ...]")
	}
	id, err := parseID(fields[0], "prediction id")
	if err != nil {
		return err
	}

	form, err := h.parseForm(fields[1:], id)
	if err != nil {
		return err
	}
	current, _, err := h.predictionService.Get(ctx, id)
	if err != nil {
		return err
	}
	form.RefundWager = current.RefundWager
	form.MaxRefundWager = current.MaxRefundWager
	form.AllowMultipleChoices = current.AllowMultipleChoices
	form.CanWithdrawBet = current.CanWithdrawBet

	p, err := h.predictionService.Save(ctx, form)
	if err != nil {
		return err
	}
	return c.Reply(fmt.Sprintf("✅ Prediction #%d saved with %d options", p.ID, len(form.Options)))
}

// parseForm parses the shared type/question/options/schedule fields of
// /prediction_new and /prediction_edit.
func (h *PredictionHandler) parseForm(fields []string, id int64) (*service.PredictionForm, error) {
	form := &service.PredictionForm{
		ID:       id,
		Type:     model.PredictionType(fields[0]),
		Question: fields[1],
	}
	for _, field := range fields[2:] {
		key, value, found := strings.Cut(field, "=")
		key = strings.TrimSpace(key)
		if !found || (key != "send" && key != "cutoff" && key != "end") {
			form.Options = append(form.Options, field)
			continue
		}
		dt, err := parseDateTime(strings.TrimSpace(value))
		if err != nil {
			return nil, err
		}
		switch key {
		case "send":
			form.SendDate = &dt
		case "cutoff":
			form.CutOffDate = &dt
		case "end":
			form.EndDate = &dt
		}
	}
	return form, nil
}

// HandleSend handles the /prediction_send command.
// Format: /prediction_send <id>
func (h *PredictionHandler) HandleSend(c tele.Context) error {
	id, err := h.idArg(c, "/prediction_send")
	if err != nil {
		return err
	}

	p, err := h.predictionService.Send(context.Background(), id)
	if err != nil {
		return err
	}
	return c.Reply(fmt.Sprintf("✅ Prediction #%d sent at %s", p.ID, formatDate(p.SendDate)))
}

// HandleClose handles the /prediction_close command.
// Format: /prediction_close <id>
func (h *PredictionHandler) HandleClose(c tele.Context) error {
	id, err := h.idArg(c, "/prediction_close")
	if err != nil {
		return err
	}

	p, err := h.predictionService.CloseBets(context.Background(), id)
	if err != nil {
		return err
	}
	return c.Reply(fmt.Sprintf("✅ Bets closed for prediction #%d", p.ID))
}

// HandleResults handles the /prediction_results command.
// Format: /prediction_results <id> <option_id> [<option_id> ...]
func (h *PredictionHandler) HandleResults(c tele.Context) error {
	ctx := context.Background()
	args := c.Args()
	if len(args) < 2 {
		return service.Validationf("usage: /prediction_results <id> <option_id> [<option_id> ...]")
	}

	id, err := parseID(args[0], "prediction id")
	if err != nil {
		return err
	}
	optionIDs := make([]int64, 0, len(args)-1)
	for _, arg := range args[1:] {
		optID, err := parseID(arg, "option id")
		if err != nil {
			return err
		}
		optionIDs = append(optionIDs, optID)
	}

	p, err := h.predictionService.SetResults(ctx, id, optionIDs)
	if err != nil {
		return err
	}
	return c.Reply(fmt.Sprintf("✅ Results set for prediction #%d (%d correct)", p.ID, len(optionIDs)))
}

// HandleDelete handles the /prediction_delete command.
// Format: /prediction_delete <id>
func (h *PredictionHandler) HandleDelete(c tele.Context) error {
	id, err := h.idArg(c, "/prediction_delete")
	if err != nil {
		return err
	}

	if err := h.predictionService.Delete(context.Background(), id); err != nil {
		return err
	}
	return c.Reply(fmt.Sprintf("✅ Prediction #%d deleted", id))
}

// HandleRefresh handles the /prediction_refresh command.
// Format: /prediction_refresh <id>
func (h *PredictionHandler) HandleRefresh(c tele.Context) error {
	id, err := h.idArg(c, "/prediction_refresh")
	if err != nil {
		return err
	}

	if err := h.predictionService.Refresh(context.Background(), id); err != nil {
		return err
	}
	return c.Reply(fmt.Sprintf("✅ Refresh dispatched for prediction #%d", id))
}

// HandleResend handles the /prediction_resend command.
// Format: /prediction_resend <id>
func (h *PredictionHandler) HandleResend(c tele.Context) error {
	id, err := h.idArg(c, "/prediction_resend")
	if err != nil {
		return err
	}

	if err := h.predictionService.Resend(context.Background(), id); err != nil {
		return err
	}
	return c.Reply(fmt.Sprintf("✅ Resend dispatched for prediction #%d", id))
}

func (h *PredictionHandler) idArg(c tele.Context, usage string) (int64, error) {
	args := c.Args()
	if len(args) < 1 {
		return 0, service.Validationf("usage: %s <id>", usage)
	}
	return parseID(args[0], "prediction id")
}

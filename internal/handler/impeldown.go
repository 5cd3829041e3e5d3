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

// ImpelDownHandler handles disciplinary actions and their audit log.
type ImpelDownHandler struct {
	impelDownService *service.ImpelDownService
	cfg              *config.Config
}

// NewImpelDownHandler creates a new ImpelDownHandler.
func NewImpelDownHandler(impelDownService *service.ImpelDownService, cfg *config.Config) *ImpelDownHandler {
	return &ImpelDownHandler{
		impelDownService: impelDownService,
		cfg:              cfg,
	}
}

// HandleArrest handles the /arrest command.
// Format: /arrest <user_id> | <Temporary|Permanent|None> | <None|Halve|Erase> [| <release datetime>] [| <reason>]
// The release datetime is required for a Temporary sentence. Giving a reason
// sends a notification to the user.
func (h *ImpelDownHandler) HandleArrest(c tele.Context) error {
	ctx := context.Background()
	fields := splitFields(c.Message().Payload)
	if len(fields) < 3 {
		return service.Validationf(
			"usage: /arrest <user_id> | <Temporary|Permanent|None> | <None|Halve|Erase> [| <release %q>] [| <reason>]",
			datetimeLayout)
	}

	userID, err := parseID(fields[0], "user id")
	if err != nil {
		return err
	}

	form := &service.ImpelDownForm{
		UserID:       userID,
		SentenceType: model.SentenceType(fields[1]),
		BountyAction: model.BountyAction(fields[2]),
	}

	rest := fields[3:]
	if form.SentenceType == model.SentenceTemporary {
		if len(rest) == 0 {
			return service.Validationf("a temporary sentence needs a release datetime (%q)", datetimeLayout)
		}
		release, err := parseDateTime(rest[0])
		if err != nil {
			return err
		}
		form.ReleaseDateTime = &release
		rest = rest[1:]
	}
	if len(rest) > 0 {
		form.Reason = strings.Join(rest, " ")
		form.SendNotification = true
	}

	entry, err := h.impelDownService.Apply(ctx, form)
	if err != nil {
		return err
	}

	return c.Reply(fmt.Sprintf(
		"✅ Action applied (log #%d)\n\n"+
			"⚖️ Sentence: %s\n"+
			"₿ Bounty: %d → %d\n"+
			"📨 Notified: %t",
		entry.ID, fields[1], entry.PreviousBounty, entry.NewBounty, entry.MessageSent,
	))
}

// HandleRelease handles the /release command.
// Format: /release <user_id>
// Clears the arrest state without touching the bounty.
func (h *ImpelDownHandler) HandleRelease(c tele.Context) error {
	ctx := context.Background()
	args := c.Args()
	if len(args) < 1 {
		return service.Validationf("usage: /release <user_id>")
	}

	userID, err := parseID(args[0], "user id")
	if err != nil {
		return err
	}

	entry, err := h.impelDownService.Apply(ctx, &service.ImpelDownForm{
		UserID:       userID,
		SentenceType: model.SentenceNone,
		BountyAction: model.BountyActionNone,
	})
	if err != nil {
		return err
	}
	return c.Reply(fmt.Sprintf("✅ User released (log #%d)", entry.ID))
}

// HandleReverse handles the /reverse command.
// Format: /reverse <log_id>
func (h *ImpelDownHandler) HandleReverse(c tele.Context) error {
	ctx := context.Background()
	args := c.Args()
	if len(args) < 1 {
		return service.Validationf("usage: /reverse <log_id>")
	}

	logID, err := parseID(args[0], "log id")
	if err != nil {
		return err
	}

	reversed, err := h.impelDownService.Reverse(ctx, logID)
	if err != nil {
		return err
	}
	return c.Reply(fmt.Sprintf(
		"✅ Log #%d reversed, restored ₿%d to user #%d",
		reversed.ID, reversed.LostBounty(), reversed.UserID,
	))
}

// HandleLogs handles the /impeldown_logs command.
// Format: /impeldown_logs [filter]
func (h *ImpelDownHandler) HandleLogs(c tele.Context) error {
	ctx := context.Background()
	filter := strings.TrimSpace(c.Message().Payload)

	var logs []*model.ImpelDownLog
	var err error
	if filter == "" {
		logs, err = h.impelDownService.Recent(ctx, h.cfg.List.MaxItems)
	} else {
		logs, err = h.impelDownService.Search(ctx, filter, h.cfg.List.MaxItems)
	}
	if err != nil {
		return err
	}
	if len(logs) == 0 {
		return c.Reply("No log entries found")
	}

	var sb strings.Builder
	sb.WriteString("🔒 Impel Down log\n\n")
	for _, l := range logs {
		sentence := string(model.SentenceNone)
		if l.SentenceType != nil {
			sentence = string(*l.SentenceType)
		}
		fmt.Fprintf(&sb, "#%d user %d - %s, ₿%d → ₿%d", l.ID, l.UserID, sentence, l.PreviousBounty, l.NewBounty)
		if l.IsReversed {
			sb.WriteString(" (reversed)")
		}
		fmt.Fprintf(&sb, " - %s\n", l.DateTime.Format(datetimeLayout))
	}
	return c.Reply(sb.String())
}

package handler

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v3"

	"onepiece-admin/internal/config"
	"onepiece-admin/internal/model"
	"onepiece-admin/internal/service"
)

// WarlordHandler handles warlord appointments, edits and revocations.
type WarlordHandler struct {
	warlordService *service.WarlordService
	cfg            *config.Config
}

// NewWarlordHandler creates a new WarlordHandler.
func NewWarlordHandler(warlordService *service.WarlordService, cfg *config.Config) *WarlordHandler {
	return &WarlordHandler{
		warlordService: warlordService,
		cfg:            cfg,
	}
}

// HandleWarlords handles the /warlords command.
// Format: /warlords [filter]
// Without a filter the active grants are listed; with one, all grants are
// searched.
func (h *WarlordHandler) HandleWarlords(c tele.Context) error {
	ctx := context.Background()
	filter := strings.TrimSpace(c.Message().Payload)

	var warlords []*model.Warlord
	var err error
	if filter == "" {
		warlords, err = h.warlordService.List(ctx, true, h.cfg.List.MaxItems)
	} else {
		warlords, err = h.warlordService.Search(ctx, filter, false, h.cfg.List.MaxItems)
	}
	if err != nil {
		return err
	}
	if len(warlords) == 0 {
		return c.Reply("No warlords found")
	}

	var sb strings.Builder
	sb.WriteString("⚔️ Warlords\n\n")
	for _, w := range warlords {
		fmt.Fprintf(&sb, "#%d user %d - %q, until %s", w.ID, w.UserID, w.Epithet, w.EndDate.Format(datetimeLayout))
		if w.RevokeReason != nil {
			fmt.Fprintf(&sb, " (revoked: %s)", *w.RevokeReason)
		}
		sb.WriteString("\n")
	}
	return c.Reply(sb.String())
}

// HandleAppoint handles the /warlord_appoint command.
// Format: /warlord_appoint <user_id> | <days> | <epithet> | <reason>
func (h *WarlordHandler) HandleAppoint(c tele.Context) error {
	ctx := context.Background()
	fields := splitFields(c.Message().Payload)
	if len(fields) < 4 {
		return service.Validationf("usage: /warlord_appoint <user_id> | <days> | <epithet> | <reason>")
	}

	userID, err := parseID(fields[0], "user id")
	if err != nil {
		return err
	}
	days, err := strconv.Atoi(fields[1])
	if err != nil {
		return service.Validationf("days must be a number, got %q", fields[1])
	}

	w, err := h.warlordService.Appoint(ctx, userID, fields[2], fields[3], days)
	if err != nil {
		return err
	}
	return c.Reply(fmt.Sprintf(
		"✅ Warlord #%d appointed\n\n"+
			"👤 User: %d\n"+
			"🏴 Epithet: %q\n"+
			"📅 Until: %s",
		w.ID, w.UserID, w.Epithet, w.EndDate.Format(datetimeLayout),
	))
}

// HandleEdit handles the /warlord_edit command.
// Format: /warlord_edit <warlord_id> | <days> | <epithet> | <reason>
// Days count from the original appointment, not from today.
func (h *WarlordHandler) HandleEdit(c tele.Context) error {
	ctx := context.Background()
	fields := splitFields(c.Message().Payload)
	if len(fields) < 4 {
		return service.Validationf("usage: /warlord_edit <warlord_id> | <days> | <epithet> | <reason>")
	}

	warlordID, err := parseID(fields[0], "warlord id")
	if err != nil {
		return err
	}
	days, err := strconv.Atoi(fields[1])
	if err != nil {
		return service.Validationf("days must be a number, got %q", fields[1])
	}

	w, err := h.warlordService.Edit(ctx, warlordID, fields[2], fields[3], days)
	if err != nil {
		return err
	}
	return c.Reply(fmt.Sprintf(
		"✅ Warlord #%d updated, now ends %s", w.ID, w.EndDate.Format(datetimeLayout),
	))
}

// HandleRevoke handles the /warlord_revoke command.
// Format: /warlord_revoke <warlord_id> <reason>
func (h *WarlordHandler) HandleRevoke(c tele.Context) error {
	ctx := context.Background()
	args := c.Args()
	if len(args) < 2 {
		return service.Validationf("usage: /warlord_revoke <warlord_id> <reason>")
	}

	warlordID, err := parseID(args[0], "warlord id")
	if err != nil {
		return err
	}
	reason := strings.Join(args[1:], " ")

	w, err := h.warlordService.Revoke(ctx, warlordID, reason)
	if err != nil {
		return err
	}
	return c.Reply(fmt.Sprintf("✅ Warlord #%d revoked (user %d)", w.ID, w.UserID))
}

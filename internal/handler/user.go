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

// UserHandler handles the user browse surface and direct messaging.
type UserHandler struct {
	userService *service.UserService
	cfg         *config.Config
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(userService *service.UserService, cfg *config.Config) *UserHandler {
	return &UserHandler{
		userService: userService,
		cfg:         cfg,
	}
}

// HandleUsers handles the /users command.
// Format: /users [filter]
// Without a filter the most recently active users are shown.
func (h *UserHandler) HandleUsers(c tele.Context) error {
	ctx := context.Background()
	filter := strings.TrimSpace(c.Message().Payload)

	var users []*model.User
	var err error
	if filter == "" {
		users, err = h.userService.Recent(ctx, h.cfg.List.MaxItems)
	} else {
		users, err = h.userService.Search(ctx, filter, h.cfg.List.MaxItems)
	}
	if err != nil {
		return err
	}
	if len(users) == 0 {
		return c.Reply("No users found")
	}

	var sb strings.Builder
	sb.WriteString("👥 Users\n\n")
	for _, u := range users {
		fmt.Fprintf(&sb, "#%d %s - ₿%s", u.ID, u.DisplayName(true), u.BountyFormatted())
		if u.IsArrested() {
			sb.WriteString(" 🔒")
		}
		sb.WriteString("\n")
	}
	return c.Reply(sb.String())
}

// HandleUser handles the /user command.
// Format: /user <id>
func (h *UserHandler) HandleUser(c tele.Context) error {
	ctx := context.Background()
	args := c.Args()
	if len(args) < 1 {
		return service.Validationf("usage: /user <id>")
	}

	id, err := parseID(args[0], "user id")
	if err != nil {
		return err
	}

	u, err := h.userService.Get(ctx, id)
	if err != nil {
		return err
	}

	arrest := "free"
	if u.IsArrested() {
		if u.ImpelDownIsPermanent {
			arrest = "in Impel Down (permanent)"
		} else {
			arrest = "in Impel Down until " + formatDate(u.ImpelDownReleaseDate)
		}
	}

	return c.Reply(fmt.Sprintf(
		"👤 %s\n\n"+
			"🆔 %s\n"+
			"₿ Bounty: %s\n"+
			"⏳ Pending bounty: %d\n"+
			"🔒 Status: %s\n"+
			"💬 Last message: %s",
		u.DisplayName(false), u.TgUserID, u.BountyFormatted(),
		u.PendingBounty, arrest, u.LastMessageDate.Format(datetimeLayout),
	))
}

// HandlePrivateMessage handles the /pm command.
// Format: /pm <user_id> <message>
func (h *UserHandler) HandlePrivateMessage(c tele.Context) error {
	ctx := context.Background()
	args := c.Args()
	if len(args) < 2 {
		return service.Validationf("usage: /pm <user_id> <message>")
	}

	id, err := parseID(args[0], "user id")
	if err != nil {
		return err
	}
	message := strings.Join(args[1:], " ")

	if err := h.userService.SendPrivateMessage(ctx, id, message); err != nil {
		return err
	}
	return c.Reply("✅ Message dispatched")
}

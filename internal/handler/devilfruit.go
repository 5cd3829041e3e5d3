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

// DevilFruitHandler handles the devil fruit management commands.
type DevilFruitHandler struct {
	fruitService *service.DevilFruitService
	cfg          *config.Config
}

// NewDevilFruitHandler creates a new DevilFruitHandler.
func NewDevilFruitHandler(fruitService *service.DevilFruitService, cfg *config.Config) *DevilFruitHandler {
	return &DevilFruitHandler{
		fruitService: fruitService,
		cfg:          cfg,
	}
}

// HandleFruits handles the /fruits command.
// Format: /fruits [filter]
func (h *DevilFruitHandler) HandleFruits(c tele.Context) error {
	ctx := context.Background()
	filter := strings.TrimSpace(c.Message().Payload)

	fruits, err := h.fruitService.List(ctx, nil, filter, h.cfg.List.MaxItems)
	if err != nil {
		return err
	}
	if len(fruits) == 0 {
		return c.Reply("No devil fruits found")
	}

	var sb strings.Builder
	sb.WriteString("🍇 Devil Fruits\n\n")
	for _, f := range fruits {
		owned := ""
		if f.OwnerID != nil {
			owned = " 👤"
		}
		fmt.Fprintf(&sb, "#%d [%s] %s - %s%s\n", f.ID, f.Status, f.FullName(), f.Category, owned)
	}
	return c.Reply(sb.String())
}

// HandleNew handles the /fruit_new command.
// Format: /fruit_new <category> | <name> | <model or -> | <type=value,type=value,...> [| enabled]
// Ability types are given by number, 1 through 7.
func (h *DevilFruitHandler) HandleNew(c tele.Context) error {
	form, err := h.parseForm(splitFields(c.Message().Payload), 0)
	if err != nil {
		return err
	}

	f, err := h.fruitService.Save(context.Background(), form)
	if err != nil {
		return err
	}
	return c.Reply(fmt.Sprintf("✅ Devil fruit #%d saved: %s [%s]", f.ID, f.FullName(), f.Status))
}

// HandleEdit handles the /fruit_edit command.
// Format: /fruit_edit <id> | <category> | <name> | <model or -> | <type=value,...> [| enabled]
func (h *DevilFruitHandler) HandleEdit(c tele.Context) error {
	fields := splitFields(c.Message().Payload)
	if len(fields) < 2 {
		return service.Validationf(
			"usage: /fruit_edit <id> | <category> | <name> | <model or -> | <type=value,...> [| enabled]")
	}
	id, err := parseID(fields[0], "devil fruit id")
	if err != nil {
		return err
	}

	form, err := h.parseForm(fields[1:], id)
	if err != nil {
		return err
	}

	f, err := h.fruitService.Save(context.Background(), form)
	if err != nil {
		return err
	}
	return c.Reply(fmt.Sprintf("✅ Devil fruit #%d saved: %s [%s]", f.ID, f.FullName(), f.Status))
}

// HandleAward handles the /fruit_award command.
// Format: /fruit_award <fruit_id> | <user_id> | <reason>
func (h *DevilFruitHandler) HandleAward(c tele.Context) error {
	fields := splitFields(c.Message().Payload)
	if len(fields) < 3 {
		return service.Validationf("usage: /fruit_award <fruit_id> | <user_id> | <reason>")
	}

	fruitID, err := parseID(fields[0], "devil fruit id")
	if err != nil {
		return err
	}
	userID, err := parseID(fields[1], "user id")
	if err != nil {
		return err
	}

	if err := h.fruitService.Award(context.Background(), fruitID, userID, fields[2]); err != nil {
		return err
	}
	return c.Reply(fmt.Sprintf("✅ Devil fruit #%d awarded to user #%d", fruitID, userID))
}

// HandleDelete handles the /fruit_delete command.
// Format: /fruit_delete <id>
func (h *DevilFruitHandler) HandleDelete(c tele.Context) error {
	args := c.Args()
	if len(args) < 1 {
		return service.Validationf("usage: /fruit_delete <id>")
	}
	id, err := parseID(args[0], "devil fruit id")
	if err != nil {
		return err
	}

	if err := h.fruitService.Delete(context.Background(), id); err != nil {
		return err
	}
	return c.Reply(fmt.Sprintf("✅ Devil fruit #%d deleted", id))
}

// parseForm parses the shared category/name/model/abilities/enabled fields of
// /fruit_new and /fruit_edit. The model field is "-" for categories without
// a model.
func (h *DevilFruitHandler) parseForm(fields []string, id int64) (*service.DevilFruitForm, error) {
	if len(fields) < 4 {
		return nil, service.Validationf(
			"usage: /fruit_new <category> | <name> | <model or -> | <type=value,...> [| enabled]")
	}

	category, err := model.ParseDevilFruitCategory(fields[0])
	if err != nil {
		return nil, service.Validationf("unknown category %q", fields[0])
	}

	fruitModel := fields[2]
	if fruitModel == "-" {
		fruitModel = ""
	}

	abilities, err := parseAbilities(fields[3])
	if err != nil {
		return nil, err
	}

	enabled := false
	if len(fields) > 4 {
		if !strings.EqualFold(fields[4], "enabled") {
			return nil, service.Validationf("unexpected field %q, did you mean \"enabled\"?", fields[4])
		}
		enabled = true
	}

	return &service.DevilFruitForm{
		ID:        id,
		Category:  category,
		Name:      fields[1],
		Model:     fruitModel,
		Abilities: abilities,
		Enabled:   enabled,
	}, nil
}

// parseAbilities parses a comma-separated "type=value" list, where type is
// the numeric ability type.
func parseAbilities(arg string) ([]service.AbilityInput, error) {
	pairs := strings.Split(arg, ",")
	inputs := make([]service.AbilityInput, 0, len(pairs))
	for _, pair := range pairs {
		key, value, found := strings.Cut(strings.TrimSpace(pair), "=")
		if !found {
			return nil, service.Validationf("abilities must look like \"1=50,2=50\", got %q", pair)
		}
		typeNum, err := strconv.Atoi(strings.TrimSpace(key))
		if err != nil {
			return nil, service.Validationf("ability type must be a number, got %q", key)
		}
		v, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return nil, service.Validationf("ability value must be a number, got %q", value)
		}
		inputs = append(inputs, service.AbilityInput{
			Type:  model.DevilFruitAbilityType(typeNum),
			Value: v,
		})
	}
	return inputs, nil
}

package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"onepiece-admin/internal/config"
	"onepiece-admin/internal/model"
	"onepiece-admin/internal/repository"
	"onepiece-admin/internal/tgrest"
)

// AbilityInput is one ability row of a fruit form, in form order. Order
// matters: the sum check fails on the first ability that pushes the running
// sum over the category maximum.
type AbilityInput struct {
	Type  model.DevilFruitAbilityType
	Value int
}

// DevilFruitForm is the moderator input for creating or editing a fruit.
// ID is zero for a new fruit.
type DevilFruitForm struct {
	ID        int64
	Category  model.DevilFruitCategory
	Name      string
	Model     string
	Abilities []AbilityInput
	Enabled   bool
}

// DevilFruitService validates and persists devil fruits and their abilities.
type DevilFruitService struct {
	fruitRepo *repository.DevilFruitRepository
	userRepo  *repository.UserRepository
	notifier  Notifier
	cfg       *config.DevilFruitConfig
}

// NewDevilFruitService creates a new DevilFruitService instance.
func NewDevilFruitService(
	fruitRepo *repository.DevilFruitRepository,
	userRepo *repository.UserRepository,
	notifier Notifier,
	cfg *config.DevilFruitConfig,
) *DevilFruitService {
	return &DevilFruitService{
		fruitRepo: fruitRepo,
		userRepo:  userRepo,
		notifier:  notifier,
		cfg:       cfg,
	}
}

// ComposeFruitName normalizes a fruit name. A single word W expands to
// "W W no Mi"; a 4-word name is kept. Words are title-cased, with the
// connector "no" forced back to lowercase.
func ComposeFruitName(name string) (string, error) {
	words := strings.Fields(name)
	switch len(words) {
	case 1:
		w := titleWord(words[0])
		return fmt.Sprintf("%s %s no Mi", w, w), nil
	case 4:
		for i, w := range words {
			words[i] = titleWord(w)
		}
		composed := strings.Join(words, " ")
		return strings.ReplaceAll(composed, " No Mi", " no Mi"), nil
	default:
		return "", Validationf("fruit name must be 1 or 4 words, got %d", len(words))
	}
}

func titleWord(w string) string {
	if w == "" {
		return w
	}
	return strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
}

// ValidateAbilities checks the ability rows of a fruit form and returns the
// rows to persist together with their sum. Values must be non-zero and
// within the configured range, each type may appear once, and the running
// sum fails on the first value that pushes it over the maximum.
func ValidateAbilities(cfg *config.DevilFruitConfig, inputs []AbilityInput) ([]*model.DevilFruitAbility, int, error) {
	sum := 0
	seen := make(map[model.DevilFruitAbilityType]bool, len(inputs))
	abilities := make([]*model.DevilFruitAbility, 0, len(inputs))
	for _, a := range inputs {
		if !a.Type.IsValid() {
			return nil, 0, Validationf("unknown ability type")
		}
		if a.Value == 0 {
			return nil, 0, Validationf("ability %s must have a non-zero value", a.Type)
		}
		if a.Value < cfg.AbilityMinValue || a.Value > cfg.AbilityMaxValue {
			return nil, 0, Validationf("ability %s must be between %d and %d",
				a.Type, cfg.AbilityMinValue, cfg.AbilityMaxValue)
		}
		if seen[a.Type] {
			return nil, 0, Validationf("ability %s appears twice", a.Type)
		}
		sum += a.Value
		if sum > cfg.AbilitiesMaxSum {
			return nil, 0, Validationf("ability values exceed the maximum sum of %d", cfg.AbilitiesMaxSum)
		}
		seen[a.Type] = true
		abilities = append(abilities, &model.DevilFruitAbility{
			AbilityType: a.Type,
			Value:       a.Value,
		})
	}
	return abilities, sum, nil
}

// Save validates a fruit form and persists the fruit together with its full
// ability set. The resulting status is New, Completed or Enabled depending
// on the ability sum and the enable flag.
func (s *DevilFruitService) Save(ctx context.Context, form *DevilFruitForm) (*model.DevilFruit, error) {
	if !form.Category.IsValid() {
		return nil, Validationf("unknown fruit category")
	}

	name, err := ComposeFruitName(form.Name)
	if err != nil {
		return nil, err
	}

	fruitModel := strings.TrimSpace(form.Model)
	if form.Category.RequiresModel() {
		if fruitModel == "" {
			return nil, Validationf("category %s requires a model", form.Category)
		}
		fruitModel = titleWord(fruitModel)
	} else if fruitModel != "" {
		return nil, Validationf("category %s does not take a model", form.Category)
	}

	var modelPtr *string
	if fruitModel != "" {
		modelPtr = &fruitModel
	}

	// Editing is only allowed until the fruit enters the bot release flow.
	if form.ID != 0 {
		existing, err := s.fruitRepo.GetByID(ctx, form.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to get fruit: %w", err)
		}
		if !existing.Status.IsEditable() {
			return nil, &StaleStateError{
				Entity:   "devil fruit",
				ID:       form.ID,
				Expected: "an editable status",
				Actual:   existing.Status.String(),
			}
		}
	}

	if _, err := s.fruitRepo.GetByNameAndModel(ctx, name, modelPtr, form.ID); err == nil {
		return nil, Validationf("a fruit named %q already exists", name)
	} else if !errors.Is(err, repository.ErrDevilFruitNotFound) {
		return nil, fmt.Errorf("failed to check fruit name: %w", err)
	}

	abilities, sum, err := ValidateAbilities(s.cfg, form.Abilities)
	if err != nil {
		return nil, err
	}
	abilityMap := make(map[model.DevilFruitAbilityType]int, len(abilities))
	for _, a := range abilities {
		abilityMap[a.AbilityType] = a.Value
	}

	completed := sum == s.cfg.AbilitiesRequiredSum
	if form.Enabled && !completed {
		return nil, Validationf("fruit cannot be enabled: ability sum is %d, required %d",
			sum, s.cfg.AbilitiesRequiredSum)
	}
	if form.Enabled && form.Category == model.CategoryMythicalZoan {
		return nil, Validationf("a Mythical Zoan fruit cannot be enabled directly")
	}

	if completed {
		if err := s.checkDuplicateAbilities(ctx, form.ID, abilityMap); err != nil {
			return nil, err
		}
	}

	status := model.FruitStatusNew
	if completed {
		status = model.FruitStatusCompleted
	}
	if form.Enabled {
		status = model.FruitStatusEnabled
	}

	fruit := &model.DevilFruit{
		ID:       form.ID,
		Category: form.Category,
		Name:     name,
		Model:    modelPtr,
		Status:   status,
	}
	saved, err := s.fruitRepo.SaveWithAbilities(ctx, fruit, abilities)
	if err != nil {
		return nil, fmt.Errorf("failed to save fruit: %w", err)
	}

	log.Info().
		Int64("fruit_id", saved.ID).
		Str("name", saved.FullName()).
		Str("status", saved.Status.String()).
		Msg("devil fruit saved")
	return saved, nil
}

// checkDuplicateAbilities rejects an ability mapping identical to another
// completed-or-later fruit's mapping. The fruit being edited is excluded so
// re-saving its own mapping never fails.
func (s *DevilFruitService) checkDuplicateAbilities(ctx context.Context, selfID int64, abilityMap map[model.DevilFruitAbilityType]int) error {
	existing, err := s.fruitRepo.CompletedAbilityMaps(ctx)
	if err != nil {
		return fmt.Errorf("failed to load ability maps: %w", err)
	}
	for fruitID, m := range existing {
		if fruitID == selfID {
			continue
		}
		if abilityMapsEqual(abilityMap, m) {
			return Validationf("another fruit already has this exact ability set")
		}
	}
	return nil
}

func abilityMapsEqual(a, b map[model.DevilFruitAbilityType]int) bool {
	if len(a) != len(b) {
		return false
	}
	for t, v := range a {
		if b[t] != v {
			return false
		}
	}
	return true
}

// Award dispatches a fruit award to a user through the live bot. The fruit
// must be Completed or Enabled; the award itself is applied by the bot flow.
func (s *DevilFruitService) Award(ctx context.Context, fruitID, userID int64, reason string) error {
	if strings.TrimSpace(reason) == "" {
		return Validationf("award reason is required")
	}

	fruit, err := s.fruitRepo.GetByID(ctx, fruitID)
	if err != nil {
		return fmt.Errorf("failed to get fruit: %w", err)
	}
	if fruit.Status != model.FruitStatusCompleted && fruit.Status != model.FruitStatusEnabled {
		return &StaleStateError{
			Entity:   "devil fruit",
			ID:       fruitID,
			Expected: "Completed or Enabled",
			Actual:   fruit.Status.String(),
		}
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}

	if err := s.notifier.Send(ctx, tgrest.DevilFruitAward{
		UserID:       user.ID,
		DevilFruitID: fruit.ID,
		Reason:       reason,
	}); err != nil {
		return err
	}

	log.Info().
		Int64("fruit_id", fruit.ID).
		Int64("user_id", user.ID).
		Msg("devil fruit award dispatched")
	return nil
}

// Delete removes a fruit and its abilities. Only fruits that have not yet
// entered the bot release flow can be deleted.
func (s *DevilFruitService) Delete(ctx context.Context, fruitID int64) error {
	fruit, err := s.fruitRepo.GetByID(ctx, fruitID)
	if err != nil {
		return fmt.Errorf("failed to get fruit: %w", err)
	}
	if !fruit.Status.IsEditable() {
		return &StaleStateError{
			Entity:   "devil fruit",
			ID:       fruitID,
			Expected: "an editable status",
			Actual:   fruit.Status.String(),
		}
	}

	if err := s.fruitRepo.Delete(ctx, fruitID); err != nil {
		return fmt.Errorf("failed to delete fruit: %w", err)
	}
	log.Info().Int64("fruit_id", fruitID).Msg("devil fruit deleted")
	return nil
}

// Get retrieves a fruit with its abilities.
func (s *DevilFruitService) Get(ctx context.Context, fruitID int64) (*model.DevilFruit, []*model.DevilFruitAbility, error) {
	fruit, err := s.fruitRepo.GetByID(ctx, fruitID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get fruit: %w", err)
	}
	abilities, err := s.fruitRepo.GetAbilities(ctx, fruitID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get fruit abilities: %w", err)
	}
	return fruit, abilities, nil
}

// List retrieves fruits filtered by status and name substring.
func (s *DevilFruitService) List(ctx context.Context, statuses []model.DevilFruitStatus, nameFilter string, limit int) ([]*model.DevilFruit, error) {
	return s.fruitRepo.List(ctx, statuses, nameFilter, limit)
}

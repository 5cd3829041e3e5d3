package model

import "fmt"

// DevilFruitCategory classifies a devil fruit. Values match the ones stored
// by the bot process, so they must never be renumbered.
type DevilFruitCategory int16

const (
	CategoryLogia DevilFruitCategory = iota + 1
	CategoryParamecia
	CategoryZoan
	CategoryAncientZoan
	CategoryMythicalZoan
)

var categoryDescriptions = map[DevilFruitCategory]string{
	CategoryLogia:        "Logia",
	CategoryParamecia:    "Paramecia",
	CategoryZoan:         "Zoan",
	CategoryAncientZoan:  "Ancient Zoan",
	CategoryMythicalZoan: "Mythical Zoan",
}

// String returns the category description.
func (c DevilFruitCategory) String() string {
	if desc, ok := categoryDescriptions[c]; ok {
		return desc
	}
	return fmt.Sprintf("DevilFruitCategory(%d)", int16(c))
}

// IsValid reports whether the category is a known value.
func (c DevilFruitCategory) IsValid() bool {
	_, ok := categoryDescriptions[c]
	return ok
}

// RequiresModel reports whether fruits of this category must carry a model.
// Only the Zoan family has models.
func (c DevilFruitCategory) RequiresModel() bool {
	return c == CategoryZoan || c == CategoryAncientZoan || c == CategoryMythicalZoan
}

// ParseDevilFruitCategory resolves a category from its description.
func ParseDevilFruitCategory(s string) (DevilFruitCategory, error) {
	for c, desc := range categoryDescriptions {
		if desc == s {
			return c, nil
		}
	}
	return 0, fmt.Errorf("unknown devil fruit category: %q", s)
}

// DevilFruitStatus is the lifecycle position of a devil fruit. The order is
// meaningful: statuses are compared with inequality to gate admin actions.
type DevilFruitStatus int16

const (
	FruitStatusNew DevilFruitStatus = iota + 1
	FruitStatusCompleted
	FruitStatusEnabled
	FruitStatusEnqueued
	FruitStatusReleased
	FruitStatusCollected
	FruitStatusEaten
)

var fruitStatusDescriptions = map[DevilFruitStatus]string{
	FruitStatusNew:       "New",
	FruitStatusCompleted: "Completed",
	FruitStatusEnabled:   "Enabled",
	FruitStatusEnqueued:  "Enqueued",
	FruitStatusReleased:  "Released",
	FruitStatusCollected: "Collected",
	FruitStatusEaten:     "Eaten",
}

func (s DevilFruitStatus) String() string {
	if desc, ok := fruitStatusDescriptions[s]; ok {
		return desc
	}
	return fmt.Sprintf("DevilFruitStatus(%d)", int16(s))
}

// IsCompleted reports whether the fruit has its full ability set
// (Completed or any later status).
func (s DevilFruitStatus) IsCompleted() bool {
	return s >= FruitStatusCompleted
}

// IsEditable reports whether the fruit can still be modified by an admin.
// Once enqueued for release it belongs to the bot flow.
func (s DevilFruitStatus) IsEditable() bool {
	return s <= FruitStatusEnabled
}

// ParseDevilFruitStatus resolves a status from its description.
func ParseDevilFruitStatus(desc string) (DevilFruitStatus, error) {
	for s, d := range fruitStatusDescriptions {
		if d == desc {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown devil fruit status: %q", desc)
}

// DevilFruitAbilityType identifies the stat a fruit ability contributes to.
type DevilFruitAbilityType int16

const (
	AbilityDocQCooldownDuration DevilFruitAbilityType = iota + 1
	AbilityFightCooldownDuration
	AbilityFightImmunityDuration
	AbilityFightDefenseBoost
	AbilityChallengeCooldownDuration
	AbilityPredictionWagerRefund
	AbilityGiftTax
)

var abilityTypeDescriptions = map[DevilFruitAbilityType]string{
	AbilityDocQCooldownDuration:      "Doc Q Cooldown Duration",
	AbilityFightCooldownDuration:     "Fight Cooldown Duration",
	AbilityFightImmunityDuration:     "Fight Immunity Duration",
	AbilityFightDefenseBoost:         "Fight Defense Boost",
	AbilityChallengeCooldownDuration: "Challenge Cooldown Duration",
	AbilityPredictionWagerRefund:     "Prediction Wager Refund",
	AbilityGiftTax:                   "Gift Tax",
}

func (t DevilFruitAbilityType) String() string {
	if desc, ok := abilityTypeDescriptions[t]; ok {
		return desc
	}
	return fmt.Sprintf("DevilFruitAbilityType(%d)", int16(t))
}

// IsValid reports whether the ability type is a known value.
func (t DevilFruitAbilityType) IsValid() bool {
	_, ok := abilityTypeDescriptions[t]
	return ok
}

// AbilityTypes returns all ability types in declaration order.
func AbilityTypes() []DevilFruitAbilityType {
	return []DevilFruitAbilityType{
		AbilityDocQCooldownDuration,
		AbilityFightCooldownDuration,
		AbilityFightImmunityDuration,
		AbilityFightDefenseBoost,
		AbilityChallengeCooldownDuration,
		AbilityPredictionWagerRefund,
		AbilityGiftTax,
	}
}

// PredictionStatus is the lifecycle position of a prediction poll.
// Status only ever advances: New -> Sent -> BetsClosed -> ResultSet.
type PredictionStatus int16

const (
	PredictionStatusNew PredictionStatus = iota + 1
	PredictionStatusSent
	PredictionStatusBetsClosed
	PredictionStatusResultSet
)

var predictionStatusDescriptions = map[PredictionStatus]string{
	PredictionStatusNew:        "New",
	PredictionStatusSent:       "Sent",
	PredictionStatusBetsClosed: "Bets Closed",
	PredictionStatusResultSet:  "Result Set",
}

func (s PredictionStatus) String() string {
	if desc, ok := predictionStatusDescriptions[s]; ok {
		return desc
	}
	return fmt.Sprintf("PredictionStatus(%d)", int16(s))
}

// PredictionType is the flavour of a prediction poll.
type PredictionType string

const (
	PredictionTypeVersus     PredictionType = "Versus"
	PredictionTypePreference PredictionType = "Preference"
	PredictionTypeEvent      PredictionType = "Event"
)

// IsValid reports whether the prediction type is a known value.
func (t PredictionType) IsValid() bool {
	switch t {
	case PredictionTypeVersus, PredictionTypePreference, PredictionTypeEvent:
		return true
	}
	return false
}

// SentenceType is the kind of Impel Down sentence applied to a user.
type SentenceType string

const (
	SentenceNone      SentenceType = "None"
	SentenceTemporary SentenceType = "Temporary"
	SentencePermanent SentenceType = "Permanent"
)

// IsValid reports whether the sentence type is a known value.
func (t SentenceType) IsValid() bool {
	switch t {
	case SentenceNone, SentenceTemporary, SentencePermanent:
		return true
	}
	return false
}

// BountyAction is the bounty effect of an Impel Down sentence.
type BountyAction string

const (
	BountyActionNone  BountyAction = "None"
	BountyActionHalve BountyAction = "Halve"
	BountyActionErase BountyAction = "Erase"
)

// IsValid reports whether the bounty action is a known value.
func (a BountyAction) IsValid() bool {
	switch a {
	case BountyActionNone, BountyActionHalve, BountyActionErase:
		return true
	}
	return false
}

// Apply returns the bounty after the action.
func (a BountyAction) Apply(bounty int64) int64 {
	switch a {
	case BountyActionHalve:
		return bounty / 2
	case BountyActionErase:
		return 0
	default:
		return bounty
	}
}

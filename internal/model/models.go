// Package model defines the data models shared between the admin console
// and the community bot's database.
package model

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
)

// User is a community member. Rows are created by the bot on first
// interaction; the admin console only mutates them.
type User struct {
	ID                   int64      `db:"id"`
	TgUserID             string     `db:"tg_user_id"`
	TgFirstName          string     `db:"tg_first_name"`
	TgLastName           *string    `db:"tg_last_name"`
	TgUsername           *string    `db:"tg_username"`
	Bounty               int64      `db:"bounty"`
	PendingBounty        int64      `db:"pending_bounty"`
	ImpelDownReleaseDate *time.Time `db:"impel_down_release_date"`
	ImpelDownIsPermanent bool       `db:"impel_down_is_permanent"`
	CrewID               *int64     `db:"crew_id"`
	LastMessageDate      time.Time  `db:"last_message_date"`
}

// IsArrested reports whether the user is currently in Impel Down.
func (u *User) IsArrested() bool {
	if u.ImpelDownIsPermanent {
		return true
	}
	return u.ImpelDownReleaseDate != nil && u.ImpelDownReleaseDate.After(time.Now())
}

// BountyFormatted returns the bounty with thousands separators, e.g. 1,000,000.
func (u *User) BountyFormatted() string {
	return humanize.Comma(u.Bounty)
}

// DisplayName returns the user's name, username and optionally telegram id,
// in the form "First Last (@username) - 123456".
func (u *User) DisplayName(withUserID bool) string {
	name := u.TgFirstName
	if u.TgLastName != nil {
		name += " " + *u.TgLastName
	}
	if u.TgUsername != nil {
		name += " (@" + *u.TgUsername + ")"
	}
	if withUserID {
		name += " - " + u.TgUserID
	}
	return name
}

// DevilFruit is a collectible power-up item.
type DevilFruit struct {
	ID                  int64              `db:"id"`
	Category            DevilFruitCategory `db:"category"`
	Name                string             `db:"name"`
	Model               *string            `db:"model"`
	Status              DevilFruitStatus   `db:"status"`
	OwnerID             *int64             `db:"owner_id"`
	CollectionDate      *time.Time         `db:"collection_date"`
	EatenDate           *time.Time         `db:"eaten_date"`
	ReleaseDate         *time.Time         `db:"release_date"`
	ShouldShowAbilities bool               `db:"should_show_abilities"`
}

// FullName returns the fruit name including the model, if any.
func (f *DevilFruit) FullName() string {
	if f.Model != nil {
		return fmt.Sprintf("%s, Model: %s", f.Name, *f.Model)
	}
	return f.Name
}

// DevilFruitAbility is one stat contribution of a fruit. Abilities are always
// replaced as a full set, never updated row by row.
type DevilFruitAbility struct {
	ID           int64                 `db:"id"`
	DevilFruitID int64                 `db:"devil_fruit_id"`
	AbilityType  DevilFruitAbilityType `db:"ability_type"`
	Value        int                   `db:"value"`
}

// AbilityMap converts a list of ability rows to a type -> value mapping.
func AbilityMap(abilities []*DevilFruitAbility) map[DevilFruitAbilityType]int {
	m := make(map[DevilFruitAbilityType]int, len(abilities))
	for _, a := range abilities {
		m[a.AbilityType] = a.Value
	}
	return m
}

// Prediction is a poll users can bet on.
type Prediction struct {
	ID                   int64            `db:"id"`
	Type                 PredictionType   `db:"type"`
	Status               PredictionStatus `db:"status"`
	Question             string           `db:"question"`
	SendDate             *time.Time       `db:"send_date"`
	EndDate              *time.Time       `db:"end_date"`
	CutOffDate           *time.Time       `db:"cut_off_date"`
	RefundWager          bool             `db:"refund_wager"`
	MaxRefundWager       *int64           `db:"max_refund_wager"`
	AllowMultipleChoices bool             `db:"allow_multiple_choices"`
	CanWithdrawBet       bool             `db:"can_withdraw_bet"`
	ResultSetDate        *time.Time       `db:"result_set_date"`
}

// PredictionOption is one selectable answer of a prediction.
type PredictionOption struct {
	ID           int64  `db:"id"`
	PredictionID int64  `db:"prediction_id"`
	Option       string `db:"option"`
	IsCorrect    bool   `db:"is_correct"`
}

// OptionTexts returns the option texts in storage order.
func OptionTexts(options []*PredictionOption) []string {
	texts := make([]string, len(options))
	for i, o := range options {
		texts[i] = o.Option
	}
	return texts
}

// Warlord is a time-boxed role grant. A grant is active while its end date is
// in the future; revocation ends it immediately.
type Warlord struct {
	ID              int64     `db:"id"`
	UserID          int64     `db:"user_id"`
	Epithet         string    `db:"epithet"`
	Reason          string    `db:"reason"`
	Date            time.Time `db:"date"`
	EndDate         time.Time `db:"end_date"`
	OriginalEndDate time.Time `db:"original_end_date"`
	RevokeReason    *string   `db:"revoke_reason"`
}

// IsActive reports whether the grant is still running at the given instant.
func (w *Warlord) IsActive(now time.Time) bool {
	return w.EndDate.After(now)
}

// EndDateByDuration returns the end date for a duration in days counted from
// the original grant start, not from now.
func (w *Warlord) EndDateByDuration(durationDays int) time.Time {
	return w.Date.Add(time.Duration(durationDays) * 24 * time.Hour)
}

// ImpelDownLog is the audit record of one disciplinary action. Logs are never
// deleted; a reversal only flips IsReversed and restores the bounty delta.
type ImpelDownLog struct {
	ID              int64         `db:"id"`
	UserID          int64         `db:"user_id"`
	SentenceType    *SentenceType `db:"sentence_type"`
	ReleaseDateTime *time.Time    `db:"release_date_time"`
	IsPermanent     bool          `db:"is_permanent"`
	BountyAction    *BountyAction `db:"bounty_action"`
	Reason          *string       `db:"reason"`
	PreviousBounty  int64         `db:"previous_bounty"`
	NewBounty       int64         `db:"new_bounty"`
	MessageSent     bool          `db:"message_sent"`
	IsReversed      bool          `db:"is_reversed"`
	DateTime        time.Time     `db:"date_time"`
}

// LostBounty returns the bounty delta recorded at creation, the exact amount
// a reversal restores.
func (l *ImpelDownLog) LostBounty() int64 {
	return l.PreviousBounty - l.NewBounty
}

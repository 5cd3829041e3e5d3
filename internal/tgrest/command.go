// Package tgrest implements the outbound command channel to the live bot
// process. Commands are JSON payloads tagged with an object type and the
// identity of the sending bot; delivery is a single synchronous POST with no
// retries.
package tgrest

import "time"

// Kind discriminates the command payloads understood by the bot process.
type Kind string

const (
	KindPrivateMessage        Kind = "private_message"
	KindPrediction            Kind = "prediction"
	KindDevilFruitAward       Kind = "devil_fruit_award"
	KindImpelDownNotification Kind = "impel_down_notification"
	KindWarlordAppointment    Kind = "warlord_appointment"
	KindWarlordRevocation     Kind = "warlord_revocation"
)

// Command is an outbound payload. Kind is serialized as the object_type
// field next to the command's own fields.
type Command interface {
	Kind() Kind
}

// PredictionAction names the prediction operation the bot should perform.
type PredictionAction string

const (
	ActionSend       PredictionAction = "send"
	ActionRefresh    PredictionAction = "refresh"
	ActionCloseBets  PredictionAction = "close_bets"
	ActionSetResults PredictionAction = "set_results"
	ActionResend     PredictionAction = "resend"
)

// PrivateMessage asks the bot to deliver a text message to a user.
type PrivateMessage struct {
	TgUserID string `json:"tg_user_id"`
	Message  string `json:"message"`
}

func (PrivateMessage) Kind() Kind { return KindPrivateMessage }

// Prediction asks the bot to run a prediction lifecycle action.
type Prediction struct {
	Action       PredictionAction `json:"action"`
	PredictionID int64            `json:"prediction_id"`
}

func (Prediction) Kind() Kind { return KindPrediction }

// DevilFruitAward asks the bot to award a fruit to a user.
type DevilFruitAward struct {
	UserID       int64  `json:"user_id"`
	DevilFruitID int64  `json:"devil_fruit_id"`
	Reason       string `json:"reason"`
}

func (DevilFruitAward) Kind() Kind { return KindDevilFruitAward }

// ImpelDownNotification asks the bot to notify a user of a disciplinary
// action that has already been persisted.
type ImpelDownNotification struct {
	UserID          int64      `json:"user_id"`
	SentenceType    string     `json:"sentence_type"`
	ReleaseDateTime *time.Time `json:"release_date_time"`
	BountyAction    string     `json:"bounty_action"`
	Reason          string     `json:"reason"`
}

func (ImpelDownNotification) Kind() Kind { return KindImpelDownNotification }

// WarlordAppointment announces a new warlord grant. Days is redundant with
// the stored end date but saves the bot a round trip.
type WarlordAppointment struct {
	UserID    int64 `json:"user_id"`
	WarlordID int64 `json:"warlord_id"`
	Days      int   `json:"days"`
}

func (WarlordAppointment) Kind() Kind { return KindWarlordAppointment }

// WarlordRevocation announces that a warlord grant was ended early.
type WarlordRevocation struct {
	UserID    int64 `json:"user_id"`
	WarlordID int64 `json:"warlord_id"`
}

func (WarlordRevocation) Kind() Kind { return KindWarlordRevocation }

package models

import "time"

// AlertSubscriber is one contact that may receive community alerts. A row is
// keyed independently by email and by phone; either may be null. Row existence
// does not imply an active subscription: the opt-in flags are flipped only by
// confirmation processing, never by the request endpoints.
type AlertSubscriber struct {
	Base
	Email      *string `json:"email"        gorm:"uniqueIndex"`
	Phone      *string `json:"phone"        gorm:"uniqueIndex"`
	EmailOptIn bool    `json:"email_opt_in" gorm:"default:false"`
	SMSOptIn   bool    `json:"sms_opt_in"   gorm:"default:false"`
}

func (AlertSubscriber) TableName() string { return "alerts_subscribers" }

// AlertConfirmation is one pending opt-in or opt-out transition. Consumed
// tokens are kept as an audit trail; ConsumedAt is the single write that
// retires a token.
type AlertConfirmation struct {
	Base
	Token      string     `json:"-"           gorm:"uniqueIndex;not null"`
	Action     string     `json:"action"      gorm:"not null"` // subscribe | unsubscribe
	Channel    string     `json:"channel"     gorm:"not null"` // email | sms
	Email      *string    `json:"email"`
	Phone      *string    `json:"phone"`
	ExpiresAt  *time.Time `json:"expires_at"`
	ConsumedAt *time.Time `json:"consumed_at"`
}

func (AlertConfirmation) TableName() string { return "alerts_confirmations" }

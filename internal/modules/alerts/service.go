package alerts

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/commonshub/core/internal/models"
	"github.com/commonshub/core/internal/pkg/token"
)

const (
	subscribeTokenTTLHours   = 24
	unsubscribeTokenTTLHours = 2
)

// Service owns the double opt-in subscription protocol. Email and sms are
// independent sub-protocols of the same shape: one request may exercise both
// channels, each issuing its own token with its own confirm lifecycle.
type Service struct {
	db  *gorm.DB
	now func() time.Time
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// RequestSubscribe upserts a subscriber row per requested channel and issues
// one subscribe token per channel. The upsert never touches the opt-in flags:
// only a confirmed token flips them.
func (s *Service) RequestSubscribe(dto *AlertRequestDTO) ([]IssuedToken, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	var issued []IssuedToken
	for _, ch := range dto.Channels {
		if err := s.ensureSubscriber(ch, dto); err != nil {
			return nil, err
		}
		tok, err := s.issueToken(ActionSubscribe, ch, dto, subscribeTokenTTLHours)
		if err != nil {
			return nil, err
		}
		issued = append(issued, IssuedToken{Channel: ch, Token: tok})
	}
	return issued, nil
}

// RequestUnsubscribe issues unsubscribe tokens with a short expiry. It never
// writes the subscriber row: unsubscribing must not create or resurrect one.
func (s *Service) RequestUnsubscribe(dto *AlertRequestDTO) ([]IssuedToken, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	var issued []IssuedToken
	for _, ch := range dto.Channels {
		tok, err := s.issueToken(ActionUnsubscribe, ch, dto, unsubscribeTokenTTLHours)
		if err != nil {
			return nil, err
		}
		issued = append(issued, IssuedToken{Channel: ch, Token: tok})
	}
	return issued, nil
}

func (s *Service) ensureSubscriber(channel string, dto *AlertRequestDTO) error {
	sub := models.AlertSubscriber{}
	var conflictCol string
	switch channel {
	case ChannelEmail:
		sub.Email = dto.Email
		conflictCol = "email"
	case ChannelSMS:
		sub.Phone = dto.Phone
		conflictCol = "phone"
	default:
		return errUnknownChannel
	}

	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: conflictCol}},
		DoNothing: true,
	}).Create(&sub).Error
	if err != nil {
		return storageErr("failed to save subscriber", err)
	}
	return nil
}

func (s *Service) issueToken(action, channel string, dto *AlertRequestDTO, ttlHours int) (string, error) {
	tok, err := token.Generate(token.DefaultByteLength)
	if err != nil {
		return "", storageErr("failed to generate token", err)
	}

	expires := s.now().Add(time.Duration(ttlHours) * time.Hour)
	record := models.AlertConfirmation{
		Token:     tok,
		Action:    action,
		Channel:   channel,
		ExpiresAt: &expires,
	}
	switch channel {
	case ChannelEmail:
		record.Email = dto.Email
	case ChannelSMS:
		record.Phone = dto.Phone
	}

	if err := s.db.Create(&record).Error; err != nil {
		return "", storageErr("failed to create confirmation", err)
	}
	return tok, nil
}

// Confirm resolves a confirmation token for the given action, flips the
// matching opt-in flag, then retires the token. The two writes are ordered so
// a failed opt-in update leaves the token unconsumed and the link reusable.
// Token retirement is a conditional update on consumed_at so that two
// concurrent confirms of the same token cannot both succeed.
func (s *Service) Confirm(rawToken, action string) error {
	record, err := s.lookupToken(rawToken)
	if err != nil {
		return err
	}

	if record.ExpiresAt != nil && record.ExpiresAt.Before(s.now()) {
		return errTokenExpired
	}
	if record.Action != action {
		return errTokenWrongAction
	}

	optIn := action == ActionSubscribe
	switch record.Channel {
	case ChannelEmail:
		if record.Email == nil || *record.Email == "" {
			return errTokenIncomplete
		}
		err = s.db.Model(&models.AlertSubscriber{}).
			Where("email = ?", *record.Email).
			Update("email_opt_in", optIn).Error
	case ChannelSMS:
		if record.Phone == nil || *record.Phone == "" {
			return errTokenIncomplete
		}
		err = s.db.Model(&models.AlertSubscriber{}).
			Where("phone = ?", *record.Phone).
			Update("sms_opt_in", optIn).Error
	default:
		return errTokenIncomplete
	}
	if err != nil {
		return storageErr("failed to update subscription", err)
	}

	now := s.now()
	res := s.db.Model(&models.AlertConfirmation{}).
		Where("token = ? AND consumed_at IS NULL", record.Token).
		Update("consumed_at", now)
	if res.Error != nil {
		return storageErr("failed to consume token", res.Error)
	}
	if res.RowsAffected == 0 {
		// Lost a race with an identical concurrent confirm.
		return errTokenInvalid
	}
	return nil
}

// lookupToken fetches the unconsumed record for a token. The read exists only
// to produce precise error messages; the conditional update in Confirm is
// what actually guards against double spends.
func (s *Service) lookupToken(rawToken string) (*models.AlertConfirmation, error) {
	var record models.AlertConfirmation
	err := s.db.
		Where("token = ? AND consumed_at IS NULL", rawToken).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errTokenInvalid
		}
		return nil, storageErr("failed to look up token", err)
	}
	return &record, nil
}

// Subscriber returns the row for an email or phone, nil when absent.
func (s *Service) Subscriber(email, phone *string) (*models.AlertSubscriber, error) {
	var sub models.AlertSubscriber
	tx := s.db
	switch {
	case email != nil && *email != "":
		tx = tx.Where("email = ?", *email)
	case phone != nil && *phone != "":
		tx = tx.Where("phone = ?", *phone)
	default:
		return nil, nil
	}
	if err := tx.First(&sub).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, storageErr("failed to look up subscriber", err)
	}
	return &sub, nil
}

// OptedIn lists confirmed recipients for one channel, used by alert delivery.
func (s *Service) OptedIn(channel string) ([]models.AlertSubscriber, error) {
	var subs []models.AlertSubscriber
	tx := s.db
	switch channel {
	case ChannelEmail:
		tx = tx.Where("email_opt_in = ? AND email IS NOT NULL", true)
	case ChannelSMS:
		tx = tx.Where("sms_opt_in = ? AND phone IS NOT NULL", true)
	default:
		return nil, errUnknownChannel
	}
	if err := tx.Find(&subs).Error; err != nil {
		return nil, storageErr("failed to list subscribers", err)
	}
	return subs, nil
}

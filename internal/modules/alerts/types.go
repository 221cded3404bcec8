package alerts

import (
	"errors"
	"regexp"
)

const (
	ChannelEmail = "email"
	ChannelSMS   = "sms"

	ActionSubscribe   = "subscribe"
	ActionUnsubscribe = "unsubscribe"
)

// AlertRequestDTO is the body of subscribe-request and unsubscribe-request.
type AlertRequestDTO struct {
	Email    *string  `json:"email"`
	Phone    *string  `json:"phone"`
	Channels []string `json:"channels"`
}

// IssuedToken is one freshly minted confirmation token, surfaced to the
// client only outside production.
type IssuedToken struct {
	Channel string `json:"channel"`
	Token   string `json:"token"`
}

var (
	errNoChannel      = errors.New("select at least one channel")
	errUnknownChannel = errors.New("unknown channel")
	errEmailRequired  = errors.New("email is required for the email channel")
	errEmailInvalid   = errors.New("invalid email address")
	errPhoneRequired  = errors.New("phone is required for the sms channel")
	errPhoneInvalid   = errors.New("invalid phone number")

	errTokenInvalid     = errors.New("invalid or used token")
	errTokenExpired     = errors.New("token expired")
	errTokenWrongAction = errors.New("token was issued for a different action")
	errTokenIncomplete  = errors.New("token incomplete")
)

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern = regexp.MustCompile(`^\+?[1-9]\d{7,14}$`)
)

// Validate checks channel selection and address formats. It must pass before
// any store write happens; the first failing constraint wins.
func (d *AlertRequestDTO) Validate() error {
	if len(d.Channels) == 0 {
		return errNoChannel
	}
	wantEmail := false
	wantSMS := false
	for _, ch := range d.Channels {
		switch ch {
		case ChannelEmail:
			wantEmail = true
		case ChannelSMS:
			wantSMS = true
		default:
			return errUnknownChannel
		}
	}
	if wantEmail {
		if d.Email == nil || *d.Email == "" {
			return errEmailRequired
		}
		if !emailPattern.MatchString(*d.Email) {
			return errEmailInvalid
		}
	}
	if wantSMS {
		if d.Phone == nil || *d.Phone == "" {
			return errPhoneRequired
		}
		if !phonePattern.MatchString(*d.Phone) {
			return errPhoneInvalid
		}
	}
	return nil
}

// StorageError wraps a store failure with the generic client-facing message.
// The underlying error is logged server-side and never surfaced.
type StorageError struct {
	Message string
	Err     error
}

func (e *StorageError) Error() string { return e.Message }
func (e *StorageError) Unwrap() error { return e.Err }

func storageErr(message string, err error) *StorageError {
	return &StorageError{Message: message, Err: err}
}

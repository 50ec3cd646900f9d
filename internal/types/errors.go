package types

import "errors"

// Error taxonomy. Fatal broker errors stop the bot; transient ones are
// retried by the runtime loop before giving up.
var (
	ErrInvalidConfiguration = errors.New("invalid configuration")
	ErrUnknownBot           = errors.New("unknown bot")
	ErrInvalidToken         = errors.New("invalid token")
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrMarketClosed         = errors.New("market closed")
	ErrBrokerUnavailable    = errors.New("broker unavailable")
	ErrStorage              = errors.New("storage failure")
)

// IsFatalBrokerError reports whether a broker error must not be retried.
func IsFatalBrokerError(err error) bool {
	return errors.Is(err, ErrInvalidToken) || errors.Is(err, ErrInsufficientFunds)
}

// IsTransientBrokerError reports whether a broker error is worth retrying.
func IsTransientBrokerError(err error) bool {
	return errors.Is(err, ErrBrokerUnavailable) || errors.Is(err, ErrMarketClosed)
}

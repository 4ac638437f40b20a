package relay

import "errors"

var (
	ErrNoAPIKey      = errors.New("relay: no api key configured")
	ErrDisabled      = errors.New("relay: disabled")
	ErrInvalidRecord = errors.New("relay: invalid record")
	ErrCooldown      = errors.New("relay: connection test cooling down")
)

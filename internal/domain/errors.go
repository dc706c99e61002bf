package domain

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidAction    = errors.New("invalid action")
	ErrMarketClosed     = errors.New("market closed")
	ErrSymbolNotFound   = errors.New("symbol not found")
	ErrNoCredential     = errors.New("no valid access token")
	ErrLockHeld         = errors.New("lock already held")
	ErrEntryFailed      = errors.New("entry order failed")
	ErrEntryNotFilled   = errors.New("entry order not filled")
	ErrProtectionFailed = errors.New("stop-loss placement failed")
	ErrExitFailed       = errors.New("exit order failed")
)

package solver

import "errors"

var (
	// Request validation
	ErrEmptyPool     = errors.New("item pool is empty")
	ErrInvalidLayout = errors.New("invalid slot layout")
	ErrPoolTooSmall  = errors.New("item pool smaller than slot count")
	ErrDuplicateItem = errors.New("duplicate item in pool")
	ErrInvalidItem   = errors.New("invalid item")

	// Allocation
	ErrArenaExhausted = errors.New("arena exhausted")
	ErrArenaTooLarge  = errors.New("arena capacity exceeds configured maximum")
	ErrCountOverflow  = errors.New("assignment count overflows")

	// Goal catalogue
	ErrUnknownGoal         = errors.New("unknown goal")
	ErrThresholdOutOfRange = errors.New("goal threshold out of configured range")
)

/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package lineup

import "errors"

var (
	ErrInsufficientEntities = errors.New("not enough people to select from")
	ErrMissingMountPoint    = errors.New("layout is missing a mount point")
	ErrUnmappedDrop         = errors.New("dropped item does not match any charge")
	ErrUnknownSlot          = errors.New("drop target does not match any slot")
	ErrInvalidRoster        = errors.New("invalid roster")
)

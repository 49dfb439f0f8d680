package domain

import "errors"

// ErrAlreadyCancelled is returned when a cancel request targets a
// subscription that is already in the cancelled state. The record is left
// unchanged.
var ErrAlreadyCancelled = errors.New("subscription is already cancelled")

// ErrNotOwner is returned when a user requests subscriptions that belong to
// a different account.
var ErrNotOwner = errors.New("not the owner of this account")

package services

import "errors"

// Error taxonomy of the quote core. Transition and conversion failures wrap
// these sentinels so handlers can map them to responses with errors.Is.
var (
	// ErrInvalidState: the requested transition is not an edge of the quote
	// state machine (or the quote has expired underneath the caller).
	ErrInvalidState = errors.New("invalid_state")
	// ErrPermissionDenied: the actor lacks the required authority.
	ErrPermissionDenied = errors.New("permission_denied")
	// ErrAlreadyConverted: the quote already produced its order.
	ErrAlreadyConverted = errors.New("already_converted")
	// ErrMissingSelection: conversion attempted without a responded selected
	// supplier carrying a quoted amount.
	ErrMissingSelection = errors.New("missing_selection")
	// ErrAmountConflict: extraction produced a different amount for an
	// already-priced thread; needs human review, never overwritten.
	ErrAmountConflict = errors.New("amount_conflict")
)

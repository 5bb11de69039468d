package domain

import "errors"

var (
	// ErrNotFound indicates that a requested resource was not found.
	ErrNotFound = errors.New("resource not found")
	// ErrInvalidTransition indicates a state-machine guard rejected a
	// status or timestamp change.
	ErrInvalidTransition = errors.New("invalid enrollment transition")
	// ErrCampaignNotDraft indicates a mutation that is only legal while a
	// campaign is in draft.
	ErrCampaignNotDraft = errors.New("campaign is not in draft")
	// ErrQuotaExceeded indicates the account has no launch budget left.
	ErrQuotaExceeded = errors.New("campaign quota exceeded")
	// ErrForbidden indicates the resource belongs to a different account.
	ErrForbidden = errors.New("resource belongs to another account")
)

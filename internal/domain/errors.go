package domain

import (
	"errors"
	"sort"
	"strings"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrDuplicateEntry     = errors.New("duplicate entry")
	ErrUnknownService     = errors.New("unknown service")
	ErrInvalidRole        = errors.New("invalid role")
	ErrInvalidState       = errors.New("invalid state transition")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrOTPCooldown        = errors.New("otp resend cooldown active")
	ErrOTPInvalid         = errors.New("otp invalid or expired")
	ErrSignupNotPending   = errors.New("no pending signup")
	ErrNotificationFailed = errors.New("notification dispatch failed")
)

// FormErrorKey holds errors that concern the whole form.
const FormErrorKey = "__all__"

// ValidationErrors maps a field name (or FormErrorKey) to its message.
type ValidationErrors map[string]string

func (v ValidationErrors) Error() string {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+v[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

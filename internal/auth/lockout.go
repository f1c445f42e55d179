package auth

import (
	"time"

	"parlour/internal/model"
)

// LockoutPolicy decides when repeated failed logins suspend an account.
// It holds no state; counters live on the identity record.
type LockoutPolicy struct {
	MaxAttempts  int
	LockDuration time.Duration
}

// DefaultLockout locks for 15 minutes after 5 failures.
var DefaultLockout = LockoutPolicy{MaxAttempts: 5, LockDuration: 15 * time.Minute}

// Locked returns the remaining lock time when the identity is locked at now.
func (p LockoutPolicy) Locked(u *model.Identity, now time.Time) (time.Duration, bool) {
	if u.LockUntil == nil || !u.LockUntil.After(now) {
		return 0, false
	}
	return u.LockUntil.Sub(now), true
}

// ShouldLock reports whether a failure count reaches the threshold.
func (p LockoutPolicy) ShouldLock(failures int) bool {
	return failures >= p.MaxAttempts
}

// LockUntil is the expiry set when an account is locked at now.
func (p LockoutPolicy) LockUntil(now time.Time) time.Time {
	return now.Add(p.LockDuration)
}

// NeedsReset reports whether a successful login has state to clear.
func (p LockoutPolicy) NeedsReset(u *model.Identity) bool {
	return u.FailedLoginAttempts > 0 || u.LockUntil != nil
}

// RemainingMinutes rounds d up to whole minutes.
func RemainingMinutes(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int((d + time.Minute - 1) / time.Minute)
}

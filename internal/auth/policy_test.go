package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"parlour/internal/model"
)

func TestCapabilityTable(t *testing.T) {
	for _, c := range []Capability{ReadDirectory, ManageEmployees, ManageTasks, ReadAttendance, RecordAttendance, SubscribeAttendance} {
		require.True(t, Allows(model.RoleSuperAdmin, c), c.String())
	}
	require.True(t, Allows(model.RoleAdmin, ReadDirectory))
	require.True(t, Allows(model.RoleAdmin, RecordAttendance))
	require.True(t, Allows(model.RoleAdmin, SubscribeAttendance))
	require.False(t, Allows(model.RoleAdmin, ManageEmployees))
	require.False(t, Allows(model.RoleAdmin, ManageTasks))
	require.False(t, Allows(model.Role("guest"), ReadDirectory))
}

func TestLockoutPolicy(t *testing.T) {
	p := DefaultLockout
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	_, locked := p.Locked(&model.Identity{}, now)
	require.False(t, locked)

	until := now.Add(90 * time.Second)
	remaining, locked := p.Locked(&model.Identity{LockUntil: &until}, now)
	require.True(t, locked)
	require.Equal(t, 2, RemainingMinutes(remaining))

	// expiry equal to now is no longer locked
	_, locked = p.Locked(&model.Identity{LockUntil: &now}, now)
	require.False(t, locked)

	require.False(t, p.ShouldLock(4))
	require.True(t, p.ShouldLock(5))
	require.True(t, p.ShouldLock(6))
	require.Equal(t, now.Add(15*time.Minute), p.LockUntil(now))

	require.False(t, p.NeedsReset(&model.Identity{}))
	require.True(t, p.NeedsReset(&model.Identity{FailedLoginAttempts: 1}))
}

func TestStrongPassword(t *testing.T) {
	require.True(t, strongPassword("Secret@123"))
	require.False(t, strongPassword("secret@123"), "no upper")
	require.False(t, strongPassword("Secret1234"), "no special")
	require.False(t, strongPassword("Secret@12 3"), "space not allowed")
	require.False(t, strongPassword("Se@1"), "too short")
}

func TestHasher(t *testing.T) {
	h := NewHasher(4)
	hash, err := h.Hash("Secret@123")
	require.NoError(t, err)

	ok, err := h.Compare(hash, "Secret@123")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = h.Compare(hash, "nope")
	require.NoError(t, err)
	require.False(t, ok)

	_, err = h.Compare("not-a-hash", "x")
	require.Error(t, err)
}

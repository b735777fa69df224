// ABOUTME: Tests for TeleMsg data models
// ABOUTME: Validates status promotion, approval decisions, filters and formatting
package models

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessagePromoteForwardOnly(t *testing.T) {
	m := &Message{ID: "m1", Status: StatusSending}

	require.NoError(t, m.Promote(StatusSent))
	assert.Equal(t, StatusSent, m.Status)

	require.NoError(t, m.Promote(StatusSent), "same status is a no-op")

	require.NoError(t, m.Promote(StatusRead))
	assert.Equal(t, StatusRead, m.Status)

	err := m.Promote(StatusSending)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrStatusRegression))
	assert.Equal(t, StatusRead, m.Status)
}

func TestMessagePromoteUnknownStatus(t *testing.T) {
	m := &Message{Status: StatusSending}
	assert.Error(t, m.Promote(MessageStatus("delivered")))
	assert.Equal(t, StatusSending, m.Status)
}

func TestContactUnreadNeverNegative(t *testing.T) {
	c := &Contact{UnreadCount: -3}
	c.BumpUnread()
	assert.Equal(t, 1, c.UnreadCount)
	c.ResetUnread()
	assert.Equal(t, 0, c.UnreadCount)
}

func TestApprovalDecideIsTerminal(t *testing.T) {
	a := &ApprovalRequest{ID: "a1", Status: ApprovalPending}
	require.NoError(t, a.Decide(false, "missing budget"))
	assert.Equal(t, ApprovalRejected, a.Status)
	assert.Equal(t, "missing budget", a.Reason)

	err := a.Decide(true, "ok")
	assert.True(t, errors.Is(err, ErrApprovalDecided))
	assert.Equal(t, ApprovalRejected, a.Status)
}

func TestNormalizeNotificationType(t *testing.T) {
	cases := map[string]NotificationType{
		"message":        NotifyMessage,
		"friend_request": NotifyFriendRequest,
		"approval":       NotifySystem,
		"warning":        NotifySystem,
		"":               NotifySystem,
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeNotificationType(in), in)
	}
}

func TestFilterUsers(t *testing.T) {
	users := []User{
		{ID: "1", Name: "Zhang San", Username: "zhangsan", Department: "Engineering"},
		{ID: "2", Name: "Li Si", Username: "lisi", Department: "Marketing"},
	}

	assert.Len(t, FilterUsers(users, ""), 2)
	assert.Len(t, FilterUsers(users, "market"), 1)
	assert.Equal(t, "1", FilterUsers(users, "ZHANG")[0].ID)
	assert.Empty(t, FilterUsers(users, "nobody"))
}

func TestFilterMembersByRole(t *testing.T) {
	members := []User{
		{ID: "1", Name: "Zhang San", Role: "System Admin"},
		{ID: "2", Name: "Li Si", Role: "Employee"},
	}
	got := FilterMembers(members, "admin")
	require.Len(t, got, 1)
	assert.Equal(t, "1", got[0].ID)
}

func TestFormatRelative(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, "just now", FormatRelative(now.Add(-20*time.Second), now))
	assert.Equal(t, "5 minutes ago", FormatRelative(now.Add(-5*time.Minute), now))
	assert.Equal(t, "3 hours ago", FormatRelative(now.Add(-3*time.Hour), now))
	assert.Equal(t, "yesterday", FormatRelative(now.Add(-30*time.Hour), now))
	assert.Equal(t, "4 days ago", FormatRelative(now.Add(-4*24*time.Hour), now))
	assert.Equal(t, "", FormatRelative(time.Time{}, now))
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "00:00", FormatDuration(0))
	assert.Equal(t, "01:05", FormatDuration(65))
	assert.Equal(t, "61:01", FormatDuration(3661))
}

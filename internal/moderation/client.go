package moderation

import (
	"context"
	"time"
)

// MemberStatus is the chat member status as reported by the platform.
type MemberStatus string

const (
	StatusCreator       MemberStatus = "creator"
	StatusAdministrator MemberStatus = "administrator"
	StatusMember        MemberStatus = "member"
	StatusRestricted    MemberStatus = "restricted"
	StatusLeft          MemberStatus = "left"
	StatusKicked        MemberStatus = "kicked"
)

func (s MemberStatus) IsAdmin() bool {
	return s == StatusCreator || s == StatusAdministrator
}

// Permissions is the subset of member rights touched by mutes.
type Permissions struct {
	SendMessages       bool
	SendPolls          bool
	SendOtherMessages  bool
	AddWebPagePreviews bool
	ChangeInfo         bool
	InviteUsers        bool
	PinMessages        bool
}

// MutedPermissions revokes everything a mute is supposed to take away.
func MutedPermissions() Permissions {
	return Permissions{}
}

// ChatModerationClient is the narrow platform capability the moderation core depends on.
type ChatModerationClient interface {
	GetChatMemberStatus(ctx context.Context, chatID, userID int64) (MemberStatus, error)
	RestrictChatMember(ctx context.Context, chatID, userID int64, permissions Permissions, until time.Time) error
	BanChatMember(ctx context.Context, chatID, userID int64) error
	SendMessage(ctx context.Context, chatID int64, text string) error
}

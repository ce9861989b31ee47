package permissions

import api "github.com/OvyFlash/telegram-bot-api"

// IsManager reports whether the member runs the chat: its creator or an admin able to
// manage it or promote others.
func IsManager(member *api.ChatMember) bool {
	if member == nil {
		return false
	}
	if member.IsCreator() {
		return true
	}
	return member.IsAdministrator() && (member.CanManageChat || member.CanPromoteMembers)
}

// CanModerate reports whether the member may run moderation commands in the chat.
// Plain admins qualify only with the right to restrict members.
func CanModerate(member *api.ChatMember) bool {
	if member == nil {
		return false
	}
	if IsManager(member) {
		return true
	}
	return member.IsAdministrator() && member.CanRestrictMembers
}

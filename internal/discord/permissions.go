package discord

import (
	"slices"

	"github.com/bwmarrin/discordgo"
)

// PermissionChecker decides who may run privileged slash commands such as
// /reload.
type PermissionChecker struct {
	adminRoleID string
}

// NewPermissionChecker creates a PermissionChecker for the given admin role.
func NewPermissionChecker(adminRoleID string) *PermissionChecker {
	return &PermissionChecker{adminRoleID: adminRoleID}
}

// IsAdmin reports whether the interaction author holds the admin role. With
// no admin role configured, the guild Administrator permission is required
// instead. Interactions without a Member (DM channels) are never admin.
func (p *PermissionChecker) IsAdmin(i *discordgo.InteractionCreate) bool {
	if i.Member == nil {
		return false
	}
	if p.adminRoleID == "" {
		return i.Member.Permissions&discordgo.PermissionAdministrator != 0
	}
	return slices.Contains(i.Member.Roles, p.adminRoleID)
}

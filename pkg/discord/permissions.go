package discord

import (
	"sort"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
)

// permissionNames holds the user facing names of the permissions commands can require
var permissionNames = map[int64]string{
	discordgo.PermissionCreateInstantInvite: "Crear invitación",
	discordgo.PermissionKickMembers:         "Expulsar miembros",
	discordgo.PermissionBanMembers:          "Banear miembros",
	discordgo.PermissionAdministrator:       "Administrador",
	discordgo.PermissionManageChannels:      "Gestionar canales",
	discordgo.PermissionManageGuild:         "Gestionar servidor",
	discordgo.PermissionAddReactions:        "Añadir reacciones",
	discordgo.PermissionViewAuditLogs:       "Ver registro de auditoría",
	discordgo.PermissionViewChannel:         "Ver canal",
	discordgo.PermissionSendMessages:        "Enviar mensajes",
	discordgo.PermissionManageMessages:      "Gestionar mensajes",
	discordgo.PermissionEmbedLinks:          "Insertar enlaces",
	discordgo.PermissionAttachFiles:         "Adjuntar archivos",
	discordgo.PermissionReadMessageHistory:  "Leer el historial",
	discordgo.PermissionMentionEveryone:     "Mencionar @everyone",
	discordgo.PermissionUseExternalEmojis:   "Usar emojis externos",
	discordgo.PermissionManageNicknames:     "Gestionar apodos",
	discordgo.PermissionManageRoles:         "Gestionar roles",
	discordgo.PermissionManageWebhooks:      "Gestionar webhooks",
	discordgo.PermissionModerateMembers:     "Aislar temporalmente a miembros",
}

// PermissionNames returns the readable names of every bit set in perms, sorted
func PermissionNames(perms int64) []string {
	var names []string
	for bit, name := range permissionNames {
		if perms&bit == bit {
			names = append(names, name)
			perms &^= bit
		}
	}
	sort.Strings(names)
	if perms != 0 {
		names = append(names, "Otros")
	}
	return names
}

// missingPermissions returns the bits of need not present in have.
// Administrator grants everything.
func missingPermissions(have, need int64) int64 {
	if have&discordgo.PermissionAdministrator != 0 {
		return 0
	}
	return need &^ have
}

// requirements are the gate settings of a command, merged along its path
type requirements struct {
	userPerms int64
	botPerms  int64
	dev       bool
	guildOnly bool
	cooldown  time.Duration
}

// requirementsOf merges the gates of cmd and all its ancestors.
// Permissions accumulate, dev and guild-only are inherited and the nearest cooldown wins.
func requirementsOf(cmd *Command) requirements {
	var req requirements
	cooldownSet := false
	for n := cmd; n != nil; n = n.parent {
		req.userPerms |= n.UserPermissions
		req.botPerms |= n.BotPermissions
		req.dev = req.dev || n.IsDev
		req.guildOnly = req.guildOnly || n.GuildOnly
		if !cooldownSet && n.Cooldown != 0 {
			req.cooldown = n.Cooldown
			cooldownSet = true
		}
	}
	return req
}

func joinPermissionNames(perms int64) string {
	return "`" + strings.Join(PermissionNames(perms), "`, `") + "`"
}

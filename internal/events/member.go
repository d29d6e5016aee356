package events

import (
	"fmt"

	"github.com/PancyStudios/HelperBot/internal/membersync"
	"github.com/PancyStudios/HelperBot/pkg/database"
	"github.com/PancyStudios/HelperBot/pkg/logger"
	"github.com/bwmarrin/discordgo"
)

// MemberListener creates and removes user rows as members come and go
type MemberListener struct {
	users *database.UserService
}

// OnGuildMemberAdd is called when a new member joins a guild
func (l *MemberListener) OnGuildMemberAdd(s *discordgo.Session, m *discordgo.GuildMemberAdd) {
	member, ok := membersync.FromDiscord(m.Member)
	if !ok {
		return
	}
	if _, err := l.users.EnsureMember(m.GuildID, member); err != nil {
		logger.Error(fmt.Sprintf("Error registrando a %s en %s: %v", member.UserID, m.GuildID, err), "Member")
		return
	}
	logger.Debug(fmt.Sprintf("👋 Nuevo miembro: %s en servidor %s", member.Username, m.GuildID), "Member")
}

// OnGuildMemberRemove is called when a member leaves or is removed from a guild
func (l *MemberListener) OnGuildMemberRemove(s *discordgo.Session, m *discordgo.GuildMemberRemove) {
	if m.Member == nil || m.User == nil || m.User.Bot {
		return
	}
	if err := l.users.RemoveMember(m.GuildID, m.User.ID); err != nil {
		logger.Error(fmt.Sprintf("Error eliminando a %s de %s: %v", m.User.ID, m.GuildID, err), "Member")
		return
	}
	logger.Debug(fmt.Sprintf("👋 Adiós: %s salió del servidor %s", m.User.Username, m.GuildID), "Member")
}

// OnGuildMemberUpdate keeps the stored username fresh
func (l *MemberListener) OnGuildMemberUpdate(s *discordgo.Session, m *discordgo.GuildMemberUpdate) {
	if m.BeforeUpdate != nil && m.BeforeUpdate.User != nil && m.User != nil &&
		m.BeforeUpdate.User.Username == m.User.Username {
		return
	}
	member, ok := membersync.FromDiscord(m.Member)
	if !ok {
		return
	}
	if _, err := l.users.EnsureMember(m.GuildID, member); err != nil {
		logger.Error(fmt.Sprintf("Error actualizando a %s en %s: %v", member.UserID, m.GuildID, err), "Member")
	}
}

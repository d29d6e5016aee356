package events

import (
	"github.com/PancyStudios/HelperBot/pkg/logger"
	"github.com/bwmarrin/discordgo"
)

// ShardListener logs the gateway connection lifecycle
type ShardListener struct{}

// OnDisconnect is called when the bot disconnects from Discord
func (l *ShardListener) OnDisconnect(s *discordgo.Session, d *discordgo.Disconnect) {
	logger.Warn("⚠️ Bot desconectado de Discord", "Shard")
}

// OnResumed is called when the bot resumes a session after a disconnect
func (l *ShardListener) OnResumed(s *discordgo.Session, r *discordgo.Resumed) {
	logger.Success("✅ Conexión con Discord reanudada", "Shard")
}

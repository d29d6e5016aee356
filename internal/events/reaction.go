package events

import (
	"github.com/PancyStudios/HelperBot/pkg/discord"
	"github.com/bwmarrin/discordgo"
)

// ReactionListener drives paginators in reaction mode
type ReactionListener struct {
	client *discord.ExtendedClient
}

// OnMessageReactionAdd is called when a reaction is added to a message
func (l *ReactionListener) OnMessageReactionAdd(s *discordgo.Session, r *discordgo.MessageReactionAdd) {
	l.client.Paginators.HandleReaction(s, r)
}

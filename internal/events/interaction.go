package events

import (
	"fmt"

	"github.com/PancyStudios/HelperBot/pkg/discord"
	"github.com/PancyStudios/HelperBot/pkg/logger"
	"github.com/bwmarrin/discordgo"
)

// InteractionListener sends paginator buttons to their paginator and
// everything else to the dispatcher
type InteractionListener struct {
	client *discord.ExtendedClient
}

// OnInteractionCreate is called when an interaction is created
func (l *InteractionListener) OnInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if l.client.Paginators.HandleInteraction(s, i) {
		return
	}
	if l.client.Dispatcher.HandleInteraction(s, i) {
		return
	}
	logger.Debug(fmt.Sprintf("Interacción sin manejar (tipo %d)", i.Type), "Interaction")
}

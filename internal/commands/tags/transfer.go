package tags

import (
	"fmt"

	"github.com/PancyStudios/HelperBot/pkg/discord"
	"github.com/bwmarrin/discordgo"
)

func (h *handlers) transferCommand() *discord.Command {
	return discord.NewCommand(
		"transfer",
		"Transfiere un tag a otro miembro",
		"tags",
		h.transfer,
	).WithAliases("transferir").
		WithOptions(
			nameOption(true),
			&discordgo.ApplicationCommandOption{
				Type:        discordgo.ApplicationCommandOptionUser,
				Name:        "usuario",
				Description: "Nuevo dueño del tag",
				Required:    true,
			},
		).
		WithAutoComplete(h.autocompleteNames)
}

func (h *handlers) transfer(ctx *discord.CommandContext) error {
	target := ctx.GetUserOption("usuario")
	if target == nil {
		return ctx.ReplyEphemeral("❌ Indica a quién transferir el tag.")
	}
	if target.Bot {
		return ctx.ReplyEphemeral("❌ No puedes transferir un tag a un bot.")
	}

	tag, err := h.tags.Transfer(ctx.GuildID(), ctx.GetStringOption("nombre"), target.ID, actor(ctx))
	if err != nil {
		return replyError(ctx, err)
	}
	return ctx.Reply(fmt.Sprintf("🔁 El tag `%s` ahora pertenece a <@%s>.", tag.Name, target.ID))
}

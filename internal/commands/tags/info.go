package tags

import (
	"fmt"

	"github.com/PancyStudios/HelperBot/pkg/discord"
	"github.com/bwmarrin/discordgo"
)

func (h *handlers) infoCommand() *discord.Command {
	return discord.NewCommand(
		"info",
		"Muestra los datos de un tag",
		"tags",
		h.info,
	).WithOptions(nameOption(true)).
		WithAutoComplete(h.autocompleteNames)
}

func (h *handlers) info(ctx *discord.CommandContext) error {
	tag, err := h.tags.Peek(ctx.GuildID(), ctx.GetStringOption("nombre"))
	if err != nil {
		return replyError(ctx, err)
	}

	return ctx.ReplyEmbed(&discordgo.MessageEmbed{
		Title: "🏷️ " + tag.Name,
		Color: tagColor,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Dueño", Value: fmt.Sprintf("<@%s>", tag.OwnerID), Inline: true},
			{Name: "Usos", Value: fmt.Sprintf("%d", tag.Uses), Inline: true},
			{Name: "Creado", Value: fmt.Sprintf("<t:%d:R>", tag.CreatedAt.Unix()), Inline: true},
			{Name: "Actualizado", Value: fmt.Sprintf("<t:%d:R>", tag.UpdatedAt.Unix()), Inline: true},
		},
	})
}

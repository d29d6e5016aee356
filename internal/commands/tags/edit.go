package tags

import (
	"fmt"

	"github.com/PancyStudios/HelperBot/pkg/discord"
)

func (h *handlers) editCommand() *discord.Command {
	return discord.NewCommand(
		"edit",
		"Edita el contenido de un tag",
		"tags",
		h.edit,
	).WithAliases("editar").
		WithOptions(nameOption(true), contentOption()).
		WithAutoComplete(h.autocompleteNames)
}

func (h *handlers) edit(ctx *discord.CommandContext) error {
	tag, err := h.tags.Edit(ctx.GuildID(), ctx.GetStringOption("nombre"), ctx.GetStringOption("contenido"), actor(ctx))
	if err != nil {
		return replyError(ctx, err)
	}
	return ctx.Reply(fmt.Sprintf("✏️ Tag `%s` actualizado.", tag.Name))
}

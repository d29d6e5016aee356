package tags

import (
	"fmt"

	"github.com/PancyStudios/HelperBot/pkg/discord"
	"github.com/PancyStudios/HelperBot/pkg/logger"
)

func (h *handlers) deleteCommand() *discord.Command {
	return discord.NewCommand(
		"delete",
		"Elimina un tag",
		"tags",
		h.delete,
	).WithAliases("borrar", "del").
		WithOptions(nameOption(true)).
		WithAutoComplete(h.autocompleteNames)
}

func (h *handlers) delete(ctx *discord.CommandContext) error {
	name := ctx.GetStringOption("nombre")
	who := actor(ctx)
	if err := h.tags.Delete(ctx.GuildID(), name, who); err != nil {
		return replyError(ctx, err)
	}

	logger.Info(fmt.Sprintf("Tag %s eliminado en %s por %s", name, ctx.GuildID(), who.UserID), "Tags")
	return ctx.Reply(fmt.Sprintf("🗑️ Tag `%s` eliminado.", name))
}

package tags

import (
	"fmt"

	"github.com/PancyStudios/HelperBot/pkg/discord"
	"github.com/PancyStudios/HelperBot/pkg/logger"
)

func (h *handlers) createCommand() *discord.Command {
	return discord.NewCommand(
		"create",
		"Crea un tag nuevo",
		"tags",
		h.create,
	).WithAliases("crear", "add").
		WithOptions(nameOption(true), contentOption())
}

func (h *handlers) create(ctx *discord.CommandContext) error {
	owner := ctx.User()
	tag, err := h.tags.Create(ctx.GuildID(), owner.ID, ctx.GetStringOption("nombre"), ctx.GetStringOption("contenido"))
	if err != nil {
		return replyError(ctx, err)
	}

	logger.Info(fmt.Sprintf("Tag %s creado en %s por %s", tag.Name, tag.GuildID, owner.ID), "Tags")
	return ctx.Reply(fmt.Sprintf("✅ Tag `%s` creado.", tag.Name))
}

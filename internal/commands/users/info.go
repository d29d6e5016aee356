package users

import (
	"fmt"

	"github.com/PancyStudios/HelperBot/pkg/discord"
	"github.com/bwmarrin/discordgo"
)

func (h *handlers) infoCommand() *discord.Command {
	return discord.NewCommand(
		"info",
		"Muestra la actividad de un miembro",
		"users",
		h.info,
	).WithOptions(&discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionUser,
		Name:        "usuario",
		Description: "Miembro a consultar (por defecto tú)",
		Required:    false,
	})
}

func (h *handlers) info(ctx *discord.CommandContext) error {
	target := ctx.GetUserOption("usuario")
	if target == nil {
		target = ctx.User()
	}
	if target.Bot {
		return ctx.ReplyEphemeral("🤖 Los bots no tienen registro de actividad.")
	}

	row, err := h.users.Get(ctx.GuildID(), target.ID)
	if err != nil {
		return err
	}
	if row == nil {
		return ctx.ReplyEphemeral(fmt.Sprintf("❌ <@%s> no tiene registro en este servidor.", target.ID))
	}

	lastCommand := "Nunca"
	if !row.LastCommandAt.IsZero() {
		lastCommand = fmt.Sprintf("<t:%d:R>", row.LastCommandAt.Unix())
	}
	name := row.Username
	if name == "" {
		name = target.ID
	}

	return ctx.ReplyEmbed(&discordgo.MessageEmbed{
		Title: "👤 " + name,
		Color: userColor,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Comandos usados", Value: fmt.Sprintf("%d", row.CommandsUsed), Inline: true},
			{Name: "Último comando", Value: lastCommand, Inline: true},
			{Name: "Miembro desde", Value: fmt.Sprintf("<t:%d:D>", row.JoinedAt.Unix()), Inline: true},
		},
	})
}

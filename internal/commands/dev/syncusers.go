package dev

import (
	"fmt"

	"github.com/PancyStudios/HelperBot/internal/membersync"
	"github.com/PancyStudios/HelperBot/pkg/discord"
	"github.com/PancyStudios/HelperBot/pkg/logger"
	"github.com/bwmarrin/discordgo"
)

func (h *handlers) syncUsersCommand() *discord.Command {
	return discord.NewCommand(
		"syncusers",
		"Sincroniza los registros de usuarios con los miembros del servidor",
		"dev",
		h.syncUsers,
	).WithOptions(
		&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "servidor",
			Description: "ID del servidor (por defecto el actual)",
			Required:    false,
		},
	)
}

func (h *handlers) syncUsers(ctx *discord.CommandContext) error {
	guildID := ctx.GetStringOption("servidor")
	if guildID == "" {
		guildID = ctx.GuildID()
	}
	if guildID == "" {
		return sendErrorEmbed(ctx, "Error", "❌ Indica el ID del servidor a sincronizar.")
	}

	if err := ctx.Defer(); err != nil {
		return err
	}

	result, err := membersync.Guild(h.deps.Users, ctx.Session.State, ctx.Session, guildID)
	if err != nil {
		logger.Error(fmt.Sprintf("Error sincronizando %s: %v", guildID, err), "DevSync")
		return ctx.EditReply(fmt.Sprintf("❌ Error sincronizando el servidor `%s`: %v", guildID, err))
	}

	logger.Info(fmt.Sprintf("%s sincronizó %s: +%d -%d", getUserName(ctx), guildID, result.Added, result.Removed), "DevSync")
	return ctx.EditReplyEmbed(&discordgo.MessageEmbed{
		Title:       "🔄 Usuarios sincronizados",
		Description: fmt.Sprintf("Servidor `%s`", guildID),
		Color:       0x00FF00,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Añadidos", Value: fmt.Sprintf("%d", result.Added), Inline: true},
			{Name: "Eliminados", Value: fmt.Sprintf("%d", result.Removed), Inline: true},
			{Name: "Sin cambios", Value: fmt.Sprintf("%d", result.Kept), Inline: true},
		},
	})
}

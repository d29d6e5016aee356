package dev

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/PancyStudios/HelperBot/pkg/database"
	"github.com/PancyStudios/HelperBot/pkg/discord"
	"github.com/PancyStudios/HelperBot/pkg/logger"
	"github.com/PancyStudios/HelperBot/pkg/models"
	"github.com/bwmarrin/discordgo"
)

const entriesPerPage = 10

func typeOption(required bool) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "tipo",
		Description: "Tipo de entrada",
		Required:    required,
		Choices: []*discordgo.ApplicationCommandOptionChoice{
			{Name: "Usuario", Value: string(models.BlacklistTypeUser)},
			{Name: "Servidor", Value: string(models.BlacklistTypeGuild)},
		},
	}
}

// blacklistAddCommand creates the /dev blacklist add command
func (h *handlers) blacklistAddCommand() *discord.Command {
	return discord.NewCommand(
		"add",
		"Añade un usuario o servidor a la blacklist",
		"dev",
		h.blacklistAdd,
	).WithOptions(
		typeOption(true),
		&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "id",
			Description: "ID del usuario o servidor a bloquear",
			Required:    true,
		},
		&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "razon",
			Description: "Razón del bloqueo",
			Required:    false,
		},
	)
}

// blacklistRemoveCommand creates the /dev blacklist remove command
func (h *handlers) blacklistRemoveCommand() *discord.Command {
	return discord.NewCommand(
		"remove",
		"Elimina un usuario o servidor de la blacklist",
		"dev",
		h.blacklistRemove,
	).WithOptions(
		&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "id",
			Description: "ID del usuario o servidor a desbloquear",
			Required:    true,
		},
	)
}

// blacklistListCommand creates the /dev blacklist list command
func (h *handlers) blacklistListCommand() *discord.Command {
	return discord.NewCommand(
		"list",
		"Lista las entradas de la blacklist",
		"dev",
		h.blacklistList,
	).WithOptions(typeOption(false)).WithAliases("ls")
}

func (h *handlers) blacklistAdd(ctx *discord.CommandContext) error {
	tipo := models.BlacklistType(ctx.GetStringOption("tipo"))
	id := strings.TrimSpace(ctx.GetStringOption("id"))
	razon := ctx.GetStringOption("razon")
	if razon == "" {
		razon = "Sin razón especificada"
	}

	if !snowflake.MatchString(id) {
		return sendErrorEmbed(ctx, "Error", fmt.Sprintf("❌ `%s` no es un ID válido.", id))
	}
	if tipo == models.BlacklistTypeUser && ctx.Client.Dispatcher.IsDeveloper != nil && ctx.Client.Dispatcher.IsDeveloper(id) {
		return sendErrorEmbed(ctx, "Error", "❌ No puedes añadir a un desarrollador a la blacklist.")
	}

	author := ctx.User()
	entry, err := h.deps.Blacklist.Add(id, tipo, razon, author.ID)
	switch {
	case errors.Is(err, database.ErrBlacklistEntryExists):
		return sendErrorEmbed(ctx, "Error", fmt.Sprintf("❌ El %s `%s` ya está en la blacklist.", typeName(tipo), id))
	case errors.Is(err, database.ErrBlacklistInvalidType):
		return sendErrorEmbed(ctx, "Error", "❌ El tipo debe ser `user` o `guild`.")
	case err != nil:
		logger.Error(fmt.Sprintf("Error añadiendo a blacklist: %v", err), "DevBlacklist")
		return sendErrorEmbed(ctx, "Error", "❌ Error al añadir a la blacklist.")
	}

	logger.Info(fmt.Sprintf("Usuario %s añadió %s %s a la blacklist", getUserName(ctx), tipo, id), "DevBlacklist")

	if tipo == models.BlacklistTypeGuild {
		h.leaveIfMember(ctx, id)
	}

	return ctx.ReplyEphemeralEmbed(&discordgo.MessageEmbed{
		Title:       "🚫 Añadido a la Blacklist",
		Description: fmt.Sprintf("El %s ha sido bloqueado correctamente.", typeName(tipo)),
		Color:       0xFF0000,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Tipo", Value: typeEmoji(tipo) + " " + typeName(tipo), Inline: true},
			{Name: "ID", Value: fmt.Sprintf("`%s`", id), Inline: true},
			{Name: "Razón", Value: entry.Reason},
		},
		Timestamp: time.Now().Format(time.RFC3339),
		Footer:    &discordgo.MessageEmbedFooter{Text: fmt.Sprintf("Bloqueado por %s", getUserName(ctx))},
	})
}

// leaveIfMember leaves a newly blacklisted guild when the bot is in it
func (h *handlers) leaveIfMember(ctx *discord.CommandContext, guildID string) {
	if ctx.Session == nil || ctx.Session.State == nil {
		return
	}
	if _, err := ctx.Session.State.Guild(guildID); err != nil {
		return
	}
	if err := ctx.Rest().GuildLeave(guildID); err != nil {
		logger.Error(fmt.Sprintf("Error saliendo del servidor blacklisted %s: %v", guildID, err), "DevBlacklist")
		return
	}
	logger.Warn("Saliendo del servidor blacklisted "+guildID, "DevBlacklist")
}

func (h *handlers) blacklistRemove(ctx *discord.CommandContext) error {
	id := strings.TrimSpace(ctx.GetStringOption("id"))

	entry, ok := h.deps.Blacklist.Get(id)
	if !ok {
		return sendErrorEmbed(ctx, "Error", fmt.Sprintf("❌ `%s` no está en la blacklist.", id))
	}
	if err := h.deps.Blacklist.Remove(id); err != nil {
		logger.Error(fmt.Sprintf("Error eliminando de blacklist: %v", err), "DevBlacklist")
		return sendErrorEmbed(ctx, "Error", "❌ Error al eliminar de la blacklist.")
	}

	logger.Info(fmt.Sprintf("Usuario %s eliminó %s %s de la blacklist", getUserName(ctx), entry.Type, id), "DevBlacklist")
	return ctx.ReplyEphemeralEmbed(&discordgo.MessageEmbed{
		Title:       "✅ Eliminado de la Blacklist",
		Description: fmt.Sprintf("El %s ha sido desbloqueado correctamente.", typeName(entry.Type)),
		Color:       0x00FF00,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Tipo", Value: typeEmoji(entry.Type) + " " + typeName(entry.Type), Inline: true},
			{Name: "ID", Value: fmt.Sprintf("`%s`", id), Inline: true},
			{Name: "Razón Original", Value: entry.Reason},
			{Name: "Bloqueado desde", Value: fmt.Sprintf("<t:%d:R>", entry.CreatedAt.Unix()), Inline: true},
		},
		Timestamp: time.Now().Format(time.RFC3339),
		Footer:    &discordgo.MessageEmbedFooter{Text: fmt.Sprintf("Desbloqueado por %s", getUserName(ctx))},
	})
}

func (h *handlers) blacklistList(ctx *discord.CommandContext) error {
	entries := h.deps.Blacklist.List(models.BlacklistType(ctx.GetStringOption("tipo")))
	if len(entries) == 0 {
		return ctx.ReplyEphemeral("📭 La blacklist está vacía.")
	}

	var pages []*discordgo.MessageEmbed
	for start := 0; start < len(entries); start += entriesPerPage {
		end := start + entriesPerPage
		if end > len(entries) {
			end = len(entries)
		}

		var b strings.Builder
		for _, e := range entries[start:end] {
			fmt.Fprintf(&b, "%s `%s` · %s · <t:%d:d>\n", typeEmoji(e.Type), e.ID, e.Reason, e.CreatedAt.Unix())
		}
		pages = append(pages, &discordgo.MessageEmbed{
			Title:       fmt.Sprintf("🚫 Blacklist (%d)", len(entries)),
			Description: b.String(),
			Color:       0xFF0000,
		})
	}

	_, err := ctx.Client.Paginators.Start(ctx, pages)
	return err
}

// typeName devuelve el nombre legible del tipo
func typeName(t models.BlacklistType) string {
	if t == models.BlacklistTypeUser {
		return "Usuario"
	}
	return "Servidor"
}

// typeEmoji devuelve el emoji del tipo
func typeEmoji(t models.BlacklistType) string {
	if t == models.BlacklistTypeUser {
		return "👤"
	}
	return "🏰"
}

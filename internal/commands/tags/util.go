package tags

import (
	"errors"

	"github.com/PancyStudios/HelperBot/pkg/database"
	"github.com/PancyStudios/HelperBot/pkg/discord"
	"github.com/PancyStudios/HelperBot/pkg/logger"
	"github.com/bwmarrin/discordgo"
)

const (
	tagColor        = 0x5865F2
	maxAutocomplete = 25
	manageTagsPerms = discordgo.PermissionManageMessages | discordgo.PermissionAdministrator
)

// userErrors are the service errors shown to the user as they are
var userErrors = []error{
	database.ErrTagExists,
	database.ErrTagNotFound,
	database.ErrTagNotOwner,
	database.ErrInvalidTagName,
	database.ErrReservedTagName,
	database.ErrInvalidTagContent,
}

// replyError answers known tag errors ephemerally and returns any other error
func replyError(ctx *discord.CommandContext, err error) error {
	for _, known := range userErrors {
		if errors.Is(err, known) {
			return ctx.ReplyEphemeral("❌ " + known.Error())
		}
	}
	return err
}

// actor describes the invoker for ownership checks
func actor(ctx *discord.CommandContext) database.TagActor {
	a := database.TagActor{}
	if u := ctx.User(); u != nil {
		a.UserID = u.ID
	}
	a.CanManage = canManage(ctx, a.UserID)
	return a
}

// canManage reports whether the user may edit tags they do not own
func canManage(ctx *discord.CommandContext, userID string) bool {
	if ctx.Interaction != nil && ctx.Interaction.Member != nil {
		return ctx.Interaction.Member.Permissions&manageTagsPerms != 0
	}
	perms, err := ctx.Rest().UserChannelPermissions(userID, ctx.ChannelID())
	if err != nil {
		logger.Debug("No se pudieron obtener los permisos: "+err.Error(), "Tags")
		return false
	}
	return perms&manageTagsPerms != 0
}

// autocompleteNames offers the guild's tags starting with the typed prefix
func (h *handlers) autocompleteNames(ctx *discord.CommandContext) []*discordgo.ApplicationCommandOptionChoice {
	focused := ctx.FocusedOption()
	if focused == nil || focused.Name != "nombre" {
		return nil
	}
	prefix, _ := focused.Value.(string)

	found, err := h.tags.Search(ctx.GuildID(), prefix, maxAutocomplete)
	if err != nil {
		logger.Warn("Error buscando tags: "+err.Error(), "Tags")
		return nil
	}

	choices := make([]*discordgo.ApplicationCommandOptionChoice, 0, len(found))
	for _, t := range found {
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{Name: t.Name, Value: t.Name})
	}
	return choices
}

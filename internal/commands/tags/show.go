package tags

import (
	"fmt"

	"github.com/PancyStudios/HelperBot/pkg/discord"
	"github.com/bwmarrin/discordgo"
)

func (h *handlers) showCommand() *discord.Command {
	return discord.NewCommand(
		"show",
		"Muestra un tag",
		"tags",
		h.show,
	).WithAliases("ver").
		WithOptions(nameOption(true)).
		WithAutoComplete(h.autocompleteNames)
}

func (h *handlers) show(ctx *discord.CommandContext) error {
	tag, err := h.tags.Get(ctx.GuildID(), ctx.GetStringOption("nombre"))
	if err != nil {
		return replyError(ctx, err)
	}

	_, err = ctx.Send(&discordgo.MessageSend{
		Content:         tag.Content,
		AllowedMentions: &discordgo.MessageAllowedMentions{},
	})
	return err
}

// showShortcut runs for "!t <nombre>"; without a name it lists the subcommands
func (h *handlers) showShortcut(ctx *discord.CommandContext) error {
	if ctx.GetStringOption("nombre") != "" {
		return h.show(ctx)
	}

	var lines string
	for _, sub := range ctx.Command.Subcommands {
		lines += fmt.Sprintf("• `%s` - %s\n", discord.Usage(sub), sub.Description)
	}
	return ctx.ReplyEphemeralEmbed(&discordgo.MessageEmbed{
		Title:       "🏷️ Tags",
		Description: lines,
		Color:       tagColor,
	})
}

package utils

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/PancyStudios/HelperBot/pkg/discord"
	"github.com/bwmarrin/discordgo"
)

const helpColor = 0x5865F2

// createHelpCommand creates the help root command
func createHelpCommand() *discord.Command {
	return discord.NewCommand(
		"help",
		"Muestra la lista de comandos o la ayuda de uno",
		"utils",
		helpHandler,
	).WithAliases("h", "ayuda").WithOptions(
		&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "comando",
			Description: "Comando del que quieres ver la ayuda",
			Required:    false,
		},
	)
}

func helpHandler(ctx *discord.CommandContext) error {
	showDev := canSeeDev(ctx)

	if query := strings.TrimSpace(ctx.GetStringOption("comando")); query != "" {
		cmd := lookupCommand(ctx.Client.Registry, query)
		if cmd == nil || (cmd.Root().IsDev && !showDev) {
			return ctx.ReplyEphemeral(fmt.Sprintf("❌ No encontré el comando `%s`.", query))
		}
		return ctx.ReplyEmbed(commandEmbed(cmd, ctx.Client.Dispatcher.Prefix))
	}

	pages := categoryPages(ctx.Client.Registry.All(), ctx.Client.Dispatcher.Prefix, showDev)
	if len(pages) == 0 {
		return ctx.ReplyEphemeral("No hay comandos disponibles.")
	}
	_, err := ctx.Client.Paginators.Start(ctx, pages)
	return err
}

func canSeeDev(ctx *discord.CommandContext) bool {
	user := ctx.User()
	isDev := ctx.Client.Dispatcher.IsDeveloper
	return user != nil && isDev != nil && isDev(user.ID)
}

// lookupCommand resolves a command path typed by the user. Groups without a
// handler resolve to the group itself.
func lookupCommand(registry *discord.Registry, query string) *discord.Command {
	res, err := registry.Resolve(discord.Tokenize(query))
	if err != nil {
		var unknown *discord.UnknownSubcommandError
		if errors.As(err, &unknown) && unknown.Token == "" {
			return unknown.Command
		}
		return nil
	}
	if len(res.Args) > 0 {
		return nil
	}
	return res.Command
}

// categoryPages builds one help page per category, sorted by name
func categoryPages(roots []*discord.Command, prefix string, showDev bool) []*discordgo.MessageEmbed {
	byCategory := make(map[string][]*discord.Command)
	for _, cmd := range roots {
		if cmd.IsDev && !showDev {
			continue
		}
		category := cmd.Category
		if category == "" {
			category = "general"
		}
		byCategory[category] = append(byCategory[category], cmd)
	}

	categories := make([]string, 0, len(byCategory))
	for c := range byCategory {
		categories = append(categories, c)
	}
	sort.Strings(categories)

	pages := make([]*discordgo.MessageEmbed, 0, len(categories))
	for _, category := range categories {
		cmds := byCategory[category]
		sort.Slice(cmds, func(i, j int) bool { return cmds[i].Name < cmds[j].Name })

		var b strings.Builder
		for _, cmd := range cmds {
			writeCommandLines(&b, cmd, showDev)
		}

		pages = append(pages, &discordgo.MessageEmbed{
			Title:       "📖 Ayuda · " + category,
			Description: b.String(),
			Color:       helpColor,
			Footer: &discordgo.MessageEmbedFooter{
				Text: fmt.Sprintf("Usa %shelp <comando> para ver los detalles", prefix),
			},
		})
	}
	return pages
}

func writeCommandLines(b *strings.Builder, cmd *discord.Command, showDev bool) {
	if cmd.Run != nil || !cmd.HasSubcommands() {
		fmt.Fprintf(b, "• `%s` - %s\n", cmd.DisplayName(), cmd.Description)
	}
	for _, sub := range cmd.Subcommands {
		if sub.IsDev && !showDev {
			continue
		}
		writeCommandLines(b, sub, showDev)
	}
}

// commandEmbed describes a single command or group
func commandEmbed(cmd *discord.Command, prefix string) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:       "📖 " + cmd.DisplayName(),
		Description: cmd.Description,
		Color:       helpColor,
	}

	if cmd.Run != nil {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  "Uso",
			Value: "`" + prefix + discord.Usage(cmd) + "`",
		})
	}
	if len(cmd.Aliases) > 0 {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   "Alias",
			Value:  "`" + strings.Join(cmd.Aliases, "`, `") + "`",
			Inline: true,
		})
	}
	if cmd.Category != "" {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   "Categoría",
			Value:  cmd.Category,
			Inline: true,
		})
	}
	if cmd.UserPermissions != 0 {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  "Permisos",
			Value: strings.Join(discord.PermissionNames(cmd.UserPermissions), ", "),
		})
	}
	if cmd.Cooldown > 0 {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   "Cooldown",
			Value:  fmt.Sprintf("%.0f segundos", cmd.Cooldown.Seconds()),
			Inline: true,
		})
	}

	var subs []string
	for _, sub := range cmd.Subcommands {
		if sub.IsDev {
			continue
		}
		subs = append(subs, fmt.Sprintf("`%s` - %s", sub.Name, sub.Description))
	}
	if len(subs) > 0 {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  "Subcomandos",
			Value: strings.Join(subs, "\n"),
		})
	}
	return embed
}

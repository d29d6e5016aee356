// Package discord provides command types and structures.
package discord

import (
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
)

// CommandKind says through which sources a command can be invoked
type CommandKind uint8

const (
	KindSlash CommandKind = 1 << iota
	KindText

	KindBoth = KindSlash | KindText
)

// Command represents a bot command. Commands form a tree through Subcommands;
// a node with a Run func is invocable, a node with Subcommands is a group.
type Command struct {
	Name            string
	Aliases         []string
	Description     string
	Category        string
	Usage           string
	Options         []*discordgo.ApplicationCommandOption
	Subcommands     []*Command
	UserPermissions int64
	BotPermissions  int64
	IsDev           bool
	GuildOnly       bool
	Cooldown        time.Duration
	Kind            CommandKind
	Run             CommandRunFunc
	AutoComplete    AutoCompleteFunc

	parent *Command
}

// CommandRunFunc is the function type for command execution
type CommandRunFunc func(ctx *CommandContext) error

// AutoCompleteFunc returns the choices offered for the focused option
type AutoCompleteFunc func(ctx *CommandContext) []*discordgo.ApplicationCommandOptionChoice

// NewCommand creates a new Command with required fields
func NewCommand(name, description, category string, run CommandRunFunc) *Command {
	return &Command{
		Name:        name,
		Description: description,
		Category:    category,
		Kind:        KindBoth,
		Run:         run,
	}
}

// NewGroup creates a command that only groups subcommands
func NewGroup(name, description, category string, subcommands ...*Command) *Command {
	return &Command{
		Name:        name,
		Description: description,
		Category:    category,
		Kind:        KindBoth,
		Subcommands: subcommands,
	}
}

// WithOptions sets the command options
func (c *Command) WithOptions(opts ...*discordgo.ApplicationCommandOption) *Command {
	c.Options = opts
	return c
}

// WithAliases sets alternative names used by text invocations
func (c *Command) WithAliases(aliases ...string) *Command {
	c.Aliases = aliases
	return c
}

// WithSubcommands appends child commands
func (c *Command) WithSubcommands(subs ...*Command) *Command {
	c.Subcommands = append(c.Subcommands, subs...)
	return c
}

// WithUsage sets the argument synopsis shown by help
func (c *Command) WithUsage(usage string) *Command {
	c.Usage = usage
	return c
}

// WithUserPermissions sets required user permissions
func (c *Command) WithUserPermissions(perms int64) *Command {
	c.UserPermissions = perms
	return c
}

// WithBotPermissions sets required bot permissions
func (c *Command) WithBotPermissions(perms int64) *Command {
	c.BotPermissions = perms
	return c
}

// WithCooldown sets the per user cooldown
func (c *Command) WithCooldown(d time.Duration) *Command {
	c.Cooldown = d
	return c
}

// AsDev marks the command as a dev-only command
func (c *Command) AsDev() *Command {
	c.IsDev = true
	return c
}

// InGuildOnly forbids the command in direct messages
func (c *Command) InGuildOnly() *Command {
	c.GuildOnly = true
	return c
}

// TextOnly hides the command from slash registration
func (c *Command) TextOnly() *Command {
	c.Kind = KindText
	return c
}

// SlashOnly hides the command from text invocation
func (c *Command) SlashOnly() *Command {
	c.Kind = KindSlash
	return c
}

// WithAutoComplete sets the autocomplete handler
func (c *Command) WithAutoComplete(fn AutoCompleteFunc) *Command {
	c.AutoComplete = fn
	return c
}

// Parent returns the group this command belongs to, nil for roots
func (c *Command) Parent() *Command {
	return c.parent
}

// Root returns the top level command of the tree
func (c *Command) Root() *Command {
	root := c
	for root.parent != nil {
		root = root.parent
	}
	return root
}

// Path returns the command names from the root down to c
func (c *Command) Path() []string {
	var path []string
	for n := c; n != nil; n = n.parent {
		path = append([]string{n.Name}, path...)
	}
	return path
}

// FullName returns the dotted path, e.g. "tag.create"
func (c *Command) FullName() string {
	return strings.Join(c.Path(), ".")
}

// DisplayName returns the space separated path, as typed by users
func (c *Command) DisplayName() string {
	return strings.Join(c.Path(), " ")
}

// HasSubcommands reports whether c is a group
func (c *Command) HasSubcommands() bool {
	return len(c.Subcommands) > 0
}

// AllowsSlash reports whether the command can be invoked as a slash command
func (c *Command) AllowsSlash() bool {
	return c.Kind&KindSlash != 0
}

// AllowsText reports whether the command can be invoked with the text prefix
func (c *Command) AllowsText() bool {
	return c.Kind&KindText != 0
}

// Matches reports whether token is the name or an alias of c, ignoring case
func (c *Command) Matches(token string) bool {
	if strings.EqualFold(c.Name, token) {
		return true
	}
	for _, a := range c.Aliases {
		if strings.EqualFold(a, token) {
			return true
		}
	}
	return false
}

// Child returns the subcommand matching token, or nil
func (c *Command) Child(token string) *Command {
	for _, sub := range c.Subcommands {
		if sub.Matches(token) {
			return sub
		}
	}
	return nil
}

// ToApplicationCommand converts the command tree to a Discord application command.
// Children with their own children become subcommand groups, leaf children subcommands.
func (c *Command) ToApplicationCommand() *discordgo.ApplicationCommand {
	appCmd := &discordgo.ApplicationCommand{
		Name:        strings.ToLower(c.Name),
		Description: c.Description,
		Options:     c.slashOptions(),
	}

	if c.UserPermissions != 0 {
		perms := c.UserPermissions
		appCmd.DefaultMemberPermissions = &perms
	}
	if c.GuildOnly {
		dm := false
		appCmd.DMPermission = &dm
	}
	return appCmd
}

func (c *Command) slashOptions() []*discordgo.ApplicationCommandOption {
	if !c.HasSubcommands() {
		return c.Options
	}

	options := make([]*discordgo.ApplicationCommandOption, 0, len(c.Subcommands))
	for _, sub := range c.Subcommands {
		if !sub.AllowsSlash() {
			continue
		}

		optType := discordgo.ApplicationCommandOptionSubCommand
		if sub.HasSubcommands() {
			optType = discordgo.ApplicationCommandOptionSubCommandGroup
		}

		options = append(options, &discordgo.ApplicationCommandOption{
			Type:        optType,
			Name:        strings.ToLower(sub.Name),
			Description: sub.Description,
			Options:     sub.slashOptions(),
		})
	}
	return options
}

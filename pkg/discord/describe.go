package discord

// CommandInfo is the public description of a command node
type CommandInfo struct {
	Name        string        `json:"name"`
	Path        string        `json:"path"`
	Description string        `json:"description"`
	Category    string        `json:"category,omitempty"`
	Aliases     []string      `json:"aliases,omitempty"`
	Usage       string        `json:"usage"`
	Slash       bool          `json:"slash"`
	Text        bool          `json:"text"`
	GuildOnly   bool          `json:"guildOnly"`
	Permissions []string      `json:"permissions,omitempty"`
	Cooldown    float64       `json:"cooldownSeconds,omitempty"`
	Subcommands []CommandInfo `json:"subcommands,omitempty"`
}

// DescribeCommand converts a command tree into its public description.
// Developer-only nodes are left out.
func DescribeCommand(cmd *Command) CommandInfo {
	info := CommandInfo{
		Name:        cmd.Name,
		Path:        cmd.DisplayName(),
		Description: cmd.Description,
		Category:    cmd.Category,
		Aliases:     cmd.Aliases,
		Usage:       Usage(cmd),
		Slash:       cmd.AllowsSlash(),
		Text:        cmd.AllowsText(),
		GuildOnly:   cmd.GuildOnly,
		Cooldown:    cmd.Cooldown.Seconds(),
	}
	if cmd.UserPermissions != 0 {
		info.Permissions = PermissionNames(cmd.UserPermissions)
	}
	for _, sub := range cmd.Subcommands {
		if sub.IsDev {
			continue
		}
		info.Subcommands = append(info.Subcommands, DescribeCommand(sub))
	}
	return info
}

// DescribeCommands describes every public root command
func DescribeCommands(cmds []*Command) []CommandInfo {
	out := make([]CommandInfo, 0, len(cmds))
	for _, cmd := range cmds {
		if cmd.IsDev {
			continue
		}
		out = append(out, DescribeCommand(cmd))
	}
	return out
}

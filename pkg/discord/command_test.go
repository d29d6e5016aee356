package discord

import (
	"testing"

	"github.com/bwmarrin/discordgo"
)

// TestCommandCreation verifies that commands can be created with the builder pattern
func TestCommandCreation(t *testing.T) {
	handler := func(ctx *CommandContext) error {
		return nil
	}

	cmd := NewCommand("test", "Test command", "test", handler)

	if cmd == nil {
		t.Fatal("NewCommand returned nil")
	}

	if cmd.Name != "test" {
		t.Errorf("Name = %v, want %v", cmd.Name, "test")
	}

	if cmd.Description != "Test command" {
		t.Errorf("Description = %v, want %v", cmd.Description, "Test command")
	}

	if cmd.Category != "test" {
		t.Errorf("Category = %v, want %v", cmd.Category, "test")
	}

	if cmd.Run == nil {
		t.Error("Run function is nil")
	}

	if cmd.Kind != KindBoth {
		t.Errorf("Kind = %v, want %v", cmd.Kind, KindBoth)
	}
}

// TestCommandWithOptions verifies the WithOptions builder method
func TestCommandWithOptions(t *testing.T) {
	handler := func(ctx *CommandContext) error {
		return nil
	}

	option := &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "test-option",
		Description: "Test option",
		Required:    true,
	}

	cmd := NewCommand("test", "Test command", "test", handler).
		WithOptions(option)

	if cmd.Options == nil {
		t.Fatal("Options is nil")
	}

	if len(cmd.Options) != 1 {
		t.Fatalf("Options length = %v, want %v", len(cmd.Options), 1)
	}

	if cmd.Options[0].Name != "test-option" {
		t.Errorf("Option name = %v, want %v", cmd.Options[0].Name, "test-option")
	}
}

// TestCommandWithPermissions verifies the permission builder methods
func TestCommandWithPermissions(t *testing.T) {
	handler := func(ctx *CommandContext) error {
		return nil
	}

	cmd := NewCommand("test", "Test command", "test", handler).
		WithUserPermissions(discordgo.PermissionAdministrator).
		WithBotPermissions(discordgo.PermissionSendMessages)

	if cmd.UserPermissions != discordgo.PermissionAdministrator {
		t.Errorf("UserPermissions = %v, want %v", cmd.UserPermissions, discordgo.PermissionAdministrator)
	}

	if cmd.BotPermissions != discordgo.PermissionSendMessages {
		t.Errorf("BotPermissions = %v, want %v", cmd.BotPermissions, discordgo.PermissionSendMessages)
	}
}

// TestCommandAsDev verifies the AsDev builder method
func TestCommandAsDev(t *testing.T) {
	handler := func(ctx *CommandContext) error {
		return nil
	}

	cmd := NewCommand("test", "Test command", "test", handler).AsDev()

	if !cmd.IsDev {
		t.Error("IsDev should be true after calling AsDev()")
	}
}

// TestToApplicationCommand verifies conversion to Discord application command
func TestToApplicationCommand(t *testing.T) {
	handler := func(ctx *CommandContext) error {
		return nil
	}

	option := &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "test-option",
		Description: "Test option",
		Required:    true,
	}

	cmd := NewCommand("test", "Test command", "test", handler).
		WithOptions(option)

	appCmd := cmd.ToApplicationCommand()

	if appCmd == nil {
		t.Fatal("ToApplicationCommand returned nil")
	}

	if appCmd.Name != "test" {
		t.Errorf("ApplicationCommand Name = %v, want %v", appCmd.Name, "test")
	}

	if appCmd.Description != "Test command" {
		t.Errorf("ApplicationCommand Description = %v, want %v", appCmd.Description, "Test command")
	}

	if len(appCmd.Options) != 1 {
		t.Fatalf("ApplicationCommand Options length = %v, want %v", len(appCmd.Options), 1)
	}
}

// TestCommandKinds verifies the TextOnly and SlashOnly builder methods
func TestCommandKinds(t *testing.T) {
	text := NewCommand("a", "x", "", noop).TextOnly()
	if text.AllowsSlash() || !text.AllowsText() {
		t.Error("TextOnly command should only allow text invocation")
	}

	slash := NewCommand("b", "x", "", noop).SlashOnly()
	if !slash.AllowsSlash() || slash.AllowsText() {
		t.Error("SlashOnly command should only allow slash invocation")
	}
}

// TestToApplicationCommandTree verifies groups become subcommand groups and leaves subcommands
func TestToApplicationCommandTree(t *testing.T) {
	cmd := NewGroup("Tag", "Tags", "tags",
		NewCommand("show", "Muestra", "", noop).WithOptions(&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "nombre",
			Description: "Nombre",
			Required:    true,
		}),
		NewGroup("admin", "Admin", "", NewCommand("purge", "Purga", "", noop)),
		NewCommand("legacy", "Solo texto", "", noop).TextOnly(),
	).InGuildOnly().WithUserPermissions(discordgo.PermissionManageMessages)

	appCmd := cmd.ToApplicationCommand()

	if appCmd.Name != "tag" {
		t.Errorf("Name = %v, want lower-cased %v", appCmd.Name, "tag")
	}
	if len(appCmd.Options) != 2 {
		t.Fatalf("Options length = %v, want 2 (text-only children are skipped)", len(appCmd.Options))
	}
	if appCmd.Options[0].Type != discordgo.ApplicationCommandOptionSubCommand {
		t.Errorf("show type = %v, want SubCommand", appCmd.Options[0].Type)
	}
	if len(appCmd.Options[0].Options) != 1 {
		t.Errorf("show should carry its own options")
	}
	if appCmd.Options[1].Type != discordgo.ApplicationCommandOptionSubCommandGroup {
		t.Errorf("admin type = %v, want SubCommandGroup", appCmd.Options[1].Type)
	}
	if appCmd.Options[1].Options[0].Name != "purge" {
		t.Errorf("admin child = %v, want purge", appCmd.Options[1].Options[0].Name)
	}
	if appCmd.DMPermission == nil || *appCmd.DMPermission {
		t.Error("guild-only commands should disable DM permission")
	}
	if appCmd.DefaultMemberPermissions == nil || *appCmd.DefaultMemberPermissions != discordgo.PermissionManageMessages {
		t.Error("DefaultMemberPermissions should carry the user permissions")
	}
}

// TestCommandPath verifies Path, FullName and DisplayName
func TestCommandPath(t *testing.T) {
	leaf := NewCommand("add", "x", "", noop)
	NewRegistry().MustRegister(NewGroup("dev", "x", "", NewGroup("blacklist", "x", "", leaf)))

	path := leaf.Path()
	if len(path) != 3 || path[0] != "dev" || path[2] != "add" {
		t.Errorf("Path() = %v", path)
	}
	if leaf.FullName() != "dev.blacklist.add" {
		t.Errorf("FullName() = %v", leaf.FullName())
	}
	if leaf.DisplayName() != "dev blacklist add" {
		t.Errorf("DisplayName() = %v", leaf.DisplayName())
	}
	if leaf.Parent().Name != "blacklist" {
		t.Errorf("Parent() = %v", leaf.Parent().Name)
	}
}

// TestUsage verifies the generated synopsis
func TestUsage(t *testing.T) {
	cmd := NewCommand("info", "x", "", noop).WithOptions(
		&discordgo.ApplicationCommandOption{Type: discordgo.ApplicationCommandOptionString, Name: "nombre", Required: true},
		&discordgo.ApplicationCommandOption{Type: discordgo.ApplicationCommandOptionUser, Name: "usuario"},
	)
	if got := Usage(cmd); got != "info <nombre> [usuario]" {
		t.Errorf("Usage() = %q", got)
	}

	cmd.WithUsage("<lo que sea>")
	if got := Usage(cmd); got != "info <lo que sea>" {
		t.Errorf("Usage() with explicit usage = %q", got)
	}
}

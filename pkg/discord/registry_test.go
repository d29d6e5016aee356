package discord

import (
	"errors"
	"testing"

	"github.com/bwmarrin/discordgo"
)

func tagTree() *Command {
	return NewGroup("tag", "Gestiona tags", "tags",
		NewCommand("show", "Muestra un tag", "", noop),
		NewCommand("create", "Crea un tag", "", noop).WithAliases("new", "add"),
		NewGroup("admin", "Administración", "",
			NewCommand("purge", "Borra todo", "", noop),
		),
	).WithAliases("t")
}

func TestRegisterLinksParentsAndCategories(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(tagTree()); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	root, ok := r.Get("T")
	if !ok {
		t.Fatal("Get(T) should find the tag command through its alias, ignoring case")
	}

	purge := root.Child("admin").Child("purge")
	if got := purge.FullName(); got != "tag.admin.purge" {
		t.Errorf("FullName() = %v, want %v", got, "tag.admin.purge")
	}
	if purge.Category != "tags" {
		t.Errorf("Category = %v, want inherited %v", purge.Category, "tags")
	}
	if purge.Root() != root {
		t.Error("Root() should return the registered root")
	}
}

func TestRegisterErrors(t *testing.T) {
	tests := []struct {
		name string
		cmd  *Command
		want error
	}{
		{"empty name", NewCommand("", "x", "", noop), ErrEmptyName},
		{"name with spaces", NewCommand("two words", "x", "", noop), ErrEmptyName},
		{"no handler", &Command{Name: "empty"}, ErrNoHandler},
		{"sibling alias clash", NewGroup("g", "x", "",
			NewCommand("a", "x", "", noop).WithAliases("dup"),
			NewCommand("b", "x", "", noop).WithAliases("DUP"),
		), ErrDuplicateAlias},
		{"slash tree too deep", NewGroup("a", "x", "",
			NewGroup("b", "x", "",
				NewGroup("c", "x", "", NewCommand("d", "x", "", noop)),
			),
		), ErrTreeTooDeep},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewRegistry().Register(tt.cmd)
			if !errors.Is(err, tt.want) {
				t.Errorf("Register() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestRegisterDeepTextOnlyTree(t *testing.T) {
	deep := NewGroup("a", "x", "",
		NewGroup("b", "x", "",
			NewGroup("c", "x", "", NewCommand("d", "x", "", noop)),
		),
	).TextOnly()

	if err := NewRegistry().Register(deep); err != nil {
		t.Errorf("text-only trees may be deeper, got %v", err)
	}
}

func TestRegisterDuplicateRoot(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(tagTree())

	err := r.Register(NewCommand("other", "x", "", noop).WithAliases("t"))
	if !errors.Is(err, ErrDuplicateAlias) {
		t.Errorf("Register() error = %v, want %v", err, ErrDuplicateAlias)
	}
	if r.Size() != 1 {
		t.Errorf("Size() = %v, want %v", r.Size(), 1)
	}
}

func TestAllSortedAndWalk(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(
		NewCommand("zeta", "x", "", noop),
		tagTree(),
		NewCommand("alpha", "x", "", noop),
	)

	all := r.All()
	want := []string{"alpha", "tag", "zeta"}
	for i, cmd := range all {
		if cmd.Name != want[i] {
			t.Errorf("All()[%d] = %v, want %v", i, cmd.Name, want[i])
		}
	}

	var visited []string
	r.Walk(func(cmd *Command) { visited = append(visited, cmd.FullName()) })
	wantWalk := []string{"alpha", "tag", "tag.show", "tag.create", "tag.admin", "tag.admin.purge", "zeta"}
	if len(visited) != len(wantWalk) {
		t.Fatalf("Walk() visited %v, want %v", visited, wantWalk)
	}
	for i := range wantWalk {
		if visited[i] != wantWalk[i] {
			t.Errorf("Walk()[%d] = %v, want %v", i, visited[i], wantWalk[i])
		}
	}
}

func TestResolve(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(tagTree(), NewCommand("ping", "x", "", noop))

	tests := []struct {
		tokens   []string
		wantName string
		wantArgs int
	}{
		{[]string{"ping"}, "ping", 0},
		{[]string{"ping", "extra"}, "ping", 1},
		{[]string{"t", "new", "hola", "mundo"}, "tag.create", 2},
		{[]string{"TAG", "Admin", "purge"}, "tag.admin.purge", 0},
	}

	for _, tt := range tests {
		res, err := r.Resolve(tt.tokens)
		if err != nil {
			t.Errorf("Resolve(%v) error = %v", tt.tokens, err)
			continue
		}
		if res.Command.FullName() != tt.wantName {
			t.Errorf("Resolve(%v) = %v, want %v", tt.tokens, res.Command.FullName(), tt.wantName)
		}
		if len(res.Args) != tt.wantArgs {
			t.Errorf("Resolve(%v) args = %v, want %d args", tt.tokens, res.Args, tt.wantArgs)
		}
	}
}

func TestResolveErrors(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(tagTree())

	if _, err := r.Resolve(nil); !errors.Is(err, ErrCommandNotFound) {
		t.Errorf("Resolve(nil) error = %v, want %v", err, ErrCommandNotFound)
	}
	if _, err := r.Resolve([]string{"nope"}); !errors.Is(err, ErrCommandNotFound) {
		t.Errorf("Resolve(nope) error = %v, want %v", err, ErrCommandNotFound)
	}

	_, err := r.Resolve([]string{"tag", "bogus"})
	var unknown *UnknownSubcommandError
	if !errors.As(err, &unknown) {
		t.Fatalf("Resolve(tag bogus) error = %v, want UnknownSubcommandError", err)
	}
	if unknown.Command.Name != "tag" || unknown.Token != "bogus" {
		t.Errorf("UnknownSubcommandError = %+v", unknown)
	}
	if !errors.Is(err, ErrUnknownSubcommand) {
		t.Error("UnknownSubcommandError should unwrap to ErrUnknownSubcommand")
	}
}

func TestResolveSkipsSlashOnly(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(NewCommand("hidden", "x", "", noop).SlashOnly())

	if _, err := r.Resolve([]string{"hidden"}); !errors.Is(err, ErrCommandNotFound) {
		t.Errorf("slash-only commands must not resolve from text, got %v", err)
	}
}

func TestResolveInteraction(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(tagTree())

	data := discordgo.ApplicationCommandInteractionData{
		Name: "tag",
		Options: []*discordgo.ApplicationCommandInteractionDataOption{{
			Name: "admin",
			Type: discordgo.ApplicationCommandOptionSubCommandGroup,
			Options: []*discordgo.ApplicationCommandInteractionDataOption{{
				Name: "purge",
				Type: discordgo.ApplicationCommandOptionSubCommand,
				Options: []*discordgo.ApplicationCommandInteractionDataOption{
					{Name: "force", Type: discordgo.ApplicationCommandOptionBoolean, Value: true},
				},
			}},
		}},
	}

	res, err := r.ResolveInteraction(data)
	if err != nil {
		t.Fatalf("ResolveInteraction() error = %v", err)
	}
	if res.Command.FullName() != "tag.admin.purge" {
		t.Errorf("Command = %v, want %v", res.Command.FullName(), "tag.admin.purge")
	}
	if len(res.Options) != 1 || res.Options[0].Name != "force" {
		t.Errorf("Options = %v, want the leaf options", res.Options)
	}

	_, err = r.ResolveInteraction(discordgo.ApplicationCommandInteractionData{Name: "tag"})
	if !errors.Is(err, ErrUnknownSubcommand) {
		t.Errorf("ResolveInteraction(tag) error = %v, want %v", err, ErrUnknownSubcommand)
	}
}

package discord

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/bwmarrin/discordgo"
)

var (
	ErrCommandNotFound   = errors.New("command not found")
	ErrUnknownSubcommand = errors.New("unknown subcommand")
	ErrEmptyName         = errors.New("command name is empty or contains spaces")
	ErrDuplicateAlias    = errors.New("duplicate command name or alias")
	ErrTreeTooDeep       = errors.New("slash command tree deeper than group > subcommand")
	ErrNoHandler         = errors.New("command has neither a handler nor subcommands")
)

// maxSlashDepth is the deepest level a slash command tree may reach (root = 0)
const maxSlashDepth = 2

// UnknownSubcommandError is returned when resolution stops at a group that cannot run.
// Command is the group, so callers can list its children.
type UnknownSubcommandError struct {
	Command *Command
	Token   string
}

func (e *UnknownSubcommandError) Error() string {
	if e.Token == "" {
		return fmt.Sprintf("%s: %s requires a subcommand", ErrUnknownSubcommand, e.Command.FullName())
	}
	return fmt.Sprintf("%s %q for %s", ErrUnknownSubcommand, e.Token, e.Command.FullName())
}

func (e *UnknownSubcommandError) Unwrap() error {
	return ErrUnknownSubcommand
}

// Resolution is the outcome of resolving an invocation against the registry
type Resolution struct {
	Command *Command
	// Path holds the canonical names from the root to Command
	Path []string
	// Args holds the text tokens left after the command path
	Args []string
	// Options holds the slash options addressed to Command
	Options []*discordgo.ApplicationCommandInteractionDataOption

	tokens []token
}

// Registry indexes root commands by name and alias
type Registry struct {
	mu    sync.RWMutex
	roots []*Command
	index map[string]*Command
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{index: make(map[string]*Command)}
}

// Register validates a command tree and adds it to the registry
func (r *Registry) Register(cmd *Command) error {
	if err := prepare(cmd, nil, 0, true); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	keys := commandKeys(cmd)
	for _, k := range keys {
		if _, taken := r.index[k]; taken {
			return fmt.Errorf("%w: %q", ErrDuplicateAlias, k)
		}
	}
	for _, k := range keys {
		r.index[k] = cmd
	}
	r.roots = append(r.roots, cmd)
	return nil
}

// MustRegister registers cmd and panics on error; meant for static command tables
func (r *Registry) MustRegister(cmds ...*Command) {
	for _, cmd := range cmds {
		if err := r.Register(cmd); err != nil {
			panic(fmt.Sprintf("registering %s: %v", cmd.Name, err))
		}
	}
}

// prepare validates a node, links parents and fills defaults
func prepare(cmd, parent *Command, depth int, slash bool) error {
	if cmd.Name == "" || strings.ContainsAny(cmd.Name, " \t\n") {
		return ErrEmptyName
	}
	if cmd.Kind == 0 {
		cmd.Kind = KindBoth
	}
	if cmd.Category == "" && parent != nil {
		cmd.Category = parent.Category
	}
	cmd.parent = parent

	slash = slash && cmd.AllowsSlash()
	if cmd.HasSubcommands() && slash && depth >= maxSlashDepth {
		return fmt.Errorf("%w: %s", ErrTreeTooDeep, cmd.FullName())
	}
	if !cmd.HasSubcommands() && cmd.Run == nil {
		return fmt.Errorf("%w: %s", ErrNoHandler, cmd.FullName())
	}

	seen := make(map[string]bool)
	for _, sub := range cmd.Subcommands {
		for _, k := range commandKeys(sub) {
			if seen[k] {
				return fmt.Errorf("%w: %q in %s", ErrDuplicateAlias, k, cmd.FullName())
			}
			seen[k] = true
		}
		if err := prepare(sub, cmd, depth+1, slash); err != nil {
			return err
		}
	}
	return nil
}

// commandKeys returns the lower-cased name and aliases of cmd
func commandKeys(cmd *Command) []string {
	keys := []string{strings.ToLower(cmd.Name)}
	for _, a := range cmd.Aliases {
		keys = append(keys, strings.ToLower(a))
	}
	return keys
}

// Get retrieves a root command by name or alias
func (r *Registry) Get(name string) (*Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cmd, ok := r.index[strings.ToLower(name)]
	return cmd, ok
}

// All returns the root commands sorted by name
func (r *Registry) All() []*Command {
	r.mu.RLock()
	result := make([]*Command, len(r.roots))
	copy(result, r.roots)
	r.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// Size returns the number of root commands
func (r *Registry) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.roots)
}

// Walk visits every command depth-first, roots in name order
func (r *Registry) Walk(fn func(cmd *Command)) {
	var visit func(c *Command)
	visit = func(c *Command) {
		fn(c)
		for _, sub := range c.Subcommands {
			visit(sub)
		}
	}
	for _, root := range r.All() {
		visit(root)
	}
}

// Resolve walks the tokens of a text invocation down the command tree.
// Descent stops at the first token that is not a child of the current node.
func (r *Registry) Resolve(tokens []string) (*Resolution, error) {
	toks := make([]token, len(tokens))
	for i, t := range tokens {
		toks[i] = token{value: t}
	}
	return r.resolveTokens(toks)
}

func (r *Registry) resolveTokens(tokens []token) (*Resolution, error) {
	if len(tokens) == 0 {
		return nil, ErrCommandNotFound
	}

	node, ok := r.Get(tokens[0].value)
	if !ok || !node.AllowsText() {
		return nil, fmt.Errorf("%w: %q", ErrCommandNotFound, tokens[0].value)
	}

	i := 1
	for i < len(tokens) {
		child := node.Child(tokens[i].value)
		if child == nil || !child.AllowsText() {
			break
		}
		node = child
		i++
	}

	if node.Run == nil {
		e := &UnknownSubcommandError{Command: node}
		if i < len(tokens) {
			e.Token = tokens[i].value
		}
		return nil, e
	}

	rest := tokens[i:]
	args := make([]string, len(rest))
	for j, t := range rest {
		args[j] = t.value
	}
	return &Resolution{Command: node, Path: node.Path(), Args: args, tokens: rest}, nil
}

// ResolveInteraction finds the command addressed by slash interaction data,
// following SubCommandGroup and SubCommand options down to the leaf.
func (r *Registry) ResolveInteraction(data discordgo.ApplicationCommandInteractionData) (*Resolution, error) {
	node, ok := r.Get(data.Name)
	if !ok || !node.AllowsSlash() {
		return nil, fmt.Errorf("%w: %q", ErrCommandNotFound, data.Name)
	}

	opts := data.Options
	for len(opts) == 1 && (opts[0].Type == discordgo.ApplicationCommandOptionSubCommandGroup ||
		opts[0].Type == discordgo.ApplicationCommandOptionSubCommand) {
		child := node.Child(opts[0].Name)
		if child == nil || !child.AllowsSlash() {
			return nil, &UnknownSubcommandError{Command: node, Token: opts[0].Name}
		}
		node = child
		opts = opts[0].Options
	}

	if node.Run == nil {
		return nil, &UnknownSubcommandError{Command: node}
	}
	return &Resolution{Command: node, Path: node.Path(), Options: opts}, nil
}

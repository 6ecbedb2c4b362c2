// Package dispatch routes prefixed text commands to registered handlers. It
// owns tokenizing, typed argument binding, the permission gate and the
// user-facing error surface; everything below it speaks outcome structs.
package dispatch

import (
	"context"
	"errors"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/bwmarrin/discordgo"
)

// Registry is the flat command table keyed by path, populated at startup.
type Registry struct {
	prefix       string
	commands     map[string]*Command
	ordered      []*Command
	restrictions RestrictionProvider
}

// NewRegistry creates a registry for the given single-character prefix.
func NewRegistry(prefix string, restrictions RestrictionProvider) *Registry {
	return &Registry{
		prefix:       prefix,
		commands:     make(map[string]*Command),
		restrictions: restrictions,
	}
}

// Register adds a top-level command and its aliases.
func (r *Registry) Register(cmd *Command) {
	r.commands[cmd.Name] = cmd
	for _, a := range cmd.Aliases {
		r.commands[a] = cmd
	}
	r.ordered = append(r.ordered, cmd)
}

// Commands returns the registered top-level commands in registration order.
func (r *Registry) Commands() []*Command {
	return r.ordered
}

// Lookup resolves a top-level command name or alias.
func (r *Registry) Lookup(name string) *Command {
	return r.commands[strings.ToLower(name)]
}

// HandleMessage is the gateway entry point for message-create events.
func (r *Registry) HandleMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}
	if !strings.HasPrefix(m.Content, r.prefix) {
		return
	}

	body := m.Content[len(r.prefix):]
	tokens := tokenize(body)
	if len(tokens) == 0 {
		return
	}

	cmd := r.Lookup(tokens[0].text)
	if cmd == nil {
		log.WithFields(log.Fields{
			"command": tokens[0].text,
			"user":    m.Author.ID,
		}).Debug("Unknown command")
		return
	}
	rootName := cmd.Name
	consumed := 1

	// Subcommand dispatch is syntactic: descend while the next token names
	// a registered subcommand.
	for consumed < len(tokens) && cmd.Subcommands != nil {
		sub, ok := cmd.Subcommands[strings.ToLower(tokens[consumed].text)]
		if !ok {
			break
		}
		cmd = sub
		consumed++
	}

	var guild *discordgo.Guild
	if m.GuildID != "" {
		guild, _ = s.State.Guild(m.GuildID)
	}

	ctx := &Context{
		Ctx:     context.Background(),
		Session: s,
		Message: m.Message,
		Guild:   guild,
		Command: cmd,
	}
	if ctx.Message.Member != nil && ctx.Message.Member.User == nil {
		ctx.Message.Member.User = m.Author
	}

	if err := r.gate(ctx, cmd, rootName); err != nil {
		r.renderError(ctx, err)
		return
	}

	if cmd.Run == nil {
		// Group without an invoked subcommand: show its usage summary.
		r.renderGroupHelp(ctx, cmd)
		return
	}

	rawArgs := ""
	if consumed < len(tokens) {
		rawArgs = body[tokens[consumed].offset:]
	}
	args, err := bindArgs(guild, cmd.Params, rawArgs)
	if err != nil {
		r.renderError(ctx, err)
		return
	}
	ctx.Args = args

	if err := cmd.Run(ctx); err != nil {
		r.renderError(ctx, err)
	}
}

// renderError converts the error taxonomy into user-visible replies. Unknown
// failures are logged in full and reported generically.
func (r *Registry) renderError(ctx *Context, err error) {
	var (
		badArg    *BadArgument
		missing   *MissingPermission
		notFound  *NotFound
		forbidden *Forbidden
		conflict  *StateConflict
	)

	switch {
	case errors.As(err, &badArg):
		usage := ""
		if ctx.Command != nil && ctx.Command.Usage != "" {
			usage = "\nUsage: `" + r.prefix + ctx.Command.Usage + "`"
		}
		_ = ctx.Reply("❌ %s%s", badArg.Reason, usage)
	case errors.As(err, &missing):
		if missing == errRestricted {
			// Restriction-map denials stay silent by contract.
			log.WithFields(log.Fields{
				"command": ctx.Command.Name,
				"user":    ctx.Author().ID,
			}).Debug("Command denied by restriction map")
			return
		}
		_ = ctx.Reply("🚫 You need %s to use this command.", missing.Need)
	case errors.As(err, &notFound):
		_ = ctx.Reply("❌ %s was not found.", notFound.What)
	case errors.As(err, &forbidden):
		_ = ctx.Reply("⚠️ I'm missing the permission to %s.", forbidden.Action)
	case errors.As(err, &conflict):
		_ = ctx.Reply("❌ %s", conflict.Message)
	default:
		log.WithFields(log.Fields{
			"command": ctx.Command.Name,
			"user":    ctx.Author().ID,
			"error":   err,
		}).Error("Command handler failed")
		_ = ctx.Reply("⚠️ Something went wrong running that command.")
	}
}

func (r *Registry) renderGroupHelp(ctx *Context, cmd *Command) {
	seen := make(map[string]bool)
	var lines []string
	for _, sub := range cmd.Subcommands {
		if seen[sub.Name] {
			continue
		}
		seen[sub.Name] = true
		lines = append(lines, "`"+r.prefix+cmd.Name+" "+sub.Name+"` — "+sub.Description)
	}
	embed := &discordgo.MessageEmbed{
		Title:       cmd.Name,
		Description: cmd.Description + "\n\n" + strings.Join(lines, "\n"),
	}
	_ = ctx.ReplyEmbed(embed)
}

// Prefix returns the registry's command prefix.
func (r *Registry) Prefix() string {
	return r.prefix
}

package dispatch

// ArgKind enumerates the converter kinds the dispatcher can bind.
type ArgKind int

const (
	KindString ArgKind = iota
	KindInt
	KindMember
	KindRole
	KindChannel
	KindDuration
	KindAmount    // integer, or the words "all"/"half"
	KindRemainder // swallows everything left, including spaces
)

// Param declares one slot of a handler's typed signature. The dispatcher
// converts tokens greedily left to right following this schema.
type Param struct {
	Name     string
	Kind     ArgKind
	Greedy   bool // consume tokens while they convert; never fails
	Optional bool
}

// HandlerFunc runs a resolved, permission-checked, argument-bound command.
type HandlerFunc func(ctx *Context) error

// Check is a custom permission gate. A command passes its AnyOf list when at
// least one check returns true.
type Check func(ctx *Context) bool

// Command is one registered command or subcommand. A group with a nil or
// help-style Run and populated Subcommands dispatches syntactically on the
// next token.
type Command struct {
	Name        string
	Aliases     []string
	Category    string
	Description string
	Usage       string
	Params      []Param

	// Permissions is the set of built-in capability bits the invoker must
	// hold (all of them). Guild owner and administrator always pass.
	Permissions int64

	// AnyOf passes when any one check passes. Empty means no custom gate.
	AnyOf []Check

	Run         HandlerFunc
	Subcommands map[string]*Command
}

// Sub registers a subcommand and returns the parent for chaining.
func (c *Command) Sub(sub *Command) *Command {
	if c.Subcommands == nil {
		c.Subcommands = make(map[string]*Command)
	}
	c.Subcommands[sub.Name] = sub
	for _, a := range sub.Aliases {
		c.Subcommands[a] = sub
	}
	return c
}

package catalog

import (
	"slices"

	"github.com/nhdewitt/diagweb/internal/platform"
)

// Kind is the input type of an option.
type Kind string

const (
	KindText     Kind = "text"
	KindNumber   Kind = "number"
	KindCheckbox Kind = "checkbox"
	KindSelect   Kind = "select"
)

func (k Kind) Valid() bool {
	switch k {
	case KindText, KindNumber, KindCheckbox, KindSelect:
		return true
	}
	return false
}

// PlatformSet restricts visibility. An empty set means every family.
type PlatformSet []platform.Family

// effective applies the default-to-both rule shared by commands and options.
func effective(set PlatformSet) PlatformSet {
	if len(set) == 0 {
		return PlatformSet(platform.Families)
	}
	return set
}

// Allows reports whether f is in the effective set.
func (s PlatformSet) Allows(f platform.Family) bool {
	return slices.Contains(effective(s), f)
}

// Choice is one entry of a select option.
type Choice struct {
	Value string `json:"value"`
	Text  string `json:"text"`
}

// Option describes one user-configurable parameter.
type Option struct {
	ID          string      `json:"id"`
	Label       string      `json:"label"`
	Kind        Kind        `json:"type"`
	Required    bool        `json:"required"`
	Placeholder string      `json:"placeholder,omitempty"`
	Default     string      `json:"default,omitempty"`
	Min         *int64      `json:"min,omitempty"`
	Max         *int64      `json:"max,omitempty"`
	Platforms   PlatformSet `json:"platforms,omitempty"`
	Choices     []Choice    `json:"options,omitempty"`
}

// HasChoice reports whether v is a declared select value.
func (o Option) HasChoice(v string) bool {
	return slices.ContainsFunc(o.Choices, func(c Choice) bool { return c.Value == v })
}

// Implementation is the per-platform executable and flag mapping.
type Implementation struct {
	Base  string              `json:"base"`
	Flags map[string][]string `json:"flags"`
}

// Command is one catalog entry.
type Command struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Target      string      `json:"target,omitempty"`
	Platforms   PlatformSet `json:"platforms,omitempty"`
	Options     []Option    `json:"options"`

	impls  map[platform.Family]Implementation
	shared *Implementation
}

// Implementation returns the spec for f: the platform's own sub-object,
// else the shared "command" fallback. The result is a copy; the catalog
// stays immutable.
func (c *Command) Implementation(f platform.Family) (Implementation, bool) {
	if impl, ok := c.impls[f]; ok {
		return impl.clone(), true
	}
	if c.shared != nil {
		return c.shared.clone(), true
	}
	return Implementation{}, false
}

func (i Implementation) clone() Implementation {
	flags := make(map[string][]string, len(i.Flags))
	for id, tokens := range i.Flags {
		flags[id] = slices.Clone(tokens)
	}
	return Implementation{Base: i.Base, Flags: flags}
}

// Summary is the listing form of a command. Target is null when unset.
type Summary struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Target      *string `json:"target"`
}

func (c *Command) Summary() Summary {
	s := Summary{ID: c.ID, Name: c.Name, Description: c.Description}
	if c.Target != "" {
		target := c.Target
		s.Target = &target
	}
	return s
}

// Option returns the option with the given id.
func (c *Command) Option(id string) (Option, bool) {
	for _, o := range c.Options {
		if o.ID == id {
			return o, true
		}
	}
	return Option{}, false
}

// OptionsForPlatform filters cmd's options to those visible on f, keeping
// declared order.
func OptionsForPlatform(cmd *Command, f platform.Family) []Option {
	out := make([]Option, 0, len(cmd.Options))
	for _, o := range cmd.Options {
		if o.Platforms.Allows(f) {
			out = append(out, o)
		}
	}
	return out
}

// Catalog is the immutable, validated command set.
type Catalog struct {
	commands []*Command
	byID     map[string]*Command
}

// Commands returns every command in source order.
func (c *Catalog) Commands() []*Command {
	return slices.Clone(c.commands)
}

func (c *Catalog) Lookup(id string) (*Command, bool) {
	cmd, ok := c.byID[id]
	return cmd, ok
}

// CommandsForPlatform returns the commands whose effective platform set
// contains f, in source order.
func (c *Catalog) CommandsForPlatform(f platform.Family) []*Command {
	var out []*Command
	for _, cmd := range c.commands {
		if cmd.Platforms.Allows(f) {
			out = append(out, cmd)
		}
	}
	return out
}

func (c *Catalog) Len() int {
	return len(c.commands)
}

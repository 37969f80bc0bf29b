package catalog

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/nhdewitt/diagweb/internal/platform"
)

//go:embed commands.json
var defaultCatalog []byte

// SchemaError reports a catalog authoring mistake found at load time.
type SchemaError struct {
	Command string
	Option  string
	Reason  string
}

func (e *SchemaError) Error() string {
	switch {
	case e.Command == "":
		return "catalog: " + e.Reason
	case e.Option == "":
		return fmt.Sprintf("catalog: command %q: %s", e.Command, e.Reason)
	default:
		return fmt.Sprintf("catalog: command %q: option %q: %s", e.Command, e.Option, e.Reason)
	}
}

func schemaErr(cmd, opt, format string, args ...any) error {
	return &SchemaError{Command: cmd, Option: opt, Reason: fmt.Sprintf(format, args...)}
}

// wire shapes

type rawImplementation struct {
	Base  *string             `json:"base"`
	Flags map[string][]string `json:"flags"`
}

type rawOption struct {
	ID          string          `json:"id"`
	Label       string          `json:"label"`
	Type        string          `json:"type"`
	Required    bool            `json:"required"`
	Placeholder string          `json:"placeholder"`
	Default     json.RawMessage `json:"default"`
	Min         *int64          `json:"min"`
	Max         *int64          `json:"max"`
	Platforms   []string        `json:"platforms"`
	Options     *[]Choice       `json:"options"`
}

type rawCommand struct {
	Name        *string            `json:"name"`
	Description string             `json:"description"`
	Target      *string            `json:"target"`
	Platforms   []string           `json:"platforms"`
	Windows     *rawImplementation `json:"windows"`
	Unix        *rawImplementation `json:"unix"`
	Command     *rawImplementation `json:"command"`
	Options     *[]rawOption       `json:"options"`
}

// Default parses the catalog compiled into the binary.
func Default() (*Catalog, error) {
	return Load(bytes.NewReader(defaultCatalog))
}

// LoadFile parses the catalog at path. An empty path selects the embedded
// catalog.
func LoadFile(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()

	return Load(f)
}

// Load parses and validates a catalog source: a JSON object keyed by command
// id. Key order is kept so listings follow the source.
func Load(r io.Reader) (*Catalog, error) {
	dec := json.NewDecoder(r)

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("parse catalog: top level must be an object keyed by command id")
	}

	cat := &Catalog{byID: make(map[string]*Command)}

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("parse catalog: %w", err)
		}
		id := tok.(string)

		var body json.RawMessage
		if err := dec.Decode(&body); err != nil {
			return nil, fmt.Errorf("parse catalog: command %q: %w", id, err)
		}

		if _, dup := cat.byID[id]; dup {
			return nil, schemaErr(id, "", "duplicate command id")
		}
		key, err := duplicateKey(body)
		if err != nil {
			return nil, fmt.Errorf("parse catalog: command %q: %w", id, err)
		}
		if key != "" {
			return nil, schemaErr(id, "", "duplicate key %q", key)
		}

		var raw rawCommand
		if err := json.Unmarshal(body, &raw); err != nil {
			return nil, fmt.Errorf("parse catalog: command %q: %w", id, err)
		}

		cmd, err := buildCommand(id, raw)
		if err != nil {
			return nil, err
		}
		cat.commands = append(cat.commands, cmd)
		cat.byID[id] = cmd
	}

	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse catalog: trailing data after catalog object")
	}

	return cat, nil
}

// duplicateKey returns the path of the first key repeated within one JSON
// object of data, or "" when every object has unique keys. encoding/json
// merges repeated keys silently, so this runs before decoding.
func duplicateKey(data []byte) (string, error) {
	return walkKeys(json.NewDecoder(bytes.NewReader(data)), "")
}

func walkKeys(dec *json.Decoder, path string) (string, error) {
	tok, err := dec.Token()
	if err != nil {
		return "", err
	}
	delim, ok := tok.(json.Delim)
	if !ok {
		return "", nil
	}

	switch delim {
	case '{':
		seen := make(map[string]struct{})
		for dec.More() {
			tok, err := dec.Token()
			if err != nil {
				return "", err
			}
			key := tok.(string)
			keyPath := key
			if path != "" {
				keyPath = path + "." + key
			}
			if _, dup := seen[key]; dup {
				return keyPath, nil
			}
			seen[key] = struct{}{}

			if found, err := walkKeys(dec, keyPath); found != "" || err != nil {
				return found, err
			}
		}
	case '[':
		for i := 0; dec.More(); i++ {
			if found, err := walkKeys(dec, fmt.Sprintf("%s[%d]", path, i)); found != "" || err != nil {
				return found, err
			}
		}
	}

	// closing delimiter
	if _, err := dec.Token(); err != nil {
		return "", err
	}
	return "", nil
}

func buildCommand(id string, raw rawCommand) (*Command, error) {
	if id == "" {
		return nil, schemaErr("", "", "empty command id")
	}
	if raw.Name == nil || *raw.Name == "" {
		return nil, schemaErr(id, "", "missing required field %q", "name")
	}
	if raw.Options == nil {
		return nil, schemaErr(id, "", "missing required field %q", "options")
	}

	platforms, err := parsePlatforms(id, "", raw.Platforms)
	if err != nil {
		return nil, err
	}

	cmd := &Command{
		ID:          id,
		Name:        *raw.Name,
		Description: raw.Description,
		Platforms:   platforms,
		impls:       make(map[platform.Family]Implementation),
	}

	seen := make(map[string]struct{}, len(*raw.Options))
	for i, ro := range *raw.Options {
		opt, err := buildOption(id, i, ro)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[opt.ID]; dup {
			return nil, schemaErr(id, opt.ID, "duplicate option id")
		}
		seen[opt.ID] = struct{}{}
		cmd.Options = append(cmd.Options, opt)
	}

	if raw.Target != nil && *raw.Target != "" {
		if _, ok := seen[*raw.Target]; !ok {
			return nil, schemaErr(id, "", "target %q does not match any option", *raw.Target)
		}
		cmd.Target = *raw.Target
	}

	for _, entry := range []struct {
		key    string
		family platform.Family
		raw    *rawImplementation
	}{
		{"windows", platform.Windows, raw.Windows},
		{"unix", platform.Unix, raw.Unix},
		{"command", "", raw.Command},
	} {
		if entry.raw == nil {
			continue
		}
		impl, err := buildImplementation(id, entry.key, entry.raw, seen)
		if err != nil {
			return nil, err
		}
		if entry.family == "" {
			cmd.shared = &impl
		} else {
			cmd.impls[entry.family] = impl
		}
	}

	if len(cmd.impls) == 0 && cmd.shared == nil {
		return nil, schemaErr(id, "", "no implementation for any platform")
	}

	return cmd, nil
}

func buildImplementation(id, key string, raw *rawImplementation, options map[string]struct{}) (Implementation, error) {
	if raw.Base == nil || *raw.Base == "" {
		return Implementation{}, schemaErr(id, "", "%s: missing required field %q", key, "base")
	}
	for optID := range raw.Flags {
		if _, ok := options[optID]; !ok {
			return Implementation{}, schemaErr(id, optID, "%s: flags reference unknown option", key)
		}
	}
	flags := raw.Flags
	if flags == nil {
		flags = map[string][]string{}
	}
	return Implementation{Base: *raw.Base, Flags: flags}, nil
}

func buildOption(cmdID string, idx int, raw rawOption) (Option, error) {
	if raw.ID == "" {
		return Option{}, schemaErr(cmdID, "", "option[%d]: missing required field %q", idx, "id")
	}
	if raw.Label == "" {
		return Option{}, schemaErr(cmdID, raw.ID, "missing required field %q", "label")
	}
	if raw.Type == "" {
		return Option{}, schemaErr(cmdID, raw.ID, "missing required field %q", "type")
	}

	kind := Kind(raw.Type)
	if !kind.Valid() {
		return Option{}, schemaErr(cmdID, raw.ID, "unknown type %q", raw.Type)
	}

	platforms, err := parsePlatforms(cmdID, raw.ID, raw.Platforms)
	if err != nil {
		return Option{}, err
	}

	def, err := defaultString(raw.Default)
	if err != nil {
		return Option{}, schemaErr(cmdID, raw.ID, "default: %v", err)
	}

	opt := Option{
		ID:          raw.ID,
		Label:       raw.Label,
		Kind:        kind,
		Required:    raw.Required,
		Placeholder: raw.Placeholder,
		Default:     def,
		Platforms:   platforms,
	}

	if raw.Min != nil || raw.Max != nil {
		if kind != KindNumber {
			return Option{}, schemaErr(cmdID, raw.ID, "min/max only apply to number options")
		}
		if raw.Min != nil && raw.Max != nil && *raw.Min > *raw.Max {
			return Option{}, schemaErr(cmdID, raw.ID, "min %d greater than max %d", *raw.Min, *raw.Max)
		}
		opt.Min, opt.Max = raw.Min, raw.Max
	}

	if kind == KindSelect {
		if raw.Options == nil || len(*raw.Options) == 0 {
			return Option{}, schemaErr(cmdID, raw.ID, "select option requires a non-empty %q list", "options")
		}
		opt.Choices = *raw.Options
	}

	if err := checkDefault(opt); err != nil {
		return Option{}, schemaErr(cmdID, raw.ID, "default %q: %v", opt.Default, err)
	}

	return opt, nil
}

// checkDefault applies the option's own constraints to its default, so a
// bad default fails at load rather than on every request that omits it.
func checkDefault(opt Option) error {
	if opt.Default == "" {
		return nil
	}

	switch opt.Kind {
	case KindNumber:
		n, err := strconv.ParseInt(opt.Default, 10, 64)
		if err != nil {
			return errors.New("not an integer")
		}
		if opt.Min != nil && n < *opt.Min {
			return fmt.Errorf("below min %d", *opt.Min)
		}
		if opt.Max != nil && n > *opt.Max {
			return fmt.Errorf("above max %d", *opt.Max)
		}
	case KindSelect:
		if !opt.HasChoice(opt.Default) {
			return errors.New("not one of the declared options")
		}
	}
	return nil
}

func parsePlatforms(cmdID, optID string, names []string) (PlatformSet, error) {
	if names == nil {
		return nil, nil
	}
	if len(names) == 0 {
		return nil, schemaErr(cmdID, optID, "platforms must not be empty when present")
	}
	set := make(PlatformSet, 0, len(names))
	for _, n := range names {
		f := platform.Family(n)
		if !f.Valid() {
			return nil, schemaErr(cmdID, optID, "unknown platform %q", n)
		}
		set = append(set, f)
	}
	return set, nil
}

// defaultString normalises a JSON default (string, number, bool, null) to
// the string form used as an option value.
func defaultString(raw json.RawMessage) (string, error) {
	if len(raw) == 0 {
		return "", nil
	}

	var v any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return "", err
	}

	switch t := v.(type) {
	case nil:
		return "", nil
	case string:
		return t, nil
	case json.Number:
		return t.String(), nil
	case bool:
		if t {
			return strconv.FormatBool(t), nil
		}
		return "", nil
	}
	return "", fmt.Errorf("unsupported value %s", raw)
}

// Package builder turns option values into an argument vector for one
// catalog command on one platform.
package builder

import (
	"strconv"

	"golang.org/x/exp/constraints"

	"github.com/nhdewitt/diagweb/internal/catalog"
	"github.com/nhdewitt/diagweb/internal/platform"
)

// Values maps option id to the user-supplied string value.
type Values map[string]string

// Build assembles argv for cmd on family. The result is a list of discrete
// literal arguments and must be executed without a shell.
func Build(cmd *catalog.Command, family platform.Family, values Values) ([]string, error) {
	impl, ok := cmd.Implementation(family)
	if !ok {
		return nil, &BuildError{
			Reason:  UnsupportedPlatform,
			Command: cmd.ID,
			Detail:  string(family),
		}
	}

	argv := []string{impl.Base}

	for _, opt := range catalog.OptionsForPlatform(cmd, family) {
		value, supplied := values[opt.ID]
		if !supplied {
			value = opt.Default
		}

		if value == "" {
			if opt.Required {
				return nil, &BuildError{Reason: MissingRequired, Command: cmd.ID, Option: opt.ID}
			}
			continue
		}

		tokens, err := optionTokens(cmd.ID, opt, value)
		if err != nil {
			return nil, err
		}

		flags, mapped := impl.Flags[opt.ID]
		if !mapped {
			continue
		}

		if opt.Kind == catalog.KindCheckbox {
			argv = append(argv, flags...)
			continue
		}
		argv = append(argv, flags...)
		argv = append(argv, tokens...)
	}

	return argv, nil
}

// optionTokens validates a non-empty value and returns the value token(s)
// that follow the option's flags.
func optionTokens(cmdID string, opt catalog.Option, value string) ([]string, error) {
	switch opt.Kind {
	case catalog.KindCheckbox:
		return nil, nil

	case catalog.KindNumber:
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return nil, &BuildError{Reason: InvalidNumber, Command: cmdID, Option: opt.ID, Value: value, Detail: "not an integer"}
		}
		if !within(n, opt.Min, opt.Max) {
			return nil, &BuildError{Reason: InvalidNumber, Command: cmdID, Option: opt.ID, Value: value, Detail: boundsText(opt.Min, opt.Max)}
		}
		return []string{strconv.FormatInt(n, 10)}, nil

	case catalog.KindSelect:
		if !opt.HasChoice(value) {
			return nil, &BuildError{Reason: InvalidChoice, Command: cmdID, Option: opt.ID, Value: value}
		}
		return []string{value}, nil
	}

	return []string{value}, nil
}

// within reports lo <= v <= hi; nil bounds are open.
func within[T constraints.Integer](v T, lo, hi *T) bool {
	if lo != nil && v < *lo {
		return false
	}
	if hi != nil && v > *hi {
		return false
	}
	return true
}

func boundsText(lo, hi *int64) string {
	switch {
	case lo != nil && hi != nil:
		return "must be between " + strconv.FormatInt(*lo, 10) + " and " + strconv.FormatInt(*hi, 10)
	case lo != nil:
		return "must be at least " + strconv.FormatInt(*lo, 10)
	default:
		return "must be at most " + strconv.FormatInt(*hi, 10)
	}
}

package builder

import (
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/nhdewitt/diagweb/internal/catalog"
	"github.com/nhdewitt/diagweb/internal/platform"
)

const testCatalog = `{
  "ping": {
    "name": "Ping",
    "target": "host",
    "unix": {"base": "ping", "flags": {"host": [], "count": ["-c"], "quiet": ["-q"]}},
    "windows": {"base": "ping", "flags": {"host": [], "count": ["-n"], "resolve": ["-a"]}},
    "options": [
      {"id": "host", "label": "Host", "type": "text", "required": true},
      {"id": "count", "label": "Count", "type": "number", "min": 1, "max": 100},
      {"id": "quiet", "label": "Quiet", "type": "checkbox", "platforms": ["unix"]},
      {"id": "resolve", "label": "Resolve", "type": "checkbox", "platforms": ["windows"]}
    ]
  },
  "dig": {
    "name": "Dig",
    "platforms": ["unix"],
    "unix": {"base": "dig", "flags": {"name": [], "type": ["-t"], "server": []}},
    "options": [
      {"id": "name", "label": "Name", "type": "text", "required": true},
      {"id": "type", "label": "Type", "type": "select", "default": "A",
       "options": [{"value": "A", "text": "A"}, {"value": "PTR", "text": "PTR"}]},
      {"id": "retries", "label": "Retries", "type": "number", "default": 3},
      {"id": "server", "label": "Server", "type": "text"}
    ]
  },
  "broken": {
    "name": "Broken",
    "platforms": ["windows", "unix"],
    "unix": {"base": "broken", "flags": {}},
    "options": []
  },
  "curl": {
    "name": "curl",
    "command": {"base": "curl", "flags": {"timeout": ["--max-time"], "url": [], "verbose": ["-v", "--trace-ascii", "-"]}},
    "options": [
      {"id": "verbose", "label": "Verbose", "type": "checkbox"},
      {"id": "timeout", "label": "Timeout", "type": "number", "default": 10, "min": 1},
      {"id": "url", "label": "URL", "type": "text", "required": true}
    ]
  }
}`

func lookup(t *testing.T, id string) *catalog.Command {
	t.Helper()
	cat, err := catalog.Load(strings.NewReader(testCatalog))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	cmd, ok := cat.Lookup(id)
	if !ok {
		t.Fatalf("command %s not found", id)
	}
	return cmd
}

func wantReason(t *testing.T, err error, reason Reason, option string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error", reason)
	}
	var be *BuildError
	if !errors.As(err, &be) {
		t.Fatalf("expected *BuildError, got %T: %v", err, err)
	}
	if be.Reason != reason {
		t.Errorf("reason: got %s, want %s", be.Reason, reason)
	}
	if be.Option != option {
		t.Errorf("option: got %q, want %q", be.Option, option)
	}
}

func TestBuild_PingScenario(t *testing.T) {
	ping := lookup(t, "ping")

	argv, err := Build(ping, platform.Unix, Values{"host": "8.8.8.8", "count": "5"})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	want := []string{"ping", "8.8.8.8", "-c", "5"}
	if !slices.Equal(argv, want) {
		t.Errorf("got %q, want %q", argv, want)
	}
}

func TestBuild_WindowsFlags(t *testing.T) {
	ping := lookup(t, "ping")

	argv, err := Build(ping, platform.Windows, Values{"host": "example.com", "count": "2", "resolve": "true", "quiet": "true"})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	want := []string{"ping", "example.com", "-n", "2", "-a"}
	if !slices.Equal(argv, want) {
		t.Errorf("got %q, want %q", argv, want)
	}
}

func TestBuild_MissingRequired(t *testing.T) {
	ping := lookup(t, "ping")

	inputs := []Values{
		{"count": "5"},
		{"count": "5", "quiet": "true"},
		{"host": ""},
		{},
	}

	for _, in := range inputs {
		_, err := Build(ping, platform.Unix, in)
		wantReason(t, err, MissingRequired, "host")
		if !errors.Is(err, ErrMissingRequired) {
			t.Errorf("errors.Is(ErrMissingRequired) false for %v", err)
		}
	}
}

func TestBuild_Checkbox(t *testing.T) {
	ping := lookup(t, "ping")

	tests := []struct {
		name   string
		values Values
		quiet  int
	}{
		{"True", Values{"host": "h", "quiet": "true"}, 1},
		{"AnyNonEmpty", Values{"host": "h", "quiet": "on"}, 1},
		{"Empty", Values{"host": "h", "quiet": ""}, 0},
		{"Absent", Values{"host": "h"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			argv, err := Build(ping, platform.Unix, tt.values)
			if err != nil {
				t.Fatalf("Build: %v", err)
			}
			n := 0
			for _, a := range argv {
				if a == "-q" {
					n++
				}
			}
			if n != tt.quiet {
				t.Errorf("-q count: got %d, want %d (%q)", n, tt.quiet, argv)
			}
			if slices.Contains(argv, "true") || slices.Contains(argv, "on") {
				t.Errorf("checkbox value leaked into argv: %q", argv)
			}
		})
	}
}

func TestBuild_MultiTokenCheckbox(t *testing.T) {
	curl := lookup(t, "curl")

	argv, err := Build(curl, platform.Unix, Values{"url": "https://example.com", "verbose": "1"})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	want := []string{"curl", "-v", "--trace-ascii", "-", "--max-time", "10", "https://example.com"}
	if !slices.Equal(argv, want) {
		t.Errorf("got %q, want %q", argv, want)
	}
}

func TestBuild_NumberBounds(t *testing.T) {
	ping := lookup(t, "ping")

	tests := []struct {
		value string
		ok    bool
	}{
		{"1", true},
		{"100", true},
		{"50", true},
		{"0", false},
		{"101", false},
		{"-1", false},
		{"abc", false},
		{"1.5", false},
		{" 5", false},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			_, err := Build(ping, platform.Unix, Values{"host": "h", "count": tt.value})
			if tt.ok && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !tt.ok {
				wantReason(t, err, InvalidNumber, "count")
				if !errors.Is(err, ErrInvalidNumber) {
					t.Errorf("errors.Is(ErrInvalidNumber) false for %v", err)
				}
			}
		})
	}
}

func TestBuild_InvalidChoice(t *testing.T) {
	dig := lookup(t, "dig")

	_, err := Build(dig, platform.Unix, Values{"name": "example.com", "type": "MX"})
	wantReason(t, err, InvalidChoice, "type")
	if !errors.Is(err, ErrInvalidChoice) {
		t.Errorf("errors.Is(ErrInvalidChoice) false for %v", err)
	}

	argv, err := Build(dig, platform.Unix, Values{"name": "1.1.1.1", "type": "PTR"})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	want := []string{"dig", "1.1.1.1", "-t", "PTR"}
	if !slices.Equal(argv, want) {
		t.Errorf("got %q, want %q", argv, want)
	}
}

func TestBuild_DefaultsAndUnmappedOptions(t *testing.T) {
	dig := lookup(t, "dig")

	// retries has a default but no flags entry: validated, no tokens.
	argv, err := Build(dig, platform.Unix, Values{"name": "example.com", "server": "@1.1.1.1"})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	want := []string{"dig", "example.com", "-t", "A", "@1.1.1.1"}
	if !slices.Equal(argv, want) {
		t.Errorf("got %q, want %q", argv, want)
	}

	_, err = Build(dig, platform.Unix, Values{"name": "example.com", "retries": "many"})
	wantReason(t, err, InvalidNumber, "retries")
}

func TestBuild_UnsupportedPlatform(t *testing.T) {
	tests := []struct {
		id     string
		family platform.Family
	}{
		{"dig", platform.Windows},
		{"broken", platform.Windows},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			_, err := Build(lookup(t, tt.id), tt.family, Values{"name": "x"})
			wantReason(t, err, UnsupportedPlatform, "")
			if !errors.Is(err, ErrUnsupportedPlatform) {
				t.Errorf("errors.Is(ErrUnsupportedPlatform) false for %v", err)
			}
		})
	}
}

func TestBuild_SharedImplementation(t *testing.T) {
	curl := lookup(t, "curl")

	for _, f := range platform.Families {
		argv, err := Build(curl, f, Values{"url": "https://example.com", "timeout": "3"})
		if err != nil {
			t.Fatalf("%s: %v", f, err)
		}
		want := []string{"curl", "--max-time", "3", "https://example.com"}
		if !slices.Equal(argv, want) {
			t.Errorf("%s: got %q, want %q", f, argv, want)
		}
	}
}

func TestBuild_ValuesStayLiteral(t *testing.T) {
	ping := lookup(t, "ping")

	host := "8.8.8.8; rm -rf / && echo $(id)"
	argv, err := Build(ping, platform.Unix, Values{"host": host})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(argv) != 2 || argv[1] != host {
		t.Errorf("value was split or rewritten: %q", argv)
	}
}

func TestBuild_Idempotent(t *testing.T) {
	ping := lookup(t, "ping")
	in := Values{"host": "8.8.8.8", "count": "5", "quiet": "true"}

	first, err := Build(ping, platform.Unix, in)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	second, err := Build(ping, platform.Unix, in)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !slices.Equal(first, second) {
		t.Errorf("outputs differ: %q vs %q", first, second)
	}
}

func TestBuildError_Message(t *testing.T) {
	err := &BuildError{Reason: InvalidNumber, Command: "ping", Option: "count", Value: "0", Detail: "must be between 1 and 100"}
	want := `build ping: invalid number: option "count": value "0": must be between 1 and 100`
	if err.Error() != want {
		t.Errorf("got %q, want %q", err.Error(), want)
	}
	if errors.Is(err, ErrInvalidChoice) {
		t.Error("should not match a different sentinel")
	}
}

func TestBuildError_UnknownReason(t *testing.T) {
	tests := []struct {
		name string
		err  *BuildError
		want string
	}{
		{"Zero", &BuildError{}, "build : "},
		{"Unknown", &BuildError{Reason: "too_long", Command: "ping", Option: "host"}, `build ping: too_long: option "host"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
			if errors.Is(tt.err, ErrMissingRequired) {
				t.Error("unknown reason should not match a sentinel")
			}
		})
	}
}

func TestWithin(t *testing.T) {
	lo, hi := int64(1), int64(10)

	if !within(int64(1), &lo, &hi) || !within(int64(10), &lo, &hi) {
		t.Error("bounds should be inclusive")
	}
	if within(int64(0), &lo, nil) {
		t.Error("below min accepted")
	}
	if within(int64(11), nil, &hi) {
		t.Error("above max accepted")
	}
	if !within(int64(-500), nil, nil) {
		t.Error("open bounds rejected value")
	}
}

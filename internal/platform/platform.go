package platform

import (
	"fmt"
	"runtime"
	"strings"
)

// Family is the coarse platform a catalog entry targets.
type Family string

const (
	Windows Family = "windows"
	Unix    Family = "unix"
)

// Families lists every known family in catalog order.
var Families = []Family{Windows, Unix}

// Current reports the family of the running process.
func Current() Family {
	return FamilyOf(runtime.GOOS)
}

// FamilyOf maps a GOOS value to its family. Everything that is not Windows
// is treated as Unix.
func FamilyOf(goos string) Family {
	if goos == "windows" {
		return Windows
	}
	return Unix
}

func ParseFamily(s string) (Family, error) {
	switch Family(strings.ToLower(strings.TrimSpace(s))) {
	case Windows:
		return Windows, nil
	case Unix:
		return Unix, nil
	}
	return "", fmt.Errorf("unknown platform %q (want windows or unix)", s)
}

func (f Family) Valid() bool {
	return f == Windows || f == Unix
}

// Info is the informational platform label shown by the UI.
type Info struct {
	OS       string `json:"os"`
	Platform string `json:"platform"`
	System   string `json:"system"`
	Machine  string `json:"machine"`
	Version  string `json:"version"`

	// Extra detail, omitted from the short label
	Release  string `json:"release,omitempty"`
	Distro   string `json:"distro,omitempty"`
	Hostname string `json:"hostname,omitempty"`
	NumCPU   int    `json:"num_cpu,omitempty"`
}

// Label renders the one-line description used in page headers.
func (i Info) Label() string {
	parts := []string{i.System}
	if i.Distro != "" {
		parts = append(parts, i.Distro)
	}
	if i.Release != "" {
		parts = append(parts, i.Release)
	}
	parts = append(parts, i.Machine)
	return strings.Join(parts, " ")
}

//go:build !windows

package platform

import (
	"bufio"
	"io"
	"os"
	"runtime"
	"strings"

	"github.com/tklauser/go-sysconf"
	"golang.org/x/sys/unix"
)

func Detect() Info {
	info := Info{
		OS:       runtime.GOOS,
		Platform: string(Unix),
		System:   runtime.GOOS,
		Machine:  runtime.GOARCH,
		NumCPU:   runtime.NumCPU(),
	}

	var uts unix.Utsname
	if err := unix.Uname(&uts); err == nil {
		info.System = unix.ByteSliceToString(uts.Sysname[:])
		info.Machine = unix.ByteSliceToString(uts.Machine[:])
		info.Release = unix.ByteSliceToString(uts.Release[:])
		info.Version = unix.ByteSliceToString(uts.Version[:])
		info.Hostname = unix.ByteSliceToString(uts.Nodename[:])
	}

	if n, err := sysconf.Sysconf(sysconf.SC_NPROCESSORS_ONLN); err == nil && n > 0 {
		info.NumCPU = int(n)
	}

	if f, err := os.Open("/etc/os-release"); err == nil {
		defer f.Close()
		info.Distro = distroFrom(f)
	}

	if info.Hostname == "" {
		info.Hostname, _ = os.Hostname()
	}

	return info
}

// distroFrom reads an os-release file and returns "ID VERSION_ID".
func distroFrom(r io.Reader) string {
	var id, version string
	scanner := bufio.NewScanner(r)

	for scanner.Scan() {
		line := scanner.Text()

		if strings.HasPrefix(line, "ID=") {
			id = strings.Trim(line[3:], `"`)
		} else if strings.HasPrefix(line, "VERSION_ID=") {
			version = strings.Trim(line[11:], `"`)
		}

		if id != "" && version != "" {
			break
		}
	}

	return strings.TrimSpace(strings.TrimSpace(id) + " " + strings.TrimSpace(version))
}

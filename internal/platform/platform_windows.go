//go:build windows

package platform

import (
	"fmt"
	"os"
	"runtime"

	"github.com/yusufpapurcu/wmi"
	"golang.org/x/sys/windows"
)

type win32OperatingSystem struct {
	Caption     string
	Version     string
	BuildNumber string
	CSName      string
}

func Detect() Info {
	info := Info{
		OS:       runtime.GOOS,
		Platform: string(Windows),
		System:   "Windows",
		Machine:  runtime.GOARCH,
		NumCPU:   runtime.NumCPU(),
	}

	var dst []win32OperatingSystem
	if err := wmi.Query("SELECT Caption, Version, BuildNumber, CSName FROM Win32_OperatingSystem", &dst); err == nil && len(dst) > 0 {
		info.Distro = dst[0].Caption
		info.Version = dst[0].Version
		info.Release = dst[0].BuildNumber
		info.Hostname = dst[0].CSName
	}

	if info.Version == "" {
		v := windows.RtlGetVersion()
		info.Version = fmt.Sprintf("%d.%d.%d", v.MajorVersion, v.MinorVersion, v.BuildNumber)
		info.Release = fmt.Sprintf("%d", v.BuildNumber)
	}

	if info.Hostname == "" {
		info.Hostname, _ = os.Hostname()
	}

	return info
}

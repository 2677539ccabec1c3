package main

import (
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/joshuapare/memkit/mem/heap"
)

// Set with -ldflags "-X main.version=...". Left at "dev" the module version
// from the build info is reported instead.
var version = "dev"

// VersionInfo is the JSON form of the version command.
type VersionInfo struct {
	Version     string `json:"version"`
	Module      string `json:"module"`
	GoVersion   string `json:"go_version"`
	Platform    string `json:"platform"`
	Revision    string `json:"revision,omitempty"`
	BuildTime   string `json:"build_time,omitempty"`
	Modified    bool   `json:"modified,omitempty"`
	DefaultUnit int    `json:"default_unit"`
	MinAllocate int    `json:"default_min_allocate"`
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version and build information",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runVersion()
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

func buildVersion() VersionInfo {
	v := VersionInfo{
		Version:     version,
		Module:      "github.com/joshuapare/memkit",
		GoVersion:   runtime.Version(),
		Platform:    runtime.GOOS + "/" + runtime.GOARCH,
		DefaultUnit: heap.DefaultUnit,
		MinAllocate: heap.DefaultMinAllocate,
	}
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return v
	}
	if bi.Main.Path != "" {
		v.Module = bi.Main.Path
	}
	if v.Version == "dev" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		v.Version = bi.Main.Version
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			v.Revision = s.Value
		case "vcs.time":
			v.BuildTime = s.Value
		case "vcs.modified":
			v.Modified = s.Value == "true"
		}
	}
	return v
}

func runVersion() error {
	v := buildVersion()
	if jsonOut {
		return printJSON(v)
	}

	fmt.Printf("memctl %s\n", v.Version)
	fmt.Printf("  module:   %s\n", v.Module)
	fmt.Printf("  go:       %s %s\n", v.GoVersion, v.Platform)
	if v.Revision != "" {
		rev := v.Revision
		if v.Modified {
			rev += " (modified)"
		}
		fmt.Printf("  revision: %s\n", rev)
	}
	if v.BuildTime != "" {
		fmt.Printf("  built:    %s\n", v.BuildTime)
	}
	fmt.Printf("  defaults: unit %s, min allocate %d bytes\n",
		formatBytes(int64(v.DefaultUnit)), v.MinAllocate)
	return nil
}

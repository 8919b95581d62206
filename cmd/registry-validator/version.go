package main

import (
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/spf13/cobra"

	"github.com/nao1215/registry-validator/internal/config"
)

// Set with -ldflags "-X main.version=... -X main.commit=... -X main.date=...".
var (
	version = ""
	commit  = ""
	date    = ""
)

type buildInfo struct {
	Version   string
	Revision  string
	Time      string
	GoVersion string
}

// describeBuild merges the ldflags values with what the toolchain recorded.
// ldflags win.
func describeBuild(info *debug.BuildInfo) buildInfo {
	b := buildInfo{Version: "(devel)", Revision: "unknown", Time: "unknown", GoVersion: "unknown"}
	if info != nil {
		if info.Main.Version != "" {
			b.Version = info.Main.Version
		}
		if info.GoVersion != "" {
			b.GoVersion = info.GoVersion
		}
		for _, s := range info.Settings {
			switch s.Key {
			case "vcs.revision":
				b.Revision = shortRevision(s.Value)
			case "vcs.time":
				b.Time = s.Value
			}
		}
	}
	if version != "" {
		b.Version = version
	}
	if commit != "" {
		b.Revision = commit
	}
	if date != "" {
		b.Time = date
	}
	return b
}

func shortRevision(rev string) string {
	if len(rev) > 7 {
		return rev[:7]
	}
	return rev
}

var currentBuild = sync.OnceValue(func() buildInfo {
	info, _ := debug.ReadBuildInfo()
	return describeBuild(info)
})

// NewVersionCmd creates the version command.
func NewVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			short, err := cmd.Flags().GetBool("short")
			if err != nil {
				return err
			}
			b := currentBuild()
			out := cmd.OutOrStdout()
			if short {
				fmt.Fprintln(out, b.Version)
				return nil
			}
			fmt.Fprintf(out, "%s %s\n", config.AppName, b.Version)
			fmt.Fprintf(out, "  revision:   %s\n", b.Revision)
			fmt.Fprintf(out, "  build time: %s\n", b.Time)
			fmt.Fprintf(out, "  go:         %s\n", b.GoVersion)
			return nil
		},
	}
	cmd.Flags().Bool("short", false, "Print only the version number")
	return cmd
}

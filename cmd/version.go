package cmd

import (
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// Actual version can be specified in build command.
var version = "unknown"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Printf("%s version: %s (%s, %s/%s%s)\n", app, version, runtime.Version(), runtime.GOOS, runtime.GOARCH, revision())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

// revision returns ", rev <short sha>" when the binary carries VCS info.
func revision() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" && len(s.Value) >= 7 {
			return ", rev " + s.Value[:7]
		}
	}
	return ""
}

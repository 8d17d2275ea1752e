package commands

import (
	"fmt"
	"runtime"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// VersionInfo describes the build of the CLI.
type VersionInfo struct {
	Version   string `json:"version"    yaml:"version"`
	Commit    string `json:"commit"     yaml:"commit"`
	Built     string `json:"built"      yaml:"built"`
	GoVersion string `json:"go_version" yaml:"go_version"`
}

// NewVersionCommand creates the version command
func NewVersionCommand(version, commit, date string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Display version information",
		Long:  "Display detailed version information about the cfd CLI",
		RunE: func(cmd *cobra.Command, args []string) error {
			versionInfo := VersionInfo{
				Version:   version,
				Commit:    commit,
				Built:     date,
				GoVersion: runtime.Version(),
			}

			w := cmd.OutOrStdout()

			done, err := encode(w, outputFormat(viper.GetString("output")), versionInfo)
			if done {
				return err
			}

			table := tablewriter.NewWriter(w)
			table.Header("Property", "Value")
			_ = table.Append("Version", versionInfo.Version)
			_ = table.Append("Commit", versionInfo.Commit)
			_ = table.Append("Built", versionInfo.Built)
			_ = table.Append("Go", versionInfo.GoVersion)

			if err := table.Render(); err != nil {
				return fmt.Errorf("failed to render table: %w", err)
			}

			return nil
		},
	}
}

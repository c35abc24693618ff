package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

type versionInfo struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := getOutputFormat()
			if err != nil {
				return err
			}
			if format == "json" {
				data, err := getOutputJSON(versionInfo{version, commit, date})
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "bpfasm %s (commit %s, built %s)\n", version, commit, date)
			return nil
		},
	}
}

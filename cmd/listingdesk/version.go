// ABOUTME: version command: prints the release version and VCS revision.
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/2389-research/listingdesk/logging"
)

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		// Skip config loading.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "listingdesk %s (%s)\n", version, logging.Revision())
		},
	}
}

package cmd

import (
	"github.com/spf13/cobra"
)

// Version is injected at build time via -ldflags
var Version = "dev"

// NewRootCommand creates and returns the root cobra command for scriptindex
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scriptindex",
		Short: "List the script files an HTML page loads, in load order",
		Long: `scriptindex reads HTML documents, collects the src of every <script>
element (and, with --ie, of scripts inside Internet Explorer conditional
comments) and resolves them against the document's folder and any extra
search paths.

Matched files are printed, copied or recorded in a manifest in the exact
order the page references them.`,
		Version: Version,
		// Silence usage on errors to avoid duplicate help text
		SilenceUsage: true,
	}

	cmd.AddCommand(NewRunCommand())
	cmd.AddCommand(NewRefsCommand())

	return cmd
}

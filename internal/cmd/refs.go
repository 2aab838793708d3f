package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/harrison/scriptindex/internal/extract"
)

// NewRefsCommand creates the refs command, which lists script references
// without touching the filesystem beyond the documents themselves.
func NewRefsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "refs <html-file|glob|directory>...",
		Short: "List the script references of HTML documents",
		Long: `List the src of every script element in the given HTML documents, in
document order, without resolving them.

Examples:
  scriptindex refs index.html
  scriptindex refs --ie 'site/**/*.html'`,
		Args: cobra.MinimumNArgs(1),
		RunE: refsCommand,
	}

	cmd.Flags().String("cwd", "", "Working directory (default: current directory)")
	cmd.Flags().Bool("ie", false, "Also scan Internet Explorer conditional comments")

	return cmd
}

func refsCommand(cmd *cobra.Command, args []string) error {
	cwdFlag, _ := cmd.Flags().GetString("cwd")
	cwd, err := workingDir(cwdFlag)
	if err != nil {
		return err
	}
	ie, _ := cmd.Flags().GetBool("ie")

	docs, err := loadDocuments(args, cwd, false)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	out := cmd.OutOrStdout()
	extractor := extract.New(ie)
	for _, doc := range docs {
		refs, err := extractor.Extract(ctx, doc.Chunks())
		if err != nil {
			return fmt.Errorf("%s: %w", doc.Path, err)
		}

		fmt.Fprintf(out, "%s:\n", filepath.ToSlash(doc.Relative()))
		for _, ref := range refs {
			fmt.Fprintf(out, "  %-19s %s\n", ref.Origin, ref.Src)
		}
	}
	return nil
}

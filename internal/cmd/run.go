package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/harrison/scriptindex/internal/config"
	"github.com/harrison/scriptindex/internal/filelock"
	"github.com/harrison/scriptindex/internal/logger"
	"github.com/harrison/scriptindex/internal/manifest"
	"github.com/harrison/scriptindex/internal/models"
	"github.com/harrison/scriptindex/internal/resolve"
	"github.com/harrison/scriptindex/internal/scriptindex"
	"github.com/harrison/scriptindex/internal/vfile"
	"github.com/harrison/scriptindex/internal/watch"
)

// NewRunCommand creates the run command
func NewRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <html-file|glob|directory>...",
		Short: "Resolve the script files referenced by HTML documents",
		Long: `Resolve the script files referenced by one or more HTML documents.

Every <script src> is looked up first in the document's own folder, then in
each --search-path. References may be globs. The matching files are printed
one per line, relative to the working directory, in the order the documents
reference them. References that match nothing are reported as warnings.

Configuration is loaded from .scriptindex/config.yaml if present.
CLI flags override configuration file settings.

Examples:
  scriptindex run index.html
  scriptindex run 'site/**/*.html' --search-path vendor --ie
  scriptindex run site/ --dest build --manifest build/scripts.yaml
  scriptindex run index.html --stream --concurrency 16 --verbose
  scriptindex run index.html --watch --dest build`,
		Args: cobra.MinimumNArgs(1),
		RunE: runCommand,
	}

	cmd.Flags().String("config", "", "Path to config file (default: .scriptindex/config.yaml)")
	cmd.Flags().String("cwd", "", "Working directory (default: current directory)")
	cmd.Flags().Bool("ie", false, "Also scan Internet Explorer conditional comments")
	cmd.Flags().StringSlice("search-path", nil, "Extra folder to search for scripts (repeatable)")
	cmd.Flags().Int("concurrency", 0, "Maximum parallel file lookups per document")
	cmd.Flags().Bool("stream", false, "Read files as streams instead of buffering them")
	cmd.Flags().String("dest", "", "Copy resolved files into this folder")
	cmd.Flags().String("manifest", "", "Write an ordered manifest (.yaml or .json)")
	cmd.Flags().String("timeout", "", "Maximum run time (e.g., 30s, 5m)")
	cmd.Flags().Bool("verbose", false, "Show detailed progress")
	cmd.Flags().String("log-dir", "", "Directory for run logs (empty disables file logging)")
	cmd.Flags().Bool("watch", false, "Keep running and re-index when documents or scripts change")

	return cmd
}

// loadRunConfig loads the config file and applies the flags that were set.
func loadRunConfig(cmd *cobra.Command, cwd string) (*config.Config, error) {
	configPath, _ := cmd.Flags().GetString("config")

	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadConfig(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", configPath, err)
		}
	} else {
		cfg, err = config.LoadConfigFromDir(cwd)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	var flags config.Flags
	if cmd.Flags().Changed("ie") {
		v, _ := cmd.Flags().GetBool("ie")
		flags.IE = &v
	}
	if cmd.Flags().Changed("search-path") {
		v, _ := cmd.Flags().GetStringSlice("search-path")
		flags.SearchPaths = &v
	}
	if cmd.Flags().Changed("concurrency") {
		v, _ := cmd.Flags().GetInt("concurrency")
		flags.Concurrency = &v
	}
	if cmd.Flags().Changed("stream") {
		v, _ := cmd.Flags().GetBool("stream")
		flags.Stream = &v
	}
	if cmd.Flags().Changed("timeout") {
		s, _ := cmd.Flags().GetString("timeout")
		timeout, err := time.ParseDuration(s)
		if err != nil {
			return nil, fmt.Errorf("invalid timeout format %q: %w", s, err)
		}
		flags.Timeout = &timeout
	}
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level := "debug"
		flags.LogLevel = &level
	}
	if cmd.Flags().Changed("log-dir") {
		v, _ := cmd.Flags().GetString("log-dir")
		flags.LogDir = &v
	}
	if cmd.Flags().Changed("dest") {
		v, _ := cmd.Flags().GetString("dest")
		flags.Dest = &v
	}
	if cmd.Flags().Changed("manifest") {
		v, _ := cmd.Flags().GetString("manifest")
		flags.Manifest = &v
	}

	cfg.MergeWithFlags(flags)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// runLogger is what the run command needs from its loggers.
type runLogger interface {
	scriptindex.Logger
	LogInfo(message string)
	LogError(message string)
	LogSummary(results []*models.DocumentResult)
}

// runCommand implements the run command logic
func runCommand(cmd *cobra.Command, args []string) error {
	cwdFlag, _ := cmd.Flags().GetString("cwd")
	cwd, err := workingDir(cwdFlag)
	if err != nil {
		return err
	}

	cfg, err := loadRunConfig(cmd, cwd)
	if err != nil {
		return err
	}

	loggers := []runLogger{logger.NewConsoleLogger(cmd.ErrOrStderr(), cfg.LogLevel)}
	if cfg.LogDir != "" {
		logDir := cfg.LogDir
		if !filepath.IsAbs(logDir) {
			logDir = filepath.Join(cwd, logDir)
		}
		fileLog, err := logger.NewFileLoggerWithDirAndLevel(logDir, cfg.LogLevel)
		if err != nil {
			return fmt.Errorf("failed to create file logger: %w", err)
		}
		defer fileLog.Close()
		loggers = append(loggers, fileLog)
	}

	multi := make(scriptindex.MultiLogger, len(loggers))
	for i, l := range loggers {
		multi[i] = l
	}

	ix, err := scriptindex.New(scriptindex.Options{
		IE:          cfg.IE,
		SearchPaths: cfg.SearchPaths,
		Cwd:         cwd,
		Concurrency: cfg.Concurrency,
		Stream:      cfg.Stream,
		Logger:      multi,
	})
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	r := &runner{
		ix:      ix,
		cfg:     cfg,
		cwd:     cwd,
		args:    args,
		out:     cmd.OutOrStdout(),
		loggers: loggers,
	}

	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	if watchMode, _ := cmd.Flags().GetBool("watch"); watchMode {
		return r.watch(ctx)
	}
	_, _, err = r.once(ctx)
	return err
}

// runner performs one indexing pass over the CLI inputs.
type runner struct {
	ix      *scriptindex.Indexer
	cfg     *config.Config
	cwd     string
	args    []string
	out     io.Writer
	loggers []runLogger
}

// once loads the inputs afresh and indexes them. The returned documents are
// nil when the inputs could not be loaded.
func (r *runner) once(ctx context.Context) ([]*vfile.File, []*models.DocumentResult, error) {
	docs, err := loadDocuments(r.args, r.cwd, r.cfg.Stream)
	if err != nil {
		return nil, nil, err
	}

	results, runErr := r.ix.Run(ctx, docs, emitter(r.out, r.cfg.Dest))

	for _, l := range r.loggers {
		l.LogSummary(results)
	}

	if r.cfg.Manifest != "" {
		if err := manifest.New(results).Write(r.abs(r.cfg.Manifest)); err != nil {
			return docs, results, err
		}
	}

	if runErr != nil {
		return docs, results, fmt.Errorf("%s: %w", failureSummary(results), runErr)
	}
	return docs, results, nil
}

// failureSummary counts the failed documents by cause.
func failureSummary(results []*models.DocumentResult) string {
	var failed, reads, lookups int
	for _, res := range results {
		if res.Succeeded() {
			continue
		}
		failed++
		switch {
		case scriptindex.IsPayloadReadError(res.Err):
			reads++
		case scriptindex.IsResolutionError(res.Err):
			lookups++
		}
	}
	return fmt.Sprintf("%d document(s) failed (%d read, %d resolution)", failed, reads, lookups)
}

// abs resolves path against the working directory.
func (r *runner) abs(path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(r.cwd, path)
}

// ownOutput reports whether path is written by a pass itself: the manifest,
// anything below --dest or --log-dir, and the lock and temp files next to
// them. Changes there must not trigger another pass.
func (r *runner) ownOutput(path string) bool {
	if filelock.IsScratch(path) {
		return true
	}
	if r.cfg.Manifest != "" && path == r.abs(r.cfg.Manifest) {
		return true
	}
	for _, dir := range []string{r.cfg.Dest, r.cfg.LogDir} {
		if dir == "" {
			continue
		}
		root := r.abs(dir)
		if path == root || strings.HasPrefix(path, root+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// watch runs once, then again whenever a watched directory changes, until
// ctx is done. Failed passes are logged, not returned.
func (r *runner) watch(ctx context.Context) error {
	w, err := watch.New(0)
	if err != nil {
		return err
	}
	defer w.Close()
	w.OnError = func(err error) { r.logError(fmt.Sprintf("watch: %v", err)) }
	w.Skip = r.ownOutput

	pass := func() {
		docs, results, err := r.once(ctx)
		if err != nil {
			r.logError(err.Error())
		}
		for _, dir := range watchDirs(r.cwd, r.cfg.SearchPaths, docs, results) {
			if err := w.Add(dir); err != nil {
				r.logError(err.Error())
			}
		}
	}

	pass()
	r.logInfo(fmt.Sprintf("Watching %d folder(s) for changes", len(w.Dirs())))

	return w.Run(ctx, func(paths []string) {
		r.logInfo(fmt.Sprintf("Change detected in %s", paths[0]))
		pass()
	})
}

func (r *runner) logInfo(msg string) {
	for _, l := range r.loggers {
		l.LogInfo(msg)
	}
}

func (r *runner) logError(msg string) {
	for _, l := range r.loggers {
		l.LogError(msg)
	}
}

// watchDirs lists the folders whose changes can alter the output: the
// folder of every document, every search root that exists and the folder of
// every resolved file.
func watchDirs(cwd string, searchPaths []string, docs []*vfile.File, results []*models.DocumentResult) []string {
	var dirs []string
	for _, doc := range docs {
		dirs = append(dirs, filepath.Dir(doc.Path))
		for _, root := range resolve.SearchRoots(cwd, doc.Base, searchPaths) {
			if info, err := os.Stat(root); err == nil && info.IsDir() {
				dirs = append(dirs, root)
			}
		}
	}
	for _, res := range results {
		for _, rel := range res.Resolved {
			dirs = append(dirs, filepath.Dir(filepath.Join(cwd, rel)))
		}
	}
	return dirs
}

// emitter prints each output file and, when dest is set, copies it there.
func emitter(out io.Writer, dest string) scriptindex.EmitFunc {
	return func(f *vfile.File) error {
		if dest != "" {
			if _, err := vfile.Dest(dest, f); err != nil {
				return err
			}
		}
		_, err := fmt.Fprintln(out, filepath.ToSlash(f.Relative()))
		return err
	}
}

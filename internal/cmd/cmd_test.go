package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrison/scriptindex/internal/config"
	"github.com/harrison/scriptindex/internal/extract"
	"github.com/harrison/scriptindex/internal/manifest"
	"github.com/harrison/scriptindex/internal/models"
	"github.com/harrison/scriptindex/internal/resolve"
	"github.com/harrison/scriptindex/internal/scriptindex"
)

const sitePage = `<!doctype html>
<html>
<head>
  <script src="js/app.js"></script>
  <!--[if lt IE 9]><script src="js/ie.js"></script><![endif]-->
</head>
<body>
  <script src="lib/jquery.js"></script>
  <script src="js/missing.js"></script>
  <script src="js/modules/*.js"></script>
</body>
</html>`

// makeSite creates a small project and returns its root.
func makeSite(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"site/index.html":          sitePage,
		"site/js/app.js":           "app",
		"site/js/ie.js":            "ie",
		"site/js/modules/one.js":   "one",
		"vendor/lib/jquery.js":     "jquery",
		"site/about/index.html":    `<script src="js/app.js"></script>`,
		"node_modules/x/demo.html": `<script src="nope.js"></script>`,
	}
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	return root
}

// execute runs the root command and returns stdout and stderr separately.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	root := NewRootCommand()
	stdout, stderr := new(bytes.Buffer), new(bytes.Buffer)
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetArgs(args)

	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func lines(s string) []string {
	return strings.Split(strings.TrimSpace(s), "\n")
}

func TestRootCommandHasSubcommands(t *testing.T) {
	root := NewRootCommand()
	assert.Equal(t, "scriptindex", root.Use)

	names := make([]string, 0)
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.Contains(t, names, "run")
	assert.Contains(t, names, "refs")
}

func TestRunPrintsResolvedFilesInOrder(t *testing.T) {
	root := makeSite(t)

	stdout, stderr, err := execute(t, "run", "site/index.html",
		"--cwd", root, "--search-path", "vendor", "--log-dir=")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"site/js/app.js",
		"vendor/lib/jquery.js",
		"site/js/modules/one.js",
	}, lines(stdout))
	assert.Contains(t, stderr, "No file matches js/missing.js")
	assert.Contains(t, stderr, "Documents: 1")
}

func TestRunWithIE(t *testing.T) {
	root := makeSite(t)

	stdout, _, err := execute(t, "run", "site/index.html",
		"--cwd", root, "--search-path", "vendor", "--ie", "--log-dir=")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"site/js/app.js",
		"site/js/ie.js",
		"vendor/lib/jquery.js",
		"site/js/modules/one.js",
	}, lines(stdout))
}

func TestRunConfigFileAndOverride(t *testing.T) {
	root := makeSite(t)
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".scriptindex"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".scriptindex", "config.yaml"),
		[]byte("ie: true\nsearch_paths: [vendor]\nlog_dir: \"\"\n"), 0644))

	stdout, _, err := execute(t, "run", "site/index.html", "--cwd", root)
	require.NoError(t, err)
	assert.Contains(t, lines(stdout), "site/js/ie.js")

	stdout, _, err = execute(t, "run", "site/index.html", "--cwd", root, "--ie=false")
	require.NoError(t, err)
	assert.NotContains(t, lines(stdout), "site/js/ie.js")
	assert.Contains(t, lines(stdout), "vendor/lib/jquery.js")
}

func TestRunDestAndManifest(t *testing.T) {
	root := makeSite(t)

	_, _, err := execute(t, "run", "site/index.html", "--cwd", root,
		"--search-path", "vendor", "--dest", "build", "--manifest", "build/scripts.json",
		"--stream", "--log-dir=")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(root, "build", "vendor", "lib", "jquery.js"))
	require.NoError(t, err)
	assert.Equal(t, "jquery", string(data))

	path := filepath.Join(root, "build", "scripts.json")
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var m manifest.Manifest
	require.NoError(t, json.Unmarshal(raw, &m))

	require.Len(t, m.Documents, 1)
	assert.Equal(t, "index.html", m.Documents[0].Document)
	assert.Equal(t, []string{"site/js/app.js", "vendor/lib/jquery.js", "site/js/modules/one.js"}, m.Documents[0].Scripts)
	assert.Equal(t, []string{"js/missing.js"}, m.Documents[0].Unmatched)
}

func TestRunDirectoryInput(t *testing.T) {
	root := makeSite(t)

	stdout, _, err := execute(t, "run", "site", "--cwd", root, "--log-dir=")
	require.NoError(t, err)

	// Both pages share the directory as base; about/ sorts first.
	assert.Equal(t, []string{
		"site/js/app.js",
		"site/js/app.js",
		"site/js/modules/one.js",
	}, lines(stdout))
}

func TestRunWritesFileLog(t *testing.T) {
	root := makeSite(t)

	_, _, err := execute(t, "run", "site/index.html", "--cwd", root, "--log-dir", "logs", "--verbose")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(root, "logs", "latest.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "[DEBUG] Indexing")
	assert.Contains(t, string(data), "Index Summary:")
}

func TestRunErrors(t *testing.T) {
	root := makeSite(t)
	brokenConfig := filepath.Join(root, "broken.yaml")
	require.NoError(t, os.WriteFile(brokenConfig, []byte("ie: [oops\n"), 0644))

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"no match", []string{"run", "nothing/*.html", "--cwd", root}, "no HTML documents"},
		{"bad timeout", []string{"run", "site/index.html", "--cwd", root, "--timeout", "soon"}, "invalid timeout"},
		{"negative concurrency", []string{"run", "site/index.html", "--cwd", root, "--concurrency=-2"}, "concurrency"},
		{"bad manifest", []string{"run", "site/index.html", "--cwd", root, "--manifest", "out.txt"}, "manifest"},
		{"broken config", []string{"run", "site/index.html", "--cwd", root, "--config", brokenConfig}, "failed to load config"},
		{"no args", []string{"run"}, "requires at least 1 arg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := execute(t, append(tt.args, "--log-dir=")...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRefsCommand(t *testing.T) {
	root := makeSite(t)

	stdout, _, err := execute(t, "refs", "--ie", "--cwd", root, "site/index.html")
	require.NoError(t, err)

	out := lines(stdout)
	require.Len(t, out, 6)
	assert.Equal(t, "index.html:", out[0])
	assert.Equal(t, "script              js/app.js", strings.TrimSpace(out[1]))
	assert.Equal(t, "conditional-comment js/ie.js", strings.TrimSpace(out[2]))
	assert.Equal(t, "script              js/modules/*.js", strings.TrimSpace(out[5]))
}

// Subcommands must be usable on their own, the way main wires them.
func TestSubcommandStandalone(t *testing.T) {
	root := makeSite(t)

	parent := &cobra.Command{Use: "scriptindex"}
	parent.AddCommand(NewRefsCommand())
	buf := new(bytes.Buffer)
	parent.SetOut(buf)
	parent.SetArgs([]string{"refs", "--cwd", root, "site/about/index.html"})

	require.NoError(t, parent.Execute())
	assert.Contains(t, buf.String(), "js/app.js")
}

func TestRunWatchReindexesOnChange(t *testing.T) {
	root := makeSite(t)

	go func() {
		time.Sleep(500 * time.Millisecond)
		_ = os.WriteFile(filepath.Join(root, "site", "js", "modules", "two.js"), []byte("two"), 0644)
	}()

	stdout, stderr, err := execute(t, "run", "site/index.html", "--cwd", root,
		"--watch", "--timeout", "2s", "--log-dir=")
	require.NoError(t, err)

	out := lines(stdout)
	assert.Equal(t, "site/js/app.js", out[0])
	assert.Contains(t, out, "site/js/modules/two.js")
	assert.Contains(t, stderr, "Watching")
	assert.Contains(t, stderr, "Change detected")
}

// A pass writes the manifest, its lock and temp files and the --dest copies
// inside watched folders; none of that may start another pass.
func TestRunWatchIgnoresOwnOutput(t *testing.T) {
	root := makeSite(t)

	go func() {
		time.Sleep(500 * time.Millisecond)
		_ = os.WriteFile(filepath.Join(root, "site", "js", "modules", "two.js"), []byte("two"), 0644)
	}()

	stdout, stderr, err := execute(t, "run", "site/index.html", "--cwd", root,
		"--manifest", "site/scripts.yaml", "--dest", "site/build",
		"--watch", "--timeout", "3s", "--log-dir=")
	require.NoError(t, err)

	assert.Equal(t, 1, strings.Count(stderr, "Change detected"), stderr)
	assert.Contains(t, lines(stdout), "site/js/modules/two.js")

	data, err := os.ReadFile(filepath.Join(root, "site", "scripts.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "site/js/modules/two.js")
}

func TestRunnerOwnOutput(t *testing.T) {
	cwd := filepath.FromSlash("/work")
	r := &runner{cwd: cwd, cfg: &config.Config{
		Manifest: "site/scripts.yaml",
		Dest:     "site/build",
		LogDir:   ".scriptindex/logs",
	}}

	tests := []struct {
		path string
		want bool
	}{
		{"/work/site/scripts.yaml", true},
		{"/work/site/scripts.yaml.lock", true},
		{"/work/site/.scriptindex-4711", true},
		{"/work/site/build", true},
		{"/work/site/build/js/app.js", true},
		{"/work/.scriptindex/logs/latest.log", true},
		{"/work/site/index.html", false},
		{"/work/site/buildings.js", false},
		{"/work/site/js/app.js", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, r.ownOutput(filepath.FromSlash(tt.path)))
		})
	}
}

func TestFailureSummaryCountsCauses(t *testing.T) {
	readErr := &scriptindex.DocumentError{Path: "a.html", Phase: models.StateExtracting,
		Err: &extract.PayloadReadError{Err: errors.New("reset")}}
	lookupErr := &scriptindex.DocumentError{Path: "b.html", Phase: models.StateResolving,
		Err: &resolve.ResolutionError{Pattern: "x.js", Err: os.ErrPermission}}

	results := []*models.DocumentResult{
		{State: models.StateComplete},
		{State: models.StateFailed, Err: readErr},
		{State: models.StateFailed, Err: lookupErr},
		{State: models.StateIdle},
	}

	assert.Equal(t, "3 document(s) failed (1 read, 1 resolution)", failureSummary(results))
}

package logger

import (
	"fmt"
	"strings"
	"time"

	"github.com/harrison/scriptindex/internal/models"
)

// Log level constants for filtering
const (
	levelTrace int = 0
	levelDebug int = 1
	levelInfo  int = 2
	levelWarn  int = 3
	levelError int = 4
)

// ValidLevels lists the accepted log level names, most verbose first.
var ValidLevels = []string{"trace", "debug", "info", "warn", "error"}

// IsValidLevel reports whether level is one of ValidLevels.
func IsValidLevel(level string) bool {
	for _, l := range ValidLevels {
		if l == level {
			return true
		}
	}
	return false
}

// normalizeLogLevel lower-cases level and falls back to "info" when it is
// empty or unknown.
func normalizeLogLevel(level string) string {
	normalized := strings.ToLower(strings.TrimSpace(level))
	if IsValidLevel(normalized) {
		return normalized
	}
	return "info"
}

// logLevelToInt converts a log level string to its numeric value.
func logLevelToInt(level string) int {
	switch level {
	case "trace":
		return levelTrace
	case "debug":
		return levelDebug
	case "info":
		return levelInfo
	case "warn":
		return levelWarn
	case "error":
		return levelError
	default:
		return levelInfo
	}
}

// timestamp returns the current time formatted as "15:04:05" (HH:MM:SS).
func timestamp() string {
	return time.Now().Format("15:04:05")
}

// formatDuration renders d compactly: "850ms", "1.2s", "2m5s".
func formatDuration(d time.Duration) string {
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	default:
		return d.Round(time.Second).String()
	}
}

// completionMessage returns the level and text reported when a document
// finishes.
func completionMessage(result *models.DocumentResult) (string, string) {
	switch {
	case result.State == models.StateFailed:
		return "error", fmt.Sprintf("Failed %s: %v", result.Relative, result.Err)
	case result.Passthrough:
		return "info", fmt.Sprintf("Passed through %s (no content)", result.Relative)
	default:
		msg := fmt.Sprintf("Indexed %s: %d script file(s) from %d reference(s) in %s",
			result.Relative, len(result.Resolved), len(result.References), formatDuration(result.Duration))
		if n := len(result.Unmatched); n > 0 {
			msg += fmt.Sprintf(", %d unmatched", n)
		}
		return "info", msg
	}
}

// summaryLines renders the end-of-run summary.
func summaryLines(results []*models.DocumentResult) []string {
	var files, unmatched, failed, passthrough int
	for _, r := range results {
		files += len(r.Resolved)
		unmatched += len(r.Unmatched)
		switch {
		case r.State == models.StateFailed:
			failed++
		case r.Passthrough:
			passthrough++
		}
	}

	lines := []string{
		"Index Summary:",
		fmt.Sprintf("  Documents: %d", len(results)),
		fmt.Sprintf("  Script files: %d", files),
		fmt.Sprintf("  Unmatched references: %d", unmatched),
	}
	if passthrough > 0 {
		lines = append(lines, fmt.Sprintf("  Passed through: %d", passthrough))
	}
	if failed > 0 {
		lines = append(lines, fmt.Sprintf("  Failed: %d", failed))
	}
	return lines
}

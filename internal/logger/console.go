// Package logger provides the console and file loggers used while indexing
// documents.
//
// Both loggers prefix every line with a [HH:MM:SS] timestamp and a level tag,
// filter by level and are safe for concurrent use. They satisfy
// scriptindex.Logger.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/harrison/scriptindex/internal/models"
	"github.com/harrison/scriptindex/internal/vfile"
)

// ConsoleLogger writes progress to a writer, in color when the writer is a
// terminal.
type ConsoleLogger struct {
	writer      io.Writer
	logLevel    string
	mutex       sync.Mutex
	colorOutput bool
}

// NewConsoleLogger creates a ConsoleLogger that writes to writer.
// If writer is nil, messages are silently discarded.
// An empty or unknown logLevel means "info".
func NewConsoleLogger(writer io.Writer, logLevel string) *ConsoleLogger {
	return &ConsoleLogger{
		writer:      writer,
		logLevel:    normalizeLogLevel(logLevel),
		colorOutput: isTerminal(writer),
	}
}

// isTerminal reports whether w is a TTY that should get ANSI colors.
// NO_COLOR disables colors through color.NoColor.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok || f == nil {
		return false
	}
	if color.NoColor {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func (cl *ConsoleLogger) shouldLog(messageLevel string) bool {
	return logLevelToInt(messageLevel) >= logLevelToInt(cl.logLevel)
}

// LogTrace logs a trace-level message (most verbose).
// Format: "[HH:MM:SS] [TRACE] <message>"
func (cl *ConsoleLogger) LogTrace(message string) {
	cl.logWithLevel("TRACE", message)
}

// LogDebug logs a debug-level message.
func (cl *ConsoleLogger) LogDebug(message string) {
	cl.logWithLevel("DEBUG", message)
}

// LogInfo logs an info-level message.
func (cl *ConsoleLogger) LogInfo(message string) {
	cl.logWithLevel("INFO", message)
}

// LogWarn logs a warning-level message.
func (cl *ConsoleLogger) LogWarn(message string) {
	cl.logWithLevel("WARN", message)
}

// LogError logs an error-level message.
func (cl *ConsoleLogger) LogError(message string) {
	cl.logWithLevel("ERROR", message)
}

func (cl *ConsoleLogger) logWithLevel(level string, message string) {
	if cl.writer == nil {
		return
	}
	if !cl.shouldLog(strings.ToLower(level)) {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	ts := timestamp()
	var formatted string
	if cl.colorOutput {
		formatted = cl.formatWithColor(ts, level, message)
	} else {
		formatted = fmt.Sprintf("[%s] [%s] %s\n", ts, level, message)
	}

	cl.writer.Write([]byte(formatted))
}

// formatWithColor formats a log message with ANSI color codes.
func (cl *ConsoleLogger) formatWithColor(ts, level, message string) string {
	var coloredLevel string

	switch strings.ToUpper(level) {
	case "TRACE":
		coloredLevel = color.New(color.FgHiBlack).Sprint(level)
	case "DEBUG":
		coloredLevel = color.New(color.FgCyan).Sprint(level)
	case "INFO":
		coloredLevel = color.New(color.FgBlue).Sprint(level)
	case "WARN":
		coloredLevel = color.New(color.FgYellow).Sprint(level)
	case "ERROR":
		coloredLevel = color.New(color.FgRed).Sprint(level)
	default:
		coloredLevel = level
	}

	return fmt.Sprintf("[%s] [%s] %s\n", ts, coloredLevel, message)
}

// LogDocumentStart logs, at DEBUG level, that a document is being indexed.
func (cl *ConsoleLogger) LogDocumentStart(doc *vfile.File) {
	cl.LogDebug(fmt.Sprintf("Indexing %s", doc.Relative()))
}

// LogReferences logs the reference count at DEBUG level and every
// reference at TRACE level.
func (cl *ConsoleLogger) LogReferences(doc *vfile.File, refs []models.ScriptReference) {
	cl.LogDebug(fmt.Sprintf("Found %d script reference(s) in %s", len(refs), doc.Relative()))
	for _, ref := range refs {
		cl.LogTrace("  " + ref.String())
	}
}

// LogNoMatch warns about a reference that matched no file.
func (cl *ConsoleLogger) LogNoMatch(doc *vfile.File, ref models.ScriptReference) {
	src := ref.Src
	if cl.colorOutput {
		src = color.New(color.Bold).Sprint(src)
	}
	cl.LogWarn(fmt.Sprintf("No file matches %s referenced by %s", src, doc.Relative()))
}

// LogDocumentComplete logs the outcome of one document: INFO on success,
// ERROR on failure.
func (cl *ConsoleLogger) LogDocumentComplete(result *models.DocumentResult) {
	level, message := completionMessage(result)
	if cl.colorOutput && level == "info" && !result.Passthrough {
		message = strings.Replace(message, "Indexed", color.New(color.FgGreen).Sprint("Indexed"), 1)
	}
	cl.logWithLevel(strings.ToUpper(level), message)
}

// LogSummary logs the end-of-run totals at INFO level.
func (cl *ConsoleLogger) LogSummary(results []*models.DocumentResult) {
	for _, line := range summaryLines(results) {
		cl.LogInfo(line)
	}
}

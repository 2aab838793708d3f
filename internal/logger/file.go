package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/harrison/scriptindex/internal/models"
	"github.com/harrison/scriptindex/internal/vfile"
)

// DefaultLogDir is where NewFileLogger writes when no directory is given.
var DefaultLogDir = filepath.Join(".scriptindex", "logs")

// FileLogger writes one timestamped log file per run and keeps a latest.log
// symlink pointing at it.
type FileLogger struct {
	logDir   string
	runLog   *os.File
	runFile  string
	logLevel string
	mu       sync.Mutex
}

// NewFileLogger creates a FileLogger in DefaultLogDir at "info" level.
func NewFileLogger() (*FileLogger, error) {
	return NewFileLoggerWithDirAndLevel(DefaultLogDir, "info")
}

// NewFileLoggerWithDirAndLevel creates a FileLogger writing to
// logDir/run-YYYYMMDD-HHMMSS.log.
func NewFileLoggerWithDirAndLevel(logDir string, logLevel string) (*FileLogger, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	now := time.Now()
	runFile := filepath.Join(logDir, fmt.Sprintf("run-%s.log", now.Format("20060102-150405")))

	file, err := os.OpenFile(runFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create run log file: %w", err)
	}

	symlinkPath := filepath.Join(logDir, "latest.log")
	if _, err := os.Lstat(symlinkPath); err == nil {
		if err := os.Remove(symlinkPath); err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to remove old symlink: %w", err)
		}
	}
	if err := os.Symlink(filepath.Base(runFile), symlinkPath); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to create symlink: %w", err)
	}

	fl := &FileLogger{
		logDir:   logDir,
		runLog:   file,
		runFile:  runFile,
		logLevel: normalizeLogLevel(logLevel),
	}

	fl.writeRunLog("=== scriptindex run log ===\n")
	fl.writeRunLog(fmt.Sprintf("Started at: %s\n\n", now.Format(time.RFC3339)))

	return fl, nil
}

// RunFile returns the path of the current run log.
func (fl *FileLogger) RunFile() string {
	return fl.runFile
}

func (fl *FileLogger) shouldLog(messageLevel string) bool {
	return logLevelToInt(messageLevel) >= logLevelToInt(fl.logLevel)
}

// LogTrace logs a trace-level message (most verbose).
func (fl *FileLogger) LogTrace(message string) {
	fl.logWithLevel("TRACE", message)
}

// LogDebug logs a debug-level message.
func (fl *FileLogger) LogDebug(message string) {
	fl.logWithLevel("DEBUG", message)
}

// LogInfo logs an info-level message.
func (fl *FileLogger) LogInfo(message string) {
	fl.logWithLevel("INFO", message)
}

// LogWarn logs a warning-level message.
func (fl *FileLogger) LogWarn(message string) {
	fl.logWithLevel("WARN", message)
}

// LogError logs an error-level message.
func (fl *FileLogger) LogError(message string) {
	fl.logWithLevel("ERROR", message)
}

func (fl *FileLogger) logWithLevel(level string, message string) {
	if !fl.shouldLog(strings.ToLower(level)) {
		return
	}
	fl.writeRunLog(fmt.Sprintf("[%s] [%s] %s\n", timestamp(), level, message))
}

// LogDocumentStart records that a document is being indexed.
func (fl *FileLogger) LogDocumentStart(doc *vfile.File) {
	fl.LogDebug(fmt.Sprintf("Indexing %s", doc.Path))
}

// LogReferences records every extracted reference.
func (fl *FileLogger) LogReferences(doc *vfile.File, refs []models.ScriptReference) {
	fl.LogDebug(fmt.Sprintf("Found %d script reference(s) in %s", len(refs), doc.Relative()))
	for _, ref := range refs {
		fl.LogTrace("  " + ref.String())
	}
}

// LogNoMatch records a reference that matched no file.
func (fl *FileLogger) LogNoMatch(doc *vfile.File, ref models.ScriptReference) {
	fl.LogWarn(fmt.Sprintf("No file matches %s referenced by %s", ref.Src, doc.Relative()))
}

// LogDocumentComplete records the outcome of one document and, at DEBUG
// level, the files it resolved to.
func (fl *FileLogger) LogDocumentComplete(result *models.DocumentResult) {
	level, message := completionMessage(result)
	fl.logWithLevel(strings.ToUpper(level), message)
	for _, rel := range result.Resolved {
		fl.LogDebug("  -> " + rel)
	}
}

// LogSummary records the end-of-run totals.
func (fl *FileLogger) LogSummary(results []*models.DocumentResult) {
	for _, line := range summaryLines(results) {
		fl.LogInfo(line)
	}
}

// writeRunLog writes to the run log file (thread-safe).
func (fl *FileLogger) writeRunLog(message string) {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	if fl.runLog != nil {
		fl.runLog.WriteString(message)
	}
}

// Close closes the run log. It is safe to call more than once.
func (fl *FileLogger) Close() error {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	if fl.runLog == nil {
		return nil
	}
	err := fl.runLog.Close()
	fl.runLog = nil
	return err
}

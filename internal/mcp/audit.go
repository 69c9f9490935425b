package mcp

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// AuditEntry represents a single audit log entry for an MCP tool invocation.
// It captures metadata about the call without including embedding payloads.
type AuditEntry struct {
	Timestamp  time.Time         `json:"timestamp"`
	Tool       string            `json:"tool"`
	Scope      string            `json:"scope"` // "local" or "global"
	DurationMs int64             `json:"duration_ms"`
	Status     string            `json:"status"` // "success" or "error"
	Error      string            `json:"error,omitempty"`
	Params     map[string]string `json:"params,omitempty"` // sanitized metadata only
}

// auditFile holds a mutex-protected file handle for writing audit entries.
type auditFile struct {
	mu   sync.Mutex
	file *os.File
}

// AuditLogger writes audit entries to JSONL files, routing to local or global
// log based on entry scope. It is safe for concurrent use. A nil AuditLogger
// is safe to use; all methods are no-ops on nil receiver.
type AuditLogger struct {
	local  *auditFile // project-local audit log (.percept/audit.jsonl under project root)
	global *auditFile // global audit log (.percept/audit.jsonl under home dir)
}

// openAuditFile creates an auditFile writing to .percept/audit.jsonl under
// the given directory. Returns nil if the file cannot be created.
func openAuditFile(dir string) *auditFile {
	path := filepath.Join(dir, ".percept", "audit.jsonl")

	auditDir := filepath.Dir(path)
	if err := os.MkdirAll(auditDir, 0700); err != nil {
		fmt.Fprintf(os.Stderr, "warning: cannot create audit log directory %s: %v\n", auditDir, err)
		return nil
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: cannot open audit log %s: %v\n", path, err)
		return nil
	}

	return &auditFile{file: f}
}

// write appends a JSON-encoded entry as a single line. Safe to call on nil.
func (af *auditFile) write(entry AuditEntry) {
	if af == nil || af.file == nil {
		return
	}

	af.mu.Lock()
	defer af.mu.Unlock()

	data, err := json.Marshal(entry)
	if err != nil {
		return // silently skip malformed entries
	}

	data = append(data, '\n')
	_, _ = af.file.Write(data)
}

// close closes the underlying file. Safe to call on nil.
func (af *auditFile) close() error {
	if af == nil || af.file == nil {
		return nil
	}

	af.mu.Lock()
	defer af.mu.Unlock()

	return af.file.Close()
}

// NewAuditLogger creates an audit logger with separate local and global log
// files. localDir is the project root and globalDir is the home directory.
//
// If either file cannot be created, a warning is printed to stderr and that
// scope's logger is nil (non-fatal). If both fail, returns nil.
func NewAuditLogger(localDir, globalDir string) *AuditLogger {
	local := openAuditFile(localDir)
	global := openAuditFile(globalDir)

	if local == nil && global == nil {
		return nil
	}

	return &AuditLogger{
		local:  local,
		global: global,
	}
}

// Log writes an audit entry to the appropriate log file based on the entry's
// Scope field. Empty or "local" scope writes to the local log. Safe to call
// on nil receiver.
func (a *AuditLogger) Log(entry AuditEntry) {
	if a == nil {
		return
	}

	switch entry.Scope {
	case "global":
		a.global.write(entry)
	default:
		a.local.write(entry)
	}
}

// Close closes both audit log files. Safe to call on nil receiver.
func (a *AuditLogger) Close() error {
	if a == nil {
		return nil
	}

	var firstErr error
	if err := a.local.close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := a.global.close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// sanitizeToolParams extracts safe metadata from tool parameters. Keys with
// scalar values are logged directly; embedding vectors are reduced to their
// dimension; ID lists are reduced to their length.
func sanitizeToolParams(params map[string]interface{}) map[string]string {
	if params == nil {
		return nil
	}

	result := make(map[string]string)
	for key, val := range params {
		switch v := val.(type) {
		case []float32:
			result[key+"_dim"] = fmt.Sprintf("%d", len(v))
		case []string:
			result[key+"_count"] = fmt.Sprintf("%d", len(v))
		default:
			result[key] = fmt.Sprintf("%v", v)
		}
	}

	result["_param_count"] = fmt.Sprintf("%d", len(params))
	return result
}

// auditTool logs a tool invocation to the audit log.
func (s *Server) auditTool(toolName string, start time.Time, err error, params map[string]string) {
	status := "success"
	errMsg := ""
	if err != nil {
		status = "error"
		errMsg = err.Error()
	}

	s.auditLogger.Log(AuditEntry{
		Timestamp:  start,
		Tool:       toolName,
		Scope:      "local",
		DurationMs: time.Since(start).Milliseconds(),
		Status:     status,
		Error:      errMsg,
		Params:     params,
	})
}

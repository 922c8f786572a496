package audit

import (
	"database/sql"
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Auditor records every tool and API invocation. A zero Auditor, or one
// whose database failed to open, drops entries silently.
type Auditor struct {
	db *sql.DB
}

type AuditEntry struct {
	ID        int64     `json:"id"`
	Tool      string    `json:"tool"`
	Input     string    `json:"input"`
	Output    string    `json:"output"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// maxOutput bounds the stored output; full reports can be large.
const maxOutput = 64 << 10

func NewAuditor(path string) *Auditor {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			log.Printf("Failed to create audit dir: %v", err)
			return &Auditor{}
		}
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		log.Printf("Failed to open audit DB: %v", err)
		return &Auditor{}
	}
	db.SetMaxOpenConns(1)
	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS audit_log (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		tool TEXT NOT NULL,
		input TEXT,
		output TEXT,
		error TEXT,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP
	)`)
	if err != nil {
		log.Printf("Failed to create audit table: %v", err)
		db.Close()
		return &Auditor{}
	}
	return &Auditor{db: db}
}

// Enabled reports whether entries are being written.
func (a *Auditor) Enabled() bool {
	return a != nil && a.db != nil
}

func (a *Auditor) Log(tool string, input json.RawMessage, output []byte, err error) {
	if !a.Enabled() {
		return
	}
	var errStr string
	if err != nil {
		errStr = err.Error()
	}
	if len(output) > maxOutput {
		output = output[:maxOutput]
	}
	_, err = a.db.Exec(
		"INSERT INTO audit_log (tool, input, output, error) VALUES (?, ?, ?, ?)",
		tool, string(input), string(output), errStr,
	)
	if err != nil {
		log.Printf("Failed to write audit log: %v", err)
	}
}

func (a *Auditor) GetLogs(limit int) ([]AuditEntry, error) {
	if !a.Enabled() {
		return nil, nil
	}
	rows, err := a.db.Query("SELECT id, tool, input, output, error, timestamp FROM audit_log ORDER BY id DESC LIMIT ?", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []AuditEntry
	for rows.Next() {
		var e AuditEntry
		if err := rows.Scan(&e.ID, &e.Tool, &e.Input, &e.Output, &e.Error, &e.Timestamp); err != nil {
			continue
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (a *Auditor) Close() {
	if a.Enabled() {
		a.db.Close()
	}
}

package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ericksa/keiyakucheck/internal/audit"
)

const (
	defaultLogLimit = 50
	maxLogLimit     = 500
)

// AuditWorker reads back the audit log.
type AuditWorker struct {
	auditor *audit.Auditor
}

func NewAuditWorker(a *audit.Auditor) *AuditWorker {
	return &AuditWorker{auditor: a}
}

func (w *AuditWorker) GetTools() []ToolDef {
	return []ToolDef{
		{Name: "logs", Description: "List the most recent tool invocations"},
	}
}

func (w *AuditWorker) Execute(ctx context.Context, name string, input json.RawMessage) ([]byte, error) {
	switch strings.TrimPrefix(name, "audit_") {
	case "logs":
		return w.logs(input)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}
}

func (w *AuditWorker) logs(input json.RawMessage) ([]byte, error) {
	var req struct {
		Limit int `json:"limit"`
	}
	if err := decode(input, &req); err != nil {
		return nil, err
	}
	switch {
	case req.Limit <= 0:
		req.Limit = defaultLogLimit
	case req.Limit > maxLogLimit:
		req.Limit = maxLogLimit
	}
	entries, err := w.auditor.GetLogs(req.Limit)
	if err != nil {
		return nil, fmt.Errorf("read audit log: %w", err)
	}
	if entries == nil {
		entries = []audit.AuditEntry{}
	}
	return json.Marshal(entries)
}

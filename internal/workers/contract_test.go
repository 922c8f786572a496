package workers

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericksa/keiyakucheck/internal/audit"
	"github.com/ericksa/keiyakucheck/internal/checkpoint"
	"github.com/ericksa/keiyakucheck/internal/contracttype"
	"github.com/ericksa/keiyakucheck/internal/speculative"
)

const effortsContract = "本契約は準委任契約とし、乙は善良な管理者の注意をもって業務の遂行にあたる。甲は、検収完了後90日以内に報酬を支払う。"

func run(t *testing.T, w interface {
	Execute(ctx context.Context, name string, input json.RawMessage) ([]byte, error)
}, tool string, input any, out any) {
	t.Helper()
	raw, err := json.Marshal(input)
	require.NoError(t, err)
	res, err := w.Execute(context.Background(), tool, raw)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(res, out))
}

func TestContractWorker_Tools(t *testing.T) {
	w := NewContractWorker(nil)
	var names []string
	for _, tool := range w.GetTools() {
		names = append(names, tool.Name)
		assert.NotEmpty(t, tool.Description)
	}
	assert.Equal(t, []string{
		"checkpoints", "classify", "laws", "catalogue", "speculate", "reconcile", "speculation", "analyze",
	}, names)
}

func TestContractWorker_UnknownTool(t *testing.T) {
	w := NewContractWorker(nil)
	_, err := w.Execute(context.Background(), "contract_shred", nil)
	assert.ErrorIs(t, err, ErrUnknownTool)
}

func TestContractWorker_TextRequired(t *testing.T) {
	w := NewContractWorker(nil)
	for _, tool := range []string{"checkpoints", "classify", "speculate", "analyze"} {
		_, err := w.Execute(context.Background(), tool, json.RawMessage(`{"text":"  "}`))
		assert.ErrorIs(t, err, ErrTextRequired, tool)
	}

	_, err := w.Execute(context.Background(), "classify", json.RawMessage(`{"text":`))
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestContractWorker_Classify(t *testing.T) {
	w := NewContractWorker(nil)

	var res contracttype.Result
	run(t, w, "contract_classify", map[string]string{"text": effortsContract}, &res)

	assert.Equal(t, contracttype.BestEfforts, res.DetectedType)
	assert.Equal(t, contracttype.High, res.Confidence)
	assert.NotEmpty(t, res.Matched)
}

func TestContractWorker_Checkpoints(t *testing.T) {
	w := NewContractWorker(nil)

	var report checkpoint.Report
	run(t, w, "checkpoints", map[string]string{"text": effortsContract}, &report)

	require.Len(t, report.Results, 28)
	res, ok := report.Find("CP001")
	require.True(t, ok)
	assert.Equal(t, checkpoint.Critical, res.Status)
	assert.Equal(t, len(report.Results), report.Summary.Critical+report.Summary.Warning+report.Summary.Clear)
}

func TestContractWorker_CheckpointsContext(t *testing.T) {
	w := NewContractWorker(nil)
	text := "甲は、乙に対し、本業務に関するハラスメントの相談窓口を設ける。"

	var vendor, client checkpoint.Report
	run(t, w, "checkpoints", map[string]any{"text": "報酬を支払う。"}, &vendor)
	run(t, w, "checkpoints", map[string]any{
		"text":    "報酬を支払う。",
		"context": map[string]string{"user_role": "client"},
	}, &client)

	v, _ := vendor.Find("CP014")
	c, _ := client.Find("CP014")
	assert.NotEqual(t, checkpoint.Clear, v.Status)
	assert.Equal(t, checkpoint.Clear, c.Status)

	var withDesk checkpoint.Report
	run(t, w, "checkpoints", map[string]any{"text": text}, &withDesk)
	d, _ := withDesk.Find("CP014")
	assert.Equal(t, checkpoint.Clear, d.Status)
}

func TestContractWorker_Laws(t *testing.T) {
	w := NewContractWorker(nil)

	var res LawsResult
	run(t, w, "laws", map[string]any{
		"context": map[string]any{
			"user_role":                "vendor",
			"user_entity_type":         "individual",
			"counterparty_entity_type": "corporation_with_employees",
			"counterparty_capital":     "over_300m",
			"contract_duration_months": 12,
		},
	}, &res)

	assert.True(t, res.Laws.FreelanceProtectionStrict)
	assert.True(t, res.Laws.SubcontractActApplies)
	assert.True(t, res.MidTermNoticeRequired)
	assert.Len(t, res.Notes, 4)

	var empty LawsResult
	run(t, w, "laws", map[string]any{}, &empty)
	assert.Equal(t, "vendor", string(empty.Context.UserRole))
	assert.True(t, empty.Laws.FreelanceProtectionStrict)
}

func TestContractWorker_MalformedContextIsDefaulted(t *testing.T) {
	w := NewContractWorker(nil)

	var res LawsResult
	run(t, w, "laws", json.RawMessage(`{"context":{"user_role":1,"counterparty_capital":["over_300m"],"contract_duration_months":"12"}}`), &res)
	assert.Equal(t, "vendor", string(res.Context.UserRole))
	assert.Equal(t, "unknown", string(res.Context.CounterpartyCapital))
	require.NotNil(t, res.Context.ContractDurationMonths)
	assert.Equal(t, 12, *res.Context.ContractDurationMonths)
	assert.True(t, res.Laws.FreelanceProtectionStrict)

	var report checkpoint.Report
	run(t, w, "checkpoints", json.RawMessage(`{"text":"乙は本業務を行う。","context":{"contract_duration_months":"twelve"}}`), &report)
	assert.Len(t, report.Results, 28)

	var analyzed speculative.Report
	run(t, w, "analyze", json.RawMessage(`{"text":"乙は本業務を行う。","context":"client"}`), &analyzed)
	assert.Equal(t, "vendor", string(analyzed.Context.UserRole))

	var spec speculative.Speculation
	run(t, w, "speculate", map[string]string{"text": effortsContract}, &spec)
	var reconciled speculative.Report
	run(t, w, "reconcile", json.RawMessage(`{"id":"`+spec.ID+`","context":{"user_entity_type":false}}`), &reconciled)
	assert.True(t, reconciled.Speculative)
}

func TestContractWorker_Catalogue(t *testing.T) {
	w := NewContractWorker(nil)

	var entries []CatalogueEntry
	run(t, w, "catalogue", nil, &entries)

	require.Len(t, entries, 28)
	assert.Equal(t, "CP001", entries[0].ID)
	assert.Equal(t, checkpoint.Required, entries[0].Category)
	assert.Equal(t, "CP028", entries[27].ID)
	for _, e := range entries {
		assert.NotEmpty(t, e.SourceRule, e.ID)
	}
}

func TestContractWorker_SpeculateReconcile(t *testing.T) {
	w := NewContractWorker(speculative.NewCoordinator())

	var spec speculative.Speculation
	run(t, w, "speculate", map[string]string{"text": effortsContract}, &spec)
	require.NotEmpty(t, spec.ID)
	assert.Len(t, spec.RuleBased.Checkpoints.Results, 28)

	var pending speculative.Speculation
	run(t, w, "speculation", map[string]string{"id": spec.ID}, &pending)
	assert.Equal(t, spec.Key, pending.Key)

	var report speculative.Report
	run(t, w, "reconcile", map[string]any{
		"id":      spec.ID,
		"context": map[string]string{"user_role": "vendor", "user_entity_type": "individual"},
	}, &report)
	assert.Equal(t, spec.ID, report.ID)
	assert.True(t, report.Speculative)
	assert.Equal(t, speculative.AIAbsent, report.AI.Status)

	raw, _ := json.Marshal(map[string]string{"id": spec.ID})
	_, err := w.Execute(context.Background(), "reconcile", raw)
	assert.ErrorIs(t, err, speculative.ErrAlreadyReconciled)
}

func TestContractWorker_ReconcileErrors(t *testing.T) {
	w := NewContractWorker(nil)

	_, err := w.Execute(context.Background(), "reconcile", json.RawMessage(`{}`))
	assert.ErrorIs(t, err, ErrIDRequired)

	_, err = w.Execute(context.Background(), "reconcile", json.RawMessage(`{"id":"missing"}`))
	assert.ErrorIs(t, err, speculative.ErrUnknownSpeculation)

	_, err = w.Execute(context.Background(), "speculation", json.RawMessage(`{"id":"missing"}`))
	assert.ErrorIs(t, err, speculative.ErrUnknownSpeculation)
}

func TestContractWorker_Analyze(t *testing.T) {
	w := NewContractWorker(nil)

	var report speculative.Report
	run(t, w, "analyze", map[string]any{
		"text":    effortsContract,
		"context": map[string]string{"user_role": "client"},
	}, &report)

	assert.NotEmpty(t, report.ID)
	assert.False(t, report.Speculative)
	assert.Equal(t, "client", string(report.Context.UserRole))
	assert.False(t, report.Laws.FreelanceProtectionBasic)
}

func TestAuditWorker_Logs(t *testing.T) {
	a := audit.NewAuditor(":memory:")
	defer a.Close()
	a.Log("contract_classify", json.RawMessage(`{}`), []byte(`{}`), nil)

	w := NewAuditWorker(a)
	var entries []audit.AuditEntry
	run(t, w, "audit_logs", map[string]int{"limit": 10}, &entries)
	require.Len(t, entries, 1)
	assert.Equal(t, "contract_classify", entries[0].Tool)

	var none []audit.AuditEntry
	run(t, NewAuditWorker(&audit.Auditor{}), "logs", nil, &none)
	assert.Empty(t, none)
}

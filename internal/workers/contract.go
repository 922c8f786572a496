package workers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ericksa/keiyakucheck/internal/checkpoint"
	"github.com/ericksa/keiyakucheck/internal/contracttype"
	"github.com/ericksa/keiyakucheck/internal/laws"
	"github.com/ericksa/keiyakucheck/internal/speculative"
)

var (
	ErrTextRequired = errors.New("text required")
	ErrIDRequired   = errors.New("id required")
)

// ContractWorker exposes the contract analysis core as tools.
type ContractWorker struct {
	Tools  []ToolDef
	coord  *speculative.Coordinator
	engine *checkpoint.Engine
}

// CatalogueEntry is the public description of one checkpoint.
type CatalogueEntry struct {
	ID         string              `json:"id"`
	Name       string              `json:"name"`
	Category   checkpoint.Category `json:"category"`
	SourceRule string              `json:"source_rule"`
}

// LawsResult is the answer of the laws tool.
type LawsResult struct {
	Context               laws.UserContext    `json:"context"`
	Laws                  laws.ApplicableLaws `json:"laws"`
	Notes                 []string            `json:"notes"`
	MidTermNoticeRequired bool                `json:"mid_term_notice_required"`
}

func NewContractWorker(coord *speculative.Coordinator) *ContractWorker {
	if coord == nil {
		coord = speculative.NewCoordinator()
	}
	return &ContractWorker{
		Tools: []ToolDef{
			{Name: "checkpoints", Description: "Evaluate the 28 freelance/BPO checkpoints against contract text"},
			{Name: "classify", Description: "Classify a contract as 請負 (completion), 準委任 (best efforts) or mixed"},
			{Name: "laws", Description: "Resolve which statutes apply to a user context"},
			{Name: "catalogue", Description: "List checkpoint IDs, names and legal sources"},
			{Name: "speculate", Description: "Start analysis under the default context before the user context is known"},
			{Name: "reconcile", Description: "Finish a speculation with the real user context"},
			{Name: "speculation", Description: "Get a pending speculation by ID"},
			{Name: "analyze", Description: "Run the full analysis, AI included, under a known user context"},
		},
		coord:  coord,
		engine: checkpoint.New(),
	}
}

func (w *ContractWorker) GetTools() []ToolDef {
	return w.Tools
}

func (w *ContractWorker) Execute(ctx context.Context, name string, input json.RawMessage) ([]byte, error) {
	switch strings.TrimPrefix(name, "contract_") {
	case "checkpoints":
		return w.checkpoints(input)
	case "classify":
		return w.classify(input)
	case "laws":
		return w.laws(input)
	case "catalogue":
		return w.catalogue()
	case "speculate":
		return w.speculate(ctx, input)
	case "reconcile":
		return w.reconcile(ctx, input)
	case "speculation":
		return w.speculation(input)
	case "analyze":
		return w.analyze(ctx, input)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}
}

type textRequest struct {
	Text    string            `json:"text"`
	Context *laws.UserContext `json:"context,omitempty"`
}

func (r textRequest) context() laws.UserContext {
	if r.Context == nil {
		return laws.DefaultContext()
	}
	return r.Context.Normalize()
}

func decodeText(input json.RawMessage) (textRequest, error) {
	var req textRequest
	if err := decode(input, &req); err != nil {
		return req, err
	}
	if strings.TrimSpace(req.Text) == "" {
		return req, ErrTextRequired
	}
	return req, nil
}

func (w *ContractWorker) checkpoints(input json.RawMessage) ([]byte, error) {
	req, err := decodeText(input)
	if err != nil {
		return nil, err
	}
	return json.Marshal(w.engine.Evaluate(req.Text, checkpoint.WithContext(req.context())))
}

func (w *ContractWorker) classify(input json.RawMessage) ([]byte, error) {
	req, err := decodeText(input)
	if err != nil {
		return nil, err
	}
	return json.Marshal(contracttype.Detect(req.Text))
}

func (w *ContractWorker) laws(input json.RawMessage) ([]byte, error) {
	var req struct {
		Context laws.UserContext `json:"context"`
	}
	if err := decode(input, &req); err != nil {
		return nil, err
	}
	uc := req.Context.Normalize()
	l := laws.Resolve(uc)
	return json.Marshal(LawsResult{
		Context:               uc,
		Laws:                  l,
		Notes:                 laws.Explain(l),
		MidTermNoticeRequired: laws.MidTermNoticeRequired(uc),
	})
}

func (w *ContractWorker) catalogue() ([]byte, error) {
	cps := checkpoint.Catalogue()
	out := make([]CatalogueEntry, 0, len(cps))
	for _, cp := range cps {
		out = append(out, CatalogueEntry{
			ID:         cp.ID,
			Name:       cp.Name,
			Category:   cp.Category,
			SourceRule: cp.SourceRule,
		})
	}
	return json.Marshal(out)
}

func (w *ContractWorker) speculate(ctx context.Context, input json.RawMessage) ([]byte, error) {
	req, err := decodeText(input)
	if err != nil {
		return nil, err
	}
	return json.Marshal(w.coord.Begin(ctx, req.Text))
}

func (w *ContractWorker) reconcile(ctx context.Context, input json.RawMessage) ([]byte, error) {
	var req struct {
		ID      string           `json:"id"`
		Context laws.UserContext `json:"context"`
	}
	if err := decode(input, &req); err != nil {
		return nil, err
	}
	if req.ID == "" {
		return nil, ErrIDRequired
	}
	report, err := w.coord.Reconcile(ctx, req.ID, req.Context)
	if err != nil {
		return nil, err
	}
	return json.Marshal(report)
}

func (w *ContractWorker) speculation(input json.RawMessage) ([]byte, error) {
	var req struct {
		ID string `json:"id"`
	}
	if err := decode(input, &req); err != nil {
		return nil, err
	}
	if req.ID == "" {
		return nil, ErrIDRequired
	}
	spec, ok := w.coord.Get(req.ID)
	if !ok {
		return nil, speculative.ErrUnknownSpeculation
	}
	return json.Marshal(spec)
}

func (w *ContractWorker) analyze(ctx context.Context, input json.RawMessage) ([]byte, error) {
	req, err := decodeText(input)
	if err != nil {
		return nil, err
	}
	return json.Marshal(w.coord.Analyze(ctx, req.Text, req.context()))
}

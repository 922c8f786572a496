package speculative

import (
	"time"

	"github.com/ericksa/keiyakucheck/internal/ai"
	"github.com/ericksa/keiyakucheck/internal/checkpoint"
	"github.com/ericksa/keiyakucheck/internal/contracttype"
	"github.com/ericksa/keiyakucheck/internal/laws"
)

// AIStatus tells whether the narrative part of a report is usable.
type AIStatus string

const (
	AIOK     AIStatus = "ok"
	AIFailed AIStatus = "failed"
	AIAbsent AIStatus = "absent"
)

// AIOutcome is the advisory part of a report. Narrative is set only when
// Status is AIOK; a failed call carries the error text and nothing else.
type AIOutcome struct {
	Status    AIStatus      `json:"status" yaml:"status"`
	Narrative *ai.Narrative `json:"narrative,omitempty" yaml:"narrative,omitempty"`
	Error     string        `json:"error,omitempty" yaml:"error,omitempty"`
	Overrides []ai.Override `json:"overrides,omitempty" yaml:"overrides,omitempty"`
}

// Analysis is the deterministic part, computed without any network call.
type Analysis struct {
	Laws           laws.ApplicableLaws `json:"laws" yaml:"laws"`
	LawNotes       []string            `json:"law_notes" yaml:"law_notes"`
	Classification contracttype.Result `json:"classification" yaml:"classification"`
	Checkpoints    checkpoint.Report   `json:"checkpoints" yaml:"checkpoints"`
}

// Analyze runs the resolver, the classifier and the checkpoint engine under c.
func Analyze(text string, c laws.UserContext) Analysis {
	c = c.Normalize()
	l := laws.Resolve(c)
	cls := contracttype.Detect(text)
	return Analysis{
		Laws:           l,
		LawNotes:       laws.Explain(l),
		Classification: cls,
		Checkpoints: checkpoint.Evaluate(text,
			checkpoint.WithContext(c),
			checkpoint.WithContractType(cls.DetectedType)),
	}
}

// Report is the final structured result handed to callers and to the
// persistent store.
type Report struct {
	ID      string           `json:"id" yaml:"id"`
	Key     string           `json:"key" yaml:"key"`
	Context laws.UserContext `json:"context" yaml:"context"`

	Analysis `yaml:",inline"`

	AI          AIOutcome `json:"ai" yaml:"ai"`
	Speculative bool      `json:"speculative" yaml:"speculative"`
	CreatedAt   time.Time `json:"created_at" yaml:"created_at"`
}

func outcome(n *ai.Narrative, err error, a Analysis) AIOutcome {
	if err != nil {
		return AIOutcome{Status: AIFailed, Error: err.Error()}
	}
	if n == nil {
		return AIOutcome{Status: AIAbsent}
	}
	return AIOutcome{
		Status:    AIOK,
		Narrative: n,
		Overrides: ai.CrossCheck(n, a.Checkpoints),
	}
}

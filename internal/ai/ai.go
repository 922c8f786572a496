// Package ai is the boundary to the generative analysis step. Its output is
// advisory: Validate rejects answers that are not real content and CrossCheck
// lets the checkpoint engine overrule the model wherever they disagree.
package ai

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/ericksa/keiyakucheck/internal/checkpoint"
	"github.com/ericksa/keiyakucheck/internal/laws"
)

var (
	// ErrEmptyResponse is returned when the model answered with nothing usable.
	ErrEmptyResponse = errors.New("empty response from model")
	// ErrInvalidGeneration is returned when the answer still contains prompt
	// scaffolding instead of analysis.
	ErrInvalidGeneration = errors.New("model output contains template scaffolding")
)

// Analyzer produces a narrative analysis of a contract under a context.
type Analyzer interface {
	Analyze(ctx context.Context, text string, uc laws.UserContext) (*Narrative, error)
}

// Finding is the model's opinion on one checkpoint.
type Finding struct {
	CheckpointID string `json:"checkpoint_id" yaml:"checkpoint_id"`
	Status       string `json:"status" yaml:"status"`
	Comment      string `json:"comment" yaml:"comment"`
}

// Narrative is the parsed model answer.
type Narrative struct {
	Summary  string    `json:"summary" yaml:"summary"`
	Findings []Finding `json:"risks" yaml:"risks"`
}

// Override records a checkpoint where the engine's status replaces the
// model's.
type Override struct {
	CheckpointID string            `json:"checkpoint_id" yaml:"checkpoint_id"`
	ModelStatus  string            `json:"model_status" yaml:"model_status"`
	EngineStatus checkpoint.Status `json:"engine_status" yaml:"engine_status"`
}

// A bare 〇〇 is not a marker: suggested clause texts use it for amounts the
// parties fill in, and the model may quote them.
var scaffolding = []string{
	"{{", "}}", "[ここに", "ここに記載", "ここに入力", "【〇〇】", "[〇〇]", "［〇〇］", "<placeholder>", "TODO", "lorem ipsum",
}

// Validate rejects an empty narrative or one that still carries template
// markers from the prompt.
func Validate(n *Narrative) error {
	if n == nil || (strings.TrimSpace(n.Summary) == "" && len(n.Findings) == 0) {
		return ErrEmptyResponse
	}
	texts := []string{n.Summary}
	for _, f := range n.Findings {
		texts = append(texts, f.Comment)
	}
	for _, t := range texts {
		lower := strings.ToLower(t)
		for _, marker := range scaffolding {
			if strings.Contains(lower, strings.ToLower(marker)) {
				return fmt.Errorf("%w: %q", ErrInvalidGeneration, marker)
			}
		}
	}
	return nil
}

// CrossCheck compares the model's findings with the engine report. Every
// checkpoint the model names with a different status, and every engine
// critical the model did not flag as critical, yields an Override. The result
// is ordered by checkpoint ID.
func CrossCheck(n *Narrative, r checkpoint.Report) []Override {
	model := map[string]string{}
	if n != nil {
		for _, f := range n.Findings {
			status := strings.ToLower(strings.TrimSpace(f.Status))
			if status == "high" {
				status = string(checkpoint.Warning)
			}
			model[strings.ToUpper(strings.TrimSpace(f.CheckpointID))] = status
		}
	}

	var out []Override
	for _, res := range r.Results {
		said, named := model[res.ID]
		switch {
		case named && said != string(res.Status):
			out = append(out, Override{CheckpointID: res.ID, ModelStatus: said, EngineStatus: res.Status})
		case !named && res.Status == checkpoint.Critical:
			out = append(out, Override{CheckpointID: res.ID, EngineStatus: res.Status})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CheckpointID < out[j].CheckpointID })
	return out
}

// Package checkpoint scores contract text against a fixed battery of legal
// risk checkpoints and returns exactly one status per checkpoint.
//
// The battery is a declarative table (see catalogue.go). Each row names the
// wording it looks for and how a hit or a miss maps to a status; Evaluate
// walks the table without any per-checkpoint branching. Evaluation is a pure
// function of the text and the options, so the same input always yields the
// same ordered report.
package checkpoint

import (
	"regexp"

	"github.com/ericksa/keiyakucheck/internal/contracttype"
	"github.com/ericksa/keiyakucheck/internal/laws"
)

// Status is the outcome of one checkpoint.
type Status string

const (
	Critical Status = "critical"
	Warning  Status = "warning"
	Clear    Status = "clear"
)

// Category separates statutory obligations from best-practice clauses.
type Category string

const (
	Required    Category = "required"
	Recommended Category = "recommended"
)

// Kind selects how a checkpoint's patterns are interpreted.
type Kind int

const (
	// Presence checkpoints look for a protective clause. Found is clear,
	// missing yields Severity.
	Presence Kind = iota
	// Risk checkpoints look for hazardous wording. Safe wording wins over the
	// hazard; when neither is found the result is Absent (clear by default),
	// unless Mention shows the subject is dealt with in some neutral way.
	Risk
	// Threshold checkpoints extract a duration and compare it to limits.
	Threshold
)

// Env is what context-sensitive checkpoints may look at.
type Env struct {
	Context laws.UserContext
	Laws    laws.ApplicableLaws
	Type    contracttype.Type
}

// Limits configures a Threshold checkpoint. Durations are in days; a zero
// limit is unused. Only sentences matching Scope are searched for Term, whose
// named groups "n" and "unit" carry the duration. The longest duration found
// is the one compared.
type Limits struct {
	Scope     *regexp.Regexp
	Term      *regexp.Regexp
	Fixed     []FixedTerm
	Unlimited *regexp.Regexp
	Warn      int
	Critical  int
	Missing   Status
	NoTerm    Status
}

// FixedTerm maps an idiomatic deadline ("翌月末") to a day count.
type FixedTerm struct {
	Pattern *regexp.Regexp
	Days    int
}

// Checkpoint is one catalogue row.
type Checkpoint struct {
	ID       string
	Name     string
	Category Category
	Kind     Kind

	Patterns []*regexp.Regexp
	Safe     []*regexp.Regexp
	Mention  *regexp.Regexp
	Severity Status
	Absent   Status
	Limits   *Limits

	// Applies gates the checkpoint on context; nil means always.
	Applies func(Env) bool

	// Escalate raises a non-clear result to Critical.
	Escalate func(Env) bool

	Title       string
	Explanation string
	SourceRule  string
	Fix         string
}

// Result is the finding for one checkpoint.
type Result struct {
	ID           string   `json:"id" yaml:"id"`
	Name         string   `json:"name" yaml:"name"`
	Category     Category `json:"category" yaml:"category"`
	Status       Status   `json:"status" yaml:"status"`
	Title        string   `json:"title" yaml:"title"`
	Explanation  string   `json:"explanation,omitempty" yaml:"explanation,omitempty"`
	SourceRule   string   `json:"source_rule" yaml:"source_rule"`
	SuggestedFix string   `json:"suggested_fix,omitempty" yaml:"suggested_fix,omitempty"`
	Evidence     string   `json:"evidence,omitempty" yaml:"evidence,omitempty"`
}

// CategoryCount holds per-status counts for one category.
type CategoryCount struct {
	Critical int `json:"critical" yaml:"critical"`
	Warning  int `json:"warning" yaml:"warning"`
	Clear    int `json:"clear" yaml:"clear"`
}

// Summary aggregates a report.
type Summary struct {
	Critical   int                        `json:"critical" yaml:"critical"`
	Warning    int                        `json:"warning" yaml:"warning"`
	Clear      int                        `json:"clear" yaml:"clear"`
	ByCategory map[Category]CategoryCount `json:"by_category" yaml:"by_category"`
}

// Report is the ordered result list plus its summary.
type Report struct {
	Results []Result `json:"results" yaml:"results"`
	Summary Summary  `json:"summary" yaml:"summary"`
}

// Find returns the result with the given checkpoint ID.
func (r Report) Find(id string) (Result, bool) {
	for _, res := range r.Results {
		if res.ID == id {
			return res, true
		}
	}
	return Result{}, false
}

func summarize(results []Result) Summary {
	s := Summary{ByCategory: map[Category]CategoryCount{
		Required:    {},
		Recommended: {},
	}}
	for _, r := range results {
		c := s.ByCategory[r.Category]
		switch r.Status {
		case Critical:
			s.Critical++
			c.Critical++
		case Warning:
			s.Warning++
			c.Warning++
		default:
			s.Clear++
			c.Clear++
		}
		s.ByCategory[r.Category] = c
	}
	return s
}

package checkpoint

import (
	"fmt"
	"regexp"

	"github.com/ericksa/keiyakucheck/internal/contracttype"
	"github.com/ericksa/keiyakucheck/internal/laws"
	"github.com/ericksa/keiyakucheck/internal/textnorm"
)

const (
	clearTitle    = "問題は検出されませんでした"
	notApplicable = "この契約条件では対象外です"
)

type options struct {
	ctx     laws.UserContext
	typ     contracttype.Type
	typeSet bool
}

// Option adjusts an evaluation.
type Option func(*options)

// WithContext evaluates context-sensitive checkpoints under c instead of the
// default posture.
func WithContext(c laws.UserContext) Option {
	return func(o *options) { o.ctx = c }
}

// WithContractType supplies an already computed classification so the engine
// does not classify the text again.
func WithContractType(t contracttype.Type) Option {
	return func(o *options) {
		o.typ = t
		o.typeSet = true
	}
}

// Engine evaluates a checkpoint table.
type Engine struct {
	checkpoints []Checkpoint
}

// New returns an engine over the built-in catalogue.
func New() *Engine {
	return &Engine{checkpoints: catalogue}
}

var defaultEngine = New()

// Evaluate runs the built-in catalogue against text.
func Evaluate(text string, opts ...Option) Report {
	return defaultEngine.Evaluate(text, opts...)
}

// Evaluate runs every checkpoint against text and returns the results in
// catalogue order.
func (e *Engine) Evaluate(text string, opts ...Option) Report {
	o := options{ctx: laws.DefaultContext()}
	for _, opt := range opts {
		opt(&o)
	}

	folded := textnorm.Fold(text)
	if !o.typeSet {
		o.typ = contracttype.Detect(folded).DetectedType
	}
	ctx := o.ctx.Normalize()
	env := Env{Context: ctx, Laws: laws.Resolve(ctx), Type: o.typ}

	doc := document{text: folded, sentences: textnorm.Sentences(folded)}
	results := make([]Result, 0, len(e.checkpoints))
	for _, cp := range e.checkpoints {
		results = append(results, cp.evaluate(doc, env))
	}
	return Report{Results: results, Summary: summarize(results)}
}

type document struct {
	text      string
	sentences []string
}

func (cp Checkpoint) evaluate(doc document, env Env) Result {
	res := Result{
		ID:         cp.ID,
		Name:       cp.Name,
		Category:   cp.Category,
		SourceRule: cp.SourceRule,
	}
	if cp.Applies != nil && !cp.Applies(env) {
		res.Status = Clear
		res.Title = notApplicable
		return res
	}

	var status Status
	switch cp.Kind {
	case Presence:
		status, res.Evidence = cp.presence(doc)
	case Risk:
		status, res.Evidence = cp.risk(doc)
	case Threshold:
		status, res.Evidence = cp.threshold(doc)
	}

	if status != Clear && cp.Escalate != nil && cp.Escalate(env) {
		status = Critical
	}
	res.Status = status
	if status == Clear {
		res.Title = clearTitle
		return res
	}
	res.Title = cp.Title
	res.Explanation = cp.Explanation
	res.SuggestedFix = cp.Fix
	return res
}

func firstMatch(text string, patterns []*regexp.Regexp) string {
	for _, p := range patterns {
		if m := p.FindString(text); m != "" {
			return m
		}
	}
	return ""
}

func (cp Checkpoint) presence(doc document) (Status, string) {
	if m := firstMatch(doc.text, cp.Patterns); m != "" {
		return Clear, m
	}
	return cp.Severity, ""
}

func (cp Checkpoint) risk(doc document) (Status, string) {
	if m := firstMatch(doc.text, cp.Safe); m != "" {
		return Clear, m
	}
	if m := firstMatch(doc.text, cp.Patterns); m != "" {
		return cp.Severity, m
	}
	if cp.Absent == "" || cp.Absent == Clear {
		return Clear, ""
	}
	if cp.Mention != nil {
		if m := cp.Mention.FindString(doc.text); m != "" {
			return Clear, m
		}
	}
	return cp.Absent, ""
}

func (cp Checkpoint) threshold(doc document) (Status, string) {
	l := cp.Limits
	inScope := false
	longest, evidence := -1, ""

	for _, s := range doc.sentences {
		if !l.Scope.MatchString(s) {
			continue
		}
		inScope = true
		if l.Unlimited != nil {
			if m := l.Unlimited.FindString(s); m != "" {
				return Critical, m
			}
		}
		for _, f := range l.Fixed {
			if m := f.Pattern.FindString(s); m != "" && f.Days > longest {
				longest, evidence = f.Days, m
			}
		}
		if d, m, ok := longestTerm(l.Term, s); ok && d > longest {
			longest, evidence = d, m
		}
	}

	switch {
	case !inScope:
		return l.Missing, ""
	case longest < 0:
		return l.NoTerm, ""
	case l.Critical > 0 && longest > l.Critical:
		return Critical, describe(evidence, longest)
	case l.Warn > 0 && longest > l.Warn:
		return Warning, describe(evidence, longest)
	}
	return Clear, describe(evidence, longest)
}

func describe(evidence string, days int) string {
	return fmt.Sprintf("%s（約%d日）", evidence, days)
}

// longestTerm returns the longest duration the term pattern finds in s.
func longestTerm(term *regexp.Regexp, s string) (int, string, bool) {
	if term == nil {
		return 0, "", false
	}
	ni, ui := term.SubexpIndex("n"), term.SubexpIndex("unit")
	best, span, found := 0, "", false
	for _, m := range term.FindAllStringSubmatch(s, -1) {
		n, ok := textnorm.ParseNumber(m[ni])
		if !ok {
			continue
		}
		d, ok := textnorm.Days(n, m[ui])
		if !ok {
			continue
		}
		if !found || d > best {
			best, span, found = d, m[0], true
		}
	}
	return best, span, found
}

// Catalogue returns a copy of the built-in checkpoint table.
func Catalogue() []Checkpoint {
	out := make([]Checkpoint, len(catalogue))
	copy(out, catalogue)
	return out
}

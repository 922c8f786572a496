// Package contracttype decides whether a contract is a completion-of-work
// (請負) or a best-efforts service (準委任) agreement by scoring it against a
// fixed catalogue of weighted indicators.
package contracttype

import (
	"fmt"

	"github.com/ericksa/keiyakucheck/internal/textnorm"
)

// Confidence grades how clearly one archetype won.
type Confidence string

const (
	High   Confidence = "high"
	Medium Confidence = "medium"
	Low    Confidence = "low"
)

const (
	mixedMargin = 2
	highMargin  = 5
)

// Scores are the summed weights per archetype.
type Scores struct {
	Completion int `json:"completion_score" yaml:"completion_score"`
	Effort     int `json:"effort_score" yaml:"effort_score"`
}

// Match is an indicator together with the substring it matched.
type Match struct {
	ClassifiedAs Type   `json:"classified_as" yaml:"classified_as"`
	Weight       int    `json:"weight" yaml:"weight"`
	Description  string `json:"description" yaml:"description"`
	Span         string `json:"matched_span" yaml:"matched_span"`
}

// Result is the outcome of one Detect call.
type Result struct {
	DetectedType   Type       `json:"detected_type" yaml:"detected_type"`
	Confidence     Confidence `json:"confidence" yaml:"confidence"`
	Scores         Scores     `json:"scores" yaml:"scores"`
	Matched        []Match    `json:"matched_indicators" yaml:"matched_indicators"`
	Explanation    string     `json:"explanation" yaml:"explanation"`
	Recommendation string     `json:"recommendation" yaml:"recommendation"`
}

// Detect classifies text. It is total: the empty string yields Unknown.
func Detect(text string) Result {
	folded := textnorm.Fold(text)

	var res Result
	res.Matched = []Match{}
	for _, ind := range catalogue {
		span := ind.Pattern.FindString(folded)
		if span == "" {
			continue
		}
		switch ind.ClassifiedAs {
		case Completion:
			res.Scores.Completion += ind.Weight
		case BestEfforts:
			res.Scores.Effort += ind.Weight
		}
		res.Matched = append(res.Matched, Match{
			ClassifiedAs: ind.ClassifiedAs,
			Weight:       ind.Weight,
			Description:  ind.Description,
			Span:         span,
		})
	}

	res.DetectedType, res.Confidence = decide(res.Scores)
	res.Explanation = explain(res.DetectedType, res.Scores)
	res.Recommendation = recommendations[res.DetectedType]
	return res
}

func decide(s Scores) (Type, Confidence) {
	total := s.Completion + s.Effort
	diff := s.Completion - s.Effort
	if diff < 0 {
		diff = -diff
	}

	switch {
	case total == 0:
		return Unknown, Low
	case diff <= mixedMargin:
		return Mixed, Medium
	}

	winner := BestEfforts
	if s.Completion > s.Effort {
		winner = Completion
	}
	if diff >= highMargin {
		return winner, High
	}
	return winner, Medium
}

var typeLabels = map[Type]string{
	Completion:  "請負契約（仕事の完成義務）",
	BestEfforts: "準委任契約（善管注意義務による役務提供）",
	Mixed:       "請負と準委任の要素が混在した契約",
	Unknown:     "契約類型を判定できない契約",
}

func explain(t Type, s Scores) string {
	return fmt.Sprintf("請負の指標スコアは%d、準委任の指標スコアは%dです。この契約は%sと判定されました。",
		s.Completion, s.Effort, typeLabels[t])
}

var recommendations = map[Type]string{
	Completion: "請負契約では成果物の完成責任と契約不適合責任を負います。修正回数の上限と検収期間を明記し、" +
		"無制限のやり直し要求を防いでください。",
	BestEfforts: "準委任契約での義務は業務を誠実に遂行することであり、成果の完成を保証する義務はありません。" +
		"成果保証や契約不適合責任を求める条項がないか確認してください。",
	Mixed:   "請負と準委任の要素が混在しています。どちらの契約類型であるかを契約書に明記してください。",
	Unknown: "契約類型を示す記載が見当たりません。請負か準委任かを契約書に明記してください。",
}

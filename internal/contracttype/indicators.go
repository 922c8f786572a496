package contracttype

import "regexp"

// Type is the legal archetype of a contract.
type Type string

const (
	Completion  Type = "completion"
	BestEfforts Type = "best_efforts"
	Mixed       Type = "mixed"
	Unknown     Type = "unknown"
)

// Indicator is one weighted catalogue entry. Weight is 1..3.
type Indicator struct {
	ClassifiedAs Type           `json:"classified_as"`
	Pattern      *regexp.Regexp `json:"-"`
	Weight       int            `json:"weight"`
	Description  string         `json:"description"`
}

var catalogue = []Indicator{
	{Completion, regexp.MustCompile(`請負`), 3, "請負契約である旨の記載"},
	{Completion, regexp.MustCompile(`仕事の完成`), 3, "仕事の完成を目的とする記載"},
	{Completion, regexp.MustCompile(`民法第?632条`), 3, "請負に関する民法632条の引用"},
	{Completion, regexp.MustCompile(`成果物`), 2, "成果物の納入義務"},
	{Completion, regexp.MustCompile(`検収`), 2, "検収手続の定め"},
	{Completion, regexp.MustCompile(`契約不適合責任|瑕疵担保責任`), 2, "契約不適合責任の定め"},
	{Completion, regexp.MustCompile(`納品|納入`), 1, "納品の定め"},

	{BestEfforts, regexp.MustCompile(`準委任`), 3, "準委任契約である旨の記載"},
	{BestEfforts, regexp.MustCompile(`善良な管理者の注意|善管注意義務`), 3, "善管注意義務の定め"},
	{BestEfforts, regexp.MustCompile(`民法第?656条`), 3, "準委任に関する民法656条の引用"},
	{BestEfforts, regexp.MustCompile(`(完成|成果)[^。]{0,10}保証しない`), 3, "成果の完成を保証しない旨"},
	{BestEfforts, regexp.MustCompile(`民法第?643条`), 2, "委任に関する民法643条の引用"},
	{BestEfforts, regexp.MustCompile(`役務の提供`), 2, "役務提供を目的とする記載"},
	{BestEfforts, regexp.MustCompile(`稼働時間|時間単価|時間当たり`), 2, "稼働時間に応じた報酬"},
	{BestEfforts, regexp.MustCompile(`業務の遂行`), 1, "業務遂行を目的とする記載"},
	{BestEfforts, regexp.MustCompile(`業務報告書|作業報告書`), 1, "業務報告の定め"},
}

// Indicators returns a copy of the catalogue in evaluation order.
func Indicators() []Indicator {
	out := make([]Indicator, len(catalogue))
	copy(out, catalogue)
	return out
}

package contracttype

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetect_CompletionHigh(t *testing.T) {
	res := Detect("本契約は請負契約とし、乙は仕事の完成を約する。")

	assert.Equal(t, Completion, res.DetectedType)
	assert.Equal(t, High, res.Confidence)
	assert.Equal(t, 6, res.Scores.Completion)
	assert.Equal(t, 0, res.Scores.Effort)
	require.Len(t, res.Matched, 2)
	assert.Equal(t, "請負", res.Matched[0].Span)
	assert.Equal(t, "仕事の完成", res.Matched[1].Span)
	assert.Contains(t, res.Recommendation, "修正回数")
}

func TestDetect_BestEfforts(t *testing.T) {
	res := Detect("本契約は準委任契約であり、乙は善良な管理者の注意をもって業務を行う。")

	assert.Equal(t, BestEfforts, res.DetectedType)
	assert.Equal(t, High, res.Confidence)
	assert.Equal(t, 6, res.Scores.Effort)
	assert.Contains(t, res.Recommendation, "成果の完成を保証する義務はありません")
}

func TestDetect_MediumWin(t *testing.T) {
	// 請負(3) + 検収(2) against 業務の遂行(1): diff 4
	res := Detect("請負業務の遂行後、甲は検収を行う。")

	assert.Equal(t, Completion, res.DetectedType)
	assert.Equal(t, Medium, res.Confidence)
	assert.Equal(t, Scores{Completion: 5, Effort: 1}, res.Scores)
}

func TestDetect_Mixed(t *testing.T) {
	res := Detect("請負とするが、準委任の性質も有する。")

	assert.Equal(t, Mixed, res.DetectedType)
	assert.Equal(t, Medium, res.Confidence)
	assert.Contains(t, res.Recommendation, "明記")
}

func TestDetect_FullWidthArticleNumber(t *testing.T) {
	res := Detect("民法第６５６条に定める契約とする。")

	assert.Equal(t, BestEfforts, res.DetectedType)
	assert.Equal(t, 3, res.Scores.Effort)
}

func TestDetect_Totality(t *testing.T) {
	inputs := []string{"", " ", "あ", strings.Repeat("。", 1000), "\x00\xff", "成果物"}
	valid := map[Type]bool{Completion: true, BestEfforts: true, Mixed: true, Unknown: true}

	for _, in := range inputs {
		res := Detect(in)
		assert.True(t, valid[res.DetectedType], "input %q", in)
		assert.NotEmpty(t, res.Explanation)
		assert.NotEmpty(t, res.Recommendation)
	}

	empty := Detect("")
	assert.Equal(t, Unknown, empty.DetectedType)
	assert.Equal(t, Low, empty.Confidence)
	assert.NotNil(t, empty.Matched)
}

func TestDetect_ExplanationCitesScores(t *testing.T) {
	res := Detect("請負契約。成果物を納品する。")
	assert.Contains(t, res.Explanation, "請負の指標スコアは6")
	assert.Contains(t, res.Explanation, "準委任の指標スコアは0")
}

func TestIndicators_ReturnsCopy(t *testing.T) {
	a := Indicators()
	a[0].Weight = 99
	assert.NotEqual(t, 99, Indicators()[0].Weight)

	for _, ind := range Indicators() {
		assert.GreaterOrEqual(t, ind.Weight, 1, ind.Description)
		assert.LessOrEqual(t, ind.Weight, 3, ind.Description)
	}
}

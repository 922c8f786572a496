package textnorm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFold(t *testing.T) {
	assert.Equal(t, "納品後60日以内\n支払う", Fold("納品後６０日以内\r\n支払う"))
	assert.Equal(t, "a\nb", Fold("a\rb"))
}

func TestSentences(t *testing.T) {
	got := Sentences("第1条 目的\n甲は乙に委託する。乙は受託する。\n\n")
	assert.Equal(t, []string{"第1条 目的", "甲は乙に委託する", "乙は受託する"}, got)
	assert.Empty(t, Sentences(""))
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		in   string
		want int
		ok   bool
	}{
		{"90", 90, true},
		{"６０", 60, true},
		{"六十", 60, true},
		{"十", 10, true},
		{"五", 5, true},
		{"百二十", 120, true},
		{"二十一", 21, true},
		{"1,000", 1000, true},
		{"", 0, false},
		{"abc", 0, false},
		{",", 0, false},
		{"1000000", MaxNumber, true},
		{"18446744073709551620", MaxNumber, true},
		{"9223372036854775808", MaxNumber, true},
		{"九九九九九九九九九九九九九九九九九九九九九", MaxNumber, true},
	}
	for _, tt := range tests {
		n, ok := ParseNumber(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, n, tt.in)
	}
}

func TestDays(t *testing.T) {
	d, ok := Days(5, "年")
	assert.True(t, ok)
	assert.Equal(t, 1825, d)

	d, ok = Days(6, "ヶ月")
	assert.True(t, ok)
	assert.Equal(t, 180, d)

	_, ok = Days(1, "秒")
	assert.False(t, ok)
}

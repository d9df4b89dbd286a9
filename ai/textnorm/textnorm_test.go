package textnorm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"lowercase and trim", "  Center INFO  ", "center info"},
		{"collapse inner whitespace", "센터   소개", "센터 소개"},
		{"strip punctuation", "센터 소개??!", "센터 소개"},
		{"keep plus sign", "도시재생+", "도시재생+"},
		{"polite suffix", "주소 알려주세요", "주소"},
		{"ending particle", "오시는 길 좀", "오시는길"},
		{"trailing yo", "전화번호요", "전화"},
		{"synonym mail", "이메일 주소", "메일 주소"},
		{"synonym instagram", "인스타그램 알려줘", "인스타"},
		{"empty", "", ""},
		{"only punctuation", "?!...", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.input))
		})
	}
}

func TestNormalizeSpacingInvariance(t *testing.T) {
	// Spaced and unspaced forms converge through the no-space view.
	a := NormalizeNoSpace("센터 소개")
	b := NormalizeNoSpace("센터소개")
	c := NormalizeNoSpace("  센터소개  ")
	assert.Equal(t, a, b)
	assert.Equal(t, b, c)
	assert.Equal(t, "센터소개", a)
}

func TestNoSpace(t *testing.T) {
	assert.Equal(t, "도시재생지원센터", NoSpace("도시재생 지원 센터"))
	assert.Equal(t, "", NoSpace("   "))
}

func TestAliasVariants(t *testing.T) {
	got := AliasVariants("센터 소개")
	assert.Contains(t, got, "센터 소개")
	assert.Contains(t, got, "센터소개")

	// Single-token phrase yields one variant only.
	assert.Len(t, AliasVariants("아카이브"), 1)
}

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"도시재생", "뉴딜", "사업"}, Tokenize("도시재생 뉴딜 사업"))
	assert.Empty(t, Tokenize("   "))
}

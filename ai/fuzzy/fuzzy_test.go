package fuzzy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRatio(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want func(t *testing.T, score int)
	}{
		{"identical", "센터 소개", "센터 소개", func(t *testing.T, s int) {
			assert.Equal(t, 100, s)
		}},
		{"reordered tokens", "신청 코스", "코스 신청", func(t *testing.T, s int) {
			assert.Equal(t, 100, s)
		}},
		{"token subset", "코스 신청", "일반 코스 신청 방법", func(t *testing.T, s int) {
			assert.GreaterOrEqual(t, s, 80)
		}},
		{"disjoint", "오시는길", "코스 신청", func(t *testing.T, s int) {
			assert.Less(t, s, 40)
		}},
		{"both empty", "", "", func(t *testing.T, s int) {
			assert.Equal(t, 0, s)
		}},
		{"one side empty", "센터 소개", "", func(t *testing.T, s int) {
			assert.Equal(t, 0, s)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.want(t, Ratio(tt.a, tt.b))
		})
	}
}

func TestPartialRatioSubstring(t *testing.T) {
	assert.Equal(t, 100, PartialRatio("소개", "센터 소개"))
	assert.Equal(t, 100, PartialRatio("센터 소개", "소개"))
	assert.Equal(t, 0, PartialRatio("", "소개"))
}

func TestRatioOrdering(t *testing.T) {
	// A candidate sharing the query's tokens must outscore a disjoint one.
	q := "도시재생 뉴딜"
	related := Ratio(q, "도시재생 뉴딜 사업 안내")
	unrelated := Ratio(q, "주차장 이용 요금")
	assert.Greater(t, related, unrelated)
}

func TestBestMatch(t *testing.T) {
	pool := []string{"센터 소개", "일반 코스", "전문 코스", "아카이브"}

	m, ok := BestMatch("전문 코스 신청", pool, 70)
	require.True(t, ok)
	assert.Equal(t, "전문 코스", m.Value)
	assert.Equal(t, 2, m.Index)

	_, ok = BestMatch("주차장", pool, 70)
	assert.False(t, ok)

	_, ok = BestMatch("아무거나", nil, 0)
	assert.False(t, ok)
}

func TestBestMatchDual(t *testing.T) {
	pool := []string{"센터 소개", "일반 코스"}
	noSpace := []string{"센터소개", "일반코스"}

	// The unspaced query only clears the bar through the no-space pool.
	m, ok := BestMatchDual("센터소개", pool, noSpace, 95)
	require.True(t, ok)
	assert.Equal(t, "센터소개", m.Value)
	assert.Equal(t, 0, m.Index)
}

func TestExtract(t *testing.T) {
	pool := []string{"도시재생 뉴딜 사업", "도시재생 선도 사업", "주차 안내"}

	got := Extract("도시재생 사업", pool, 2, 60, Ratio)
	require.Len(t, got, 2)
	assert.GreaterOrEqual(t, got[0].Score, got[1].Score)
	for _, m := range got {
		assert.NotEqual(t, "주차 안내", m.Value)
	}
}

package intent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cheonanurc/urcbot/ai/registry"
	"github.com/cheonanurc/urcbot/ai/session"
)

func newTestResolver(t *testing.T) *Resolver {
	t.Helper()
	reg, err := registry.New()
	require.NoError(t, err)
	return NewResolver(reg, DefaultConfig())
}

func TestClassifyRuleCascade(t *testing.T) {
	r := newTestResolver(t)

	tests := []struct {
		name        string
		query       string
		wantIntent  string
		wantContact string
	}{
		{"email", "센터 이메일 알려줘", AskContact, ContactEmail},
		{"fax", "팩스 번호가 뭐예요", AskContact, ContactFax},
		{"phone", "전화번호 좀", AskContact, ContactPhone},
		{"hours", "운영 시간이 어떻게 되나요", AskContact, ContactHours},
		{"navigate beats address", "오시는 길 센터", Navigate, ""},
		{"bare address", "봉명동 주소", AskContact, ContactAddress},
		{"informational", "도시재생이 무엇인가요", AskInfo, ""},
		{"general", "고마워", General, ""},
		{"empty", "", General, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := r.Classify(tt.query, nil)
			assert.Equal(t, tt.wantIntent, res.Intent)
			assert.Equal(t, tt.wantContact, res.ContactType)
		})
	}
}

func TestClassifyNavigateResolvesEntity(t *testing.T) {
	r := newTestResolver(t)

	res := r.Classify("오시는 길 센터", nil)
	require.Equal(t, Navigate, res.Intent)
	require.True(t, res.HasEntity)
	assert.Equal(t, "https://www.cheonanurc.or.kr/131", res.Entity.URL)
}

func TestClassifyCourseNumberPriority(t *testing.T) {
	r := newTestResolver(t)

	res := r.Classify("전문코스 2 주소", nil)
	require.Equal(t, Navigate, res.Intent)
	require.NotNil(t, res.Course)
	assert.Equal(t, "전문코스", res.Course.Kind)
	assert.Equal(t, "2", res.Course.Number)
	require.True(t, res.HasEntity)
	assert.Equal(t, "https://www.cheonanurc.or.kr/99", res.Entity.URL)
}

func TestClassifyCourseKoreanNumeral(t *testing.T) {
	r := newTestResolver(t)

	res := r.Classify("일반 코스 이 안내", nil)
	require.NotNil(t, res.Course)
	assert.Equal(t, "2", res.Course.Number)
	assert.Equal(t, "https://www.cheonanurc.or.kr/97", res.Entity.URL)
}

func TestClassifyPageID(t *testing.T) {
	r := newTestResolver(t)

	res := r.Classify("/41", nil)
	require.Equal(t, Navigate, res.Intent)
	require.True(t, res.HasEntity)
	assert.Equal(t, "https://www.cheonanurc.or.kr/41", res.Entity.URL)
	assert.Equal(t, "page-id", res.Rule)
}

func TestClassifySectionBroadcast(t *testing.T) {
	r := newTestResolver(t)

	res := r.Classify("아카이브", nil)
	assert.Equal(t, Navigate, res.Intent)
	assert.Equal(t, "아카이브", res.Section)

	res = r.Classify("사업소개 메뉴 전체 보여줘", nil)
	assert.Equal(t, "사업소개", res.Section)
}

func TestClassifySessionCarryover(t *testing.T) {
	r := newTestResolver(t)

	prior := &session.State{
		LastIntent:     Navigate,
		LastAlias:      "도시재생투어",
		NavigationMode: true,
	}
	res := r.Classify("그거 다시", prior)
	assert.Equal(t, Navigate, res.Intent)
	assert.True(t, res.FromSession)
	require.True(t, res.HasEntity)
	assert.Equal(t, "https://www.cheonanurc.or.kr/64", res.Entity.URL)

	// Without navigation mode the same turn stays general.
	res = r.Classify("그거 다시", &session.State{LastAlias: "도시재생투어"})
	assert.Equal(t, General, res.Intent)
}

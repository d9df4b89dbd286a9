package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cheonanurc/urcbot/internal/profile"
)

type fakeDriver struct {
	Driver
	docs []*Document
}

func (d *fakeDriver) ListDocuments(_ context.Context, find *FindDocument) ([]*Document, error) {
	var out []*Document
	for _, doc := range d.docs {
		if find.Category != nil && doc.Category != *find.Category {
			continue
		}
		out = append(out, doc)
	}
	return out, nil
}

func TestParseProgramSection(t *testing.T) {
	text := "# 도시재생+\n\n## 현재 진행중인 프로그램\n- 도시재생대학 기초과정\n- 주민기자단 모집\n\n## 지난 프로그램\n- 마을정원 가꾸기\n"

	items := parseProgramSection(text)

	require.Len(t, items, 2)
	assert.Equal(t, "도시재생대학 기초과정", items[0])
	assert.Equal(t, "주민기자단 모집", items[1])
}

func TestParseProgramSectionMissingMarker(t *testing.T) {
	assert.Nil(t, parseProgramSection("# 공지사항\n- 휴관 안내\n"))
}

func TestCurrentProgramsDeduplicates(t *testing.T) {
	driver := &fakeDriver{docs: []*Document{
		{
			ID:       1,
			Category: "도시재생+",
			Text:     "## 현재 진행중인 프로그램\n- 도시재생대학 기초과정\n",
		},
		{
			ID:       2,
			Category: "도시재생+",
			Text:     "## 현재 진행중인 프로그램\n- 도시재생대학 기초과정\n- 주민기자단 모집\n",
		},
		{
			ID:       3,
			Category: "커뮤니티",
			Text:     "## 현재 진행중인 프로그램\n- 무시되어야 하는 항목\n",
		},
	}}
	s := New(driver, &profile.Profile{})

	programs, err := s.CurrentPrograms(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{"도시재생대학 기초과정", "주민기자단 모집"}, programs)
}

package router

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/cheonanurc/urcbot/ai/intent"
	"github.com/cheonanurc/urcbot/ai/registry"
	"github.com/cheonanurc/urcbot/ai/websearch"
)

const synthesisSystemPrompt = "당신은 천안시 도시재생지원센터 안내 챗봇입니다. " +
	"주어진 참고 자료의 내용만 사용해 한국어로 간결하고 정확하게 답변하세요. " +
	"참고 자료에 없는 내용은 모르겠습니다라고 답하세요."

const officeHours = "평일 09:00~18:00 (점심시간 12:00~13:00, 주말·공휴일 휴무)"

var programListRegex = regexp.MustCompile(`(프로그램|강좌|교육|모집).*(현재|진행|모집|신청)|` +
	`(현재|진행).*(프로그램|강좌|교육)`)

func buildUserPrompt(query string, contextBlocks []string) string {
	var sb strings.Builder
	if len(contextBlocks) > 0 {
		sb.WriteString("참고 자료:\n")
		for i, block := range contextBlocks {
			fmt.Fprintf(&sb, "[%d] %s\n", i+1, block)
		}
		sb.WriteString("\n")
	}
	sb.WriteString("질문: ")
	sb.WriteString(query)
	return sb.String()
}

func contextBlock(title, url, text string) string {
	parts := make([]string, 0, 3)
	if title != "" {
		parts = append(parts, title)
	}
	if text != "" {
		parts = append(parts, truncate(strings.TrimSpace(text), 600))
	}
	if url != "" {
		parts = append(parts, "("+url+")")
	}
	return strings.Join(parts, " - ")
}

// renderContacts formats the requested contact field for each matched
// center. Missing fields drop the center from the answer; an answer
// with no line at all falls through to the next stage.
func renderContacts(contacts []registry.Contact, contactType string) string {
	if len(contacts) == 0 {
		return ""
	}
	if contactType == intent.ContactHours {
		return "센터 운영시간: " + officeHours
	}

	var lines []string
	for _, c := range contacts {
		var label, value string
		switch contactType {
		case intent.ContactEmail:
			label, value = "이메일", c.Email
		case intent.ContactFax:
			label, value = "팩스", c.Fax
		case intent.ContactPhone:
			label, value = "전화", c.Tel
		case intent.ContactAddress:
			label, value = "주소", c.Address
		default:
			label, value = "연락처", c.Tel
		}
		if value == "" {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s %s: %s", c.Title, label, value))
	}
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n")
}

// renderNavigation builds the locator answer for a navigate intent:
// a whole-section listing, a single entity link, or the pages behind
// a resolved tag, in that order of specificity.
func (r *AnswerRouter) renderNavigation(res intent.Result) string {
	if res.Section != "" {
		entities := r.svc.Registry.Section(res.Section)
		if len(entities) == 0 {
			return ""
		}
		var sb strings.Builder
		fmt.Fprintf(&sb, "%s 메뉴를 안내해 드릴게요.\n", res.Section)
		for _, e := range entities {
			fmt.Fprintf(&sb, "- %s: %s\n", e.Name, e.URL)
		}
		return strings.TrimRight(sb.String(), "\n")
	}

	if res.HasEntity {
		return fmt.Sprintf("요청하신 '%s' 페이지입니다: %s", res.Entity.Name, res.Entity.URL)
	}

	if res.Tag != "" {
		entities := r.svc.Registry.EntitiesByTag(res.Tag)
		if len(entities) == 0 {
			return ""
		}
		if len(entities) == 1 {
			return fmt.Sprintf("요청하신 '%s' 페이지입니다: %s", entities[0].Name, entities[0].URL)
		}
		var sb strings.Builder
		fmt.Fprintf(&sb, "'%s' 관련 페이지를 안내해 드릴게요.\n", res.Tag)
		for _, e := range entities {
			fmt.Fprintf(&sb, "- %s: %s\n", e.Name, e.URL)
		}
		return strings.TrimRight(sb.String(), "\n")
	}

	return ""
}

func renderPrograms(programs []string) string {
	var sb strings.Builder
	sb.WriteString("현재 진행 중인 프로그램입니다.\n")
	for _, p := range programs {
		sb.WriteString("- ")
		sb.WriteString(p)
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

func renderWebResults(results []websearch.Result) string {
	var sb strings.Builder
	sb.WriteString("관련 자료를 웹에서 찾았습니다.\n")
	for _, res := range results {
		fmt.Fprintf(&sb, "- %s: %s\n", res.Title, res.URL)
	}
	return strings.TrimRight(sb.String(), "\n")
}

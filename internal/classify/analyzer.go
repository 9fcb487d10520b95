package classify

import (
	"math"
	"slices"
	"strings"

	"github.com/TobiSchelling/g2bdash/internal/procurement"
)

// Uncategorized is the category of a title that matches no keyword.
const Uncategorized = "기타"

// Competition levels.
const (
	CompetitionLow    = "저"
	CompetitionMedium = "중"
	CompetitionHigh   = "고"
)

type category struct {
	name     string
	keywords []string
}

// categories in tie-break order: on equal scores the earlier one wins.
var categories = []category{
	{"IT", []string{"소프트웨어", "시스템", "홈페이지", "웹", "앱", "프로그램", "개발", "IT", "전산", "네트워크", "서버", "DB", "데이터베이스", "클라우드"}},
	{"건설", []string{"공사", "건축", "토목", "시설", "건설", "보수", "개보수", "증축", "신축", "리모델링"}},
	{"용역", []string{"용역", "컨설팅", "자문", "연구", "조사", "분석", "평가", "진단", "관리"}},
	{"물품", []string{"구매", "납품", "물품", "제품", "기자재", "장비", "설비", "비품", "소모품"}},
	{"교육", []string{"교육", "연수", "훈련", "강의", "세미나", "워크샵", "특강"}},
	{"의료", []string{"의료", "병원", "의약", "간호", "치료", "진료", "건강"}},
	{"청소", []string{"청소", "환경", "미화", "위생", "방역", "소독"}},
	{"보안", []string{"보안", "경비", "방범", "CCTV", "감시", "순찰"}},
	{"인쇄", []string{"인쇄", "출판", "제작", "디자인", "편집"}},
	{"운송", []string{"운송", "배송", "택배", "이사", "물류", "운반"}},
}

const (
	largeBudget  = 1_000_000_000
	mediumBudget = 500_000_000
	smallBudget  = 100_000_000
)

// Analysis is the derived classification of one bid notice.
type Analysis struct {
	Category         string   `json:"category"`
	Tags             []string `json:"tags"`
	CompetitionLevel string   `json:"competition_level"`
}

// Analyze classifies b. participants are the participant counts of past
// awards by the same agency and may be empty.
func Analyze(b procurement.BidNotice, participants []int) Analysis {
	return Analysis{
		Category:         Category(b.Title),
		Tags:             Tags(b),
		CompetitionLevel: CompetitionLevel(b, participants),
	}
}

// Category picks the category whose keywords occur most often in title.
func Category(title string) string {
	t := strings.ToLower(strings.TrimSpace(title))
	if t == "" {
		return Uncategorized
	}

	best, bestScore := Uncategorized, 0
	for _, c := range categories {
		score := 0
		for _, kw := range c.keywords {
			if strings.Contains(t, strings.ToLower(kw)) {
				score++
			}
		}
		if score > bestScore {
			best, bestScore = c.name, score
		}
	}
	return best
}

// Tags derives budget, deadline and keyword tags. The result is never nil.
func Tags(b procurement.BidNotice) []string {
	tags := []string{}

	if b.BudgetAmount != nil && *b.BudgetAmount > 0 {
		switch {
		case *b.BudgetAmount >= largeBudget:
			tags = append(tags, "고액")
		case *b.BudgetAmount >= smallBudget:
			tags = append(tags, "중액")
		default:
			tags = append(tags, "소액")
		}
	}

	if opened, due := b.NoticeDate.Ptr(), b.BidCloseDate.Ptr(); opened != nil && due != nil {
		days := int(math.Floor(due.Sub(*opened).Hours() / 24))
		switch {
		case days <= 3:
			tags = append(tags, "긴급")
		case days <= 7:
			tags = append(tags, "빠른마감")
		}
	}

	title := strings.ToLower(b.Title)
	if containsAny(title, "긴급", "신속", "즉시") && !slices.Contains(tags, "긴급") {
		tags = append(tags, "긴급")
	}
	if containsAny(title, "유지보수", "운영", "관리") {
		tags = append(tags, "유지보수")
	}
	if containsAny(title, "신규", "구축", "개발") {
		tags = append(tags, "신규사업")
	}
	if containsAny(title, "재공고", "재입찰") {
		tags = append(tags, "재공고")
	}
	return tags
}

// CompetitionLevel scores budget size, notice type and the agency's past
// participant counts into 저/중/고.
func CompetitionLevel(b procurement.BidNotice, participants []int) string {
	score := 0

	if b.BudgetAmount != nil {
		switch {
		case *b.BudgetAmount >= largeBudget:
			score += 3
		case *b.BudgetAmount >= mediumBudget:
			score += 2
		case *b.BudgetAmount >= smallBudget:
			score++
		}
	}

	// 용역 and 물품 have a lower entry barrier than 공사.
	if b.NoticeType == "용역" || b.NoticeType == "물품" {
		score++
	}

	if len(participants) > 0 {
		sum := 0
		for _, n := range participants {
			sum += n
		}
		avg := float64(sum) / float64(len(participants))
		switch {
		case avg >= 10:
			score += 2
		case avg >= 5:
			score++
		}
	}

	switch {
	case score >= 5:
		return CompetitionHigh
	case score >= 3:
		return CompetitionMedium
	}
	return CompetitionLow
}

func containsAny(s string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

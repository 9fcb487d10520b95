package collect

import (
	"testing"
	"time"

	"github.com/mmcdole/gofeed"
)

const sampleRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>나라장터 입찰공고</title>
  <item>
    <title>2025년 청사 외벽 보수공사</title>
    <link>https://www.g2b.go.kr/link/PNPE027_01/single/?bidNtceNo=R25BK00012345&amp;bidNtceOrd=000</link>
    <guid>R25BK00012345-000</guid>
    <author>서울특별시 종로구</author>
    <description>&lt;p&gt;입찰 참가자격: &amp;amp; 지역제한&lt;/p&gt;</description>
    <pubDate>Thu, 23 Jan 2025 10:30:00 +0900</pubDate>
  </item>
  <item>
    <title>정보시스템 유지관리</title>
    <link>https://example.com/notice/1</link>
    <guid>20250112345-00</guid>
    <category>용역</category>
  </item>
  <item>
    <title></title>
    <link>https://example.com/notice/2</link>
  </item>
</channel>
</rss>`

func parseSample(t *testing.T) *gofeed.Feed {
	t.Helper()
	feed, err := gofeed.NewParser().ParseString(sampleRSS)
	if err != nil {
		t.Fatalf("failed to parse sample feed: %v", err)
	}
	return feed
}

func TestParseItem(t *testing.T) {
	feed := parseSample(t)

	n := parseItem(feed.Items[0], "")
	if n == nil {
		t.Fatal("expected a notice")
	}
	if n.NoticeNumber != "R25BK00012345-000" {
		t.Errorf("expected number from link query, got %q", n.NoticeNumber)
	}
	if n.NoticeType != "공사" {
		t.Errorf("expected type inferred from title, got %q", n.NoticeType)
	}
	if n.OrderingAgency != "서울특별시 종로구" {
		t.Errorf("expected agency from author, got %q", n.OrderingAgency)
	}
	if n.Description != "입찰 참가자격: & 지역제한" {
		t.Errorf("expected stripped description, got %q", n.Description)
	}
	if n.NoticeDate == nil || n.NoticeDate.UTC().Format("2006-01-02 15:04") != "2025-01-23 01:30" {
		t.Errorf("unexpected notice date %v", n.NoticeDate)
	}

	n = parseItem(feed.Items[1], "")
	if n.NoticeNumber != "20250112345-00" {
		t.Errorf("expected number from guid, got %q", n.NoticeNumber)
	}
	if n.NoticeType != "용역" {
		t.Errorf("expected type from category, got %q", n.NoticeType)
	}

	if parseItem(feed.Items[2], "") != nil {
		t.Error("expected nil for an item without a title")
	}
}

func TestParseItemFeedTypeWins(t *testing.T) {
	feed := parseSample(t)
	n := parseItem(feed.Items[0], "물품")
	if n.NoticeType != "물품" {
		t.Errorf("expected configured type, got %q", n.NoticeType)
	}
}

func TestParseFeedWindow(t *testing.T) {
	feed := parseSample(t)

	recent := parseFeed(feed, FeedConfig{}, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	if len(recent) != 2 {
		t.Errorf("expected 2 notices, got %d", len(recent))
	}

	// Undated items are kept regardless of the window.
	later := parseFeed(feed, FeedConfig{}, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))
	if len(later) != 1 || later[0].NoticeNumber != "20250112345-00" {
		t.Errorf("expected only the undated notice, got %+v", later)
	}
}

func TestInferNoticeType(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{"도로 포장공사", "공사"},
		{"홍보 영상 제작 용역", "용역"},
		{"사무용 복합기 구매", "물품"},
		{"기타 공고", ""},
	}
	for _, tt := range tests {
		if got := inferNoticeType(tt.title, nil); got != tt.want {
			t.Errorf("inferNoticeType(%q) = %q, want %q", tt.title, got, tt.want)
		}
	}
}

func TestStripHTML(t *testing.T) {
	got := stripHTML("<p>Hello&nbsp;<b>world</b></p>\n\n&lt;tag&gt;")
	if got != "Hello world <tag>" {
		t.Errorf("unexpected result %q", got)
	}
}

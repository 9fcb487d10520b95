package collect

import (
	"log"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/TobiSchelling/g2bdash/internal/procurement"
)

const maxPerFeed = 100

// FeedConfig represents a single feed configuration. NoticeType, when set,
// applies to every item of the feed.
type FeedConfig struct {
	URL        string
	Name       string
	NoticeType string
}

// FeedParser parses bid notice RSS/Atom feeds.
type FeedParser struct {
	feeds  []FeedConfig
	parser *gofeed.Parser
}

// NewFeedParser creates a new FeedParser.
func NewFeedParser(feeds []FeedConfig) *FeedParser {
	return &FeedParser{feeds: feeds, parser: gofeed.NewParser()}
}

// ParseAll parses all configured feeds and returns notices published
// within daysBack.
func (fp *FeedParser) ParseAll(daysBack int) []procurement.BidNotice {
	cutoff := time.Now().AddDate(0, 0, -daysBack)
	var all []procurement.BidNotice

	for _, fc := range fp.feeds {
		name := fc.Name
		if name == "" {
			name = extractSourceName(fc.URL)
		}

		feed, err := fp.parser.ParseURL(fc.URL)
		if err != nil {
			log.Printf("Failed to parse feed %s: %v", fc.URL, err)
			continue
		}
		notices := parseFeed(feed, fc, cutoff)
		all = append(all, notices...)
		log.Printf("Parsed %d notices from %s (within %d days)", len(notices), name, daysBack)
	}

	return all
}

func parseFeed(feed *gofeed.Feed, fc FeedConfig, cutoff time.Time) []procurement.BidNotice {
	var notices []procurement.BidNotice
	for _, item := range feed.Items {
		if len(notices) >= maxPerFeed {
			break
		}
		n := parseItem(item, fc.NoticeType)
		if n == nil {
			continue
		}
		if n.NoticeDate == nil || !n.NoticeDate.Before(cutoff) {
			notices = append(notices, *n)
		}
	}
	return notices
}

// noticeNumberPattern matches G2B notice numbers: the legacy numeric
// form ("20250112345-00") and the current "R25BK00012345" form.
var noticeNumberPattern = regexp.MustCompile(`\b(R\d{2}[A-Z]{2}\d{8}|\d{11})(-\d{2,3})?\b`)

func parseItem(item *gofeed.Item, noticeType string) *procurement.BidNotice {
	title := strings.TrimSpace(item.Title)
	if title == "" {
		return nil
	}
	number := noticeNumber(item)
	if number == "" {
		return nil
	}

	n := &procurement.BidNotice{
		NoticeNumber: number,
		Title:        title,
		NoticeType:   noticeType,
		BiddingURL:   strings.TrimSpace(item.Link),
	}
	if n.NoticeType == "" {
		n.NoticeType = inferNoticeType(title, item.Categories)
	}
	if item.Author != nil {
		n.OrderingAgency = strings.TrimSpace(item.Author.Name)
	}

	if item.PublishedParsed != nil {
		n.NoticeDate = &procurement.Timestamp{Time: item.PublishedParsed.In(time.Local)}
	} else if item.UpdatedParsed != nil {
		n.NoticeDate = &procurement.Timestamp{Time: item.UpdatedParsed.In(time.Local)}
	}

	if item.Content != "" {
		n.Description = stripHTML(item.Content)
	} else if item.Description != "" {
		n.Description = stripHTML(item.Description)
	}

	return n
}

// noticeNumber takes the notice number from the link's bidNtceNo query
// parameter, then from the GUID, then from the title.
func noticeNumber(item *gofeed.Item) string {
	if u, err := url.Parse(item.Link); err == nil && item.Link != "" {
		if no := u.Query().Get("bidNtceNo"); no != "" {
			if ord := u.Query().Get("bidNtceOrd"); ord != "" {
				return no + "-" + ord
			}
			return no
		}
	}
	for _, s := range []string{item.GUID, item.Title} {
		if m := noticeNumberPattern.FindString(s); m != "" {
			return m
		}
	}
	return strings.TrimSpace(item.GUID)
}

// inferNoticeType derives 공사/용역/물품 from the feed categories or title.
func inferNoticeType(title string, categories []string) string {
	for _, c := range categories {
		switch c = strings.TrimSpace(c); c {
		case "공사", "용역", "물품":
			return c
		}
	}
	switch {
	case strings.Contains(title, "공사"):
		return "공사"
	case strings.Contains(title, "용역"):
		return "용역"
	case strings.Contains(title, "구매"), strings.Contains(title, "물품"):
		return "물품"
	}
	return ""
}

func stripHTML(text string) string {
	var result strings.Builder
	inTag := false
	for _, r := range text {
		if r == '<' {
			inTag = true
			result.WriteRune(' ')
			continue
		}
		if r == '>' {
			inTag = false
			continue
		}
		if !inTag {
			result.WriteRune(r)
		}
	}

	s := result.String()
	s = strings.NewReplacer(
		"&nbsp;", " ", "&amp;", "&", "&lt;", "<", "&gt;", ">", "&quot;", `"`, "&#39;", "'",
	).Replace(s)

	return strings.Join(strings.Fields(s), " ")
}

func extractSourceName(feedURL string) string {
	u, err := url.Parse(feedURL)
	if err != nil || u.Hostname() == "" {
		return feedURL
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}

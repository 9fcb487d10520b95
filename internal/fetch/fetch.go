// Package fetch fills missing bid notice descriptions from their public
// detail pages.
package fetch

import (
	"bytes"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"

	"github.com/TobiSchelling/g2bdash/internal/database"
)

const (
	minDescriptionLen = 100
	maxBodyBytes      = 5 << 20
)

// Result holds the results of a description fetch run.
type Result struct {
	Fetched int
	Failed  int
	Skipped int
}

// DescriptionFetcher fetches notice detail pages and extracts their text
// with readability.
type DescriptionFetcher struct {
	db     *database.DB
	client *http.Client
}

// NewDescriptionFetcher creates a new description fetcher.
func NewDescriptionFetcher(db *database.DB, timeout time.Duration) *DescriptionFetcher {
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &DescriptionFetcher{
		db: db,
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
	}
}

// FetchMissing fetches descriptions for up to limit notices that have a
// detail URL and no description; limit <= 0 means all. After an HTTP
// error from a host, its remaining notices are skipped for this run.
func (f *DescriptionFetcher) FetchMissing(limit int) *Result {
	targets, err := f.db.BiddingsNeedingDescription(limit)
	if err != nil {
		log.Printf("Error getting notices needing descriptions: %v", err)
		return &Result{}
	}

	if len(targets) == 0 {
		log.Println("No notices need descriptions")
		return &Result{}
	}

	result := &Result{}
	failedHosts := make(map[string]struct{})

	for _, t := range targets {
		host := ""
		if u, err := url.Parse(t.URL); err == nil {
			host = strings.ToLower(u.Host)
		}

		if _, failed := failedHosts[host]; failed {
			result.Skipped++
			continue
		}

		text, httpErr := f.fetchDescription(t.URL)
		if httpErr != nil {
			f.db.MarkDescriptionAttempted(t.ID)
			result.Failed++
			if host != "" {
				failedHosts[host] = struct{}{}
			}
			log.Printf("HTTP error %v for %s, skipping remaining from %s", httpErr, t.NoticeNumber, host)
			continue
		}

		if text == "" {
			f.db.MarkDescriptionAttempted(t.ID)
			result.Failed++
			log.Printf("No extractable description for %s", t.NoticeNumber)
			continue
		}

		if err := f.db.UpdateBiddingDescription(t.ID, text); err != nil {
			log.Printf("Failed to store description for %s: %v", t.NoticeNumber, err)
			result.Failed++
			continue
		}
		result.Fetched++
		log.Printf("Fetched description for %s", t.NoticeNumber)
	}

	log.Printf("Description fetch complete: %d fetched, %d failed, %d skipped",
		result.Fetched, result.Failed, result.Skipped)
	return result
}

// fetchDescription returns the extracted text, or an *httpError for a 4xx
// or 5xx response. Connection and parse failures yield "" with no error.
func (f *DescriptionFetcher) fetchDescription(pageURL string) (string, error) {
	req, err := http.NewRequest(http.MethodGet, pageURL, nil)
	if err != nil {
		return "", nil
	}
	req.Header.Set("User-Agent", "g2bdash/1.0 (procurement dashboard)")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", nil
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", &httpError{code: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", nil
	}

	parsedURL, _ := url.Parse(pageURL)
	article, err := readability.FromReader(bytes.NewReader(body), parsedURL)
	if err != nil {
		return "", nil
	}

	text := strings.TrimSpace(article.TextContent)
	if len([]rune(text)) >= minDescriptionLen {
		return text, nil
	}
	return "", nil
}

type httpError struct {
	code int
}

func (e *httpError) Error() string {
	return http.StatusText(e.code)
}

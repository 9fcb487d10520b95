package collect

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/TobiSchelling/g2bdash/internal/procurement"
)

const (
	defaultOpenAPIBaseURL = "https://apis.data.go.kr/1230000"
	openAPIRows           = 100
	maxOpenAPIPages       = 50
)

// noticeEndpoints lists the bid notice and opening result operations per
// notice type.
var noticeEndpoints = []struct {
	noticeType string
	bids       string
	openings   string
}{
	{"공사", "ad/BidPublicInfoService/getBidPblancListInfoCnstwk", "as/ScsbidInfoService/getOpengResultListInfoCnstwk"},
	{"용역", "ad/BidPublicInfoService/getBidPblancListInfoServc", "as/ScsbidInfoService/getOpengResultListInfoServc"},
	{"물품", "ad/BidPublicInfoService/getBidPblancListInfoThng", "as/ScsbidInfoService/getOpengResultListInfoThng"},
}

const orderPlanEndpoint = "ao/OrderPlanSttusService/getOrderPlanSttusListThng"

// OpenAPIClient reads bid notices, opening results and order plans from
// the public data portal's procurement API.
type OpenAPIClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewOpenAPIClient creates a client whose service key is read from the
// environment variable apiKeyEnv.
func NewOpenAPIClient(baseURL, apiKeyEnv string) *OpenAPIClient {
	if baseURL == "" {
		baseURL = defaultOpenAPIBaseURL
	}
	return &OpenAPIClient{
		apiKey:  os.Getenv(apiKeyEnv),
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// IsConfigured returns whether the service key is available.
func (c *OpenAPIClient) IsConfigured() bool {
	return c.apiKey != ""
}

// BidNotices returns the notices of every type published between from and to.
func (c *OpenAPIClient) BidNotices(from, to time.Time) []procurement.BidNotice {
	params := url.Values{
		"inqryDiv":   {"1"},
		"inqryBgnDt": {from.Format("20060102") + "0000"},
		"inqryEndDt": {to.Format("20060102") + "2359"},
	}
	var notices []procurement.BidNotice
	for _, ep := range noticeEndpoints {
		items := c.fetchAll(ep.bids, params)
		for _, raw := range items {
			var it bidItem
			if err := json.Unmarshal(raw, &it); err != nil {
				log.Printf("Skipping malformed %s notice: %v", ep.noticeType, err)
				continue
			}
			if n := it.notice(ep.noticeType); n != nil {
				notices = append(notices, *n)
			}
		}
		log.Printf("Fetched %d %s notices from open API", len(items), ep.noticeType)
	}
	return notices
}

// Awards returns the opening results of every type between from and to.
func (c *OpenAPIClient) Awards(from, to time.Time) []procurement.Award {
	params := url.Values{
		"inqryDiv":   {"1"},
		"inqryBgnDt": {from.Format("20060102") + "0000"},
		"inqryEndDt": {to.Format("20060102") + "2359"},
	}
	var awards []procurement.Award
	for _, ep := range noticeEndpoints {
		items := c.fetchAll(ep.openings, params)
		for _, raw := range items {
			var it openingItem
			if err := json.Unmarshal(raw, &it); err != nil {
				log.Printf("Skipping malformed %s opening result: %v", ep.noticeType, err)
				continue
			}
			if a := it.award(ep.noticeType); a != nil {
				awards = append(awards, *a)
			}
		}
		log.Printf("Fetched %d %s opening results from open API", len(items), ep.noticeType)
	}
	return awards
}

// OrderPlans returns the order plans for the months from..to.
func (c *OpenAPIClient) OrderPlans(from, to time.Time) []procurement.OrderPlan {
	params := url.Values{
		"inqryDiv":   {"1"},
		"orderBgnYm": {from.Format("200601")},
		"orderEndYm": {to.Format("200601")},
	}
	items := c.fetchAll(orderPlanEndpoint, params)
	var plans []procurement.OrderPlan
	for _, raw := range items {
		var it planItem
		if err := json.Unmarshal(raw, &it); err != nil {
			log.Printf("Skipping malformed order plan: %v", err)
			continue
		}
		if p := it.plan(); p != nil {
			plans = append(plans, *p)
		}
	}
	log.Printf("Fetched %d order plans from open API", len(plans))
	return plans
}

// fetchAll pages through one operation until totalCount items are read.
// Errors end the paging and are logged; what was read so far is returned.
func (c *OpenAPIClient) fetchAll(operation string, params url.Values) []json.RawMessage {
	if c.apiKey == "" {
		log.Println("Open API not configured, skipping fetch")
		return nil
	}

	var all []json.RawMessage
	for page := 1; page <= maxOpenAPIPages; page++ {
		items, total, err := c.fetchPage(operation, params, page)
		if err != nil {
			log.Printf("Open API %s page %d: %v", operation, page, err)
			break
		}
		all = append(all, items...)
		if len(items) == 0 || len(all) >= total {
			break
		}
	}
	return all
}

func (c *OpenAPIClient) fetchPage(operation string, params url.Values, page int) ([]json.RawMessage, int, error) {
	q := url.Values{}
	for k, v := range params {
		q[k] = v
	}
	q.Set("pageNo", strconv.Itoa(page))
	q.Set("numOfRows", strconv.Itoa(openAPIRows))
	q.Set("type", "json")
	q.Set("serviceKey", c.apiKey)

	resp, err := c.client.Get(c.baseURL + "/" + operation + "?" + q.Encode())
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, 0, fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	var result struct {
		Response struct {
			Header struct {
				ResultCode string `json:"resultCode"`
				ResultMsg  string `json:"resultMsg"`
			} `json:"header"`
			Body struct {
				Items      json.RawMessage `json:"items"`
				TotalCount int             `json:"totalCount"`
			} `json:"body"`
		} `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, 0, fmt.Errorf("decode: %w", err)
	}
	if code := result.Response.Header.ResultCode; code != "" && code != "00" {
		return nil, 0, fmt.Errorf("API error %s: %s", code, result.Response.Header.ResultMsg)
	}

	items, err := decodeItems(result.Response.Body.Items)
	if err != nil {
		return nil, 0, err
	}
	return items, result.Response.Body.TotalCount, nil
}

// decodeItems accepts both shapes the portal emits for body.items: a bare
// array, or an object wrapping "item" as an array or single object.
func decodeItems(raw json.RawMessage) ([]json.RawMessage, error) {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" || s == `""` {
		return nil, nil
	}
	var list []json.RawMessage
	if strings.HasPrefix(s, "[") {
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, fmt.Errorf("decode items: %w", err)
		}
		return list, nil
	}
	var wrapped struct {
		Item json.RawMessage `json:"item"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, fmt.Errorf("decode items: %w", err)
	}
	inner := strings.TrimSpace(string(wrapped.Item))
	switch {
	case inner == "" || inner == "null":
		return nil, nil
	case strings.HasPrefix(inner, "["):
		if err := json.Unmarshal(wrapped.Item, &list); err != nil {
			return nil, fmt.Errorf("decode items: %w", err)
		}
		return list, nil
	}
	return []json.RawMessage{wrapped.Item}, nil
}

type bidItem struct {
	BidNtceNo     string `json:"bidNtceNo"`
	BidNtceNm     string `json:"bidNtceNm"`
	NtceInsttNm   string `json:"ntceInsttNm"`
	DminsttNm     string `json:"dminsttNm"`
	CntrctMthdNm  string `json:"cntrctCnclsMthdNm"`
	BidMethdNm    string `json:"bidMethdNm"`
	BdgtAmt       string `json:"bdgtAmt"`
	AsignBdgtAmt  string `json:"asignBdgtAmt"`
	PresmptPrce   string `json:"presmptPrce"`
	BidNtceDt     string `json:"bidNtceDt"`
	BidClseDt     string `json:"bidClseDt"`
	BidNtceDtlURL string `json:"bidNtceDtlUrl"`
	BidNtceURL    string `json:"bidNtceUrl"`
}

func (it bidItem) notice(noticeType string) *procurement.BidNotice {
	if it.BidNtceNo == "" || strings.TrimSpace(it.BidNtceNm) == "" {
		return nil
	}
	budget := it.BdgtAmt
	if noticeType == "물품" {
		budget = it.AsignBdgtAmt
	}
	n := &procurement.BidNotice{
		NoticeNumber:    it.BidNtceNo,
		Title:           strings.TrimSpace(it.BidNtceNm),
		NoticeType:      noticeType,
		OrderingAgency:  it.NtceInsttNm,
		DemandingAgency: it.DminsttNm,
		ContractMethod:  it.CntrctMthdNm,
		BiddingMethod:   it.BidMethdNm,
		BudgetAmount:    parseAmount(budget),
		EstimatedPrice:  parseAmount(it.PresmptPrce),
		NoticeDate:      parseAPITime(it.BidNtceDt),
		BidCloseDate:    parseAPITime(it.BidClseDt),
		BiddingURL:      it.BidNtceDtlURL,
	}
	if n.BiddingURL == "" {
		n.BiddingURL = it.BidNtceURL
	}
	return n
}

type openingItem struct {
	BidNtceNo     string `json:"bidNtceNo"`
	BidNtceNm     string `json:"bidNtceNm"`
	OpengDt       string `json:"opengDt"`
	PrtcptCnum    string `json:"prtcptCnum"`
	OpengCorpInfo string `json:"opengCorpInfo"`
	NtceInsttCd   string `json:"ntceInsttCd"`
	NtceInsttNm   string `json:"ntceInsttNm"`
	DminsttCd     string `json:"dminsttCd"`
}

func (it openingItem) award(noticeType string) *procurement.Award {
	if it.BidNtceNo == "" {
		return nil
	}
	a := &procurement.Award{
		BidNoticeNumber:  it.BidNtceNo,
		BidNoticeName:    strings.TrimSpace(it.BidNtceNm),
		NoticeType:       noticeType,
		OpeningDate:      parseAPITime(it.OpengDt),
		OrderingAgency:   it.NtceInsttNm,
		OrderingAgencyCd: it.NtceInsttCd,
		DemandAgencyCd:   it.DminsttCd,
	}
	if n, err := strconv.Atoi(strings.TrimSpace(it.PrtcptCnum)); err == nil {
		a.Participants = &n
	}
	parseOpeningCorpInfo(it.OpengCorpInfo, a)
	return a
}

// parseOpeningCorpInfo fills the winner from the "^"-separated
// company^business number^CEO^amount^rate field of an opening result.
func parseOpeningCorpInfo(info string, a *procurement.Award) {
	parts := strings.Split(info, "^")
	if len(parts) < 5 {
		return
	}
	a.CompanyName = strings.TrimSpace(parts[0])
	a.BusinessNumber = strings.TrimSpace(parts[1])
	a.CEOName = strings.TrimSpace(parts[2])
	a.AwardAmount = parseAmount(parts[3])
	if r, err := strconv.ParseFloat(strings.TrimSpace(parts[4]), 64); err == nil && r >= 0 && r <= 1000 {
		a.AwardRate = &r
	}
}

type planItem struct {
	OrderPlanUntyNo string `json:"orderPlanUntyNo"`
	BizNm           string `json:"bizNm"`
	OrderInsttNm    string `json:"orderInsttNm"`
	DeptNm          string `json:"deptNm"`
	PrcrmntMethd    string `json:"prcrmntMethd"`
	CntrctMthdNm    string `json:"cntrctMthdNm"`
	SumOrderAmt     string `json:"sumOrderAmt"`
	OrderYear       string `json:"orderYear"`
	OrderMnth       string `json:"orderMnth"`
	NticeDt         string `json:"nticeDt"`
}

func (it planItem) plan() *procurement.OrderPlan {
	if it.OrderPlanUntyNo == "" {
		return nil
	}
	return &procurement.OrderPlan{
		PlanNumber:        it.OrderPlanUntyNo,
		BusinessName:      strings.TrimSpace(it.BizNm),
		Institution:       it.OrderInsttNm,
		Department:        it.DeptNm,
		ProcurementMethod: it.PrcrmntMethd,
		ContractMethod:    it.CntrctMthdNm,
		TotalAmount:       parseAmount(it.SumOrderAmt),
		OrderYear:         it.OrderYear,
		OrderMonth:        it.OrderMnth,
		NoticeDate:        parseAPITime(it.NticeDt),
	}
}

// parseAmount parses a won amount that may carry commas or a fraction
// ("123456789.0"). Empty and unparseable values yield nil.
func parseAmount(s string) *int64 {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	n := int64(f)
	return &n
}

// parseAPITime accepts "2006-01-02 15:04:05", "200601021504" and the
// other layouts procurement.ParseTimestamp knows.
func parseAPITime(s string) *procurement.Timestamp {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if len(s) == 12 {
		if t, err := time.ParseInLocation("200601021504", s, time.Local); err == nil {
			return &procurement.Timestamp{Time: t}
		}
	}
	ts, err := procurement.ParseTimestamp(s)
	if err != nil {
		return nil
	}
	return &ts
}

package procurement

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

var timestampLayouts = []string{
	"2006-01-02T15:04:05",
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"20060102150405",
	"2006-01-02",
}

// Timestamp is a nullable backend timestamp. The backend emits naive
// local times ("2025-01-23T10:30:00"); RFC3339 and plain dates also parse.
type Timestamp struct {
	time.Time
}

// ParseTimestamp parses any layout the backend is known to emit.
func ParseTimestamp(s string) (Timestamp, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return Timestamp{t}, nil
		}
	}
	return Timestamp{}, fmt.Errorf("unrecognized timestamp %q", s)
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	if s == "" {
		return nil
	}
	parsed, err := ParseTimestamp(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Format("2006-01-02T15:04:05"))
}

// Ptr returns the underlying time, or nil for a nil or zero Timestamp.
func (t *Timestamp) Ptr() *time.Time {
	if t == nil || t.IsZero() {
		return nil
	}
	tt := t.Time
	return &tt
}

// BidNotice is a published bid solicitation (입찰공고).
type BidNotice struct {
	ID               int64      `json:"id,omitempty"`
	NoticeNumber     string     `json:"notice_number"`
	Title            string     `json:"title"`
	NoticeType       string     `json:"notice_type,omitempty"`
	OrderingAgency   string     `json:"ordering_agency,omitempty"`
	DemandingAgency  string     `json:"demanding_agency,omitempty"`
	ContractMethod   string     `json:"contract_method,omitempty"`
	BiddingMethod    string     `json:"bidding_method,omitempty"`
	BudgetAmount     *int64     `json:"budget_amount"`
	EstimatedPrice   *int64     `json:"estimated_price"`
	NoticeDate       *Timestamp `json:"notice_date"`
	BidCloseDate     *Timestamp `json:"bid_close_date"`
	Description      string     `json:"description,omitempty"`
	BiddingURL       string     `json:"bidding_url,omitempty"`
	AICategory       string     `json:"ai_category,omitempty"`
	AITags           string     `json:"ai_tags,omitempty"`
	CompetitionLevel string     `json:"competition_level,omitempty"`
}

// Tags decodes AITags, which the backend stores as a JSON array string.
func (b BidNotice) Tags() []string {
	if strings.TrimSpace(b.AITags) == "" {
		return nil
	}
	var tags []string
	if err := json.Unmarshal([]byte(b.AITags), &tags); err != nil {
		return nil
	}
	return tags
}

// Amount is the budget, falling back to the estimated price when the
// notice carries no budget.
func (b BidNotice) Amount() *int64 {
	if b.BudgetAmount != nil {
		return b.BudgetAmount
	}
	return b.EstimatedPrice
}

func (b BidNotice) validate() error {
	if strings.TrimSpace(b.NoticeNumber) == "" {
		return fieldError("notice_number")
	}
	if strings.TrimSpace(b.Title) == "" {
		return fieldError("title")
	}
	return nil
}

// Award is the opening result of a bid notice (낙찰정보).
type Award struct {
	ID               int64      `json:"id,omitempty"`
	BidNoticeNumber  string     `json:"bid_ntce_no"`
	BidNoticeName    string     `json:"bid_ntce_nm,omitempty"`
	NoticeType       string     `json:"notice_type,omitempty"`
	CompanyName      string     `json:"award_company_name,omitempty"`
	BusinessNumber   string     `json:"award_business_no,omitempty"`
	CEOName          string     `json:"award_ceo_name,omitempty"`
	AwardAmount      *int64     `json:"award_amount"`
	AwardRate        *float64   `json:"award_rate"`
	OpeningDate      *Timestamp `json:"opening_date"`
	OrderingAgency   string     `json:"ntce_instt_nm,omitempty"`
	OrderingAgencyCd string     `json:"ntce_instt_cd,omitempty"`
	DemandAgencyCd   string     `json:"dminstt_cd,omitempty"`
	Participants     *int       `json:"prtcpt_cnum"`
}

func (a Award) validate() error {
	if strings.TrimSpace(a.BidNoticeNumber) == "" {
		return fieldError("bid_ntce_no")
	}
	if a.AwardRate != nil && (*a.AwardRate < 0 || *a.AwardRate > 1000) {
		return fmt.Errorf("award_rate %.2f out of range", *a.AwardRate)
	}
	return nil
}

// OrderPlan is an agency's planned procurement (발주계획).
type OrderPlan struct {
	ID                int64      `json:"id,omitempty"`
	PlanNumber        string     `json:"order_plan_unty_no"`
	BusinessName      string     `json:"biz_nm,omitempty"`
	Institution       string     `json:"order_instt_nm,omitempty"`
	Department        string     `json:"dept_nm,omitempty"`
	ProcurementMethod string     `json:"prcrmnt_methd,omitempty"`
	ContractMethod    string     `json:"cntrct_mthd_nm,omitempty"`
	TotalAmount       *int64     `json:"sum_order_amt"`
	OrderYear         string     `json:"order_year,omitempty"`
	OrderMonth        string     `json:"order_mnth,omitempty"`
	NoticeDate        *Timestamp `json:"ntice_dt"`
}

func (o OrderPlan) validate() error {
	if strings.TrimSpace(o.PlanNumber) == "" {
		return fieldError("order_plan_unty_no")
	}
	return nil
}

// Summary is the overall count and budget rollup.
type Summary struct {
	TotalBiddings    int        `json:"total_biddings"`
	TotalAwards      int        `json:"total_awards"`
	TotalOrderPlans  int        `json:"total_order_plans"`
	TotalBudget      int64      `json:"total_budget"`
	TotalAwardAmount int64      `json:"total_award_amount"`
	BiddingByType    []TypeStat `json:"bidding_by_type"`
}

// DailyStat is the notice count for one calendar day.
type DailyStat struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// TypeStat groups notices by notice type.
type TypeStat struct {
	Type        string `json:"type"`
	Count       int    `json:"count"`
	TotalBudget int64  `json:"total_budget,omitempty"`
	AvgBudget   int64  `json:"avg_budget,omitempty"`
}

// AgencyStat ranks an ordering agency by notice volume.
type AgencyStat struct {
	Agency      string `json:"agency"`
	Count       int    `json:"count"`
	TotalBudget int64  `json:"total_budget"`
}

// CompanyStat ranks an awarded company by award count.
type CompanyStat struct {
	Company     string   `json:"company"`
	Count       int      `json:"count"`
	TotalAmount int64    `json:"total_amount"`
	AvgRate     *float64 `json:"avg_rate"`
}

type fieldError string

func (f fieldError) Error() string {
	return "missing required field " + string(f)
}

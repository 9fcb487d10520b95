package main

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/TobiSchelling/g2bdash/internal/format"
	"github.com/TobiSchelling/g2bdash/internal/procurement"
	"github.com/TobiSchelling/g2bdash/internal/similar"
	"github.com/TobiSchelling/g2bdash/internal/view"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

// --- list command ---

var (
	listPage     int
	listPageSize int
	listType     string
	listSearch   string
	listFrom     string
	listTo       string
	listMin      string
	listMax      string
	listCategory string
)

var listCmd = &cobra.Command{
	Use:   "list <bid-notices|awards|order-plans>",
	Short: "Show one page of a listing",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := procurement.ParseKind(args[0])
		if err != nil {
			return err
		}
		filters, err := listFilters()
		if err != nil {
			return err
		}
		size := listPageSize
		if size <= 0 {
			size = cfg.API.PageSize
		}
		page := procurement.Page{Number: listPage, Size: size}
		if err := page.Validate(); err != nil {
			return err
		}

		state := view.Fetch(cmd.Context(), newClient(), kind, filters, page)
		switch state.Status() {
		case view.Failed:
			return fmt.Errorf("loading %s: %w", kind.Label(), state.Err)
		case view.Empty:
			fmt.Printf("%s: (no data)\n", kind.Label())
			return nil
		}

		printList(state.Result)
		fmt.Printf("page %d/%d (total %s)\n", page.Number, state.PageCount(), format.FormatCount(state.Total()))
		return nil
	},
}

func init() {
	f := listCmd.Flags()
	f.IntVar(&listPage, "page", 1, "Page number")
	f.IntVar(&listPageSize, "page-size", 0, "Rows per page (default from config)")
	f.StringVar(&listType, "type", "", "Notice type (공사, 용역, 물품)")
	f.StringVar(&listSearch, "search", "", "Title search text")
	f.StringVar(&listFrom, "from", "", "Start date (YYYY-MM-DD)")
	f.StringVar(&listTo, "to", "", "End date (YYYY-MM-DD)")
	f.StringVar(&listMin, "min-budget", "", "Minimum budget in won")
	f.StringVar(&listMax, "max-budget", "", "Maximum budget in won")
	f.StringVar(&listCategory, "category", "", "Classified category")
}

// listFilters maps the flags onto the query keys the dashboard uses, so
// both surfaces share one parser.
func listFilters() (procurement.Filters, error) {
	v := url.Values{}
	set := func(key, val string) {
		if val = strings.TrimSpace(val); val != "" {
			v.Set(key, val)
		}
	}
	set("start_date", listFrom)
	set("end_date", listTo)
	set("notice_type", listType)
	set("search", listSearch)
	set("min_budget", listMin)
	set("max_budget", listMax)
	set("ai_category", listCategory)
	return procurement.FiltersFromValues(v)
}

func printList(r *procurement.ListResult) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle(r.Kind.Label())

	switch r.Kind {
	case procurement.BidNotices:
		t.AppendHeader(table.Row{"공고번호", "공고명", "구분", "공고기관", "예산", "공고일", "마감일"})
		for _, b := range r.BidNotices {
			t.AppendRow(table.Row{
				b.NoticeNumber, b.Title, dash(b.NoticeType), dash(b.OrderingAgency),
				format.FormatAmount(b.Amount()), format.FormatDate(b.NoticeDate.Ptr()), format.FormatDateTime(b.BidCloseDate.Ptr()),
			})
		}
	case procurement.Awards:
		t.AppendHeader(table.Row{"공고번호", "공고명", "낙찰업체", "낙찰금액", "낙찰률", "참가", "개찰일"})
		for _, a := range r.Awards {
			participants := "-"
			if a.Participants != nil {
				participants = strconv.Itoa(*a.Participants)
			}
			t.AppendRow(table.Row{
				a.BidNoticeNumber, dash(a.BidNoticeName), dash(a.CompanyName),
				format.FormatAmount(a.AwardAmount), format.FormatRate(a.AwardRate), participants, format.FormatDate(a.OpeningDate.Ptr()),
			})
		}
	case procurement.OrderPlans:
		t.AppendHeader(table.Row{"발주계획번호", "사업명", "발주기관", "조달방식", "발주금액", "발주시기"})
		for _, o := range r.OrderPlans {
			when := "-"
			if o.OrderYear != "" {
				when = o.OrderYear + "-" + o.OrderMonth
			}
			t.AppendRow(table.Row{
				o.PlanNumber, dash(o.BusinessName), dash(o.Institution),
				dash(o.ProcurementMethod), format.FormatAmount(o.TotalAmount), when,
			})
		}
	}
	t.Render()
}

// --- show command ---

var showCmd = &cobra.Command{
	Use:   "show <notice-number>",
	Short: "Show one bid notice",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), cfg.API.Timeout())
		defer cancel()

		b, err := newClient().FetchBidNotice(ctx, args[0])
		if procurement.IsNotFound(err) {
			return fmt.Errorf("bid notice %s not found", args[0])
		}
		if err != nil {
			return err
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.SetTitle(b.Title)
		t.AppendRows([]table.Row{
			{"공고번호", b.NoticeNumber},
			{"구분", dash(b.NoticeType)},
			{"공고기관", dash(b.OrderingAgency)},
			{"수요기관", dash(b.DemandingAgency)},
			{"계약방법", dash(b.ContractMethod)},
			{"입찰방식", dash(b.BiddingMethod)},
			{"예산", format.FormatAmount(b.BudgetAmount)},
			{"추정가격", format.FormatAmount(b.EstimatedPrice)},
			{"공고일", format.FormatDateTime(b.NoticeDate.Ptr())},
			{"마감일", format.FormatDateTime(b.BidCloseDate.Ptr())},
			{"분류", dash(b.AICategory)},
			{"태그", dash(strings.Join(b.Tags(), ", "))},
			{"경쟁도", dash(b.CompetitionLevel)},
			{"URL", dash(b.BiddingURL)},
		})
		t.Render()
		if b.Description != "" {
			fmt.Println()
			fmt.Println(b.Description)
		}
		return nil
	},
}

// --- stats command ---

var (
	statsDays  int
	statsLimit int
)

var statsCmd = &cobra.Command{
	Use:   "stats [summary|daily|by-type|top-agencies|top-companies]",
	Short: "Show aggregate statistics",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := "summary"
		if len(args) == 1 {
			name = args[0]
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), cfg.API.Timeout())
		defer cancel()
		client := newClient()

		if name == "summary" {
			s, err := client.FetchSummary(ctx)
			if err != nil {
				return err
			}
			t := newTable("항목", "값")
			t.AppendRows([]table.Row{
				{"입찰공고", format.FormatCount(s.TotalBiddings)},
				{"낙찰정보", format.FormatCount(s.TotalAwards)},
				{"발주계획", format.FormatCount(s.TotalOrderPlans)},
				{"총 예산", format.FormatWon(s.TotalBudget)},
				{"총 낙찰금액", format.FormatWon(s.TotalAwardAmount)},
			})
			t.Render()
			return nil
		}

		agg, err := procurement.ParseAggregate(name)
		if err != nil {
			return err
		}
		n := statsLimit
		if agg == procurement.AggregateDaily {
			n = statsDays
		}
		a, err := client.FetchAggregate(ctx, agg, n)
		if err != nil {
			return err
		}
		if a.Len() == 0 {
			fmt.Printf("%s: (no data)\n", agg)
			return nil
		}

		var t table.Writer
		switch agg {
		case procurement.AggregateDaily:
			t = newTable("날짜", "공고 수")
			for _, d := range a.Daily {
				t.AppendRow(table.Row{d.Date, format.FormatCount(d.Count)})
			}
		case procurement.AggregateByType:
			t = newTable("구분", "공고 수", "총 예산", "평균 예산")
			for _, s := range a.ByType {
				t.AppendRow(table.Row{dash(s.Type), format.FormatCount(s.Count), format.FormatWon(s.TotalBudget), format.FormatWon(s.AvgBudget)})
			}
		case procurement.AggregateTopAgencies:
			t = newTable("순위", "기관", "공고 수", "총 예산")
			for i, s := range a.TopAgencies {
				t.AppendRow(table.Row{i + 1, s.Agency, format.FormatCount(s.Count), format.FormatWon(s.TotalBudget)})
			}
		case procurement.AggregateTopCompanies:
			t = newTable("순위", "업체", "낙찰 수", "총 낙찰금액", "평균 낙찰률")
			for i, s := range a.TopCompanies {
				t.AppendRow(table.Row{i + 1, s.Company, format.FormatCount(s.Count), format.FormatWon(s.TotalAmount), format.FormatRate(s.AvgRate)})
			}
		}
		t.Render()
		return nil
	},
}

func init() {
	statsCmd.Flags().IntVar(&statsDays, "days", 30, "Day window for daily counts")
	statsCmd.Flags().IntVar(&statsLimit, "limit", 10, "Number of rows for top-agencies and top-companies")
}

// --- similar command ---

var similarLimit int

var similarCmd = &cobra.Command{
	Use:   "similar <id>",
	Short: "List stored notices resembling a classified notice",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid id %q", args[0])
		}
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		target, matches, err := similar.NewFinder(db).Similar(id, similarLimit)
		if err != nil {
			return err
		}
		if target == nil {
			return fmt.Errorf("notice %d not found", id)
		}
		fmt.Printf("%s [%s]\n", target.Title, dash(target.AICategory))
		if len(matches) == 0 {
			fmt.Println("(no data)")
			return nil
		}

		t := newTable("ID", "공고번호", "공고명", "예산")
		for _, b := range matches {
			t.AppendRow(table.Row{b.ID, b.NoticeNumber, b.Title, format.FormatAmount(b.Amount())})
		}
		t.Render()
		return nil
	},
}

func init() {
	similarCmd.Flags().IntVar(&similarLimit, "limit", similar.DefaultLimit, "Number of similar notices")
}

func newTable(header ...any) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row(header))
	return t
}

func dash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

package reports

import (
	"encoding/csv"
	"io"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// moneyPrinter adds locale-aware thousands separators to exported figures.
var moneyPrinter = message.NewPrinter(language.English)

// WriteUserSummaryCSV serialises user summaries for spreadsheet use.
func WriteUserSummaryCSV(w io.Writer, users []UserSummary, from, to string) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write([]string{"Username", "Total Hours", "Billable Hours", "Billable %", "Days Worked", "Entries"}); err != nil {
		return err
	}
	for _, u := range users {
		if err := writer.Write([]string{
			u.Username,
			u.TotalHours.StringFixed(2),
			u.BillableHours.StringFixed(2),
			moneyPrinter.Sprintf("%.1f", u.BillablePct),
			moneyPrinter.Sprintf("%d", u.DaysWorked),
			moneyPrinter.Sprintf("%d", u.EntryCount),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteExpenseSpendCSV serialises approved expense spend per client.
func WriteExpenseSpendCSV(w io.Writer, totals []ExpenseClientTotal, from, to string) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write([]string{"Client", "Currency", "Total"}); err != nil {
		return err
	}
	for _, t := range totals {
		f, _ := t.Total.Float64()
		if err := writer.Write([]string{
			t.Client,
			t.Currency,
			moneyPrinter.Sprintf("%.2f", f),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteStaleProjectsCSV serialises the stale project list.
func WriteStaleProjectsCSV(w io.Writer, projects []StaleProject) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write([]string{"Client", "Project", "Last Activity", "Idle Days"}); err != nil {
		return err
	}
	for _, p := range projects {
		if err := writer.Write([]string{
			p.Client,
			p.Project,
			p.LastActivity.Format("2006-01-02"),
			moneyPrinter.Sprintf("%d", p.IdleDays),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

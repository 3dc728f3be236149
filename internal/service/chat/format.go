package chat

import (
	"fmt"
	"strings"

	"github.com/cmlabs-hris/attendance-bot/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-bot/internal/pkg/utils"
)

// FormatDayReport renders the daily table as MarkdownV2. Table rows are code
// spans so only the title needs escaping.
func FormatDayReport(report attendance.DayReport, target string) string {
	date := utils.EscapeMarkdown(report.Date)
	if len(report.Rows) == 0 {
		if target != "" {
			return fmt.Sprintf("❌ No attendance records for @%s on %s\\.", utils.EscapeMarkdown(target), date)
		}
		return fmt.Sprintf("❌ No attendance records on %s\\.", date)
	}

	lines := []string{
		fmt.Sprintf("📅 *%s attendance*", date),
		"`Member           | In       | Out     `",
		"`-----------------+----------+---------`",
	}
	for _, row := range report.Rows {
		lines = append(lines, fmt.Sprintf("`@%-15s | %-8s | %-8s`", row.Handle, row.ClockIn, row.ClockOut))
	}
	return strings.Join(lines, "\n")
}

// FormatMonthReport renders the month report as MarkdownV2.
func FormatMonthReport(report attendance.MonthReport, target string) string {
	month := utils.EscapeMarkdown(report.Month)
	if len(report.Members) == 0 {
		if target != "" {
			return fmt.Sprintf("❌ No attendance records for `@%s` in %s\\.", utils.EscapeMarkdown(target), month)
		}
		return fmt.Sprintf("❌ No attendance records in %s\\.", month)
	}

	title := fmt.Sprintf("📅 *%s monthly attendance*", month)
	if target != "" {
		title += fmt.Sprintf(" for `@%s`", utils.EscapeMarkdown(target))
	}
	lines := []string{title}

	for _, m := range report.Members {
		lines = append(lines, utils.EscapeMarkdown(fmt.Sprintf("\n── @%s (%s) ──", m.Handle, m.Name)))
		for _, d := range m.Days {
			lines = append(lines, fmt.Sprintf("%s: in %s, out %s",
				utils.EscapeMarkdown(d.Day), utils.EscapeMarkdown(d.ClockIn), utils.EscapeMarkdown(d.ClockOut)))
		}
	}
	return strings.Join(lines, "\n")
}

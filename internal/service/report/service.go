package report

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/cmlabs-hris/attendance-bot/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-bot/internal/domain/member"
	"github.com/cmlabs-hris/attendance-bot/internal/pkg/validator"
)

// NoMark fills a report cell without a clock action.
const NoMark = "—"

type ReportServiceImpl struct {
	attendanceRepo attendance.AttendanceRepository
	loc            *time.Location
	now            func() time.Time
}

func NewReportService(attendanceRepo attendance.AttendanceRepository, loc *time.Location) attendance.ReportService {
	if loc == nil {
		loc = time.Local
	}
	return &ReportServiceImpl{
		attendanceRepo: attendanceRepo,
		loc:            loc,
		now:            time.Now,
	}
}

func (s *ReportServiceImpl) clock(r attendance.Record) string {
	return r.Timestamp.In(s.loc).Format("15:04:05")
}

// Today implements attendance.ReportService. An empty handle reports everyone.
func (s *ReportServiceImpl) Today(ctx context.Context, handle string) (attendance.DayReport, error) {
	date := s.now().In(s.loc).Format("2006-01-02")
	handle = member.NormalizeHandle(handle)

	records, err := s.attendanceRepo.ListByDate(ctx, date)
	if err != nil {
		return attendance.DayReport{}, fmt.Errorf("failed to list attendance for %s: %w", date, err)
	}

	rows := make(map[string]*attendance.DayRow)
	for _, r := range records {
		if handle != "" && r.Handle != handle {
			continue
		}
		row, ok := rows[r.Handle]
		if !ok {
			row = &attendance.DayRow{Handle: r.Handle, Name: r.Name, ClockIn: NoMark, ClockOut: NoMark}
			rows[r.Handle] = row
		}
		switch r.Kind {
		case attendance.KindIn:
			row.ClockIn = s.clock(r)
		case attendance.KindOut:
			row.ClockOut = s.clock(r)
		}
	}

	report := attendance.DayReport{Date: date, Rows: make([]attendance.DayRow, 0, len(rows))}
	for _, row := range rows {
		report.Rows = append(report.Rows, *row)
	}
	sort.Slice(report.Rows, func(i, j int) bool { return report.Rows[i].Handle < report.Rows[j].Handle })
	return report, nil
}

// Month implements attendance.ReportService. An empty month is the current one.
func (s *ReportServiceImpl) Month(ctx context.Context, month string, handle string) (attendance.MonthReport, error) {
	if month == "" {
		month = s.now().In(s.loc).Format("2006-01")
	} else if _, ok := validator.IsValidMonth(month); !ok {
		return attendance.MonthReport{}, validator.ValidationErrors{{
			Field:   "month",
			Message: "month must be in YYYY-MM format",
		}}
	}
	handle = member.NormalizeHandle(handle)

	records, err := s.attendanceRepo.ListByMonth(ctx, month)
	if err != nil {
		return attendance.MonthReport{}, fmt.Errorf("failed to list attendance for %s: %w", month, err)
	}

	type memberDays struct {
		name string
		days map[string]*attendance.MonthDay
	}
	members := make(map[string]*memberDays)
	for _, r := range records {
		if handle != "" && r.Handle != handle {
			continue
		}
		md, ok := members[r.Handle]
		if !ok {
			md = &memberDays{name: r.Name, days: make(map[string]*attendance.MonthDay)}
			members[r.Handle] = md
		}
		day := r.Date[len(r.Date)-2:]
		d, ok := md.days[day]
		if !ok {
			d = &attendance.MonthDay{Day: day, ClockIn: NoMark, ClockOut: NoMark}
			md.days[day] = d
		}
		switch r.Kind {
		case attendance.KindIn:
			d.ClockIn = s.clock(r)
		case attendance.KindOut:
			d.ClockOut = s.clock(r)
		}
	}

	report := attendance.MonthReport{Month: month, Members: make([]attendance.MonthMember, 0, len(members))}
	for h, md := range members {
		mm := attendance.MonthMember{Handle: h, Name: md.name, Days: make([]attendance.MonthDay, 0, len(md.days))}
		for _, d := range md.days {
			mm.Days = append(mm.Days, *d)
		}
		sort.Slice(mm.Days, func(i, j int) bool { return mm.Days[i].Day < mm.Days[j].Day })
		report.Members = append(report.Members, mm)
	}
	sort.Slice(report.Members, func(i, j int) bool { return report.Members[i].Handle < report.Members[j].Handle })
	return report, nil
}

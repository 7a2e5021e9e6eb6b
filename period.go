package autocrud

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/goodsign/monday"
)

// PeriodPart is one component of a period label.
type PeriodPart string

const (
	PartYear    PeriodPart = "year"
	PartQuarter PeriodPart = "quarter"
	PartMonth   PeriodPart = "month"
	PartWeek    PeriodPart = "week"
	PartWeekday PeriodPart = "weekday"
	PartDay     PeriodPart = "day"
)

// DefaultPeriodSeparator joins the parts of a period label.
const DefaultPeriodSeparator = "-"

// ParsePeriodParts reads a comma separated list such as "year,month".
func ParsePeriodParts(raw string) ([]PeriodPart, error) {
	var parts []PeriodPart
	for _, s := range strings.Split(raw, ",") {
		s = strings.TrimSpace(strings.ToLower(s))
		if s == "" {
			continue
		}
		switch p := PeriodPart(s); p {
		case PartYear, PartQuarter, PartMonth, PartWeek, PartWeekday, PartDay:
			parts = append(parts, p)
		default:
			return nil, fmt.Errorf("unknown period part %q", s)
		}
	}
	if len(parts) == 0 {
		return nil, fmt.Errorf("period needs at least one part")
	}
	return parts, nil
}

// Period is an expression that buckets a temporal field into a label,
// e.g. "2024-Q1" or "2024-W05".
type Period struct {
	Field     string
	Parts     []PeriodPart
	Separator string
}

// PeriodOf builds a Period over field.
func PeriodOf(field, separator string, parts ...PeriodPart) Period {
	if separator == "" {
		separator = DefaultPeriodSeparator
	}
	return Period{Field: field, Parts: parts, Separator: separator}
}

// DayOfYear reports whether the day part counts from January 1st.
// That is the case when the label has no month.
func DayOfYear(parts []PeriodPart) bool {
	return slices.Contains(parts, PartDay) && !slices.Contains(parts, PartMonth)
}

// PeriodLabel formats t. Weeks are ISO weeks and weekdays start with
// Monday as D1.
func PeriodLabel(t time.Time, separator string, parts ...PeriodPart) string {
	if separator == "" {
		separator = DefaultPeriodSeparator
	}

	labels := make([]string, 0, len(parts))
	for _, p := range parts {
		switch p {
		case PartYear:
			labels = append(labels, fmt.Sprintf("%d", t.Year()))
		case PartQuarter:
			labels = append(labels, fmt.Sprintf("Q%d", quarterOf(t)))
		case PartMonth:
			labels = append(labels, fmt.Sprintf("%02d", int(t.Month())))
		case PartWeek:
			_, week := t.ISOWeek()
			labels = append(labels, fmt.Sprintf("W%02d", week))
		case PartWeekday:
			labels = append(labels, fmt.Sprintf("D%d", isoWeekday(t)))
		case PartDay:
			if DayOfYear(parts) {
				labels = append(labels, fmt.Sprintf("%03d", t.YearDay()))
			} else {
				labels = append(labels, fmt.Sprintf("%02d", t.Day()))
			}
		}
	}
	return strings.Join(labels, separator)
}

// GeneratePeriodList lists every label between start and end inclusive,
// in chronological order and without duplicates.
func GeneratePeriodList(start, end time.Time, separator string, parts ...PeriodPart) []string {
	if start.IsZero() || end.IsZero() || end.Before(start) || len(parts) == 0 {
		return []string{}
	}

	var periods []string
	switch {
	case slices.Equal(parts, []PeriodPart{PartYear}):
		for y := start.Year(); y <= end.Year(); y++ {
			periods = append(periods, PeriodLabel(time.Date(y, 1, 1, 0, 0, 0, 0, start.Location()), separator, parts...))
		}
	case slices.Equal(parts, []PeriodPart{PartYear, PartQuarter}):
		cur := time.Date(start.Year(), time.Month((quarterOf(start)-1)*3+1), 1, 0, 0, 0, 0, start.Location())
		for !cur.After(end) {
			periods = append(periods, PeriodLabel(cur, separator, parts...))
			cur = cur.AddDate(0, 3, 0)
		}
	case slices.Equal(parts, []PeriodPart{PartYear, PartMonth}):
		cur := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, start.Location())
		for !cur.After(end) {
			periods = append(periods, PeriodLabel(cur, separator, parts...))
			cur = cur.AddDate(0, 1, 0)
		}
	default:
		seen := map[string]bool{}
		cur := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, start.Location())
		for !cur.After(end) {
			label := PeriodLabel(cur, separator, parts...)
			if !seen[label] {
				seen[label] = true
				periods = append(periods, label)
			}
			cur = cur.AddDate(0, 0, 1)
		}
	}
	return periods
}

// PeriodTitle renders a human title for the bucket containing t, with
// month and weekday names in locale.
func PeriodTitle(t time.Time, locale monday.Locale, parts ...PeriodPart) string {
	titles := make([]string, 0, len(parts))
	for _, p := range parts {
		switch p {
		case PartYear:
			titles = append(titles, fmt.Sprintf("%d", t.Year()))
		case PartQuarter:
			titles = append(titles, fmt.Sprintf("Q%d", quarterOf(t)))
		case PartMonth:
			titles = append(titles, monday.Format(t, "January", locale))
		case PartWeek:
			_, week := t.ISOWeek()
			titles = append(titles, fmt.Sprintf("W%02d", week))
		case PartWeekday:
			titles = append(titles, monday.Format(t, "Monday", locale))
		case PartDay:
			if DayOfYear(parts) {
				titles = append(titles, fmt.Sprintf("%03d", t.YearDay()))
			} else {
				titles = append(titles, fmt.Sprintf("%d", t.Day()))
			}
		}
	}
	return strings.Join(titles, " ")
}

func quarterOf(t time.Time) int {
	return (int(t.Month())-1)/3 + 1
}

func isoWeekday(t time.Time) int {
	wd := int(t.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

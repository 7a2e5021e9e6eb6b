package autocrud_test

import (
	"reflect"
	"testing"
	"time"

	"github.com/goodsign/monday"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-autocrud"
)

func TestPeriodLabel(t *testing.T) {
	ts := time.Date(2024, time.February, 5, 13, 0, 0, 0, time.UTC) // Monday

	tests := []struct {
		parts []autocrud.PeriodPart
		sep   string
		want  string
	}{
		{[]autocrud.PeriodPart{autocrud.PartYear}, "-", "2024"},
		{[]autocrud.PeriodPart{autocrud.PartYear, autocrud.PartQuarter}, "-", "2024-Q1"},
		{[]autocrud.PeriodPart{autocrud.PartYear, autocrud.PartMonth}, "", "2024-02"},
		{[]autocrud.PeriodPart{autocrud.PartYear, autocrud.PartWeek}, "-", "2024-W06"},
		{[]autocrud.PeriodPart{autocrud.PartYear, autocrud.PartWeek, autocrud.PartWeekday}, "-", "2024-W06-D1"},
		{[]autocrud.PeriodPart{autocrud.PartYear, autocrud.PartMonth, autocrud.PartDay}, "/", "2024/02/05"},
		{[]autocrud.PeriodPart{autocrud.PartYear, autocrud.PartDay}, "-", "2024-036"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, autocrud.PeriodLabel(ts, tt.sep, tt.parts...))
		})
	}

	sunday := time.Date(2024, time.February, 11, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "D7", autocrud.PeriodLabel(sunday, "-", autocrud.PartWeekday))
}

func TestGeneratePeriodList(t *testing.T) {
	start := day("2023-11-20")
	end := day("2024-02-02")

	assert.Equal(t, []string{"2023", "2024"}, autocrud.GeneratePeriodList(start, end, "-", autocrud.PartYear))
	assert.Equal(t, []string{"2023-Q4", "2024-Q1"}, autocrud.GeneratePeriodList(start, end, "-", autocrud.PartYear, autocrud.PartQuarter))
	assert.Equal(t, []string{"2023-11", "2023-12", "2024-01", "2024-02"}, autocrud.GeneratePeriodList(start, end, "-", autocrud.PartYear, autocrud.PartMonth))

	weeks := autocrud.GeneratePeriodList(day("2024-01-01"), day("2024-01-21"), "-", autocrud.PartYear, autocrud.PartWeek)
	assert.Equal(t, []string{"2024-W01", "2024-W02", "2024-W03"}, weeks)

	days := autocrud.GeneratePeriodList(day("2024-02-28"), day("2024-03-01"), "-", autocrud.PartMonth, autocrud.PartDay)
	assert.Equal(t, []string{"02-28", "02-29", "03-01"}, days)

	weekdays := autocrud.GeneratePeriodList(day("2024-01-01"), day("2024-01-31"), "-", autocrud.PartWeekday)
	assert.Len(t, weekdays, 7)

	assert.Empty(t, autocrud.GeneratePeriodList(end, start, "-", autocrud.PartYear))
	assert.Empty(t, autocrud.GeneratePeriodList(time.Time{}, end, "-", autocrud.PartYear))
	assert.Empty(t, autocrud.GeneratePeriodList(start, end, "-"))
}

func TestParsePeriodParts(t *testing.T) {
	parts, err := autocrud.ParsePeriodParts(" Year, quarter ,")
	require.NoError(t, err)
	assert.Equal(t, []autocrud.PeriodPart{autocrud.PartYear, autocrud.PartQuarter}, parts)

	_, err = autocrud.ParsePeriodParts("year,fortnight")
	assert.Error(t, err)

	_, err = autocrud.ParsePeriodParts(" , ")
	assert.Error(t, err)
}

func TestDayOfYear(t *testing.T) {
	assert.True(t, autocrud.DayOfYear([]autocrud.PeriodPart{autocrud.PartYear, autocrud.PartDay}))
	assert.False(t, autocrud.DayOfYear([]autocrud.PeriodPart{autocrud.PartMonth, autocrud.PartDay}))
	assert.False(t, autocrud.DayOfYear([]autocrud.PeriodPart{autocrud.PartYear}))
}

func TestPeriodTitle(t *testing.T) {
	ts := time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, "2024 March", autocrud.PeriodTitle(ts, monday.LocaleEnUS, autocrud.PartYear, autocrud.PartMonth))
	assert.Equal(t, "2024 März", autocrud.PeriodTitle(ts, monday.LocaleDeDE, autocrud.PartYear, autocrud.PartMonth))
}

func TestPeriodExpression(t *testing.T) {
	env := autocrud.Env{Schema: autocrud.MustSchemaFor(reflect.TypeOf(order{}))}
	o := seedOrders()[1]

	assert.Equal(t, "2024-Q1", env.Evaluate(autocrud.PeriodOf("placed", "", autocrud.PartYear, autocrud.PartQuarter), o))
	assert.Nil(t, env.Evaluate(autocrud.PeriodOf("delivered", "-", autocrud.PartYear), o))
	assert.Nil(t, env.Evaluate(autocrud.PeriodOf("code", "-", autocrud.PartYear), o))
}

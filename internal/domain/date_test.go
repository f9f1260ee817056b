package domain

import (
	"encoding/json"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-09-15")
	require.NoError(t, err)
	assert.Equal(t, NewDate(2024, time.September, 15), d)

	d, err = ParseDate("2024-09-15T00:00:00.000Z")
	require.NoError(t, err)
	assert.Equal(t, "2024-09-15", d.String())

	_, err = ParseDate("15/09/2024")
	assert.Error(t, err)
}

func TestDateJSON(t *testing.T) {
	var v struct {
		A Date `json:"a"`
		B Date `json:"b"`
		C Date `json:"c"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a": "2024-01-31", "b": null, "c": ""}`), &v))
	assert.True(t, v.A.Valid())
	assert.False(t, v.B.Valid())
	assert.False(t, v.C.Valid())

	out, err := json.Marshal(v)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a": "2024-01-31", "b": null, "c": null}`, string(out))
}

func TestSortsBefore_AbsentLast(t *testing.T) {
	dates := []Date{{}, NewDate(2024, 3, 1), NewDate(2024, 1, 1), {}}
	sort.SliceStable(dates, func(i, j int) bool { return dates[i].SortsBefore(dates[j]) })
	assert.Equal(t, "2024-01-01", dates[0].String())
	assert.Equal(t, "2024-03-01", dates[1].String())
	assert.False(t, dates[2].Valid())
	assert.False(t, dates[3].Valid())
}

func TestDueUrgency(t *testing.T) {
	today := NewDate(2024, 9, 10)
	tests := []struct {
		name string
		due  Date
		want Urgency
		clr  string
	}{
		{"yesterday", today.AddDays(-1), UrgencyOverdue, "red"},
		{"today", today, UrgencySoon, "yellow"},
		{"tomorrow", today.AddDays(1), UrgencySoon, "yellow"},
		{"three days", today.AddDays(3), UrgencySoon, "yellow"},
		{"four days", today.AddDays(4), UrgencyNormal, "gray"},
		{"absent", Date{}, UrgencyUnknown, "gray"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DueUrgency(tt.due, today)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.clr, got.Color())
		})
	}
}

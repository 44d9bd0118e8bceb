package core

import (
	"testing"

	"github.com/JonMunkholm/tcgen/internal/schema"
	"github.com/stretchr/testify/assert"
)

func filterRows() []schema.StoredRecord {
	return []schema.StoredRecord{
		{ID: 1, Record: schema.Record{StudentName: "Anitha", Course: "B.Sc Physics"}},
		{ID: 2, Record: schema.Record{StudentName: "Bala", FatherName: "Raman"}},
		{ID: 12, Record: schema.Record{StudentName: "Chitra", Reason: "Transfer"}},
	}
}

func ids(rows []schema.StoredRecord) []int64 {
	out := make([]int64, len(rows))
	for i, r := range rows {
		out[i] = r.ID
	}
	return out
}

func TestApplyFilter(t *testing.T) {
	rows := filterRows()

	tests := []struct {
		name  string
		query string
		want  []int64
	}{
		{"empty is identity", "", []int64{1, 2, 12}},
		{"whitespace is identity", "   ", []int64{1, 2, 12}},
		{"case insensitive substring", "PHYSICS", []int64{1}},
		{"matches any column", "raman", []int64{2}},
		{"matches id cell", "^12$", []int64{12}},
		{"regex alternation", "anitha|chitra", []int64{1, 12}},
		{"no match", "zzz", []int64{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := ApplyFilter(tt.query, Filter{})
			assert.Equal(t, tt.want, ids(f.Select(rows)))
		})
	}
}

func TestApplyFilter_InvalidPatternKeepsPrevious(t *testing.T) {
	prev := ApplyFilter("bala", Filter{})

	got := ApplyFilter("([", prev)
	assert.True(t, got.Equal(prev))
	assert.Equal(t, "bala", got.Query())
	assert.Equal(t, []int64{2}, ids(got.Select(filterRows())))
}

func TestFilter_Identity(t *testing.T) {
	var f Filter
	assert.True(t, f.IsIdentity())
	assert.True(t, f.Match(schema.StoredRecord{}))
	assert.False(t, ApplyFilter("x", Filter{}).IsIdentity())
	assert.True(t, ApplyFilter("", ApplyFilter("x", Filter{})).IsIdentity())
}

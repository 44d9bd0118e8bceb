package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromValuesRoundTrip(t *testing.T) {
	vals := make([]string, FieldCount)
	for i := range vals {
		vals[i] = Fields()[i].Key + "-v"
	}
	r := FromValues(vals)
	assert.Equal(t, "studentName-v", r.StudentName)
	assert.Equal(t, "umisNo-v", r.UmisNo)
	assert.Equal(t, vals, r.Values())
}

func TestFromValuesShortRow(t *testing.T) {
	r := FromValues([]string{"Asha", "R1"})
	assert.Equal(t, "Asha", r.StudentName)
	assert.Equal(t, "R1", r.RegisterNo)
	assert.Equal(t, "", r.SerialNo)
	assert.Equal(t, "", r.UmisNo)
	assert.Len(t, r.Values(), FieldCount)
}

func TestGetSet(t *testing.T) {
	var r Record
	require.True(t, r.Set(KeyCaste, "BC"))
	assert.Equal(t, "BC", r.Caste)

	v, ok := r.Get(KeyCaste)
	assert.True(t, ok)
	assert.Equal(t, "BC", v)

	assert.False(t, r.Set("missing", "x"))
	_, ok = r.Get("missing")
	assert.False(t, ok)
}

func TestStoredRecordCells(t *testing.T) {
	s := StoredRecord{ID: 42, Record: Record{StudentName: "Ravi"}}
	cells := s.Cells()
	require.Len(t, cells, FieldCount+1)
	assert.Equal(t, "42", cells[0])
	assert.Equal(t, "Ravi", cells[1])
}

package schema

import (
	"strconv"
	"time"
)

// Record is one transfer certificate. Field order matches Fields().
type Record struct {
	StudentName   string `json:"studentName"`
	RegisterNo    string `json:"registerNo"`
	SerialNo      string `json:"serialNo"`
	FatherName    string `json:"fatherName"`
	Dob           string `json:"dob"`
	DobWords      string `json:"dobWords"`
	Nationality   string `json:"nationality"`
	Religion      string `json:"religion"`
	Caste         string `json:"caste"`
	Gender        string `json:"gender"`
	AdmissionDate string `json:"admissionDate"`
	Course        string `json:"course"`
	Games         string `json:"games"`
	Ncc           string `json:"ncc"`
	FeeConcession string `json:"feeConcession"`
	Result        string `json:"result"`
	LeavingDate   string `json:"leavingDate"`
	ClassLeaving  string `json:"classLeaving"`
	Qualified     string `json:"qualified"`
	Reason        string `json:"reason"`
	IssueDate     string `json:"issueDate"`
	Conduct       string `json:"conduct"`
	Remarks       string `json:"remarks"`
	UmisNo        string `json:"umisNo"`
}

// StoredRecord is a Record that has been assigned an id by a store.
type StoredRecord struct {
	ID        int64     `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	Record
}

// slots returns pointers to the record's fields in schema order.
func (r *Record) slots() [FieldCount]*string {
	return [FieldCount]*string{
		&r.StudentName, &r.RegisterNo, &r.SerialNo, &r.FatherName,
		&r.Dob, &r.DobWords, &r.Nationality, &r.Religion,
		&r.Caste, &r.Gender, &r.AdmissionDate, &r.Course,
		&r.Games, &r.Ncc, &r.FeeConcession, &r.Result,
		&r.LeavingDate, &r.ClassLeaving, &r.Qualified, &r.Reason,
		&r.IssueDate, &r.Conduct, &r.Remarks, &r.UmisNo,
	}
}

// Values returns the 24 field values in schema order.
func (r Record) Values() []string {
	s := r.slots()
	out := make([]string, FieldCount)
	for i, p := range s {
		out[i] = *p
	}
	return out
}

// FromValues maps values positionally onto a Record. Missing trailing values
// are left empty; extra values are ignored.
func FromValues(values []string) Record {
	var r Record
	s := r.slots()
	for i := 0; i < FieldCount && i < len(values); i++ {
		*s[i] = values[i]
	}
	return r
}

// Get returns the value of the field with the given key.
func (r Record) Get(key string) (string, bool) {
	i, ok := byKey[key]
	if !ok {
		return "", false
	}
	return *r.slots()[i], true
}

// Set assigns the field with the given key. It reports false for unknown keys.
func (r *Record) Set(key, value string) bool {
	i, ok := byKey[key]
	if !ok {
		return false
	}
	*r.slots()[i] = value
	return true
}

// Cells returns the displayable cells of a stored record: the id followed by
// the 24 values.
func (s StoredRecord) Cells() []string {
	out := make([]string, 0, FieldCount+1)
	out = append(out, strconv.FormatInt(s.ID, 10))
	return append(out, s.Values()...)
}

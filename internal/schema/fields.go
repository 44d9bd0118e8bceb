// Package schema defines the canonical field layout of a transfer certificate.
//
// The same ordered list of fields drives the spreadsheet column mapping, the
// persisted column layout and the rendered certificate. Adding or removing a
// field is a change to this file only.
package schema

import "strings"

// PlacementKind says where a field appears on the printed certificate.
type PlacementKind int

const (
	// PlaceNumbered puts the field on a numbered line. Consecutive fields
	// sharing a line number are joined with the placement's Joiner.
	PlaceNumbered PlacementKind = iota
	// PlaceHeader puts the field on the header line above the table.
	PlaceHeader
	// PlaceContinuation puts the field on an unnumbered line directly below
	// the previous numbered line.
	PlaceContinuation
	// PlaceTrailer puts the field on an unnumbered line at the end of the table,
	// with the caption folded into the value column.
	PlaceTrailer
)

// Placement describes how a field is printed on the certificate.
type Placement struct {
	Kind    PlacementKind
	Line    int    // Line number for PlaceNumbered
	Caption string // Printed label; the first field of a joined line owns it
	Joiner  string // Separator placed before this field's value on a joined line
}

// Field describes one record field.
type Field struct {
	Key       string // Stable identifier: "studentName"
	Label     string // Human label used in spreadsheet headers and forms
	Column    string // Database column name
	Required  bool
	Placement Placement
}

// FieldCount is the number of fields in a record.
const FieldCount = 24

// Field keys in canonical order.
const (
	KeyStudentName   = "studentName"
	KeyRegisterNo    = "registerNo"
	KeySerialNo      = "serialNo"
	KeyFatherName    = "fatherName"
	KeyDob           = "dob"
	KeyDobWords      = "dobWords"
	KeyNationality   = "nationality"
	KeyReligion      = "religion"
	KeyCaste         = "caste"
	KeyGender        = "gender"
	KeyAdmissionDate = "admissionDate"
	KeyCourse        = "course"
	KeyGames         = "games"
	KeyNcc           = "ncc"
	KeyFeeConcession = "feeConcession"
	KeyResult        = "result"
	KeyLeavingDate   = "leavingDate"
	KeyClassLeaving  = "classLeaving"
	KeyQualified     = "qualified"
	KeyReason        = "reason"
	KeyIssueDate     = "issueDate"
	KeyConduct       = "conduct"
	KeyRemarks       = "remarks"
	KeyUmisNo        = "umisNo"
)

var fields = []Field{
	{Key: KeyStudentName, Label: "Student Name", Column: "student_name", Required: true,
		Placement: Placement{Kind: PlaceNumbered, Line: 1, Caption: "Name of the Student"}},
	{Key: KeyRegisterNo, Label: "Register No", Column: "register_no",
		Placement: Placement{Kind: PlaceHeader, Caption: "Reg. No."}},
	{Key: KeySerialNo, Label: "Serial No", Column: "serial_no",
		Placement: Placement{Kind: PlaceHeader, Caption: "Serial No"}},
	{Key: KeyFatherName, Label: "Father Name", Column: "father_name",
		Placement: Placement{Kind: PlaceNumbered, Line: 2, Caption: "Name of the Father / Guardian / Mother"}},
	{Key: KeyDob, Label: "Date of Birth", Column: "dob",
		Placement: Placement{Kind: PlaceNumbered, Line: 3, Caption: "Date of Birth as entered in the School Record (in figures)"}},
	{Key: KeyDobWords, Label: "DOB in Words", Column: "dob_words",
		Placement: Placement{Kind: PlaceContinuation, Caption: "(in words)"}},
	{Key: KeyNationality, Label: "Nationality", Column: "nationality",
		Placement: Placement{Kind: PlaceNumbered, Line: 4, Caption: "Nationality, Religion & Caste"}},
	{Key: KeyReligion, Label: "Religion", Column: "religion",
		Placement: Placement{Kind: PlaceNumbered, Line: 4, Joiner: " - "}},
	{Key: KeyCaste, Label: "Caste", Column: "caste",
		Placement: Placement{Kind: PlaceNumbered, Line: 4, Joiner: " - "}},
	{Key: KeyGender, Label: "Gender", Column: "gender",
		Placement: Placement{Kind: PlaceNumbered, Line: 5, Caption: "Gender"}},
	{Key: KeyAdmissionDate, Label: "Admission Date", Column: "admission_date",
		Placement: Placement{Kind: PlaceNumbered, Line: 6, Caption: "Date of Admission and Course in which admitted"}},
	{Key: KeyCourse, Label: "Course", Column: "course",
		Placement: Placement{Kind: PlaceNumbered, Line: 6, Joiner: " & "}},
	{Key: KeyGames, Label: "Games", Column: "games",
		Placement: Placement{Kind: PlaceNumbered, Line: 7, Caption: "Games played or extra-curricular activities in which the Student usually took part (mention achievement level there in)"}},
	{Key: KeyNcc, Label: "NCC", Column: "ncc",
		Placement: Placement{Kind: PlaceNumbered, Line: 8, Caption: "Whether NCC Cadet / Scout & Guide"}},
	{Key: KeyFeeConcession, Label: "Fee Concession", Column: "fee_concession",
		Placement: Placement{Kind: PlaceNumbered, Line: 9, Caption: "Any fee concession availed of if so, the nature of concession"}},
	{Key: KeyResult, Label: "Result", Column: "result",
		Placement: Placement{Kind: PlaceNumbered, Line: 10, Caption: "Anna University Annual examination last taken result with class"}},
	{Key: KeyLeavingDate, Label: "Leaving Date", Column: "leaving_date",
		Placement: Placement{Kind: PlaceNumbered, Line: 11, Caption: "Date on which the student left the college"}},
	{Key: KeyClassLeaving, Label: "Class Leaving", Column: "class_leaving",
		Placement: Placement{Kind: PlaceNumbered, Line: 12, Caption: "Class in which the student was studying at the time of leaving the college"}},
	{Key: KeyQualified, Label: "Qualified", Column: "qualified",
		Placement: Placement{Kind: PlaceNumbered, Line: 13, Caption: "Whether qualified for promotion to the higher education"}},
	{Key: KeyReason, Label: "Reason", Column: "reason",
		Placement: Placement{Kind: PlaceNumbered, Line: 14, Caption: "Reason for leaving the Institution"}},
	{Key: KeyIssueDate, Label: "Issue Date", Column: "issue_date",
		Placement: Placement{Kind: PlaceNumbered, Line: 15, Caption: "Date of issue of Transfer Certificate"}},
	{Key: KeyConduct, Label: "Conduct", Column: "conduct",
		Placement: Placement{Kind: PlaceNumbered, Line: 16, Caption: "Student conduct and character"}},
	{Key: KeyRemarks, Label: "Remarks", Column: "remarks",
		Placement: Placement{Kind: PlaceNumbered, Line: 17, Caption: "Any other Remarks"}},
	{Key: KeyUmisNo, Label: "UMIS No", Column: "umis_no",
		Placement: Placement{Kind: PlaceTrailer, Caption: "UMIS No"}},
}

var byKey = func() map[string]int {
	m := make(map[string]int, len(fields))
	for i, f := range fields {
		m[f.Key] = i
	}
	return m
}()

// Fields returns the ordered field descriptors. The returned slice is a copy.
func Fields() []Field {
	out := make([]Field, len(fields))
	copy(out, fields)
	return out
}

// ByKey returns the descriptor and position for a field key.
func ByKey(key string) (Field, int, bool) {
	i, ok := byKey[key]
	if !ok {
		return Field{}, -1, false
	}
	return fields[i], i, true
}

// Columns returns the database column names in field order.
func Columns() []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = f.Column
	}
	return out
}

// Labels returns the spreadsheet header labels in field order.
func Labels() []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = f.Label
	}
	return out
}

// Keys returns the field keys in order.
func Keys() []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = f.Key
	}
	return out
}

// NumberedLines returns how many numbered certificate lines the schema defines.
func NumberedLines() int {
	seen := make(map[int]bool)
	for _, f := range fields {
		if f.Placement.Kind == PlaceNumbered {
			seen[f.Placement.Line] = true
		}
	}
	return len(seen)
}

// SanitizeName replaces everything except ASCII letters and digits with '_'.
// Used to build output file names from student names.
func SanitizeName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

package render

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/JonMunkholm/tcgen/internal/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func fullRecord() schema.Record {
	return schema.Record{
		StudentName:   "Anitha R",
		RegisterNo:    "REG-001",
		SerialNo:      "42",
		FatherName:    "Ramesh K",
		Dob:           "15-08-2005",
		DobWords:      "15 AUGUST TWO THOUSAND FIVE",
		Nationality:   "Indian",
		Religion:      "Hindu",
		Caste:         "BC",
		Gender:        "Female",
		AdmissionDate: "01-06-2021",
		Course:        "B.Sc Physics",
		Games:         "Chess",
		Ncc:           "No",
		FeeConcession: "None",
		Result:        "Pass - First Class",
		LeavingDate:   "30-04-2024",
		ClassLeaving:  "III B.Sc",
		Qualified:     "Yes",
		Reason:        "Course completed",
		IssueDate:     "10-05-2024",
		Conduct:       "Good",
		Remarks:       "",
		UmisNo:        "U12345",
	}
}

func writeLogo(t *testing.T, dir string) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 40, 10))
	for x := 0; x < 40; x++ {
		for y := 0; y < 10; y++ {
			img.Set(x, y, color.RGBA{R: 200, A: 255})
		}
	}
	path := filepath.Join(dir, "logo.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
	return path
}

func TestLayout_NameOnly(t *testing.T) {
	c := Layout(schema.Record{StudentName: "X"}, Assets{})

	assert.Equal(t, Title, c.Title)
	assert.Equal(t, DefaultSignatory, c.Signatory)
	require.Len(t, c.Header, 2)
	assert.Equal(t, "Reg. No. : ", c.Header[0].Text())
	assert.Equal(t, "Serial No : ", c.Header[1].Text())

	numbered := c.Numbered()
	require.Len(t, numbered, 17)
	for i, l := range numbered {
		assert.Equal(t, i+1, l.Number)
		if i == 0 {
			assert.Equal(t, "X", l.Value)
		} else {
			assert.Empty(t, l.Value, "line %d", l.Number)
		}
	}

	// 17 numbered lines, the "(in words)" continuation and the UMIS trailer
	require.Len(t, c.Lines, 19)
	assert.Equal(t, "(in words)", c.Lines[3].Label)
	assert.Equal(t, 0, c.Lines[3].Number)
	last := c.Lines[len(c.Lines)-1]
	assert.Equal(t, "UMIS No: ", last.Value)
	assert.False(t, last.Colon)
}

func TestLayout_JoinedLines(t *testing.T) {
	c := Layout(fullRecord(), Assets{Signatory: "REGISTRAR"})

	byNumber := map[int]Line{}
	for _, l := range c.Numbered() {
		byNumber[l.Number] = l
	}
	assert.Equal(t, "Indian - Hindu - BC", byNumber[4].Value)
	assert.Equal(t, "01-06-2021 & B.Sc Physics", byNumber[6].Value)
	assert.Equal(t, "7.", byNumber[7].NumberText())
	assert.Equal(t, "REGISTRAR", c.Signatory)
	assert.Equal(t, "UMIS No: U12345", c.Lines[len(c.Lines)-1].Value)
}

func TestLayout_JoinerSkipsEmptyValues(t *testing.T) {
	tests := []struct {
		name  string
		nat   string
		rel   string
		caste string
		want  string
	}{
		{"all empty", "", "", "", ""},
		{"first only", "Indian", "", "", "Indian"},
		{"middle only", "", "Hindu", "", "Hindu"},
		{"first and last", "Indian", "", "BC", "Indian - BC"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := schema.Record{StudentName: "X", Nationality: tt.nat, Religion: tt.rel, Caste: tt.caste}
			c := Layout(rec, Assets{})
			assert.Equal(t, tt.want, c.Numbered()[3].Value)
		})
	}
}

func TestRender_WritesPDF(t *testing.T) {
	r := New(Assets{Institution: "Government Arts College"})
	var buf bytes.Buffer

	res, err := r.Render(context.Background(), &buf, fullRecord())
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(buf.String(), "%PDF"))
	assert.Equal(t, buf.Len(), res.Bytes)
	assert.Equal(t, 1, res.Pages)
	assert.False(t, res.LogoUsed)
}

func TestRender_WithLogo(t *testing.T) {
	logo := writeLogo(t, t.TempDir())
	r := New(Assets{LogoPath: logo})
	var buf bytes.Buffer

	res, err := r.Render(context.Background(), &buf, fullRecord())
	require.NoError(t, err)
	assert.True(t, res.LogoUsed)
}

func TestRender_BrokenLogoIsOmitted(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "logo.png")
	require.NoError(t, os.WriteFile(bad, []byte("not an image"), 0o644))

	for _, path := range []string{bad, filepath.Join(dir, "missing.png")} {
		r := New(Assets{LogoPath: path})
		var buf bytes.Buffer
		res, err := r.Render(context.Background(), &buf, fullRecord())
		require.NoError(t, err, path)
		assert.False(t, res.LogoUsed)
		assert.True(t, strings.HasPrefix(buf.String(), "%PDF"))
	}
}

func TestRenderFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out", FileName("Anitha R"))

	res, err := New(Assets{}).RenderFile(context.Background(), path, fullRecord())
	require.NoError(t, err)
	assert.Equal(t, path, res.Path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, data, res.Bytes)
}

func TestRenderFile_UnwritablePath(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	_, err := New(Assets{}).RenderFile(context.Background(), filepath.Join(blocker, "a.pdf"), fullRecord())
	require.Error(t, err)

	var re *RenderError
	require.True(t, errors.As(err, &re))
	assert.Contains(t, re.Path, "a.pdf")
}

func TestRenderReport(t *testing.T) {
	records := make([]schema.StoredRecord, 0, 120)
	for i := 1; i <= 120; i++ {
		rec := fullRecord()
		rec.Reason = strings.Repeat("long reason ", i%5+1)
		records = append(records, schema.StoredRecord{ID: int64(i), Record: rec})
	}

	var buf bytes.Buffer
	at := time.Date(2024, 5, 10, 9, 30, 0, 0, time.UTC)
	res, err := New(Assets{}).RenderReport(context.Background(), &buf, records, at)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(buf.String(), "%PDF"))
	assert.Greater(t, res.Pages, 1)
}

func TestRenderReport_Empty(t *testing.T) {
	var buf bytes.Buffer
	res, err := New(Assets{}).RenderReport(context.Background(), &buf, nil, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Pages)
}

func TestReportRow(t *testing.T) {
	rec := schema.StoredRecord{ID: 7, Record: fullRecord()}
	row := ReportRow(rec)
	require.Len(t, row, len(ReportHeaders()))
	assert.Equal(t, []string{
		"7", "Anitha R", "Ramesh K", "B.Sc Physics",
		"01-06-2021", "30-04-2024", "10-05-2024", "Course completed",
	}, row)
}

func TestFileNames(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Anitha R", "Anitha_R_TC.pdf"},
		{"O'Brien, M.", "O_Brien__M__TC.pdf"},
		{"abc123", "abc123_TC.pdf"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FileName(tt.in), tt.in)
	}

	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	assert.Equal(t, "All_Transfer_Certificates_20240102_030405.pdf", ReportFileName(at))
}

func TestWriteWorkbook(t *testing.T) {
	records := []schema.StoredRecord{
		{ID: 1, Record: fullRecord()},
		{ID: 2, Record: schema.Record{StudentName: "Bala"}},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteWorkbook(&buf, records))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, schema.Labels(), rows[0])
	assert.Equal(t, "Anitha R", rows[1][0])
	assert.Equal(t, "U12345", rows[1][schema.FieldCount-1])
	assert.Equal(t, "Bala", rows[2][0])
}

func TestWriteTemplate(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTemplate(&buf))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Len(t, rows[0], schema.FieldCount)
}

func TestDrawRow_SplitsTallRowAcrossPages(t *testing.T) {
	pdf := newDocument("P")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "", bodyFontSize)
	pageW, _ := pdf.GetPageSize()
	widths := scaleWidths(certColumns, pageW-2*pageMargin)
	st := rowStyle{lineH: bodyLineH, padBottom: rowPadBottom}

	long := strings.Repeat("remark text ", 900)
	lines := len(cellLines(pdf, widths[3], long))
	perPage := int((pageBottom(pdf) - pageMargin - st.padBottom) / st.lineH)
	require.Greater(t, lines, 2*perPage)

	broke := drawRow(pdf, widths, []string{"", "Remarks", ":", long}, nil, st)
	require.NoError(t, pdf.Error())

	pages := (lines + perPage - 1) / perPage
	last := lines - (pages-1)*perPage
	assert.True(t, broke)
	assert.Equal(t, pages, pdf.PageCount())
	assert.InDelta(t, pageMargin+float64(last)*st.lineH+st.padBottom, pdf.GetY(), 0.01)
	assert.LessOrEqual(t, pdf.GetY(), pageBottom(pdf))
}

func TestDrawRow_MovesRowThatFitsOnNextPage(t *testing.T) {
	pdf := newDocument("P")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "", bodyFontSize)
	pdf.SetY(pageBottom(pdf) - bodyLineH)
	st := rowStyle{lineH: bodyLineH, padBottom: rowPadBottom}

	broke := drawRow(pdf, []float64{100, 100}, []string{"Conduct", "Good"}, nil, st)

	assert.True(t, broke)
	assert.Equal(t, 2, pdf.PageCount())
	assert.InDelta(t, pageMargin+bodyLineH+rowPadBottom, pdf.GetY(), 0.01)
}

func TestRender_LongRemarksSpanPages(t *testing.T) {
	rec := fullRecord()
	rec.Remarks = strings.Repeat("remark text ", 900)

	var buf bytes.Buffer
	res, err := New(Assets{}).Render(context.Background(), &buf, rec)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, res.Pages, 3)
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF")))
}

package datewords

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestYearToWords(t *testing.T) {
	tests := []struct {
		year int
		want string
	}{
		{1999, "ONE THOUSAND NINE HUNDRED NINETY NINE"},
		{2005, "TWO THOUSAND FIVE"},
		{2000, "TWO THOUSAND"},
		{2010, "TWO THOUSAND TEN"},
		{2019, "TWO THOUSAND NINETEEN"},
		{2020, "TWO THOUSAND TWENTY"},
		{1987, "ONE THOUSAND NINE HUNDRED EIGHTY SEVEN"},
		{1900, "ONE THOUSAND NINE HUNDRED"},
		{1111, "ONE THOUSAND ONE HUNDRED ELEVEN"},
		{7, "SEVEN"},
		{0, ""},
	}
	for _, tt := range tests {
		if got := YearToWords(tt.year); got != tt.want {
			t.Errorf("YearToWords(%d) = %q, want %q", tt.year, got, tt.want)
		}
	}
}

func TestToWords(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"31-12-1999", "31 DECEMBER ONE THOUSAND NINE HUNDRED NINETY NINE"},
		{"05-03-2005", "05 MARCH TWO THOUSAND FIVE"},
		{"5-3-2005", "05 MARCH TWO THOUSAND FIVE"},
		{" 01-01-2000 ", "01 JANUARY TWO THOUSAND"},
		{"not-a-date", InvalidDate},
		{"", InvalidDate},
		{"31-02-2001", InvalidDate},
		{"1999-12-31", InvalidDate},
		{"31/12/1999", InvalidDate},
		{"31-12-99", InvalidDate},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ToWords(tt.in), tt.in)
	}
}

func TestToWordsPrefix(t *testing.T) {
	got := ToWords("31-12-1999")
	assert.True(t, strings.HasPrefix(got, "31 DECEMBER "), got)
	assert.True(t, strings.HasSuffix(got, YearToWords(1999)), got)
}

func TestDerive(t *testing.T) {
	assert.Equal(t, "", Derive(""))
	assert.Equal(t, "", Derive("   "))
	assert.Equal(t, InvalidDate, Derive("tomorrow"))
	assert.Equal(t, "15 AUGUST TWO THOUSAND THREE", Derive("15-08-2003"))
}

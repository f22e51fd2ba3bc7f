package dataset

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateFile(t *testing.T) {
	l := DefaultLimits()

	ok := writeFile(t, "fine.csv", strings.Repeat("a,b\n", 50))
	res := l.ValidateFile(ok)
	assert.True(t, res.Valid())
	assert.Empty(t, res.Warnings)
	assert.NoError(t, res.Err())

	tiny := writeFile(t, "tiny.csv", "a\n1\n")
	res = l.ValidateFile(tiny)
	assert.True(t, res.Valid())
	assert.Len(t, res.Warnings, 1)

	wrong := writeFile(t, "data.json", strings.Repeat("x", 200))
	res = l.ValidateFile(wrong)
	assert.False(t, res.Valid())
	assert.Equal(t, "fileType", res.Errors[0].Field)

	l.MaxFileSize = 10
	res = l.ValidateFile(ok)
	assert.False(t, res.Valid())
	assert.ErrorContains(t, res.Err(), "exceeds maximum allowed size")

	res = DefaultLimits().ValidateFile("/definitely/not/here.csv")
	assert.False(t, res.Valid())
}

func TestSuspiciousName(t *testing.T) {
	for _, name := range []string{"../etc.csv", "a<b>.csv", "x{1}.csv", `dir\file.csv`} {
		assert.True(t, SuspiciousName(name), name)
	}
	assert.False(t, SuspiciousName("sales_2024-Q1.csv"))
}

func TestValidateDimensions(t *testing.T) {
	l := DefaultLimits()
	assert.True(t, l.ValidateDimensions(10, 5).Valid())

	res := l.ValidateDimensions(2000000, 600)
	assert.Len(t, res.Errors, 2)
	assert.Len(t, res.Warnings, 1)
	assert.True(t, l.WouldExceedMemory(2000000, 600))
	assert.Equal(t, int64(1000), EstimateMemory(4, 5))
}

func TestValidateColumns(t *testing.T) {
	assert.False(t, ValidateColumns(nil).Valid())
	res := ValidateColumns([]string{"a", "b", "a"})
	assert.False(t, res.Valid())
	assert.Contains(t, res.Errors[0].Message, "a")
	assert.True(t, ValidateColumns([]string{"a", "b"}).Valid())
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "total_revenue____", SanitizeColumnName("total revenue ($)"))
	assert.Len(t, SanitizeColumnName(strings.Repeat("x", 300)), 255)
	assert.Equal(t, "ab", SanitizeCellValue("a\x00\x1fb"))
	assert.Equal(t, 3.5, SanitizeCellValue(3.5))
	assert.Nil(t, SanitizeCellValue(nil))
	assert.Len(t, SanitizeCellValue(strings.Repeat("y", 20000)), 10000)
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "0 Bytes", FormatBytes(0))
	assert.Equal(t, "512 Bytes", FormatBytes(512))
	assert.Equal(t, "1.5 KB", FormatBytes(1536))
	assert.Equal(t, "100 MB", FormatBytes(100<<20))
}

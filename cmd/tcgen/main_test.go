package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func setupEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("DATABASE_URL", "memory://")
	t.Setenv("RENDER_OUTPUT_DIR", filepath.Join(dir, "output"))
	t.Setenv("LOG_LEVEL", "error")
	return dir
}

func runCmd(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRun_Usage(t *testing.T) {
	setupEnv(t)

	code, _, stderr := runCmd(t)
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, "usage: tcgen")

	code, _, stderr = runCmd(t, "frobnicate")
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, `unknown command "frobnicate"`)
}

func TestRun_DobWords(t *testing.T) {
	setupEnv(t)

	code, stdout, _ := runCmd(t, "dobwords", "15-08-2005")
	assert.Equal(t, 0, code)
	assert.Equal(t, "15 AUGUST TWO THOUSAND FIVE\n", stdout)

	code, _, _ = runCmd(t, "dobwords")
	assert.Equal(t, 2, code)
}

func TestRun_Import(t *testing.T) {
	dir := setupEnv(t)
	lists := filepath.Join(dir, "lists")
	require.NoError(t, os.Mkdir(lists, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(lists, "a.csv"), []byte("Anitha 1,R1\nBala 2,R2\n"), 0o644))

	code, stdout, _ := runCmd(t, "import", lists)
	assert.Equal(t, 0, code)
	assert.Contains(t, stdout, "imported 2, skipped 0, failed 0")

	require.NoError(t, os.WriteFile(filepath.Join(lists, "b.xlsx"), []byte("garbage"), 0o644))
	code, stdout, stderr := runCmd(t, "import", lists)
	assert.Equal(t, 1, code)
	assert.Contains(t, stdout, "b.xlsx")
	assert.Contains(t, stderr, "IMP")

	code, _, _ = runCmd(t, "import")
	assert.Equal(t, 2, code)
}

func TestRun_Template(t *testing.T) {
	dir := setupEnv(t)
	dest := filepath.Join(dir, "template.xlsx")

	code, stdout, _ := runCmd(t, "template", "-o", dest)
	require.Equal(t, 0, code)
	assert.Equal(t, dest+"\n", stdout)

	f, err := excelize.OpenFile(dest)
	require.NoError(t, err)
	defer f.Close()
	assert.NotEmpty(t, f.GetSheetList())
}

func TestRun_ExportEmptyStore(t *testing.T) {
	dir := setupEnv(t)
	dest := filepath.Join(dir, "export.xlsx")

	code, stdout, _ := runCmd(t, "export", "-o", dest)
	require.Equal(t, 0, code)
	assert.Contains(t, stdout, "exported 0 records")

	_, err := os.Stat(dest)
	assert.NoError(t, err)
}

func TestRun_BatchFlags(t *testing.T) {
	setupEnv(t)

	code, _, stderr := runCmd(t, "batch")
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, "pass -all or -ids")

	code, _, stderr = runCmd(t, "batch", "-ids", "3,x")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "VAL002")

	code, stdout, _ := runCmd(t, "batch", "-all")
	assert.Equal(t, 0, code)
	assert.Contains(t, stdout, "wrote 0 of 0 certificates")
}

func TestRun_CertificateMissingRecord(t *testing.T) {
	setupEnv(t)

	code, _, stderr := runCmd(t, "certificate", "-id", "7")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "REC001")
}

func TestParseIDs(t *testing.T) {
	ids, err := parseIDs(" 1, 2,,3 ")
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, ids)

	_, err = parseIDs("0")
	assert.Error(t, err)

	_, err = parseIDs(",")
	assert.Error(t, err)
}

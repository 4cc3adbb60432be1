package pdftext

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeBinary(t *testing.T, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script stand-in requires a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "pdftotext")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script+"\n"), 0o755))
	return path
}

func TestNewDefaultsBinPath(t *testing.T) {
	assert.Equal(t, "pdftotext", New("").binPath)
	assert.Equal(t, "/opt/pdftotext", New("/opt/pdftotext").binPath)
}

func TestTextPassesLayoutAndPath(t *testing.T) {
	// Echo the flag and the file contents back so both are observable.
	bin := fakeBinary(t, `echo "$1"; cat "$2"`)
	out, err := New(bin).Text(context.Background(), []byte("RESOLUTION 2025-14"))
	require.NoError(t, err)
	assert.Equal(t, "-layout\nRESOLUTION 2025-14", out)
}

func TestTextReportsStderr(t *testing.T) {
	bin := fakeBinary(t, `echo "Syntax Error: Couldn't find trailer dictionary" >&2; exit 1`)
	_, err := New(bin).Text(context.Background(), []byte("%PDF-1.4"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "trailer dictionary")
}

func TestTextRejectsEmpty(t *testing.T) {
	_, err := New("").Text(context.Background(), nil)
	require.Error(t, err)
}

func TestMissingBinary(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "absent")).ExtractText(context.Background(), "x.pdf")
	require.Error(t, err)
}

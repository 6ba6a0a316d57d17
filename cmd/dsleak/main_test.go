// Copyright 2026 The dsleak Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/bpowers/dsleak/internal/fixture"
	"github.com/bpowers/dsleak/internal/present"
)

func runCLI(args ...string) (code int, stdout, stderr string) {
	var out, errOut bytes.Buffer
	code = run(context.Background(), args, &out, &errOut)
	return code, out.String(), errOut.String()
}

func writeStore(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".DS_Store")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestRun_Text(t *testing.T) {
	path := writeStore(t, fixture.Tree([]string{"wp-config.php.bak", ".git", "uploads"}, 2))

	code, stdout, stderr := runCLI("-u", path)
	require.Equal(t, exitOK, code, stderr)
	require.Equal(t, present.Heading+"\n.git\nuploads\nwp-config.php.bak\n", stdout)
	require.Empty(t, stderr)
}

func TestRun_YAMLOverHTTP(t *testing.T) {
	data := fixture.Tree([]string{"b", "a"}, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(data)
	}))
	defer srv.Close()

	code, stdout, stderr := runCLI("--url", srv.URL+"/.DS_Store", "--format", "yaml")
	require.Equal(t, exitOK, code, stderr)

	var report present.Report
	require.NoError(t, yaml.Unmarshal([]byte(stdout), &report))
	assert.Equal(t, []string{"a", "b"}, report.Filenames)
	assert.Equal(t, 2, report.Records)
	assert.Len(t, report.Fingerprint, 16)
}

func TestRun_FetchFailureExitsZero(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	code, stdout, stderr := runCLI("-u", srv.URL+"/.DS_Store")
	require.Equal(t, exitOK, code)
	require.Empty(t, stdout)
	require.Contains(t, stderr, "could not retrieve")
}

func TestRun_DecodeFailure(t *testing.T) {
	path := writeStore(t, []byte("definitely not a .DS_Store file at all, sorry"))

	code, stdout, stderr := runCLI("-u", path)
	require.Equal(t, exitError, code)
	require.Empty(t, stdout)
	require.Contains(t, stderr, "error: ")
}

func TestRun_Lenient(t *testing.T) {
	b := fixture.NewBuilder()
	leaf := b.Add(fixture.Leaf(fixture.Iloc("a.txt")))
	b.Directory("DSDB", b.Add(fixture.Descriptor(leaf, 0, 1, 1)))
	b.BadMagic(0)
	path := writeStore(t, b.Bytes())

	code, _, _ := runCLI("-u", path)
	require.Equal(t, exitError, code)

	code, stdout, stderr := runCLI("-u", path, "--lenient")
	require.Equal(t, exitOK, code, stderr)
	require.Contains(t, stdout, "a.txt")
}

func TestRun_Usage(t *testing.T) {
	for _, args := range [][]string{
		nil,
		{"-u", "x", "--format", "xml"},
		{"-u", "x", "extra"},
		{"--no-such-flag"},
	} {
		code, stdout, _ := runCLI(args...)
		require.Equal(t, exitUsage, code, "%v", args)
		require.Empty(t, stdout)
	}

	code, _, _ := runCLI("--help")
	require.Equal(t, exitOK, code)
}

package main

import (
	"bytes"
	"compress/gzip"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharma-deck/config"
)

func TestIngestRequiresName(t *testing.T) {
	err := newCLI().Run([]string{"deckctl", "ingest"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least one drug name")
}

func TestSeedRequiresFile(t *testing.T) {
	err := newCLI().Run([]string{"deckctl", "seed"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "file")
}

func TestInvalidLogLevel(t *testing.T) {
	err := newCLI().Run([]string{"deckctl", "--log-level", "loud", "ingest", "metformin"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
}

func TestPgDumpArgs(t *testing.T) {
	cfg := &config.Config{DBHost: "db", DBPort: 5433, DBUser: "deck", DBName: "pharma"}
	assert.Equal(t, []string{"-h", "db", "-p", "5433", "-U", "deck", "-d", "pharma", "-w"}, pgDumpArgs(cfg))
}

func TestGzipAll(t *testing.T) {
	data, err := gzipAll(strings.NewReader("CREATE TABLE compounds ();"))
	require.NoError(t, err)

	r, err := gzip.NewReader(bytes.NewReader(data))
	require.NoError(t, err)
	out, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "CREATE TABLE compounds ();", string(out))
}

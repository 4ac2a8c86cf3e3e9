package main

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/siherrmann/triage/core/ingest"
	"github.com/siherrmann/triage/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommands(t *testing.T) {
	names := map[string]bool{}
	for _, cmd := range rootCmd.Commands() {
		names[cmd.Name()] = true
	}
	for _, name := range []string{"tickets", "ingest", "ask", "research", "summarize", "sources", "index-type"} {
		assert.True(t, names[name], "Expected command %s to be registered", name)
	}
}

func TestAskHelp(t *testing.T) {
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs([]string{"ask", "--help"})
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	})

	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, buf.String(), "--filter")
	assert.Contains(t, buf.String(), "--diverse")
}

func TestSourcesFromArgs(t *testing.T) {
	sources := sourcesFromArgs([]string{"kb.csv", "https://support.example.com/a", "http://intranet/b"})
	require.Len(t, sources, 3)
	assert.Equal(t, ingest.FileSource("kb.csv"), sources[0])
	assert.Equal(t, model.SourceKindURL, sources[1].Kind)
	assert.Equal(t, model.SourceKindURL, sources[2].Kind)
}

func TestOutput(t *testing.T) {
	t.Run("Ingest result", func(t *testing.T) {
		var buf bytes.Buffer
		result := &model.IngestResult{}
		result.AddSuccess("a.txt")
		result.AddFailure("b.txt", errors.New("no text extracted"))

		printIngestResult(&buf, result)
		assert.Contains(t, buf.String(), "Ingested 1 item(s), 1 failed.")
		assert.Contains(t, buf.String(), "b.txt: no text extracted")
	})

	t.Run("Tickets", func(t *testing.T) {
		var buf bytes.Buffer
		created := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
		require.NoError(t, printTickets(&buf, []*model.Ticket{{Key: "PS-1", Priority: "High", Summary: "Login fails", CreatedAt: created}}))
		assert.Contains(t, buf.String(), "PS-1")
		assert.Contains(t, buf.String(), "2024-01-10")
	})

	t.Run("Truncate", func(t *testing.T) {
		assert.Equal(t, "short text", truncate("short\n text", 20))
		assert.Equal(t, "abcd…", truncate("abcdefgh", 5))
	})
}

package main

import (
	"context"
	"database/sql"
	"io"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/virtualsteve-star/stinger-sub001/internal/config"
	"github.com/virtualsteve-star/stinger-sub001/internal/guardrail"
	"github.com/virtualsteve-star/stinger-sub001/internal/guardrail/builtin"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Input = []builtin.GuardrailConfig{
		{
			Type: "pattern",
			Name: "pii",
			Params: map[string]any{
				"rules": []any{
					map[string]any{
						"name":    "ssn",
						"pattern": `\d{3}-\d{2}-\d{4}`,
						"action":  "block",
					},
				},
			},
		},
	}
	cfg.Output = []builtin.GuardrailConfig{
		{
			Type: "keyword",
			Params: map[string]any{
				"keywords": []any{"forbidden"},
			},
		},
	}
	return cfg
}

func TestNewApp_WiresConfiguredPipelines(t *testing.T) {
	a, err := newApp(testConfig(t))
	require.NoError(t, err)
	defer a.close()

	require.Len(t, a.input.Members(), 1)
	assert.Equal(t, "pii", a.input.Members()[0].Guardrail.Name())
	require.Len(t, a.output.Members(), 1)

	verdict, err := a.input.Evaluate(context.Background(), "my ssn is 123-45-6789", nil)
	require.NoError(t, err)
	assert.True(t, verdict.Blocked())

	verdict, err = a.input.Evaluate(context.Background(), "hello world", nil)
	require.NoError(t, err)
	assert.False(t, verdict.Blocked())
}

func TestNewApp_StreamingSession(t *testing.T) {
	a, err := newApp(testConfig(t))
	require.NoError(t, err)
	defer a.close()

	id := a.sessions.Start(nil)
	v, err := a.sessions.Update(context.Background(), id, "clean chunk ")
	require.NoError(t, err)
	assert.Nil(t, v)

	v, err = a.sessions.Update(context.Background(), id, "with forbidden content")
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.True(t, v.Blocked())
}

func TestNewApp_SQLiteSink(t *testing.T) {
	cfg := testConfig(t)
	cfg.Audit.SQLitePath = filepath.Join(t.TempDir(), "audit.db")

	a, err := newApp(cfg)
	require.NoError(t, err)
	defer a.close()
	require.NotNil(t, a.sink)

	_, err = a.input.Evaluate(context.Background(), "123-45-6789", nil)
	require.NoError(t, err)
}

func TestRunCheck_BlockedDrainsMonitorBeforeExit(t *testing.T) {
	cfg = testConfig(t)
	t.Cleanup(func() { cfg = nil; exitCode = exitSuccess })

	// A monitor-mode member alongside the blocker: its audit entry must
	// still land in the sink even though the verdict blocks.
	cfg.Input = append(cfg.Input, builtin.GuardrailConfig{
		Type: "keyword",
		Name: "watcher",
		Mode: "monitor",
		Params: map[string]any{
			"keywords": []any{"ssn"},
		},
	})
	dbPath := filepath.Join(t.TempDir(), "audit.db")
	cfg.Audit.SQLitePath = dbPath
	exitCode = exitSuccess

	cmd := &cobra.Command{}
	cmd.SetOut(io.Discard)
	cmd.SetContext(context.Background())
	checkDirection = "input"

	require.NoError(t, runCheck(cmd, []string{"my ssn is 123-45-6789"}))
	assert.Equal(t, exitBlocked, exitCode)

	// runCheck's deferred close drained the monitor pool and flushed the
	// sink before returning.
	db, err := sql.Open("sqlite3", dbPath)
	require.NoError(t, err)
	defer db.Close()

	var count int
	require.NoError(t, db.QueryRow(
		`SELECT COUNT(*) FROM audit_entries WHERE guardrail = 'watcher' AND would_have_blocked = 1`,
	).Scan(&count))
	assert.Equal(t, 1, count)
}

func TestNewApp_TracingWired(t *testing.T) {
	a, err := newApp(testConfig(t))
	require.NoError(t, err)
	defer a.close()

	require.NotNil(t, a.tracing)
}

func TestPipelineFor(t *testing.T) {
	a, err := newApp(testConfig(t))
	require.NoError(t, err)
	defer a.close()

	p, err := a.pipelineFor("input")
	require.NoError(t, err)
	assert.Equal(t, guardrail.DirectionInput, p.Direction())

	p, err = a.pipelineFor("output")
	require.NoError(t, err)
	assert.Equal(t, guardrail.DirectionOutput, p.Direction())

	_, err = a.pipelineFor("sideways")
	require.Error(t, err)
}

package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nmibc-risk-mcp/internal/domain"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(append(args, "--log-level", "error"))
	err := cmd.Execute()
	return out.String(), err
}

func TestClassifyCommand_Text(t *testing.T) {
	out, err := run(t, "classify", "--t", "Ta", "--grade", "LG", "--status", "Nawrotowy", "--induction-date", "2025-01-01")
	require.NoError(t, err)

	assert.Contains(t, out, "EAU 2025 risk group: Pośrednie (Intermediate)")
	assert.Contains(t, out, "- month 3: 01.04.2025")
	assert.Contains(t, out, "- month 12: 27.12.2025")
}

func TestClassifyCommand_JSON(t *testing.T) {
	out, err := run(t, "classify", "--t", "Tis", "--json")
	require.NoError(t, err)

	var result struct {
		Evaluation struct {
			Category domain.RiskCategory `json:"category"`
		} `json:"evaluation"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, domain.RiskHigh, result.Evaluation.Category)
}

func TestClassifyCommand_InvalidInput(t *testing.T) {
	_, err := run(t, "classify", "--t", "T2")
	assert.Error(t, err)

	_, err = run(t, "classify", "--grade", "HG")
	assert.Error(t, err, "t is required")
}

func TestScheduleCommand(t *testing.T) {
	out, err := run(t, "schedule", "--induction-date", "2025-01-01", "--category", "intermediate")
	require.NoError(t, err)
	assert.Equal(t, "month  3: 01.04.2025\nmonth  6: 30.06.2025\nmonth 12: 27.12.2025\n", out)

	out, err = run(t, "schedule", "--induction-date", "31.01.2025", "--offsets", "1", "--month-mode", "calendar")
	require.NoError(t, err)
	assert.Contains(t, out, "03.03.2025")

	out, err = run(t, "schedule", "--induction-date", "2025-01-01", "--category", "low")
	require.NoError(t, err)
	assert.Equal(t, "No maintenance cycles\n", out)

	_, err = run(t, "schedule", "--induction-date", "2025-01-01", "--category", "high", "--offsets", "3")
	assert.Error(t, err)

	_, err = run(t, "schedule", "--induction-date", "2025-01-01", "--offsets", "-1")
	assert.Error(t, err)
}

func TestProtocolsCommand(t *testing.T) {
	out, err := run(t, "protocols", "--json")
	require.NoError(t, err)

	var protocols []domain.ProtocolRecord
	require.NoError(t, json.Unmarshal([]byte(out), &protocols))
	assert.Len(t, protocols, 4)

	out, err = run(t, "protocols", "veryHigh")
	require.NoError(t, err)
	assert.Contains(t, out, "Bardzo Wysokie (Very High)")
	assert.Contains(t, out, "Maintenance months: 3, 6, 12, 18, 24, 30, 36")

	_, err = run(t, "protocols", "extreme")
	assert.Error(t, err)
}

func TestLetterCommand_WithoutProvider(t *testing.T) {
	t.Setenv("NMIBC_LLM_PROVIDER", "none")
	t.Setenv("NMIBC_DATA_DIR", t.TempDir())

	out, err := run(t, "letter", "--t", "T1", "--grade", "HG")
	require.NoError(t, err)
	assert.Contains(t, out, "Assistant unavailable")
	assert.Contains(t, out, "EAU 2025 risk group:")
}

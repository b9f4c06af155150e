package feedback

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nmibc-risk-mcp/internal/domain"
)

func createTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "feedback.db"))
	require.NoError(t, err)
	return store
}

func sampleFeedback(signature string, suggested, clinician domain.RiskCategory) *Feedback {
	return &Feedback{
		Signature:         signature,
		SuggestedCategory: suggested,
		ClinicianCategory: clinician,
		Agreed:            suggested == clinician,
		MatchedRule:       domain.RuleHighTable,
	}
}

func TestNewSQLiteStore(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "test.db")

	store, err := NewSQLiteStore(dbPath)

	require.NoError(t, err)
	require.NotNil(t, store)
	defer store.Close()

	_, err = os.Stat(dbPath)
	assert.NoError(t, err, "Database file should exist")
	assert.Equal(t, dbPath, store.Path())
}

func TestNewFeedback(t *testing.T) {
	evaluation := &domain.Evaluation{
		Findings:    domain.ClinicalFindings{TCategory: domain.TCategoryT1, Grade: domain.GradeHigh},
		Category:    domain.RiskHigh,
		MatchedRule: domain.RuleHighTable,
	}

	fb, err := NewFeedback(evaluation, domain.RiskVeryHigh)
	require.NoError(t, err)
	assert.Equal(t, evaluation.Findings.Signature(), fb.Signature)
	assert.False(t, fb.Agreed)
	assert.Equal(t, domain.RuleHighTable, fb.MatchedRule)

	fb, err = NewFeedback(evaluation, domain.RiskHigh)
	require.NoError(t, err)
	assert.True(t, fb.Agreed)

	_, err = NewFeedback(evaluation, "severe")
	var vErr *domain.ValidationError
	assert.True(t, errors.As(err, &vErr))
}

func TestSQLiteStore_Save(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	fb := sampleFeedback("T1|HG|age1|mult0|size0|prim1|cis0|lvi0|var0|pucis0", domain.RiskHigh, domain.RiskHigh)

	err := store.Save(context.Background(), fb)

	require.NoError(t, err)
	assert.NotZero(t, fb.ID, "ID should be assigned")
	assert.False(t, fb.CreatedAt.IsZero(), "CreatedAt should be set")
	assert.False(t, fb.UpdatedAt.IsZero(), "UpdatedAt should be set")
}

func TestSQLiteStore_Save_UpsertBySignature(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()
	ctx := context.Background()

	first := sampleFeedback("sig-a", domain.RiskHigh, domain.RiskHigh)
	require.NoError(t, store.Save(ctx, first))

	time.Sleep(5 * time.Millisecond)
	second := sampleFeedback("sig-a", domain.RiskHigh, domain.RiskVeryHigh)
	require.NoError(t, store.Save(ctx, second))

	assert.Equal(t, first.ID, second.ID)
	assert.True(t, second.UpdatedAt.After(first.UpdatedAt) || second.UpdatedAt.Equal(first.UpdatedAt))

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	got, err := store.Get(ctx, "sig-a")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, domain.RiskVeryHigh, got.ClinicianCategory)
	assert.False(t, got.Agreed)
	assert.Equal(t, domain.RuleHighTable, got.MatchedRule)
}

func TestSQLiteStore_Get_NotFound(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	got, err := store.Get(context.Background(), "missing")

	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLiteStore_ListCountDelete(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()
	ctx := context.Background()

	for _, sig := range []string{"sig-1", "sig-2", "sig-3"} {
		require.NoError(t, store.Save(ctx, sampleFeedback(sig, domain.RiskLow, domain.RiskLow)))
		time.Sleep(2 * time.Millisecond)
	}

	all, err := store.List(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "sig-3", all[0].Signature, "newest first")

	page, err := store.List(ctx, 2, 2)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "sig-1", page[0].Signature)

	require.NoError(t, store.Delete(ctx, all[0].ID))
	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestSQLiteStore_Stats(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, sampleFeedback("a", domain.RiskVeryHigh, domain.RiskVeryHigh)))
	require.NoError(t, store.Save(ctx, sampleFeedback("b", domain.RiskLow, domain.RiskLow)))
	require.NoError(t, store.Save(ctx, sampleFeedback("c", domain.RiskLow, domain.RiskIntermediate)))
	require.NoError(t, store.Save(ctx, sampleFeedback("d", domain.RiskLow, domain.RiskLow)))

	stats, err := store.Stats(ctx)

	require.NoError(t, err)
	require.Len(t, stats, 2)
	assert.Equal(t, domain.RiskLow, stats[0].Category)
	assert.Equal(t, int64(3), stats[0].Total)
	assert.Equal(t, int64(2), stats[0].Agreed)
	assert.InDelta(t, 2.0/3.0, stats[0].AgreementRate, 1e-9)
	assert.Equal(t, domain.RiskVeryHigh, stats[1].Category)
	assert.Equal(t, 1.0, stats[1].AgreementRate)
}

func TestSQLiteStore_ExportImport(t *testing.T) {
	source := createTestStore(t)
	defer source.Close()
	ctx := context.Background()

	require.NoError(t, source.Save(ctx, sampleFeedback("x", domain.RiskHigh, domain.RiskHigh)))
	require.NoError(t, source.Save(ctx, sampleFeedback("y", domain.RiskIntermediate, domain.RiskHigh)))

	var buf bytes.Buffer
	require.NoError(t, source.ExportJSON(ctx, &buf))
	assert.Contains(t, buf.String(), `"version": "1.0"`)
	assert.Contains(t, buf.String(), `"count": 2`)

	target := createTestStore(t)
	defer target.Close()
	require.NoError(t, target.Save(ctx, sampleFeedback("x", domain.RiskHigh, domain.RiskLow)))

	imported, skipped, err := target.ImportJSON(ctx, bytes.NewReader(buf.Bytes()))

	require.NoError(t, err)
	assert.Equal(t, 1, imported)
	assert.Equal(t, 1, skipped)

	kept, err := target.Get(ctx, "x")
	require.NoError(t, err)
	assert.Equal(t, domain.RiskLow, kept.ClinicianCategory, "existing entries are not overwritten")

	_, _, err = target.ImportJSON(ctx, bytes.NewReader([]byte("not json")))
	assert.Error(t, err)
}

func TestNewStore(t *testing.T) {
	store, err := NewStore(domain.FeedbackConfig{})
	require.NoError(t, err)
	assert.Nil(t, store)

	store, err = NewStore(domain.FeedbackConfig{Driver: "sqlite", DSN: filepath.Join(t.TempDir(), "f.db")})
	require.NoError(t, err)
	require.NotNil(t, store)
	assert.NoError(t, store.Close())

	_, err = NewStore(domain.FeedbackConfig{Driver: "mysql"})
	assert.Error(t, err)
}

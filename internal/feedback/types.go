// Package feedback stores clinician agreement with suggested risk groups.
// Records are keyed by the findings signature, a combination of tumour
// features, so no patient-identifying data is ever persisted.
package feedback

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/nmibc-risk-mcp/internal/domain"
)

// Feedback is a clinician's verdict on the risk group suggested for one findings combination.
type Feedback struct {
	ID                int64               `json:"id,omitempty"`
	Signature         string              `json:"signature"`
	SuggestedCategory domain.RiskCategory `json:"suggested_category"`
	ClinicianCategory domain.RiskCategory `json:"clinician_category"`
	Agreed            bool                `json:"agreed"`
	MatchedRule       domain.RuleID       `json:"matched_rule,omitempty"`
	CreatedAt         time.Time           `json:"created_at"`
	UpdatedAt         time.Time           `json:"updated_at"`
}

// NewFeedback builds a record from an evaluation and the clinician's chosen category.
func NewFeedback(evaluation *domain.Evaluation, clinicianCategory domain.RiskCategory) (*Feedback, error) {
	if !clinicianCategory.IsValid() {
		return nil, domain.NewValidationError("clinician_category", "unknown risk category", clinicianCategory)
	}
	return &Feedback{
		Signature:         evaluation.Findings.Signature(),
		SuggestedCategory: evaluation.Category,
		ClinicianCategory: clinicianCategory,
		Agreed:            clinicianCategory == evaluation.Category,
		MatchedRule:       evaluation.MatchedRule,
	}, nil
}

// CategoryStats summarises agreement for one suggested category.
type CategoryStats struct {
	Category      domain.RiskCategory `json:"category"`
	Total         int64               `json:"total"`
	Agreed        int64               `json:"agreed"`
	AgreementRate float64             `json:"agreement_rate"`
}

// Store defines the interface for feedback storage operations.
type Store interface {
	// Save stores or updates feedback. A record with the same signature is overwritten.
	Save(ctx context.Context, feedback *Feedback) error

	// Get returns the feedback for a signature, or nil when none exists.
	Get(ctx context.Context, signature string) (*Feedback, error)

	// List returns feedback entries, newest first.
	List(ctx context.Context, limit, offset int) ([]*Feedback, error)

	// Count returns the total number of feedback entries.
	Count(ctx context.Context) (int64, error)

	// Delete removes a feedback entry by ID.
	Delete(ctx context.Context, id int64) error

	// Stats returns agreement per suggested category ordered by severity.
	Stats(ctx context.Context) ([]CategoryStats, error)

	// ExportJSON exports all feedback to a JSON writer.
	ExportJSON(ctx context.Context, writer io.Writer) error

	// ImportJSON imports feedback from a JSON reader, skipping known signatures.
	ImportJSON(ctx context.Context, reader io.Reader) (imported int, skipped int, err error)

	// Close closes the store and releases resources.
	Close() error
}

// FeedbackExport represents the JSON export format.
type FeedbackExport struct {
	Version    string      `json:"version"`
	ExportedAt time.Time   `json:"exported_at"`
	Count      int         `json:"count"`
	Feedback   []*Feedback `json:"feedback"`
}

// NewStore opens the store selected by configuration. It returns nil when feedback is disabled.
func NewStore(cfg domain.FeedbackConfig) (Store, error) {
	switch cfg.Driver {
	case "", "none":
		return nil, nil
	case "sqlite":
		store, err := NewSQLiteStore(cfg.DSN)
		if err != nil {
			return nil, err
		}
		return store, nil
	case "postgres":
		store, err := NewPostgresStoreFromURL(cfg.DSN)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported feedback driver: %s", cfg.Driver)
	}
}

// maxExportLimit is the maximum number of entries to export at once.
const maxExportLimit = 1000000

func exportJSON(ctx context.Context, store Store, writer io.Writer) error {
	all, err := store.List(ctx, maxExportLimit, 0)
	if err != nil {
		return fmt.Errorf("failed to list feedback: %w", err)
	}

	export := &FeedbackExport{
		Version:    "1.0",
		ExportedAt: time.Now(),
		Count:      len(all),
		Feedback:   all,
	}

	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(export)
}

func importJSON(ctx context.Context, store Store, reader io.Reader) (imported int, skipped int, err error) {
	var export FeedbackExport
	if err := json.NewDecoder(reader).Decode(&export); err != nil {
		return 0, 0, fmt.Errorf("failed to decode JSON: %w", err)
	}

	for _, fb := range export.Feedback {
		existing, err := store.Get(ctx, fb.Signature)
		if err != nil {
			return imported, skipped, fmt.Errorf("failed to check existing: %w", err)
		}

		if existing != nil {
			skipped++
			continue
		}

		if err := store.Save(ctx, fb); err != nil {
			return imported, skipped, fmt.Errorf("failed to save: %w", err)
		}
		imported++
	}

	return imported, skipped, nil
}

// finishStats fills agreement rates and orders rows by category severity.
func finishStats(stats []CategoryStats) []CategoryStats {
	for i := range stats {
		if stats[i].Total > 0 {
			stats[i].AgreementRate = float64(stats[i].Agreed) / float64(stats[i].Total)
		}
	}
	sort.Slice(stats, func(i, j int) bool {
		return stats[i].Category.Severity() < stats[j].Category.Severity()
	})
	return stats
}

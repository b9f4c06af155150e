package service

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nmibc-risk-mcp/internal/domain"
)

// EvaluationService composes classification, protocol lookup and schedule generation
type EvaluationService struct {
	logger     *logrus.Logger
	classifier domain.RiskClassifier
	protocols  domain.ProtocolLookup
	scheduler  domain.ScheduleGenerator
	parser     domain.InputParser
	now        func() time.Time
}

// NewEvaluationService creates a new evaluation service
func NewEvaluationService(
	logger *logrus.Logger,
	classifier domain.RiskClassifier,
	protocols domain.ProtocolLookup,
	scheduler domain.ScheduleGenerator,
) *EvaluationService {
	return &EvaluationService{
		logger:     logger,
		classifier: classifier,
		protocols:  protocols,
		scheduler:  scheduler,
		parser:     domain.NewStandardInputParser(),
		now:        time.Now,
	}
}

// NewDefaultEvaluationService wires the EAU classifier, registry and 30-day schedule generator.
func NewDefaultEvaluationService(logger *logrus.Logger) *EvaluationService {
	return NewEvaluationService(
		logger,
		NewEAURiskClassifier(logger),
		NewProtocolRegistry(),
		NewMaintenanceScheduleGenerator(),
	)
}

// Evaluate validates the findings, classifies them and attaches the matching protocol.
func (s *EvaluationService) Evaluate(findings domain.ClinicalFindings) (*domain.Evaluation, error) {
	if err := findings.Validate(); err != nil {
		return nil, err
	}
	if findings.TCategory == domain.TCategoryTis {
		findings.Grade = domain.GradeHigh
	}

	category, rule := s.classifier.ClassifyWithTrace(findings)

	protocol, err := s.protocols.Lookup(category)
	if err != nil {
		s.logger.WithError(err).WithField("risk_category", category).Error("Protocol lookup failed")
		return nil, fmt.Errorf("failed to resolve protocol: %w", err)
	}

	evaluation := &domain.Evaluation{
		Findings:                findings,
		ClinicalRiskFactorCount: findings.ClinicalRiskFactorCount(),
		Category:                category,
		MatchedRule:             rule,
		Protocol:                protocol,
		EvaluatedAt:             s.now().UTC(),
	}

	s.logger.WithFields(logrus.Fields{
		"risk_category": evaluation.Category,
		"rule":          evaluation.MatchedRule,
		"crfc":          evaluation.ClinicalRiskFactorCount,
		"t_category":    findings.TCategory,
	}).Info("Findings evaluated")

	return evaluation, nil
}

// Schedule returns the maintenance schedule for a protocol. A nil induction date
// or a protocol without maintenance cycles yields nil.
func (s *EvaluationService) Schedule(protocol domain.ProtocolRecord, inductionDate *time.Time, mode domain.MonthMode) []domain.ScheduleEntry {
	if inductionDate == nil || !protocol.HasMaintenanceSchedule() {
		return nil
	}
	return s.scheduler.GenerateWithMode(*inductionDate, protocol.MaintenanceOffsetsMonths, mode)
}

// GenerateSchedule exposes the generator for arbitrary offsets.
func (s *EvaluationService) GenerateSchedule(inductionDate time.Time, offsets []int, mode domain.MonthMode) []domain.ScheduleEntry {
	return s.scheduler.GenerateWithMode(inductionDate, offsets, mode)
}

// Protocol returns the protocol for a category.
func (s *EvaluationService) Protocol(category domain.RiskCategory) (domain.ProtocolRecord, error) {
	return s.protocols.Lookup(category)
}

// Protocols returns every protocol ordered by severity.
func (s *EvaluationService) Protocols() ([]domain.ProtocolRecord, error) {
	categories := s.protocols.Categories()
	records := make([]domain.ProtocolRecord, 0, len(categories))
	for _, category := range categories {
		record, err := s.protocols.Lookup(category)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

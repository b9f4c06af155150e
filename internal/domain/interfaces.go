package domain

import (
	"context"
	"time"
)

// RiskClassifier maps clinical findings to exactly one EAU risk category
type RiskClassifier interface {
	Classify(findings ClinicalFindings) RiskCategory
	ClassifyWithTrace(findings ClinicalFindings) (RiskCategory, RuleID)
}

// ProtocolLookup resolves a risk category to its guideline protocol
type ProtocolLookup interface {
	Lookup(category RiskCategory) (ProtocolRecord, error)
	Categories() []RiskCategory
}

// ScheduleGenerator converts month offsets into dated maintenance milestones
type ScheduleGenerator interface {
	Generate(inductionDate time.Time, offsetsMonths []int) []ScheduleEntry
	GenerateWithMode(inductionDate time.Time, offsetsMonths []int, mode MonthMode) []ScheduleEntry
}

// ConversationRole identifies the author of a conversation turn
type ConversationRole string

const (
	RoleUser      ConversationRole = "user"
	RoleAssistant ConversationRole = "assistant"
)

// ConversationTurn is one entry of a caller-owned, ordered chat log.
type ConversationTurn struct {
	Role ConversationRole `json:"role"`
	Text string           `json:"text"`
}

// TextRequest is everything a text generator receives for a single call.
type TextRequest struct {
	System  string             `json:"system"`
	Context string             `json:"context"`
	History []ConversationTurn `json:"history,omitempty"`
}

// TextGenerator is the external natural-language collaborator: string in, string out, may fail.
type TextGenerator interface {
	GenerateText(ctx context.Context, req TextRequest) (string, error)
	Name() string
}

// ConfigManager defines the interface for configuration management
type ConfigManager interface {
	GetConfig() *Config
	GetServerConfig() *ServerConfig
	GetAssistantConfig() *AssistantConfig
	GetCacheConfig() *CacheConfig
	GetFeedbackConfig() *FeedbackConfig
	Reload() error
	Validate() error
	IsProduction() bool
	IsDevelopment() bool
}

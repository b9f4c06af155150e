package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/nmibc-risk-mcp/internal/domain"
)

const protocolURIPrefix = "nmibc://protocols/"

// registerPrompts registers prompt templates for clients that drive their own model
func (s *Server) registerPrompts() {
	s.mcpServer.AddPrompt(&mcp.Prompt{
		Name:        "explain_risk_group",
		Description: "Explain an EAU 2025 NMIBC risk group and its BCG protocol to a patient in plain language",
		Arguments: []*mcp.PromptArgument{
			{Name: "category", Description: "low, intermediate, high or veryHigh", Required: true},
			{Name: "language", Description: "letter language, defaults to Polish"},
		},
	}, s.handleExplainRiskGroupPrompt)
}

func (s *Server) handleExplainRiskGroupPrompt(ctx context.Context, req *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	args := req.Params.Arguments
	category, err := domain.ParseRiskCategory(args["category"])
	if err != nil {
		return nil, fmt.Errorf("unknown risk group %q", args["category"])
	}
	protocol, err := s.evaluator.Protocol(category)
	if err != nil {
		return nil, err
	}
	language := args["language"]
	if language == "" {
		language = "Polish"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Write a short, calm explanation for a patient, in %s, of what the bladder tumour risk group %q means for them.\n", language, protocol.DisplayLabel)
	fmt.Fprintf(&b, "Recommendation: %s\n", protocol.ShortRecommendation)
	fmt.Fprintf(&b, "Treatment: %s\n", protocol.TreatmentText)
	if protocol.InductionDescription != nil {
		fmt.Fprintf(&b, "BCG protocol: %s\n", *protocol.InductionDescription)
	}
	fmt.Fprintf(&b, "Follow-up: %s\n", protocol.FollowUpText)
	b.WriteString("Do not add treatments or timelines that are not listed above.")

	return &mcp.GetPromptResult{
		Description: "Patient explanation for risk group " + protocol.DisplayLabel,
		Messages: []*mcp.PromptMessage{
			{Role: "user", Content: &mcp.TextContent{Text: b.String()}},
		},
	}, nil
}

// registerResources exposes every protocol record as a read-only JSON resource
func (s *Server) registerResources() {
	for _, category := range domain.AllRiskCategories() {
		s.mcpServer.AddResource(&mcp.Resource{
			URI:         protocolURIPrefix + string(category),
			Name:        "protocol-" + string(category),
			Description: "EAU 2025 protocol for the " + string(category) + " risk group",
			MIMEType:    "application/json",
		}, s.handleProtocolResource)
	}
}

func (s *Server) handleProtocolResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	uri := req.Params.URI
	category, err := domain.ParseRiskCategory(strings.TrimPrefix(uri, protocolURIPrefix))
	if err != nil {
		return nil, mcp.ResourceNotFoundError(uri)
	}
	protocol, err := s.evaluator.Protocol(category)
	if err != nil {
		return nil, err
	}
	data, err := json.MarshalIndent(protocol, "", "  ")
	if err != nil {
		return nil, err
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{
			{URI: uri, MIMEType: "application/json", Text: string(data)},
		},
	}, nil
}

package resources

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/queryexport/internal/guard"
	"github.com/teemow/queryexport/internal/logging"
)

const (
	// PolicyURI is the resource describing the SQL guard.
	PolicyURI = "export://policy"

	// DeliveryURI is the resource describing where exports are sent.
	DeliveryURI = "export://delivery"
)

// Settings is the non-secret view of the export configuration.
type Settings struct {
	DatabaseHost    string
	SMTPHost        string
	SMTPPort        int
	Recipients      []string
	ScratchDir      string
	RetainArtifacts bool
}

// PolicyInfo is the JSON body of the policy resource.
type PolicyInfo struct {
	Action            string   `json:"action"`
	RequiredPrefix    string   `json:"required_prefix"`
	ForbiddenKeywords []string `json:"forbidden_keywords"`
	Matching          string   `json:"matching"`
}

// DeliveryInfo is the JSON body of the delivery resource.
type DeliveryInfo struct {
	DatabaseHost     string   `json:"database_host"`
	SMTPHost         string   `json:"smtp_host"`
	SMTPPort         int      `json:"smtp_port"`
	RecipientCount   int      `json:"recipient_count"`
	RecipientDomains []string `json:"recipient_domains"`
	ScratchDir       string   `json:"scratch_dir"`
	RetainArtifacts  bool     `json:"retain_artifacts"`
}

// RegisterExportResources registers the policy and delivery resources.
func RegisterExportResources(s *mcpserver.MCPServer, settings Settings) error {
	if s == nil {
		return fmt.Errorf("mcp server is required")
	}

	policyResource := mcp.NewResource(
		PolicyURI,
		"SQL Policy",
		mcp.WithResourceDescription("Rules a statement must satisfy before it is executed"),
		mcp.WithMIMEType("application/json"),
	)
	s.AddResource(policyResource, handlePolicy)

	deliveryResource := mcp.NewResource(
		DeliveryURI,
		"Export Delivery",
		mcp.WithResourceDescription("Database, SMTP relay and recipient domains used by the export tool"),
		mcp.WithMIMEType("application/json"),
	)
	s.AddResource(deliveryResource, deliveryHandler(settings))

	return nil
}

func handlePolicy(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return jsonContents(request.Params.URI, Policy())
}

func deliveryHandler(settings Settings) mcpserver.ResourceHandlerFunc {
	info := Delivery(settings)
	return func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return jsonContents(request.Params.URI, info)
	}
}

// Policy describes the SQL guard.
func Policy() PolicyInfo {
	return PolicyInfo{
		Action:            guard.ActionSelect,
		RequiredPrefix:    "SELECT",
		ForbiddenKeywords: guard.ForbiddenKeywords(),
		Matching:          "case-insensitive substring",
	}
}

// Delivery builds the delivery view of settings.
func Delivery(settings Settings) DeliveryInfo {
	seen := make(map[string]struct{})
	domains := []string{}
	for _, r := range settings.Recipients {
		d := logging.ExtractDomain(r)
		if d == "" {
			continue
		}
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		domains = append(domains, d)
	}
	sort.Strings(domains)

	return DeliveryInfo{
		DatabaseHost:     settings.DatabaseHost,
		SMTPHost:         settings.SMTPHost,
		SMTPPort:         settings.SMTPPort,
		RecipientCount:   len(settings.Recipients),
		RecipientDomains: domains,
		ScratchDir:       settings.ScratchDir,
		RetainArtifacts:  settings.RetainArtifacts,
	}
}

func jsonContents(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal resource: %w", err)
	}

	return []mcp.ResourceContents{
		&mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

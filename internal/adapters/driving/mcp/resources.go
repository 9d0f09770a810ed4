package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const uriScheme = "askme://"

func (s *Server) registerResources() {
	if s.ports.Tenants != nil {
		s.server.AddResource(&mcp.Resource{
			URI:         uriScheme + "tenants",
			Name:        "tenants",
			Description: "List of all tenants",
			MIMEType:    "application/json",
		}, s.handleTenantsResource)
	}

	if s.ports.FAQs != nil {
		s.server.AddResourceTemplate(&mcp.ResourceTemplate{
			URITemplate: uriScheme + "tenants/{tenantId}/faqs",
			Name:        "tenant-faqs",
			Description: "Question/answer pairs stored for a tenant",
			MIMEType:    "application/json",
		}, s.handleFAQsResource)
	}
}

func (s *Server) handleTenantsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	tenants, err := s.ports.Tenants.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing tenants: %w", err)
	}

	infos := make([]TenantOutput, len(tenants))
	for i, t := range tenants {
		infos[i] = TenantOutput{ID: t.ID, Name: t.Name}
	}
	return jsonResource(req.Params.URI, infos)
}

func (s *Server) handleFAQsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	tenantID := extractTenantID(req.Params.URI)
	if tenantID == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	faqs, err := s.ports.FAQs.ListFAQs(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("listing faqs: %w", err)
	}

	type faqInfo struct {
		ID       string `json:"id"`
		Question string `json:"question"`
		Answer   string `json:"answer"`
	}
	infos := make([]faqInfo, len(faqs))
	for i := range faqs {
		infos[i] = faqInfo{ID: faqs[i].ID, Question: faqs[i].Question, Answer: faqs[i].Answer}
	}
	return jsonResource(req.Params.URI, infos)
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling resource: %w", err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// extractTenantID extracts the tenant ID from askme://tenants/{tenantId}/faqs.
func extractTenantID(uri string) string {
	const prefix = uriScheme + "tenants/"
	const suffix = "/faqs"

	rest, ok := strings.CutPrefix(uri, prefix)
	if !ok {
		return ""
	}
	id, ok := strings.CutSuffix(rest, suffix)
	if !ok || strings.Contains(id, "/") {
		return ""
	}
	return id
}

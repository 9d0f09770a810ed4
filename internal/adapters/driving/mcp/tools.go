package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/askme/internal/core/domain"
	"github.com/custodia-labs/askme/internal/core/services"
)

// FindSimilarInput is the input schema for the find_similar tool.
type FindSimilarInput struct {
	TenantID string `json:"tenant_id" jsonschema:"the tenant whose FAQs are searched"`
	Query    string `json:"query" jsonschema:"the question to match against stored FAQs"`
	TopK     int    `json:"top_k,omitempty" jsonschema:"maximum number of results to return (default 3)"`
}

// FindSimilarOutput is the output schema for the find_similar tool.
type FindSimilarOutput struct {
	Results []ResultOutput `json:"results"`
	Count   int            `json:"count"`
}

// ResultOutput is one retrieved FAQ.
type ResultOutput struct {
	Question string  `json:"question"`
	Answer   string  `json:"answer"`
	Distance float32 `json:"distance"`
}

// AskInput is the input schema for the ask_faq tool.
type AskInput struct {
	TenantID string `json:"tenant_id" jsonschema:"the tenant to ask"`
	Query    string `json:"query" jsonschema:"the question"`
	Mode     string `json:"mode,omitempty" jsonschema:"delivery mode: direct or llm (default: tenant setting)"`
}

// AskOutput is the output schema for the ask_faq tool.
type AskOutput struct {
	Answer  string         `json:"answer"`
	Mode    string         `json:"mode"`
	Results []ResultOutput `json:"results"`
}

// ListTenantsInput is the empty input of list_tenants.
type ListTenantsInput struct{}

// ListTenantsOutput is the output schema for list_tenants.
type ListTenantsOutput struct {
	Tenants []TenantOutput `json:"tenants"`
}

// TenantOutput describes a tenant without its API key.
type TenantOutput struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "find_similar",
		Description: "Find the stored FAQs closest to a question",
	}, s.handleFindSimilar)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ask_faq",
		Description: "Answer a question from a tenant's FAQs",
	}, s.handleAsk)

	if s.ports.Tenants != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "list_tenants",
			Description: "List tenants known to the service",
		}, s.handleListTenants)
	}
}

func (s *Server) handleFindSimilar(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input FindSimilarInput,
) (*mcp.CallToolResult, FindSimilarOutput, error) {
	results, err := s.ports.Retrieval.FindSimilar(ctx, input.TenantID, input.Query, input.TopK)
	if err != nil {
		return nil, FindSimilarOutput{}, err
	}

	out := toResults(results)
	return nil, FindSimilarOutput{Results: out, Count: len(out)}, nil
}

func (s *Server) handleAsk(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AskInput,
) (*mcp.CallToolResult, AskOutput, error) {
	mode := domain.DeliveryMode(input.Mode)
	if mode != "" && !mode.IsValid() {
		return nil, AskOutput{}, fmt.Errorf("%w: delivery mode %q", domain.ErrUnsupportedType, input.Mode)
	}

	resp, err := s.ports.Ask.Ask(ctx, domain.AskRequest{
		TenantID: input.TenantID,
		Query:    input.Query,
		Mode:     mode,
	})
	if err != nil {
		return nil, AskOutput{}, err
	}

	answer, err := services.Collect(resp.Chunks)
	if err != nil {
		return nil, AskOutput{}, err
	}

	return nil, AskOutput{
		Answer:  answer,
		Mode:    resp.Mode.String(),
		Results: toResults(resp.Results),
	}, nil
}

func (s *Server) handleListTenants(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ ListTenantsInput,
) (*mcp.CallToolResult, ListTenantsOutput, error) {
	tenants, err := s.ports.Tenants.List(ctx)
	if err != nil {
		return nil, ListTenantsOutput{}, err
	}

	out := ListTenantsOutput{Tenants: make([]TenantOutput, len(tenants))}
	for i, t := range tenants {
		out.Tenants[i] = TenantOutput{ID: t.ID, Name: t.Name}
	}
	return nil, out, nil
}

func toResults(results []domain.SearchResult) []ResultOutput {
	out := make([]ResultOutput, len(results))
	for i, r := range results {
		out[i] = ResultOutput{Question: r.Question, Answer: r.Answer, Distance: r.Distance}
	}
	return out
}

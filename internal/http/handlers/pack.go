package handlers

import (
	"context"

	"contextapi/internal/service"
)

// PackHandler handles context pack retrieval.
type PackHandler struct {
	retrievalSvc *service.RetrievalService
}

// NewPackHandler creates a new pack handler.
func NewPackHandler(retrievalSvc *service.RetrievalService) *PackHandler {
	return &PackHandler{retrievalSvc: retrievalSvc}
}

// ContextPackInput represents a context pack request.
type ContextPackInput struct {
	Body struct {
		Query       string   `json:"query" minLength:"1" doc:"Retrieval query"`
		Topics      []string `json:"topics,omitempty" doc:"Keep only articles tagged with one of these topics"`
		TokenBudget int      `json:"token_budget,omitempty" minimum:"1" doc:"Approximate token budget for the pack (default 800)"`
		RecencyDays int      `json:"recency_days,omitempty" minimum:"1" doc:"Only consider articles published or ingested in the last N days"`
		MaxItems    int      `json:"max_items,omitempty" minimum:"1" maximum:"20" doc:"Maximum pack items (default 3)"`
	}
}

// ContextPackOutput represents a context pack response.
type ContextPackOutput struct {
	Body service.PackResponse
}

// ContextPack assembles a budgeted context pack for the query.
func (h *PackHandler) ContextPack(ctx context.Context, input *ContextPackInput) (*ContextPackOutput, error) {
	response, err := h.retrievalSvc.ContextPack(ctx, &service.PackRequest{
		Query:       input.Body.Query,
		Topics:      input.Body.Topics,
		TokenBudget: input.Body.TokenBudget,
		RecencyDays: input.Body.RecencyDays,
		MaxItems:    input.Body.MaxItems,
	})
	if err != nil {
		return nil, mapServiceError(err)
	}
	return &ContextPackOutput{Body: *response}, nil
}

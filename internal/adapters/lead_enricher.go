package adapters

import (
	"context"
	"encoding/json"
	"sort"

	"leadflow_backend/internal/enrichment"
	"leadflow_backend/internal/leads/domain"
	"leadflow_backend/internal/leads/ports"
)

// LeadEnricherAdapter adapts the enrichment service for the leads pipeline.
type LeadEnricherAdapter struct {
	svc *enrichment.Service
}

// NewLeadEnricherAdapter wraps svc. A nil service makes every call fail,
// which leaves leads in scraped for a later tick.
func NewLeadEnricherAdapter(svc *enrichment.Service) *LeadEnricherAdapter {
	return &LeadEnricherAdapter{svc: svc}
}

func (a *LeadEnricherAdapter) EnrichLead(ctx context.Context, req ports.EnrichmentRequest) (domain.EnrichInfo, error) {
	result, err := a.svc.Enrich(ctx, enrichment.Input{
		SourceURL: req.SourceURL,
		Fields:    scrapFields(req.ScrapInfo, req.Phone),
	})
	if err != nil {
		return domain.EnrichInfo{}, err
	}
	return domain.EnrichInfo{Summary: result.Summary, TitleGuess: result.TitleGuess}, nil
}

// scrapFields flattens a scrap payload into prompt fields, typed fields
// first and unknown keys in sorted order.
func scrapFields(info domain.ScrapInfo, phone string) []enrichment.Field {
	if info.Kind == domain.PayloadOpaque {
		if len(info.Raw) == 0 {
			return nil
		}
		// BuildPrompt caps every field by runes.
		return []enrichment.Field{{Key: "raw", Value: string(info.Raw)}}
	}

	fields := []enrichment.Field{
		{Key: "title", Value: info.Title},
		{Key: "description", Value: info.Description},
		{Key: "address", Value: info.Address},
		{Key: "phone", Value: phone},
		{Key: "website", Value: info.Website},
	}

	keys := make([]string, 0, len(info.Extra))
	for k := range info.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fields = append(fields, enrichment.Field{Key: k, Value: extraValue(info.Extra[k])})
	}
	return fields
}

func extraValue(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

// Compile-time check.
var _ ports.LeadEnricher = (*LeadEnricherAdapter)(nil)

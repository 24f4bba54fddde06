package events

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"leadflow_backend/platform/logger"

	"github.com/google/uuid"
)

func TestSubscribePipelineLogging(t *testing.T) {
	var out bytes.Buffer
	log := logger.NewWithWriter("production", &out)
	bus := NewInMemoryBus(log)
	SubscribePipelineLogging(bus, log)

	ctx := context.Background()
	leadID := uuid.New()
	published := []Event{
		LeadEnriched{LeadID: leadID, TitleGuess: "Acme Co"},
		LeadEnrichmentFailed{LeadID: leadID, Reason: "llm timeout"},
		LeadEmailVerified{LeadID: leadID, Outcome: "invalid", Status: "failed"},
		StaleClaimsRequeued{Count: 2},
	}
	for _, e := range published {
		if err := bus.PublishSync(ctx, e); err != nil {
			t.Fatalf("publish %s: %v", e.EventName(), err)
		}
	}

	logged := out.String()
	for _, want := range []string{"lead enriched", "lead released for retry", "lead email verified", "stale lead claims requeued", leadID.String()} {
		if !strings.Contains(logged, want) {
			t.Errorf("log output missing %q:\n%s", want, logged)
		}
	}
}

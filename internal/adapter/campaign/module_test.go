package campaign

import (
	"testing"

	"github.com/polkiloo/reviewmart/internal/config"
)

func TestNewClientUsesConfig(t *testing.T) {
	cfg := &config.Config{CampaignServiceAddress: "http://example.com"}
	client, err := newClient(clientParams{Config: cfg, Logger: testLogger()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client == nil {
		t.Fatal("expected client instance")
	}

	if _, err := newClient(clientParams{Config: &config.Config{}, Logger: testLogger()}); err == nil {
		t.Fatal("expected error for empty address")
	}
}

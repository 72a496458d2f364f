package campaign

import (
	"fmt"
	"log/slog"

	"go.uber.org/fx"

	"github.com/polkiloo/reviewmart/internal/config"
)

// Module provides the campaign service Client.
var Module = fx.Module("campaign", fx.Provide(newClient))

type clientParams struct {
	fx.In

	Config *config.Config
	Logger *slog.Logger
}

func newClient(p clientParams) (Client, error) {
	client, err := NewHTTPClient(p.Config.CampaignServiceAddress, p.Logger)
	if err != nil {
		return nil, fmt.Errorf("campaign client: %w", err)
	}
	p.Logger.Debug("campaign client ready", slog.String("base_url", client.baseURL.String()))
	return client, nil
}

package campaign

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"time"

	"github.com/polkiloo/reviewmart/internal/domain/model"
)

// ErrCampaignNotFound indicates the campaign service doesn't know the campaign.
var ErrCampaignNotFound = errors.New("campaign not found")

// TooManyRequestsError represents rate limiting signal from the campaign service.
type TooManyRequestsError struct {
	RetryAfter time.Duration
}

func (e TooManyRequestsError) Error() string {
	return fmt.Sprintf("too many requests, retry after %s", e.RetryAfter)
}

// Client exposes operations to query the campaign service.
type Client interface {
	Fetch(ctx context.Context, campaignID int64) (*model.Campaign, error)
}

// HTTPClient implements Client via HTTP API.
type HTTPClient struct {
	baseURL    *url.URL
	httpClient *http.Client
	logger     *slog.Logger
}

type response struct {
	ID           int64  `json:"id"`
	Title        string `json:"title"`
	RewardPoints *int64 `json:"reward_points"`
}

// NewHTTPClient creates HTTP campaign client with default timeout.
func NewHTTPClient(baseURL string, logger *slog.Logger) (*HTTPClient, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse campaign url: %w", err)
	}
	if !parsed.IsAbs() {
		return nil, fmt.Errorf("campaign url must be absolute")
	}
	return &HTTPClient{
		baseURL: parsed,
		logger:  logger,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}, nil
}

// Fetch loads the campaign whose reward is snapshotted on approval.
func (c *HTTPClient) Fetch(ctx context.Context, campaignID int64) (*model.Campaign, error) {
	endpoint := *c.baseURL
	endpoint.Path = path.Join(endpoint.Path, "/api/campaigns/", strconv.FormatInt(campaignID, 10))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		var data response
		if err := json.Unmarshal(body, &data); err != nil {
			return nil, err
		}
		if data.RewardPoints == nil || *data.RewardPoints <= 0 {
			return nil, fmt.Errorf("campaign %d has no positive reward", campaignID)
		}
		return &model.Campaign{ID: campaignID, Title: data.Title, RewardPoints: *data.RewardPoints}, nil
	case http.StatusNotFound:
		return nil, ErrCampaignNotFound
	case http.StatusTooManyRequests:
		retryAfter := parseRetryAfter(resp.Header.Get("Retry-After"))
		return nil, TooManyRequestsError{RetryAfter: retryAfter}
	default:
		body, _ := io.ReadAll(resp.Body)
		c.logger.Error("campaign request failed", slog.Int("status", resp.StatusCode), slog.String("body", string(body)))
		return nil, fmt.Errorf("campaign service error: %s", resp.Status)
	}
}

func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 5 * time.Second
	}
	if seconds, err := strconv.Atoi(header); err == nil {
		return time.Duration(seconds) * time.Second
	}
	if t, err := http.ParseTime(header); err == nil {
		return time.Until(t)
	}
	return 5 * time.Second
}

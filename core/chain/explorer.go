package chain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/allegro/bigcache/v3"
	"github.com/go-resty/resty/v2"
)

// Explorer faults that callers are expected to branch on. Rate limiting is
// retryable by re-pushing the enclosing task with a delay; an unverified
// contract never becomes verified by retrying.
var (
	ErrRateLimited = errors.New("explorer rate limit exceeded")
	ErrNotVerified = errors.New("contract source code not verified")
)

const (
	rateLimitMessage   = "Max rate limit reached, please use API Key for higher rate limit"
	notVerifiedMessage = "Contract source code not verified"
)

type explorerAbiResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Result  string `json:"result"`
}

// Explorer is an etherscan compatible API client. ABI responses are cached
// in-process since verified ABIs are immutable and the upstream rate limit
// is tight.
type Explorer struct {
	client *resty.Client
	cache  *bigcache.BigCache
}

func NewExplorer(apiURL string) (*Explorer, error) {
	cache, err := bigcache.New(context.Background(), bigcache.DefaultConfig(12*time.Hour))
	if err != nil {
		return nil, err
	}

	return &Explorer{
		client: resty.New().SetBaseURL(apiURL).SetTimeout(30 * time.Second),
		cache:  cache,
	}, nil
}

// GetContractABI fetches a verified contract's ABI JSON
func (e *Explorer) GetContractABI(ctx context.Context, address string) (string, error) {
	if cached, err := e.cache.Get(address); err == nil {
		return string(cached), nil
	}

	var body explorerAbiResponse
	resp, err := e.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"module":  "contract",
			"action":  "getabi",
			"address": address,
		}).
		SetResult(&body).
		Get("")
	if err != nil {
		return "", fmt.Errorf("explorer getabi %s: %w", address, err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("explorer getabi %s: http %d", address, resp.StatusCode())
	}

	if body.Status == "0" {
		switch body.Result {
		case rateLimitMessage:
			return "", ErrRateLimited
		case notVerifiedMessage:
			return "", ErrNotVerified
		}
	}
	if body.Status != "1" {
		return "", fmt.Errorf("explorer getabi %s: status %q message %q", address, body.Status, body.Result)
	}

	// cache write is best effort
	_ = e.cache.Set(address, []byte(body.Result))

	return body.Result, nil
}

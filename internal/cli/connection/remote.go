package connection

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/url"
	"strconv"

	"github.com/yndnr/bookcache/internal/core/domain"
	"github.com/yndnr/bookcache/internal/core/service"
	"github.com/yndnr/bookcache/internal/storage"
)

// RemoteCache drives a bookcache-server through its HTTP API.
type RemoteCache struct {
	client *HTTPClient
}

// NewRemoteCache returns a cache backed by client.
func NewRemoteCache(client *HTTPClient) *RemoteCache {
	return &RemoteCache{client: client}
}

// Store sends PUT /v1/entries/{key}. Expiry is rounded up to whole minutes.
func (c *RemoteCache) Store(ctx context.Context, key string, data any, dataType string, opts ...service.StoreOption) service.StoreResult {
	var o service.StoreOptions
	for _, opt := range opts {
		opt(&o)
	}

	body, err := json.Marshal(data)
	if err != nil {
		return storeFailure(domain.ErrSerialization.WithCause(err))
	}

	q := url.Values{}
	if dataType != "" {
		q.Set("type", dataType)
	}
	if o.Expiry > 0 {
		q.Set("expiry_minutes", strconv.Itoa(int(math.Ceil(o.Expiry.Minutes()))))
	}
	if o.RetryAttempts > 0 {
		q.Set("retry_attempts", strconv.Itoa(o.RetryAttempts))
	}

	resp, err := c.client.Put(ctx, entryPath(key, q), body)
	if err != nil {
		return storeFailure(err)
	}

	var res service.StoreResult
	if err := ParseResponse(resp, &res); err != nil {
		return storeFailure(remoteError(err))
	}
	return res
}

// Retrieve sends GET /v1/entries/{key}.
func (c *RemoteCache) Retrieve(ctx context.Context, key, expectedDataType string) service.RetrieveResult {
	q := url.Values{}
	if expectedDataType != "" {
		q.Set("type", expectedDataType)
	}

	resp, err := c.client.Get(ctx, entryPath(key, q))
	if err != nil {
		return service.RetrieveResult{Error: err.Error(), Err: err}
	}

	var res service.RetrieveResult
	if err := ParseResponse(resp, &res); err != nil {
		err = remoteError(err)
		return service.RetrieveResult{Error: domain.UserMessage(err), Err: err}
	}
	return res
}

// Remove sends DELETE /v1/entries/{key}.
func (c *RemoteCache) Remove(ctx context.Context, key string) error {
	resp, err := c.client.Delete(ctx, entryPath(key, nil))
	if err != nil {
		return err
	}
	return remoteError(ParseResponse(resp, nil))
}

// ClearAll sends DELETE /v1/entries.
func (c *RemoteCache) ClearAll(ctx context.Context) error {
	resp, err := c.client.Delete(ctx, "/v1/entries")
	if err != nil {
		return err
	}
	return remoteError(ParseResponse(resp, nil))
}

// Stats sends GET /v1/stats.
func (c *RemoteCache) Stats(ctx context.Context) (service.Stats, error) {
	resp, err := c.client.Get(ctx, "/v1/stats")
	if err != nil {
		return nil, err
	}

	var stats service.Stats
	if err := ParseResponse(resp, &stats); err != nil {
		return nil, remoteError(err)
	}
	return stats, nil
}

// purgeResponse mirrors the server's purge body.
type purgeResponse struct {
	Removed int `json:"removed"`
	Tiers   map[domain.Tier]struct {
		Backend string `json:"backend"`
		Corrupt int    `json:"corrupt"`
		Expired int    `json:"expired"`
		Failed  int    `json:"failed"`
	} `json:"tiers"`
}

func (p purgeResponse) report() service.PurgeReport {
	report := make(service.PurgeReport, len(p.Tiers))
	for tier, t := range p.Tiers {
		report[tier] = storage.EvictionReport{
			Backend: t.Backend,
			Corrupt: t.Corrupt,
			Expired: t.Expired,
			Failed:  t.Failed,
		}
	}
	return report
}

// PurgeExpired sends POST /v1/maintenance/purge. On a partial failure the
// report of what was removed is returned with the error.
func (c *RemoteCache) PurgeExpired(ctx context.Context) (service.PurgeReport, error) {
	resp, err := c.client.Post(ctx, "/v1/maintenance/purge", nil)
	if err != nil {
		return nil, err
	}

	var body purgeResponse
	if resp.StatusCode >= http.StatusBadRequest {
		err := ParseErrorDetails(resp, &body)
		return body.report(), remoteError(err)
	}
	if err := ParseResponse(resp, &body); err != nil {
		return nil, err
	}
	return body.report(), nil
}

func entryPath(key string, q url.Values) string {
	p := "/v1/entries/" + url.PathEscape(key)
	if len(q) > 0 {
		p += "?" + q.Encode()
	}
	return p
}

func storeFailure(err error) service.StoreResult {
	return service.StoreResult{Error: domain.UserMessage(err), Err: err}
}

// remoteError maps an *APIError back to the matching domain error so
// callers can use errors.Is against the domain sentinels.
func remoteError(err error) error {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.DomainError()
	}
	return err
}

package service

import (
	"encoding/json"

	"github.com/yndnr/bookcache/internal/core/domain"
	"github.com/yndnr/bookcache/internal/storage"
)

// StoreResult is the outcome of Store.
type StoreResult struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`

	// Sources lists the tiers that accepted the write.
	Sources []domain.Tier `json:"sources,omitempty"`

	// Err carries the classified error behind Error.
	Err error `json:"-"`
}

// RetrieveResult is the outcome of Retrieve.
type RetrieveResult struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`

	// Recovered is set when the durable tier served the read.
	Recovered bool        `json:"recovered,omitempty"`
	Source    domain.Tier `json:"source,omitempty"`

	Err error `json:"-"`
}

// Decode unmarshals the retrieved payload into v.
func (r RetrieveResult) Decode(v any) error {
	if !r.Success {
		return r.Err
	}
	return json.Unmarshal(r.Data, v)
}

// TierStats describes one tier.
type TierStats struct {
	Backend   string `json:"backend"`
	Used      int64  `json:"used"`
	Available int64  `json:"available"`
	Capacity  int64  `json:"capacity"`

	// ItemCount counts present, parseable, non-expired entries.
	ItemCount int `json:"itemCount"`

	Expired int `json:"expired"`
	Corrupt int `json:"corrupt"`
}

// Stats maps each tier to its statistics.
type Stats map[domain.Tier]TierStats

// PurgeReport maps each tier to what PurgeExpired removed from it.
type PurgeReport map[domain.Tier]storage.EvictionReport

func failStore(err error) StoreResult {
	return StoreResult{Error: domain.UserMessage(err), Err: err}
}

func failRetrieve(err error) RetrieveResult {
	return RetrieveResult{Error: domain.UserMessage(err), Err: err}
}

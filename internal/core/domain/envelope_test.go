package domain

import (
	"strings"
	"testing"
	"time"
)

func TestGenerateEnvelopeID(t *testing.T) {
	now := time.Now()
	seen := make(map[string]bool)

	for i := 0; i < 100; i++ {
		id, err := GenerateEnvelopeID(now)
		if err != nil {
			t.Fatalf("GenerateEnvelopeID() error = %v", err)
		}
		if !strings.HasPrefix(id, EnvelopeIDPrefix) {
			t.Errorf("id %q missing prefix %q", id, EnvelopeIDPrefix)
		}
		if len(id) != len(EnvelopeIDPrefix)+26 {
			t.Errorf("id length = %d, want %d", len(id), len(EnvelopeIDPrefix)+26)
		}
		if id != strings.ToLower(id) {
			t.Errorf("id %q should be lowercase", id)
		}
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
	}
}

func TestMetadata_IsExpired(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)
	m := Metadata{Timestamp: now.UnixMilli(), ExpiresAt: now.Add(time.Minute).UnixMilli()}

	if m.IsExpired(now) {
		t.Error("should not be expired at creation")
	}
	if m.IsExpired(now.Add(59 * time.Second)) {
		t.Error("should not be expired before expiresAt")
	}
	if !m.IsExpired(now.Add(time.Minute)) {
		t.Error("should be expired exactly at expiresAt")
	}
}

func TestMetadata_Complete(t *testing.T) {
	full := Metadata{
		ID:        "env-1",
		Version:   EnvelopeVersion,
		Timestamp: 1,
		ExpiresAt: 2,
		Checksum:  "abcd",
		DataType:  "priceQuote",
	}
	if !full.Complete() {
		t.Error("fully populated metadata should be complete")
	}

	missing := []func(m *Metadata){
		func(m *Metadata) { m.ID = "" },
		func(m *Metadata) { m.Version = "" },
		func(m *Metadata) { m.Timestamp = 0 },
		func(m *Metadata) { m.ExpiresAt = 0 },
		func(m *Metadata) { m.Checksum = "" },
		func(m *Metadata) { m.DataType = "" },
	}
	for i, mutate := range missing {
		m := full
		mutate(&m)
		if m.Complete() {
			t.Errorf("case %d: metadata with missing field reported complete", i)
		}
	}
}

func TestTiers(t *testing.T) {
	if len(Tiers) != 2 || Tiers[0] != TierVolatile || Tiers[1] != TierDurable {
		t.Errorf("Tiers = %v, want [volatile durable]", Tiers)
	}
	if TierDurable.String() != "durable" {
		t.Errorf("String() = %q", TierDurable.String())
	}
}

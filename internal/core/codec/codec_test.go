package codec

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/yndnr/bookcache/internal/core/domain"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestCodec() (*Codec, *fakeClock) {
	clk := &fakeClock{now: time.UnixMilli(1_700_000_000_000)}
	return New(WithClock(clk.Now)), clk
}

func mustEncode(t *testing.T, c *Codec, payload any, dataType string, expiry time.Duration) []byte {
	t.Helper()
	env, err := c.Encode(payload, dataType, EncodeOptions{Expiry: expiry})
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	raw, err := c.Marshal(env)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	return raw
}

func TestEncode_Metadata(t *testing.T) {
	c, clk := newTestCodec()

	env, err := c.Encode(map[string]int{"price": 500}, "priceQuote", EncodeOptions{Expiry: 30 * time.Minute})
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	m := env.Metadata
	if !strings.HasPrefix(m.ID, domain.EnvelopeIDPrefix) {
		t.Errorf("ID = %q, want prefix %q", m.ID, domain.EnvelopeIDPrefix)
	}
	if m.Version != domain.EnvelopeVersion {
		t.Errorf("Version = %q, want %q", m.Version, domain.EnvelopeVersion)
	}
	if m.Timestamp != clk.now.UnixMilli() {
		t.Errorf("Timestamp = %d, want %d", m.Timestamp, clk.now.UnixMilli())
	}
	if want := clk.now.Add(30 * time.Minute).UnixMilli(); m.ExpiresAt != want {
		t.Errorf("ExpiresAt = %d, want %d", m.ExpiresAt, want)
	}
	if m.DataType != "priceQuote" {
		t.Errorf("DataType = %q", m.DataType)
	}
	if m.Checksum != Checksum([]byte(`{"price":500}`)) {
		t.Errorf("Checksum = %q, want checksum of compact payload", m.Checksum)
	}
}

func TestEncode_DefaultExpiry(t *testing.T) {
	c, clk := newTestCodec()

	env, err := c.Encode("x", "t", EncodeOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if want := clk.now.Add(domain.DefaultExpiry).UnixMilli(); env.Metadata.ExpiresAt != want {
		t.Errorf("ExpiresAt = %d, want %d", env.Metadata.ExpiresAt, want)
	}
}

func TestEncode_FreshIDPerWrite(t *testing.T) {
	c, _ := newTestCodec()

	a, _ := c.Encode("x", "t", EncodeOptions{})
	b, _ := c.Encode("x", "t", EncodeOptions{})
	if a.Metadata.ID == b.Metadata.ID {
		t.Error("two encodes produced the same id")
	}
}

func TestEncode_Errors(t *testing.T) {
	c, _ := newTestCodec()

	if _, err := c.Encode(make(chan int), "t", EncodeOptions{}); !errors.Is(err, domain.ErrSerialization) {
		t.Errorf("unserializable payload: err = %v, want ErrSerialization", err)
	}
	if _, err := c.Encode("x", "", EncodeOptions{}); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("empty data type: err = %v, want ErrInvalidArgument", err)
	}
}

func TestDecode_RoundTrip(t *testing.T) {
	c, _ := newTestCodec()
	raw := mustEncode(t, c, map[string]any{"flight": "LH400", "seats": []string{"12A", "12B"}}, "seatMap", time.Hour)

	env, err := c.Decode(raw, "seatMap")
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	var got struct {
		Flight string   `json:"flight"`
		Seats  []string `json:"seats"`
	}
	if err := json.Unmarshal(env.Data, &got); err != nil {
		t.Fatal(err)
	}
	if got.Flight != "LH400" || len(got.Seats) != 2 {
		t.Errorf("payload = %+v", got)
	}
}

func TestDecode_AnyTypeWhenNoneExpected(t *testing.T) {
	c, _ := newTestCodec()
	raw := mustEncode(t, c, 1, "bookingDraft", time.Hour)

	if _, err := c.Decode(raw, ""); err != nil {
		t.Errorf("Decode() without expected type error = %v", err)
	}
}

func TestDecode_Failures(t *testing.T) {
	c, clk := newTestCodec()
	valid := mustEncode(t, c, map[string]int{"price": 500}, "priceQuote", 30*time.Minute)

	tamper := func(mutate func(m map[string]any)) []byte {
		var doc map[string]any
		if err := json.Unmarshal(valid, &doc); err != nil {
			t.Fatal(err)
		}
		mutate(doc)
		out, _ := json.Marshal(doc)
		return out
	}

	tests := []struct {
		name     string
		raw      []byte
		expected string
		advance  time.Duration
		want     *domain.DomainError
	}{
		{
			name: "not json",
			raw:  []byte("{not json"),
			want: domain.ErrParseFailure,
		},
		{
			name: "empty",
			raw:  []byte("  "),
			want: domain.ErrParseFailure,
		},
		{
			name: "missing metadata",
			raw:  []byte(`{"data":{"price":500}}`),
			want: domain.ErrStructureInvalid,
		},
		{
			name: "missing data",
			raw:  tamper(func(m map[string]any) { delete(m, "data") }),
			want: domain.ErrStructureInvalid,
		},
		{
			name: "missing checksum",
			raw: tamper(func(m map[string]any) {
				delete(m["metadata"].(map[string]any), "checksum")
			}),
			want: domain.ErrStructureInvalid,
		},
		{
			name: "tampered checksum",
			raw: tamper(func(m map[string]any) {
				m["metadata"].(map[string]any)["checksum"] = "deadbeef"
			}),
			want: domain.ErrChecksumMismatch,
		},
		{
			name: "tampered payload",
			raw: tamper(func(m map[string]any) {
				m["data"] = map[string]int{"price": 1}
			}),
			want: domain.ErrChecksumMismatch,
		},
		{
			name:     "type mismatch",
			raw:      valid,
			expected: "seatMap",
			want:     domain.ErrTypeMismatch,
		},
		{
			name:    "expired exactly at expiresAt",
			raw:     valid,
			advance: 30 * time.Minute,
			want:    domain.ErrExpired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start := clk.now
			defer func() { clk.now = start }()
			clk.Advance(tt.advance)

			_, err := c.Decode(tt.raw, tt.expected)
			if !errors.Is(err, tt.want) {
				t.Errorf("Decode() error = %v, want %v", err, tt.want)
			}
			if !domain.IsEnvelopeError(err) {
				t.Errorf("Decode() error %v should be an envelope error", err)
			}
		})
	}
}

func TestDecode_TypeMismatchMessage(t *testing.T) {
	c, _ := newTestCodec()
	raw := mustEncode(t, c, 1, "priceQuote", time.Hour)

	_, err := c.Decode(raw, "seatMap")
	if got := domain.UserMessage(err); got != "Data type mismatch: expected seatMap, got priceQuote" {
		t.Errorf("message = %q", got)
	}
}

func TestDecode_ToleratesReformattedPayload(t *testing.T) {
	c, _ := newTestCodec()
	env, err := c.Encode(map[string]int{"price": 500}, "priceQuote", EncodeOptions{})
	if err != nil {
		t.Fatal(err)
	}

	header, err := json.Marshal(env.Metadata)
	if err != nil {
		t.Fatal(err)
	}
	raw := []byte(`{"metadata":` + string(header) + `,"data":{ "price" :  500 }}`)

	if _, err := c.Decode(raw, "priceQuote"); err != nil {
		t.Errorf("whitespace-only change should not fail the checksum: %v", err)
	}
}

func TestEncodeRaw(t *testing.T) {
	c, clk := newTestCodec()
	expiresAt := clk.now.Add(10 * time.Minute)

	env, err := c.EncodeRaw(json.RawMessage(`{"price": 500}`), "priceQuote", expiresAt)
	if err != nil {
		t.Fatalf("EncodeRaw() error = %v", err)
	}
	if env.Metadata.ExpiresAt != expiresAt.UnixMilli() {
		t.Errorf("ExpiresAt = %d, want %d", env.Metadata.ExpiresAt, expiresAt.UnixMilli())
	}
	if string(env.Data) != `{"price":500}` {
		t.Errorf("Data = %s, want compact payload", env.Data)
	}

	if _, err := c.EncodeRaw(json.RawMessage(`1`), "t", clk.now); !errors.Is(err, domain.ErrExpired) {
		t.Errorf("EncodeRaw() with past expiry error = %v, want ErrExpired", err)
	}
}

func TestInspect(t *testing.T) {
	c, clk := newTestCodec()
	raw := mustEncode(t, c, "x", "bookingDraft", time.Minute)

	clk.Advance(time.Hour)
	m, err := c.Inspect(raw)
	if err != nil {
		t.Fatalf("Inspect() should not check expiry, got %v", err)
	}
	if m.DataType != "bookingDraft" {
		t.Errorf("DataType = %q", m.DataType)
	}

	if _, err := c.Inspect([]byte("garbage")); !errors.Is(err, domain.ErrParseFailure) {
		t.Errorf("Inspect(garbage) error = %v, want ErrParseFailure", err)
	}
}

func TestChecksum(t *testing.T) {
	a := Checksum([]byte(`{"price":500}`))
	b := Checksum([]byte(`{"price":501}`))

	if len(a) != 8 {
		t.Errorf("checksum length = %d, want 8", len(a))
	}
	if a == b {
		t.Error("different payloads should hash differently")
	}
	if a != Checksum([]byte(`{"price":500}`)) {
		t.Error("checksum should be deterministic")
	}
}

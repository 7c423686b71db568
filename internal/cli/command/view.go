package command

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/yndnr/bookcache/internal/cli/output"
	"github.com/yndnr/bookcache/internal/core/domain"
	"github.com/yndnr/bookcache/internal/core/service"
)

// tierOrder sorts tiers volatile first. Unknown tiers sort last by name.
func tierOrder[V any](m map[domain.Tier]V) []domain.Tier {
	rank := map[domain.Tier]int{domain.TierVolatile: 0, domain.TierDurable: 1}
	tiers := make([]domain.Tier, 0, len(m))
	for t := range m {
		tiers = append(tiers, t)
	}
	sort.Slice(tiers, func(i, j int) bool {
		ri, iok := rank[tiers[i]]
		rj, jok := rank[tiers[j]]
		switch {
		case iok && jok:
			return ri < rj
		case iok != jok:
			return iok
		default:
			return tiers[i] < tiers[j]
		}
	})
	return tiers
}

// entryView is the result of put and get.
type entryView struct {
	Key       string          `json:"key"`
	Type      string          `json:"type,omitempty"`
	Source    domain.Tier     `json:"source,omitempty"`
	Sources   []domain.Tier   `json:"sources,omitempty"`
	Recovered bool            `json:"recovered,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

func (v entryView) Table(wide bool) *output.Table {
	t := &output.Table{}
	if v.Data != nil {
		t.SetHeaders("KEY", "SOURCE", "DATA")
		source := string(v.Source)
		if v.Recovered {
			source += " (recovered)"
		}
		t.AddRow(v.Key, source, string(v.Data))
		return t
	}

	t.SetHeaders("KEY", "STORED_IN")
	tiers := make([]string, len(v.Sources))
	for i, s := range v.Sources {
		tiers[i] = string(s)
	}
	stored := "-"
	if len(tiers) > 0 {
		stored = strings.Join(tiers, ",")
	}
	t.AddRow(v.Key, stored)
	return t
}

// statsView renders service.Stats one row per tier.
type statsView service.Stats

func (v statsView) Table(wide bool) *output.Table {
	t := &output.Table{}
	t.SetHeaders("TIER", "BACKEND", "ITEMS", "USED", "CAPACITY", "AVAILABLE")
	if wide {
		t.Headers = append(t.Headers, "EXPIRED", "CORRUPT")
	}

	for _, tier := range tierOrder(v) {
		s := v[tier]
		row := []string{
			string(tier),
			s.Backend,
			strconv.Itoa(s.ItemCount),
			humanize.IBytes(uint64(s.Used)),
			humanize.IBytes(uint64(s.Capacity)),
			humanize.IBytes(uint64(s.Available)),
		}
		if wide {
			row = append(row, strconv.Itoa(s.Expired), strconv.Itoa(s.Corrupt))
		}
		t.AddRow(row...)
	}
	return t
}

// purgeView renders a service.PurgeReport one row per tier.
type purgeView service.PurgeReport

func (v purgeView) Table(bool) *output.Table {
	t := &output.Table{}
	t.SetHeaders("TIER", "BACKEND", "EXPIRED", "CORRUPT", "FAILED")
	for _, tier := range tierOrder(v) {
		r := v[tier]
		t.AddRow(string(tier), r.Backend,
			strconv.Itoa(r.Expired), strconv.Itoa(r.Corrupt), strconv.Itoa(r.Failed))
	}
	return t
}

// purgeSummary is the JSON and YAML shape of a purge.
type purgeSummary struct {
	Removed int                       `json:"removed"`
	Tiers   map[domain.Tier]purgeTier `json:"tiers"`
}

type purgeTier struct {
	Backend string `json:"backend"`
	Expired int    `json:"expired"`
	Corrupt int    `json:"corrupt"`
	Failed  int    `json:"failed"`
}

func (v purgeView) summary() purgeSummary {
	s := purgeSummary{Tiers: make(map[domain.Tier]purgeTier, len(v))}
	for tier, r := range v {
		s.Removed += r.Removed()
		s.Tiers[tier] = purgeTier{Backend: r.Backend, Expired: r.Expired, Corrupt: r.Corrupt, Failed: r.Failed}
	}
	return s
}

package config

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/theirongolddev/ralphopt/internal/model"
)

// TierPricing holds per-million-token prices for one capability tier.
type TierPricing struct {
	InputPerMTok  decimal.Decimal
	OutputPerMTok decimal.Decimal
}

// Cost returns the dollar cost of the given token counts.
func (p TierPricing) Cost(inputTokens, outputTokens int64) decimal.Decimal {
	in := decimal.NewFromInt(inputTokens).Mul(p.InputPerMTok)
	out := decimal.NewFromInt(outputTokens).Mul(p.OutputPerMTok)
	return in.Add(out).Shift(-6)
}

// PricingTable maps capability tiers to prices.
type PricingTable struct {
	Top   TierPricing
	Mid   TierPricing
	Cheap TierPricing
}

// DefaultPricing returns list prices: top-tier (Opus 4.1 class) and
// cheap-tier (Haiku 3.5 class). Mid is informational only.
func DefaultPricing() PricingTable {
	return PricingTable{
		Top: TierPricing{
			InputPerMTok:  decimal.NewFromInt(15),
			OutputPerMTok: decimal.NewFromInt(75),
		},
		Mid: TierPricing{
			InputPerMTok:  decimal.NewFromInt(3),
			OutputPerMTok: decimal.NewFromInt(15),
		},
		Cheap: TierPricing{
			InputPerMTok:  decimal.RequireFromString("0.80"),
			OutputPerMTok: decimal.NewFromInt(4),
		},
	}
}

// ForTier returns the prices used to bill a subagent of the given tier.
// Only the cheap tier gets its own rate; every other tier, mid included,
// is billed at top rates.
func (t PricingTable) ForTier(tier model.AgentTier) TierPricing {
	if tier == model.TierCheap {
		return t.Cheap
	}
	return t.Top
}

// PricingOverrides allows user-defined prices per tier.
type PricingOverrides struct {
	Top   *TierPricingOverride `toml:"top,omitempty"`
	Mid   *TierPricingOverride `toml:"mid,omitempty"`
	Cheap *TierPricingOverride `toml:"cheap,omitempty"`
}

// TierPricingOverride holds optional per-tier price overrides.
type TierPricingOverride struct {
	InputPerMTok  *float64 `toml:"input_per_mtok,omitempty"`
	OutputPerMTok *float64 `toml:"output_per_mtok,omitempty"`
}

func (o *TierPricingOverride) apply(p *TierPricing) {
	if o == nil {
		return
	}
	if o.InputPerMTok != nil {
		p.InputPerMTok = decimal.NewFromFloat(*o.InputPerMTok)
	}
	if o.OutputPerMTok != nil {
		p.OutputPerMTok = decimal.NewFromFloat(*o.OutputPerMTok)
	}
}

// PricingTable returns the default prices with any configured overrides applied.
func (c Config) PricingTable() PricingTable {
	t := DefaultPricing()
	c.Pricing.Top.apply(&t.Top)
	c.Pricing.Mid.apply(&t.Mid)
	c.Pricing.Cheap.apply(&t.Cheap)
	return t
}

// NormalizeModelName drops a trailing release date from a model id, so
// "claude-haiku-4-5-20251001" prints as "claude-haiku-4-5".
func NormalizeModelName(raw string) string {
	i := strings.LastIndexByte(raw, '-')
	if i <= 0 {
		return raw
	}
	suffix := raw[i+1:]
	if len(suffix) < 8 || strings.Trim(suffix, "0123456789") != "" {
		return raw
	}
	return raw[:i]
}

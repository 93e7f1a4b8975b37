package pricing

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/seaward/offer-service/internal/types"
)

// SignatureVersion changes whenever the signature input format changes
const SignatureVersion = 1

// unknownSentinel marks a sold-out or unparsable price in the signature.
// It must differ from any numeric rendering so "sold out" never collides with 0.
const unknownSentinel = "N"

// Signature computes a deterministic content hash of a pricing snapshot.
// It is independent of map iteration order and changes on any price, currency or
// tax difference.
func Signature(pricing map[string]types.StateroomPrice, taxes types.Money) string {
	codes := make([]string, 0, len(pricing))
	for code := range pricing {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "v%d\n", SignatureVersion)
	for _, code := range codes {
		p := pricing[code]
		fmt.Fprintf(&buf, "%s:%s:%s\n", code, moneyToken(p.Price), p.Currency)
	}
	fmt.Fprintf(&buf, "taxes:%s\n", moneyToken(taxes))

	hash := sha256.Sum256(buf.Bytes())
	return hex.EncodeToString(hash[:])
}

func moneyToken(m types.Money) string {
	if v, ok := m.Float(); ok {
		return strconv.FormatFloat(v, 'g', -1, 64)
	}
	return unknownSentinel
}

// TaxesPerPerson coerces a taxes field to a per-person amount. Unparseable → 0.
func TaxesPerPerson(taxes types.Money) float64 {
	if v, ok := taxes.Float(); ok {
		return v
	}
	if taxes.Kind == types.MoneyRaw {
		if v, err := types.ParseAmount(taxes.Raw); err == nil {
			return v
		}
	}
	return 0
}

// Derive computes dual-occupancy category minima, dual taxes and the upgrade matrix.
// It is a pure function of its inputs.
func Derive(pricing map[string]types.StateroomPrice, taxes types.Money, now time.Time) *types.PricingDerived {
	minima := make(map[types.Category]*float64, len(types.Categories))
	for _, cat := range types.Categories {
		minima[cat] = nil
	}

	currencies := make(map[string]int)
	for code, p := range pricing {
		if p.Code != "" {
			code = p.Code
		}
		cat, ok := NormalizeCode(code)
		if !ok {
			continue
		}
		perPerson, ok := p.Price.Float()
		if !ok {
			continue
		}
		dual := perPerson * 2
		if cur := minima[cat]; cur == nil || dual < *cur {
			minima[cat] = &dual
		}
		if p.Currency != "" {
			currencies[p.Currency]++
		}
	}

	return &types.PricingDerived{
		Categories:       minima,
		TaxesAndFeesDual: TaxesPerPerson(taxes) * 2,
		BaseCurrency:     dominantCurrency(currencies),
		UpgradeDelta:     upgradeMatrix(minima),
		ComputedAt:       now,
		Signature:        Signature(pricing, taxes),
	}
}

// DeriveIfChanged returns prev when its signature still matches, otherwise a fresh derivation
func DeriveIfChanged(prev *types.PricingDerived, pricing map[string]types.StateroomPrice, taxes types.Money, now time.Time) (*types.PricingDerived, bool) {
	if prev != nil && prev.Signature == Signature(pricing, taxes) {
		return prev, false
	}
	return Derive(pricing, taxes, now), true
}

// upgradeMatrix builds delta[from][to] = max(0, min[to]-min[from]); nil when either is unknown
func upgradeMatrix(minima map[types.Category]*float64) map[types.Category]map[types.Category]*float64 {
	matrix := make(map[types.Category]map[types.Category]*float64, len(types.Categories))
	for _, from := range types.Categories {
		row := make(map[types.Category]*float64, len(types.Categories))
		for _, to := range types.Categories {
			a, b := minima[from], minima[to]
			if a == nil || b == nil {
				row[to] = nil
				continue
			}
			delta := *b - *a
			if delta < 0 {
				delta = 0
			}
			row[to] = &delta
		}
		matrix[from] = row
	}
	return matrix
}

func dominantCurrency(counts map[string]int) string {
	best, bestN := "", 0
	for cur, n := range counts {
		if n > bestN || (n == bestN && cur < best) {
			best, bestN = cur, n
		}
	}
	return best
}

// Package nutrition implements the sugar model: how much sugar a scanned
// product carries per serving, and how much sugar a user avoids by choosing
// a low-sugar product over the reference sugary drink.
package nutrition

import (
	"math"
	"strconv"

	"github.com/sugarswap/sugarswap-go/internal/domain/entities/catalog"
	"github.com/sugarswap/sugarswap-go/pkg/config"
)

// Model holds the constants of the sugar calculation. All calculations are
// pure functions of a product and these constants.
type Model struct {
	NemesisSugarPer100ml float64 // Sugar density of the reference sugary drink
	DefaultServingMl     float64 // Assumed serving when the product reports none
	SugarFreeThreshold   float64 // g/100ml at or below which a product counts as sugar-free
	SugarCubeGrams       float64 // Grams of sugar represented by one cube
	DailyRecommended     float64 // Daily recommended sugar intake in grams
}

// DefaultModel returns the model configured from the environment
func DefaultModel() Model {
	return Model{
		NemesisSugarPer100ml: config.NemesisSugarPer100ml,
		DefaultServingMl:     config.DefaultServingMl,
		SugarFreeThreshold:   config.SugarFreeThreshold,
		SugarCubeGrams:       config.SugarCubeGrams,
		DailyRecommended:     config.DailyRecommendedSugar,
	}
}

// ServingVolume determines the serving size in ml for a product. Numeric
// product quantity wins, then serving quantity, then the leading number of
// the display quantity string ("330 ml"). A product reporting nothing
// usable gets the default serving.
func (m Model) ServingVolume(p *catalog.Product) float64 {
	if v := p.ProductQuantity.Float(); v > 0 {
		return v
	}
	if v := p.ServingQuantity.Float(); v > 0 {
		return v
	}
	if v := leadingNumber(p.Quantity); v > 0 {
		return v
	}
	return m.DefaultServingMl
}

// leadingNumber extracts the leading numeric value of a quantity string,
// returning 0 when none is present
func leadingNumber(s string) float64 {
	start := -1
	end := len(s)
	for i, r := range s {
		isNumeric := (r >= '0' && r <= '9') || r == '.'
		if start == -1 {
			if isNumeric {
				start = i
			} else if r != ' ' {
				return 0 // Quantity does not lead with a number
			}
			continue
		}
		if !isNumeric {
			end = i
			break
		}
	}
	if start == -1 {
		return 0
	}
	v, err := strconv.ParseFloat(s[start:end], 64)
	if err != nil {
		return 0
	}
	return v
}

// IsSugarFree reports whether the product's sugar content is below the
// sugar-free threshold
func (m Model) IsSugarFree(p *catalog.Product) bool {
	return p.Nutriments.Sugars100g.Float() < m.SugarFreeThreshold
}

// SugarSaving returns the grams of sugar avoided by drinking this product
// instead of an equal volume of the reference drink. Only sugar-free
// products earn a saving.
func (m Model) SugarSaving(p *catalog.Product) float64 {
	if !m.IsSugarFree(p) {
		return 0
	}
	return m.ServingVolume(p) / 100.0 * m.NemesisSugarPer100ml
}

// SugarIntake returns the grams of sugar consumed by one serving of the
// product. A lookup-supplied per-serving figure wins; otherwise intake is
// derived from the per-100ml figure and the serving volume.
func (m Model) SugarIntake(p *catalog.Product) float64 {
	if v := p.Nutriments.SugarsServing.Float(); v > 0 {
		return v
	}
	return m.ServingVolume(p) / 100.0 * p.Nutriments.Sugars100g.Float()
}

// WaterSaving returns the sugar saved by logging a glass of water, treated
// as one default serving of a sugar-free drink
func (m Model) WaterSaving() float64 {
	return m.DefaultServingMl / 100.0 * m.NemesisSugarPer100ml
}

// SugarCubes converts grams of sugar into an equivalent count of whole
// sugar cubes
func (m Model) SugarCubes(grams float64) int {
	if m.SugarCubeGrams <= 0 || grams <= 0 {
		return 0
	}
	return int(math.Floor(grams / m.SugarCubeGrams))
}

// DailyBudgetRemaining returns how much of the daily recommended sugar is
// left after consuming the given grams today. Never negative.
func (m Model) DailyBudgetRemaining(consumedToday float64) float64 {
	remaining := m.DailyRecommended - consumedToday
	if remaining < 0 {
		return 0
	}
	return remaining
}

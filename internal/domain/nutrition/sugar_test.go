package nutrition

import (
	"math"
	"testing"

	"github.com/sugarswap/sugarswap-go/internal/domain/entities/catalog"
)

func testModel() Model {
	return Model{
		NemesisSugarPer100ml: 10.6,
		DefaultServingMl:     330,
		SugarFreeThreshold:   0.5,
		SugarCubeGrams:       3,
		DailyRecommended:     75,
	}
}

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestServingVolume(t *testing.T) {
	m := testModel()

	tests := []struct {
		name    string
		product catalog.Product
		want    float64
	}{
		{
			name:    "product quantity wins",
			product: catalog.Product{ProductQuantity: 500, ServingQuantity: 250},
			want:    500,
		},
		{
			name:    "falls back to serving quantity",
			product: catalog.Product{ServingQuantity: 250},
			want:    250,
		},
		{
			name:    "parses leading number of display quantity",
			product: catalog.Product{Quantity: "500 ml"},
			want:    500,
		},
		{
			name:    "defaults when nothing reported",
			product: catalog.Product{},
			want:    330,
		},
		{
			name:    "defaults on unparseable display quantity",
			product: catalog.Product{Quantity: "one can"},
			want:    330,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := m.ServingVolume(&tt.product); !approxEqual(got, tt.want) {
				t.Errorf("ServingVolume() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSugarSaving(t *testing.T) {
	m := testModel()

	t.Run("sugar-free product earns full saving", func(t *testing.T) {
		p := &catalog.Product{
			ProductQuantity: 330,
			Nutriments:      catalog.Nutriments{Sugars100g: 0},
		}
		want := 330.0 / 100.0 * 10.6
		if got := m.SugarSaving(p); !approxEqual(got, want) {
			t.Errorf("SugarSaving() = %v, want %v", got, want)
		}
	})

	t.Run("threshold is exclusive", func(t *testing.T) {
		p := &catalog.Product{
			ProductQuantity: 330,
			Nutriments:      catalog.Nutriments{Sugars100g: 0.5},
		}
		if got := m.SugarSaving(p); got != 0 {
			t.Errorf("SugarSaving() at threshold = %v, want 0", got)
		}
	})

	t.Run("sugary product earns nothing", func(t *testing.T) {
		p := &catalog.Product{
			ProductQuantity: 330,
			Nutriments:      catalog.Nutriments{Sugars100g: 10.6},
		}
		if got := m.SugarSaving(p); got != 0 {
			t.Errorf("SugarSaving() = %v, want 0", got)
		}
	})
}

func TestSugarIntake(t *testing.T) {
	m := testModel()

	t.Run("per-serving figure wins", func(t *testing.T) {
		p := &catalog.Product{
			ProductQuantity: 500,
			Nutriments:      catalog.Nutriments{Sugars100g: 10, SugarsServing: 35},
		}
		if got := m.SugarIntake(p); !approxEqual(got, 35) {
			t.Errorf("SugarIntake() = %v, want 35", got)
		}
	})

	t.Run("derived from per-100ml figure", func(t *testing.T) {
		p := &catalog.Product{
			ProductQuantity: 500,
			Nutriments:      catalog.Nutriments{Sugars100g: 10},
		}
		if got := m.SugarIntake(p); !approxEqual(got, 50) {
			t.Errorf("SugarIntake() = %v, want 50", got)
		}
	})

	t.Run("default serving applies when no quantities reported", func(t *testing.T) {
		p := &catalog.Product{
			Nutriments: catalog.Nutriments{Sugars100g: 10.6},
		}
		want := 330.0 / 100.0 * 10.6
		if got := m.SugarIntake(p); !approxEqual(got, want) {
			t.Errorf("SugarIntake() = %v, want %v", got, want)
		}
	})
}

func TestWaterSaving(t *testing.T) {
	m := testModel()
	want := 330.0 / 100.0 * 10.6
	if got := m.WaterSaving(); !approxEqual(got, want) {
		t.Errorf("WaterSaving() = %v, want %v", got, want)
	}
}

func TestSugarCubes(t *testing.T) {
	m := testModel()

	tests := []struct {
		grams float64
		want  int
	}{
		{0, 0},
		{2.9, 0},
		{3, 1},
		{10.6, 3},
		{35, 11},
	}

	for _, tt := range tests {
		if got := m.SugarCubes(tt.grams); got != tt.want {
			t.Errorf("SugarCubes(%v) = %v, want %v", tt.grams, got, tt.want)
		}
	}
}

func TestDailyBudgetRemaining(t *testing.T) {
	m := testModel()

	if got := m.DailyBudgetRemaining(25); !approxEqual(got, 50) {
		t.Errorf("DailyBudgetRemaining(25) = %v, want 50", got)
	}
	if got := m.DailyBudgetRemaining(100); got != 0 {
		t.Errorf("DailyBudgetRemaining(100) = %v, want 0", got)
	}
}

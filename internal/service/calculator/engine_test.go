package calculator

import (
	"encoding/json"
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"choma/internal/model"
)

func TestComplexity_Thresholds(t *testing.T) {
	e := NewEngine(DefaultCostModel())

	tests := []struct {
		prep float64
		want model.ComplexityLevel
	}{
		{prep: 0, want: model.ComplexityLow},
		{prep: 30, want: model.ComplexityLow},
		{prep: 31, want: model.ComplexityMedium},
		{prep: 60, want: model.ComplexityMedium},
		{prep: 61, want: model.ComplexityHigh},
		{prep: 240, want: model.ComplexityHigh},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, e.Complexity(tt.prep), "prep=%v", tt.prep)
	}
}

func TestCookingCost_GoldenValues(t *testing.T) {
	e := NewEngine(DefaultCostModel())

	// ((800 + 1500) × 1 + 350) × 1.0
	assert.Equal(t, "2650", e.CookingCost(60, model.ComplexityMedium).String())
	// ((800 + 1500) × 0.5 + 200) × 0.8
	assert.Equal(t, "1080", e.CookingCost(30, model.ComplexityLow).String())
	// ((800 + 1500) × 1.5 + 500) × 1.3
	assert.Equal(t, "5135", e.CookingCost(90, model.ComplexityHigh).String())
	// ((800 + 1500) × 0.75 + 350) × 1.0
	assert.Equal(t, "2075", e.CookingCost(45, model.ComplexityMedium).String())
	// 10 分钟: (2300/6 + 200) × 0.8 = 466.67 -> 467
	assert.Equal(t, "467", e.CookingCost(10, model.ComplexityLow).String())
}

func TestCookingCost_FloorAtZero(t *testing.T) {
	e := NewEngine(DefaultCostModel())

	levels := []model.ComplexityLevel{model.ComplexityLow, model.ComplexityMedium, model.ComplexityHigh}
	for _, level := range levels {
		for _, prep := range []float64{0, -1, -60} {
			assert.True(t, e.CookingCost(prep, level).IsZero(), "prep=%v level=%s", prep, level)
		}
	}
}

func TestQuote_SixtyMinuteMedium(t *testing.T) {
	e := NewEngine(DefaultCostModel())

	q := e.Quote(Inputs{
		Ingredients:     1500,
		Packaging:       200,
		Delivery:        300,
		PlatformFee:     100,
		PreparationTime: 60,
	})

	require.Equal(t, model.ComplexityMedium, q.Complexity)
	assert.Equal(t, CostModelV2, q.Version)
	assert.Equal(t, "2650", q.Pricing.CookingCost.String())
	assert.Equal(t, "4650", q.Pricing.TotalCosts.String())
	assert.Equal(t, "1860", q.Pricing.Profit.String())
	assert.Equal(t, "6610", q.Pricing.TotalPrice.String())
	assert.Equal(t, "5080", q.Pricing.ChefEarnings.String())
	assert.Equal(t, "1530", q.Pricing.PlatformEarnings.String())
	require.NoError(t, Verify(q.Pricing))
}

func TestQuote_InvariantHoldsForFractionalInputs(t *testing.T) {
	e := NewEngine(DefaultCostModel())

	inputs := []Inputs{
		{Ingredients: 1000.01, Packaging: 0, Delivery: 0, PlatformFee: 0},
		{Ingredients: 0.03},
		{Ingredients: 2499.99, Packaging: 150.5, Delivery: 349.25, PlatformFee: 75.75, PreparationTime: 17},
		{Ingredients: 12345.67, Packaging: 890.12, Delivery: 1200, PlatformFee: 300.3, PreparationTime: 135},
	}
	for _, in := range inputs {
		q := e.Quote(in)
		require.NoError(t, Verify(q.Pricing), "inputs=%+v pricing=%+v", in, q.Pricing)
	}
}

// 序列化后的金额换算成整数 kobo，恒等式必须逐值相等
func TestQuote_SerializedPricingSumsExactly(t *testing.T) {
	e := NewEngine(DefaultCostModel())
	rng := rand.New(rand.NewSource(42))
	cents := func(max int) float64 { return float64(rng.Intn(max)) / 100 }

	for i := 0; i < 20000; i++ {
		in := Inputs{
			Ingredients:     cents(2_000_000) + 0.01,
			Packaging:       cents(100_000),
			Delivery:        cents(200_000),
			PlatformFee:     cents(100_000),
			PreparationTime: float64(rng.Intn(240)),
		}
		q := e.Quote(in)

		data, err := json.Marshal(q.Pricing)
		require.NoError(t, err)
		var wire map[string]json.Number
		require.NoError(t, json.Unmarshal(data, &wire))

		kobo := func(field string) int64 {
			d, err := decimal.NewFromString(wire[field].String())
			require.NoError(t, err, "%s=%q", field, wire[field])
			require.True(t, d.Shift(2).IsInteger(), "%s=%s has more than 2 decimals", field, d)
			return d.Shift(2).IntPart()
		}

		totalPrice := kobo("totalPrice")
		if kobo("totalCosts")+kobo("profit")+kobo("platformFee") != totalPrice {
			t.Fatalf("totalPrice mismatch for %+v: %s", in, data)
		}
		if kobo("chefEarnings")+kobo("platformEarnings") != totalPrice {
			t.Fatalf("earnings mismatch for %+v: %s", in, data)
		}
		if kobo("ingredients")+kobo("cookingCost")+kobo("packaging")+kobo("delivery") != kobo("totalCosts") {
			t.Fatalf("totalCosts mismatch for %+v: %s", in, data)
		}
	}
}

func TestQuote_SerializesAsJSONNumbers(t *testing.T) {
	e := NewEngine(DefaultCostModel())
	q := e.Quote(Inputs{Ingredients: 10265.16, Packaging: 0, Delivery: 0, PlatformFee: 840.59})

	data, err := json.Marshal(q.Pricing)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"ingredients":10265.16`)
	assert.Contains(t, string(data), `"platformFee":840.59`)
}

func TestQuote_Deterministic(t *testing.T) {
	e := NewEngine(DefaultCostModel())
	in := Inputs{Ingredients: 1999.99, Packaging: 120, Delivery: 450, PlatformFee: 80, PreparationTime: 75}

	assert.Equal(t, e.Quote(in), e.Quote(in))
}

func TestVerify_DetectsBrokenPricing(t *testing.T) {
	p := model.Pricing{
		Ingredients:      decimal.NewFromInt(100),
		TotalCosts:       decimal.NewFromInt(100),
		Profit:           decimal.NewFromInt(40),
		PlatformFee:      decimal.NewFromInt(10),
		TotalPrice:       decimal.NewFromInt(149),
		ChefEarnings:     decimal.NewFromInt(120),
		PlatformEarnings: decimal.NewFromInt(30),
	}
	assert.Error(t, Verify(p))
}

func TestCostModel_Validate(t *testing.T) {
	require.NoError(t, DefaultCostModel().Validate())

	m := DefaultCostModel()
	m.MultiplierLow = 1.2
	assert.Error(t, m.Validate())

	m = DefaultCostModel()
	m.ProfitRate = 1.5
	assert.Error(t, m.Validate())

	m = DefaultCostModel()
	m.Version = ""
	assert.Error(t, m.Validate())
}

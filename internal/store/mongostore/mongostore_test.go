package mongostore

import (
	"bytes"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsonrw"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/mongo"

	"choma/internal/model"
	"choma/internal/service/calculator"
	"choma/internal/store"
)

func TestOutcomesFromInsert_AllInserted(t *testing.T) {
	outcomes, err := outcomesFromInsert([]string{"a", "b"}, nil)

	require.NoError(t, err)
	assert.Equal(t, "a", outcomes[0].ID)
	assert.Equal(t, "b", outcomes[1].ID)
}

func TestOutcomesFromInsert_MapsWriteErrorsByIndex(t *testing.T) {
	bwe := mongo.BulkWriteException{
		WriteErrors: []mongo.BulkWriteError{
			{WriteError: mongo.WriteError{Index: 1, Code: 11000, Message: "E11000 duplicate key"}},
			{WriteError: mongo.WriteError{Index: 2, Code: 121, Message: "document failed validation"}},
		},
	}

	outcomes, err := outcomesFromInsert([]string{"a", "b", "c", "d"}, bwe)

	require.NoError(t, err)
	require.Len(t, outcomes, 4)
	assert.Equal(t, "a", outcomes[0].ID)
	assert.NoError(t, outcomes[0].Err)
	assert.ErrorIs(t, outcomes[1].Err, store.ErrDuplicateMeal)
	assert.Empty(t, outcomes[1].ID)
	assert.EqualError(t, outcomes[2].Err, "document failed validation")
	assert.Equal(t, "d", outcomes[3].ID)
}

func TestOutcomesFromInsert_OtherErrorsFailWholeBatch(t *testing.T) {
	_, err := outcomesFromInsert([]string{"a"}, errors.New("server selection timeout"))
	assert.Error(t, err)
}

func TestRegistry_PricingRoundTripsAsDecimal128(t *testing.T) {
	engine := calculator.NewEngine(calculator.DefaultCostModel())
	want := engine.Quote(calculator.Inputs{Ingredients: 2499.99, Packaging: 150.5, Delivery: 349.25, PlatformFee: 75.75, PreparationTime: 17}).Pricing

	buf := new(bytes.Buffer)
	vw, err := bsonrw.NewBSONValueWriter(buf)
	require.NoError(t, err)
	enc, err := bson.NewEncoder(vw)
	require.NoError(t, err)
	require.NoError(t, enc.SetRegistry(newRegistry()))
	require.NoError(t, enc.Encode(want))

	raw := bson.Raw(buf.Bytes())
	assert.Equal(t, bsontype.Decimal128, raw.Lookup("totalPrice").Type)

	dec, err := bson.NewDecoder(bsonrw.NewBSONDocumentReader(buf.Bytes()))
	require.NoError(t, err)
	require.NoError(t, dec.SetRegistry(newRegistry()))

	var got model.Pricing
	require.NoError(t, dec.Decode(&got))
	assert.True(t, want.TotalPrice.Equal(got.TotalPrice), "got %s want %s", got.TotalPrice, want.TotalPrice)
	assert.True(t, want.ChefEarnings.Equal(got.ChefEarnings))
	require.NoError(t, calculator.Verify(got))
}

func TestRegistry_DecodesLegacyDoubles(t *testing.T) {
	doc, err := bson.Marshal(bson.M{"totalPrice": 6610.5, "profit": int32(1860)})
	require.NoError(t, err)

	dec, err := bson.NewDecoder(bsonrw.NewBSONDocumentReader(doc))
	require.NoError(t, err)
	require.NoError(t, dec.SetRegistry(newRegistry()))

	var got model.Pricing
	require.NoError(t, dec.Decode(&got))
	assert.True(t, decimal.RequireFromString("6610.5").Equal(got.TotalPrice))
	assert.True(t, decimal.NewFromInt(1860).Equal(got.Profit))
}

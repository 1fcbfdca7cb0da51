package seed

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retaildw/internal/domain/dimension"
	"retaildw/internal/domain/fact"
)

// recordingSink hands out sequential keys and keeps everything it receives.
type recordingSink struct {
	next  dimension.Key
	dims  map[dimension.Kind][]dimension.Row
	facts map[fact.Kind][]fact.Row
	sales []fact.SaleLine
	txIDs int
}

func newRecordingSink() *recordingSink {
	return &recordingSink{
		dims:  make(map[dimension.Kind][]dimension.Row),
		facts: make(map[fact.Kind][]fact.Row),
	}
}

func (s *recordingSink) LoadDimension(_ context.Context, rows []dimension.Row) ([]dimension.Key, error) {
	keys := make([]dimension.Key, 0, len(rows))
	for _, row := range rows {
		s.dims[row.Kind()] = append(s.dims[row.Kind()], row)
		if d, ok := row.(dimension.DateDim); ok {
			keys = append(keys, d.Key)
			continue
		}
		s.next++
		keys = append(keys, s.next)
	}
	return keys, nil
}

func (s *recordingSink) LoadFact(_ context.Context, kind fact.Kind, rows []fact.Row) (int64, error) {
	for _, row := range rows {
		if err := row.Validate(); err != nil {
			return 0, err
		}
	}
	s.facts[kind] = append(s.facts[kind], rows...)
	return int64(len(rows)), nil
}

func (s *recordingSink) LoadSales(_ context.Context, lines []fact.SaleLine) (int64, error) {
	s.sales = append(s.sales, lines...)
	return int64(len(lines)), nil
}

func (s *recordingSink) NextTransactionID(context.Context) (string, error) {
	s.txIDs++
	return fmt.Sprintf("TX%04d", s.txIDs), nil
}

func TestRun_DatasetShape(t *testing.T) {
	sink := newRecordingSink()
	require.NoError(t, Run(context.Background(), sink, DefaultOptions()))

	assert.Len(t, sink.dims[dimension.KindDate], 30)
	assert.Len(t, sink.dims[dimension.KindStore], 10)
	assert.Len(t, sink.dims[dimension.KindProduct], 20)
	assert.Len(t, sink.dims[dimension.KindCustomer], 50)
	assert.Len(t, sink.dims[dimension.KindPaymentMethod], 5)
	assert.Len(t, sink.dims[dimension.KindPromotion], 3)
	assert.Len(t, sink.dims[dimension.KindWarehouse], 3)

	assert.GreaterOrEqual(t, sink.txIDs, 30*5)
	assert.LessOrEqual(t, sink.txIDs, 30*15)
	assert.GreaterOrEqual(t, len(sink.sales), sink.txIDs)
	assert.LessOrEqual(t, len(sink.sales), sink.txIDs*4)

	assert.Len(t, sink.facts[fact.KindInventorySnapshot], 30*3*20)
	assert.Len(t, sink.facts[fact.KindInventoryDailyBalance], 30*3*20)
	assert.Len(t, sink.facts[fact.KindInventoryBalance], 3*20)
	assert.NotEmpty(t, sink.facts[fact.KindInventoryMovement])
	assert.NotEmpty(t, sink.facts[fact.KindPromotionEligibility])
}

func TestRun_SaleLinesFollowSeedingRules(t *testing.T) {
	sink := newRecordingSink()
	require.NoError(t, Run(context.Background(), sink, DefaultOptions()))

	for _, line := range sink.sales {
		assert.GreaterOrEqual(t, line.Quantity, int64(1))
		assert.LessOrEqual(t, line.Quantity, int64(5))
		assert.Contains(t, []string{"0", "500", "1000"}, line.FlatDiscount.String())

		// Product keys follow the ten store keys.
		cost := products[int(line.ProductKey)-len(stores)-1].CostPerUnit
		assert.True(t, line.UnitPrice.GreaterThanOrEqual(cost), "price %s below cost %s", line.UnitPrice, cost)
	}
}

func TestRun_PromotionsOnlyWhereRunning(t *testing.T) {
	sink := newRecordingSink()
	require.NoError(t, Run(context.Background(), sink, DefaultOptions()))

	eligible := make(map[fact.PromotionEligibility]bool)
	for _, row := range sink.facts[fact.KindPromotionEligibility] {
		eligible[row.(fact.PromotionEligibility)] = true
	}

	promoted := 0
	for _, line := range sink.sales {
		if line.PromotionKey == nil {
			continue
		}
		promoted++
		assert.True(t, eligible[fact.PromotionEligibility{
			PromotionKey: *line.PromotionKey,
			DateKey:      dimension.DateKeyOf(line.Date),
			StoreKey:     line.StoreKey,
		}])
	}
	assert.Positive(t, promoted)
}

func TestRun_IsReproducible(t *testing.T) {
	a, b := newRecordingSink(), newRecordingSink()
	require.NoError(t, Run(context.Background(), a, DefaultOptions()))
	require.NoError(t, Run(context.Background(), b, DefaultOptions()))
	assert.Equal(t, a.sales, b.sales)

	other := DefaultOptions()
	other.Seed = 7
	c := newRecordingSink()
	require.NoError(t, Run(context.Background(), c, other))
	assert.NotEqual(t, a.sales, c.sales)
}

func TestRun_ShortRangeDropsLatePromotions(t *testing.T) {
	opts := DefaultOptions()
	opts.Days = 7
	sink := newRecordingSink()
	require.NoError(t, Run(context.Background(), sink, opts))

	assert.Len(t, sink.dims[dimension.KindDate], 7)
	require.Len(t, sink.dims[dimension.KindPromotion], 1)
	assert.Equal(t, "Weekend Hemat", sink.dims[dimension.KindPromotion][0].(dimension.Promotion).Name)
}

func TestRun_RejectsEmptyRange(t *testing.T) {
	opts := DefaultOptions()
	opts.Days = 0
	assert.Error(t, Run(context.Background(), newRecordingSink(), opts))
}

package executor

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/accumbot/internal/domain"
	"github.com/vadiminshakov/accumbot/internal/exchange/mexc"
	"go.uber.org/zap"
)

type fakeOrderClient struct {
	bid    decimal.Decimal
	placed []mexc.OrderRequest
	result *mexc.OrderResult
}

func (f *fakeOrderClient) BookTickerBid(_ context.Context, _ string) (decimal.Decimal, error) {
	return f.bid, nil
}

func (f *fakeOrderClient) PlaceOrder(_ context.Context, req mexc.OrderRequest) (*mexc.OrderResult, error) {
	f.placed = append(f.placed, req)
	return f.result, nil
}

func TestDryRunBuySynthesizesFill(t *testing.T) {
	client := &fakeOrderClient{bid: decimal.NewFromInt(2000)}
	e := New(client, true, zap.NewNop())

	fill, err := e.MarketBuyQuote(context.Background(), "ETHUSDT", decimal.NewFromInt(50))
	require.NoError(t, err)

	require.True(t, fill.DryRun)
	require.Equal(t, domain.SideBuy, fill.Side)
	require.True(t, fill.Price.Equal(decimal.NewFromInt(2000)))
	require.True(t, fill.BaseQty.Equal(decimal.RequireFromString("0.025")))
	require.True(t, fill.QuoteQty.Equal(decimal.NewFromInt(50)))
	require.Empty(t, client.placed, "dry-run must not place orders")
}

func TestDryRunSellSynthesizesFill(t *testing.T) {
	client := &fakeOrderClient{bid: decimal.NewFromInt(3)}
	e := New(client, true, zap.NewNop())

	fill, err := e.MarketSellBase(context.Background(), "XRPUSDT", decimal.NewFromInt(10))
	require.NoError(t, err)

	require.True(t, fill.DryRun)
	require.True(t, fill.QuoteQty.Equal(decimal.NewFromInt(30)))
	require.Empty(t, client.placed)
}

func TestLiveBuyUsesQuoteOrderQty(t *testing.T) {
	client := &fakeOrderClient{
		bid: decimal.NewFromInt(2000),
		result: &mexc.OrderResult{
			OrderID:     "1",
			Status:      "FILLED",
			ExecutedQty: decimal.RequireFromString("0.0249"),
			CumQuoteQty: decimal.RequireFromString("49.8"),
		},
	}
	e := New(client, false, zap.NewNop())

	fill, err := e.MarketBuyQuote(context.Background(), "ETHUSDT", decimal.NewFromInt(50))
	require.NoError(t, err)

	require.Len(t, client.placed, 1)
	require.Equal(t, "MARKET", client.placed[0].Type)
	require.True(t, client.placed[0].QuoteOrderQty.Equal(decimal.NewFromInt(50)))
	require.True(t, client.placed[0].Quantity.IsZero())

	// executed amounts come from the confirmation, not the request
	require.False(t, fill.DryRun)
	require.True(t, fill.BaseQty.Equal(decimal.RequireFromString("0.0249")))
	require.True(t, fill.QuoteQty.Equal(decimal.RequireFromString("49.8")))
	require.True(t, fill.Price.Equal(decimal.RequireFromString("49.8").Div(decimal.RequireFromString("0.0249"))))
}

func TestLiveSellUsesBaseQuantity(t *testing.T) {
	client := &fakeOrderClient{
		bid: decimal.NewFromInt(3),
		result: &mexc.OrderResult{
			OrderID:     "2",
			Status:      "FILLED",
			ExecutedQty: decimal.NewFromInt(10),
			CumQuoteQty: decimal.NewFromInt(30),
		},
	}
	e := New(client, false, zap.NewNop())

	fill, err := e.MarketSellBase(context.Background(), "XRPUSDT", decimal.NewFromInt(10))
	require.NoError(t, err)

	require.Len(t, client.placed, 1)
	require.True(t, client.placed[0].Quantity.Equal(decimal.NewFromInt(10)))
	require.True(t, client.placed[0].QuoteOrderQty.IsZero())
	require.True(t, fill.QuoteQty.Equal(decimal.NewFromInt(30)))
}

func TestRejectsNonPositiveAmounts(t *testing.T) {
	e := New(&fakeOrderClient{bid: decimal.NewFromInt(1)}, true, zap.NewNop())

	_, err := e.MarketBuyQuote(context.Background(), "ETHUSDT", decimal.Zero)
	require.Error(t, err)

	_, err = e.MarketSellBase(context.Background(), "ETHUSDT", decimal.NewFromInt(-1))
	require.Error(t, err)
}

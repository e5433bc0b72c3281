package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inos/internal/models/response_models"
	"inos/internal/models/state_models"
	"inos/pkg/utils"
)

func TestFormatPrice(t *testing.T) {
	cases := map[int64]string{
		0:      "0,00 €",
		5:      "0,05 €",
		4900:   "49,00 €",
		123456: "1 234,56 €",
		-1299:  "-12,99 €",
	}
	for cents, want := range cases {
		assert.Equal(t, want, FormatPrice(cents), "cents=%d", cents)
	}
}

func TestShippingFor(t *testing.T) {
	assert.Equal(t, ShippingFee, ShippingFor(0))
	assert.Equal(t, ShippingFee, ShippingFor(FreeShippingThreshold))
	assert.Equal(t, int64(0), ShippingFor(FreeShippingThreshold+1))
}

func TestCatalogLookups(t *testing.T) {
	c := NewCatalogService()

	all := c.ListProducts()
	require.Len(t, all, 8)
	for _, p := range all {
		assert.Equal(t, Currency, p.Currency)
		assert.True(t, p.InStock)
	}

	p, err := c.GetProductById("bundle-starter")
	require.NoError(t, err)
	assert.Equal(t, int64(7900), p.Price)

	_, err = c.GetProductById("missing")
	assert.ErrorIs(t, err, utils.ErrProductNotFound)

	for _, f := range c.FeaturedProducts() {
		assert.True(t, f.Featured)
	}
	assert.Len(t, c.ProductsByCategory(response_models.CategorySerum), 2)
	assert.Empty(t, c.ProductsByCategory("perfume"))

	// Callers get a copy.
	all[0].Price = 1
	again, _ := c.GetProductById(all[0].ID)
	assert.NotEqual(t, int64(1), again.Price)
}

func TestCartViewSkipsUnknownProducts(t *testing.T) {
	c := NewCatalogService()

	view := c.CartView([]state_models.CartItem{
		{ProductID: "roller-jade", Quantity: 1},
		{ProductID: "discontinued", Quantity: 4},
	})
	require.Len(t, view.Items, 1)
	assert.Equal(t, 1, view.ItemCount)
	assert.Equal(t, int64(2400), view.Subtotal)
	assert.Equal(t, ShippingFee, view.Shipping)
	assert.Equal(t, FreeShippingThreshold-2400, view.FreeShippingRemaining)
	assert.Equal(t, FormatPrice(2400+ShippingFee), view.FormattedTotal)
}

func TestOrderSnapshot(t *testing.T) {
	c := NewCatalogService()

	_, _, err := c.OrderSnapshot([]state_models.CartItem{{ProductID: "discontinued", Quantity: 1}})
	assert.ErrorIs(t, err, utils.ErrEmptyCart)

	lines, view, err := c.OrderSnapshot([]state_models.CartItem{
		{ProductID: "serum-retinol", Quantity: 1},
		{ProductID: "gua-sha", Quantity: 2},
	})
	require.NoError(t, err)
	assert.Equal(t, []state_models.OrderItem{
		{Name: lines[0].Name, Quantity: 1, Price: 5400},
		{Name: lines[1].Name, Quantity: 2, Price: 1900},
	}, lines)
	assert.Equal(t, int64(9200), view.Total)
	assert.Zero(t, view.Shipping)
	assert.Zero(t, view.FreeShippingRemaining)
}

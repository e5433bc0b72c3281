package services

import (
	"context"

	"inos/internal/models/response_models"
	"inos/internal/store"
	"inos/pkg/utils"
)

type CartServiceInterface interface {
	View() response_models.CartView
	Add(ctx context.Context, productID string, quantity int) (response_models.CartView, error)
	Update(ctx context.Context, productID string, quantity int) (response_models.CartView, error)
	Remove(ctx context.Context, productID string) response_models.CartView
	Clear(ctx context.Context) response_models.CartView
}

// CartService edits the local cart and mirrors every change to the backend.
type CartService struct {
	store   *store.Store
	catalog CatalogServiceInterface
	sync    SyncServiceInterface
}

func NewCartService(st *store.Store, catalog CatalogServiceInterface, coordinator SyncServiceInterface) *CartService {
	return &CartService{store: st, catalog: catalog, sync: coordinator}
}

func (c *CartService) View() response_models.CartView {
	return c.catalog.CartView(c.store.Cart())
}

func (c *CartService) Add(ctx context.Context, productID string, quantity int) (response_models.CartView, error) {
	if quantity <= 0 {
		return response_models.CartView{}, utils.ErrInvalidQuantity
	}
	if _, err := c.catalog.GetProductById(productID); err != nil {
		return response_models.CartView{}, err
	}

	c.store.AddToCart(productID, quantity)
	c.sync.SaveCart(ctx)
	return c.View(), nil
}

// Update sets the quantity of a line; zero removes it.
func (c *CartService) Update(ctx context.Context, productID string, quantity int) (response_models.CartView, error) {
	if quantity < 0 {
		return response_models.CartView{}, utils.ErrInvalidQuantity
	}
	if _, err := c.catalog.GetProductById(productID); err != nil {
		return response_models.CartView{}, err
	}

	c.store.UpdateCartQuantity(productID, quantity)
	c.sync.SaveCart(ctx)
	return c.View(), nil
}

func (c *CartService) Remove(ctx context.Context, productID string) response_models.CartView {
	c.store.RemoveFromCart(productID)
	c.sync.SaveCart(ctx)
	return c.View()
}

func (c *CartService) Clear(ctx context.Context) response_models.CartView {
	c.store.ClearCart()
	c.sync.SaveCart(ctx)
	return c.View()
}

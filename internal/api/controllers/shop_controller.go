package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"inos/internal/models/db_models"
	"inos/internal/models/request_models"
	"inos/internal/models/response_models"
	"inos/internal/services"
	"inos/internal/store"
	"inos/pkg/utils"
)

type ShopController struct {
	catalog services.CatalogServiceInterface
	cart    services.CartServiceInterface
	sync    services.SyncServiceInterface
	store   *store.Store
	logger  *zap.Logger
}

func NewShopController(
	catalog services.CatalogServiceInterface,
	cart services.CartServiceInterface,
	sync services.SyncServiceInterface,
	st *store.Store,
	logger *zap.Logger,
) *ShopController {
	return &ShopController{catalog: catalog, cart: cart, sync: sync, store: st, logger: logger}
}

// ListProducts godoc
// @Summary List catalog products
// @Tags Shop
// @Produce json
// @Param category query string false "serum, cream, mask, tool or bundle"
// @Param featured query bool false "Only featured products"
// @Success 200 {object} utils.APIResponse
// @Router /products [get]
func (s *ShopController) ListProducts(c *gin.Context) {
	switch {
	case c.Query("category") != "":
		utils.RespondSuccess(c, s.catalog.ProductsByCategory(response_models.ProductCategory(c.Query("category"))), "")
	case c.Query("featured") == "true":
		utils.RespondSuccess(c, s.catalog.FeaturedProducts(), "")
	default:
		utils.RespondSuccess(c, s.catalog.ListProducts(), "")
	}
}

func (s *ShopController) GetProduct(c *gin.Context) {
	product, err := s.catalog.GetProductById(c.Param("productId"))
	if err != nil {
		utils.HandleServiceError(c, s.logger, err)
		return
	}
	utils.RespondSuccess(c, product, "")
}

func (s *ShopController) GetCart(c *gin.Context) {
	utils.RespondSuccess(c, s.cart.View(), "")
}

func (s *ShopController) AddCartItem(c *gin.Context) {
	var req request_models.AddCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid request format")
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	view, err := s.cart.Add(c.Request.Context(), req.ProductID, req.Quantity)
	if err != nil {
		utils.HandleServiceError(c, s.logger, err)
		return
	}
	utils.RespondSuccess(c, view, "Added to cart")
}

func (s *ShopController) UpdateCartItem(c *gin.Context) {
	var req request_models.UpdateCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid request format")
		return
	}

	view, err := s.cart.Update(c.Request.Context(), c.Param("productId"), req.Quantity)
	if err != nil {
		utils.HandleServiceError(c, s.logger, err)
		return
	}
	utils.RespondSuccess(c, view, "Cart updated")
}

func (s *ShopController) RemoveCartItem(c *gin.Context) {
	utils.RespondSuccess(c, s.cart.Remove(c.Request.Context(), c.Param("productId")), "Removed from cart")
}

func (s *ShopController) ClearCart(c *gin.Context) {
	utils.RespondSuccess(c, s.cart.Clear(c.Request.Context()), "Cart cleared")
}

// Checkout godoc
// @Summary Turn the cart into an order
// @Tags Shop
// @Accept json
// @Produce json
// @Param request body request_models.CheckoutRequest false "Optional shipping address"
// @Success 200 {object} utils.APIResponse
// @Failure 400 {object} utils.APIResponse
// @Router /checkout [post]
func (s *ShopController) Checkout(c *gin.Context) {
	var req request_models.CheckoutRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondError(c, http.StatusBadRequest, "Invalid request format")
			return
		}
	}

	var shipping *db_models.ShippingAddress
	if a := req.ShippingAddress; a != nil {
		shipping = &db_models.ShippingAddress{
			Name:       a.Name,
			Address:    a.Address,
			City:       a.City,
			PostalCode: a.PostalCode,
			Country:    a.Country,
		}
	}

	order, err := s.sync.Checkout(c.Request.Context(), shipping)
	if err != nil {
		utils.HandleServiceError(c, s.logger, err)
		return
	}
	utils.RespondSuccess(c, gin.H{
		"order":          order,
		"formattedTotal": services.FormatPrice(order.Total),
	}, "Order placed")
}

func (s *ShopController) ListOrders(c *gin.Context) {
	orders := s.store.Orders()
	if limit, err := strconv.Atoi(c.Query("limit")); err == nil && limit > 0 && limit < len(orders) {
		orders = orders[:limit]
	}
	utils.RespondSuccess(c, orders, "")
}

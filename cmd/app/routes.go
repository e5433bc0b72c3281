package main

import (
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"inos/internal/api/controllers"
	"inos/pkg/metrics"
	"inos/pkg/middleware"
)

type Handlers struct {
	State   *controllers.StateController
	Scan    *controllers.ScanController
	Shop    *controllers.ShopController
	Account *controllers.AccountController
	Profile *controllers.ProfileController
}

func RegisterRoutes(r *gin.Engine, h Handlers, sessions middleware.SessionSource, m *metrics.Metrics) {
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})))

	stateGroup := r.Group("/state")
	stateGroup.GET("", h.State.GetState)
	stateGroup.POST("/reset", h.State.Reset)
	stateGroup.POST("/flags", h.State.UpdateFlags)

	scanGroup := r.Group("/scans")
	scanGroup.POST("/dark-circles", h.Scan.DarkCircles)
	scanGroup.POST("/full-face", h.Scan.FullFace)

	r.GET("/analyses", h.Scan.ListAnalyses)
	r.GET("/analyses/full-face", h.Scan.ListFullFaceAnalyses)

	r.GET("/products", h.Shop.ListProducts)
	r.GET("/products/:productId", h.Shop.GetProduct)

	cartGroup := r.Group("/cart")
	cartGroup.GET("", h.Shop.GetCart)
	cartGroup.DELETE("", h.Shop.ClearCart)
	cartGroup.POST("/items", h.Shop.AddCartItem)
	cartGroup.PUT("/items/:productId", h.Shop.UpdateCartItem)
	cartGroup.DELETE("/items/:productId", h.Shop.RemoveCartItem)

	r.POST("/checkout", h.Shop.Checkout)
	r.GET("/orders", h.Shop.ListOrders)

	r.GET("/subscription", h.Profile.GetSubscription)
	r.POST("/subscription", h.Profile.Subscribe)
	r.POST("/onboarding", h.Profile.CompleteOnboarding)

	authGroup := r.Group("/auth")
	authGroup.POST("/signup", h.Account.SignUp)
	authGroup.POST("/signin", h.Account.SignIn)
	authGroup.POST("/signout", h.Account.SignOut)
	authGroup.POST("/otp", h.Account.RequestOtp)
	authGroup.POST("/otp/verify", h.Account.VerifyOtp)
	authGroup.POST("/resume", h.Account.Resume)
	authGroup.GET("/session", middleware.RequireSession(sessions), h.Account.Session)
}

// corsConfig allows any origin for "*" or an empty list. Credentials are only
// allowed with an explicit origin list.
func corsConfig(origins string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.TraceHeader},
		ExposeHeaders: []string{"Content-Length", middleware.TraceHeader},
		MaxAge:        12 * time.Hour,
	}

	var list []string
	for _, o := range strings.Split(origins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			list = append(list, o)
		}
	}

	if len(list) == 0 || slices.Contains(list, "*") {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = list
	cfg.AllowCredentials = true
	return cfg
}

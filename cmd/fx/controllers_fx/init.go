package controllers_fx

import (
	"go.uber.org/fx"

	"inos/internal/api/controllers"
)

var Module = fx.Options(
	fx.Provide(controllers.NewStateController),
	fx.Provide(controllers.NewScanController),
	fx.Provide(controllers.NewShopController),
	fx.Provide(controllers.NewAccountController),
	fx.Provide(controllers.NewProfileController))

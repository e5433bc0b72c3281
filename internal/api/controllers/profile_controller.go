package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"inos/internal/models/request_models"
	"inos/internal/models/state_models"
	"inos/internal/services"
	"inos/internal/store"
	"inos/pkg/utils"
)

// ProfileController serves onboarding and the premium subscription.
type ProfileController struct {
	sync   services.SyncServiceInterface
	store  *store.Store
	logger *zap.Logger
}

func NewProfileController(sync services.SyncServiceInterface, st *store.Store, logger *zap.Logger) *ProfileController {
	return &ProfileController{sync: sync, store: st, logger: logger}
}

func (p *ProfileController) CompleteOnboarding(c *gin.Context) {
	var req request_models.OnboardingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid request format")
		return
	}

	profile := p.sync.CompleteOnboarding(c.Request.Context(), services.OnboardingInput{
		Name:           req.Name,
		Email:          req.Email,
		SkinType:       state_models.SkinType(req.SkinType),
		DarkCircleType: req.DarkCircleType,
		Goal:           req.Goal,
		Lifestyle:      req.Lifestyle,
		QuizAnswers:    req.QuizAnswers,
	})
	utils.RespondSuccess(c, profile, "Onboarding completed")
}

func (p *ProfileController) GetSubscription(c *gin.Context) {
	sub := p.store.Subscription()
	utils.RespondSuccess(c, gin.H{
		"subscription": sub,
		"activeNow":    sub.ActiveAt(time.Now()),
	}, "")
}

func (p *ProfileController) Subscribe(c *gin.Context) {
	var req request_models.SubscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid request format")
		return
	}

	sub, err := p.sync.Subscribe(c.Request.Context(), state_models.SubscriptionPlan(req.Plan))
	if err != nil {
		utils.HandleServiceError(c, p.logger, err)
		return
	}
	utils.RespondSuccess(c, sub, "Subscription activated")
}

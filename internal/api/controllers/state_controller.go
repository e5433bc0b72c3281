package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"inos/internal/models/request_models"
	"inos/internal/store"
	"inos/pkg/utils"
)

type StateController struct {
	store  *store.Store
	logger *zap.Logger
}

func NewStateController(st *store.Store, logger *zap.Logger) *StateController {
	return &StateController{store: st, logger: logger}
}

func (s *StateController) GetState(c *gin.Context) {
	utils.RespondSuccess(c, s.store.State(), "")
}

// Reset restores the initial state. With ?purge=true the persisted blob is removed as well.
func (s *StateController) Reset(c *gin.Context) {
	s.store.Reset()

	if c.Query("purge") == "true" {
		if err := s.store.Purge(c.Request.Context()); err != nil && !errors.Is(err, store.ErrNotFound) {
			utils.HandleServiceError(c, s.logger, err)
			return
		}
	}
	utils.RespondSuccess(c, s.store.State(), "State reset")
}

func (s *StateController) UpdateFlags(c *gin.Context) {
	var req request_models.FlagsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid request format")
		return
	}

	if req.OnboardingStep != nil {
		s.store.SetOnboardingStep(*req.OnboardingStep)
	}
	if req.HasSeenOnboarding != nil {
		s.store.SetHasSeenOnboarding(*req.HasSeenOnboarding)
	}
	if req.HasSeenIntro != nil {
		s.store.SetHasSeenIntro(*req.HasSeenIntro)
	}
	utils.RespondSuccess(c, s.store.State(), "")
}

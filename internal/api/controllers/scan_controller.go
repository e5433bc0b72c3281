package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"inos/internal/models/request_models"
	"inos/internal/services"
	"inos/internal/store"
	"inos/pkg/utils"
)

type ScanController struct {
	analyzer services.AnalyzerServiceInterface
	sync     services.SyncServiceInterface
	store    *store.Store
	logger   *zap.Logger
}

func NewScanController(
	analyzer services.AnalyzerServiceInterface,
	sync services.SyncServiceInterface,
	st *store.Store,
	logger *zap.Logger,
) *ScanController {
	return &ScanController{analyzer: analyzer, sync: sync, store: st, logger: logger}
}

func bindScan(c *gin.Context) (request_models.ScanRequest, bool) {
	var req request_models.ScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid request format")
		return req, false
	}
	if req.ImageBase64 == "" && req.PhotoURI == "" {
		utils.RespondError(c, http.StatusBadRequest, "Image payload is required")
		return req, false
	}
	return req, true
}

// DarkCircles godoc
// @Summary Analyze dark circles
// @Description Runs the vision model on the photo (falling back to a simulated result), stores the analysis locally and syncs it in the background
// @Tags Scans
// @Accept json
// @Produce json
// @Param request body request_models.ScanRequest true "Photo payload"
// @Success 200 {object} utils.APIResponse
// @Failure 400 {object} utils.APIResponse
// @Router /scans/dark-circles [post]
func (s *ScanController) DarkCircles(c *gin.Context) {
	req, ok := bindScan(c)
	if !ok {
		return
	}

	result := s.analyzer.AnalyzeDarkCircles(c.Request.Context(), req.ImageBase64, req.MimeType)
	entry := s.sync.CompleteScan(c.Request.Context(), services.ScanInput{
		PhotoURI:    req.PhotoURI,
		ImageBase64: req.ImageBase64,
		MimeType:    req.MimeType,
	}, result)

	utils.RespondSuccess(c, entry, "Analysis completed")
}

// FullFace godoc
// @Summary Full-face skin analysis
// @Tags Scans
// @Accept json
// @Produce json
// @Param request body request_models.ScanRequest true "Photo payload"
// @Success 200 {object} utils.APIResponse
// @Router /scans/full-face [post]
func (s *ScanController) FullFace(c *gin.Context) {
	req, ok := bindScan(c)
	if !ok {
		return
	}

	result := s.analyzer.AnalyzeFullFace(c.Request.Context(), req.ImageBase64, req.MimeType)
	entry := s.sync.CompleteFullFaceScan(c.Request.Context(), services.ScanInput{
		PhotoURI:    req.PhotoURI,
		ImageBase64: req.ImageBase64,
		MimeType:    req.MimeType,
	}, result)

	utils.RespondSuccess(c, entry, "Analysis completed")
}

func (s *ScanController) ListAnalyses(c *gin.Context) {
	utils.RespondSuccess(c, s.store.Analyses(), "")
}

func (s *ScanController) ListFullFaceAnalyses(c *gin.Context) {
	utils.RespondSuccess(c, s.store.FullFaceAnalyses(), "")
}

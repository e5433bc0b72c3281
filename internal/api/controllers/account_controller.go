package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"inos/internal/models/request_models"
	"inos/internal/services"
	"inos/pkg/utils"
)

type AccountController struct {
	authService services.AuthServiceInterface
	sessions    services.SessionServiceInterface
	logger      *zap.Logger
}

func NewAccountController(
	authService services.AuthServiceInterface,
	sessions services.SessionServiceInterface,
	logger *zap.Logger,
) *AccountController {
	return &AccountController{authService: authService, sessions: sessions, logger: logger}
}

// SignUp godoc
// @Summary Register a new account
// @Description Creates the account on the hosted auth service. When e-mail confirmation is enabled no session is returned.
// @Tags Accounts
// @Accept json
// @Produce json
// @Param request body request_models.SignUpRequest true "Account registration payload"
// @Success 200 {object} utils.APIResponse
// @Failure 401 {object} utils.APIResponse
// @Router /auth/signup [post]
func (a *AccountController) SignUp(c *gin.Context) {
	var req request_models.SignUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid request format")
		return
	}

	res, err := a.authService.SignUp(c.Request.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		utils.HandleServiceError(c, a.logger, err)
		return
	}

	msg := "Account created successfully"
	if res.ConfirmationRequired {
		msg = "Check your inbox to confirm your e-mail"
	}
	utils.RespondSuccess(c, res, msg)
}

// SignIn godoc
// @Summary Sign in with e-mail and password
// @Tags Accounts
// @Accept json
// @Produce json
// @Param request body request_models.SignInRequest true "Login payload"
// @Success 200 {object} utils.APIResponse
// @Failure 401 {object} utils.APIResponse
// @Router /auth/signin [post]
func (a *AccountController) SignIn(c *gin.Context) {
	var req request_models.SignInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid request format")
		return
	}

	res, err := a.authService.SignIn(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		utils.HandleServiceError(c, a.logger, err)
		return
	}
	utils.RespondSuccess(c, res, "Login successful")
}

func (a *AccountController) SignOut(c *gin.Context) {
	if err := a.authService.SignOut(c.Request.Context()); err != nil {
		utils.HandleServiceError(c, a.logger, err)
		return
	}
	utils.RespondSuccess(c, nil, "Signed out")
}

// RequestOtp godoc
// @Summary Send a one-time sign-in code
// @Tags Accounts
// @Accept json
// @Produce json
// @Param request body request_models.RequestOtp true "E-mail"
// @Success 200 {object} utils.APIResponse
// @Failure 502 {object} utils.APIResponse
// @Router /auth/otp [post]
func (a *AccountController) RequestOtp(c *gin.Context) {
	var req request_models.RequestOtp
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := a.authService.RequestOTP(c.Request.Context(), req.Email); err != nil {
		utils.HandleServiceError(c, a.logger, err)
		return
	}
	utils.RespondSuccess(c, nil, "Code sent")
}

// VerifyOtp godoc
// @Summary Sign in with a one-time code
// @Tags Accounts
// @Accept json
// @Produce json
// @Param request body request_models.RequestVerifyOtp true "E-mail and code"
// @Success 200 {object} utils.APIResponse
// @Failure 401 {object} utils.APIResponse
// @Router /auth/otp/verify [post]
func (a *AccountController) VerifyOtp(c *gin.Context) {
	var req request_models.RequestVerifyOtp
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid request format")
		return
	}

	res, err := a.authService.VerifyOTP(c.Request.Context(), req.Email, req.Code)
	if err != nil {
		utils.HandleServiceError(c, a.logger, err)
		return
	}
	utils.RespondSuccess(c, res, "Login successful")
}

// Resume refreshes the session if it is about to expire. Clients call it when they come back to the foreground.
func (a *AccountController) Resume(c *gin.Context) {
	sess, err := a.authService.Resume(c.Request.Context())
	if err != nil {
		utils.HandleServiceError(c, a.logger, err)
		return
	}
	utils.RespondSuccess(c, sess, "")
}

// Session returns the signed-in user. Mounted behind RequireSession.
func (a *AccountController) Session(c *gin.Context) {
	sess, _ := a.sessions.Current()
	utils.RespondSuccess(c, gin.H{
		"userId":    c.GetString("user_id"),
		"email":     sess.User.Email,
		"expiresAt": sess.ExpiresAt,
	}, "")
}

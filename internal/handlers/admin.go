package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stockyard-ci/stockyard/internal/middleware"
	"github.com/stockyard-ci/stockyard/internal/services"
	"github.com/stockyard-ci/stockyard/pkg/logger"
	"github.com/stockyard-ci/stockyard/pkg/response"
)

type AdminHandler struct {
	auth      *services.AdminAuthService
	repos     *services.RepositoryService
	owners    *OwnerDirectory
	retention *services.RetentionService
}

func NewAdminHandler(auth *services.AdminAuthService, repos *services.RepositoryService, owners *OwnerDirectory, retention *services.RetentionService) *AdminHandler {
	return &AdminHandler{auth: auth, repos: repos, owners: owners, retention: retention}
}

func adminError(err error) *response.AppError {
	switch {
	case errors.Is(err, services.ErrInvalidCredentials):
		return response.NewUnauthorized(err.Error())
	case errors.Is(err, services.ErrRepositoryNotFound):
		return response.NewNotFound(err.Error())
	default:
		return response.NewServerError(err.Error())
	}
}

// Login starts an admin session and sets the session cookie.
// POST /api/admin/login
func (h *AdminHandler) Login(c *gin.Context) {
	var req services.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	resp, err := h.auth.Login(c.Request.Context(), &req)
	if err != nil {
		response.Error(c, adminError(err))
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.AdminCookie, resp.Token, int(time.Until(resp.ExpiresAt).Seconds()), "/", "", false, true)
	response.Success(c, resp)
}

// POST /api/admin/logout
func (h *AdminHandler) Logout(c *gin.Context) {
	if err := h.auth.Logout(c.Request.Context(), middleware.AdminToken(c)); err != nil {
		logger.Warn().Err(err).Msg("[Admin] session removal failed")
	}
	c.SetCookie(middleware.AdminCookie, "", -1, "/", "", false, true)
	response.Success(c, gin.H{"message": "logged out"})
}

// GET /api/admin/session
func (h *AdminHandler) Session(c *gin.Context) {
	response.Success(c, gin.H{"username": middleware.GetUsername(c)})
}

type DefaultBranchRequest struct {
	Owner      string `json:"owner" binding:"required"`
	Repository string `json:"repository" binding:"required"`
	Branch     string `json:"branch" binding:"required"`
}

// PUT /api/admin/repositories/default-branch
func (h *AdminHandler) UpdateDefaultBranch(c *gin.Context) {
	var req DefaultBranchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if err := h.repos.UpdateDefaultBranch(c.Request.Context(), req.Owner, req.Repository, req.Branch); err != nil {
		response.Error(c, adminError(err))
		return
	}
	response.Success(c, req)
}

type OwnerRequest struct {
	Owner string `json:"owner" binding:"required"`
}

// POST /api/admin/owners
func (h *AdminHandler) AddOwner(c *gin.Context) {
	var req OwnerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	owner := strings.TrimSpace(req.Owner)
	if owner == "" {
		response.BadRequest(c, "owner is required")
		return
	}
	if err := h.owners.Add(c.Request.Context(), owner); err != nil {
		response.ServerError(c, err.Error())
		return
	}
	response.Created(c, h.owners.List(c.Request.Context()))
}

// DELETE /api/admin/owners/:owner
func (h *AdminHandler) RemoveOwner(c *gin.Context) {
	if err := h.owners.Remove(c.Request.Context(), c.Param("owner")); err != nil {
		response.ServerError(c, err.Error())
		return
	}
	response.Success(c, h.owners.List(c.Request.Context()))
}

// RunRetention sweeps old reports immediately.
// POST /api/admin/retention/run
func (h *AdminHandler) RunRetention(c *gin.Context) {
	result, err := h.retention.Sweep(c.Request.Context())
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}
	response.Success(c, result)
}

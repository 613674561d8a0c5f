package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stockyard-ci/stockyard/internal/services"
	"github.com/stockyard-ci/stockyard/pkg/logger"
	"github.com/stockyard-ci/stockyard/pkg/response"
	"github.com/tidwall/gjson"
)

const (
	statusMissingScope  = "missing owner, repo or branch"
	statusInvalidReport = "invalid report body"
	statusStoreFailed   = "failed to store report"
)

// storeFunc writes one parsed report.
type storeFunc func(ctx context.Context, scope services.Scope) (string, error)

// UploadHandler accepts report uploads from CI pipelines.
type UploadHandler struct {
	repos         *services.RepositoryService
	reports       *services.Reports
	owners        *OwnerDirectory
	defaultBranch string
}

func NewUploadHandler(repos *services.RepositoryService, reports *services.Reports, owners *OwnerDirectory, defaultBranch string) *UploadHandler {
	return &UploadHandler{repos: repos, reports: reports, owners: owners, defaultBranch: defaultBranch}
}

// upload validates the scope and body before any write, records the
// repository and branch, then stores the report.
func (h *UploadHandler) upload(c *gin.Context, kind string, parse func(raw []byte) (storeFunc, error)) {
	scope := bindScope(c)
	if !scope.Complete() {
		// CI runners expect 200 here.
		response.Ack(c, http.StatusOK, statusMissingScope)
		return
	}

	raw, err := c.GetRawData()
	if err != nil {
		response.Ack(c, http.StatusBadRequest, statusInvalidReport)
		return
	}
	store, err := parse(raw)
	if err != nil {
		logger.Warn().Err(err).Str("type", kind).Str("scope", scope.String()).Msg("[Upload] rejected report")
		response.Ack(c, http.StatusBadRequest, statusInvalidReport)
		return
	}

	ctx := c.Request.Context()
	if err := h.repos.RecordUpload(ctx, scope, c.Query("pull_request"), h.defaultBranch); err != nil {
		logger.Error().Err(err).Str("scope", scope.String()).Msg("[Upload] registry update failed")
		response.Ack(c, http.StatusInternalServerError, statusStoreFailed)
		return
	}

	id, err := store(ctx, scope)
	if err != nil {
		logger.Error().Err(err).Str("type", kind).Str("scope", scope.String()).Msg("[Upload] store failed")
		response.Ack(c, http.StatusInternalServerError, statusStoreFailed)
		return
	}

	if err := h.owners.Add(ctx, scope.Owner); err != nil {
		logger.Warn().Err(err).Str("owner", scope.Owner).Msg("[Upload] owners cache update failed")
	}

	logger.Info().Str("type", kind).Str("scope", scope.String()).Str("report_id", id).Int("bytes", len(raw)).Msg("[Upload] report stored")
	response.Ack(c, http.StatusOK, response.StatusOK)
}

// LinesOfCode handles both /upload/cloc and /upload/linesofcode.
// POST /api/upload/linesofcode
func (h *UploadHandler) LinesOfCode(c *gin.Context) {
	h.upload(c, "linesofcode", func(raw []byte) (storeFunc, error) {
		langs, err := services.ParseLinesOfCode(raw)
		if err != nil {
			return nil, err
		}
		return func(ctx context.Context, scope services.Scope) (string, error) {
			return h.reports.LinesOfCode.Store(ctx, scope, langs, raw)
		}, nil
	})
}

// POST /api/upload/codecoverage
func (h *UploadHandler) CodeCoverage(c *gin.Context) {
	h.upload(c, "codecoverage", func(raw []byte) (storeFunc, error) {
		in, err := services.ParseCodeCoverage(raw)
		if err != nil {
			return nil, err
		}
		return func(ctx context.Context, scope services.Scope) (string, error) {
			return h.reports.CodeCoverage.Store(ctx, scope, in, raw)
		}, nil
	})
}

// POST /api/upload/unittest
func (h *UploadHandler) UnitTests(c *gin.Context) {
	h.upload(c, "unittest", func(raw []byte) (storeFunc, error) {
		classes, err := services.ParseUnitTests(raw)
		if err != nil {
			return nil, err
		}
		return func(ctx context.Context, scope services.Scope) (string, error) {
			return h.reports.UnitTests.Store(ctx, scope, classes, raw)
		}, nil
	})
}

// POST /api/upload/imagecapture
func (h *UploadHandler) ImageCaptures(c *gin.Context) {
	h.upload(c, "imagecapture", func(raw []byte) (storeFunc, error) {
		captures, err := services.ParseImageCaptures(raw)
		if err != nil {
			return nil, err
		}
		return func(ctx context.Context, scope services.Scope) (string, error) {
			return h.reports.ImageCaptures.Store(ctx, scope, captures, raw)
		}, nil
	})
}

// POST /api/upload/imagecapturediff
func (h *UploadHandler) ImageCaptureDiff(c *gin.Context) {
	h.upload(c, "imagecapturediff", func(raw []byte) (storeFunc, error) {
		if !gjson.ValidBytes(raw) {
			return nil, services.ErrInvalidReport
		}
		return func(ctx context.Context, scope services.Scope) (string, error) {
			return h.reports.ImageCaptureDiffs.Store(ctx, scope, raw)
		}, nil
	})
}

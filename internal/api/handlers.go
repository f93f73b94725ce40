package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"cotizador/internal/common/errors"
	"cotizador/internal/common/logger"
	"cotizador/internal/models"
	"cotizador/internal/service"
)

type handler struct {
	svc   QuoteService
	ready ReadyFunc
	log   logger.Logger
}

func (h *handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "time": time.Now().UTC()})
}

func (h *handler) readiness(c *gin.Context) {
	if h.ready != nil {
		if err := h.ready(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

func (h *handler) clinics(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			h.fail(c, errors.NewValidationError(map[string]string{"limit": "must be a positive integer"}))
			return
		}
		limit = n
	}

	names, err := h.svc.Clinics(c.Request.Context(), c.Query("q"), limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"clinics": names})
}

func (h *handler) options(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Options())
}

func (h *handler) reloadCatalog(c *gin.Context) {
	res, err := h.svc.ReloadCatalog(c.Request.Context(), c.GetHeader(AccessHeader))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *handler) campaigns(c *gin.Context) {
	res, err := h.svc.Campaigns(
		c.Request.Context(),
		c.GetHeader(AccessHeader),
		c.Query("month"),
		models.ClientType(c.Query("clientType")),
	)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *handler) quote(c *gin.Context) {
	var req service.QuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, errors.NewValidationError(map[string]string{"body": err.Error()}))
		return
	}
	if req.AccessCode == "" {
		req.AccessCode = c.GetHeader(AccessHeader)
	}

	resp, err := h.svc.Quote(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *handler) proposal(c *gin.Context) {
	var req service.ProposalRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.fail(c, errors.NewValidationError(map[string]string{"body": err.Error()}))
			return
		}
	}
	req.QuoteID = c.Param("id")
	if req.AccessCode == "" {
		req.AccessCode = c.GetHeader(AccessHeader)
	}

	res, err := h.svc.Proposal(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", res.FileName))
	c.Header("X-Folio", strconv.FormatInt(res.Folio, 10))
	c.Data(http.StatusOK, "application/pdf", res.Document)
}

func (h *handler) fail(c *gin.Context, err error) {
	stdErr := errors.Normalize(err)
	status := stdErr.HTTPStatus()
	if status >= 500 {
		h.log.Error("Request error", map[string]interface{}{
			"code":    string(stdErr.Code),
			"details": stdErr.Details,
		})
	}

	body := gin.H{"error": stdErr.Message, "code": stdErr.Code}
	if stdErr.Details != "" {
		body["details"] = stdErr.Details
	}
	if stdErr.Code == errors.ErrCodeValidationFailed && len(stdErr.Metadata) > 0 {
		body["fields"] = stdErr.Metadata
	}
	c.AbortWithStatusJSON(status, body)
}

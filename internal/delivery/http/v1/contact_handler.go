package v1

import (
	"errors"
	"io"
	"net/http"

	"go-contact-backend/internal/delivery/http/response"
	"go-contact-backend/internal/domain"
	"go-contact-backend/pkg/apperror"
	"go-contact-backend/pkg/metrics"
	"go-contact-backend/pkg/security"

	"github.com/gin-gonic/gin"
)

// Client-facing messages. They never carry relay details.
const (
	msgRequiredFieldsMissing = "Required fields missing"
	msgInvalidEmail          = "Invalid email"
	msgInvalidBody           = "Invalid request body"
	msgServerError           = "Server error"
)

type ContactHandler struct {
	contactUC domain.ContactUsecase
	metrics   *metrics.Recorder
	secLog    *security.SecurityLogger
}

// NewContactHandler registers the contact routes (public, no auth required).
// Route middleware such as the rate limiter runs before the handler.
func NewContactHandler(api *gin.RouterGroup, contactUC domain.ContactUsecase, recorder *metrics.Recorder, secLog *security.SecurityLogger, mw ...gin.HandlerFunc) {
	handler := &ContactHandler{
		contactUC: contactUC,
		metrics:   recorder,
		secLog:    secLog,
	}

	api.POST("/contact", append(mw, handler.SubmitContact)...)
}

// SubmitContact godoc
// @Summary      Submit Contact Form
// @Description  Validates the submission, notifies the site owner and sends the submitter an acknowledgment.
// @Tags         contact
// @Accept       json
// @Produce      json
// @Param        contact  body      domain.ContactSubmission  true  "Contact Form Data"
// @Success      200      {object}  response.OKResponse
// @Failure      400      {object}  response.ErrorResponse
// @Failure      413      {object}  response.ErrorResponse
// @Failure      429      {object}  response.ErrorResponse
// @Failure      500      {object}  response.ErrorResponse
// @Router       /api/contact [post]
func (h *ContactHandler) SubmitContact(c *gin.Context) {
	var sub domain.ContactSubmission
	// An empty body is an empty submission, reported as missing fields below
	if err := c.ShouldBindJSON(&sub); err != nil && !errors.Is(err, io.EOF) {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.metrics.ObserveSubmission(metrics.OutcomeBadRequest)
			_ = c.Error(apperror.PayloadTooLarge(err))
			return
		}
		h.metrics.ObserveSubmission(metrics.OutcomeBadRequest)
		_ = c.Error(apperror.BadRequest(msgInvalidBody, err))
		return
	}

	err := h.contactUC.Submit(c.Request.Context(), &sub)
	switch {
	case err == nil:
		h.metrics.ObserveSubmission(metrics.OutcomeOK)
		response.OK(c)

	case errors.Is(err, domain.ErrRequiredFieldsMissing):
		h.metrics.ObserveSubmission(metrics.OutcomeMissingFields)
		h.secLog.LogValidationFailed(c.Request.Context(), sub.Email, c.ClientIP(), response.RequestID(c), err.Error())
		_ = c.Error(apperror.BadRequest(msgRequiredFieldsMissing, err))

	case errors.Is(err, domain.ErrInvalidEmail):
		h.metrics.ObserveSubmission(metrics.OutcomeInvalidEmail)
		h.secLog.LogValidationFailed(c.Request.Context(), sub.Email, c.ClientIP(), response.RequestID(c), err.Error())
		_ = c.Error(apperror.BadRequest(msgInvalidEmail, err))

	default:
		// Owner and acknowledgment failures look the same to the client
		h.metrics.ObserveSubmission(metrics.OutcomeServerError)
		h.secLog.LogDispatchFailed(c.Request.Context(), sub.Email, c.ClientIP(), response.RequestID(c), err)
		_ = c.Error(apperror.New(http.StatusInternalServerError, msgServerError, err))
	}
}

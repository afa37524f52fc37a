package handlers

import (
	"net/http"

	"github.com/jordanlanch/backoffice/pkg/api/errors"
	"github.com/jordanlanch/backoffice/pkg/domain"
	"github.com/jordanlanch/backoffice/pkg/phone"
	"github.com/labstack/echo/v4"
)

// MaxBatchPhones bounds a batch validation request.
const MaxBatchPhones = 100

// PhoneHandler checks phone numbers the way contact records store them.
type PhoneHandler struct {
	normalizer *phone.Normalizer
}

// NewPhoneHandler creates a new phone handler.
func NewPhoneHandler(normalizer *phone.Normalizer) *PhoneHandler {
	return &PhoneHandler{normalizer: normalizer}
}

// ValidatePhoneRequest represents a phone validation request.
type ValidatePhoneRequest struct {
	Phone string `json:"phone"`
	// Region overrides the default region, e.g. "SA".
	Region string `json:"region,omitempty"`
}

// BatchValidateRequest represents a batch phone validation request.
type BatchValidateRequest struct {
	Phones []string `json:"phones"`
	Region string   `json:"region,omitempty"`
}

// BatchValidateResponse represents a batch validation response.
type BatchValidateResponse struct {
	Results []phone.ValidationResult `json:"results"`
	Valid   int                      `json:"valid"`
	Invalid int                      `json:"invalid"`
}

func (h *PhoneHandler) forRegion(region string) *phone.Normalizer {
	if region == "" {
		return h.normalizer
	}
	return phone.NewNormalizer(region)
}

// ValidatePhone godoc
// @Summary Validate a phone number
// @Description Parses the number in the default region unless one is given and reports its E.164 form.
// @Tags Phone
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body ValidatePhoneRequest true "Phone"
// @Success 200 {object} phone.ValidationResult
// @Failure 400 {object} models.ErrorResponse
// @Router /phone/validate [post]
func (h *PhoneHandler) ValidatePhone(c echo.Context) error {
	var req ValidatePhoneRequest
	if err := bind(c, &req); err != nil {
		return errors.FromDomain(c, err)
	}
	if req.Phone == "" {
		return errors.FromDomain(c, domain.NewFieldError("phone", "is required"))
	}

	result, err := h.forRegion(req.Region).Validate(req.Phone)
	if err != nil {
		return errors.FromDomain(c, domain.NewFieldError("phone", "invalid phone number"))
	}
	return c.JSON(http.StatusOK, result)
}

// BatchValidatePhones godoc
// @Summary Validate multiple phone numbers
// @Description Validates up to 100 numbers. Unparseable numbers are reported as invalid.
// @Tags Phone
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body BatchValidateRequest true "Phones"
// @Success 200 {object} BatchValidateResponse
// @Failure 400 {object} models.ErrorResponse
// @Router /phone/batch-validate [post]
func (h *PhoneHandler) BatchValidatePhones(c echo.Context) error {
	var req BatchValidateRequest
	if err := bind(c, &req); err != nil {
		return errors.FromDomain(c, err)
	}
	if len(req.Phones) == 0 {
		return errors.FromDomain(c, domain.NewFieldError("phones", "at least one phone number is required"))
	}
	if len(req.Phones) > MaxBatchPhones {
		return errors.FromDomain(c, domain.NewFieldError("phones", "at most 100 phone numbers are allowed"))
	}

	n := h.forRegion(req.Region)
	resp := BatchValidateResponse{Results: make([]phone.ValidationResult, 0, len(req.Phones))}
	for _, p := range req.Phones {
		result, err := n.Validate(p)
		if err != nil {
			result = &phone.ValidationResult{E164Format: p, InternationalFormat: p, PhoneType: phone.TypeUnknown}
		}
		resp.Results = append(resp.Results, *result)
		if result.IsValid {
			resp.Valid++
		} else {
			resp.Invalid++
		}
	}
	return c.JSON(http.StatusOK, resp)
}

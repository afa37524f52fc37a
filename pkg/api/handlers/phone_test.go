package handlers

import (
	"net/http"
	"strconv"
	"testing"

	"github.com/jordanlanch/backoffice/pkg/models"
	"github.com/jordanlanch/backoffice/pkg/phone"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPhoneHandler_ValidatePhone(t *testing.T) {
	h := NewPhoneHandler(phone.NewNormalizer("US"))

	tests := []struct {
		name     string
		body     ValidatePhoneRequest
		wantCode int
		wantE164 string
	}{
		{"default region", ValidatePhoneRequest{Phone: "(202) 456-1111"}, http.StatusOK, "+12024561111"},
		{"international", ValidatePhoneRequest{Phone: testPhone}, http.StatusOK, "+12024561111"},
		{"region override", ValidatePhoneRequest{Phone: "050 123 4567", Region: "SA"}, http.StatusOK, "+966501234567"},
		{"missing", ValidatePhoneRequest{}, http.StatusBadRequest, ""},
		{"garbage", ValidatePhoneRequest{Phone: "call me"}, http.StatusBadRequest, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, rec := newContext(t, request{method: http.MethodPost, target: "/phone/validate", body: tt.body})
			require.NoError(t, h.ValidatePhone(c))
			require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			if tt.wantCode != http.StatusOK {
				assert.Contains(t, decode[models.ErrorResponse](t, rec).Details, "phone")
				return
			}
			assert.Equal(t, tt.wantE164, decode[phone.ValidationResult](t, rec).E164Format)
		})
	}
}

func TestPhoneHandler_BatchValidatePhones(t *testing.T) {
	h := NewPhoneHandler(phone.NewNormalizer("US"))

	body := BatchValidateRequest{Phones: []string{testPhone, "12", "not a number"}}
	c, rec := newContext(t, request{method: http.MethodPost, target: "/phone/batch-validate", body: body})
	require.NoError(t, h.BatchValidatePhones(c))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[BatchValidateResponse](t, rec)
	require.Len(t, resp.Results, 3)
	assert.Equal(t, 1, resp.Valid)
	assert.Equal(t, 2, resp.Invalid)
	assert.Equal(t, "not a number", resp.Results[2].E164Format)

	c, rec = newContext(t, request{method: http.MethodPost, target: "/phone/batch-validate", body: BatchValidateRequest{}})
	require.NoError(t, h.BatchValidatePhones(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	many := make([]string, MaxBatchPhones+1)
	for i := range many {
		many[i] = "+1202456" + strconv.Itoa(1000+i)
	}
	c, rec = newContext(t, request{method: http.MethodPost, target: "/phone/batch-validate", body: BatchValidateRequest{Phones: many}})
	require.NoError(t, h.BatchValidatePhones(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

package phone

import (
	"fmt"
	"strings"

	"github.com/jordanlanch/backoffice/pkg/domain"
	"github.com/nyaruka/phonenumbers"
)

// PhoneType represents the type of phone number.
type PhoneType string

const (
	TypeFixedLine         PhoneType = "FIXED_LINE"
	TypeMobile            PhoneType = "MOBILE"
	TypeFixedLineOrMobile PhoneType = "FIXED_LINE_OR_MOBILE"
	TypeTollFree          PhoneType = "TOLL_FREE"
	TypeVoip              PhoneType = "VOIP"
	TypeUnknown           PhoneType = "UNKNOWN"
)

// ValidationResult contains the result of phone number validation.
type ValidationResult struct {
	IsValid             bool      `json:"is_valid"`
	E164Format          string    `json:"e164_format"`
	InternationalFormat string    `json:"international_format"`
	CountryCode         string    `json:"country_code"`
	PhoneType           PhoneType `json:"phone_type"`
}

// Normalizer turns user-entered phone numbers into E.164. Numbers without a
// country prefix are read in the default region.
type Normalizer struct {
	region string
}

// NewNormalizer creates a normalizer for the given ISO region, e.g. "SA".
func NewNormalizer(region string) *Normalizer {
	if region == "" {
		region = "US"
	}
	return &Normalizer{region: strings.ToUpper(region)}
}

// Region returns the default region.
func (n *Normalizer) Region() string { return n.region }

// Validate parses phone and reports its formats and type.
func (n *Normalizer) Validate(phone string) (*ValidationResult, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return nil, fmt.Errorf("phone number cannot be empty")
	}

	parsed, err := phonenumbers.Parse(phone, n.region)
	if err != nil {
		return nil, fmt.Errorf("failed to parse phone number: %w", err)
	}

	return &ValidationResult{
		IsValid:             phonenumbers.IsValidNumber(parsed),
		E164Format:          phonenumbers.Format(parsed, phonenumbers.E164),
		InternationalFormat: phonenumbers.Format(parsed, phonenumbers.INTERNATIONAL),
		CountryCode:         phonenumbers.GetRegionCodeForNumber(parsed),
		PhoneType:           phoneType(phonenumbers.GetNumberType(parsed)),
	}, nil
}

// Normalize returns the E.164 form of phone, or a validation error on the
// given field when the number is not valid.
func (n *Normalizer) Normalize(field, phone string) (string, error) {
	result, err := n.Validate(phone)
	if err != nil || !result.IsValid {
		return "", domain.NewFieldError(field, "invalid phone number")
	}
	return result.E164Format, nil
}

// NormalizeOptional is Normalize for fields that may be left empty.
func (n *Normalizer) NormalizeOptional(field, phone string) (string, error) {
	if strings.TrimSpace(phone) == "" {
		return "", nil
	}
	return n.Normalize(field, phone)
}

func phoneType(t phonenumbers.PhoneNumberType) PhoneType {
	switch t {
	case phonenumbers.FIXED_LINE:
		return TypeFixedLine
	case phonenumbers.MOBILE:
		return TypeMobile
	case phonenumbers.FIXED_LINE_OR_MOBILE:
		return TypeFixedLineOrMobile
	case phonenumbers.TOLL_FREE:
		return TypeTollFree
	case phonenumbers.VOIP:
		return TypeVoip
	default:
		return TypeUnknown
	}
}

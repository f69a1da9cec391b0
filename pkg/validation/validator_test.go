package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type issueRequest struct {
	Type        string `validate:"gift_card_type"`
	AmountCents int64  `validate:"gte=0"`
	Currency    string `validate:"omitempty,iso4217"`
	CustomerID  string `validate:"omitempty,min=3"`
}

func TestValidateStruct_Valid(t *testing.T) {
	err := ValidateStruct(issueRequest{
		Type:        "DIGITAL",
		AmountCents: 2500,
		Currency:    "USD",
		CustomerID:  "cust_1",
	})
	assert.NoError(t, err)
}

func TestValidateStruct_EmptyTypeAllowed(t *testing.T) {
	err := ValidateStruct(issueRequest{AmountCents: 0})
	assert.NoError(t, err)
}

func TestValidateStruct_InvalidGiftCardType(t *testing.T) {
	err := ValidateStruct(issueRequest{Type: "VIRTUAL"})

	var valErr *ValidationError
	require.True(t, errors.As(err, &valErr))
	assert.Equal(t, "Type must be a valid gift card type (DIGITAL, PHYSICAL)", valErr.Errors["Type"])
}

func TestValidateStruct_CollectsAllFields(t *testing.T) {
	err := ValidateStruct(issueRequest{
		Type:        "VIRTUAL",
		AmountCents: -1,
		Currency:    "DOLLARS",
	})

	var valErr *ValidationError
	require.True(t, errors.As(err, &valErr))
	assert.Len(t, valErr.Errors, 3)
	assert.Contains(t, valErr.Errors["AmountCents"], "greater than or equal to 0")
	assert.Contains(t, valErr.Errors["Currency"], "ISO 4217")
}

func TestValidationError_AddError(t *testing.T) {
	valErr := &ValidationError{}
	assert.False(t, valErr.HasErrors())

	valErr.AddError("amount", "amount must not be zero")
	assert.True(t, valErr.HasErrors())
	assert.Contains(t, valErr.Error(), "amount must not be zero")
}

package purchase

import (
	"testing"

	"github.com/example/storefront/domain/apperror"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsValidCardNumber(t *testing.T) {
	tests := []struct {
		number string
		want   bool
	}{
		{"4532015112830366", true},
		{"1234567812345678", false},
		{"4532 0151 1283 0366", true},
		{"4532-0151-1283-0366", true},
		{"79927398713", true},
		{"79927398710", false},
		{"4532O15112830366", false},
		{"", false},
		{"   ", false},
	}

	for _, tt := range tests {
		t.Run(tt.number, func(t *testing.T) {
			assert.Equal(t, tt.want, IsValidCardNumber(tt.number))
		})
	}
}

func TestPaymentDetails_ValidateOrder(t *testing.T) {
	tests := []struct {
		name    string
		details PaymentDetails
		kind    apperror.Kind
		msg     string
	}{
		{
			name:    "method checked first",
			details: PaymentDetails{Method: "cash", Account: "", ShippingAddress: ""},
			kind:    apperror.KindInvalidInput,
			msg:     "payment_method",
		},
		{
			name:    "account before address",
			details: PaymentDetails{Method: PaymentCreditCard, Account: "  ", ShippingAddress: ""},
			kind:    apperror.KindInvalidInput,
			msg:     "payment_account",
		},
		{
			name:    "address before checksum",
			details: PaymentDetails{Method: PaymentCreditCard, Account: "1234567812345678", ShippingAddress: " "},
			kind:    apperror.KindInvalidInput,
			msg:     "shipping_address",
		},
		{
			name:    "checksum last",
			details: PaymentDetails{Method: PaymentCreditCard, Account: "1234567812345678", ShippingAddress: "Zone 10"},
			kind:    apperror.KindInvalidPaymentAccount,
			msg:     "checksum",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.details.Validate()
			require.Error(t, err)
			assert.Equal(t, tt.kind, apperror.KindOf(err))
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestPaymentDetails_ValidateAccepts(t *testing.T) {
	assert.NoError(t, PaymentDetails{Method: PaymentCreditCard, Account: "4532015112830366", ShippingAddress: "Zone 10"}.Validate())
	// PayPal accounts skip the card checksum.
	assert.NoError(t, PaymentDetails{Method: PaymentPayPal, Account: "buyer@example.com", ShippingAddress: "Zone 10"}.Validate())
}

func TestStatusTransitions(t *testing.T) {
	assert.NoError(t, StatusPending.CanCancel())
	assert.NoError(t, StatusPending.CanPay())
	assert.NoError(t, StatusPending.CanEdit())

	for _, s := range []Status{StatusPaid, StatusCanceled} {
		assert.True(t, s.IsTerminal())
		assert.True(t, apperror.Is(s.CanCancel(), apperror.KindInvalidState))
		assert.True(t, apperror.Is(s.CanPay(), apperror.KindInvalidState))
		assert.True(t, apperror.Is(s.CanEdit(), apperror.KindInvalidState))
	}

	assert.Contains(t, StatusPaid.CanPay().Error(), "already paid")
	assert.Contains(t, StatusCanceled.CanPay().Error(), "cannot pay a canceled purchase")
}

func TestTotal(t *testing.T) {
	lines := []Line{
		NewLine("p1", "Mouse", 2, decimal.RequireFromString("19.99")),
		NewLine("p2", "Pad", 3, decimal.RequireFromString("5.10")),
	}
	assert.True(t, decimal.RequireFromString("39.98").Equal(lines[0].LineTotal))
	assert.True(t, decimal.RequireFromString("55.28").Equal(Total(lines)))
	assert.True(t, decimal.Zero.Equal(Total(nil)))
}

func TestMaskAccount(t *testing.T) {
	assert.Equal(t, "0366", Last4("4532 0151 1283 0366"))
	assert.Equal(t, "**** 0366", MaskAccount("0366"))
	assert.Equal(t, "ab", Last4("ab"))
	assert.Equal(t, "****", MaskAccount(""))
}

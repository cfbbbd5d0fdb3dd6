package purchase

import (
	"strings"

	"github.com/example/storefront/domain/apperror"
)

// PaymentMethod is how a purchase is paid.
type PaymentMethod string

const (
	PaymentCreditCard PaymentMethod = "credit_card"
	PaymentPayPal     PaymentMethod = "paypal"
)

// IsValid reports whether m is a supported payment method.
func (m PaymentMethod) IsValid() bool {
	return m == PaymentCreditCard || m == PaymentPayPal
}

// PaymentDetails are the caller supplied payment and shipping fields.
type PaymentDetails struct {
	Method          PaymentMethod
	Account         string
	ShippingAddress string
}

// Normalize trims surrounding whitespace from every field.
func (d PaymentDetails) Normalize() PaymentDetails {
	return PaymentDetails{
		Method:          PaymentMethod(strings.TrimSpace(string(d.Method))),
		Account:         strings.TrimSpace(d.Account),
		ShippingAddress: strings.TrimSpace(d.ShippingAddress),
	}
}

// Validate checks the fields in a fixed order and returns the first failure:
// method, account, shipping address, then the card checksum.
func (d PaymentDetails) Validate() error {
	d = d.Normalize()
	if !d.Method.IsValid() {
		return apperror.New(apperror.KindInvalidInput, "payment_method must be credit_card or paypal")
	}
	if d.Account == "" {
		return apperror.New(apperror.KindInvalidInput, "payment_account is required")
	}
	if d.ShippingAddress == "" {
		return apperror.New(apperror.KindInvalidInput, "shipping_address is required")
	}
	if d.Method == PaymentCreditCard && !IsValidCardNumber(d.Account) {
		return apperror.New(apperror.KindInvalidPaymentAccount, "credit card number failed checksum validation")
	}
	return nil
}

// Last4 returns the trailing four characters of an account, ignoring card
// separators.
func Last4(account string) string {
	account = stripCardSeparators(strings.TrimSpace(account))
	if len(account) <= 4 {
		return account
	}
	return account[len(account)-4:]
}

// MaskAccount renders a stored last-four suffix for display.
func MaskAccount(last4 string) string {
	if last4 == "" {
		return "****"
	}
	return "**** " + last4
}

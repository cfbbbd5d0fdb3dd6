package purchase

import "github.com/example/storefront/domain/apperror"

// Status is the lifecycle state of a purchase.
type Status string

const (
	StatusPending  Status = "pending"
	StatusPaid     Status = "paid"
	StatusCanceled Status = "canceled"
)

// IsValid reports whether s is a known status.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusPaid, StatusCanceled:
		return true
	}
	return false
}

// IsTerminal reports whether no transition leaves s.
func (s Status) IsTerminal() bool {
	return s == StatusPaid || s == StatusCanceled
}

// CanCancel returns nil when a purchase in status s may be canceled.
func (s Status) CanCancel() error {
	switch s {
	case StatusPending:
		return nil
	case StatusCanceled:
		return apperror.New(apperror.KindInvalidState, "purchase already canceled")
	case StatusPaid:
		return apperror.New(apperror.KindInvalidState, "cannot cancel a paid purchase")
	}
	return apperror.Newf(apperror.KindInvalidState, "unknown purchase status %q", s)
}

// CanPay returns nil when a purchase in status s may be marked paid.
func (s Status) CanPay() error {
	switch s {
	case StatusPending:
		return nil
	case StatusPaid:
		return apperror.New(apperror.KindInvalidState, "purchase already paid")
	case StatusCanceled:
		return apperror.New(apperror.KindInvalidState, "cannot pay a canceled purchase")
	}
	return apperror.Newf(apperror.KindInvalidState, "unknown purchase status %q", s)
}

// CanEdit returns nil when a purchase in status s may have its fields edited.
func (s Status) CanEdit() error {
	if s == StatusPending {
		return nil
	}
	return apperror.Newf(apperror.KindInvalidState, "cannot edit a %s purchase", s)
}

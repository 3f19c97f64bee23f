package models

import (
	"fmt"
	"strings"
)

// OrderStatus is the kitchen lifecycle of an order. The store keeps it upper-case
// (Wire), memory and JSON use the lower-case form (String).
type OrderStatus int

const (
	StatusPending OrderStatus = iota
	StatusCooking
	StatusReady
	StatusServed
	StatusPaid
)

var orderStatusNames = [...]string{"pending", "cooking", "ready", "served", "paid"}

// LookupOrderStatus decodes s regardless of case.
func LookupOrderStatus(s string) (OrderStatus, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range orderStatusNames {
		if name == s {
			return OrderStatus(i), true
		}
	}
	return StatusPending, false
}

// ParseOrderStatus decodes a stored status. Empty or unknown values read as pending.
func ParseOrderStatus(s string) OrderStatus {
	st, _ := LookupOrderStatus(s)
	return st
}

func (s OrderStatus) String() string {
	if s < StatusPending || s > StatusPaid {
		return fmt.Sprintf("status(%d)", int(s))
	}
	return orderStatusNames[s]
}

// Wire is the upper-case form written to the store.
func (s OrderStatus) Wire() string {
	return strings.ToUpper(s.String())
}

// Next returns the single forward step from s. Paid is terminal.
func (s OrderStatus) Next() (OrderStatus, bool) {
	if s < StatusPending || s >= StatusPaid {
		return s, false
	}
	return s + 1, true
}

// CanTransitionTo reports whether to is exactly one step forward from s.
func (s OrderStatus) CanTransitionTo(to OrderStatus) bool {
	next, ok := s.Next()
	return ok && next == to
}

func (s OrderStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *OrderStatus) UnmarshalText(b []byte) error {
	st, ok := LookupOrderStatus(string(b))
	if !ok {
		return fmt.Errorf("unknown order status %q", string(b))
	}
	*s = st
	return nil
}

// PaymentStatus is independent of OrderStatus. It is upper-case everywhere.
type PaymentStatus int

const (
	PaymentPending PaymentStatus = iota
	PaymentPaid
	PaymentFailed
)

var paymentStatusNames = [...]string{"PENDING", "PAID", "FAILED"}

func LookupPaymentStatus(s string) (PaymentStatus, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for i, name := range paymentStatusNames {
		if name == s {
			return PaymentStatus(i), true
		}
	}
	return PaymentPending, false
}

// ParsePaymentStatus decodes a stored payment status, defaulting to PENDING.
func ParsePaymentStatus(s string) PaymentStatus {
	ps, _ := LookupPaymentStatus(s)
	return ps
}

func (p PaymentStatus) String() string {
	if p < PaymentPending || p > PaymentFailed {
		return fmt.Sprintf("payment_status(%d)", int(p))
	}
	return paymentStatusNames[p]
}

func (p PaymentStatus) Wire() string {
	return p.String()
}

func (p PaymentStatus) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *PaymentStatus) UnmarshalText(b []byte) error {
	ps, ok := LookupPaymentStatus(string(b))
	if !ok {
		return fmt.Errorf("unknown payment status %q", string(b))
	}
	*p = ps
	return nil
}

package types

import (
	"fmt"
	"regexp"
	"strings"
)

var pincodePattern = regexp.MustCompile(`^[1-9][0-9]{5}$`)

// Address is a delivery address attached to an order.
type Address struct {
	Name    string  `json:"name" validate:"required"`
	Phone   string  `json:"phone" validate:"required"`
	Line1   string  `json:"line1" validate:"required"`
	Line2   *string `json:"line2,omitempty"`
	City    string  `json:"city" validate:"required"`
	State   string  `json:"state" validate:"required"`
	Pincode string  `json:"pincode" validate:"required"`
}

// Validate checks the fields the order endpoint rejects outright.
func (a Address) Validate() error {
	if strings.TrimSpace(a.Line1) == "" {
		return fmt.Errorf("address: missing line1")
	}
	if strings.TrimSpace(a.City) == "" {
		return fmt.Errorf("address: missing city")
	}
	if strings.TrimSpace(a.State) == "" {
		return fmt.Errorf("address: missing state")
	}
	if !ValidPincode(a.Pincode) {
		return fmt.Errorf("address: invalid pincode %q", a.Pincode)
	}
	return nil
}

// ValidPincode reports whether code is a six digit postal code.
func ValidPincode(code string) bool {
	return pincodePattern.MatchString(strings.TrimSpace(code))
}

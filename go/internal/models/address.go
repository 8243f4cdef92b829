package models

import (
	"strings"

	gethcommon "github.com/ethereum/go-ethereum/common"
)

// Address identifies an account on the remote ledger. The zero value means "absent".
type Address string

// NewAddress trims the input and, for EVM (H160) hex addresses, returns the checksummed form.
// Anything else (for example SS58 strings) is kept as typed.
func NewAddress(s string) Address {
	s = strings.TrimSpace(s)
	if gethcommon.IsHexAddress(s) {
		return Address(gethcommon.HexToAddress(s).Hex())
	}
	return Address(s)
}

// IsZero reports whether the address is absent.
func (a Address) IsZero() bool {
	return strings.TrimSpace(string(a)) == ""
}

// Equal compares two addresses, ignoring hex checksum casing.
func (a Address) Equal(b Address) bool {
	return NewAddress(string(a)) == NewAddress(string(b))
}

// Short renders the address as 0x1234...abcd for display.
func (a Address) Short() string {
	s := string(a)
	if len(s) <= 10 {
		return s
	}
	return s[:6] + "..." + s[len(s)-4:]
}

func (a Address) String() string {
	return string(a)
}

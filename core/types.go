package core

import (
	"fmt"
	"strconv"
	"strings"
)

// Address identifies a single time series within an origin.
type Address uint64

// String renders the address in its canonical fixed-width hexadecimal form.
func (a Address) String() string {
	return fmt.Sprintf("%016x", uint64(a))
}

// ParseAddress parses an address from its hexadecimal text form.
// A leading "0x" prefix is accepted.
func ParseAddress(s string) (Address, error) {
	trimmed := strings.TrimPrefix(strings.ToLower(s), "0x")
	v, err := strconv.ParseUint(trimmed, 16, 64)
	if err != nil {
		return 0, &ValidationError{
			Message: "must be a 64-bit hexadecimal identifier",
			Field:   "address",
			Value:   s,
		}
	}
	return Address(v), nil
}

// SimplePoint is one value of a time series in the simple (fixed-width)
// point format. Timestamp is in nanoseconds since the epoch.
type SimplePoint struct {
	Address   Address
	Timestamp int64
	Value     uint64
}

// ExtendedPoint is one value of a time series in the extended point
// format, carrying an opaque variable-length payload.
type ExtendedPoint struct {
	Address   Address
	Timestamp int64
	Payload   []byte
}

package units

import (
	"fmt"
	"math/big"
	"regexp"
	"strings"
	"time"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

// EtherDecimals 1 ether = 10^18 wei
const EtherDecimals = 18

// DefaultTimestampLayout mirrors the en-US locale string of a browser ("1/2/2006, 3:04:05 PM").
const DefaultTimestampLayout = "1/2/2006, 3:04:05 PM"

// maxEtherIntegerDigits keeps the integer part within uint256 once shifted by 18 places.
const maxEtherIntegerDigits = 60

// plain decimal only: no sign, no exponent
var etherPattern = regexp.MustCompile(`^([0-9]*)(?:\.([0-9]*))?$`)

// ErrInvalidAmount is returned when a draft amount cannot be represented in base units.
var ErrInvalidAmount = fmt.Errorf("invalid amount")

// FromBaseUnits converts an integer wei amount into ether.
// The conversion is exact: decimal keeps the full coefficient and only moves the exponent,
// so no rounding happens.
func FromBaseUnits(amount *big.Int) decimal.Decimal {
	if amount == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(amount, -EtherDecimals)
}

// FormatEther renders an ether amount with at least one fractional digit: 1 -> "1.0", 0.5 -> "0.5".
func FormatEther(d decimal.Decimal) string {
	s := d.String()
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// ParseEther parses a decimal ether string into wei.
// Only plain "digits[.digits]" is accepted: no sign, no exponent notation.
// Accepts at most 18 fractional digits, rejects values that overflow uint256.
func ParseEther(s string) (*uint256.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidAmount)
	}
	parts := etherPattern.FindStringSubmatch(s)
	if parts == nil || (parts[1] == "" && parts[2] == "") {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	whole := strings.TrimLeft(parts[1], "0")
	if len(whole) > maxEtherIntegerDigits {
		return nil, fmt.Errorf("%w: %q overflows uint256", ErrInvalidAmount, s)
	}
	// trailing zeros beyond 18 places are harmless, anything else is sub-wei precision
	frac := strings.TrimRight(parts[2], "0")
	if len(frac) > EtherDecimals {
		return nil, fmt.Errorf("%w: too many decimal places in %q", ErrInvalidAmount, s)
	}
	if whole == "" {
		whole = "0"
	}
	d, err := decimal.NewFromString(whole + "." + frac + "0")
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}

	wei := d.Shift(EtherDecimals).BigInt()
	v, overflow := uint256.FromBig(wei)
	if overflow {
		return nil, fmt.Errorf("%w: %q overflows uint256", ErrInvalidAmount, s)
	}
	return v, nil
}

// HexQuantity encodes a quantity as minimal 0x-prefixed hex, the JSON-RPC wire form.
func HexQuantity(v *uint256.Int) string {
	if v == nil {
		return "0x0"
	}
	return v.Hex()
}

// FormatTimestamp renders unix seconds for display.
func FormatTimestamp(unix int64, loc *time.Location, layout string) string {
	if loc == nil {
		loc = time.Local
	}
	if layout == "" {
		layout = DefaultTimestampLayout
	}
	return time.Unix(unix, 0).In(loc).Format(layout)
}

package instruction

import (
	"fmt"
	"math/big"
	"time"

	"github.com/smartaccounts/bridge-relay/bridgeClient/errors"
)

// Uint80 is the 10-byte big-endian value field.
type Uint80 [10]byte

// MaxUint80 is 2^80-1.
var MaxUint80 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 80), big.NewInt(1))

// Uint80FromBig converts v, failing with a range error naming field when v
// does not fit in 80 unsigned bits.
func Uint80FromBig(field string, v *big.Int) (Uint80, error) {
	var u Uint80
	if v == nil || v.Sign() < 0 || v.BitLen() > 80 {
		return u, errors.NewRangeError(field, "must be in [0, 2^80-1]")
	}
	v.FillBytes(u[:])
	return u, nil
}

// Uint80FromUint64 never fails: every uint64 fits.
func Uint80FromUint64(v uint64) Uint80 {
	var u Uint80
	new(big.Int).SetUint64(v).FillBytes(u[:])
	return u
}

// ParseUint80 parses a base-10 string.
func ParseUint80(field, s string) (Uint80, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return Uint80{}, errors.NewFormatErrorf("%s: %q is not a decimal integer", field, s)
	}
	return Uint80FromBig(field, v)
}

func (u Uint80) Big() *big.Int {
	return new(big.Int).SetBytes(u[:])
}

// Uint64 returns the value and whether it fits.
func (u Uint80) Uint64() (uint64, bool) {
	b := u.Big()
	return b.Uint64(), b.IsUint64()
}

func (u Uint80) String() string {
	return u.Big().String()
}

// Date is a calendar day carried as the packed integer YYYYMMDD.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDate validates that y-m-d names an existing day with a four digit year.
func NewDate(y int, m time.Month, d int) (Date, error) {
	if y < 1 || y > 9999 {
		return Date{}, errors.NewRangeError("year", "must be in [1, 9999]")
	}
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	if t.Year() != y || t.Month() != m || t.Day() != d {
		return Date{}, errors.NewRangeError("date", fmt.Sprintf("%04d-%02d-%02d is not a calendar day", y, int(m), d))
	}
	return Date{Year: y, Month: m, Day: d}, nil
}

// ParseDate accepts YYYY-MM-DD.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return Date{}, errors.NewFormatErrorf("date %q must be YYYY-MM-DD", s)
	}
	return NewDate(t.Year(), t.Month(), t.Day())
}

// DateFromPacked inverts Packed.
func DateFromPacked(v uint64) (Date, error) {
	if v > 99991231 {
		return Date{}, errors.NewRangeError("date", fmt.Sprintf("%d is not a YYYYMMDD value", v))
	}
	return NewDate(int(v/10000), time.Month(v/100%100), int(v%100))
}

// Packed returns YYYYMMDD as an integer.
func (d Date) Packed() uint64 {
	return uint64(d.Year)*10000 + uint64(d.Month)*100 + uint64(d.Day)
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

package xrpl

import "time"

// RippleEpochOffset is the unix time of the ledger epoch, 2000-01-01T00:00:00Z.
const RippleEpochOffset = 946684800

func RippleTimeToUnix(t uint32) uint64 {
	return uint64(t) + RippleEpochOffset
}

// UnixToRippleTime converts unix seconds; times before the epoch clamp to 0.
func UnixToRippleTime(t time.Time) uint32 {
	s := t.Unix() - RippleEpochOffset
	if s < 0 {
		return 0
	}
	return uint32(s)
}

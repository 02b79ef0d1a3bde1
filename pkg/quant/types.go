package quant

import (
	"strconv"
	"sync/atomic"
	"time"
)

// TimeStamp represents Unix Microseconds.
type TimeStamp int64

// Now returns the current wall clock as a TimeStamp.
func Now() TimeStamp {
	return TimeStamp(time.Now().UnixMicro())
}

// Time converts the TimeStamp back to a time.Time.
func (t TimeStamp) Time() time.Time {
	return time.UnixMicro(int64(t))
}

// Sub returns the elapsed duration between two timestamps.
func (t TimeStamp) Sub(o TimeStamp) time.Duration {
	return time.Duration(t-o) * time.Microsecond
}

// NextSeq generates the next sequence number atomically.
func NextSeq(ptr *uint64) uint64 {
	return atomic.AddUint64(ptr, 1)
}

// ParseTimeStamp converts a string (ms) to TimeStamp (micros).
func ParseTimeStamp(s string) (TimeStamp, error) {
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, err
	}
	return TimeStamp(ms * 1000), nil
}

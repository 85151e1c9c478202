package matches

import (
	"fmt"
	"strings"
)

// StatusBucket is the coarse lifecycle phase of a match.
type StatusBucket uint8

const (
	BucketOther StatusBucket = iota
	BucketLive
	BucketScheduled
	BucketFinished
)

// statusTable is the only mapping from raw upstream codes to buckets.
var statusTable = map[string]StatusBucket{
	"1H":  BucketLive,
	"2H":  BucketLive,
	"HT":  BucketLive,
	"ET":  BucketLive,
	"BT":  BucketLive,
	"P":   BucketLive,
	"NS":  BucketScheduled,
	"TBD": BucketScheduled,
	"FT":  BucketFinished,
	"AET": BucketFinished,
	"PEN": BucketFinished,
}

// Classify maps a raw status code to its bucket. Unknown codes map to BucketOther.
func Classify(code string) StatusBucket {
	if bucket, ok := statusTable[strings.ToUpper(strings.TrimSpace(code))]; ok {
		return bucket
	}
	return BucketOther
}

// Rank is the display priority used on "today": Live, Scheduled, Finished, Other.
func (b StatusBucket) Rank() int {
	switch b {
	case BucketLive:
		return 0
	case BucketScheduled:
		return 1
	case BucketFinished:
		return 2
	default:
		return 3
	}
}

func (b StatusBucket) String() string {
	switch b {
	case BucketLive:
		return "LIVE"
	case BucketScheduled:
		return "SCHEDULED"
	case BucketFinished:
		return "FINISHED"
	default:
		return "OTHER"
	}
}

// MarshalText encodes the bucket by name.
func (b StatusBucket) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

// UnmarshalText decodes a bucket name.
func (b *StatusBucket) UnmarshalText(text []byte) error {
	switch string(text) {
	case "LIVE":
		*b = BucketLive
	case "SCHEDULED":
		*b = BucketScheduled
	case "FINISHED":
		*b = BucketFinished
	case "OTHER":
		*b = BucketOther
	default:
		return fmt.Errorf("unknown status bucket %q", text)
	}
	return nil
}

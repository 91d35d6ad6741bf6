package models

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Bucket is the categorical sentiment label derived from the composite
// score.
type Bucket string

const (
	BucketExtremeFear  Bucket = "Extreme Fear"
	BucketFear         Bucket = "Fear"
	BucketGreed        Bucket = "Greed"
	BucketExtremeGreed Bucket = "Extreme Greed"
)

// Fixed classification thresholds: [0,25) Extreme Fear, [25,50) Fear,
// [50,75) Greed, [75,100] Extreme Greed.
var (
	fearThreshold         = decimal.NewFromInt(25)
	greedThreshold        = decimal.NewFromInt(50)
	extremeGreedThreshold = decimal.NewFromInt(75)
)

// Buckets lists all buckets in ascending score order.
func Buckets() []Bucket {
	return []Bucket{BucketExtremeFear, BucketFear, BucketGreed, BucketExtremeGreed}
}

// ClassifyScore maps a score to its sentiment bucket. Scores outside
// [0, 100] are rejected.
func ClassifyScore(score decimal.Decimal) (Bucket, error) {
	if score.LessThan(scoreMin) || score.GreaterThan(scoreMax) {
		return "", fmt.Errorf("score %s outside [0, 100]", score)
	}

	switch {
	case score.LessThan(fearThreshold):
		return BucketExtremeFear, nil
	case score.LessThan(greedThreshold):
		return BucketFear, nil
	case score.LessThan(extremeGreedThreshold):
		return BucketGreed, nil
	default:
		return BucketExtremeGreed, nil
	}
}

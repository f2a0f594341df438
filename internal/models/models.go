package models

import (
	"math"

	"github.com/google/uuid"
)

// MicrosPerUnit is the fixed-point scale for all custodial amounts.
// 1 display unit == 1_000_000 micros, so payouts like 2.375 are exact.
const MicrosPerUnit int64 = 1_000_000

func ToUnits(micros int64) float64 {
	return float64(micros) / float64(MicrosPerUnit)
}

// ToMicros rounds to the nearest micro; plain truncation would turn
// 0.29 into 289999.
func ToMicros(units float64) int64 {
	return int64(math.Round(units * float64(MicrosPerUnit)))
}

func GenerateUUID() string {
	return uuid.New().String()
}

package a1hub

import (
	"math"
	"math/rand"
	"strings"
	"time"
)

func DoEvery(d time.Duration, f func(time.Time)) { //Simple Task Repeater
	for x := range time.Tick(d) {
		f(x)
	}
}

func RoundCost(x float64, prec int) float64 {
	var rounder float64
	pow := math.Pow(10, float64(prec))
	intermed := x * pow
	rounder = math.Floor(intermed)
	return rounder / pow
}

const refCodeChars = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// NewRefCode generates an 8 char shareable referral code. Uniqueness is
// enforced by the caller against the members table.
func NewRefCode() string {
	var b strings.Builder
	for i := 0; i < 8; i++ {
		b.WriteByte(refCodeChars[rand.Intn(len(refCodeChars))])
	}
	return b.String()
}

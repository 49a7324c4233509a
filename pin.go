package identity

import (
	"math/rand/v2"
	"strconv"
	"time"
)

// PinTTL is how long an issued verification PIN stays redeemable
const PinTTL = 15 * time.Minute

// PinGenerator produces a fresh verification PIN
type PinGenerator func() string

// GeneratePin returns a 6 digit PIN in [100000, 999999]. The PIN is
// short lived and single use, it is not a session credential.
func GeneratePin() string {
	return strconv.Itoa(100_000 + rand.IntN(900_000))
}

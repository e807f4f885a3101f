package services

import (
	"fmt"
	"math/rand/v2"
	"time"
)

// maxNumberAttempts bounds how often a colliding order number is redrawn.
const maxNumberAttempts = 5

// newOrderNumber returns ORD-<unix millis>-<3 random digits>.
func newOrderNumber(now time.Time) string {
	return fmt.Sprintf("ORD-%d-%03d", now.UnixMilli(), rand.IntN(1000))
}

// newTransactionID returns TXN-<unix millis>-<random up to 4 digits>.
func newTransactionID(now time.Time) string {
	return fmt.Sprintf("TXN-%d-%d", now.UnixMilli(), rand.IntN(10000))
}

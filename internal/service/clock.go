package service

import "time"

// Clock supplies the current time. Every expiry decision goes through it so tests
// can move time forward without sleeping.
type Clock func() time.Time

func SystemClock() time.Time {
	return time.Now().UTC()
}

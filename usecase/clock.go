package usecase

import "time"

// Clock supplies timestamps to use cases. Injected so tests control time.
type Clock func() time.Time

// UTCNow is the production clock.
func UTCNow() time.Time {
	return time.Now().UTC()
}

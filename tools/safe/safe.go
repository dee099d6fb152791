package safe

import (
	"chathub/logger"
)

// Go starts a goroutine that recovers from panics so a misbehaving
// callback cannot take down the hub process.
func Go(f func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Errorf("[safe.Go] panic recovered: %v", r)
			}
		}()
		f()
	}()
}

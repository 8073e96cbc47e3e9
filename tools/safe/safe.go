package safe

import (
	"LinkChat/logger"
)

// SafeGo starts a goroutine that recovers from panic,
// so that panics don't crash the entire process.
func SafeGo(f func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Errorf("[SafeGo] panic recovered: %v", r)
			}
		}()
		f()
	}()
}

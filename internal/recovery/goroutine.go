package recovery

import (
	"fmt"
	"runtime/debug"

	"github.com/vanpelt/aura/internal/logger"
)

// SafeGo runs fn in a goroutine and logs instead of crashing on panic.
func SafeGo(name string, fn func()) {
	go func() {
		defer Recover(name, nil)
		fn()
	}()
}

// Recover is meant to be deferred. It logs a recovered panic and hands it to
// onPanic as an error so the caller can settle whatever it was doing.
func Recover(name string, onPanic func(error)) {
	r := recover()
	if r == nil {
		return
	}
	logger.Logger.Error().
		Str("goroutine", name).
		Str("stack", string(debug.Stack())).
		Msgf("🚨 panic recovered: %v", r)
	if onPanic != nil {
		onPanic(fmt.Errorf("panic in %s: %v", name, r))
	}
}

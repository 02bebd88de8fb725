//go:build pictodebug

package engine

import "fmt"

// mutationFailed reports a handle that no longer matches the model it
// edits. Debug builds stop right there.
func mutationFailed(err error, args ...any) {
	panic(fmt.Sprintf("engine: handle out of sync with model: %v %v", err, args))
}

//go:build !pictodebug

package engine

import "log/slog"

// mutationFailed reports a handle that no longer matches the model it
// edits. The caller leaves the node unmodified.
func mutationFailed(err error, args ...any) {
	slog.Error("handle out of sync with model", append([]any{"error", err}, args...)...)
}

// Package pagination warms the upstream response cache by translating the
// leading pages of every feed in parallel.
//
// Each (tag, page) pair is one job. Jobs run on a bounded errgroup so the
// upstream sees at most Concurrency requests at a time. A failed page is
// logged and counted but does not stop the others; only cancellation of the
// parent context aborts the run.
//
// Example usage:
//
//	w := pagination.NewWarmer(translator, pagination.DefaultConfig())
//	result, err := w.Warm(ctx, append([]string{""}, ranges.Tags()...))
package pagination

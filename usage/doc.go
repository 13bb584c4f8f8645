// Package usage tracks token consumption and latency per model.
//
// Wrap decorates a provider.Client so every call is recorded:
//
//	tracker := usage.NewTracker()
//	lm := usage.Wrap(client, tracker)
//	predict.Configure(lm)
//	...
//	tracker.WriteSummary(os.Stdout)
package usage

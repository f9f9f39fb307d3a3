package registry

// ProgressReporter receives callbacks while a document's parts are resolved.
// OnPartResolved may be called from several goroutines.
type ProgressReporter interface {
	// OnResolveStart is called with the number of distinct part IDs to resolve.
	OnResolveStart(total int)

	// OnPartResolved is called after each distinct ID is looked up.
	OnPartResolved(partID string, found bool)

	// OnResolveComplete is called once the registry is populated.
	OnResolveComplete(summary Summary)
}

// NoOpProgressReporter is a progress reporter that does nothing.
type NoOpProgressReporter struct{}

func (NoOpProgressReporter) OnResolveStart(total int)                 {}
func (NoOpProgressReporter) OnPartResolved(partID string, found bool) {}
func (NoOpProgressReporter) OnResolveComplete(summary Summary)        {}

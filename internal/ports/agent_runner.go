package ports

// AgentRunner defines the interface for the execution modes that drive
// the pipeline (polling daemon, single sweep, CLI)
type AgentRunner interface {
	// Start starts the runner
	Start() error

	// Stop stops the runner
	Stop() error
}

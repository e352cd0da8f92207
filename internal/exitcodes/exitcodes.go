package exitcodes

// Exit codes for the suitedriver CLI
// These codes form the contract with shells and CI pipelines
const (
	Success       = 0 // Operation succeeded (including nothing-to-delete and empty suites)
	SuiteFailure  = 1 // At least one test file invocation exited non-zero
	InvalidConfig = 2 // Configuration file invalid, or bad command line
	RuntimeError  = 4 // Discovery, environment, or filesystem error during execution
)

package cashregister

// OpenPath names how a register came to exist
type OpenPath string

const (
	OpenPathValidated OpenPath = "validated"
	OpenPathFallback  OpenPath = "fallback"
	OpenPathReplayed  OpenPath = "replayed"
)

// CreateOutcome is the result of opening a register.
// The set of variants is closed: ValidatedWrite, FallbackWriteUsed and ReplayedOpen.
type CreateOutcome interface {
	OpenedRegister() *Register
	Path() OpenPath
	createOutcome()
}

// ValidatedWrite means the server-side validated create stored the register
type ValidatedWrite struct {
	Register *Register
}

func (o ValidatedWrite) OpenedRegister() *Register {
	return o.Register
}

func (o ValidatedWrite) Path() OpenPath {
	return OpenPathValidated
}

func (ValidatedWrite) createOutcome() {}

// FallbackWriteUsed means the validated create failed and the register was
// stored with a direct insert. Cause is the error of the validated create.
type FallbackWriteUsed struct {
	Register *Register
	Cause    error
}

func (o FallbackWriteUsed) OpenedRegister() *Register {
	return o.Register
}

func (o FallbackWriteUsed) Path() OpenPath {
	return OpenPathFallback
}

func (FallbackWriteUsed) createOutcome() {}

// ReplayedOpen means an idempotency key matched an earlier open; nothing was written
type ReplayedOpen struct {
	Register *Register
}

func (o ReplayedOpen) OpenedRegister() *Register {
	return o.Register
}

func (o ReplayedOpen) Path() OpenPath {
	return OpenPathReplayed
}

func (ReplayedOpen) createOutcome() {}

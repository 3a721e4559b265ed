package vm

import "errors"

// FaultKind classifies a VM-internal fault that halts the stepper, per
// spec.md §7's error-handling table. These are distinct from guest-visible
// HostOS failures, which never halt anything — they surface as a0 = -1.
type FaultKind int

const (
	FaultOutOfBounds FaultKind = iota
	FaultFetch
	FaultIllegalInstruction
	FaultLoad
	FaultStore
	FaultBreak
)

func (k FaultKind) String() string {
	switch k {
	case FaultOutOfBounds:
		return "OutOfBounds"
	case FaultFetch:
		return "FetchFault"
	case FaultIllegalInstruction:
		return "IllegalInstruction"
	case FaultLoad:
		return "LoadFault"
	case FaultStore:
		return "StoreFault"
	case FaultBreak:
		return "Break"
	default:
		return "Unknown"
	}
}

// Fault is a classified, VM-internal error. The stepper halts on any Fault;
// nothing is retried automatically.
type Fault struct {
	Kind FaultKind
	Err  error
}

func (f *Fault) Error() string {
	if f.Err != nil {
		return f.Kind.String() + ": " + f.Err.Error()
	}
	return f.Kind.String()
}

func (f *Fault) Unwrap() error { return f.Err }

// IsBreak reports whether err is an EBREAK halt.
func IsBreak(err error) bool {
	var f *Fault
	if errors.As(err, &f) {
		return f.Kind == FaultBreak
	}
	return false
}

// KindOf extracts the FaultKind from err, if err is a *Fault.
func KindOf(err error) (FaultKind, bool) {
	var f *Fault
	if errors.As(err, &f) {
		return f.Kind, true
	}
	return 0, false
}

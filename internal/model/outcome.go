package model

// Outcome is the terminal record of one scan attempt. Exactly one Outcome
// is produced per attempt, whether the scan succeeded, faulted or was
// aborted by the operator.
type Outcome struct {
	// Path is the configuration file the scan was launched on.
	Path string
	// Log holds the text the isolated process wrote to its stdout.
	Log string
	// Err is the fault transmitted by the isolated process, nil on success
	// and on user abort (unless a fault had already arrived).
	Err error
}

func (o Outcome) Failed() bool {
	return o.Err != nil
}

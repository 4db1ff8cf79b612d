package app

// StopReason is logged when the control loop ends.
type StopReason string

const (
	StopSignal StopReason = "signal"
	StopFatal  StopReason = "fatal_error"
)

package driver

// Status is the outcome of a command. The numeric values are the ones
// host software historically returns for the device.
type Status int

const (
	StatusOK    Status = 0
	StatusMiss  Status = 1
	StatusError Status = -1
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusMiss:
		return "miss"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

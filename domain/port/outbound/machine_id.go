package outbound

// MachineIDService provides a stable identifier for the host running the
// service, used to tag status snapshots.
type MachineIDService interface {
	GetMachineID() (string, error)
}

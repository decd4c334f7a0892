package machineid

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/denisbrodbeck/machineid"

	"github.com/emfoursolutions/trakbridge-sub003/domain/port/outbound"
)

type hardwareMachineID struct{}

func NewHardwareMachineID() outbound.MachineIDService {
	return &hardwareMachineID{}
}

// GetMachineID returns a hashed host identifier. Hashing keeps the raw
// machine id out of status responses and logs.
func (h *hardwareMachineID) GetMachineID() (string, error) {
	rawID, err := machineid.ID()
	if err != nil {
		return "", err
	}

	hash := sha256.Sum256([]byte(rawID))
	return hex.EncodeToString(hash[:]), nil
}

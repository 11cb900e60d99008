// Package license implements device-bound encryption of the locally cached
// license and its single-file persistence.
package license

import (
	"fmt"

	"github.com/shirou/gopsutil/v3/host"

	"github.com/praxemr/licensing/internal/errs"
)

// DeviceIdentityProvider supplies a stable opaque identifier for the host
// machine. Implementations must return the same value for the lifetime of
// the installation.
type DeviceIdentityProvider interface {
	DeviceID() (string, error)
}

// HostIdentity reads the platform machine identifier.
type HostIdentity struct{}

// DeviceID returns the host machine id, or ErrDeviceIdentity when the
// platform cannot supply one.
func (HostIdentity) DeviceID() (string, error) {
	id, err := host.HostID()
	if err != nil {
		return "", fmt.Errorf("%w: %v", errs.ErrDeviceIdentity, err)
	}
	if id == "" {
		return "", errs.ErrDeviceIdentity
	}
	return id, nil
}

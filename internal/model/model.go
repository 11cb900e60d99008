// Package model defines domain entities used by services and repositories.
package model

import (
	"time"

	"github.com/gofrs/uuid/v5"
)

// LicenseType distinguishes trial signups from provisioned paid accounts.
type LicenseType string

const (
	LicenseTrial LicenseType = "trial"
	LicensePaid  LicenseType = "paid"
)

// ClinicInfo holds the descriptive practice fields collected at signup.
type ClinicInfo struct {
	DoctorName    string
	DoctorPhone   string
	Speciality    string
	Language      string
	ClinicName    string
	ClinicPhone   string
	ClinicAddress string
}

// LicenseRecord is an authoritative account row in the directory.
// Trial records have no credential hash; paid records may have no device
// binding and no expiry (perpetual).
type LicenseRecord struct {
	ID             uuid.UUID
	Username       string // unique
	CredentialHash []byte // nil for trial accounts
	Clinic         ClinicInfo
	Type           LicenseType
	IsPaid         bool // tracked alongside Type for audit parity
	DeviceID       string
	ActivationDate time.Time
	ExpiryDate     *time.Time // nil = perpetual
	CreatedAt      time.Time
}

// Profile is the subset of a LicenseRecord safe to return to clients.
// It never carries the credential hash.
type Profile struct {
	Username   string
	Clinic     ClinicInfo
	Type       LicenseType
	ExpiryDate *time.Time
}

// CachedEntitlement is the single locally persisted license for this device.
// JSON field names match the on-disk format written by earlier clients.
type CachedEntitlement struct {
	Username       string      `json:"username"`
	DeviceID       string      `json:"deviceId"`
	Type           LicenseType `json:"license_type"`
	ActivationDate time.Time   `json:"activationDate"`
	ExpiryDate     *time.Time  `json:"expiryDate,omitempty"`
}

// ValidAt reports whether the entitlement grants access at the given time.
// A nil expiry means a perpetual paid license; the expiry instant itself is
// still valid.
func (e *CachedEntitlement) ValidAt(now time.Time) bool {
	if e.ExpiryDate == nil {
		return true
	}
	return !now.After(*e.ExpiryDate)
}

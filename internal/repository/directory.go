// Package repository defines storage interfaces implemented by concrete backends.
package repository

import (
	"context"

	"github.com/praxemr/licensing/internal/model"
)

// Directory provides access to the authoritative user/license records.
type Directory interface {
	// FindTrialByDevice loads the trial record bound to a device, if any.
	FindTrialByDevice(ctx context.Context, deviceID string) (*model.LicenseRecord, error)
	// FindAccountByUsername loads a record by username.
	FindAccountByUsername(ctx context.Context, username string) (*model.LicenseRecord, error)
	// InsertTrial inserts a trial record. Returns ErrDuplicateDevice when the
	// device already consumed its trial; this closes the lookup/insert race.
	InsertTrial(ctx context.Context, rec *model.LicenseRecord) error
	// InsertPaidAccount inserts a provisioned paid record. Returns
	// ErrAlreadyExists when the username is taken.
	InsertPaidAccount(ctx context.Context, rec *model.LicenseRecord) error
}

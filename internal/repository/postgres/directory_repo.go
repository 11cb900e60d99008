package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/praxemr/licensing/internal/errs"
	"github.com/praxemr/licensing/internal/model"
)

// Constraint names from the users table schema.
const (
	usernameConstraint      = "users_username_key"
	deviceLicenseConstraint = "users_device_license_key"
)

const selectColumns = `
SELECT id, username, credential_hash, doctor_name, doctor_phone, speciality, language,
       clinic_name, clinic_phone, clinic_address, license_type, is_paid, device_id,
       activation_date, expiry_date, created_at
FROM users`

// DirectoryRepo implements repository.Directory using PostgreSQL.
type DirectoryRepo struct{ db *DB }

// NewDirectoryRepo constructs a directory repository.
func NewDirectoryRepo(db *DB) *DirectoryRepo { return &DirectoryRepo{db: db} }

func scanRecord(row pgx.Row) (*model.LicenseRecord, error) {
	var rec model.LicenseRecord
	var deviceID *string
	err := row.Scan(
		&rec.ID, &rec.Username, &rec.CredentialHash,
		&rec.Clinic.DoctorName, &rec.Clinic.DoctorPhone, &rec.Clinic.Speciality, &rec.Clinic.Language,
		&rec.Clinic.ClinicName, &rec.Clinic.ClinicPhone, &rec.Clinic.ClinicAddress,
		&rec.Type, &rec.IsPaid, &deviceID,
		&rec.ActivationDate, &rec.ExpiryDate, &rec.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	if deviceID != nil {
		rec.DeviceID = *deviceID
	}
	return &rec, nil
}

// FindTrialByDevice selects the trial record bound to a device, if any.
func (r *DirectoryRepo) FindTrialByDevice(ctx context.Context, deviceID string) (*model.LicenseRecord, error) {
	const q = selectColumns + `
WHERE device_id=$1 AND license_type='trial' LIMIT 1`
	return scanRecord(r.db.Pool.QueryRow(ctx, q, deviceID))
}

// FindAccountByUsername selects a record by username.
func (r *DirectoryRepo) FindAccountByUsername(ctx context.Context, username string) (*model.LicenseRecord, error) {
	const q = selectColumns + `
WHERE username=$1`
	return scanRecord(r.db.Pool.QueryRow(ctx, q, username))
}

func (r *DirectoryRepo) insert(ctx context.Context, rec *model.LicenseRecord) error {
	const q = `
INSERT INTO users (id, username, credential_hash, doctor_name, doctor_phone, speciality, language,
                   clinic_name, clinic_phone, clinic_address, license_type, is_paid, device_id,
                   activation_date, expiry_date)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	var deviceID *string
	if rec.DeviceID != "" {
		deviceID = &rec.DeviceID
	}
	_, err := r.db.Pool.Exec(ctx, q,
		rec.ID, rec.Username, rec.CredentialHash,
		rec.Clinic.DoctorName, rec.Clinic.DoctorPhone, rec.Clinic.Speciality, rec.Clinic.Language,
		rec.Clinic.ClinicName, rec.Clinic.ClinicPhone, rec.Clinic.ClinicAddress,
		string(rec.Type), rec.IsPaid, deviceID,
		rec.ActivationDate, rec.ExpiryDate,
	)
	switch uniqueViolation(err) {
	case deviceLicenseConstraint:
		return errs.ErrDuplicateDevice
	case usernameConstraint:
		return errs.ErrAlreadyExists
	}
	return err
}

// InsertTrial inserts a trial record; the (device_id, license_type) unique
// index rejects a second trial for the same device.
func (r *DirectoryRepo) InsertTrial(ctx context.Context, rec *model.LicenseRecord) error {
	return r.insert(ctx, rec)
}

// InsertPaidAccount inserts a provisioned paid record.
func (r *DirectoryRepo) InsertPaidAccount(ctx context.Context, rec *model.LicenseRecord) error {
	return r.insert(ctx, rec)
}

// Package service contains the license issuance engine.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	pkgcrypto "github.com/praxemr/licensing/internal/crypto"
	"github.com/praxemr/licensing/internal/errs"
	"github.com/praxemr/licensing/internal/license"
	"github.com/praxemr/licensing/internal/model"
	"github.com/praxemr/licensing/internal/repository"
)

// TrialLength is the fixed trial window granted to a device.
const TrialLength = 30 * 24 * time.Hour

// Status is the offline entitlement report derived from the local cache.
type Status struct {
	LoggedIn       bool
	Username       string
	ActivationDate *time.Time
	ExpiryDate     *time.Time
}

// Engine implements trial issuance, paid login, the offline entitlement
// check, and paid-account provisioning against the directory.
type Engine struct {
	dir   repository.Directory
	cache *license.Store
	log   *zap.Logger
	now   func() time.Time
}

// NewEngine constructs an Engine with its collaborators.
func NewEngine(dir repository.Directory, cache *license.Store, log *zap.Logger) *Engine {
	return &Engine{dir: dir, cache: cache, log: log, now: time.Now}
}

// StartTrial creates a trial account bound to the device and writes the
// local entitlement. A device gets exactly one trial, regardless of the
// username used.
func (e *Engine) StartTrial(ctx context.Context, username string, clinic model.ClinicInfo, deviceID string) (*model.Profile, error) {
	if username == "" || deviceID == "" || clinic == (model.ClinicInfo{}) {
		return nil, errs.ErrMissingFields
	}

	// Fast-path check; the directory's uniqueness constraint is authoritative.
	if _, err := e.dir.FindTrialByDevice(ctx, deviceID); err == nil {
		return nil, errs.ErrTrialConsumed
	} else if !errors.Is(err, errs.ErrNotFound) {
		return nil, err
	}

	id, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	if clinic.Language == "" {
		clinic.Language = "en"
	}

	now := e.now()
	expiry := now.Add(TrialLength)
	rec := &model.LicenseRecord{
		ID:             id,
		Username:       username,
		Clinic:         clinic,
		Type:           model.LicenseTrial,
		DeviceID:       deviceID,
		ActivationDate: now,
		ExpiryDate:     &expiry,
	}
	if err := e.dir.InsertTrial(ctx, rec); err != nil {
		if errors.Is(err, errs.ErrDuplicateDevice) {
			return nil, errs.ErrTrialConsumed
		}
		return nil, err
	}

	if err := e.cache.Save(model.CachedEntitlement{
		Username:       username,
		DeviceID:       deviceID,
		Type:           model.LicenseTrial,
		ActivationDate: now,
		ExpiryDate:     &expiry,
	}); err != nil {
		return nil, err
	}

	e.log.Info("trial started", zap.String("username", username), zap.Time("expiry", expiry))
	return &model.Profile{Username: username, Clinic: clinic, Type: model.LicenseTrial, ExpiryDate: &expiry}, nil
}

// Login authenticates a paid account and writes the local entitlement.
// Unknown usernames, trial-only accounts, and wrong passwords all map to
// the same ErrInvalidCredentials. An expired license leaves the cache
// untouched.
func (e *Engine) Login(ctx context.Context, username, password, deviceID string) (*model.Profile, error) {
	if username == "" || password == "" {
		return nil, errs.ErrMissingCredentials
	}
	if deviceID == "" {
		return nil, errs.ErrMissingFields
	}

	rec, err := e.dir.FindAccountByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil, errs.ErrInvalidCredentials
		}
		return nil, err
	}
	if len(rec.CredentialHash) == 0 || !pkgcrypto.VerifyCredential([]byte(password), rec.CredentialHash) {
		return nil, errs.ErrInvalidCredentials
	}

	now := e.now()
	if rec.ExpiryDate != nil && now.After(*rec.ExpiryDate) {
		return nil, errs.ErrLicenseExpired
	}

	if err := e.cache.Save(model.CachedEntitlement{
		Username:       rec.Username,
		DeviceID:       deviceID,
		Type:           rec.Type,
		ActivationDate: rec.ActivationDate,
		ExpiryDate:     rec.ExpiryDate,
	}); err != nil {
		return nil, err
	}

	e.log.Info("login", zap.String("username", rec.Username), zap.String("license_type", string(rec.Type)))
	return &model.Profile{Username: rec.Username, Clinic: rec.Clinic, Type: rec.Type, ExpiryDate: rec.ExpiryDate}, nil
}

// Logout removes the local entitlement. Idempotent.
func (e *Engine) Logout() error {
	return e.cache.Delete()
}

// GetStatus reports the offline entitlement state from the local cache.
// It never contacts the directory; a server-side revocation is only
// observed after expiry or an explicit logout.
func (e *Engine) GetStatus() Status {
	ent := e.cache.Load()
	if ent == nil {
		return Status{}
	}
	activation := ent.ActivationDate
	return Status{
		LoggedIn:       ent.ValidAt(e.now()),
		Username:       ent.Username,
		ActivationDate: &activation,
		ExpiryDate:     ent.ExpiryDate,
	}
}

// ProvisionPaidAccount creates a paid directory record with a hashed
// credential. A nil expiry provisions a perpetual license. Used by the
// admin endpoint and the provisioning CLI; it does not touch the local
// cache.
func (e *Engine) ProvisionPaidAccount(ctx context.Context, username, password string, clinic model.ClinicInfo, expiry *time.Time) (*model.Profile, error) {
	if username == "" || password == "" {
		return nil, errs.ErrMissingCredentials
	}
	hash, err := pkgcrypto.HashCredential([]byte(password))
	if err != nil {
		return nil, err
	}
	id, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	if clinic.Language == "" {
		clinic.Language = "en"
	}

	rec := &model.LicenseRecord{
		ID:             id,
		Username:       username,
		CredentialHash: hash,
		Clinic:         clinic,
		Type:           model.LicensePaid,
		IsPaid:         true,
		ActivationDate: e.now(),
		ExpiryDate:     expiry,
	}
	if err := e.dir.InsertPaidAccount(ctx, rec); err != nil {
		return nil, err
	}

	e.log.Info("paid account provisioned", zap.String("username", username))
	return &model.Profile{Username: username, Clinic: clinic, Type: model.LicensePaid, ExpiryDate: expiry}, nil
}

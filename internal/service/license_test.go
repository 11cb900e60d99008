package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	pkgcrypto "github.com/praxemr/licensing/internal/crypto"
	"github.com/praxemr/licensing/internal/errs"
	"github.com/praxemr/licensing/internal/license"
	"github.com/praxemr/licensing/internal/model"
	"github.com/praxemr/licensing/internal/repository"
)

type fakeIdentity struct{ id string }

func (f fakeIdentity) DeviceID() (string, error) { return f.id, nil }

type fakeDirectory struct {
	byUsername map[string]*model.LicenseRecord
	trials     map[string]*model.LicenseRecord // deviceID -> record

	findTrialErr error
	findUserErr  error
	insertErr    error
}

var _ repository.Directory = (*fakeDirectory)(nil)

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		byUsername: map[string]*model.LicenseRecord{},
		trials:     map[string]*model.LicenseRecord{},
	}
}

func (f *fakeDirectory) FindTrialByDevice(_ context.Context, deviceID string) (*model.LicenseRecord, error) {
	if f.findTrialErr != nil {
		return nil, f.findTrialErr
	}
	rec, ok := f.trials[deviceID]
	if !ok {
		return nil, errs.ErrNotFound
	}
	c := *rec
	return &c, nil
}

func (f *fakeDirectory) FindAccountByUsername(_ context.Context, username string) (*model.LicenseRecord, error) {
	if f.findUserErr != nil {
		return nil, f.findUserErr
	}
	rec, ok := f.byUsername[username]
	if !ok {
		return nil, errs.ErrNotFound
	}
	c := *rec
	return &c, nil
}

func (f *fakeDirectory) InsertTrial(_ context.Context, rec *model.LicenseRecord) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	if _, exists := f.trials[rec.DeviceID]; exists {
		return errs.ErrDuplicateDevice
	}
	c := *rec
	f.trials[rec.DeviceID] = &c
	f.byUsername[rec.Username] = &c
	return nil
}

func (f *fakeDirectory) InsertPaidAccount(_ context.Context, rec *model.LicenseRecord) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	if _, exists := f.byUsername[rec.Username]; exists {
		return errs.ErrAlreadyExists
	}
	c := *rec
	f.byUsername[rec.Username] = &c
	return nil
}

func newTestEngine(t *testing.T, dir *fakeDirectory) *Engine {
	t.Helper()
	codec := license.NewCodec("test-secret", fakeIdentity{id: "machine-a"})
	store := license.NewStore(t.TempDir(), codec, zap.NewNop())
	return NewEngine(dir, store, zap.NewNop())
}

func clinic() model.ClinicInfo {
	return model.ClinicInfo{DoctorName: "Dr. Smith", ClinicName: "Smith Clinic"}
}

func TestEngine_StartTrial_Success(t *testing.T) {
	t.Parallel()
	dir := newFakeDirectory()
	e := newTestEngine(t, dir)

	start := time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)
	e.now = func() time.Time { return start }

	prof, err := e.StartTrial(context.Background(), "dr.smith", clinic(), "dev-123")
	if err != nil {
		t.Fatalf("StartTrial: %v", err)
	}
	if prof.Type != model.LicenseTrial {
		t.Fatalf("want trial profile, got %q", prof.Type)
	}
	if prof.ExpiryDate == nil || !prof.ExpiryDate.Equal(start.Add(TrialLength)) {
		t.Fatalf("want expiry %v, got %v", start.Add(TrialLength), prof.ExpiryDate)
	}

	rec := dir.trials["dev-123"]
	if rec == nil {
		t.Fatalf("no trial record inserted")
	}
	if rec.IsPaid || rec.Type != model.LicenseTrial || rec.CredentialHash != nil {
		t.Fatalf("bad trial record: %+v", rec)
	}
	if rec.Clinic.Language != "en" {
		t.Fatalf("want default language en, got %q", rec.Clinic.Language)
	}

	st := e.GetStatus()
	if !st.LoggedIn || st.Username != "dr.smith" {
		t.Fatalf("want logged-in status after trial, got %+v", st)
	}
}

func TestEngine_StartTrial_OncePerDevice(t *testing.T) {
	t.Parallel()
	dir := newFakeDirectory()
	e := newTestEngine(t, dir)

	if _, err := e.StartTrial(context.Background(), "dr.smith", clinic(), "dev-123"); err != nil {
		t.Fatalf("first StartTrial: %v", err)
	}
	// A different username does not earn the device a second trial.
	if _, err := e.StartTrial(context.Background(), "dr.jones", clinic(), "dev-123"); !errors.Is(err, errs.ErrTrialConsumed) {
		t.Fatalf("want ErrTrialConsumed, got %v", err)
	}
	// A different device is unaffected.
	if _, err := e.StartTrial(context.Background(), "dr.jones", clinic(), "dev-456"); err != nil {
		t.Fatalf("StartTrial on second device: %v", err)
	}
}

func TestEngine_StartTrial_RaceClosedByConstraint(t *testing.T) {
	t.Parallel()
	dir := newFakeDirectory()
	e := newTestEngine(t, dir)

	// Lookup sees nothing, but the insert loses the race.
	dir.findTrialErr = errs.ErrNotFound
	dir.insertErr = errs.ErrDuplicateDevice
	if _, err := e.StartTrial(context.Background(), "dr.smith", clinic(), "dev-123"); !errors.Is(err, errs.ErrTrialConsumed) {
		t.Fatalf("want ErrTrialConsumed from constraint violation, got %v", err)
	}
}

func TestEngine_StartTrial_Validation(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t, newFakeDirectory())

	cases := []struct {
		name     string
		username string
		clinic   model.ClinicInfo
		device   string
	}{
		{"no username", "", clinic(), "dev-1"},
		{"no clinic", "dr.smith", model.ClinicInfo{}, "dev-1"},
		{"no device", "dr.smith", clinic(), ""},
	}
	for _, tc := range cases {
		if _, err := e.StartTrial(context.Background(), tc.username, tc.clinic, tc.device); !errors.Is(err, errs.ErrMissingFields) {
			t.Fatalf("%s: want ErrMissingFields, got %v", tc.name, err)
		}
	}
}

func paidAccount(t *testing.T, dir *fakeDirectory, username, password string, expiry *time.Time) {
	t.Helper()
	hash, err := pkgcrypto.HashCredential([]byte(password))
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	dir.byUsername[username] = &model.LicenseRecord{
		Username:       username,
		CredentialHash: hash,
		Clinic:         model.ClinicInfo{DoctorName: "Dr. Paid", ClinicName: "Clinic"},
		Type:           model.LicensePaid,
		IsPaid:         true,
		ActivationDate: time.Now().Add(-time.Hour),
		ExpiryDate:     expiry,
	}
}

func TestEngine_Login_Success(t *testing.T) {
	t.Parallel()
	dir := newFakeDirectory()
	e := newTestEngine(t, dir)
	paidAccount(t, dir, "dr.paid", "pw", nil)

	prof, err := e.Login(context.Background(), "dr.paid", "pw", "dev-9")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if prof.Type != model.LicensePaid || prof.ExpiryDate != nil {
		t.Fatalf("bad profile: %+v", prof)
	}

	st := e.GetStatus()
	if !st.LoggedIn || st.Username != "dr.paid" {
		t.Fatalf("want logged-in status, got %+v", st)
	}
	if st.ExpiryDate != nil {
		t.Fatalf("perpetual license must report no expiry, got %v", st.ExpiryDate)
	}
}

func TestEngine_Login_InvalidCredentialsUniform(t *testing.T) {
	t.Parallel()
	dir := newFakeDirectory()
	e := newTestEngine(t, dir)
	paidAccount(t, dir, "dr.paid", "pw", nil)

	// Trial-only account: exists but has no credential hash.
	if _, err := e.StartTrial(context.Background(), "dr.trial", clinic(), "dev-1"); err != nil {
		t.Fatalf("StartTrial: %v", err)
	}
	_ = e.Logout()

	// Unknown user, wrong password, and passwordless trial account all
	// produce the identical error.
	for _, c := range []struct{ u, p string }{
		{"nouser", "pw"},
		{"dr.paid", "wrong"},
		{"dr.trial", "pw"},
	} {
		if _, err := e.Login(context.Background(), c.u, c.p, "dev-1"); !errors.Is(err, errs.ErrInvalidCredentials) {
			t.Fatalf("Login(%q): want ErrInvalidCredentials, got %v", c.u, err)
		}
	}
	if st := e.GetStatus(); st.LoggedIn {
		t.Fatalf("failed logins must not write the cache")
	}
}

func TestEngine_Login_MissingInputs(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t, newFakeDirectory())

	if _, err := e.Login(context.Background(), "", "pw", "dev-1"); !errors.Is(err, errs.ErrMissingCredentials) {
		t.Fatalf("want ErrMissingCredentials, got %v", err)
	}
	if _, err := e.Login(context.Background(), "u", "", "dev-1"); !errors.Is(err, errs.ErrMissingCredentials) {
		t.Fatalf("want ErrMissingCredentials, got %v", err)
	}
	if _, err := e.Login(context.Background(), "u", "pw", ""); !errors.Is(err, errs.ErrMissingFields) {
		t.Fatalf("want ErrMissingFields on empty device, got %v", err)
	}
}

func TestEngine_Login_ExpiredLeavesCacheUntouched(t *testing.T) {
	t.Parallel()
	dir := newFakeDirectory()
	e := newTestEngine(t, dir)

	past := time.Now().Add(-24 * time.Hour)
	paidAccount(t, dir, "dr.old", "pw", &past)

	// Seed the cache with an unrelated valid entitlement.
	paidAccount(t, dir, "dr.paid", "pw", nil)
	if _, err := e.Login(context.Background(), "dr.paid", "pw", "dev-9"); err != nil {
		t.Fatalf("seed login: %v", err)
	}

	if _, err := e.Login(context.Background(), "dr.old", "pw", "dev-9"); !errors.Is(err, errs.ErrLicenseExpired) {
		t.Fatalf("want ErrLicenseExpired, got %v", err)
	}

	st := e.GetStatus()
	if !st.LoggedIn || st.Username != "dr.paid" {
		t.Fatalf("cache must remain the prior entitlement, got %+v", st)
	}
}

func TestEngine_GetStatus_ExpiryBoundary(t *testing.T) {
	t.Parallel()
	dir := newFakeDirectory()
	e := newTestEngine(t, dir)

	expiry := time.Date(2026, 9, 30, 10, 0, 0, 0, time.UTC)
	paidAccount(t, dir, "dr.paid", "pw", &expiry)
	if _, err := e.Login(context.Background(), "dr.paid", "pw", "dev-9"); err != nil {
		t.Fatalf("Login: %v", err)
	}

	// Exactly at expiry the license is still valid.
	e.now = func() time.Time { return expiry }
	if st := e.GetStatus(); !st.LoggedIn {
		t.Fatalf("license at its expiry instant must be valid")
	}
	// One millisecond later it is not.
	e.now = func() time.Time { return expiry.Add(time.Millisecond) }
	st := e.GetStatus()
	if st.LoggedIn {
		t.Fatalf("license past expiry must be invalid")
	}
	if st.Username != "dr.paid" || st.ExpiryDate == nil {
		t.Fatalf("expired status still reports the cached fields, got %+v", st)
	}
}

func TestEngine_GetStatus_NoCache(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t, newFakeDirectory())

	st := e.GetStatus()
	if st.LoggedIn || st.Username != "" || st.ActivationDate != nil || st.ExpiryDate != nil {
		t.Fatalf("want empty status without cache, got %+v", st)
	}
}

func TestEngine_Logout_Idempotent(t *testing.T) {
	t.Parallel()
	dir := newFakeDirectory()
	e := newTestEngine(t, dir)

	if err := e.Logout(); err != nil {
		t.Fatalf("Logout without cache: %v", err)
	}

	paidAccount(t, dir, "dr.paid", "pw", nil)
	if _, err := e.Login(context.Background(), "dr.paid", "pw", "dev-9"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if err := e.Logout(); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if st := e.GetStatus(); st.LoggedIn {
		t.Fatalf("want logged out after Logout")
	}
	if err := e.Logout(); err != nil {
		t.Fatalf("second Logout: %v", err)
	}
}

func TestEngine_ProvisionPaidAccount(t *testing.T) {
	t.Parallel()
	dir := newFakeDirectory()
	e := newTestEngine(t, dir)

	if _, err := e.ProvisionPaidAccount(context.Background(), "", "pw", model.ClinicInfo{}, nil); !errors.Is(err, errs.ErrMissingCredentials) {
		t.Fatalf("want ErrMissingCredentials, got %v", err)
	}

	exp := time.Now().AddDate(1, 0, 0)
	prof, err := e.ProvisionPaidAccount(context.Background(), "dr.new", "pw", clinic(), &exp)
	if err != nil {
		t.Fatalf("ProvisionPaidAccount: %v", err)
	}
	if prof.Type != model.LicensePaid {
		t.Fatalf("want paid profile, got %+v", prof)
	}

	rec := dir.byUsername["dr.new"]
	if rec == nil || !rec.IsPaid || len(rec.CredentialHash) == 0 {
		t.Fatalf("bad provisioned record: %+v", rec)
	}
	if !pkgcrypto.VerifyCredential([]byte("pw"), rec.CredentialHash) {
		t.Fatalf("stored hash does not verify")
	}

	// Provisioning never logs anyone in locally.
	if st := e.GetStatus(); st.LoggedIn {
		t.Fatalf("provisioning must not touch the cache")
	}

	if _, err := e.ProvisionPaidAccount(context.Background(), "dr.new", "pw2", clinic(), nil); !errors.Is(err, errs.ErrAlreadyExists) {
		t.Fatalf("want ErrAlreadyExists on duplicate username, got %v", err)
	}
}

// Command praxadmin provisions paid accounts directly in the directory.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/gofrs/uuid/v5"

	pkgcrypto "github.com/praxemr/licensing/internal/crypto"
	"github.com/praxemr/licensing/internal/migrate"
	"github.com/praxemr/licensing/internal/model"
	"github.com/praxemr/licensing/internal/repository/postgres"
)

func usage() {
	fmt.Fprintf(os.Stderr, `praxadmin
Usage:
  praxadmin -dsn DSN -u <username> -p <password> [-doctor NAME] [-speciality S] [-clinic NAME] [-years N]

Creates a paid account with an N-year license (default 1; 0 = perpetual).
`)
	os.Exit(2)
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, "error:", err)
	os.Exit(1)
}

func main() {
	dsn := flag.String("dsn", os.Getenv("DATABASE_URL"), "PostgreSQL DSN")
	username := flag.String("u", "", "username")
	password := flag.String("p", "", "password")
	doctor := flag.String("doctor", "", "doctor name")
	speciality := flag.String("speciality", "", "speciality")
	clinic := flag.String("clinic", "", "clinic name")
	years := flag.Int("years", 1, "license length in years (0 = perpetual)")
	flag.Usage = usage
	flag.Parse()

	if *dsn == "" || *username == "" || *password == "" {
		usage()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := migrate.Up(ctx, *dsn); err != nil {
		fail(err)
	}
	db, err := postgres.New(ctx, *dsn)
	if err != nil {
		fail(err)
	}
	defer db.Close()

	hash, err := pkgcrypto.HashCredential([]byte(*password))
	if err != nil {
		fail(err)
	}
	id, err := uuid.NewV4()
	if err != nil {
		fail(err)
	}

	now := time.Now()
	var expiry *time.Time
	if *years > 0 {
		e := now.AddDate(*years, 0, 0)
		expiry = &e
	}

	rec := &model.LicenseRecord{
		ID:             id,
		Username:       *username,
		CredentialHash: hash,
		Clinic: model.ClinicInfo{
			DoctorName: *doctor,
			Speciality: *speciality,
			Language:   "en",
			ClinicName: *clinic,
		},
		Type:           model.LicensePaid,
		IsPaid:         true,
		ActivationDate: now,
		ExpiryDate:     expiry,
	}

	if err := postgres.NewDirectoryRepo(db).InsertPaidAccount(ctx, rec); err != nil {
		fail(err)
	}

	fmt.Println("paid account created")
	fmt.Printf("username: %s\n", *username)
	if expiry != nil {
		fmt.Printf("expires:  %s\n", expiry.Format(time.RFC3339))
	} else {
		fmt.Println("expires:  never")
	}
}

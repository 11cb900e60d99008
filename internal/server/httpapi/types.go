package httpapi

import (
	"time"

	"github.com/praxemr/licensing/internal/model"
)

// clinicInfo mirrors the desktop client's signup payload.
type clinicInfo struct {
	DoctorName    string `json:"doctorName"`
	DoctorPhone   string `json:"doctorPhone"`
	Speciality    string `json:"speciality"`
	Language      string `json:"language"`
	ClinicName    string `json:"clinicName"`
	ClinicPhone   string `json:"clinicPhone"`
	ClinicAddress string `json:"clinicAddress"`
}

func (c *clinicInfo) toModel() model.ClinicInfo {
	if c == nil {
		return model.ClinicInfo{}
	}
	return model.ClinicInfo{
		DoctorName:    c.DoctorName,
		DoctorPhone:   c.DoctorPhone,
		Speciality:    c.Speciality,
		Language:      c.Language,
		ClinicName:    c.ClinicName,
		ClinicPhone:   c.ClinicPhone,
		ClinicAddress: c.ClinicAddress,
	}
}

// loginRequest carries both flows: trial signup (trial=true) and password login.
type loginRequest struct {
	Username   string      `json:"username"`
	Password   string      `json:"password"`
	Trial      bool        `json:"trial"`
	DeviceID   string      `json:"deviceId"`
	ClinicInfo *clinicInfo `json:"clinicInfo"`
}

type createUserRequest struct {
	Secret     string `json:"secret"`
	Username   string `json:"username"`
	Password   string `json:"password"`
	DoctorName string `json:"doctor_name"`
	Speciality string `json:"speciality"`
	ClinicName string `json:"clinic_name"`
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

type trialUser struct {
	Username   string     `json:"username"`
	DoctorName string     `json:"doctorName"`
	ClinicName string     `json:"clinicName"`
	ExpiryDate *time.Time `json:"expiryDate"`
}

type trialResponse struct {
	Success bool      `json:"success"`
	Trial   bool      `json:"trial"`
	Message string    `json:"message"`
	User    trialUser `json:"user"`
}

type loginUser struct {
	Username      string     `json:"username"`
	DoctorName    string     `json:"doctorName"`
	Speciality    string     `json:"speciality"`
	ClinicName    string     `json:"clinicName"`
	ClinicPhone   string     `json:"clinicPhone"`
	ClinicAddress string     `json:"clinicAddress"`
	LicenseType   string     `json:"licenseType"`
	ExpiryDate    *time.Time `json:"expiryDate"`
}

type loginResponse struct {
	Success bool      `json:"success"`
	User    loginUser `json:"user"`
}

type statusResponse struct {
	LoggedIn       bool       `json:"loggedIn"`
	Username       string     `json:"username,omitempty"`
	ActivationDate *time.Time `json:"activationDate,omitempty"`
	ExpiryDate     *time.Time `json:"expiryDate,omitempty"`
}

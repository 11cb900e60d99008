// Package httpapi exposes the licensing operations over a JSON HTTP API.
package httpapi

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"go.uber.org/zap"

	"github.com/praxemr/licensing/internal/errs"
	"github.com/praxemr/licensing/internal/service"
)

// Server wires the issuance engine into HTTP handlers.
type Server struct {
	engine      *service.Engine
	adminSecret string
	log         *zap.Logger
}

// New constructs a Server with injected collaborators.
func New(engine *service.Engine, adminSecret string, log *zap.Logger) *Server {
	return &Server{engine: engine, adminSecret: adminSecret, log: log}
}

// Routes builds the router with logging and panic recovery.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(Recoverer(s.log), RequestLogger(s.log))

	r.Get("/api/health", s.handleHealth)
	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/login", s.handleLogin)
		r.Post("/logout", s.handleLogout)
		r.Get("/status", s.handleStatus)
	})
	r.Post("/api/admin/create-user", s.handleCreateUser)
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]bool{"ok": true})
}

// handleLogin serves both the trial signup flow (trial=true) and the
// paid/normal login flow, mirroring the desktop client's single endpoint.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, errorResponse{Error: "bad request body"})
		return
	}
	if req.DeviceID == "" {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, errorResponse{Error: "Missing device id"})
		return
	}

	if req.Trial {
		prof, err := s.engine.StartTrial(r.Context(), req.Username, req.ClinicInfo.toModel(), req.DeviceID)
		if err != nil {
			s.renderError(w, r, err)
			return
		}
		render.JSON(w, r, trialResponse{
			Success: true,
			Trial:   true,
			Message: "Trial started successfully",
			User: trialUser{
				Username:   prof.Username,
				DoctorName: prof.Clinic.DoctorName,
				ClinicName: prof.Clinic.ClinicName,
				ExpiryDate: prof.ExpiryDate,
			},
		})
		return
	}

	prof, err := s.engine.Login(r.Context(), req.Username, req.Password, req.DeviceID)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	render.JSON(w, r, loginResponse{
		Success: true,
		User: loginUser{
			Username:      prof.Username,
			DoctorName:    prof.Clinic.DoctorName,
			Speciality:    prof.Clinic.Speciality,
			ClinicName:    prof.Clinic.ClinicName,
			ClinicPhone:   prof.Clinic.ClinicPhone,
			ClinicAddress: prof.Clinic.ClinicAddress,
			LicenseType:   string(prof.Type),
			ExpiryDate:    prof.ExpiryDate,
		},
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.Logout(); err != nil {
		s.renderError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]bool{"success": true})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st := s.engine.GetStatus()
	render.JSON(w, r, statusResponse{
		LoggedIn:       st.LoggedIn,
		Username:       st.Username,
		ActivationDate: st.ActivationDate,
		ExpiryDate:     st.ExpiryDate,
	})
}

// handleCreateUser provisions a paid account; guarded by the shared admin
// secret. Accounts created here are perpetual.
func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, errorResponse{Error: "bad request body"})
		return
	}
	if subtle.ConstantTimeCompare([]byte(req.Secret), []byte(s.adminSecret)) != 1 {
		render.Status(r, http.StatusForbidden)
		render.JSON(w, r, errorResponse{Error: "Unauthorized"})
		return
	}

	clinic := clinicInfo{
		DoctorName: req.DoctorName,
		Speciality: req.Speciality,
		ClinicName: req.ClinicName,
	}
	prof, err := s.engine.ProvisionPaidAccount(r.Context(), req.Username, req.Password, clinic.toModel(), nil)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]any{
		"success": true,
		"message": fmt.Sprintf("User %s created successfully", prof.Username),
	})
}

// renderError maps sentinel errors onto HTTP statuses. Directory failures
// stay generic so nothing internal leaks to the client.
func (s *Server) renderError(w http.ResponseWriter, r *http.Request, err error) {
	var code int
	msg := err.Error()
	switch {
	case errors.Is(err, errs.ErrMissingFields), errors.Is(err, errs.ErrMissingCredentials):
		code = http.StatusBadRequest
	case errors.Is(err, errs.ErrInvalidCredentials):
		code = http.StatusUnauthorized
	case errors.Is(err, errs.ErrLicenseExpired), errors.Is(err, errs.ErrTrialConsumed):
		code = http.StatusForbidden
	case errors.Is(err, errs.ErrAlreadyExists):
		code = http.StatusConflict
		msg = "username already exists"
	default:
		code = http.StatusInternalServerError
		msg = "internal error"
		s.log.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	}
	render.Status(r, code)
	render.JSON(w, r, errorResponse{Error: msg})
}

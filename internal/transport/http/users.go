package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"jauth/internal/models"
	"jauth/internal/service"
)

type signupEmailRequest struct {
	Account  string         `json:"account"`
	Email    string         `json:"email"`
	Password string         `json:"password"`
	Extra    map[string]any `json:"extra"`
}

func (s *Server) handleSignupEmail(w http.ResponseWriter, r *http.Request) {
	var req signupEmailRequest
	if err := decodeJSON(r, &req); err != nil {
		respondReason(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := s.svc.SignupEmail(r.Context(), req.Account, req.Email, req.Password, req.Extra)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}

	respondResult(w, http.StatusOK, toUserView(user))
}

type signupThirdPartyRequest struct {
	UserType        int            `json:"user_type"`
	ThirdPartyToken string         `json:"third_party_token"`
	Extra           map[string]any `json:"extra"`
}

func (s *Server) handleSignupThirdParty(w http.ResponseWriter, r *http.Request) {
	var req signupThirdPartyRequest
	if err := decodeJSON(r, &req); err != nil {
		respondReason(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := s.svc.SignupThirdParty(r.Context(), models.UserType(req.UserType), req.ThirdPartyToken, req.Extra)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}

	respondResult(w, http.StatusOK, toUserView(user))
}

func (s *Server) handleMyself(w http.ResponseWriter, r *http.Request) {
	claim, err := s.svc.VerifySession(r.Context(), r.Header.Get("Authorization"))
	if err != nil {
		s.respondErr(w, r, err)
		return
	}

	user, err := s.svc.UserByID(r.Context(), claim.UserID)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}

	respondResult(w, http.StatusOK, toUserView(user))
}

func (s *Server) handleUserByID(w http.ResponseWriter, r *http.Request) {
	if _, err := s.svc.VerifySession(r.Context(), r.Header.Get("Authorization")); err != nil {
		s.respondErr(w, r, err)
		return
	}

	userID, err := uuid.Parse(chi.URLParam(r, "user_id"))
	if err != nil {
		respondReason(w, http.StatusBadRequest, "invalid user id")
		return
	}

	user, err := s.svc.UserByID(r.Context(), userID)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}

	respondResult(w, http.StatusOK, toUserView(user))
}

type updateMyselfRequest struct {
	Email *string        `json:"email"`
	Extra map[string]any `json:"extra"`
}

func (s *Server) handleUpdateMyself(w http.ResponseWriter, r *http.Request) {
	claim, err := s.svc.VerifySession(r.Context(), r.Header.Get("Authorization"))
	if err != nil {
		s.respondErr(w, r, err)
		return
	}

	var req updateMyselfRequest
	if err := decodeJSON(r, &req); err != nil {
		respondReason(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := s.svc.UpdateMyself(r.Context(), claim.UserID, service.ProfileUpdate{
		Email: req.Email,
		Extra: req.Extra,
	})
	if err != nil {
		s.respondErr(w, r, err)
		return
	}

	respondResult(w, http.StatusOK, toUserView(user))
}

type changePasswordRequest struct {
	OriginalPassword string `json:"original_password"`
	NewPassword      string `json:"new_password"`
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	claim, err := s.svc.VerifySession(r.Context(), r.Header.Get("Authorization"))
	if err != nil {
		s.respondErr(w, r, err)
		return
	}

	var req changePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		respondReason(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.svc.ChangePassword(r.Context(), claim.UserID, req.OriginalPassword, req.NewPassword); err != nil {
		s.respondErr(w, r, err)
		return
	}

	respondResult(w, http.StatusOK, true)
}

type verifyEmailRequest struct {
	Token string `json:"token"`
}

func (s *Server) handleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req verifyEmailRequest
	if err := decodeJSON(r, &req); err != nil {
		respondReason(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := s.svc.VerifyEmail(r.Context(), req.Token)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}

	respondResult(w, http.StatusOK, toUserView(user))
}

type resetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		respondReason(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.svc.ResetPassword(r.Context(), req.Token, req.NewPassword); err != nil {
		s.respondErr(w, r, err)
		return
	}

	respondResult(w, http.StatusOK, true)
}

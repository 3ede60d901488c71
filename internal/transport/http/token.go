package http

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"jauth/internal/models"
)

// internalAPIKeyHeader — заголовок доверенного ключа внутренних вызовов.
const internalAPIKeyHeader = "X-Internal-API-Key"

type tokenPairView struct {
	AccessToken     string    `json:"access_token"`
	RefreshToken    string    `json:"refresh_token"`
	AccessExpiresAt time.Time `json:"access_expires_at"`
}

func toTokenPairView(p *models.TokenPair) tokenPairView {
	return tokenPairView{
		AccessToken:     p.AccessToken,
		RefreshToken:    p.RefreshToken,
		AccessExpiresAt: p.AccessExpiresAt,
	}
}

type loginEmailRequest struct {
	Account  string `json:"account"`
	Password string `json:"password"`
}

func (s *Server) handleLoginEmail(w http.ResponseWriter, r *http.Request) {
	var req loginEmailRequest
	if err := decodeJSON(r, &req); err != nil {
		respondReason(w, http.StatusBadRequest, "invalid request body")
		return
	}

	pair, err := s.svc.LoginEmail(r.Context(), req.Account, req.Password)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}

	respondResult(w, http.StatusOK, toTokenPairView(pair))
}

type loginThirdPartyRequest struct {
	UserType        int    `json:"user_type"`
	ThirdPartyToken string `json:"third_party_token"`
}

func (s *Server) handleLoginThirdParty(w http.ResponseWriter, r *http.Request) {
	var req loginThirdPartyRequest
	if err := decodeJSON(r, &req); err != nil {
		respondReason(w, http.StatusBadRequest, "invalid request body")
		return
	}

	pair, err := s.svc.LoginThirdParty(r.Context(), models.UserType(req.UserType), req.ThirdPartyToken)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}

	respondResult(w, http.StatusOK, toTokenPairView(pair))
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(r, &req); err != nil {
		respondReason(w, http.StatusBadRequest, "invalid request body")
		return
	}

	pair, err := s.svc.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}

	respondResult(w, http.StatusOK, toTokenPairView(pair))
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(r, &req); err != nil {
		respondReason(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.svc.Logout(r.Context(), req.RefreshToken); err != nil {
		s.respondErr(w, r, err)
		return
	}

	respondResult(w, http.StatusOK, true)
}

// claimView — расшифрованный сессионный клейм в историческом формате.
type claimView struct {
	ID   string `json:"id"`
	Type int    `json:"type"`
	Iss  string `json:"iss"`
	Exp  int64  `json:"exp"`
}

func (s *Server) handleTokenSelf(w http.ResponseWriter, r *http.Request) {
	claim, err := s.svc.VerifySession(r.Context(), r.Header.Get("Authorization"))
	if err != nil {
		s.respondErr(w, r, err)
		return
	}

	respondResult(w, http.StatusOK, claimView{
		ID:   claim.UserID.String(),
		Type: int(claim.UserType),
		Iss:  claim.Issuer,
		Exp:  claim.ExpiresAt.Unix(),
	})
}

type issueEmailVerifyRequest struct {
	UserID string `json:"user_id"`
}

func (s *Server) handleIssueEmailVerifyToken(w http.ResponseWriter, r *http.Request) {
	var req issueEmailVerifyRequest
	if err := decodeJSON(r, &req); err != nil {
		respondReason(w, http.StatusBadRequest, "invalid request body")
		return
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		respondReason(w, http.StatusBadRequest, "invalid user id")
		return
	}

	signed, err := s.svc.IssueEmailVerifyToken(r.Context(), r.Header.Get(internalAPIKeyHeader), userID)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}

	respondResult(w, http.StatusOK, signed)
}

type issuePasswordResetRequest struct {
	Account string `json:"account"`
}

func (s *Server) handleIssuePasswordResetToken(w http.ResponseWriter, r *http.Request) {
	var req issuePasswordResetRequest
	if err := decodeJSON(r, &req); err != nil {
		respondReason(w, http.StatusBadRequest, "invalid request body")
		return
	}

	signed, err := s.svc.IssuePasswordResetToken(r.Context(), r.Header.Get(internalAPIKeyHeader), req.Account)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}

	respondResult(w, http.StatusOK, signed)
}

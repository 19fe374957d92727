package httpapi

import (
	"net/http"
	"strings"
)

type codeRequest struct {
	Code string `json:"code"`
}

type phoneRequest struct {
	PhoneNumber string `json:"phoneNumber"`
}

type otpRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

func (h *handler) sendEmailVerification(message string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h.svc.Verification.SendEmailCode(r.Context(), currentUser(r).ID); err != nil {
			h.errs.write(w, r, err)
			return
		}
		writeMessage(w, http.StatusOK, message)
	}
}

func (h *handler) verifyEmail(w http.ResponseWriter, r *http.Request) {
	var req codeRequest
	if err := decodeJSON(r, &req); err != nil {
		h.errs.write(w, r, err)
		return
	}
	if err := h.svc.Verification.VerifyEmail(r.Context(), currentUser(r).ID, req.Code); err != nil {
		h.errs.write(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Email verified successfully")
}

func (h *handler) sendPhoneVerification(w http.ResponseWriter, r *http.Request) {
	var req phoneRequest
	if err := decodeJSON(r, &req); err != nil {
		h.errs.write(w, r, err)
		return
	}
	if err := h.svc.Verification.SendPhoneCode(r.Context(), currentUser(r).ID, req.PhoneNumber); err != nil {
		h.errs.write(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Verification SMS sent successfully")
}

func (h *handler) resendPhoneVerification(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Verification.ResendPhoneCode(r.Context(), currentUser(r).ID); err != nil {
		h.errs.write(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Verification SMS resent successfully")
}

func (h *handler) verifyPhone(w http.ResponseWriter, r *http.Request) {
	var req codeRequest
	if err := decodeJSON(r, &req); err != nil {
		h.errs.write(w, r, err)
		return
	}
	if err := h.svc.Verification.VerifyPhone(r.Context(), currentUser(r).ID, req.Code); err != nil {
		h.errs.write(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Phone number verified successfully")
}

func (h *handler) sendLoginOTP(w http.ResponseWriter, r *http.Request) {
	var req otpRequest
	if err := decodeJSON(r, &req); err != nil {
		h.errs.write(w, r, err)
		return
	}
	if err := h.svc.Verification.SendLoginOTP(r.Context(), req.Email); err != nil {
		h.errs.write(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "OTP sent successfully to your email")
}

func (h *handler) verifyLoginOTP(w http.ResponseWriter, r *http.Request) {
	var req otpRequest
	if err := decodeJSON(r, &req); err != nil {
		h.errs.write(w, r, err)
		return
	}
	if strings.TrimSpace(req.Email) == "" || strings.TrimSpace(req.OTP) == "" {
		h.errs.write(w, r, badRequest("Email and OTP are required"))
		return
	}
	session, err := h.svc.Verification.VerifyLoginOTP(r.Context(), req.Email, req.OTP)
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	writeSession(w, http.StatusOK, "Login successful", session)
}

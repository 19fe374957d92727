package httpapi

import (
	"net/http"

	"github.com/vladislavdragonenkov/marketplace/internal/service/auth"
)

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	UserType string `json:"userType"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type profileRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

func (h *handler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		h.errs.write(w, r, err)
		return
	}
	session, err := h.svc.Auth.Register(r.Context(), auth.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
		Phone:    req.Phone,
		UserType: req.UserType,
	})
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	writeSession(w, http.StatusCreated, "Registration successful", session)
}

func (h *handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		h.errs.write(w, r, err)
		return
	}
	session, err := h.svc.Auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	writeSession(w, http.StatusOK, "Login successful", session)
}

func (h *handler) me(w http.ResponseWriter, r *http.Request) {
	writeData(w, http.StatusOK, "", toUserDTO(currentUser(r)))
}

func (h *handler) updateProfile(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if err := decodeJSON(r, &req); err != nil {
		h.errs.write(w, r, err)
		return
	}
	user, err := h.svc.Auth.UpdateProfile(r.Context(), currentUser(r).ID, auth.ProfileInput{
		Name:  req.Name,
		Phone: req.Phone,
	})
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "Profile updated successfully", toUserDTO(user))
}

func (h *handler) deleteAccount(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Auth.Delete(r.Context(), currentUser(r).ID); err != nil {
		h.errs.write(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Account deleted successfully")
}

func writeSession(w http.ResponseWriter, status int, message string, session auth.Session) {
	writeJSON(w, status, sessionEnvelope{
		Success: true,
		Message: message,
		User:    toUserDTO(session.User),
		Token:   session.Token,
	})
}

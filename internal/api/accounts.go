package api

import (
	"errors"
	"net/http"

	"github.com/wecare-health/wecare/internal/directory"
	"github.com/wecare-health/wecare/internal/identity"
)

func (h *handlers) signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	acct, err := h.identity.Signup(r.Context(), identity.SignupInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
		Role:     req.Role,
	})
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}

	h.startSession(w, r, acct, http.StatusCreated)
}

func (h *handlers) login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	acct, err := h.identity.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}

	h.startSession(w, r, acct, http.StatusOK)
}

func (h *handlers) startSession(w http.ResponseWriter, r *http.Request, acct *identity.Account, status int) {
	token, expires, err := h.sessions.Issue(acct)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}

	h.sessions.SetCookie(w, token, expires)
	writeOK(w, status, envelope{"account": acct, "token": token, "expiresAt": expires})
}

func (h *handlers) logout(w http.ResponseWriter, _ *http.Request) {
	h.sessions.ClearCookie(w)
	writeOK(w, http.StatusOK, nil)
}

func (h *handlers) me(w http.ResponseWriter, r *http.Request) {
	actor := h.actor(r)

	acct, err := h.identity.GetAccount(r.Context(), actor.ID)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}

	body := envelope{"account": acct}
	if acct.Role == identity.RoleNurse {
		listing, err := h.directory.GetListingByAccount(r.Context(), acct.ID)
		switch {
		case err == nil:
			body["listing"] = listing
		case !errors.Is(err, directory.ErrListingNotFound):
			writeServiceError(w, r, h.log, err)
			return
		}
	}

	writeOK(w, http.StatusOK, body)
}

func (h *handlers) updateProfile(w http.ResponseWriter, r *http.Request) {
	var upd identity.ProfileUpdate
	if !decodeJSON(w, r, &upd) {
		return
	}

	actor := h.actor(r)
	acct, err := h.identity.UpdateProfile(r.Context(), actor, actor.ID, upd)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}

	writeOK(w, http.StatusOK, envelope{"account": acct})
}

func (h *handlers) listNurses(w http.ResponseWriter, r *http.Request) {
	listings, err := h.directory.ListActive(r.Context())
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}

	writeOK(w, http.StatusOK, envelope{"nurses": nonNil(listings)})
}

func (h *handlers) getNurse(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	listing, err := h.directory.GetListing(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}

	writeOK(w, http.StatusOK, envelope{"nurse": listing})
}

func (h *handlers) updateMyListing(w http.ResponseWriter, r *http.Request) {
	var upd directory.ListingUpdate
	if !decodeJSON(w, r, &upd) {
		return
	}

	listing, err := h.directory.UpdateDetails(r.Context(), h.actor(r), upd)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}

	writeOK(w, http.StatusOK, envelope{"nurse": listing})
}

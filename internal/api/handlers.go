package api

import (
	"net/http"
	"sort"

	"github.com/wecare-health/wecare/internal/appointment"
	"github.com/wecare-health/wecare/internal/auth"
	"github.com/wecare-health/wecare/internal/identity"
)

func (h *handlers) actor(r *http.Request) identity.Actor {
	// routes using this sit behind auth.Require
	a, _ := auth.ActorFromContext(r.Context())
	return a
}

func (h *handlers) createAppointment(w http.ResponseWriter, r *http.Request) {
	var req CreateAppointmentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	in, err := req.toInput()
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}

	appt, err := h.appointments.CreateAppointment(r.Context(), h.actor(r), in)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}

	writeOK(w, http.StatusCreated, envelope{"appointment": appt})
}

func (h *handlers) listMyAppointments(w http.ResponseWriter, r *http.Request) {
	actor := h.actor(r)

	appts, err := h.appointments.ListForPatient(r.Context(), actor, actor.ID)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}

	writeOK(w, http.StatusOK, envelope{"appointments": nonNil(appts)})
}

func (h *handlers) getAppointment(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	appt, err := h.appointments.GetAppointment(r.Context(), h.actor(r), id)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}

	writeOK(w, http.StatusOK, envelope{"appointment": appt})
}

func (h *handlers) listNurseAppointments(w http.ResponseWriter, r *http.Request) {
	var status *appointment.Status

	switch q := r.URL.Query().Get("status"); q {
	case "":
		pending := appointment.StatusPending
		status = &pending
	case "all":
	default:
		s, ok := appointment.ParseStatus(q)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_status", "status must be pending, confirmed, completed, cancelled or all")
			return
		}
		status = &s
	}

	appts, err := h.appointments.ListForNurse(r.Context(), h.actor(r), status)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}

	writeOK(w, http.StatusOK, envelope{"appointments": nonNil(appts)})
}

// transition serves the status-changing endpoints.
func (h *handlers) transition(action appointment.Action) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := uuidParam(w, r, "id")
		if !ok {
			return
		}

		appt, err := h.appointments.Transition(r.Context(), h.actor(r), id, action)
		if err != nil {
			writeServiceError(w, r, h.log, err)
			return
		}

		writeOK(w, http.StatusOK, envelope{"appointment": appt})
	}
}

func (h *handlers) rateAppointment(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	var req RateAppointmentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	appt, err := h.appointments.Rate(r.Context(), h.actor(r), id, req.Rating, req.Feedback)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}

	writeOK(w, http.StatusOK, envelope{"appointment": appt})
}

func (h *handlers) listServices(w http.ResponseWriter, r *http.Request) {
	prices := h.appointments.ServicePrices()

	services := make([]ServicePrice, 0, len(prices))
	for name, price := range prices {
		services = append(services, ServicePrice{Name: name, Price: price})
	}
	sort.Slice(services, func(i, j int) bool { return services[i].Price < services[j].Price })

	writeOK(w, http.StatusOK, envelope{"services": services})
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

package api

import (
	"errors"
	"net/http"
	"strings"

	"fleetd/services/fleet"
)

func (a *API) handleListSessions(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, a.sessions.Sessions())
}

func (a *API) handleStartSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IPAddress     string `json:"ipAddress"`
		MachineStatus string `json:"machineStatus"`
		VMType        string `json:"vmType"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	owner := strings.TrimSpace(r.Header.Get(SessionHeader))
	session, err := a.sessions.AddVM(req.IPAddress, req.MachineStatus, owner, req.VMType)
	if err != nil {
		var verr *fleet.ValidationError
		if errors.As(err, &verr) {
			respondJSON(w, http.StatusBadRequest, map[string]any{
				"ok":    false,
				"error": verr.Message,
				"code":  verr.Code,
			})
			return
		}
		a.logger.Error().Err(err).Msg("register session")
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	a.metrics.sessionsRegistered.WithLabelValues("start").Inc()

	a.publish(r.Context(), sessionRegisteredSubject, map[string]any{
		"session": session,
		"source":  "start",
	})

	respondJSON(w, http.StatusOK, map[string]any{"ok": true, "session": session})
}

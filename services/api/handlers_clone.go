package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"fleetd/services/provisioner"
)

func (a *API) handleClone(w http.ResponseWriter, r *http.Request) {
	var req provisioner.CloneRequest
	if err := decodeJSON(w, r, &req); err != nil {
		a.metrics.clones.WithLabelValues("invalid").Inc()
		respondError(w, http.StatusBadRequest, err)
		return
	}

	owner := strings.TrimSpace(r.Header.Get(SessionHeader))
	start := time.Now()
	res, err := a.cloner.Clone(r.Context(), req, owner)
	a.metrics.cloneDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		var missing *provisioner.MissingFieldError
		var unconfirmed *provisioner.UnconfirmedError
		switch {
		case errors.As(err, &missing):
			a.metrics.clones.WithLabelValues("invalid").Inc()
			respondError(w, http.StatusBadRequest, err)
		case errors.As(err, &unconfirmed):
			a.metrics.clones.WithLabelValues("unconfirmed").Inc()
			respondJSON(w, http.StatusBadGateway, map[string]any{
				"ok":       false,
				"error":    provisioner.ErrAddressUnconfirmed.Error(),
				"instance": map[string]any{"name": unconfirmed.Name},
			})
		default:
			a.metrics.clones.WithLabelValues("failed").Inc()
			a.logger.Error().Err(err).Str("instance", req.InstanceName).Msg("clone from snapshot")
			respondError(w, http.StatusInternalServerError, err)
		}
		return
	}

	a.metrics.clones.WithLabelValues("registered").Inc()
	a.metrics.sessionsRegistered.WithLabelValues("clone").Inc()

	a.publish(r.Context(), instanceClonedSubject, map[string]any{
		"session":  res.Session,
		"instance": res.Instance,
	})

	respondJSON(w, http.StatusOK, map[string]any{
		"ok":       true,
		"session":  res.Session,
		"instance": res.Instance,
	})
}

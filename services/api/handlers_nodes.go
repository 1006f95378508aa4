package api

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"fleetd/services/fleet"
)

const maxHeartbeatBytes = 4 << 10

func (a *API) handleListNodes(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, a.nodes.NodePings())
}

// handleHeartbeat records a liveness report from a worker node. The body is
// optional; an empty body records the caller IP alone.
func (a *API) handleHeartbeat(w http.ResponseWriter, r *http.Request) {
	if !isSecure(r) {
		a.metrics.heartbeats.WithLabelValues("insecure").Inc()
		respondError(w, http.StatusForbidden, errors.New("heartbeat requires https"))
		return
	}
	if !a.validKey(r.Header.Get(NodeKeyHeader)) {
		a.metrics.heartbeats.WithLabelValues("unauthorized").Inc()
		respondError(w, http.StatusUnauthorized, errors.New("invalid node key"))
		return
	}

	var body struct {
		Hostname string `json:"hostname"`
		NodeID   string `json:"nodeId"`
	}
	if r.Body != nil {
		defer r.Body.Close()
		err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxHeartbeatBytes)).Decode(&body)
		if err != nil && !errors.Is(err, io.EOF) {
			a.metrics.heartbeats.WithLabelValues("malformed").Inc()
			respondError(w, http.StatusBadRequest, err)
			return
		}
	}

	ip := clientIP(r)
	ping, ok := a.nodes.RecordNodePing(ip, fleet.PingDetails{Hostname: body.Hostname, NodeID: body.NodeID})
	if !ok {
		a.metrics.heartbeats.WithLabelValues("malformed").Inc()
		respondError(w, http.StatusBadRequest, errors.New("caller address unknown"))
		return
	}
	a.metrics.heartbeats.WithLabelValues("recorded").Inc()

	if ping.TotalPings == 1 {
		a.logger.Info().Str("ip", ping.IPAddress).Str("node_id", ping.NodeID).Str("hostname", ping.Hostname).Msg("node discovered")
		a.publish(r.Context(), nodeDiscoveredSubject, ping)
	}

	w.WriteHeader(http.StatusNoContent)
}

func (a *API) validKey(got string) bool {
	if len(a.heartbeatKey) == 0 {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(strings.TrimSpace(got)), a.heartbeatKey) == 1
}

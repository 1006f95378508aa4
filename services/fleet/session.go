package fleet

import "time"

// MachineStatus is the normalized running state of a VM session.
type MachineStatus string

const (
	StatusRunning MachineStatus = "Running"
	StatusStopped MachineStatus = "Stopped"
)

// VMType distinguishes regular sessions from demo sessions.
type VMType string

const (
	VMTypeDefault VMType = "Default"
	VMTypeDemo    VMType = "Demo"
)

// VMSession describes a provisioned or tracked machine. Sessions are
// immutable once registered.
type VMSession struct {
	SessionID         string            `json:"sessionId"`
	OwnerSessionID    string            `json:"ownerSessionId"`
	IPAddress         string            `json:"ipAddress"`
	MachineStatus     MachineStatus     `json:"machineStatus"`
	VMType            VMType            `json:"vmType"`
	StartTimestamp    time.Time         `json:"startTimestamp"`
	LastUsedTimestamp time.Time         `json:"lastUsedTimestamp"`
	ErrorMessage      string            `json:"errorMessage"`
	ProjectList       map[string]string `json:"projectList"`
}

func (s VMSession) clone() VMSession {
	out := s
	out.ProjectList = make(map[string]string, len(s.ProjectList))
	for k, v := range s.ProjectList {
		out.ProjectList[k] = v
	}
	return out
}

// NodePing is the liveness record for one worker node, keyed by IP address.
type NodePing struct {
	IPAddress          string    `json:"ipAddress"`
	Hostname           string    `json:"hostname,omitempty"`
	NodeID             string    `json:"nodeId,omitempty"`
	FirstPingTimestamp time.Time `json:"firstPingTimestamp"`
	LastPingTimestamp  time.Time `json:"lastPingTimestamp"`
	TotalPings         int64     `json:"totalPings"`
}

// PingDetails is the optional identity a node reports with a heartbeat.
type PingDetails struct {
	Hostname string
	NodeID   string
}

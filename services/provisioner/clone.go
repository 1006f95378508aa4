package provisioner

import (
	"fmt"
	"strings"
)

// CloneRequest asks for a new instance created from a stored snapshot. Empty
// fields fall back to the configured Defaults, except InstanceName.
type CloneRequest struct {
	Region               string `json:"region,omitempty"`
	AvailabilityZone     string `json:"availabilityZone,omitempty"`
	InstanceName         string `json:"instanceName"`
	InstanceSnapshotName string `json:"instanceSnapshotName,omitempty"`
	BundleID             string `json:"bundleId,omitempty"`
	KeyPairName          string `json:"keyPairName,omitempty"`
	IPAddressType        string `json:"ipAddressType,omitempty"`
}

// Defaults are the process-wide fallbacks for CloneRequest.
type Defaults struct {
	Region               string
	AvailabilityZone     string
	InstanceSnapshotName string
	BundleID             string
	KeyPairName          string
	IPAddressType        string
}

// MissingFieldError reports a required clone field left empty after defaulting.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("%s is required", e.Field)
}

// Resolve applies defaults and checks required fields in a fixed order,
// returning the first one missing.
func (r CloneRequest) Resolve(d Defaults) (CloneRequest, error) {
	out := CloneRequest{
		Region:               pick(r.Region, d.Region),
		AvailabilityZone:     pick(r.AvailabilityZone, d.AvailabilityZone),
		InstanceName:         strings.TrimSpace(r.InstanceName),
		InstanceSnapshotName: pick(r.InstanceSnapshotName, d.InstanceSnapshotName),
		BundleID:             pick(r.BundleID, d.BundleID),
		KeyPairName:          pick(r.KeyPairName, d.KeyPairName),
		IPAddressType:        pick(r.IPAddressType, d.IPAddressType),
	}

	required := []struct {
		field string
		value string
	}{
		{"region", out.Region},
		{"availabilityZone", out.AvailabilityZone},
		{"instanceName", out.InstanceName},
		{"instanceSnapshotName", out.InstanceSnapshotName},
		{"bundleId", out.BundleID},
	}
	for _, f := range required {
		if f.value == "" {
			return CloneRequest{}, &MissingFieldError{Field: f.field}
		}
	}
	return out, nil
}

func pick(value, fallback string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return strings.TrimSpace(fallback)
}

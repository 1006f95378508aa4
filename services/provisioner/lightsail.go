package provisioner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Provider creates instances from snapshots and reports their addresses.
type Provider interface {
	CreateFromSnapshot(ctx context.Context, req CloneRequest) error
	// InstanceAddress returns the public IPv4 address of the named instance,
	// or "" when the provider has not assigned one yet.
	InstanceAddress(ctx context.Context, region, name string) (string, error)
}

// LightsailCLI drives AWS Lightsail through the aws command line.
type LightsailCLI struct {
	path   string
	runner CommandRunner
}

var _ Provider = (*LightsailCLI)(nil)

// NewLightsailCLI returns a provider invoking the CLI binary at path.
func NewLightsailCLI(path string, runner CommandRunner) (*LightsailCLI, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		path = "aws"
	}
	if runner == nil {
		return nil, errors.New("command runner is required")
	}
	return &LightsailCLI{path: path, runner: runner}, nil
}

func (l *LightsailCLI) CreateFromSnapshot(ctx context.Context, req CloneRequest) error {
	_, err := l.runner.Run(ctx, l.path, createArgs(req)...)
	return err
}

func createArgs(req CloneRequest) []string {
	args := []string{
		"lightsail", "create-instances-from-snapshot",
		"--region", req.Region,
		"--availability-zone", req.AvailabilityZone,
		"--instance-names", req.InstanceName,
		"--instance-snapshot-name", req.InstanceSnapshotName,
		"--bundle-id", req.BundleID,
	}
	if req.KeyPairName != "" {
		args = append(args, "--key-pair-name", req.KeyPairName)
	}
	if req.IPAddressType != "" {
		args = append(args, "--ip-address-type", req.IPAddressType)
	}
	return append(args, "--output", "json")
}

type getInstancesOutput struct {
	Instances []struct {
		Name            string `json:"name"`
		PublicIPAddress string `json:"publicIpAddress"`
	} `json:"instances"`
}

func (l *LightsailCLI) InstanceAddress(ctx context.Context, region, name string) (string, error) {
	out, err := l.runner.Run(ctx, l.path, "lightsail", "get-instances", "--region", region, "--output", "json")
	if err != nil {
		return "", err
	}
	return findAddress(out, name)
}

func findAddress(data []byte, name string) (string, error) {
	var parsed getInstancesOutput
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", fmt.Errorf("decode get-instances output: %w", err)
	}
	for _, inst := range parsed.Instances {
		if inst.Name == name {
			return strings.TrimSpace(inst.PublicIPAddress), nil
		}
	}
	return "", nil
}

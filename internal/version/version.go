package version

// Name is the service name reported to tracing and logs.
const Name = "fleetd"

// Version is overridden at build time with -ldflags "-X fleetd/internal/version.Version=...".
var Version = "dev"

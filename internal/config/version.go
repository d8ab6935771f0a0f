package config

// Version is the friendgraph binary version.
// Set at build time via: -ldflags "-X github.com/persistorai/friendgraph/internal/config.Version=<tag>"
var Version = "dev"

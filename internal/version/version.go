package version

// Version is overridden at build time via
// -ldflags "-X github.com/kartoza/cplus-plugin/internal/version.Version=...".
var Version = "dev"

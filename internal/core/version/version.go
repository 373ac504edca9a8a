package version

// Version is set at build time via -ldflags "-X github.com/guiyumin/vkit/internal/core/version.Version=..."
var Version = "0.1.0"

package version

// Version is overridden at build time with -ldflags "-X voyagelog/pkg/version.Version=...".
var Version = "development"

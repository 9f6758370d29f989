package internal

// Version is the build version, overridden at build time with
// -ldflags "-X github.com/programmerraja/maci/internal.Version=...".
var Version = "dev"

package config

// Version is overridden at build time with -ldflags "-X menlo.ai/query-cache/config.Version=...".
var Version = "dev"

package app

// Version is set at build time with -ldflags "-X .../internal/app.Version=..." / Version fixée à la compilation
var Version = "dev"

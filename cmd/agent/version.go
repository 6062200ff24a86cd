package main

import "runtime/debug"

// version is set at build time with -ldflags "-X main.version=...".
var version = ""

// resolveVersion reports the tool version: the linker-provided value, else the
// module version recorded in the binary, else "dev".
func resolveVersion() string {
	if version != "" {
		return version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return "dev"
}

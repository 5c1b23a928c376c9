// Package staybook holds project-wide metadata of the staybook module.
package staybook

// Version is the release version of the staybook module and CLI.
const Version = "0.1.0"

// ModulePath is the Go module path of staybook.
const ModulePath = "github.com/mesh-intelligence/staybook"

// Revision is the source revision the binary was built from. Release
// builds set it with -ldflags.
var Revision = "dev"

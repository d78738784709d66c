// Package stack provides Docker Engine API wrappers and container
// lifecycle management for assembling a local DraCor system.
//
// This package handles:
//   - Docker client initialization with automatic socket detection
//     (Linux, macOS, Windows)
//   - Compose file generation for the four canonical services
//     (api, frontend, metrics, triplestore) and stack startup via
//     `docker compose`
//   - Detection of already-running services by their image names
//   - Freezing a service container into a labeled image, with the
//     system manifest encoded as org.dracor.stable-dracor.* labels
//   - Host port availability checks for the fixed service port mappings
//
// The package uses github.com/docker/docker/client as the underlying
// Docker SDK, with version negotiation enabled for broad compatibility.
// Compose operations shell out to the docker CLI because the compose
// file format is handled by the compose plugin, not the Engine API.
package stack

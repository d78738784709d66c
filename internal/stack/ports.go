// ports.go checks that the fixed host ports of the stack are free
// before compose is started. The services publish on well-known ports
// and a clash with another process would otherwise only surface as an
// opaque compose error after images were already pulled.
package stack

import (
	"fmt"
	"net"
	"strings"

	"github.com/dracor-org/stabledracor/internal/model"
)

// portAvailable reports whether a TCP port can be bound on localhost.
// Binding and immediately closing a listener is the reliable way to
// test this; inspecting existing listeners would require privileges.
func portAvailable(port int) bool {
	listener, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	if err != nil {
		return false
	}
	listener.Close()
	return true
}

// CheckPorts verifies that the host ports of all stack services are
// available. Returns a CLIError naming every occupied port, so the user
// sees the full conflict list at once instead of fixing one port per
// attempt.
func CheckPorts() error {
	var occupied []string
	for _, name := range model.AllServices() {
		port := HostPort(name)
		if !portAvailable(port) {
			occupied = append(occupied, fmt.Sprintf("%d (%s)", port, name))
		}
	}

	if len(occupied) > 0 {
		return model.NewCLIError(
			model.ExitBadInput,
			fmt.Sprintf("required ports already in use: %s", strings.Join(occupied, ", ")),
		)
	}
	return nil
}

package ports

import (
	"fmt"
	"math/rand"
	"net"
)

// FindAvailablePort finds an available port starting from the given port.
// If the port is in use, it tries random ports in the range [startPort, startPort+1000].
func FindAvailablePort(startPort int) (int, error) {
	if isPortAvailable(startPort) {
		return startPort, nil
	}

	maxAttempts := 50
	minPort := startPort
	maxPort := startPort + 1000
	if maxPort > 65535 {
		maxPort = 65535
	}

	for attempts := 0; attempts < maxAttempts; attempts++ {
		randomPort := minPort + rand.Intn(maxPort-minPort+1)
		if isPortAvailable(randomPort) {
			return randomPort, nil
		}
	}

	return 0, fmt.Errorf("unable to find available port after %d attempts in range %d-%d", maxAttempts, minPort, maxPort)
}

// isPortAvailable checks if a port is available by attempting to listen on it
func isPortAvailable(port int) bool {
	addr := fmt.Sprintf(":%d", port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return false
	}
	defer listener.Close()
	return true
}

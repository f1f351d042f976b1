// server.go captures the host details stored with every report.

package artemis

import "os"

// ServerSnapshot describes the machine that produced a report.
type ServerSnapshot struct {
	// Host is the local host name; empty when it cannot be determined.
	Host string
}

// CaptureServer reads the local host name. Reports still go out when the
// lookup fails; they carry an empty host.
func CaptureServer() ServerSnapshot {
	host, err := os.Hostname()
	if err != nil {
		host = ""
	}
	return ServerSnapshot{Host: host}
}

func (s ServerSnapshot) document() Value {
	return Object(NewMap().Set("host", String(s.Host)))
}

package discovery

import (
	"fmt"
	"os"
	"strconv"

	"github.com/grandcat/zeroconf"

	"github.com/muurk/salina-uart/internal/version"
)

const (
	// ServiceType identifies bridge announcements on the local network.
	ServiceType = "_salina-uart._tcp"

	// ServiceDomain is the mDNS domain.
	ServiceDomain = "local."
)

// Announcement describes one bridge to advertise.
type Announcement struct {
	// Instance is the service instance name; defaults to the hostname.
	Instance string

	// EmcPort is the advertised service port. EfcPort and HTTPPort are
	// optional and travel in TXT records.
	EmcPort  int
	EfcPort  int
	HTTPPort int
}

// Announce registers the bridge with mDNS. The returned server must be
// shut down when the bridge stops.
func Announce(a Announcement) (*zeroconf.Server, error) {
	instance := a.Instance
	if instance == "" {
		hostname, err := os.Hostname()
		if err != nil {
			hostname = "salina-uart"
		}
		instance = "salina-uart on " + hostname
	}

	txt := []string{"version=" + version.Version}
	if a.EfcPort != 0 {
		txt = append(txt, "efc="+strconv.Itoa(a.EfcPort))
	}
	if a.HTTPPort != 0 {
		txt = append(txt, "http="+strconv.Itoa(a.HTTPPort))
	}

	srv, err := zeroconf.Register(instance, ServiceType, ServiceDomain, a.EmcPort, txt, nil)
	if err != nil {
		return nil, fmt.Errorf("mdns register: %w", err)
	}
	return srv, nil
}

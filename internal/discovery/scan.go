package discovery

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/grandcat/zeroconf"
)

// DefaultScanTimeout bounds a browse for bridges.
const DefaultScanTimeout = 5 * time.Second

// Bridge is one discovered bridge announcement.
type Bridge struct {
	Instance string
	Host     string
	IP       string
	EmcPort  int
	EfcPort  int
	HTTPPort int
	Version  string
}

// EmcAddr returns the dialable EMC channel address.
func (b *Bridge) EmcAddr() string {
	return fmt.Sprintf("%s:%d", b.IP, b.EmcPort)
}

// Scanner browses the local network for bridges.
type Scanner struct {
	Timeout time.Duration
}

func NewScanner() *Scanner {
	return &Scanner{Timeout: DefaultScanTimeout}
}

// Scan returns every bridge that answers within the timeout.
func (s *Scanner) Scan(ctx context.Context) ([]*Bridge, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("mdns resolver: %w", err)
	}

	entries := make(chan *zeroconf.ServiceEntry)
	var bridges []*Bridge
	done := make(chan struct{})
	go func() {
		defer close(done)
		for entry := range entries {
			if b := parseServiceEntry(entry); b != nil {
				bridges = append(bridges, b)
			}
		}
	}()

	if err := resolver.Browse(ctx, ServiceType, ServiceDomain, entries); err != nil {
		return nil, fmt.Errorf("mdns browse: %w", err)
	}
	<-ctx.Done()
	<-done
	return bridges, nil
}

// FindFirst returns the first bridge to answer, or an error at timeout.
func (s *Scanner) FindFirst(ctx context.Context) (*Bridge, error) {
	bridges, err := s.Scan(ctx)
	if err != nil {
		return nil, err
	}
	if len(bridges) == 0 {
		return nil, fmt.Errorf("no bridge found within %v", s.Timeout)
	}
	return bridges[0], nil
}

// parseServiceEntry converts one mDNS answer into a Bridge record.
// Returns nil for answers without a usable address.
func parseServiceEntry(entry *zeroconf.ServiceEntry) *Bridge {
	var ip string
	if len(entry.AddrIPv4) > 0 {
		ip = entry.AddrIPv4[0].String()
	} else if len(entry.AddrIPv6) > 0 {
		ip = entry.AddrIPv6[0].String()
	}
	if ip == "" || entry.Port == 0 {
		return nil
	}

	b := &Bridge{
		Instance: entry.Instance,
		Host:     entry.HostName,
		IP:       ip,
		EmcPort:  entry.Port,
	}
	for _, txt := range entry.Text {
		key, value, found := strings.Cut(txt, "=")
		if !found {
			continue
		}
		switch key {
		case "efc":
			b.EfcPort, _ = strconv.Atoi(value)
		case "http":
			b.HTTPPort, _ = strconv.Atoi(value)
		case "version":
			b.Version = value
		}
	}
	return b
}

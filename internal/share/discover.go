package share

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/mdns"
)

// ServiceType is the mDNS service type drawing sessions are advertised as.
const ServiceType = "_drawerz._tcp"

// DefaultBrowseTimeout is how long Browse listens for answers.
const DefaultBrowseTimeout = 2 * time.Second

// Advertise announces a share server listening on addr to the local
// network. The caller shuts the returned server down.
func Advertise(addr string) (*mdns.Server, error) {
	_, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, fmt.Errorf("advertise %q: %w", addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("advertise %q: bad port: %w", addr, err)
	}
	host, err := os.Hostname()
	if err != nil {
		return nil, fmt.Errorf("could not get hostname: %w", err)
	}

	service, err := mdns.NewMDNSService(host, ServiceType, "", "", port, nil, []string{"Drawerz"})
	if err != nil {
		return nil, fmt.Errorf("create mDNS service: %w", err)
	}
	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return nil, fmt.Errorf("start mDNS server: %w", err)
	}
	return server, nil
}

// Peer is a drawing session found on the network.
type Peer struct {
	Name string
	Addr string
}

// Link is the URL of the peer's share server.
func (p Peer) Link() string { return "http://" + p.Addr }

// Browse listens for advertised sessions for timeout and returns those that
// answered, without duplicates.
func Browse(timeout time.Duration) ([]Peer, error) {
	if timeout <= 0 {
		timeout = DefaultBrowseTimeout
	}
	entries := make(chan *mdns.ServiceEntry, 16)
	done := make(chan []Peer)
	go func() {
		seen := make(map[string]bool)
		var peers []Peer
		for e := range entries {
			p, ok := peerFrom(e)
			if !ok || seen[p.Addr] {
				continue
			}
			seen[p.Addr] = true
			peers = append(peers, p)
		}
		done <- peers
	}()

	err := mdns.Query(&mdns.QueryParam{
		Service: ServiceType,
		Domain:  "local",
		Timeout: timeout,
		Entries: entries,
	})
	close(entries)
	peers := <-done
	if err != nil {
		return peers, fmt.Errorf("mDNS query: %w", err)
	}
	return peers, nil
}

func peerFrom(e *mdns.ServiceEntry) (Peer, bool) {
	if e == nil || e.AddrV4 == nil || e.Port == 0 {
		return Peer{}, false
	}
	name := e.Name
	if i := strings.Index(name, "."+ServiceType); i > 0 {
		name = name[:i]
	}
	return Peer{
		Name: name,
		Addr: net.JoinHostPort(e.AddrV4.String(), strconv.Itoa(e.Port)),
	}, true
}

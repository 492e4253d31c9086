// Package discovery - gateway advertisement in local network with mDNS
package discovery

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/hashicorp/mdns"
	"github.com/pkg/errors"
)

const Service = "_dive._tcp"

var ErrNotFound = errors.New("discovery: gateway not found")

// NewServer advertise gateway websocket endpoint, path goes to TXT record
func NewServer(name string, port int, path string) (*mdns.Server, error) {
	ips := LocalIPs()
	if ips == nil {
		return nil, errors.New("discovery: no local ips")
	}

	// hostName should be set manually with `.local.` tail
	service, err := mdns.NewMDNSService(
		name, Service, "", name+".local.", port, ips, []string{"path=" + path},
	)
	if err != nil {
		return nil, err
	}

	return mdns.NewServer(&mdns.Config{Zone: service})
}

// Lookup returns websocket URL of first gateway that answers before timeout
func Lookup(ctx context.Context, timeout time.Duration) (string, error) {
	entries := make(chan *mdns.ServiceEntry, 4)
	params := &mdns.QueryParam{
		Service:     Service,
		Timeout:     timeout,
		Entries:     entries,
		DisableIPv6: true,
	}

	go func() {
		_ = mdns.Query(params)
		close(entries)
	}()

	// drain rest so Query won't block
	defer func() {
		go func() {
			for range entries {
			}
		}()
	}()

	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case entry, ok := <-entries:
			if !ok {
				return "", ErrNotFound
			}
			if url := EntryURL(entry); url != "" {
				return url, nil
			}
		}
	}
}

// EntryURL converts mDNS entry of our service to websocket URL
func EntryURL(entry *mdns.ServiceEntry) string {
	if entry == nil || entry.AddrV4 == nil || entry.Port == 0 {
		return ""
	}
	if !strings.Contains(entry.Name, "."+Service+".") {
		return ""
	}

	path := "/websocket"
	for _, field := range entry.InfoFields {
		if s, ok := strings.CutPrefix(field, "path="); ok && s != "" {
			path = s
		}
	}

	return fmt.Sprintf("ws://%s%s", net.JoinHostPort(entry.AddrV4.String(), fmt.Sprint(entry.Port)), path)
}

func LocalIPs() []net.IP {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil
	}

	var ips []net.IP
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 {
			continue // interface down
		}
		if iface.Flags&net.FlagLoopback != 0 {
			continue // loopback interface
		}

		var addrs []net.Addr
		if addrs, err = iface.Addrs(); err != nil {
			continue
		}
		for _, addr := range addrs {
			switch addr := addr.(type) {
			case *net.IPNet:
				ips = append(ips, addr.IP)
			case *net.IPAddr:
				ips = append(ips, addr.IP)
			}
		}
	}
	return ips
}

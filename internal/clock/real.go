package clock

import (
	"fmt"
	"time"

	"github.com/beevik/ntp"
)

// DefaultServer is the SNTP pool used when no server is configured.
const DefaultServer = "pool.ntp.org"

// NTPSyncer queries an SNTP server.
type NTPSyncer struct {
	Server string
}

// NewNTPSyncer creates a syncer for the given server, defaulting to
// DefaultServer.
func NewNTPSyncer(server string) *NTPSyncer {
	if server == "" {
		server = DefaultServer
	}
	return &NTPSyncer{Server: server}
}

// Sync returns the network time.
func (n *NTPSyncer) Sync() (time.Time, error) {
	t, err := ntp.Time(n.Server)
	if err != nil {
		return time.Time{}, fmt.Errorf("ntp %s: %w", n.Server, err)
	}
	return t, nil
}

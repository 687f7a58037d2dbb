package imap

import (
	"fmt"
	"net"
	"time"

	"github.com/emersion/go-imap/client"

	"github.com/gitter-badger/astroid/internal/config"
)

const dialTimeout = 5 * time.Second

// ConnectToIMAP connects to the IMAP server with a 5-second timeout.
// useTLS: true for real servers, false for the local test server.
func ConnectToIMAP(server string, useTLS bool) (*client.Client, error) {
	dialer := &net.Dialer{
		Timeout: dialTimeout,
	}

	if useTLS {
		c, err := client.DialWithDialerTLS(dialer, server, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to dial with TLS: %w", err)
		}
		return c, nil
	}

	c, err := client.DialWithDialer(dialer, server)
	if err != nil {
		return nil, fmt.Errorf("failed to dial: %w", err)
	}

	return c, nil
}

// Login authenticates with the IMAP server.
func Login(c *client.Client, username, password string) error {
	if err := c.Login(username, password); err != nil {
		return fmt.Errorf("failed to authenticate: %w", err)
	}

	return nil
}

// Open connects and logs in with the imap.* settings of cfg.
func Open(cfg *config.Config) (*client.Client, error) {
	c, err := ConnectToIMAP(cfg.IMAPServer, cfg.IMAPTLS)
	if err != nil {
		return nil, err
	}

	if err := Login(c, cfg.IMAPUsername, cfg.IMAPPassword); err != nil {
		_ = c.Logout()
		return nil, err
	}

	return c, nil
}

package ssh

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// NewHostKeyCallback verifies SSH host keys against the known_hosts file at
// path, creating the file (and its directory) when missing. Hosts that are
// not yet listed are appended on first contact; a listed host presenting a
// different key is refused.
//
// An empty path disables host key checking.
func NewHostKeyCallback(path string, log *zap.Logger) (ssh.HostKeyCallback, error) {
	if path == "" {
		return ssh.InsecureIgnoreHostKey(), nil //nolint:gosec // Explicitly disabled by the operator.
	}
	if log == nil {
		log = zap.NewNop()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("known_hosts directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDONLY, 0o600) //nolint:gosec // Path is from operator config.
	if err != nil {
		return nil, fmt.Errorf("known_hosts file: %w", err)
	}
	_ = f.Close()

	check, err := knownhosts.New(path)
	if err != nil {
		return nil, fmt.Errorf("known_hosts load: %w", err)
	}

	// mu guards check, which is rebuilt after every append so a recorded
	// key is enforced for the rest of the process.
	var mu sync.Mutex
	return func(hostname string, remote net.Addr, key ssh.PublicKey) error {
		mu.Lock()
		defer mu.Unlock()

		err := check(hostname, remote, key)
		var keyErr *knownhosts.KeyError
		if err == nil || !errors.As(err, &keyErr) {
			return err
		}
		if len(keyErr.Want) > 0 {
			return fmt.Errorf("host key mismatch for %s: %w", hostname, err)
		}

		f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o600) //nolint:gosec // Path is from operator config.
		if err != nil {
			return fmt.Errorf("known_hosts append: %w", err)
		}
		defer f.Close()

		line := knownhosts.Line([]string{knownhosts.Normalize(hostname)}, key)
		if _, err := f.WriteString(line + "\n"); err != nil {
			return fmt.Errorf("known_hosts append: %w", err)
		}

		reloaded, err := knownhosts.New(path)
		if err != nil {
			return fmt.Errorf("known_hosts reload: %w", err)
		}
		check = reloaded

		log.Info("added ssh host key", zap.String("host", hostname), zap.String("path", path))
		return nil
	}, nil
}

package lock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"
)

const (
	LockFileName   = ".leadscan.lock"
	DefaultTimeout = 15 * time.Second
	PollInterval   = 100 * time.Millisecond
)

// ErrHeld is returned when another live process keeps the lock past the
// timeout.
var ErrHeld = errors.New("lock held by another process")

// Holder describes the process that owns a lock file.
type Holder struct {
	PID       int       `json:"pid"`
	Purpose   string    `json:"purpose,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type Lock struct {
	path string
}

// Acquire takes the lock file in dir, creating dir if needed. It polls until
// the lock is free, the timeout passes or ctx is done. Locks left behind by
// dead processes, or unreadable lock files, are reclaimed.
func Acquire(ctx context.Context, dir, purpose string, timeout time.Duration) (*Lock, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}

	path := filepath.Join(dir, LockFileName)
	deadline := time.Now().Add(timeout)

	for {
		acquired, err := tryAcquire(path, purpose)
		if err != nil {
			return nil, err
		}
		if acquired {
			return &Lock{path: path}, nil
		}
		if time.Now().After(deadline) {
			if holder, err := ReadHolder(dir); err == nil {
				return nil, fmt.Errorf("%w: pid %d (%s) since %s", ErrHeld, holder.PID, holder.Purpose, holder.CreatedAt.Format(time.RFC3339))
			}
			return nil, ErrHeld
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(PollInterval):
		}
	}
}

// ReadHolder returns the current owner of the lock in dir.
func ReadHolder(dir string) (Holder, error) {
	var holder Holder
	data, err := os.ReadFile(filepath.Join(dir, LockFileName))
	if err != nil {
		return holder, err
	}
	if err := json.Unmarshal(data, &holder); err != nil {
		return holder, fmt.Errorf("parse lock file: %w", err)
	}
	return holder, nil
}

func tryAcquire(path, purpose string) (bool, error) {
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		var holder Holder
		if err := json.Unmarshal(data, &holder); err == nil && isProcessAlive(holder.PID) {
			return false, nil
		}
		// stale or corrupted
		os.Remove(path)
	case !os.IsNotExist(err):
		return false, fmt.Errorf("read lock file: %w", err)
	}

	data, err = json.Marshal(Holder{
		PID:       os.Getpid(),
		Purpose:   purpose,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return false, fmt.Errorf("marshal lock info: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("create lock file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		os.Remove(path)
		return false, fmt.Errorf("write lock file: %w", err)
	}
	return true, nil
}

// Release removes the lock file if this process still owns it. Releasing a
// nil or already released lock is a no-op.
func (l *Lock) Release() error {
	if l == nil || l.path == "" {
		return nil
	}
	defer func() { l.path = "" }()

	data, err := os.ReadFile(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read lock file: %w", err)
	}

	var holder Holder
	if err := json.Unmarshal(data, &holder); err != nil {
		return os.Remove(l.path)
	}
	if holder.PID != os.Getpid() {
		return nil
	}
	return os.Remove(l.path)
}

func isProcessAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	// FindProcess always succeeds on Unix; signal 0 probes existence.
	return process.Signal(syscall.Signal(0)) == nil
}

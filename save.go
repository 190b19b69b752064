package uhdrgen

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/pkg/errors"
)

const lockFileName = ".uhdrgen.lock"

// Saver writes containers into a directory under timestamped names.
type Saver struct {
	// Now returns the current time, time.Now by default.
	Now func() time.Time
}

// FileName returns the base name for a container saved at t with collision index n.
func FileName(t time.Time, n int) string {
	if n == 0 {
		return fmt.Sprintf("UltraHDR_%d.jpg", t.Unix())
	}
	return fmt.Sprintf("UltraHDR_%d_%d.jpg", t.Unix(), n)
}

// Save writes data to dir as UltraHDR_<unix-seconds>.jpg, adding a _<n> suffix
// when the name is taken, and returns the written path. An advisory lock on
// dir serializes concurrent savers.
func (s Saver) Save(data []byte, dir string) (string, error) {
	if len(data) == 0 {
		return "", errors.Wrap(ErrSave, "no data")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrapf(ErrSave, "create %s: %v", dir, err)
	}

	lock := flock.New(filepath.Join(dir, lockFileName))
	if err := lock.Lock(); err != nil {
		return "", errors.Wrapf(ErrSave, "lock %s: %v", dir, err)
	}
	defer func() {
		_ = lock.Unlock()
	}()

	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	t := now()

	for n := 0; ; n++ {
		path := filepath.Join(dir, FileName(t, n))
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return "", errors.Wrapf(ErrSave, "create %s: %v", path, err)
		}
		if _, err := f.Write(data); err != nil {
			_ = f.Close()
			_ = os.Remove(path)
			return "", errors.Wrapf(ErrSave, "write %s: %v", path, err)
		}
		if err := f.Close(); err != nil {
			_ = os.Remove(path)
			return "", errors.Wrapf(ErrSave, "close %s: %v", path, err)
		}
		return path, nil
	}
}

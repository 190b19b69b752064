package uhdrgen_test

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vearutop/uhdrgen"
)

func TestSaver_Save(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	now := time.Unix(1700000000, 0)
	s := uhdrgen.Saver{Now: func() time.Time { return now }}

	p1, err := s.Save([]byte("one"), dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "UltraHDR_1700000000.jpg"), p1)

	p2, err := s.Save([]byte("two"), dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "UltraHDR_1700000000_1.jpg"), p2)

	data, err := os.ReadFile(p1)
	require.NoError(t, err)
	assert.Equal(t, "one", string(data))

	_, err = s.Save(nil, dir)
	assert.ErrorIs(t, err, uhdrgen.ErrSave)
	assert.Equal(t, uhdrgen.KindSave, uhdrgen.KindOf(err))
}

func TestSaver_Save_concurrent(t *testing.T) {
	dir := t.TempDir()
	s := uhdrgen.Saver{Now: func() time.Time { return time.Unix(42, 0) }}

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		paths = map[string]bool{}
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			p, err := s.Save([]byte("x"), dir)
			assert.NoError(t, err)

			mu.Lock()
			paths[p] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, paths, 8)
}

func TestSaver_Save_unwritable(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(f, nil, 0o600))

	_, err := uhdrgen.Saver{}.Save([]byte("x"), filepath.Join(f, "sub"))
	assert.ErrorIs(t, err, uhdrgen.ErrSave)
}

package leads

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"cotizador/internal/models"
)

var bom = []byte{0xEF, 0xBB, 0xBF}

// CSVRecorder appends leads to a UTF-8 CSV file with a BOM, so spreadsheet
// tools open it with the right encoding. The header is written once, when
// the file is created.
type CSVRecorder struct {
	mu   sync.Mutex
	path string
	lock *flock.Flock
}

func NewCSVRecorder(path string) *CSVRecorder {
	return &CSVRecorder{path: path, lock: flock.New(path + ".lock")}
}

func (r *CSVRecorder) Record(ctx context.Context, lead models.Lead) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	locked, err := r.lock.TryLockContext(ctx, 20*time.Millisecond)
	if err != nil {
		return fmt.Errorf("lock lead file: %w", err)
	}
	if !locked {
		return fmt.Errorf("lock lead file: not acquired")
	}
	defer r.lock.Unlock()

	fresh := false
	info, err := os.Stat(r.path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		fresh = true
	case err != nil:
		return fmt.Errorf("stat lead file: %w", err)
	case info.Size() == 0:
		fresh = true
	}

	f, err := os.OpenFile(r.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open lead file: %w", err)
	}
	defer f.Close()

	if fresh {
		if _, err := f.Write(bom); err != nil {
			return fmt.Errorf("write lead file: %w", err)
		}
	}

	w := csv.NewWriter(f)
	if fresh {
		if err := w.Write(Header); err != nil {
			return fmt.Errorf("write lead header: %w", err)
		}
	}
	if err := w.Write(Row(lead)); err != nil {
		return fmt.Errorf("write lead row: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush lead file: %w", err)
	}
	return f.Sync()
}

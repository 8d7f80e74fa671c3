package batch

import (
	"bufio"
	"bytes"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/starford/notegen/internal/apperr"
	"github.com/starford/notegen/internal/storage"
)

// loadFailed reads the persisted failed list. A missing list is an empty
// retry, not an error.
func (o *Orchestrator) loadFailed() ([]string, error) {
	if o.cfg.FailedListPath == "" {
		o.logger.Warn("batch: retry requested but no failed list is configured")
		return nil, nil
	}
	data, err := os.ReadFile(o.cfg.FailedListPath)
	if errors.Is(err, fs.ErrNotExist) {
		o.logger.Warn("batch: no failed list to retry", slog.String("path", o.cfg.FailedListPath))
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Mark(err, apperr.ErrSetup, "read failed list")
	}

	var out []string
	seen := make(map[string]struct{})
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		p := strings.TrimSpace(sc.Text())
		if p == "" || strings.HasPrefix(p, "#") {
			continue
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	if err := sc.Err(); err != nil {
		return nil, apperr.Mark(err, apperr.ErrSetup, "scan failed list")
	}
	return out, nil
}

// saveFailed replaces the failed list with paths, which must be sorted. An
// empty list truncates the file so a clean run clears earlier failures.
func (o *Orchestrator) saveFailed(paths []string) error {
	if o.cfg.FailedListPath == "" {
		return nil
	}
	var buf bytes.Buffer
	for _, p := range paths {
		buf.WriteString(p)
		buf.WriteByte('\n')
	}
	if err := storage.WriteFileAtomic(o.cfg.FailedListPath, buf.Bytes()); err != nil {
		return apperr.Mark(err, apperr.ErrWrite, "save failed list")
	}
	return nil
}

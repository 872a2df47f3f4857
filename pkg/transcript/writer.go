package transcript

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const DefaultMarker = "run"

const timestampLayout = "20060102-150405"

// Writer persists a finished transcript as <model>_<marker>_<timestamp>.json
// in Dir. The file appears complete or not at all.
type Writer struct {
	Dir    string
	Marker string
	now    func() time.Time
}

type WriterOption func(*Writer)

func WithMarker(marker string) WriterOption {
	return func(w *Writer) {
		w.Marker = marker
	}
}

func WithNow(now func() time.Time) WriterOption {
	return func(w *Writer) {
		w.now = now
	}
}

func NewWriter(dir string, options ...WriterOption) *Writer {
	ret := &Writer{
		Dir:    dir,
		Marker: DefaultMarker,
		now:    time.Now,
	}
	for _, o := range options {
		o(ret)
	}
	return ret
}

var fileNameReplacer = strings.NewReplacer("/", "-", ":", "-", string(filepath.Separator), "-")

func (w *Writer) FileName(model string, ts time.Time) string {
	marker := w.Marker
	if marker == "" {
		marker = DefaultMarker
	}
	return fmt.Sprintf("%s_%s_%s.json", fileNameReplacer.Replace(model), marker, ts.Format(timestampLayout))
}

func Encode(t *Transcript) ([]byte, error) {
	buf := &bytes.Buffer{}
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(t); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (w *Writer) Write(t *Transcript) (string, error) {
	ts := t.CompletedAt
	if ts.IsZero() {
		ts = w.now()
	}

	dir := w.Dir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", errors.Wrapf(err, "could not create output directory %s", dir)
	}

	b, err := Encode(t)
	if err != nil {
		return "", errors.Wrap(err, "could not encode transcript")
	}

	path := filepath.Join(dir, w.FileName(t.Model, ts))
	tmp, err := os.CreateTemp(dir, ".chatscript-*.tmp")
	if err != nil {
		return "", errors.Wrap(err, "could not create temporary transcript file")
	}
	tmpName := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}

	if _, err := tmp.Write(b); err != nil {
		cleanup()
		return "", errors.Wrap(err, "could not write transcript")
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return "", errors.Wrap(err, "could not sync transcript")
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return "", errors.Wrap(err, "could not close transcript")
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		_ = os.Remove(tmpName)
		return "", errors.Wrap(err, "could not set transcript permissions")
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return "", errors.Wrapf(err, "could not move transcript to %s", path)
	}

	log.Debug().Str("path", path).Int("entries", t.Len()).Msg("transcript written")
	return path, nil
}

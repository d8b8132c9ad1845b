package history

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
)

const archivePrefix = "matches"

// ArchiveWriter appends matches as JSON lines to one zstd file per UTC day
type ArchiveWriter struct {
	baseDir string
	now     func() time.Time

	mu     sync.Mutex
	curDay string
	f      *os.File
	enc    *zstd.Encoder
	w      *bufio.Writer
}

// NewArchiveWriter creates a writer rooted at baseDir. Files are opened lazily.
func NewArchiveWriter(baseDir string) *ArchiveWriter {
	return &ArchiveWriter{baseDir: baseDir, now: time.Now}
}

// RecordMatch implements Recorder
func (w *ArchiveWriter) RecordMatch(m Match) error {
	return w.Write(m)
}

// Write appends one JSON line and flushes it through the compressor
func (w *ArchiveWriter) Write(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	day := w.now().UTC().Format("2006-01-02")
	if day != w.curDay {
		if err := w.rotateLocked(day); err != nil {
			return err
		}
	}

	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}
	if err := w.w.Flush(); err != nil {
		return err
	}
	return w.enc.Flush()
}

// Close flushes and closes the current file
func (w *ArchiveWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeLocked()
}

func (w *ArchiveWriter) rotateLocked(day string) error {
	if err := w.closeLocked(); err != nil {
		return err
	}
	if err := os.MkdirAll(w.baseDir, 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(w.pathForDay(day), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	w.f = f
	w.enc = enc
	w.w = bufio.NewWriterSize(enc, 64*1024)
	w.curDay = day
	return nil
}

func (w *ArchiveWriter) closeLocked() error {
	var err1 error
	if w.w != nil {
		_ = w.w.Flush()
	}
	if w.enc != nil {
		err1 = w.enc.Close()
		w.enc = nil
	}
	if w.f != nil {
		_ = w.f.Close()
		w.f = nil
	}
	w.w = nil
	w.curDay = ""
	return err1
}

func (w *ArchiveWriter) pathForDay(day string) string {
	return filepath.Join(w.baseDir, fmt.Sprintf("%s-%s.jsonl.zst", archivePrefix, day))
}

// ReadArchiveFile decodes every match in one archive file
func ReadArchiveFile(path string) ([]Match, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 64*1024), 8*1024*1024)

	var matches []Match
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var m Match
		if err := json.Unmarshal(line, &m); err != nil {
			return matches, fmt.Errorf("%s: unmarshal: %w", filepath.Base(path), err)
		}
		matches = append(matches, m)
	}
	if err := sc.Err(); err != nil {
		return matches, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return matches, nil
}

// ArchiveFiles lists the archive files in dir in chronological order
func ArchiveFiles(dir string) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(dir, archivePrefix+"-*.jsonl.zst"))
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// ReadArchiveDir decodes every match in every archive file in dir
func ReadArchiveDir(dir string) ([]Match, error) {
	files, err := ArchiveFiles(dir)
	if err != nil {
		return nil, err
	}
	var all []Match
	for _, path := range files {
		matches, err := ReadArchiveFile(path)
		if err != nil {
			return all, err
		}
		all = append(all, matches...)
	}
	return all, nil
}

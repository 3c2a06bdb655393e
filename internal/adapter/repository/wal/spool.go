package wal

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/V4T54L/service-portal/internal/domain"
)

const (
	segmentPrefix = "audit-"
	segmentSuffix = ".jsonl"
	filePerm      = 0644

	checkpointSuffix = ".offset"
)

// ErrSpoolFull is returned when a write would exceed the configured size limit.
var ErrSpoolFull = errors.New("audit spool is full")

// Spool is a segmented on-disk queue of audit entries the history store
// could not accept. It implements domain.AuditSpool.
type Spool struct {
	dir            string
	maxSegmentSize int64
	maxTotalSize   int64
	logger         *slog.Logger

	replayMu sync.Mutex

	mu             sync.Mutex
	currentSegment *os.File
	currentSize    int64
	totalSize      int64
	lastSeq        int64
	// sealed makes the next write start a new segment, keeping writes out
	// of segments a replay is reading.
	sealed bool
}

func NewSpool(dir string, maxSegmentSize, maxTotalSize int64, logger *slog.Logger) (*Spool, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create spool directory %s: %w", dir, err)
	}

	s := &Spool{
		dir:            dir,
		maxSegmentSize: maxSegmentSize,
		maxTotalSize:   maxTotalSize,
		logger:         logger.With("component", "audit_spool"),
	}

	total, err := s.calculateTotalSize()
	if err != nil {
		return nil, err
	}
	s.totalSize = total
	if total > 0 {
		s.logger.Info("found spooled audit entries from a previous run", "bytes", total)
	}
	return s, nil
}

// Write appends one entry as a JSON line.
func (s *Spool) Write(ctx context.Context, entry domain.LookupHistoryEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal audit entry: %w", err)
	}
	data = append(data, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.totalSize+int64(len(data)) > s.maxTotalSize {
		return fmt.Errorf("%w (%d bytes)", ErrSpoolFull, s.totalSize)
	}
	if s.currentSegment == nil {
		open := s.openLatestSegment
		if s.sealed {
			open = s.rotate
		}
		if err := open(); err != nil {
			return err
		}
	}

	n, err := s.currentSegment.Write(data)
	if err != nil {
		return fmt.Errorf("failed to write audit spool segment: %w", err)
	}
	s.currentSize += int64(n)
	s.totalSize += int64(n)

	if s.currentSize >= s.maxSegmentSize {
		if err := s.rotate(); err != nil {
			s.logger.Error("failed to rotate spool segment", "error", err)
		}
	}
	return nil
}

// Replay hands spooled entries to handler in write order and consumes the
// ones it accepts. A fully replayed segment is removed; inside a partly
// replayed segment the position after the last accepted entry is
// checkpointed, so the next replay resumes there. Writes are not blocked:
// they go to a fresh segment that the next replay picks up.
func (s *Spool) Replay(ctx context.Context, handler func(entry domain.LookupHistoryEntry) error) error {
	s.replayMu.Lock()
	defer s.replayMu.Unlock()

	s.mu.Lock()
	s.closeCurrent()
	s.sealed = true
	segments, err := s.sortedSegments()
	s.mu.Unlock()
	if err != nil {
		return err
	}
	if len(segments) == 0 {
		return nil
	}
	s.logger.Info("replaying audit spool", "segment_count", len(segments))

	for _, path := range segments {
		if err := s.replaySegment(ctx, path, handler); err != nil {
			return err
		}
		if err := s.removeSegment(path); err != nil {
			return err
		}
	}
	return nil
}

func (s *Spool) replaySegment(ctx context.Context, path string, handler func(entry domain.LookupHistoryEntry) error) error {
	offset := s.readCheckpoint(path)

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open segment %s for replay: %w", path, err)
	}
	defer file.Close()
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return fmt.Errorf("failed to seek segment %s: %w", path, err)
	}

	reader := bufio.NewReader(file)
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		line, readErr := reader.ReadBytes('\n')
		if readErr != nil && !errors.Is(readErr, io.EOF) {
			return fmt.Errorf("error reading segment %s: %w", path, readErr)
		}
		if len(line) == 0 {
			return nil
		}

		if data := bytes.TrimSpace(line); len(data) > 0 {
			var entry domain.LookupHistoryEntry
			if err := json.Unmarshal(data, &entry); err != nil {
				s.logger.Warn("skipping unreadable spooled entry", "error", err, "segment", filepath.Base(path))
			} else if err := handler(entry); err != nil {
				return fmt.Errorf("replay handler failed: %w", err)
			}
		}

		offset += int64(len(line))
		if err := writeCheckpoint(path, offset); err != nil {
			return err
		}
		if readErr != nil {
			return nil
		}
	}
}

// removeSegment drops a fully replayed segment and its checkpoint.
func (s *Spool) removeSegment(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var size int64
	if info, err := os.Stat(path); err == nil {
		size = info.Size()
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove replayed segment %s: %w", path, err)
	}
	if err := os.Remove(checkpointPath(path)); err != nil && !os.IsNotExist(err) {
		s.logger.Warn("failed to remove spool checkpoint", "error", err, "segment", filepath.Base(path))
	}
	s.totalSize = max(s.totalSize-size, 0)
	return nil
}

func (s *Spool) readCheckpoint(path string) int64 {
	data, err := os.ReadFile(checkpointPath(path))
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("failed to read spool checkpoint", "error", err, "segment", filepath.Base(path))
		}
		return 0
	}
	offset, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	if err != nil || offset < 0 {
		s.logger.Warn("ignoring invalid spool checkpoint", "segment", filepath.Base(path))
		return 0
	}
	return offset
}

// writeCheckpoint replaces the checkpoint atomically.
func writeCheckpoint(path string, offset int64) error {
	target := checkpointPath(path)
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, []byte(strconv.FormatInt(offset, 10)), filePerm); err != nil {
		return fmt.Errorf("failed to write spool checkpoint: %w", err)
	}
	if err := os.Rename(tmp, target); err != nil {
		return fmt.Errorf("failed to commit spool checkpoint: %w", err)
	}
	return nil
}

func checkpointPath(segment string) string {
	return segment + checkpointSuffix
}

// Close closes the open segment.
func (s *Spool) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.currentSegment == nil {
		return nil
	}
	err := s.currentSegment.Close()
	s.currentSegment = nil
	return err
}

func (s *Spool) closeCurrent() {
	if s.currentSegment == nil {
		return
	}
	if err := s.currentSegment.Sync(); err != nil {
		s.logger.Warn("failed to sync spool segment", "error", err)
	}
	s.currentSegment.Close()
	s.currentSegment = nil
}

func (s *Spool) rotate() error {
	s.closeCurrent()

	seq := time.Now().UnixNano()
	if seq <= s.lastSeq {
		seq = s.lastSeq + 1
	}
	name := fmt.Sprintf("%s%020d%s", segmentPrefix, seq, segmentSuffix)
	path := filepath.Join(s.dir, name)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, filePerm)
	if err != nil {
		return fmt.Errorf("failed to create spool segment %s: %w", path, err)
	}
	s.currentSegment = f
	s.currentSize = 0
	s.lastSeq = seq
	s.sealed = false
	s.logger.Debug("rotated spool segment", "path", path)
	return nil
}

func (s *Spool) openLatestSegment() error {
	segments, err := s.sortedSegments()
	if err != nil {
		return err
	}
	if len(segments) == 0 {
		return s.rotate()
	}

	latest := segments[len(segments)-1]
	stat, err := os.Stat(latest)
	if err != nil {
		return fmt.Errorf("failed to stat segment %s: %w", latest, err)
	}
	if stat.Size() >= s.maxSegmentSize {
		return s.rotate()
	}

	f, err := os.OpenFile(latest, os.O_APPEND|os.O_WRONLY, filePerm)
	if err != nil {
		return fmt.Errorf("failed to open segment %s: %w", latest, err)
	}
	s.currentSegment = f
	s.currentSize = stat.Size()
	return nil
}

func (s *Spool) sortedSegments() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read spool directory: %w", err)
	}
	var segments []string
	for _, e := range entries {
		if isSegment(e) {
			segments = append(segments, filepath.Join(s.dir, e.Name()))
		}
	}
	sort.Strings(segments)
	return segments, nil
}

func (s *Spool) calculateTotalSize() (int64, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read spool directory: %w", err)
	}
	var total int64
	for _, e := range entries {
		if !isSegment(e) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return 0, err
		}
		total += info.Size()
	}
	return total, nil
}

func isSegment(e os.DirEntry) bool {
	return !e.IsDir() && strings.HasPrefix(e.Name(), segmentPrefix) && strings.HasSuffix(e.Name(), segmentSuffix)
}

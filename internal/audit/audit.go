// Package audit keeps a tamper-evident JSONL journal of the changes the
// helper makes to the machine: installs updated, tasks registered or
// removed, programs started. Each run appends to the same file and the
// SHA-256 chain continues from the last entry written by the previous run.
package audit

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/stranslate/host/internal/logging"
)

var log = logging.L("audit")

const (
	EventUpdateApplied  = "update_applied"
	EventUpdateFailed   = "update_failed"
	EventTaskCreated    = "task_created"
	EventTaskDeleted    = "task_deleted"
	EventProcessStarted = "process_started"
	EventLogRotated     = "log_rotated"
)

const genesis = "genesis"

// criticalEvents are fsynced after writing.
var criticalEvents = map[string]bool{
	EventUpdateApplied: true,
	EventTaskCreated:   true,
	EventTaskDeleted:   true,
}

// Entry is a single journal record.
type Entry struct {
	Timestamp string         `json:"timestamp"`
	EventType string         `json:"eventType"`
	Operation string         `json:"operation,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
	PrevHash  string         `json:"prevHash"`
	EntryHash string         `json:"entryHash"`
}

// Options locate the journal and bound its size.
type Options struct {
	File       string
	MaxSizeMB  int
	MaxBackups int
}

// Logger appends hash-chained entries. On rotation a sentinel
// (EventLogRotated) is the first record of the new file and links to the
// last entry of the old one.
type Logger struct {
	mu         sync.Mutex
	file       *os.File
	filePath   string
	maxSize    int64
	maxBackups int
	written    int64
	prevHash   string
	dropped    atomic.Int64
	now        func() time.Time
}

// Open opens or creates the journal at opts.File and resumes its hash
// chain. An empty File disables the journal: Open returns a nil Logger,
// whose methods are no-ops.
func Open(opts Options) (*Logger, error) {
	if opts.File == "" {
		return nil, nil
	}
	if err := os.MkdirAll(filepath.Dir(opts.File), 0o700); err != nil {
		return nil, fmt.Errorf("create audit dir: %w", err)
	}

	maxSize := opts.MaxSizeMB
	if maxSize <= 0 {
		maxSize = 10
	}
	maxBackups := opts.MaxBackups
	if maxBackups <= 0 {
		maxBackups = 3
	}

	prev, err := lastHash(opts.File)
	if err != nil {
		return nil, err
	}

	l := &Logger{
		filePath:   opts.File,
		maxSize:    int64(maxSize) * 1024 * 1024,
		maxBackups: maxBackups,
		prevHash:   prev,
		now:        time.Now,
	}
	if err := l.openFile(); err != nil {
		return nil, err
	}

	log.Debug("audit journal opened", "path", opts.File)
	return l, nil
}

// Log writes a single entry. The chain only advances after a successful
// write so a failed entry leaves no gap. Safe on a nil receiver.
func (l *Logger) Log(eventType, operation string, details map[string]any) {
	if l == nil {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	entry := Entry{
		Timestamp: l.now().UTC().Format(time.RFC3339Nano),
		EventType: eventType,
		Operation: operation,
		Details:   details,
		PrevHash:  l.prevHash,
	}

	data, err := seal(&entry)
	if err != nil {
		log.Error("failed to build audit entry", "error", err, "eventType", eventType)
		l.dropped.Add(1)
		return
	}

	if l.written+int64(len(data)) > l.maxSize {
		if err := l.rotate(); err != nil {
			log.Error("audit journal rotation failed", "error", err)
			l.dropped.Add(1)
			return
		}
		entry.PrevHash = l.prevHash
		if data, err = seal(&entry); err != nil {
			l.dropped.Add(1)
			return
		}
	}

	n, err := l.file.Write(data)
	if err != nil {
		log.Error("failed to write audit entry", "error", err, "eventType", eventType)
		l.dropped.Add(1)
		return
	}
	l.written += int64(n)
	l.prevHash = entry.EntryHash

	if criticalEvents[eventType] {
		if err := l.file.Sync(); err != nil {
			log.Error("failed to fsync audit entry", "error", err, "eventType", eventType)
		}
	}
}

// Close closes the journal file. Safe on a nil receiver.
func (l *Logger) Close() error {
	if l == nil {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

// DroppedCount returns the number of entries that failed to write, or -1
// for a nil (disabled) logger.
func (l *Logger) DroppedCount() int64 {
	if l == nil {
		return -1
	}
	return l.dropped.Load()
}

// Verify walks the journal at path and reports the first entry whose hash
// does not match its content or whose prevHash does not link to the entry
// before it. It returns the number of entries checked.
func Verify(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	var (
		count int
		prev  string
	)
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		if len(sc.Bytes()) == 0 {
			continue
		}
		var e Entry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			return count, fmt.Errorf("entry %d: %w", count+1, err)
		}
		want, err := computeHash(e)
		if err != nil {
			return count, fmt.Errorf("entry %d: %w", count+1, err)
		}
		if e.EntryHash != want {
			return count, fmt.Errorf("entry %d: hash mismatch", count+1)
		}
		if count > 0 && e.PrevHash != prev {
			return count, fmt.Errorf("entry %d: chain broken", count+1)
		}
		prev = e.EntryHash
		count++
	}
	return count, sc.Err()
}

// seal computes entry's hash and returns its JSONL encoding.
func seal(entry *Entry) ([]byte, error) {
	h, err := computeHash(*entry)
	if err != nil {
		return nil, err
	}
	entry.EntryHash = h

	data, err := json.Marshal(entry)
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// computeHash length-prefixes every field so no two field combinations
// hash the same.
func computeHash(entry Entry) (string, error) {
	h := sha256.New()
	for _, field := range []string{entry.Timestamp, entry.EventType, entry.Operation, entry.PrevHash} {
		fmt.Fprintf(h, "%d:%s", len(field), field)
	}
	if entry.Details != nil {
		detailBytes, err := json.Marshal(entry.Details)
		if err != nil {
			return "", fmt.Errorf("marshal details for hash: %w", err)
		}
		fmt.Fprintf(h, "%d:", len(detailBytes))
		h.Write(detailBytes)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// lastHash returns the EntryHash of the last record in path, or genesis
// when the file is missing or empty.
func lastHash(path string) (string, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return genesis, nil
	}
	if err != nil {
		return "", fmt.Errorf("open audit journal: %w", err)
	}
	defer f.Close()

	var last []byte
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		if len(sc.Bytes()) > 0 {
			last = append(last[:0], sc.Bytes()...)
		}
	}
	if err := sc.Err(); err != nil {
		return "", fmt.Errorf("read audit journal: %w", err)
	}
	if last == nil {
		return genesis, nil
	}

	var e Entry
	if err := json.Unmarshal(last, &e); err != nil || e.EntryHash == "" {
		log.Warn("last audit entry unreadable, starting a new chain", "path", path, "error", err)
		return "chain-broken", nil
	}
	return e.EntryHash, nil
}

func (l *Logger) openFile() error {
	f, err := os.OpenFile(l.filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("open audit journal: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("stat audit journal: %w", err)
	}

	l.file = f
	l.written = info.Size()
	return nil
}

func (l *Logger) rotate() error {
	prevHashBeforeRotation := l.prevHash

	if l.file != nil {
		l.file.Close()
	}

	// .3 is dropped, .2 → .3, .1 → .2
	for i := l.maxBackups; i >= 2; i-- {
		src := l.backupName(i - 1)
		dst := l.backupName(i)
		if i == l.maxBackups {
			if err := os.Remove(dst); err != nil && !os.IsNotExist(err) {
				log.Warn("audit rotation: failed to remove oldest backup", "path", dst, "error", err)
			}
		}
		if err := os.Rename(src, dst); err != nil && !os.IsNotExist(err) {
			log.Warn("audit rotation: failed to rename backup", "src", src, "dst", dst, "error", err)
		}
	}

	if err := os.Rename(l.filePath, l.backupName(1)); err != nil && !os.IsNotExist(err) {
		log.Warn("audit rotation: failed to rename current journal", "error", err)
	}

	if err := l.openFile(); err != nil {
		return err
	}

	sentinel := Entry{
		Timestamp: l.now().UTC().Format(time.RFC3339Nano),
		EventType: EventLogRotated,
		PrevHash:  prevHashBeforeRotation,
		Details: map[string]any{
			"previousFile": l.backupName(1),
		},
	}
	data, err := seal(&sentinel)
	if err == nil {
		var n int
		n, err = l.file.Write(data)
		l.written += int64(n)
	}
	if err != nil {
		log.Error("rotation sentinel failed, hash chain broken", "error", err)
		l.dropped.Add(1)
		l.prevHash = "chain-broken"
		return nil
	}
	l.prevHash = sentinel.EntryHash
	return nil
}

func (l *Logger) backupName(index int) string {
	if index == 0 {
		return l.filePath
	}
	return fmt.Sprintf("%s.%d", l.filePath, index)
}

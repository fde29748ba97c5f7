package data

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

// Store is the durable state store: a key-value collection of JSON
// documents under a state directory. Reads self-heal on corruption and
// writes are atomic (temp file + rename), so a reader never observes a
// partially written document.
type Store struct {
	dir string
	log zerolog.Logger
}

// NewStore creates a store rooted at dir, creating it on demand.
func NewStore(dir string, log zerolog.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}
	return &Store{dir: dir, log: log.With().Str("component", "store").Logger()}, nil
}

// Path returns the absolute location of a document key.
func (s *Store) Path(key string) string {
	return filepath.Join(s.dir, key)
}

// Load reads the JSON document at key into v. v must arrive holding the
// default value: a missing, empty or corrupt document is hard-reset to that
// default and the default is kept in v. Only JSON corruption is healed;
// I/O errors (permissions and the like) are returned as-is.
func (s *Store) Load(key string, v any) error {
	b, err := os.ReadFile(s.Path(key))
	if errors.Is(err, os.ErrNotExist) {
		return s.Save(key, v)
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", key, err)
	}
	if len(bytes.TrimSpace(b)) == 0 {
		return s.Save(key, v)
	}

	// Unmarshal can leave v partially populated on failure, so restore
	// the default before healing.
	def, merr := json.Marshal(v)
	if uerr := json.Unmarshal(b, v); uerr != nil {
		s.log.Warn().Str("key", key).Err(uerr).Msg("corrupt document, hard-resetting")
		if merr == nil {
			_ = json.Unmarshal(def, v)
		}
		return s.Save(key, v)
	}
	return nil
}

// Save atomically writes v as the JSON document at key. A failed write is
// logged and the temporary artifact removed; callers do not retry.
func (s *Store) Save(key string, v any) error {
	p := s.Path(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", key, err)
	}

	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}

	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		s.log.Error().Str("key", key).Err(err).Msg("write failure")
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	if err := os.Rename(tmp, p); err != nil {
		s.log.Error().Str("key", key).Err(err).Msg("rename failure")
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to replace %s: %w", key, err)
	}
	return nil
}

// AppendLine appends v as one NDJSON line to the document at key. Used for
// the high-volume chat log where rewriting the whole document per message
// would be wasteful.
func (s *Store) AppendLine(key string, v any) error {
	p := s.Path(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", key, err)
	}

	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s line: %w", key, err)
	}

	f, err := os.OpenFile(p, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", key, err)
	}
	defer f.Close()

	if _, err := f.Write(append(b, '\n')); err != nil {
		return fmt.Errorf("failed to append to %s: %w", key, err)
	}
	return nil
}

// ReadLines decodes every NDJSON line of the document at key, calling fn
// with the raw line. Undecodable lines are skipped, not fatal. A missing
// document yields no lines.
func (s *Store) ReadLines(key string, fn func(line []byte)) error {
	f, err := os.Open(s.Path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", key, err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		fn(line)
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("failed to scan %s: %w", key, err)
	}
	return nil
}

// WriteLines atomically replaces the NDJSON document at key with the given
// values.
func (s *Store) WriteLines(key string, vs []any) error {
	var buf bytes.Buffer
	for _, v := range vs {
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("failed to marshal %s line: %w", key, err)
		}
		buf.Write(b)
		buf.WriteByte('\n')
	}

	p := s.Path(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", key, err)
	}
	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	if err := os.Rename(tmp, p); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to replace %s: %w", key, err)
	}
	return nil
}

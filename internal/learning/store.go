package learning

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/expscan/expscan/internal/common"
	"github.com/expscan/expscan/internal/entity"
)

const (
	trainingFilename = "corrections.json"
	patternsFilename = "learned_patterns.json"
)

// Store is the file-backed home of the corrections log and the learned
// patterns. It is the single writer for both files: every mutation goes
// through the mutex and is flushed back immediately. Concurrent processes
// are not coordinated; the deployment assumption is one writer.
type Store struct {
	trainingPath string
	patternsPath string
	logger       *slog.Logger

	mu          sync.Mutex
	corrections []entity.Correction
	patterns    *entity.LearnedPatterns
}

func NewStore(dataDir string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		trainingPath: filepath.Join(dataDir, trainingFilename),
		patternsPath: filepath.Join(dataDir, patternsFilename),
		logger:       logger,
		patterns:     entity.NewLearnedPatterns(),
	}
}

// Load reads both files. A missing file starts empty; a corrupt or
// schema-invalid file is discarded with a warning rather than poisoning
// the in-memory state.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if data, err := s.readFile(s.trainingPath); err != nil {
		return err
	} else if data != nil {
		if corrections, derr := decodeCorrections(data); derr != nil {
			s.logger.Warn("learning.store.corrections_discarded", "path", s.trainingPath, "error", derr)
		} else {
			s.corrections = corrections
		}
	}

	if data, err := s.readFile(s.patternsPath); err != nil {
		return err
	} else if data != nil {
		if patterns, derr := decodePatterns(data); derr != nil {
			s.logger.Warn("learning.store.patterns_discarded", "path", s.patternsPath, "error", derr)
		} else {
			s.patterns = patterns
		}
	}

	s.logger.Info("learning.store.loaded",
		"corrections", len(s.corrections),
		"vendors", len(s.patterns.VendorPatterns),
	)
	return nil
}

// decodeCorrections parses the corrections log, classifying schema and
// syntax failures as ErrStoreCorrupt.
func decodeCorrections(data []byte) ([]entity.Correction, error) {
	if err := validateJSONAgainstSchema(BuildCorrectionsJSONSchema(), data); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrStoreCorrupt, err)
	}
	var corrections []entity.Correction
	if err := json.Unmarshal(data, &corrections); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrStoreCorrupt, err)
	}
	return corrections, nil
}

// decodePatterns parses the learned-patterns file the same way.
func decodePatterns(data []byte) (*entity.LearnedPatterns, error) {
	if err := validateJSONAgainstSchema(BuildPatternsJSONSchema(), data); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrStoreCorrupt, err)
	}
	patterns := entity.NewLearnedPatterns()
	if err := json.Unmarshal(data, patterns); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrStoreCorrupt, err)
	}
	ensureMaps(patterns)
	return patterns, nil
}

func (s *Store) readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Flush writes both files back to disk.
func (s *Store) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushLocked()
}

func (s *Store) flushLocked() error {
	if err := os.MkdirAll(filepath.Dir(s.trainingPath), 0o755); err != nil {
		return err
	}
	if err := writeJSON(s.trainingPath, s.correctionsOrEmpty()); err != nil {
		return err
	}
	return writeJSON(s.patternsPath, s.patterns)
}

func (s *Store) correctionsOrEmpty() []entity.Correction {
	if s.corrections == nil {
		return []entity.Correction{}
	}
	return s.corrections
}

// AppendCorrection commits one correction event: the log entry and the
// already-updated pattern set are swapped in together, so a failed update
// never leaves the knowledge base half-written.
func (s *Store) AppendCorrection(c entity.Correction, updated *entity.LearnedPatterns) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.corrections = append(s.corrections, c)
	s.patterns = updated
	if err := s.flushLocked(); err != nil {
		return len(s.corrections), err
	}
	return len(s.corrections), nil
}

// SetPatterns replaces the pattern set wholesale (retrain path).
func (s *Store) SetPatterns(p *entity.LearnedPatterns) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.patterns = p
	return s.flushLocked()
}

// Patterns returns a deep copy safe for read-side use.
func (s *Store) Patterns() *entity.LearnedPatterns {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.patterns.Clone()
}

// Corrections returns a copy of the corrections log.
func (s *Store) Corrections() []entity.Correction {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]entity.Correction, len(s.corrections))
	copy(out, s.corrections)
	return out
}

// CorrectionCount returns the number of accumulated corrections.
func (s *Store) CorrectionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.corrections)
}

// Reset clears all learned state. The only path that shrinks counters.
func (s *Store) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.corrections = nil
	s.patterns = entity.NewLearnedPatterns()
	return s.flushLocked()
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func ensureMaps(p *entity.LearnedPatterns) {
	if p.VendorPatterns == nil {
		p.VendorPatterns = map[string][]entity.VendorContext{}
	}
	if p.AmountContexts == nil {
		p.AmountContexts = map[string]int{}
	}
	if p.DateFormats == nil {
		p.DateFormats = map[string]int{}
	}
	if p.VendorFrequency == nil {
		p.VendorFrequency = map[string]int{}
	}
}

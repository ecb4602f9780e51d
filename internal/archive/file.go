package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"cmctracker/internal/fetcher"
	"cmctracker/internal/summary"
)

const (
	dataFileName    = "historical_data.json"
	oldFileName     = "historical_data_OLD.json"
	archiveDirName  = "archive"
	resultsDirName  = "results"
	rotateTimestamp = "01022006-150405"
	resultTimestamp = "010206-150405"
)

// FileStore keeps the archive as one pretty-printed JSON document per market
// directory: <root>/<TRADE>_<QUOTE>/historical_data.json.
type FileStore struct {
	trade     string
	quote     string
	marketDir string
	dataFile  string
	logger    zerolog.Logger

	opened bool
	snaps  []fetcher.Snapshot
}

// NewFileStore constructs a file-backed store rooted at dir.
func NewFileStore(dir, trade, quote string, logger zerolog.Logger) *FileStore {
	marketDir := filepath.Join(dir, trade+"_"+quote)
	return &FileStore{
		trade:     trade,
		quote:     quote,
		marketDir: marketDir,
		dataFile:  filepath.Join(marketDir, dataFileName),
		logger:    logger.With().Str("component", "file_archive").Logger(),
	}
}

// Open implements Store. Fresh mode moves an existing live file to
// historical_data_OLD.json instead of deleting it.
func (s *FileStore) Open(ctx context.Context, resume bool) ([]fetcher.Snapshot, error) {
	if err := os.MkdirAll(s.marketDir, 0o755); err != nil {
		return nil, fmt.Errorf("create market directory: %w", err)
	}

	s.snaps = nil

	if _, err := os.Stat(s.dataFile); err == nil {
		if resume {
			loaded, loadErr := s.readDataFile()
			if loadErr != nil {
				s.logger.Error().Err(loadErr).Msg("failed to load archived json data; starting empty")
			} else {
				s.snaps = loaded
			}
		} else {
			s.logger.Warn().Msg("tracker file already present; moving aside and starting fresh")
			if moveErr := os.Rename(s.dataFile, filepath.Join(s.marketDir, oldFileName)); moveErr != nil {
				return nil, fmt.Errorf("move aside prior archive: %w", moveErr)
			}
		}
	}

	if len(s.snaps) == 0 {
		if err := s.persist(); err != nil {
			return nil, err
		}
	}

	s.opened = true
	return s.Snapshots(), nil
}

// Load implements Store.
func (s *FileStore) Load(ctx context.Context) ([]fetcher.Snapshot, error) {
	if _, err := os.Stat(s.dataFile); os.IsNotExist(err) {
		return nil, nil
	}
	return s.readDataFile()
}

// Append implements Store. The full sequence is rewritten after every accept;
// durability over throughput.
func (s *FileStore) Append(ctx context.Context, snap fetcher.Snapshot) error {
	if !s.opened {
		return ErrNotOpen
	}
	s.snaps = append(s.snaps, snap)
	return s.persist()
}

// Snapshots implements Store.
func (s *FileStore) Snapshots() []fetcher.Snapshot {
	out := make([]fetcher.Snapshot, len(s.snaps))
	copy(out, s.snaps)
	return out
}

// WriteResult implements Store, dumping the delta under results/.
func (s *FileStore) WriteResult(ctx context.Context, delta summary.Delta) error {
	resultsDir := filepath.Join(s.marketDir, resultsDirName)
	if err := os.MkdirAll(resultsDir, 0o755); err != nil {
		return fmt.Errorf("create results directory: %w", err)
	}

	name := fmt.Sprintf("%s-%s_%s.json", s.trade, s.quote, time.Now().Format(resultTimestamp))

	payload, err := json.MarshalIndent(delta, "", "    ")
	if err != nil {
		return fmt.Errorf("marshal results: %w", err)
	}

	if err := os.WriteFile(filepath.Join(resultsDir, name), payload, 0o644); err != nil {
		return fmt.Errorf("write results file: %w", err)
	}
	return nil
}

// Rotate implements Store, moving the live file into archive/ under a
// timestamped name.
func (s *FileStore) Rotate(ctx context.Context) error {
	if _, err := os.Stat(s.dataFile); os.IsNotExist(err) {
		return nil
	}

	archiveDir := filepath.Join(s.marketDir, archiveDirName)
	if err := os.MkdirAll(archiveDir, 0o755); err != nil {
		return fmt.Errorf("create archive directory: %w", err)
	}

	name := fmt.Sprintf("historical_data_%s.json", time.Now().Format(rotateTimestamp))
	if err := os.Rename(s.dataFile, filepath.Join(archiveDir, name)); err != nil {
		return fmt.Errorf("rotate archive file: %w", err)
	}

	s.opened = false
	return nil
}

func (s *FileStore) readDataFile() ([]fetcher.Snapshot, error) {
	payload, err := os.ReadFile(s.dataFile)
	if err != nil {
		return nil, fmt.Errorf("read archive file: %w", err)
	}

	var snaps []fetcher.Snapshot
	if err := json.Unmarshal(payload, &snaps); err != nil {
		return nil, fmt.Errorf("decode archive file: %w", err)
	}
	return snaps, nil
}

func (s *FileStore) persist() error {
	seq := s.snaps
	if seq == nil {
		seq = []fetcher.Snapshot{}
	}

	payload, err := json.MarshalIndent(seq, "", "    ")
	if err != nil {
		return fmt.Errorf("marshal archive: %w", err)
	}

	if err := os.WriteFile(s.dataFile, payload, 0o644); err != nil {
		return fmt.Errorf("write archive file: %w", err)
	}
	return nil
}

var _ Store = (*FileStore)(nil)

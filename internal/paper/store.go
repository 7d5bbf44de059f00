package paper

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

const (
	tradesFile    = "trades.jsonl"
	portfolioFile = "portfolio.json"
)

// Store persists the trade ledger and portfolio snapshots under one directory.
// Trades are appended as JSON lines and synced before the call returns; the
// snapshot is replaced atomically via rename. Both files are human-inspectable.
type Store struct {
	mu    sync.Mutex
	dir   string
	file  *os.File
	enc   *json.Encoder
}

// NewStore creates the data directory and opens the ledger for appending.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	file, err := os.OpenFile(filepath.Join(dir, tradesFile), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open trade ledger: %w", err)
	}
	return &Store{dir: dir, file: file, enc: json.NewEncoder(file)}, nil
}

// AppendTrade writes one ledger line and forces it to disk.
func (s *Store) AppendTrade(tr Trade) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enc.Encode(tr); err != nil {
		return fmt.Errorf("append trade: %w", err)
	}
	if err := s.file.Sync(); err != nil {
		return fmt.Errorf("sync trade ledger: %w", err)
	}
	return nil
}

// SaveState replaces the portfolio snapshot atomically.
func (s *Store) SaveState(st PortfolioState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal portfolio: %w", err)
	}
	path := filepath.Join(s.dir, portfolioFile)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write portfolio snapshot: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace portfolio snapshot: %w", err)
	}
	return nil
}

// LoadState reads the last persisted snapshot; ok is false when none exists.
func (s *Store) LoadState() (st PortfolioState, ok bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := os.ReadFile(filepath.Join(s.dir, portfolioFile))
	if os.IsNotExist(err) {
		return PortfolioState{}, false, nil
	}
	if err != nil {
		return PortfolioState{}, false, fmt.Errorf("read portfolio snapshot: %w", err)
	}
	if err := json.Unmarshal(data, &st); err != nil {
		return PortfolioState{}, false, fmt.Errorf("decode portfolio snapshot: %w", err)
	}
	return st, true, nil
}

// Trades reads the full ledger back, oldest first.
func (s *Store) Trades() ([]Trade, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	file, err := os.Open(filepath.Join(s.dir, tradesFile))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open trade ledger: %w", err)
	}
	defer file.Close()

	var out []Trade
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var tr Trade
		if err := json.Unmarshal(scanner.Bytes(), &tr); err != nil {
			return nil, fmt.Errorf("decode ledger line: %w", err)
		}
		out = append(out, tr)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan trade ledger: %w", err)
	}
	return out, nil
}

// Close releases the ledger file handle.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}

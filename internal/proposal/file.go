package proposal

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"safeTasks/internal/model"
)

// DefaultCacheDir is where proposals are kept when no directory is configured.
const DefaultCacheDir = "cli_cache"

// FileStore keeps one JSON file per proposal and one per signature set.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

func NewFileStore(dir string) *FileStore {
	if dir == "" {
		dir = DefaultCacheDir
	}
	return &FileStore{dir: dir}
}

func (s *FileStore) SaveProposal(_ context.Context, proposal model.Proposal) error {
	return s.writeJSON(s.proposalPath(proposal.SafeTxHash), proposal)
}

func (s *FileStore) LoadProposal(_ context.Context, safeTxHash common.Hash) (model.Proposal, error) {
	var proposal model.Proposal
	found, err := s.readJSON(s.proposalPath(safeTxHash), &proposal)
	if err != nil {
		return model.Proposal{}, err
	}
	if !found {
		return model.Proposal{}, fmt.Errorf("%w: %s", ErrNotFound, safeTxHash.Hex())
	}
	return proposal, nil
}

func (s *FileStore) AddSignature(_ context.Context, safeTxHash common.Hash, signer common.Address, signature string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	signatures := model.Signatures{}
	if _, err := s.readJSON(s.signaturesPath(safeTxHash), &signatures); err != nil {
		return err
	}
	signatures[signer.Hex()] = signature
	return s.writeJSON(s.signaturesPath(safeTxHash), signatures)
}

func (s *FileStore) LoadSignatures(_ context.Context, safeTxHash common.Hash) (model.Signatures, error) {
	signatures := model.Signatures{}
	if _, err := s.readJSON(s.signaturesPath(safeTxHash), &signatures); err != nil {
		return nil, err
	}
	return signatures, nil
}

func (s *FileStore) proposalPath(safeTxHash common.Hash) string {
	return filepath.Join(s.dir, strings.ToLower(safeTxHash.Hex())+".proposal.json")
}

func (s *FileStore) signaturesPath(safeTxHash common.Hash) string {
	return filepath.Join(s.dir, strings.ToLower(safeTxHash.Hex())+".signatures.json")
}

func (s *FileStore) readJSON(path string, out interface{}) (bool, error) {
	stat, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("stat %s: %w", path, err)
	}
	if stat.IsDir() {
		return false, fmt.Errorf("%s is a directory", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("parse %s: %w", path, err)
	}
	return true, nil
}

func (s *FileStore) writeJSON(path string, value interface{}) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(tmpPath), err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename %s: %w", filepath.Base(path), err)
	}
	return nil
}

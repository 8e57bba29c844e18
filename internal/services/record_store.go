package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/wailsapp/wails/v2/pkg/logger"

	"megbot/internal/repositories"
)

// recordStore reads and writes one JSON blob. Failures are logged and never
// reach the caller: reads fall back to "no data" and writes are dropped. A
// record that fails to decode is removed.
type recordStore struct {
	repo repositories.RecordRepository
	log  logger.Logger
	key  string
}

func (s recordStore) read(ctx context.Context, dst any) bool {
	raw, ok, err := s.repo.Load(ctx, s.key)
	if err != nil {
		s.log.Error(fmt.Sprintf("load %s: %v", s.key, err))
		return false
	}
	if !ok {
		return false
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		s.log.Warning(fmt.Sprintf("discarding malformed %s: %v", s.key, err))
		if err := s.repo.Delete(ctx, s.key); err != nil {
			s.log.Error(fmt.Sprintf("delete %s: %v", s.key, err))
		}
		return false
	}
	return true
}

func (s recordStore) write(ctx context.Context, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		s.log.Error(fmt.Sprintf("encode %s: %v", s.key, err))
		return
	}
	if err := s.repo.Save(ctx, s.key, string(data)); err != nil {
		s.log.Error(fmt.Sprintf("save %s: %v", s.key, err))
	}
}

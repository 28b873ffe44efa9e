package snapshot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/to404hanga/online_judge_duel/pkg/logger"
	"github.com/to404hanga/online_judge_duel/service"
	"github.com/to404hanga/online_judge_duel/service/exporter/factory"
)

// LeaderboardSnapshot 定期以数据库为准重建积分榜缓存, 并落盘一份导出文件
type LeaderboardSnapshot struct {
	leaderboardSvc service.LeaderboardService
	log            logger.Logger
	dir            string
	format         factory.ExporterType
}

func NewLeaderboardSnapshot(leaderboardSvc service.LeaderboardService, log logger.Logger, dir string, format factory.ExporterType) *LeaderboardSnapshot {
	if format == "" {
		format = factory.XLSXLeaderboardExporter
	}
	return &LeaderboardSnapshot{
		leaderboardSvc: leaderboardSvc,
		log:            log,
		dir:            dir,
		format:         format,
	}
}

// RunSnapshot dir 为空时只重建缓存
func (s *LeaderboardSnapshot) RunSnapshot(ctx context.Context) error {
	if err := s.leaderboardSvc.Rebuild(ctx); err != nil {
		return fmt.Errorf("RunSnapshot failed at rebuild: %w", err)
	}
	if s.dir == "" {
		return nil
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("RunSnapshot failed at create dir: %w", err)
	}
	name := fmt.Sprintf("leaderboard_%s.%s", time.Now().Format("20060102150405"), s.format)
	path := filepath.Join(s.dir, name)
	tmp := path + ".tmp"

	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("RunSnapshot failed at create file: %w", err)
	}
	if err = s.leaderboardSvc.Export(ctx, s.format, f); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("RunSnapshot failed at export: %w", err)
	}
	if err = f.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("RunSnapshot failed at close file: %w", err)
	}
	if err = os.Rename(tmp, path); err != nil {
		return fmt.Errorf("RunSnapshot failed at rename: %w", err)
	}

	s.log.InfoContext(ctx, "Leaderboard snapshot written", logger.String("path", path))
	return nil
}

package csv

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/to404hanga/online_judge_duel/entity"
	"github.com/to404hanga/online_judge_duel/pkg/logger"
	"github.com/to404hanga/online_judge_duel/service/exporter"
	"github.com/to404hanga/online_judge_duel/service/exporter/common"
	"gorm.io/gorm"
)

type StreamableCSVLeaderboardExporter struct {
	log       logger.Logger
	db        *gorm.DB
	batchSize int
}

var _ exporter.LeaderboardExporter = (*StreamableCSVLeaderboardExporter)(nil)

func NewStreamableCSVLeaderboardExporter(db *gorm.DB, log logger.Logger) *StreamableCSVLeaderboardExporter {
	return &StreamableCSVLeaderboardExporter{
		db:        db,
		log:       log,
		batchSize: 1000,
	}
}

func (e *StreamableCSVLeaderboardExporter) Export(ctx context.Context, writer io.Writer) error {
	ectx, cancel := context.WithCancel(ctx)
	defer cancel()

	userCh, errCh := common.StreamLeaderboard(ectx, e.db, e.batchSize)

	csvWriter := csv.NewWriter(writer)
	defer csvWriter.Flush()

	if err := e.writeHeader(csvWriter); err != nil {
		return fmt.Errorf("write header failed: %w", err)
	}

	rank := 1
	var goroutineErr error
	for {
		select {
		case users, ok := <-userCh:
			if !ok {
				// userCh 关闭前 errCh 中可能仍有错误
				if err, ok := <-errCh; ok && err != nil {
					goroutineErr = err
				}
				if goroutineErr != nil {
					return fmt.Errorf("sub goroutine fetch leaderboard failed: %w", goroutineErr)
				}
				csvWriter.Flush()
				return csvWriter.Error()
			}
			if err := e.processUsers(csvWriter, users, &rank); err != nil {
				return fmt.Errorf("process users failed: %w", err)
			}
		case err, ok := <-errCh:
			if ok && err != nil {
				goroutineErr = err
			}
			if !ok {
				errCh = nil
			}
		}
	}
}

// processUsers 将一批用户转换为 CSV 记录
func (e *StreamableCSVLeaderboardExporter) processUsers(csvWriter *csv.Writer, users []entity.User, rank *int) error {
	records := make([][]string, 0, len(users))
	for _, u := range users {
		records = append(records, []string{
			strconv.Itoa(*rank),
			u.ID,
			u.Nickname,
			strconv.Itoa(u.Rating),
		})
		*rank++
	}
	return csvWriter.WriteAll(records)
}

func (e *StreamableCSVLeaderboardExporter) writeHeader(csvWriter *csv.Writer) error {
	headers := []string{
		"排名",
		"用户ID",
		"昵称",
		"积分",
	}
	return csvWriter.Write(headers)
}

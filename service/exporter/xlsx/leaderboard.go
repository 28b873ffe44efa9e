package xlsx

import (
	"context"
	"fmt"
	"io"

	"github.com/to404hanga/online_judge_duel/entity"
	"github.com/to404hanga/online_judge_duel/pkg/logger"
	"github.com/to404hanga/online_judge_duel/service/exporter"
	"github.com/to404hanga/online_judge_duel/service/exporter/common"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

const sheetName = "积分榜"

type StreamableXLSXLeaderboardExporter struct {
	log       logger.Logger
	db        *gorm.DB
	batchSize int
}

var _ exporter.LeaderboardExporter = (*StreamableXLSXLeaderboardExporter)(nil)

func NewStreamableXLSXLeaderboardExporter(db *gorm.DB, log logger.Logger) *StreamableXLSXLeaderboardExporter {
	return &StreamableXLSXLeaderboardExporter{
		db:        db,
		log:       log,
		batchSize: 1000,
	}
}

func (e *StreamableXLSXLeaderboardExporter) Export(ctx context.Context, writer io.Writer) error {
	ectx, cancel := context.WithCancel(ctx)
	defer cancel()

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			e.log.ErrorContext(ctx, "close excel file failed", logger.Error(err))
		}
	}()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return fmt.Errorf("create sheet failed: %w", err)
	}
	f.SetActiveSheet(index)
	// 默认的 Sheet1 无用
	if err = f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("delete default sheet failed: %w", err)
	}

	if err = e.writeHeader(f); err != nil {
		return fmt.Errorf("write header failed: %w", err)
	}

	userCh, errCh := common.StreamLeaderboard(ectx, e.db, e.batchSize)

	currentRow := 2
	var goroutineErr error
	for {
		select {
		case users, ok := <-userCh:
			if !ok {
				if err, ok := <-errCh; ok && err != nil {
					goroutineErr = err
				}
				if goroutineErr != nil {
					return fmt.Errorf("sub goroutine fetch leaderboard failed: %w", goroutineErr)
				}
				if err = f.Write(writer); err != nil {
					return fmt.Errorf("write excel file failed: %w", err)
				}
				return nil
			}
			if err = e.processUsers(f, users, &currentRow); err != nil {
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

// processUsers 逐行写入, 排名由行号推出
func (e *StreamableXLSXLeaderboardExporter) processUsers(f *excelize.File, users []entity.User, currentRow *int) error {
	for _, u := range users {
		rowData := []any{
			*currentRow - 1,
			u.ID,
			u.Nickname,
			u.Rating,
		}
		cell, err := excelize.CoordinatesToCellName(1, *currentRow)
		if err != nil {
			return fmt.Errorf("get cell name failed: %w", err)
		}
		if err = f.SetSheetRow(sheetName, cell, &rowData); err != nil {
			return fmt.Errorf("set sheet row failed: %w", err)
		}
		*currentRow++
	}
	return nil
}

func (e *StreamableXLSXLeaderboardExporter) writeHeader(f *excelize.File) error {
	headers := []string{
		"排名",
		"用户ID",
		"昵称",
		"积分",
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Bold: true,
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E0E0E0"},
			Pattern: 1,
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		return fmt.Errorf("create header style failed: %w", err)
	}

	for col, header := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return fmt.Errorf("get cell name failed: %w", err)
		}
		if err = f.SetCellValue(sheetName, cell, header); err != nil {
			return fmt.Errorf("set header value failed: %w", err)
		}
		if err = f.SetCellStyle(sheetName, cell, cell, headerStyle); err != nil {
			return fmt.Errorf("set header style failed: %w", err)
		}
	}

	columnWidths := map[string]float64{
		"A": 10,
		"B": 40,
		"C": 20,
		"D": 10,
	}
	for col, width := range columnWidths {
		if err = f.SetColWidth(sheetName, col, col, width); err != nil {
			return fmt.Errorf("set column width failed: %w", err)
		}
	}
	return nil
}

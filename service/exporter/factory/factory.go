package factory

import (
	"sync"

	"github.com/to404hanga/online_judge_duel/pkg/logger"
	"github.com/to404hanga/online_judge_duel/service/exporter"
	"github.com/to404hanga/online_judge_duel/service/exporter/csv"
	"github.com/to404hanga/online_judge_duel/service/exporter/xlsx"
	"gorm.io/gorm"
)

type ExporterType string

const (
	CSVLeaderboardExporter  ExporterType = "csv"
	XLSXLeaderboardExporter ExporterType = "xlsx"
)

var ExporterContentTypeMap = map[ExporterType]string{
	CSVLeaderboardExporter:  "text/csv; charset=utf-8",
	XLSXLeaderboardExporter: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

type ExporterFactory struct {
	factory map[ExporterType]exporter.LeaderboardExporter
	db      *gorm.DB
	log     logger.Logger
	mux     sync.RWMutex
}

func NewExporterFactory(db *gorm.DB, log logger.Logger) *ExporterFactory {
	return &ExporterFactory{
		factory: make(map[ExporterType]exporter.LeaderboardExporter), // 延迟创建
		db:      db,
		log:     log,
	}
}

// GetExporter 不支持的类型返回 nil
func (f *ExporterFactory) GetExporter(exporterType ExporterType) exporter.LeaderboardExporter {
	f.mux.RLock()
	if exp, exists := f.factory[exporterType]; exists {
		f.mux.RUnlock()
		return exp
	}
	f.mux.RUnlock()

	f.mux.Lock()
	defer f.mux.Unlock()

	// 双重检查，避免重复创建
	if exp, exists := f.factory[exporterType]; exists {
		return exp
	}

	switch exporterType {
	case CSVLeaderboardExporter:
		f.factory[exporterType] = csv.NewStreamableCSVLeaderboardExporter(f.db, f.log)
	case XLSXLeaderboardExporter:
		f.factory[exporterType] = xlsx.NewStreamableXLSXLeaderboardExporter(f.db, f.log)
	default:
		return nil
	}
	return f.factory[exporterType]
}

package exporter

import (
	"context"
	"io"
)

// LeaderboardExporter 将积分榜全量写出到 writer
type LeaderboardExporter interface {
	Export(ctx context.Context, writer io.Writer) error
}

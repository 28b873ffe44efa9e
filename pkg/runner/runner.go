package runner

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var ErrRunnerUnavailable = errors.New("code runner unavailable")

// ExecutionError 代码运行失败(编译错误、运行时异常等), Output 为执行服务返回的错误信息
type ExecutionError struct {
	Output string
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("execution failed: %s", e.Output)
}

type Result struct {
	Output   string
	Duration time.Duration // 执行服务上报的耗时, 未上报时为 0
}

type CodeRunner interface {
	// Run 运行代码, 成功时返回标准输出
	Run(ctx context.Context, code, input string) (*Result, error)
}

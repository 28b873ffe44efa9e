package runner

import (
	"bytes"
	"context"
	stdjson "encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	json "github.com/bytedance/sonic"
)

const (
	runPath        = "/run"
	resultSuccess  = "success"
	defaultTimeout = 10 * time.Second
)

type runRequest struct {
	Code  string `json:"code"`
	Input []any  `json:"input"`
}

type runResponse struct {
	Type        string             `json:"type"`
	Performance *float64           `json:"performance"`
	Output      stdjson.RawMessage `json:"output"`
}

// HTTPRunner 调用外部代码执行服务
type HTTPRunner struct {
	baseURL string
	client  *http.Client
}

var _ CodeRunner = (*HTTPRunner)(nil)

func NewHTTPRunner(baseURL string, timeout time.Duration) *HTTPRunner {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &HTTPRunner{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

func (r *HTTPRunner) Run(ctx context.Context, code, input string) (*Result, error) {
	body, err := json.Marshal(runRequest{Code: code, Input: ParseInput(input)})
	if err != nil {
		return nil, fmt.Errorf("Run failed at marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+runPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("Run failed at build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("Run failed at do request: %w: %w", ErrRunnerUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("Run failed at read response: %w: %w", ErrRunnerUnavailable, err)
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, fmt.Errorf("Run failed with status %d: %w", resp.StatusCode, ErrRunnerUnavailable)
	}

	var rr runResponse
	if err = json.Unmarshal(raw, &rr); err != nil {
		return nil, fmt.Errorf("Run failed at unmarshal response: %w", err)
	}

	output := normalizeOutput(rr.Output)
	if rr.Type != resultSuccess {
		return nil, &ExecutionError{Output: output}
	}

	res := &Result{Output: output}
	if rr.Performance != nil && *rr.Performance >= 0 {
		res.Duration = time.Duration(math.Round(*rr.Performance * float64(time.Millisecond)))
	}
	return res, nil
}

// ParseInput 按行拆分输入, 能解析为数字的行以数字形式传给执行服务
func ParseInput(input string) []any {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return []any{}
	}
	lines := strings.Split(trimmed, "\n")
	res := make([]any, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			res = append(res, float64(0))
			continue
		}
		if f, err := strconv.ParseFloat(strings.TrimSpace(line), 64); err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) {
			res = append(res, f)
			continue
		}
		res = append(res, line)
	}
	return res
}

// normalizeOutput 字符串输出原样返回, 其他 JSON 值返回其文本形式
func normalizeOutput(raw []byte) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(bytes.TrimSpace(raw))
}

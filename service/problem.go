package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"
	"time"

	json "github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
	"github.com/to404hanga/online_judge_duel/entity"
	"github.com/to404hanga/online_judge_duel/model"
	"github.com/to404hanga/online_judge_duel/pkg/logger"
	"gorm.io/gorm"
)

type ProblemService interface {
	// CreateProblem 创建题目及测试用例
	CreateProblem(ctx context.Context, param *model.CreateProblemParam) (*entity.Problem, error)
	// GetProblemByID 获取题目, 不含测试用例
	GetProblemByID(ctx context.Context, problemID string) (*entity.Problem, error)
	// GetTestCases 获取完整测试用例, 按 Order 升序
	GetTestCases(ctx context.Context, problemID string) ([]entity.TestCase, error)
	// GetExamples 获取公开样例
	GetExamples(ctx context.Context, problemID string) ([]entity.TestCase, error)
	// RandomProblemID 随机选取一道题目
	RandomProblemID(ctx context.Context) (string, error)
}

const (
	problemKey         = "problem:%s"
	problemTestCaseKey = "problem:%s:testcases"
	problemCacheTTL    = 8 * time.Hour
)

type ProblemServiceImpl struct {
	db  *gorm.DB
	rdb redis.Cmdable
	log logger.Logger
}

var _ ProblemService = (*ProblemServiceImpl)(nil)

func NewProblemService(db *gorm.DB, rdb redis.Cmdable, log logger.Logger) ProblemService {
	return &ProblemServiceImpl{
		db:  db,
		rdb: rdb,
		log: log,
	}
}

// CreateProblem 创建题目
func (s *ProblemServiceImpl) CreateProblem(ctx context.Context, param *model.CreateProblemParam) (*entity.Problem, error) {
	if param.ExampleCount > len(param.TestCases) {
		return nil, fmt.Errorf("CreateProblem failed: exampleCount %d exceeds %d test cases: %w",
			param.ExampleCount, len(param.TestCases), ErrInvalidState)
	}

	problem := &entity.Problem{
		Prompt:         param.Prompt,
		InputFormat:    param.InputFormat,
		OutputFormat:   param.OutputFormat,
		ExampleCount:   param.ExampleCount,
		ReviewVideoURL: param.ReviewVideoURL,
		ReviewText:     param.ReviewText,
	}

	tx := s.db.WithContext(ctx).Begin()
	if err := tx.Create(problem).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("CreateProblem transaction failed at insert into problems: %w", err)
	}

	testCases := make([]entity.TestCase, 0, len(param.TestCases))
	for idx, tc := range param.TestCases {
		order := tc.Order
		if order == 0 {
			order = idx + 1
		}
		testCases = append(testCases, entity.TestCase{
			ProblemID: problem.ID,
			Order:     order,
			Input:     tc.Input,
			Output:    tc.Output,
		})
	}
	if err := tx.Create(&testCases).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("CreateProblem transaction failed at insert into test_cases: %w", err)
	}

	if err := tx.Commit().Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("CreateProblem transaction failed at commit: %w", err)
	}
	problem.TestCases = testCases
	return problem, nil
}

// GetProblemByID 获取题目
func (s *ProblemServiceImpl) GetProblemByID(ctx context.Context, problemID string) (*entity.Problem, error) {
	key := fmt.Sprintf(problemKey, problemID)
	if raw, err := s.rdb.Get(ctx, key).Bytes(); err == nil {
		var problem entity.Problem
		if err = json.Unmarshal(raw, &problem); err == nil {
			return &problem, nil
		}
		s.log.WarnContext(ctx, "GetProblemByID failed at unmarshal cache", logger.Error(err))
	} else if !errors.Is(err, redis.Nil) {
		s.log.WarnContext(ctx, "GetProblemByID failed at get cache", logger.Error(err))
	}

	var problem entity.Problem
	err := s.db.WithContext(ctx).Where("id = ?", problemID).First(&problem).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("GetProblemByID failed: problem %s: %w", problemID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("GetProblemByID failed: %w", err)
	}

	if raw, err := json.Marshal(problem); err == nil {
		if err = s.rdb.Set(ctx, key, raw, problemCacheTTL).Err(); err != nil {
			s.log.WarnContext(ctx, "GetProblemByID failed at set cache", logger.Error(err))
		}
	}
	return &problem, nil
}

// GetTestCases 获取完整测试用例
func (s *ProblemServiceImpl) GetTestCases(ctx context.Context, problemID string) ([]entity.TestCase, error) {
	key := fmt.Sprintf(problemTestCaseKey, problemID)
	if raw, err := s.rdb.Get(ctx, key).Bytes(); err == nil {
		var testCases []entity.TestCase
		if err = json.Unmarshal(raw, &testCases); err == nil {
			return testCases, nil
		}
		s.log.WarnContext(ctx, "GetTestCases failed at unmarshal cache", logger.Error(err))
	}

	var testCases []entity.TestCase
	err := s.db.WithContext(ctx).
		Where("problem_id = ?", problemID).
		Order("order_no ASC").
		Find(&testCases).Error
	if err != nil {
		return nil, fmt.Errorf("GetTestCases failed: %w", err)
	}
	if len(testCases) == 0 {
		return nil, fmt.Errorf("GetTestCases failed: problem %s has no test cases: %w", problemID, ErrNotFound)
	}

	if raw, err := json.Marshal(testCases); err == nil {
		if err = s.rdb.Set(ctx, key, raw, problemCacheTTL).Err(); err != nil {
			s.log.WarnContext(ctx, "GetTestCases failed at set cache", logger.Error(err))
		}
	}
	return testCases, nil
}

// GetExamples 获取公开样例
func (s *ProblemServiceImpl) GetExamples(ctx context.Context, problemID string) ([]entity.TestCase, error) {
	problem, err := s.GetProblemByID(ctx, problemID)
	if err != nil {
		return nil, fmt.Errorf("GetExamples failed: %w", err)
	}
	testCases, err := s.GetTestCases(ctx, problemID)
	if err != nil {
		return nil, fmt.Errorf("GetExamples failed: %w", err)
	}
	sort.SliceStable(testCases, func(i, j int) bool { return testCases[i].Order < testCases[j].Order })
	n := min(problem.ExampleCount, len(testCases))
	return testCases[:n], nil
}

// RandomProblemID 随机选取一道题目
func (s *ProblemServiceImpl) RandomProblemID(ctx context.Context) (string, error) {
	var cnt int64
	if err := s.db.WithContext(ctx).Model(&entity.Problem{}).Count(&cnt).Error; err != nil {
		return "", fmt.Errorf("RandomProblemID failed at count: %w", err)
	}
	if cnt == 0 {
		return "", fmt.Errorf("RandomProblemID failed: no problem available: %w", ErrNotFound)
	}

	var id string
	err := s.db.WithContext(ctx).Model(&entity.Problem{}).
		Select("id").
		Order("id").
		Offset(rand.IntN(int(cnt))).
		Limit(1).
		Scan(&id).Error
	if err != nil {
		return "", fmt.Errorf("RandomProblemID failed at select: %w", err)
	}
	if id == "" {
		return "", fmt.Errorf("RandomProblemID failed: problem vanished: %w", ErrNotFound)
	}
	return id, nil
}

package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/to404hanga/online_judge_duel/config"
	"github.com/to404hanga/online_judge_duel/entity"
	"github.com/to404hanga/online_judge_duel/pkg/logger"
	"github.com/to404hanga/online_judge_duel/pkg/runner"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TestOutcome 单个测试用例的运行结果
type TestOutcome struct {
	TestCase entity.TestCase
	Result   entity.SubmissionTestResult
}

type SubmissionOutcome struct {
	Submission  *entity.Submission
	Tests       []TestOutcome
	Evaluation  *entity.BattleEvaluation
	ResultID    string
	FinalizeDue bool // 本次提交后两名选手均已提交
}

// RunOutcome 试运行结果, Type 取值同 entity.OutputType
type RunOutcome struct {
	Type   entity.OutputType
	Output string
}

type SubmissionService interface {
	// Submit 提交代码, 每名选手每场对战仅允许一次
	Submit(ctx context.Context, battle *entity.Battle, userID, code string) (*SubmissionOutcome, error)
	// RunCode 以自定义输入试运行代码, 输入与公开样例一致时给出对错
	RunCode(ctx context.Context, problemID, code, input string) (*RunOutcome, error)
}

type SubmissionServiceImpl struct {
	db          *gorm.DB
	runner      runner.CodeRunner
	problemSvc  ProblemService
	log         logger.Logger
	grace       time.Duration
	concurrency int
	now         func() time.Time
}

var _ SubmissionService = (*SubmissionServiceImpl)(nil)

func NewSubmissionService(db *gorm.DB, codeRunner runner.CodeRunner, problemSvc ProblemService, log logger.Logger, cfg config.BattleConfig, concurrency int, opts ...Option) SubmissionService {
	o := applyOptions(opts)
	if concurrency <= 0 {
		concurrency = 4
	}
	grace := cfg.GraceSeconds
	if grace < 0 {
		grace = 0
	}
	return &SubmissionServiceImpl{
		db:          db,
		runner:      codeRunner,
		problemSvc:  problemSvc,
		log:         log,
		grace:       time.Duration(grace) * time.Second,
		concurrency: concurrency,
		now:         o.now,
	}
}

// Submit 提交代码
func (s *SubmissionServiceImpl) Submit(ctx context.Context, battle *entity.Battle, userID, code string) (*SubmissionOutcome, error) {
	ctx = logger.ContextWithFields(ctx, logger.String("battle_id", battle.ID), logger.String("user_id", userID))

	if battle.Finished || battle.Status != entity.BattleStatusRunning {
		return nil, fmt.Errorf("Submit failed: battle %s is %s: %w", battle.ID, battle.Status, ErrInvalidState)
	}
	if !isMember(battle, userID) {
		return nil, fmt.Errorf("Submit failed: user %s not in battle %s: %w", userID, battle.ID, ErrNotFound)
	}
	submittedAt := s.now()
	if submittedAt.After(battle.EndTime.Add(s.grace)) {
		return nil, fmt.Errorf("Submit failed: battle %s deadline passed: %w", battle.ID, ErrInvalidState)
	}

	submission := &entity.Submission{
		UserID:      userID,
		BattleID:    battle.ID,
		Code:        code,
		SubmittedAt: submittedAt,
	}
	if err := s.db.WithContext(ctx).Create(submission).Error; err != nil {
		// 唯一索引冲突在不同驱动下错误不同, 以是否已存在记录为准
		var cnt int64
		cerr := s.db.WithContext(ctx).Model(&entity.Submission{}).
			Where("battle_id = ? AND user_id = ?", battle.ID, userID).
			Count(&cnt).Error
		if cerr == nil && cnt > 0 {
			return nil, fmt.Errorf("Submit failed: %w", ErrDuplicateSubmission)
		}
		return nil, fmt.Errorf("Submit failed at insert into submissions: %w", err)
	}

	outcome, err := s.evaluate(ctx, battle, submission)
	if err != nil {
		// 补偿: 删除提交记录, 允许选手重新提交
		if derr := s.db.WithContext(context.WithoutCancel(ctx)).Delete(submission).Error; derr != nil {
			s.log.ErrorContext(ctx, "Submit failed at compensate submission", logger.Error(derr))
		}
		return nil, err
	}
	return outcome, nil
}

func (s *SubmissionServiceImpl) evaluate(ctx context.Context, battle *entity.Battle, submission *entity.Submission) (*SubmissionOutcome, error) {
	testCases, err := s.problemSvc.GetTestCases(ctx, battle.ProblemID)
	if err != nil {
		return nil, fmt.Errorf("Submit failed at get test cases: %w", err)
	}

	tests := s.runTests(ctx, submission, testCases)
	evaluation := buildEvaluation(submission, battle.StartTime, tests)

	tx := s.db.WithContext(ctx).Begin()
	if len(tests) > 0 {
		results := make([]entity.SubmissionTestResult, 0, len(tests))
		for _, t := range tests {
			results = append(results, t.Result)
		}
		if err = tx.Create(&results).Error; err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("Submit transaction failed at insert into submission_test_results: %w", err)
		}
		for i := range tests {
			tests[i].Result = results[i]
		}
	}

	// 截止处理可能已取消对战
	var live int64
	err = tx.Model(&entity.Battle{}).
		Where("id = ? AND finished = ?", battle.ID, false).
		Count(&live).Error
	if err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("Submit transaction failed at check battle: %w", err)
	}
	if live == 0 {
		tx.Rollback()
		return nil, fmt.Errorf("Submit failed: battle %s no longer running: %w", battle.ID, ErrInvalidState)
	}

	shell := &entity.BattleResult{BattleID: battle.ID}
	err = tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "battle_id"}},
		DoNothing: true,
	}).Create(shell).Error
	if err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("Submit transaction failed at upsert battle_results: %w", err)
	}

	// 自增持有行锁, 两名提交者在此串行, 只有一方读到 2
	err = tx.Model(&entity.BattleResult{}).
		Where("battle_id = ?", battle.ID).
		Update("submission_count", gorm.Expr("submission_count + ?", 1)).Error
	if err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("Submit transaction failed at increase submission_count: %w", err)
	}

	var result entity.BattleResult
	if err = tx.Where("battle_id = ?", battle.ID).First(&result).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("Submit transaction failed at select battle_results: %w", err)
	}
	if result.Finalized {
		tx.Rollback()
		return nil, fmt.Errorf("Submit failed: battle %s already finalized: %w", battle.ID, ErrInvalidState)
	}

	evaluation.ResultID = result.ID
	if err = tx.Create(evaluation).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("Submit transaction failed at insert into battle_evaluations: %w", err)
	}

	if err = tx.Commit().Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("Submit transaction failed at commit: %w", err)
	}

	s.log.InfoContext(ctx, "submission evaluated",
		logger.Int("correctness", evaluation.Correctness),
		logger.Int64("performance", evaluation.Performance),
		logger.Int("submission_count", result.SubmissionCount))

	return &SubmissionOutcome{
		Submission:  submission,
		Tests:       tests,
		Evaluation:  evaluation,
		ResultID:    result.ID,
		FinalizeDue: result.SubmissionCount == 2,
	}, nil
}

// runTests 并发运行全部测试用例, 运行失败记为 error 而不中断
func (s *SubmissionServiceImpl) runTests(ctx context.Context, submission *entity.Submission, testCases []entity.TestCase) []TestOutcome {
	tests := make([]TestOutcome, len(testCases))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, tc := range testCases {
		g.Go(func() error {
			start := time.Now()
			res, err := s.runner.Run(gctx, submission.Code, tc.Input)
			elapsed := time.Since(start)

			tr := entity.SubmissionTestResult{
				SubmissionID: submission.ID,
				TestCaseID:   tc.ID,
				Order:        tc.Order,
			}
			switch {
			case err != nil:
				tr.OutputType = entity.OutputTypeError
				tr.Output = runnerErrorOutput(err)
			default:
				tr.Output = res.Output
				if res.Output == tc.Output {
					tr.OutputType = entity.OutputTypeCorrect
				} else {
					tr.OutputType = entity.OutputTypeIncorrect
				}
				if res.Duration > 0 {
					elapsed = res.Duration
				}
				tr.Performance = elapsed.Milliseconds()
			}
			tests[i] = TestOutcome{TestCase: tc, Result: tr}
			return nil
		})
	}
	_ = g.Wait()
	return tests
}

// buildEvaluation 汇总测试结果; 没有通过任何用例时性能与用时均记为 0
func buildEvaluation(submission *entity.Submission, startTime time.Time, tests []TestOutcome) *entity.BattleEvaluation {
	evaluation := &entity.BattleEvaluation{UserID: submission.UserID}
	var total int64
	for _, t := range tests {
		if t.Result.OutputType == entity.OutputTypeCorrect {
			evaluation.Correctness++
			total += t.Result.Performance
		}
	}
	if evaluation.Correctness == 0 {
		return evaluation
	}
	evaluation.Performance = int64(math.Round(float64(total) / float64(evaluation.Correctness)))
	evaluation.Time = submission.SubmittedAt.Sub(startTime).Milliseconds()
	if evaluation.Time < 0 {
		evaluation.Time = 0
	}
	return evaluation
}

// RunCode 试运行
func (s *SubmissionServiceImpl) RunCode(ctx context.Context, problemID, code, input string) (*RunOutcome, error) {
	examples, err := s.problemSvc.GetExamples(ctx, problemID)
	if err != nil {
		return nil, fmt.Errorf("RunCode failed at get examples: %w", err)
	}

	res, err := s.runner.Run(ctx, code, input)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("RunCode failed: %w", ctx.Err())
		}
		return &RunOutcome{Type: entity.OutputTypeError, Output: runnerErrorOutput(err)}, nil
	}
	return &RunOutcome{Type: classifyRunOutput(examples, input, res.Output), Output: res.Output}, nil
}

// classifyRunOutput 输入命中公开样例时按样例输出判定, 否则视为正确
func classifyRunOutput(examples []entity.TestCase, input, output string) entity.OutputType {
	for _, ex := range examples {
		if ex.Input == input {
			if ex.Output == output {
				return entity.OutputTypeCorrect
			}
			return entity.OutputTypeIncorrect
		}
	}
	return entity.OutputTypeCorrect
}

func runnerErrorOutput(err error) string {
	var execErr *runner.ExecutionError
	if errors.As(err, &execErr) {
		return execErr.Output
	}
	return err.Error()
}

func isMember(battle *entity.Battle, userID string) bool {
	for _, m := range battle.Memberships {
		if m.UserID == userID {
			return true
		}
	}
	return false
}

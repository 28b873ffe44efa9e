package service

import (
	"math"

	"github.com/to404hanga/online_judge_duel/entity"
)

const DefaultEloK = 32

// DecideWinner 正确数多者胜, 其次平均耗时短者胜, 再次提交用时短者胜, 全部相同为平局
func DecideWinner(a, b *entity.BattleEvaluation) (winnerUserID string, draw bool) {
	switch {
	case a.Correctness != b.Correctness:
		if a.Correctness > b.Correctness {
			return a.UserID, false
		}
		return b.UserID, false
	case a.Performance != b.Performance:
		if a.Performance < b.Performance {
			return a.UserID, false
		}
		return b.UserID, false
	case a.Time != b.Time:
		if a.Time < b.Time {
			return a.UserID, false
		}
		return b.UserID, false
	}
	return "", true
}

// RatingUpdate Elo 计算结果, Delta 为 A 方积分变化的绝对值
type RatingUpdate struct {
	NewRatingA int
	NewRatingB int
	Delta      int
}

// ExpectedScore A 对 B 的期望得分
func ExpectedScore(ratingA, ratingB int) float64 {
	return 1 / (1 + math.Pow(10, float64(ratingB-ratingA)/400))
}

// ComputeRatingUpdate 双方均未通过任何用例时积分不变
func ComputeRatingUpdate(ratingA, ratingB int, a, b *entity.BattleEvaluation, winnerUserID string, draw bool, k float64) RatingUpdate {
	if a.Correctness == 0 && b.Correctness == 0 {
		return RatingUpdate{NewRatingA: ratingA, NewRatingB: ratingB}
	}
	if k <= 0 {
		k = DefaultEloK
	}

	var actualA, actualB float64
	switch {
	case draw:
		actualA, actualB = 0.5, 0.5
	case winnerUserID == a.UserID:
		actualA, actualB = 1, 0
	default:
		actualA, actualB = 0, 1
	}

	newA := int(math.Round(float64(ratingA) + k*(actualA-ExpectedScore(ratingA, ratingB))))
	newB := int(math.Round(float64(ratingB) + k*(actualB-ExpectedScore(ratingB, ratingA))))
	delta := newA - ratingA
	if delta < 0 {
		delta = -delta
	}
	return RatingUpdate{NewRatingA: newA, NewRatingB: newB, Delta: delta}
}

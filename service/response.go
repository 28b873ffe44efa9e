package service

import (
	"github.com/to404hanga/online_judge_duel/entity"
	"github.com/to404hanga/online_judge_duel/model"
	"github.com/to404hanga/online_judge_duel/pkg/pointer"
)

func toUserResponse(user *entity.User) *model.UserResponse {
	return &model.UserResponse{
		ID:       user.ID,
		Nickname: user.Nickname,
		Picture:  user.Picture,
		Rating:   user.Rating,
	}
}

func toBattleResponse(battle *entity.Battle, problem *model.ProblemResponse) *model.BattleResponse {
	resp := &model.BattleResponse{
		ID:         battle.ID,
		InviteCode: battle.InviteCode,
		ProblemID:  battle.ProblemID,
		StartTime:  battle.StartTime,
		EndTime:    battle.EndTime,
		Status:     string(battle.Status),
		Finished:   battle.Finished,
		Users:      make([]model.BattlePlayer, 0, len(battle.Memberships)),
		Problem:    problem,
	}
	for _, m := range battle.Memberships {
		p := model.BattlePlayer{
			ID:        m.UserID,
			Ready:     m.Ready,
			JoinOrder: m.JoinOrder,
		}
		if m.User != nil {
			p.Nickname = m.User.Nickname
			p.Picture = m.User.Picture
			p.Rating = m.User.Rating
		}
		resp.Users = append(resp.Users, p)
	}
	return resp
}

func toSubmitCodeResponse(outcome *SubmissionOutcome, problem *entity.Problem) *model.SubmitCodeResponse {
	resp := &model.SubmitCodeResponse{
		Code:  outcome.Submission.Code,
		Tests: make([]model.SubmissionTestResponse, 0, len(outcome.Tests)),
		Problem: &model.ProblemReviewResponse{
			ID:             problem.ID,
			Prompt:         problem.Prompt,
			ReviewVideoURL: problem.ReviewVideoURL,
			ReviewText:     problem.ReviewText,
		},
	}
	for _, t := range outcome.Tests {
		resp.Tests = append(resp.Tests, model.SubmissionTestResponse{
			Output:      t.Result.Output,
			OutputType:  string(t.Result.OutputType),
			Performance: t.Result.Performance,
			TestCase: model.TestCaseResponse{
				Input:  t.TestCase.Input,
				Output: t.TestCase.Output,
			},
		})
	}
	return resp
}

func toBattleResultResponse(outcome *FinalizeOutcome) *model.BattleResultResponse {
	resp := &model.BattleResultResponse{
		ID:          outcome.Result.ID,
		BattleID:    outcome.Result.BattleID,
		WinnerID:    pointer.Deref(outcome.Result.WinnerID),
		IsDraw:      outcome.Result.IsDraw,
		Score:       outcome.Result.Score,
		Evaluations: make([]model.EvaluationResponse, 0, len(outcome.Evaluations)),
		Players:     make([]model.PlayerRatingResponse, 0, len(outcome.Players)),
	}
	for _, e := range outcome.Evaluations {
		resp.Evaluations = append(resp.Evaluations, model.EvaluationResponse{
			UserID:      e.UserID,
			Correctness: e.Correctness,
			Performance: e.Performance,
			Time:        e.Time,
		})
	}
	for _, p := range outcome.Players {
		resp.Players = append(resp.Players, model.PlayerRatingResponse{
			UserID:    p.UserID,
			OldRating: p.OldRating,
			NewRating: p.NewRating,
		})
	}
	return resp
}

package web

import (
	"fmt"
	"net/http"
	"testing"

	json "github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/to404hanga/online_judge_duel/entity"
	"github.com/to404hanga/online_judge_duel/model"
)

func problemBody(secret string, exampleCount int) string {
	return fmt.Sprintf(`{
		"secretKey": %q,
		"prompt": "sum two numbers",
		"inputFormat": "a b",
		"outputFormat": "a+b",
		"exampleCount": %d,
		"reviewText": "add them",
		"testCases": [
			{"order": 0, "input": "1\n2", "output": "3"},
			{"order": 1, "input": "2\n2", "output": "4"}
		]
	}`, secret, exampleCount)
}

func TestCreateProblem(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodPost, "/problems", problemBody(testSecretKey, 1), nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Code int                         `json:"code"`
		Data model.CreateProblemResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Data.ID)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	var cnt int64
	require.NoError(t, s.db.Model(&entity.TestCase{}).Where("problem_id = ?", resp.Data.ID).Count(&cnt).Error)
	assert.EqualValues(t, 2, cnt)
}

func TestCreateProblemRejects(t *testing.T) {
	s := newTestServer(t)

	testCases := []struct {
		name string
		body string
		code int
	}{
		{name: "wrong secret", body: problemBody("guess", 1), code: http.StatusForbidden},
		{name: "missing secret", body: problemBody("", 1), code: http.StatusBadRequest},
		{name: "too many examples", body: problemBody(testSecretKey, 3), code: http.StatusBadRequest},
		{name: "malformed json", body: `{"secretKey":`, code: http.StatusBadRequest},
		{name: "no test cases", body: `{"secretKey":"bank-secret","prompt":"p","testCases":[]}`, code: http.StatusBadRequest},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := s.do(http.MethodPost, "/problems", tc.body, nil)
			assert.Equal(t, tc.code, w.Code)
		})
	}

	var cnt int64
	require.NoError(t, s.db.Model(&entity.Problem{}).Count(&cnt).Error)
	assert.Zero(t, cnt)
}

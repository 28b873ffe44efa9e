package model

type ProblemResponse struct {
	ID           string             `json:"id"`
	Prompt       string             `json:"prompt"`
	InputFormat  string             `json:"inputFormat"`
	OutputFormat string             `json:"outputFormat"`
	Examples     []TestCaseResponse `json:"testCases"`
}

type ProblemReviewResponse struct {
	ID             string `json:"id"`
	Prompt         string `json:"prompt"`
	ReviewVideoURL string `json:"reviewVideoURL"`
	ReviewText     string `json:"reviewText"`
}

type CreateTestCaseParam struct {
	Order  int    `json:"order" binding:"min=0"`
	Input  string `json:"input"`
	Output string `json:"output"`
}

type CreateProblemParam struct {
	SecretKey      string                `json:"secretKey" binding:"required"`
	Prompt         string                `json:"prompt" binding:"required"`
	InputFormat    string                `json:"inputFormat"`
	OutputFormat   string                `json:"outputFormat"`
	ExampleCount   int                   `json:"exampleCount" binding:"min=0"`
	ReviewVideoURL string                `json:"reviewVideoURL"`
	ReviewText     string                `json:"reviewText"`
	TestCases      []CreateTestCaseParam `json:"testCases" binding:"required,min=1,dive"`
}

type CreateProblemResponse struct {
	ID string `json:"id"`
}

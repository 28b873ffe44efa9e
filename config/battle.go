package config

type RunnerConfig struct {
	BaseURL     string `yaml:"baseUrl" mapstructure:"baseUrl"`
	Timeout     int    `yaml:"timeout" mapstructure:"timeout"`         // 单位: 毫秒
	Concurrency int    `yaml:"concurrency" mapstructure:"concurrency"` // 单次提交并发运行的测试用例数
}

func (RunnerConfig) Key() string {
	return "runner"
}

type InviteCodeConfig struct {
	Alphabet    string `yaml:"alphabet" mapstructure:"alphabet"`
	Length      int    `yaml:"length" mapstructure:"length"`
	MaxAttempts int    `yaml:"maxAttempts" mapstructure:"maxAttempts"`
}

type BattleConfig struct {
	LobbySeconds   int              `yaml:"lobbySeconds" mapstructure:"lobbySeconds"`
	DurationMinute int              `yaml:"durationMinute" mapstructure:"durationMinute"`
	GraceSeconds   int              `yaml:"graceSeconds" mapstructure:"graceSeconds"`
	BaseRating     int              `yaml:"baseRating" mapstructure:"baseRating"`
	EloK           float64          `yaml:"eloK" mapstructure:"eloK"`
	InviteCode     InviteCodeConfig `yaml:"inviteCode" mapstructure:"inviteCode"`
}

func (BattleConfig) Key() string {
	return "battle"
}

// DefaultBattleConfig 未配置时的默认值
func DefaultBattleConfig() BattleConfig {
	return BattleConfig{
		LobbySeconds:   30,
		DurationMinute: 10,
		GraceSeconds:   5,
		BaseRating:     1000,
		EloK:           32,
		InviteCode: InviteCodeConfig{
			Alphabet:    "ABCDEFGHJKLMNPQRSTUVWXYZ23456789",
			Length:      5,
			MaxAttempts: 16,
		},
	}
}

type ProblemConfig struct {
	SecretKeyHash string `yaml:"secretKeyHash" mapstructure:"secretKeyHash"` // bcrypt
}

func (ProblemConfig) Key() string {
	return "problem"
}

type LeaderboardConfig struct {
	ExportDir string `yaml:"exportDir" mapstructure:"exportDir"`
}

func (LeaderboardConfig) Key() string {
	return "leaderboard"
}

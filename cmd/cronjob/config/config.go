package config

type BaseCronJobConfig struct {
	CronExpr string `yaml:"cronExpr" mapstructure:"cronExpr"`
	Enabled  bool   `yaml:"enabled" mapstructure:"enabled"`
	Timeout  int    `yaml:"timeout" mapstructure:"timeout"` // 单位: 毫秒
}

type BattleReaperConfig struct {
	BaseCronJobConfig `yaml:",inline" mapstructure:",squash"`

	BatchSize int `yaml:"batchSize" mapstructure:"batchSize"`
}

func (BattleReaperConfig) Key() string {
	return "battleReaper"
}

type InvitationCleanerConfig struct {
	BaseCronJobConfig `yaml:",inline" mapstructure:",squash"`

	TimeRange int `yaml:"timeRange" mapstructure:"timeRange"` // 单位: 小时
}

func (InvitationCleanerConfig) Key() string {
	return "invitationCleaner"
}

type LeaderboardSnapshotConfig struct {
	BaseCronJobConfig `yaml:",inline" mapstructure:",squash"`

	Format string `yaml:"format" mapstructure:"format"` // csv | xlsx
}

func (LeaderboardSnapshotConfig) Key() string {
	return "leaderboardSnapshot"
}

package config

type DBConfig struct {
	Driver          string `yaml:"driver" mapstructure:"driver"` // mysql | postgres
	DSN             string `yaml:"dsn" mapstructure:"dsn"`
	MaxOpenConns    int    `yaml:"maxOpenConns" mapstructure:"maxOpenConns"`
	MaxIdleConns    int    `yaml:"maxIdleConns" mapstructure:"maxIdleConns"`
	ConnMaxLifetime int    `yaml:"connMaxLifetime" mapstructure:"connMaxLifetime"` // 单位: 秒
	AutoMigrate     bool   `yaml:"autoMigrate" mapstructure:"autoMigrate"`
}

func (DBConfig) Key() string {
	return "db"
}

type RedisConfig struct {
	Addr     string `yaml:"addr" mapstructure:"addr"`
	Password string `yaml:"password" mapstructure:"password"`
	DB       int    `yaml:"db" mapstructure:"db"`
}

func (RedisConfig) Key() string {
	return "redis"
}

type KafkaConfig struct {
	Addrs   []string `yaml:"addrs" mapstructure:"addrs"`
	Enabled bool     `yaml:"enabled" mapstructure:"enabled"`
}

func (KafkaConfig) Key() string {
	return "kafka"
}

type LogConfig struct {
	Level string `yaml:"level" mapstructure:"level"`
}

func (LogConfig) Key() string {
	return "log"
}

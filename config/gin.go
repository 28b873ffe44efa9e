package config

type GinConfig struct {
	Addr             string   `yaml:"addr" mapstructure:"addr"`
	Mode             string   `yaml:"mode" mapstructure:"mode"`
	AllowOrigins     []string `yaml:"allowOrigins" mapstructure:"allowOrigins"`
	AllowMethods     []string `yaml:"allowMethods" mapstructure:"allowMethods"`
	AllowHeaders     []string `yaml:"allowHeaders" mapstructure:"allowHeaders"`
	ExposeHeaders    []string `yaml:"exposeHeaders" mapstructure:"exposeHeaders"`
	AllowCredentials bool     `yaml:"allowCredentials" mapstructure:"allowCredentials"`
	MaxAge           int      `yaml:"maxAge" mapstructure:"maxAge"` // 单位: 秒
	EnablePprof      bool     `yaml:"pprof" mapstructure:"pprof"`
}

func (GinConfig) Key() string {
	return "gin"
}

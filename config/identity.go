package config

type IdentityConfig struct {
	Issuer    string `yaml:"issuer" mapstructure:"issuer"`
	Audience  string `yaml:"audience" mapstructure:"audience"`
	Algorithm string `yaml:"algorithm" mapstructure:"algorithm"` // HS256 | RS256
	Secret    string `yaml:"secret" mapstructure:"secret"`
	PublicKey string `yaml:"publicKey" mapstructure:"publicKey"` // PEM
	RevokeTTL int    `yaml:"revokeTTL" mapstructure:"revokeTTL"` // 单位: 小时, 应不短于令牌有效期
}

func (IdentityConfig) Key() string {
	return "identity"
}

type IdentityProviderConfig struct {
	Domain       string `yaml:"domain" mapstructure:"domain"`
	ClientID     string `yaml:"clientId" mapstructure:"clientId"`
	ClientSecret string `yaml:"clientSecret" mapstructure:"clientSecret"`
	Audience     string `yaml:"audience" mapstructure:"audience"`
	Timeout      int    `yaml:"timeout" mapstructure:"timeout"` // 单位: 毫秒
}

func (IdentityProviderConfig) Key() string {
	return "identityProvider"
}

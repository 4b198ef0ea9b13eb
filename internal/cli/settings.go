package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/kbukum/reqflow/config"
	"github.com/kbukum/reqflow/httpclient"
	"github.com/kbukum/reqflow/observability"
	"github.com/kbukum/reqflow/util"
	"github.com/kbukum/reqflow/validation"
	"github.com/kbukum/reqflow/version"
)

const appName = "reqflow"

// Settings is the reqflow configuration file. Every key can be overridden
// with a REQFLOW_ environment variable, e.g. REQFLOW_HTTP_TIMEOUT.
type Settings struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`

	HTTP          httpclient.Config    `yaml:"http" mapstructure:"http"`
	Auth          AuthSettings         `yaml:"auth" mapstructure:"auth"`
	Observability observability.Config `yaml:"observability" mapstructure:"observability"`
}

// AuthSettings is the file form of httpclient.AuthConfig.
type AuthSettings struct {
	Type     string `yaml:"type" mapstructure:"type" validate:"omitempty,oneof=none bearer basic api_key jwt"`
	Token    string `yaml:"token" mapstructure:"token"`
	Username string `yaml:"username" mapstructure:"username"`
	Password string `yaml:"password" mapstructure:"password"`
	Key      string `yaml:"key" mapstructure:"key"`
	In       string `yaml:"in" mapstructure:"in"`
	Name     string `yaml:"name" mapstructure:"name"`

	JWTSecret   string        `yaml:"jwt_secret" mapstructure:"jwt_secret"`
	JWTIssuer   string        `yaml:"jwt_issuer" mapstructure:"jwt_issuer"`
	JWTSubject  string        `yaml:"jwt_subject" mapstructure:"jwt_subject"`
	JWTAudience []string      `yaml:"jwt_audience" mapstructure:"jwt_audience"`
	JWTTTL      time.Duration `yaml:"jwt_ttl" mapstructure:"jwt_ttl" validate:"gte=0"`
}

// loadSettings reads the config file, env file and environment.
func loadSettings(configFile, envFile, logLevel string) (*Settings, error) {
	s := &Settings{}
	var opts []config.LoaderOption
	if configFile != "" {
		opts = append(opts, config.WithConfigFile(configFile))
	}
	if envFile != "" {
		opts = append(opts, config.WithEnvFile(envFile))
	}
	if err := config.LoadConfig(appName, s, opts...); err != nil {
		return nil, err
	}
	if logLevel != "" {
		s.Logging.Level = logLevel
	}
	s.ApplyDefaults()
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// ApplyDefaults fills in zero-value fields.
func (s *Settings) ApplyDefaults() {
	if s.Name == "" {
		s.Name = appName
	}
	if s.Logging.Output == "" {
		s.Logging.Output = "stderr"
	}
	s.ServiceConfig.ApplyDefaults()
	s.HTTP.ApplyDefaults()

	s.Observability.ServiceName = util.Coalesce(s.Observability.ServiceName, s.Name)
	s.Observability.ServiceVersion = util.Coalesce(s.Observability.ServiceVersion, version.Version)
	s.Observability.Environment = util.Coalesce(s.Observability.Environment, s.Environment)
	s.Observability.ApplyDefaults()
	s.HTTP.Auth = s.Auth.toAuthConfig()
}

// Validate checks all sections.
func (s *Settings) Validate() error {
	if err := s.ServiceConfig.Validate(); err != nil {
		return err
	}
	if err := validation.Validate(&s.Auth); err != nil {
		return fmt.Errorf("invalid auth settings: %w", err)
	}
	if err := validation.Validate(&s.Observability); err != nil {
		return fmt.Errorf("invalid observability settings: %w", err)
	}
	return s.HTTP.Validate()
}

func (a AuthSettings) toAuthConfig() *httpclient.AuthConfig {
	switch strings.ToLower(a.Type) {
	case "bearer":
		return httpclient.BearerAuth(a.Token)
	case "basic":
		return httpclient.BasicAuth(a.Username, a.Password)
	case "api_key":
		return &httpclient.AuthConfig{Type: httpclient.AuthAPIKey, Key: a.Key, In: a.In, Name: a.Name}
	case "jwt":
		return httpclient.JWTAuth(httpclient.JWTConfig{
			Secret:   []byte(a.JWTSecret),
			Issuer:   a.JWTIssuer,
			Subject:  a.JWTSubject,
			Audience: a.JWTAudience,
			TTL:      a.JWTTTL,
		})
	default:
		return nil
	}
}

// summary describes the configured auth with secrets masked.
func (a AuthSettings) summary() string {
	switch strings.ToLower(a.Type) {
	case "", "none":
		return "none"
	case "bearer":
		return "bearer " + util.MaskSecret(a.Token, 4)
	case "basic":
		return "basic " + a.Username + ":" + util.MaskSecret(a.Password, 0)
	case "api_key":
		return "api_key " + util.MaskSecret(a.Key, 4)
	default:
		return a.Type
	}
}

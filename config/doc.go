// Package config loads service configuration with Viper.
//
// LoadConfig reads a YAML file, then a .env file through godotenv, then the
// process environment. Environment variables carry the service prefix and
// use underscores for nesting:
//
//	var cfg CLIConfig
//	err := config.LoadConfig("reqflow", &cfg, config.WithConfigFile("reqflow.yml"))
//
//	REQFLOW_HTTP_BASE_URL=https://api.example.com  ->  http.base_url
package config

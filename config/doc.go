// Package config loads service configuration with viper.
//
// LoadConfig looks for config.yml under cmd/<service>/, config/ and the
// working directory, loads a .env file from the same places with
// godotenv, and finally binds every environment variable to the nested
// keys it could name: SERVER_REQUEST_TIMEOUT sets server.request_timeout.
//
//	var cfg EndpointConfig
//	if err := config.LoadConfig("endpoint", &cfg); err != nil {
//	    return err
//	}
package config

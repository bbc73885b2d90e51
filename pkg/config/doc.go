// Package config fills configuration structs from environment variables.
//
// Structs declare their variables with caarlos0/env tags. The first call to
// Load reads a .env file from the working directory when present
// (joho/godotenv, existing variables win), and each struct type is parsed once
// per process; later calls for the same type return the cached value.
//
//	type Config struct {
//	    MasterKey string `env:"TWO_FACTOR_MASTER_KEY,required"`
//	    Issuer    string `env:"TWO_FACTOR_ISSUER" envDefault:"Admin"`
//	}
//
//	var cfg Config
//	if err := config.Load(&cfg); err != nil {
//	    return err
//	}
//
// LoadEnv loads explicit .env files instead, and ResetCache forgets parsed
// values so tests can reload with a different environment.
package config

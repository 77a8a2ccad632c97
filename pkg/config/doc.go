// Package config loads environment-based configuration into tagged structs.
//
// Load reads a .env file from the working directory once per process (if it
// exists) and then parses the environment into the target using
// github.com/caarlos0/env struct tags:
//
//	type Config struct {
//		Addr      string `env:"ADDR" envDefault:":8080"`
//		KVBackend string `env:"KV_BACKEND" envDefault:"memory"`
//	}
//
//	var cfg Config
//	if err := config.Load(&cfg); err != nil {
//		return err
//	}
//
// Every call parses the environment again. Values that change at runtime,
// such as provider credentials re-read after an admin save, see the current
// environment.
//
// LoadFrom parses an explicit variable map instead of the process
// environment and is what tests use.
package config

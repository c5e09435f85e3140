package server

import "github.com/gaborage/keyrelay/config"

const envAliasDev = "dev"

func isDevelopmentEnv(env string) bool {
	return env == config.EnvDevelopment || env == envAliasDev
}

// pkg/logger/logger.go
package logger

import (
	"go.uber.org/zap"
)

type Sugared = *zap.SugaredLogger

// New builds a sugared logger for the given environment and names it
// after the service so multi-binary deployments stay distinguishable.
func New(env, service string) Sugared {
	var z *zap.Logger
	if env == "prod" {
		z, _ = zap.NewProduction()
	} else {
		z, _ = zap.NewDevelopment()
	}
	return z.Named(service).Sugar()
}

package di

import (
	"github.com/savaki/ssm-runtime-audit/internal/audit"
	"github.com/savaki/ssm-runtime-audit/internal/services"
)

// ProvideRunner provides the batch audit runner.
func ProvideRunner(factory services.ClientFactory) *audit.Runner {
	return audit.NewRunner(factory)
}

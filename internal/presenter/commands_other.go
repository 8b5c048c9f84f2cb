//go:build !linux

package presenter

import (
	"context"
	"fmt"

	"github.com/genricoloni/veloframe/internal/config"
	"github.com/genricoloni/veloframe/internal/domain"
	"go.uber.org/zap"
)

// StubPresenter is a placeholder for platforms without desktop command detection
type StubPresenter struct {
	logger *zap.Logger
}

// New returns the configured display command, or a stub that fails every call
func New(logger *zap.Logger, cfg *config.AppConfig) (domain.Presenter, error) {
	if line := cfg.DisplayCommand(); line != "" {
		cmd, err := ParseCommand(line)
		if err != nil {
			return nil, err
		}
		return NewCommandPresenter(logger, cmd), nil
	}
	logger.Warn("No display command configured and detection is only available on Linux")
	return &StubPresenter{logger: logger}, nil
}

// Present returns an error indicating the platform is not supported
func (p *StubPresenter) Present(ctx context.Context, imagePath string) error {
	return fmt.Errorf("%w: set display_command on this platform", domain.ErrNoPresenter)
}

// Current returns an error indicating the platform is not supported
func (p *StubPresenter) Current(ctx context.Context) (string, error) {
	return "", fmt.Errorf("%w: background query needs a desktop command", domain.ErrNoPresenter)
}

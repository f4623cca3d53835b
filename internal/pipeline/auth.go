// internal/pipeline/auth.go
package pipeline

import (
	"context"

	"go.uber.org/zap"

	"github.com/mcp-tg/github-reader/internal/config"
	"github.com/mcp-tg/github-reader/internal/logging"
)

// ConfigError reports that a required credential is missing. It is raised
// by the authorization gate before the handler runs; the remote API is
// never contacted.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return e.Message
}

// AuthInterceptor is the authorization gate: a pure in-memory check that a
// tool tagged as requiring remote access has a usable token behind it. It
// never blocks and has no side effect beyond a log record of the decision.
type AuthInterceptor struct {
	github *config.GitHubConfig
	logger *logging.Logger
}

// NewAuthInterceptor creates the gate over the given credential
// configuration.
func NewAuthInterceptor(github *config.GitHubConfig, logger *logging.Logger) *AuthInterceptor {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &AuthInterceptor{
		github: github,
		logger: logger.Named("auth"),
	}
}

// Name implements Interceptor.
func (a *AuthInterceptor) Name() string { return "auth" }

// Intercept permits tools without the "api" tag unconditionally. For
// api-tagged tools it fails the invocation with a *ConfigError when no
// non-whitespace token is configured.
func (a *AuthInterceptor) Intercept(ctx context.Context, desc *Descriptor, next Handler) (any, error) {
	if !desc.HasTag(TagAPI) {
		return next(ctx)
	}

	configured := a.github.IsConfigured()
	a.logger.Debug(ctx, "auth check",
		zap.String("tool_name", desc.Name),
		zap.Bool("has_api_key", configured))

	if !configured {
		a.logger.Error(ctx, "GitHub token not configured",
			zap.String("tool_name", desc.Name),
			zap.Bool("requires_auth", true))
		return nil, &ConfigError{
			Message: "GitHub token not configured. Please set GITHUB_TOKEN in your environment.",
		}
	}

	a.logger.Debug(ctx, "authentication validated",
		zap.String("tool_name", desc.Name),
		zap.String("auth_status", "valid"))

	return next(ctx)
}

package usecase

import (
	"context"

	"newsroom-backend/internal/recipient/repository"

	"go.uber.org/zap"
)

// Janitor removes tokens the provider reported as permanently invalid.
type Janitor struct {
	tokens repository.TokenRepository
	log    *zap.SugaredLogger
}

func NewJanitor(tokens repository.TokenRepository, log *zap.Logger) *Janitor {
	return &Janitor{tokens: tokens, log: log.Sugar()}
}

// Clean never returns an error; a failed cleanup only leaves dead tokens
// behind for the next delivery to report again.
func (j *Janitor) Clean(ctx context.Context, tokens []string) {
	if len(tokens) == 0 {
		return
	}
	n, err := j.tokens.RemoveTokens(ctx, tokens)
	if err != nil {
		j.log.Errorw("token cleanup failed", "tokens", len(tokens), "error", err)
		return
	}
	j.log.Infow("removed invalid tokens", "tokens", len(tokens), "recipients", n)
}

package repository

import (
	"context"
	"fmt"
	"strings"

	"newsroom-backend/internal/recipient/domain"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

// TokenRepository mutates the token collections embedded on recipient rows.
// Every method is a single UPDATE statement that touches only the given
// token values, so concurrent registrations and cleanups cannot clobber
// each other.
type TokenRepository interface {
	AddToken(ctx context.Context, ref domain.TargetRef, token string, channel domain.Channel) error
	RemoveToken(ctx context.Context, ref domain.TargetRef, token string) error
	// RemoveTokens strips the given tokens from every recipient holding them.
	RemoveTokens(ctx context.Context, tokens []string) (int64, error)
}

var tokenTables = map[domain.Kind]string{
	domain.KindUser:  "users",
	domain.KindGuest: "guests",
}

type tokenRepository struct {
	db *gorm.DB
}

func NewTokenRepository(db *gorm.DB) TokenRepository {
	return &tokenRepository{db: db}
}

// AddToken pulls token from both collections, pushes it onto channel's
// collection and keeps the most recent MaxTokensPerChannel entries.
func (r *tokenRepository) AddToken(ctx context.Context, ref domain.TargetRef, token string, channel domain.Channel) error {
	table, err := tableFor(ref.Kind)
	if err != nil {
		return err
	}
	target, other := "web_tokens", "mobile_tokens"
	if channel == domain.ChannelMobile {
		target, other = other, target
	}

	// arr[lo:] keeps the tail; lo is clamped to 1 for short arrays.
	stmt := fmt.Sprintf(`UPDATE %[1]s SET
		%[2]s = (array_append(array_remove(%[2]s, @token), @token))[greatest(cardinality(array_remove(%[2]s, @token)) + 2 - @max, 1):],
		%[3]s = array_remove(%[3]s, @token),
		updated_at = now()
		WHERE id = @id`, table, target, other)

	res := r.db.WithContext(ctx).Exec(stmt, map[string]interface{}{
		"token": token,
		"max":   domain.MaxTokensPerChannel,
		"id":    ref.ID,
	})
	if res.Error != nil {
		return fmt.Errorf("add %s token: %w", channel, res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *tokenRepository) RemoveToken(ctx context.Context, ref domain.TargetRef, token string) error {
	table, err := tableFor(ref.Kind)
	if err != nil {
		return err
	}
	stmt := fmt.Sprintf(`UPDATE %s SET
		web_tokens = array_remove(web_tokens, @token),
		mobile_tokens = array_remove(mobile_tokens, @token),
		updated_at = now()
		WHERE id = @id AND (@token = ANY(web_tokens) OR @token = ANY(mobile_tokens))`, table)

	if err := r.db.WithContext(ctx).Exec(stmt, map[string]interface{}{"token": token, "id": ref.ID}).Error; err != nil {
		return fmt.Errorf("remove token: %w", err)
	}
	return nil
}

// RemoveTokens finds holders by array overlap; both token columns carry a
// GIN index so the reverse lookup does not scan every row.
func (r *tokenRepository) RemoveTokens(ctx context.Context, tokens []string) (int64, error) {
	tokens = compact(tokens)
	if len(tokens) == 0 {
		return 0, nil
	}

	var total int64
	for _, table := range []string{"users", "guests"} {
		stmt := fmt.Sprintf(`UPDATE %s SET
			web_tokens = ARRAY(SELECT t FROM unnest(web_tokens) WITH ORDINALITY AS w(t, o) WHERE t <> ALL(CAST(@tokens AS text[])) ORDER BY o),
			mobile_tokens = ARRAY(SELECT t FROM unnest(mobile_tokens) WITH ORDINALITY AS m(t, o) WHERE t <> ALL(CAST(@tokens AS text[])) ORDER BY o),
			updated_at = now()
			WHERE web_tokens && CAST(@tokens AS text[]) OR mobile_tokens && CAST(@tokens AS text[])`, table)

		res := r.db.WithContext(ctx).Exec(stmt, map[string]interface{}{"tokens": pq.StringArray(tokens)})
		if res.Error != nil {
			return total, fmt.Errorf("remove tokens from %s: %w", table, res.Error)
		}
		total += res.RowsAffected
	}
	return total, nil
}

func tableFor(kind domain.Kind) (string, error) {
	table, ok := tokenTables[kind]
	if !ok {
		return "", &domain.ValidationError{Field: "kind", Message: fmt.Sprintf("unknown recipient kind %q", kind)}
	}
	return table, nil
}

func compact(tokens []string) []string {
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

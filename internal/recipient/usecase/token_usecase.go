package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"newsroom-backend/internal/recipient/domain"
	"newsroom-backend/internal/recipient/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Registration is a client request to attach a push token.
type Registration struct {
	UserID   string
	DeviceID string
	Token    string
	Platform string
}

// Registered tells the client which recipient now owns the token. DeviceID is
// echoed back for guests so a generated id can be reused.
type Registered struct {
	Ref      domain.TargetRef
	DeviceID string
	Channel  domain.Channel
}

type TokenUsecase interface {
	Register(ctx context.Context, req Registration) (*Registered, error)
	Unregister(ctx context.Context, userID, deviceID, token string) error
	// ResolveRecipient maps an authenticated user or a device id to a recipient id.
	ResolveRecipient(ctx context.Context, userID, deviceID string) (string, error)
}

type tokenUsecase struct {
	recipients repository.RecipientRepository
	tokens     repository.TokenRepository
	log        *zap.SugaredLogger
}

func NewTokenUsecase(recipients repository.RecipientRepository, tokens repository.TokenRepository, log *zap.Logger) TokenUsecase {
	return &tokenUsecase{recipients: recipients, tokens: tokens, log: log.Sugar()}
}

func (u *tokenUsecase) Register(ctx context.Context, req Registration) (*Registered, error) {
	token := strings.TrimSpace(req.Token)
	if token == "" {
		return nil, &domain.ValidationError{Field: "token", Message: "token is required"}
	}
	channel, err := domain.ChannelForPlatform(req.Platform)
	if err != nil {
		return nil, err
	}

	out := &Registered{Channel: channel}
	if req.UserID != "" {
		user, err := u.recipients.FindUserByID(ctx, req.UserID)
		if err != nil {
			return nil, err
		}
		out.Ref = user.Ref()
	} else {
		deviceID := strings.TrimSpace(req.DeviceID)
		if deviceID == "" {
			deviceID = uuid.New().String()
		}
		guest, err := u.recipients.FindOrCreateGuest(ctx, deviceID)
		if err != nil {
			return nil, err
		}
		out.Ref = guest.Ref()
		out.DeviceID = guest.DeviceID
	}

	if err := u.tokens.AddToken(ctx, out.Ref, token, channel); err != nil {
		return nil, fmt.Errorf("register token: %w", err)
	}
	u.log.Infow("push token registered", "kind", out.Ref.Kind, "recipient_id", out.Ref.ID, "channel", channel)
	return out, nil
}

func (u *tokenUsecase) Unregister(ctx context.Context, userID, deviceID, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return &domain.ValidationError{Field: "token", Message: "token is required"}
	}

	var ref domain.TargetRef
	switch {
	case userID != "":
		ref = domain.TargetRef{Kind: domain.KindUser, ID: userID}
	case deviceID != "":
		guest, err := u.recipients.FindGuestByDevice(ctx, deviceID)
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		ref = guest.Ref()
	default:
		return &domain.ValidationError{Field: "deviceId", Message: "device id or authentication required"}
	}
	return u.tokens.RemoveToken(ctx, ref, token)
}

func (u *tokenUsecase) ResolveRecipient(ctx context.Context, userID, deviceID string) (string, error) {
	if userID != "" {
		return userID, nil
	}
	if deviceID == "" {
		return "", domain.ErrNotFound
	}
	guest, err := u.recipients.FindGuestByDevice(ctx, deviceID)
	if err != nil {
		return "", err
	}
	return guest.ID, nil
}

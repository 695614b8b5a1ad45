package usecase

import (
	"context"
	"fmt"

	"newsroom-backend/internal/notification/domain"
	rdomain "newsroom-backend/internal/recipient/domain"
	"newsroom-backend/internal/recipient/repository"
)

// AudienceFor maps an event to the recipients it targets.
func AudienceFor(ev domain.Event) domain.Audience {
	switch ev.Kind {
	case domain.EventBreakingNews:
		return domain.Audience{Mode: domain.AudienceAll, Preference: rdomain.PrefBreakingNews}
	case domain.EventEpaperUploaded:
		return domain.Audience{Mode: domain.AudienceAll, Preference: rdomain.PrefEpaper}
	case domain.EventCategoryNews:
		a := domain.Audience{Mode: domain.AudienceCategory, Category: ev.Category}
		if ev.District != "" {
			a.Preference = rdomain.PrefLocalNews
		}
		return a
	case domain.EventSubscriptionReminder:
		return domain.Audience{Mode: domain.AudienceSingle, UserIDs: []string{ev.UserID}, Preference: rdomain.PrefSubscription}
	case domain.EventCustom:
		switch {
		case len(ev.UserIDs) > 0:
			return domain.Audience{Mode: domain.AudienceUsers, UserIDs: ev.UserIDs}
		case ev.UserID != "":
			return domain.Audience{Mode: domain.AudienceSingle, UserIDs: []string{ev.UserID}}
		case ev.Category != "":
			return domain.Audience{Mode: domain.AudienceCategory, Category: ev.Category}
		}
	}
	return domain.Audience{Mode: domain.AudienceAll}
}

// Resolver turns an Audience into recipients with their tokens loaded.
type Resolver struct {
	recipients repository.RecipientRepository
}

func NewResolver(recipients repository.RecipientRepository) *Resolver {
	return &Resolver{recipients: recipients}
}

// Resolve returns each matching recipient once.
func (r *Resolver) Resolve(ctx context.Context, a domain.Audience) ([]rdomain.Target, error) {
	var (
		targets []rdomain.Target
		err     error
	)
	switch a.Mode {
	case domain.AudienceSingle, domain.AudienceUsers:
		targets, err = r.recipients.FindByIDs(ctx, dedupeStrings(a.UserIDs))
		if err == nil && a.Preference != "" {
			targets = allowing(targets, a.Preference)
		}
	case domain.AudienceAll:
		targets, err = r.recipients.FindActive(ctx, a.Preference)
	case domain.AudienceCategory:
		if a.Category == "" {
			return nil, nil
		}
		targets, err = r.recipients.FindCategorySubscribers(ctx, a.Category, a.Preference)
	default:
		return nil, fmt.Errorf("%w: audience mode %q", domain.ErrInvalidInput, a.Mode)
	}
	if err != nil {
		return nil, fmt.Errorf("resolve %s audience: %w", a.Mode, err)
	}

	seen := make(map[rdomain.TargetRef]struct{}, len(targets))
	out := targets[:0]
	for _, t := range targets {
		if _, dup := seen[t.Ref()]; dup {
			continue
		}
		seen[t.Ref()] = struct{}{}
		out = append(out, t)
	}
	return out, nil
}

// allowing drops recipients that turned pref off. Query-backed modes filter
// in SQL; explicit id lists are filtered here.
func allowing(targets []rdomain.Target, pref string) []rdomain.Target {
	out := targets[:0]
	for _, t := range targets {
		if p, ok := t.(interface{ Allows(string) bool }); ok && !p.Allows(pref) {
			continue
		}
		out = append(out, t)
	}
	return out
}

func dedupeStrings(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok || s == "" {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

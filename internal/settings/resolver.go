// Package settings resolves runtime-tunable values with two tiers: the
// dynamic settings table (written from the web UI) wins, the static
// configuration loaded at process start is the fallback.
package settings

import (
	"context"
	"encoding/json"
	"fmt"
)

// Keys of the dynamic tier.
const (
	KeyTelegramToken   = "telegram_token"
	KeyTelegramChatIDs = "telegram_chat_ids"
)

// Store is the dynamic tier, backed by the settings table. Get returns an
// empty string when the key is absent.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

// Static is the fallback tier, filled from the process configuration.
type Static struct {
	TelegramToken string
	ChatIDs       []int64
}

type Resolver struct {
	store  Store
	static Static
}

func NewResolver(store Store, static Static) *Resolver {
	return &Resolver{store: store, static: static}
}

// Resolve returns the dynamic value for key, or fallback when unset.
func (r *Resolver) Resolve(ctx context.Context, key, fallback string) (string, error) {
	v, err := r.store.Get(ctx, key)
	if err != nil {
		return "", err
	}
	if v == "" {
		return fallback, nil
	}
	return v, nil
}

// TelegramToken returns the active bot token.
func (r *Resolver) TelegramToken(ctx context.Context) (string, error) {
	return r.Resolve(ctx, KeyTelegramToken, r.static.TelegramToken)
}

// ChatIDs returns the active destination list. The dynamic value is a JSON
// array of chat ids; a malformed value falls back to the static list.
func (r *Resolver) ChatIDs(ctx context.Context) ([]int64, error) {
	raw, err := r.store.Get(ctx, KeyTelegramChatIDs)
	if err != nil {
		return nil, err
	}
	if raw == "" {
		return r.static.ChatIDs, nil
	}
	var ids []int64
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		return r.static.ChatIDs, nil
	}
	return ids, nil
}

// SetTelegramToken persists a new bot token in the dynamic tier.
func (r *Resolver) SetTelegramToken(ctx context.Context, token string) error {
	return r.store.Set(ctx, KeyTelegramToken, token)
}

// SetChatIDs replaces the destination list in the dynamic tier.
func (r *Resolver) SetChatIDs(ctx context.Context, ids []int64) error {
	raw, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("encode chat ids: %w", err)
	}
	return r.store.Set(ctx, KeyTelegramChatIDs, string(raw))
}

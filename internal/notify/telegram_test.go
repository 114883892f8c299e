package notify

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type tokenFunc func(ctx context.Context) (string, error)

func (f tokenFunc) TelegramToken(ctx context.Context) (string, error) { return f(ctx) }

func staticToken(token string) TokenSource {
	return tokenFunc(func(ctx context.Context) (string, error) { return token, nil })
}

func stubAPI(t *Telegram, builds *atomic.Int64) {
	t.newAPI = func(token string) (*tgbotapi.BotAPI, error) {
		builds.Add(1)
		return &tgbotapi.BotAPI{Token: token}, nil
	}
}

func TestClientCachesPerToken(t *testing.T) {
	var builds atomic.Int64
	tg := NewTelegram(staticToken("token-a"))
	stubAPI(tg, &builds)
	ctx := context.Background()

	first, err := tg.client(ctx)
	if err != nil {
		t.Fatal(err)
	}
	second, err := tg.client(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Error("client rebuilt for an unchanged token")
	}
	if builds.Load() != 1 {
		t.Errorf("builds = %d, want 1", builds.Load())
	}
}

func TestClientRebuildsOnTokenChange(t *testing.T) {
	var builds atomic.Int64
	var token atomic.Value
	token.Store("token-a")
	tg := NewTelegram(tokenFunc(func(ctx context.Context) (string, error) {
		return token.Load().(string), nil
	}))
	stubAPI(tg, &builds)
	ctx := context.Background()

	if _, err := tg.client(ctx); err != nil {
		t.Fatal(err)
	}
	token.Store("token-b")
	api, err := tg.client(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if api.Token != "token-b" {
		t.Errorf("client token = %q, want the saved token", api.Token)
	}
	if builds.Load() != 2 {
		t.Errorf("builds = %d, want 2", builds.Load())
	}
}

func TestClientEmptyToken(t *testing.T) {
	tg := NewTelegram(staticToken(""))
	if _, err := tg.client(context.Background()); err == nil {
		t.Fatal("expected error for unconfigured token")
	}
}

func TestClientConcurrentTokenRotation(t *testing.T) {
	// The scheduler sends while a web handler saves a new token and probes;
	// the cache must survive concurrent reads and rebuilds (run with -race).
	var builds atomic.Int64
	var counter atomic.Int64
	tg := NewTelegram(tokenFunc(func(ctx context.Context) (string, error) {
		return fmt.Sprintf("token-%d", counter.Load()%4), nil
	}))
	stubAPI(tg, &builds)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				counter.Add(1)
				api, err := tg.client(ctx)
				if err != nil {
					t.Error(err)
					return
				}
				if api == nil {
					t.Error("nil client")
					return
				}
			}
		}()
	}
	wg.Wait()
}

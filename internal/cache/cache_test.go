package cache_test

import (
	"bytes"
	"context"
	"net/url"
	"testing"
	"time"

	"cinefuse/internal/cache"
	"cinefuse/internal/testsupport"
)

func TestKeyIgnoresParamOrder(t *testing.T) {
	a := url.Values{}
	a.Set("query", "Heat")
	a.Set("year", "1995")

	b := url.Values{}
	b.Set("year", "1995")
	b.Set("query", "Heat")

	keyA := cache.Key("GET", "https://api.example.com/3", "/search/movie", a)
	keyB := cache.Key("get", "https://api.example.com/3/", "/search/movie", b)
	if keyA != keyB {
		t.Fatalf("expected identical keys, got %q and %q", keyA, keyB)
	}
}

func TestKeyDistinguishesRequests(t *testing.T) {
	params := url.Values{}
	params.Set("query", "Heat")

	base := cache.Key("GET", "https://api.example.com", "/search/movie", params)
	cases := map[string]string{
		"different endpoint": cache.Key("GET", "https://api.example.com", "/movie/949", params),
		"different method":   cache.Key("POST", "https://api.example.com", "/search/movie", params),
		"different base":     cache.Key("GET", "https://api.other.com", "/search/movie", params),
		"different params":   cache.Key("GET", "https://api.example.com", "/search/movie", url.Values{"query": {"Ronin"}}),
	}
	for name, key := range cases {
		if key == base {
			t.Errorf("%s: expected distinct key", name)
		}
	}
}

func TestKeyHasGatewayPrefix(t *testing.T) {
	key := cache.Key("GET", "https://api.example.com", "/movie/603", nil)
	if len(key) < 4 || key[:3] != "gw:" {
		t.Fatalf("expected gw: prefix, got %q", key)
	}
}

func TestMemoryRoundTrip(t *testing.T) {
	store := cache.NewMemory(time.Hour)
	defer store.Close()
	ctx := context.Background()

	body := []byte(`{"id":603,"title":"The Matrix"}`)
	if err := store.Set(ctx, "gw:abc", body, time.Hour); err != nil {
		t.Fatalf("Set: %v", err)
	}

	got, ok, err := store.Get(ctx, "gw:abc")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatal("expected cache hit")
	}
	if !bytes.Equal(got, body) {
		t.Fatalf("expected byte-for-byte replay, got %s", got)
	}

	// Mutating the returned slice must not corrupt the stored copy.
	got[0] = 'X'
	again, ok, err := store.Get(ctx, "gw:abc")
	if err != nil || !ok {
		t.Fatalf("second Get: ok=%v err=%v", ok, err)
	}
	if !bytes.Equal(again, body) {
		t.Fatal("stored value was mutated through the returned slice")
	}
}

func TestMemoryMiss(t *testing.T) {
	store := cache.NewMemory(time.Hour)
	defer store.Close()

	_, ok, err := store.Get(context.Background(), "gw:absent")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ok {
		t.Fatal("expected miss for absent key")
	}
}

func TestMemoryExpiry(t *testing.T) {
	store := cache.NewMemory(time.Hour)
	defer store.Close()
	ctx := context.Background()

	if err := store.Set(ctx, "gw:short", []byte("v"), 10*time.Millisecond); err != nil {
		t.Fatalf("Set: %v", err)
	}
	time.Sleep(30 * time.Millisecond)

	_, ok, err := store.Get(ctx, "gw:short")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ok {
		t.Fatal("expected expired entry to miss")
	}
}

func TestMemoryDelete(t *testing.T) {
	store := cache.NewMemory(time.Hour)
	defer store.Close()
	ctx := context.Background()

	if err := store.Set(ctx, "gw:del", []byte("v"), time.Hour); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := store.Delete(ctx, "gw:del"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok, _ := store.Get(ctx, "gw:del"); ok {
		t.Fatal("expected miss after delete")
	}
	if err := store.Delete(ctx, "gw:del"); err != nil {
		t.Fatalf("Delete absent key: %v", err)
	}
}

func TestBadgerRoundTrip(t *testing.T) {
	store, err := cache.NewBadger(t.TempDir(), time.Hour)
	if err != nil {
		t.Fatalf("NewBadger: %v", err)
	}
	defer store.Close()
	ctx := context.Background()

	body := []byte(`{"imdbRating":"8.7"}`)
	if err := store.Set(ctx, "gw:badger", body, time.Hour); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, ok, err := store.Get(ctx, "gw:badger")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok || !bytes.Equal(got, body) {
		t.Fatalf("expected hit with original body, ok=%v got=%s", ok, got)
	}

	if _, ok, _ := store.Get(ctx, "gw:missing"); ok {
		t.Fatal("expected miss for absent key")
	}
}

func TestNewSelectsBackend(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	memory, err := cache.New(cfg)
	if err != nil {
		t.Fatalf("New memory: %v", err)
	}
	memory.Close()

	cfg.Cache.Backend = "badger"
	badgerStore, err := cache.New(cfg)
	if err != nil {
		t.Fatalf("New badger: %v", err)
	}
	badgerStore.Close()

	cfg.Cache.Backend = "redis"
	if _, err := cache.New(cfg); err == nil {
		t.Fatal("expected error for unsupported backend")
	}
}

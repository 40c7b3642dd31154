package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Ayman-Nadim/SmartAqar-Full-Stack/internal/models"
)

func providerServer(t *testing.T, handler http.HandlerFunc) *HTTPConfirmedClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewConfirmedClient(srv.URL+"/", time.Second, time.Second)
}

func TestConfirmedRegister(t *testing.T) {
	client := providerServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/v1/register" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		var reg ConfirmedRegistration
		json.NewDecoder(r.Body).Decode(&reg)
		if reg.CPassword != "secret1" || reg.CountryCode != "MA" {
			t.Errorf("registration = %+v", reg)
		}
		w.Write([]byte(`{"success":true,"data":{"id":42,"name":"Sara","email":"sara@example.com","token":"ct-1",
			"phone_verified_at":"2024-03-01T10:00:00.000000Z","roles":[{"name":"user"}],"credit":{"id":9,"credit":750}}}`))
	})

	user, err := client.Register(context.Background(), ConfirmedRegistration{
		Name: "Sara", Email: "sara@example.com", Password: "secret1", CPassword: "secret1", CountryCode: "MA",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if user.ID != 42 || user.Token != "ct-1" || user.CreditValue() != 750 {
		t.Errorf("user = %+v", user)
	}
	if len(user.Roles) != 1 || user.Roles[0] != "user" {
		t.Errorf("roles = %v", user.Roles)
	}
}

func TestConfirmedProviderError(t *testing.T) {
	client := providerServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"success":false,"message":"The email has already been taken.","errors":{"email":["taken"]}}`))
	})

	_, err := client.Register(context.Background(), ConfirmedRegistration{})
	var pe *ProviderError
	if !errors.As(err, &pe) {
		t.Fatalf("err = %v, want ProviderError", err)
	}
	if pe.Status != http.StatusUnprocessableEntity || pe.Message != "The email has already been taken." {
		t.Errorf("provider error = %+v", pe)
	}
	details, ok := pe.Details.(map[string]interface{})
	if !ok || details["errors"] == nil {
		t.Errorf("details = %#v", pe.Details)
	}
}

func TestConfirmedUnsuccessfulEnvelope(t *testing.T) {
	client := providerServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":false}`))
	})
	_, err := client.CurrentUser(context.Background(), "tok")
	var pe *ProviderError
	if !errors.As(err, &pe) || pe.Message != "1Confirmed API error" {
		t.Errorf("err = %v", err)
	}
}

func TestConfirmedUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	client := NewConfirmedClient(url, time.Second, time.Second)
	if _, err := client.Profile(context.Background(), "tok"); !errors.Is(err, ErrProviderUnavailable) {
		t.Errorf("err = %v, want ErrProviderUnavailable", err)
	}
}

func TestConfirmedTimeout(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-block:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() { close(block); srv.Close() })

	client := NewConfirmedClient(srv.URL, time.Second, 20*time.Millisecond)
	if _, err := client.CurrentUser(context.Background(), "tok"); !errors.Is(err, ErrProviderUnavailable) {
		t.Errorf("err = %v, want ErrProviderUnavailable", err)
	}
}

func TestConfirmedSendsBearerToken(t *testing.T) {
	client := providerServer(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer ct-9" {
			t.Errorf("Authorization = %q", got)
		}
		if r.URL.Path != "/api/v1/user" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Write([]byte(`{"success":true,"data":{"id":9}}`))
	})
	if _, err := client.CurrentUser(context.Background(), "ct-9"); err != nil {
		t.Fatal(err)
	}
}

type memoryCache struct {
	mu   sync.Mutex
	data map[string][]byte
	ttls map[string]time.Duration
}

func newMemoryCache() *memoryCache {
	return &memoryCache{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (c *memoryCache) Get(_ context.Context, key string, dest interface{}) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, ok := c.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dest)
}

func (c *memoryCache) Set(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, err := json.Marshal(value)
	c.data[key] = raw
	c.ttls[key] = ttl
	return err
}

func (c *memoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

type countingClient struct {
	ConfirmedClient
	calls int
	err   error
}

func (c *countingClient) CurrentUser(context.Context, string) (*ConfirmedUser, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return &ConfirmedUser{ID: 7, Credit: &ConfirmedCredit{Credit: 300}}, nil
}

func TestCachedConfirmedClient(t *testing.T) {
	next := &countingClient{}
	cache := newMemoryCache()
	client := NewCachedConfirmedClient(next, cache, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		u, err := client.CurrentUser(ctx, "secret-token")
		if err != nil || u.ID != 7 || u.CreditValue() != 300 {
			t.Fatalf("call %d: %+v, %v", i, u, err)
		}
	}
	if next.calls != 1 {
		t.Errorf("provider called %d times, want 1", next.calls)
	}

	key := ConfirmedCacheKey("secret-token")
	if !strings.HasPrefix(key, "confirmed:user:") || strings.Contains(key, "secret-token") || len(key) != len("confirmed:user:")+64 {
		t.Errorf("key = %q", key)
	}
	if cache.ttls[key] != time.Minute {
		t.Errorf("ttl = %v", cache.ttls[key])
	}

	client.Forget(ctx, "secret-token")
	client.CurrentUser(ctx, "secret-token")
	if next.calls != 2 {
		t.Errorf("after Forget provider called %d times, want 2", next.calls)
	}
}

func TestCachedConfirmedClientDoesNotCacheErrors(t *testing.T) {
	next := &countingClient{err: ErrProviderUnavailable}
	client := NewCachedConfirmedClient(next, newMemoryCache(), time.Minute)
	for i := 0; i < 2; i++ {
		if _, err := client.CurrentUser(context.Background(), "t"); !errors.Is(err, ErrProviderUnavailable) {
			t.Fatalf("err = %v", err)
		}
	}
	if next.calls != 2 {
		t.Errorf("calls = %d", next.calls)
	}
}

func TestApplyConfirmedUser(t *testing.T) {
	lang := "fr"
	verified := "2024-03-01 10:00:00"
	user := &models.User{Credit: 500, Roles: []string{"user"}}

	ApplyConfirmedUser(user, &ConfirmedUser{
		ID:                7,
		Language:          &lang,
		PhoneVerifiedAt:   &verified,
		TwoFactorEnabled:  true,
		Credit:            &ConfirmedCredit{Credit: 0},
		CustomCredit:      []string{"promo"},
		TwoFactorVerified: true,
	})

	if user.ConfirmedUserID == nil || *user.ConfirmedUserID != 7 {
		t.Errorf("confirmed id = %v", user.ConfirmedUserID)
	}
	if user.Credit != 500 {
		t.Errorf("zero provider credit should keep local credit, got %d", user.Credit)
	}
	if user.Language == nil || *user.Language != "fr" || !user.TwoFactorEnabled || !user.TwoFactorVerified {
		t.Errorf("user = %+v", user)
	}
	if user.PhoneVerifiedAt == nil || user.PhoneVerifiedAt.Year() != 2024 {
		t.Errorf("phone verified = %v", user.PhoneVerifiedAt)
	}
	if len(user.Roles) != 1 || len(user.CustomCredit) != 1 {
		t.Errorf("roles/custom credit = %v / %v", user.Roles, user.CustomCredit)
	}
}

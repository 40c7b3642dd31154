package services

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Ayman-Nadim/SmartAqar-Full-Stack/internal/models"
	"github.com/rs/zerolog"
)

// ErrProviderUnavailable wraps transport failures: the provider could not be
// reached or did not answer in time.
var ErrProviderUnavailable = errors.New("1Confirmed unavailable")

// ProviderError is a reply from 1Confirmed that was not a success.
type ProviderError struct {
	Status  int
	Message string
	Details interface{}
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("1Confirmed error (%d): %s", e.Status, e.Message)
}

type ConfirmedRegistration struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	Password    string `json:"password"`
	CPassword   string `json:"c_password"`
	CountryCode string `json:"country_code"`
}

// ConfirmedUser is the user document 1Confirmed returns.
type ConfirmedUser struct {
	ID                          int64            `json:"id"`
	Name                        string           `json:"name"`
	Email                       string           `json:"email"`
	Phone                       string           `json:"phone"`
	Token                       string           `json:"token,omitempty"`
	Language                    *string          `json:"language"`
	PhoneVerifiedAt             *string          `json:"phone_verified_at"`
	TwoFactorEnabled            bool             `json:"two_factor_enabled"`
	TwoFactorVerified           bool             `json:"two_factor_verified"`
	FirstMessageWizardCompleted bool             `json:"first_message_wizard_completed"`
	Roles                       RoleList         `json:"roles"`
	Credit                      *ConfirmedCredit `json:"credit"`
	Subscription                interface{}      `json:"subscription"`
	CRAccount                   interface{}      `json:"cr_account"`
	Accounts                    []interface{}    `json:"accounts"`
	CustomCredit                []string         `json:"custom_credit"`
}

type ConfirmedCredit struct {
	ID     int64 `json:"id"`
	Credit int   `json:"credit"`
}

// CreditValue returns the provider credit, or 0 when none was sent.
func (u *ConfirmedUser) CreditValue() int {
	if u == nil || u.Credit == nil {
		return 0
	}
	return u.Credit.Credit
}

// RoleList accepts roles as plain strings or as {"name": ...} objects.
type RoleList []string

func (r *RoleList) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		// null or a non-array
		*r = nil
		return nil
	}
	out := make(RoleList, 0, len(raw))
	for _, item := range raw {
		var name string
		if err := json.Unmarshal(item, &name); err == nil {
			out = append(out, name)
			continue
		}
		var obj struct {
			Name string `json:"name"`
		}
		if err := json.Unmarshal(item, &obj); err == nil && obj.Name != "" {
			out = append(out, obj.Name)
		}
	}
	*r = out
	return nil
}

type ConfirmedClient interface {
	Register(ctx context.Context, reg ConfirmedRegistration) (*ConfirmedUser, error)
	// CurrentUser reads GET /api/v1/user with the caller's provider token.
	CurrentUser(ctx context.Context, token string) (*ConfirmedUser, error)
	// Profile reads GET /api/v1/profile.
	Profile(ctx context.Context, token string) (*ConfirmedUser, error)
}

type HTTPConfirmedClient struct {
	baseURL         string
	client          *http.Client
	registerTimeout time.Duration
	readTimeout     time.Duration
}

func NewConfirmedClient(baseURL string, registerTimeout, readTimeout time.Duration) *HTTPConfirmedClient {
	return &HTTPConfirmedClient{
		baseURL:         strings.TrimRight(baseURL, "/"),
		client:          &http.Client{},
		registerTimeout: registerTimeout,
		readTimeout:     readTimeout,
	}
}

type providerEnvelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (c *HTTPConfirmedClient) Register(ctx context.Context, reg ConfirmedRegistration) (*ConfirmedUser, error) {
	body, err := json.Marshal(reg)
	if err != nil {
		return nil, err
	}
	return c.do(ctx, c.registerTimeout, http.MethodPost, "/api/v1/register", "", body)
}

func (c *HTTPConfirmedClient) CurrentUser(ctx context.Context, token string) (*ConfirmedUser, error) {
	return c.do(ctx, c.readTimeout, http.MethodGet, "/api/v1/user", token, nil)
}

func (c *HTTPConfirmedClient) Profile(ctx context.Context, token string) (*ConfirmedUser, error) {
	return c.do(ctx, c.readTimeout, http.MethodGet, "/api/v1/profile", token, nil)
}

func (c *HTTPConfirmedClient) do(ctx context.Context, timeout time.Duration, method, path, token string, body []byte) (*ConfirmedUser, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build 1Confirmed request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %v", ErrProviderUnavailable, method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrProviderUnavailable, path, err)
	}

	zerolog.Ctx(ctx).Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("1Confirmed call")

	var env providerEnvelope
	decodeErr := json.Unmarshal(raw, &env)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, newProviderError(resp.StatusCode, raw, env, decodeErr)
	}
	if decodeErr != nil {
		return nil, &ProviderError{Status: resp.StatusCode, Message: "malformed response", Details: string(raw)}
	}
	if !env.Success {
		return nil, newProviderError(resp.StatusCode, raw, env, nil)
	}

	var user ConfirmedUser
	if err := json.Unmarshal(env.Data, &user); err != nil {
		return nil, &ProviderError{Status: resp.StatusCode, Message: "malformed user payload", Details: string(raw)}
	}
	return &user, nil
}

func newProviderError(status int, raw []byte, env providerEnvelope, decodeErr error) *ProviderError {
	pe := &ProviderError{Status: status, Message: env.Message}
	if pe.Message == "" {
		pe.Message = "1Confirmed API error"
	}
	var details interface{}
	if decodeErr == nil && json.Unmarshal(raw, &details) == nil {
		pe.Details = details
	} else {
		pe.Details = strings.TrimSpace(string(raw))
	}
	return pe
}

// CachedConfirmedClient caches CurrentUser replies per provider token.
// Register and Profile always go to the provider.
type CachedConfirmedClient struct {
	ConfirmedClient
	cache Cache
	ttl   time.Duration
}

func NewCachedConfirmedClient(next ConfirmedClient, cache Cache, ttl time.Duration) *CachedConfirmedClient {
	return &CachedConfirmedClient{ConfirmedClient: next, cache: cache, ttl: ttl}
}

// ConfirmedCacheKey hashes the token so raw credentials never become Redis keys.
func ConfirmedCacheKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return "confirmed:user:" + hex.EncodeToString(sum[:])
}

func (c *CachedConfirmedClient) CurrentUser(ctx context.Context, token string) (*ConfirmedUser, error) {
	key := ConfirmedCacheKey(token)
	log := zerolog.Ctx(ctx)

	var cached ConfirmedUser
	hit, err := c.cache.Get(ctx, key, &cached)
	if err != nil {
		log.Warn().Err(err).Msg("confirmed cache read failed")
	}
	if hit {
		return &cached, nil
	}

	user, err := c.ConfirmedClient.CurrentUser(ctx, token)
	if err != nil {
		return nil, err
	}
	if err := c.cache.Set(ctx, key, user, c.ttl); err != nil {
		log.Warn().Err(err).Msg("confirmed cache write failed")
	}
	return user, nil
}

// Forget drops the cached reply for token.
func (c *CachedConfirmedClient) Forget(ctx context.Context, token string) {
	if err := c.cache.Delete(ctx, ConfirmedCacheKey(token)); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("confirmed cache delete failed")
	}
}

var phoneVerifiedLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.000000Z",
	"2006-01-02 15:04:05",
}

func parseProviderTime(s *string) *time.Time {
	if s == nil || *s == "" {
		return nil
	}
	for _, layout := range phoneVerifiedLayouts {
		if t, err := time.Parse(layout, *s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

// ApplyConfirmedUser copies the provider-owned fields of cu onto user. A zero
// credit, an empty language and empty role lists keep the local value.
func ApplyConfirmedUser(user *models.User, cu *ConfirmedUser) {
	if cu == nil {
		return
	}
	if cu.ID != 0 {
		id := cu.ID
		user.ConfirmedUserID = &id
	}
	if credit := cu.CreditValue(); credit > 0 {
		user.Credit = credit
	}
	user.PhoneVerifiedAt = parseProviderTime(cu.PhoneVerifiedAt)
	user.TwoFactorEnabled = cu.TwoFactorEnabled
	user.TwoFactorVerified = cu.TwoFactorVerified
	user.FirstMessageWizardCompleted = cu.FirstMessageWizardCompleted
	if cu.Language != nil && *cu.Language != "" {
		lang := *cu.Language
		user.Language = &lang
	}
	if len(cu.Roles) > 0 {
		user.Roles = []string(cu.Roles)
	}
	if cu.Accounts != nil {
		user.Accounts = cu.Accounts
	}
	if cu.CustomCredit != nil {
		user.CustomCredit = cu.CustomCredit
	}
}

package app

import (
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/and161185/grocery-keeper/internal/config"
	"github.com/and161185/grocery-keeper/internal/devapi"
	"github.com/and161185/grocery-keeper/internal/errs"
	"github.com/and161185/grocery-keeper/internal/limiter"
	"github.com/and161185/grocery-keeper/internal/model"
)

func ptr[T any](v T) *T { return &v }

type resetBox struct {
	mu     sync.Mutex
	tokens map[string]string
}

func (b *resetBox) put(email, token string) {
	b.mu.Lock()
	b.tokens[email] = token
	b.mu.Unlock()
}

func (b *resetBox) get(email string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.tokens[email]
}

func startAPI(t *testing.T) (*httptest.Server, *resetBox) {
	t.Helper()
	resets := &resetBox{tokens: map[string]string{}}
	s, err := devapi.New(devapi.Config{JWTKey: []byte("test-key")}, zaptest.NewLogger(t),
		devapi.WithResetHook(resets.put))
	require.NoError(t, err)
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return srv, resets
}

func openApp(t *testing.T, apiURL, dir string) *App {
	t.Helper()
	cfg := &config.Config{APIURL: apiURL, Timeout: 5 * time.Second, Store: config.StoreFile, DataDir: dir, SealToken: true,
		LoginMaxFails: 3, LoginWindow: time.Minute, LoginBlock: time.Minute}
	a, err := Open(context.Background(), cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestEndToEnd_SessionSurvivesRestart(t *testing.T) {
	srv, _ := startAPI(t)
	dir := t.TempDir()
	ctx := context.Background()

	a := openApp(t, srv.URL, dir)
	ok, err := a.Auth.LoggedIn(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	u, err := a.Auth.Register(ctx, "Ann", "ann@x.io", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "1", u.ID)

	// a second process over the same directory sees the session
	b := openApp(t, srv.URL, dir)
	ok, err = b.Auth.LoggedIn(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	cur, err := b.Auth.CurrentUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, u, cur)

	upd, err := b.Auth.UpdateUser(ctx, model.UserPatch{Name: ptr("Annie")})
	require.NoError(t, err)
	assert.Equal(t, "1", upd.ID, "string and numeric ids normalize alike")
	cur, _ = b.Auth.CurrentUser(ctx)
	assert.Equal(t, "Annie", cur.Name)

	require.NoError(t, b.Auth.Logout(ctx))
	ok, _ = openApp(t, srv.URL, dir).Auth.LoggedIn(ctx)
	assert.False(t, ok)
}

func TestEndToEnd_Products(t *testing.T) {
	srv, _ := startAPI(t)
	ctx := context.Background()
	a := openApp(t, srv.URL, t.TempDir())

	ps, err := a.Products.List(ctx)
	require.NoError(t, err)
	assert.NotNil(t, ps)
	assert.Empty(t, ps)

	np := model.NewProduct{Name: "Apple", Description: "Red", Price: decimal.RequireFromString("2.99"), Category: "Fruits", Quantity: 5}
	_, err = a.Products.Add(ctx, np)
	require.ErrorIs(t, err, errs.ErrServerRejected, "adding needs a session")

	_, err = a.Auth.Register(ctx, "Ann", "ann@x.io", "secret1")
	require.NoError(t, err)

	p, err := a.Products.Add(ctx, np)
	require.NoError(t, err)
	assert.True(t, p.Price.Equal(np.Price))
	assert.NotEmpty(t, p.CreatedAt)

	_, err = a.Products.Add(ctx, model.NewProduct{Name: "Milk", Description: "1l", Price: decimal.NewFromInt(1), Category: "Dairy"})
	require.NoError(t, err)

	p, err = a.Products.Update(ctx, p.ID, model.ProductPatch{Quantity: ptr(3)})
	require.NoError(t, err)
	assert.Equal(t, 3, p.Quantity)

	c, err := a.Products.Catalog(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Fruits", "Dairy"}, c.Categories)

	require.NoError(t, a.Products.Delete(ctx, p.ID))
	_, err = a.Products.Get(ctx, p.ID)
	require.ErrorIs(t, err, errs.ErrServerRejected)
	assert.Equal(t, "An error occurred: Product not found", err.Error())
}

func TestEndToEnd_PasswordResetAndThrottle(t *testing.T) {
	srv, resets := startAPI(t)
	ctx := context.Background()
	a := openApp(t, srv.URL, t.TempDir())

	_, err := a.Auth.Register(ctx, "Ann", "ann@x.io", "secret1")
	require.NoError(t, err)
	require.NoError(t, a.Auth.Logout(ctx))

	msg, err := a.Auth.ForgotPassword(ctx, "ann@x.io")
	require.NoError(t, err)
	assert.NotEmpty(t, msg)
	_, err = a.Auth.ResetPassword(ctx, resets.get("ann@x.io"), "newpass")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err = a.Auth.Login(ctx, "ann@x.io", "secret1")
		require.ErrorIs(t, err, errs.ErrServerRejected)
	}
	_, err = a.Auth.Login(ctx, "ann@x.io", "newpass")
	require.ErrorIs(t, err, errs.ErrValidation, "blocked locally")

	b := openApp(t, srv.URL, t.TempDir())
	u, err := b.Auth.Login(ctx, "ann@x.io", "newpass")
	require.NoError(t, err)
	assert.Equal(t, "Ann", u.Name)
}

func TestEndToEnd_Unreachable(t *testing.T) {
	srv, _ := startAPI(t)
	url := srv.URL
	srv.Close()

	a := openApp(t, url, t.TempDir())
	_, err := a.Auth.Login(context.Background(), "ann@x.io", "secret1")
	require.ErrorIs(t, err, errs.ErrUnreachable)
	assert.Equal(t, errs.MsgUnreachable, err.Error())
}

func TestNew_ExplicitDeps(t *testing.T) {
	t.Parallel()
	a := New(&config.Config{APIURL: "http://x", Timeout: time.Second},
		Deps{Limiter: limiter.NewMemory(limiter.Policy{})}, nil)
	assert.NotNil(t, a.Auth)
	assert.NotNil(t, a.Products)
}

func TestOpen_PassphraseSealing(t *testing.T) {
	srv, _ := startAPI(t)
	dir := t.TempDir()
	ctx := context.Background()
	open := func(pass string) *App {
		cfg := &config.Config{APIURL: srv.URL, Timeout: 5 * time.Second, Store: config.StoreFile, DataDir: dir,
			SealToken: true, SealPass: pass}
		a, err := Open(ctx, cfg, zaptest.NewLogger(t))
		require.NoError(t, err)
		t.Cleanup(func() { _ = a.Close() })
		return a
	}

	_, err := open("pantry").Auth.Register(ctx, "Ann", "ann@x.io", "secret1")
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "salt.bin"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "key.bin"))
	require.ErrorIs(t, err, os.ErrNotExist)

	ok, err := open("pantry").Auth.LoggedIn(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = open("other").Auth.LoggedIn(ctx)
	require.Error(t, err, "a different passphrase cannot open the token")
}

func TestEndToEnd_ThrottleSurvivesRestart(t *testing.T) {
	srv, _ := startAPI(t)
	dir := t.TempDir()
	ctx := context.Background()

	_, err := openApp(t, srv.URL, dir).Auth.Register(ctx, "Ann", "ann@x.io", "secret1")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err = openApp(t, srv.URL, dir).Auth.Login(ctx, "ann@x.io", "wrong")
		require.ErrorIs(t, err, errs.ErrServerRejected)
	}
	_, err = openApp(t, srv.URL, dir).Auth.Login(ctx, "ann@x.io", "secret1")
	require.ErrorIs(t, err, errs.ErrValidation, "lockout persists in the data dir")
}

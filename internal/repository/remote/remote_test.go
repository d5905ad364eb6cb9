package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/and161185/grocery-keeper/internal/errs"
	"github.com/and161185/grocery-keeper/internal/model"
)

type call struct {
	method, path string
	body         any
}

type fakeCaller struct {
	calls []call
	resp  any
	err   error
}

var _ Caller = (*fakeCaller)(nil)

func (f *fakeCaller) Call(_ context.Context, method, path string, body any) (any, error) {
	f.calls = append(f.calls, call{method, path, body})
	return f.resp, f.err
}

// reply decodes s the way the transport does.
func reply(t *testing.T, s string) any {
	t.Helper()
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	var v any
	require.NoError(t, dec.Decode(&v))
	return v
}

type fakeSession struct {
	token    string
	user     *model.User
	saveErr  error
	userErr  error
	clearErr error
	cleared  int
}

var _ SessionStore = (*fakeSession)(nil)

func (f *fakeSession) SaveToken(_ context.Context, t string) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.token = t
	return nil
}

func (f *fakeSession) SetCurrentUser(_ context.Context, u model.User) error {
	if f.userErr != nil {
		return f.userErr
	}
	f.user = &u
	return nil
}

func (f *fakeSession) CurrentUser(context.Context) (model.User, error) {
	if f.userErr != nil {
		return model.User{}, f.userErr
	}
	if f.user == nil {
		return model.User{}, errs.ErrNotFound
	}
	return *f.user, nil
}

func (f *fakeSession) LoggedIn(context.Context) (bool, error) {
	return f.token != "" && f.user != nil, nil
}

func (f *fakeSession) ClearSession(context.Context) error {
	if f.clearErr != nil {
		return f.clearErr
	}
	f.cleared++
	f.token, f.user = "", nil
	return nil
}

const authBody = `{"token":"T","user":{"id":7,"name":"Ann","email":"ann@x.io"}}`

func TestAuth_Login_PersistsSession(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c := &fakeCaller{resp: reply(t, authBody)}
	s := &fakeSession{}
	a := NewAuth(c, s, zaptest.NewLogger(t))

	u, err := a.Login(ctx, "ann@x.io", "secret")
	require.NoError(t, err)
	assert.Equal(t, model.User{ID: "7", Name: "Ann", Email: "ann@x.io"}, u)

	require.Len(t, c.calls, 1)
	assert.Equal(t, "POST", c.calls[0].method)
	assert.Equal(t, "/auth/login", c.calls[0].path)
	assert.Equal(t, map[string]any{"email": "ann@x.io", "password": "secret"}, c.calls[0].body)

	assert.Equal(t, "T", s.token)
	require.NotNil(t, s.user)
	assert.Equal(t, "7", s.user.ID)

	ok, err := a.LoggedIn(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAuth_Register_Path(t *testing.T) {
	t.Parallel()
	c := &fakeCaller{resp: reply(t, authBody)}
	_, err := NewAuth(c, &fakeSession{}, nil).Register(context.Background(), "Ann", "ann@x.io", "secret")
	require.NoError(t, err)
	assert.Equal(t, "/auth/register", c.calls[0].path)
	assert.Equal(t, "Ann", c.calls[0].body.(map[string]any)["name"])
}

func TestAuth_FailureClassification(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		resp any
		err  error
		kind errs.Kind
		msg  string
	}{
		{"rejected", nil, &errs.StatusError{Code: 401, Reason: "Invalid credentials"}, errs.KindServerRejected, "An error occurred: Invalid credentials"},
		{"unreachable", nil, &net.OpError{Op: "dial", Err: errors.New("refused")}, errs.KindUnreachable, errs.MsgUnreachable},
		{"malformed", map[string]any{"token": "T"}, nil, errs.KindUnexpected, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := &fakeSession{}
			a := NewAuth(&fakeCaller{resp: tc.resp, err: tc.err}, s, zaptest.NewLogger(t))
			_, err := a.Login(context.Background(), "a@b.com", "x")

			var ce *errs.Error
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tc.kind, ce.Kind)
			if tc.msg != "" {
				assert.Equal(t, tc.msg, ce.Message)
			}
			assert.Empty(t, s.token, "no session on failure")
			assert.Nil(t, s.user)
		})
	}
}

func TestAuth_StorageFailureIsUnexpected(t *testing.T) {
	t.Parallel()
	s := &fakeSession{saveErr: &net.OpError{Op: "write", Err: errors.New("redis down")}}
	a := NewAuth(&fakeCaller{resp: reply(t, authBody)}, s, nil)

	_, err := a.Login(context.Background(), "a@b.com", "x")
	assert.Equal(t, errs.KindUnexpected, errs.KindOf(err))
}

func TestAuth_ForgotAndReset(t *testing.T) {
	t.Parallel()
	c := &fakeCaller{resp: reply(t, `{"message":"Check your inbox"}`)}
	a := NewAuth(c, &fakeSession{}, nil)

	msg, err := a.ForgotPassword(context.Background(), "a@b.com")
	require.NoError(t, err)
	assert.Equal(t, "Check your inbox", msg)
	assert.Equal(t, "/auth/forgot-password", c.calls[0].path)

	msg, err = a.ResetPassword(context.Background(), "rt", "newpass")
	require.NoError(t, err)
	assert.Equal(t, "Check your inbox", msg)
	assert.Equal(t, "/auth/reset-password", c.calls[1].path)
	assert.Equal(t, map[string]any{"token": "rt", "password": "newpass"}, c.calls[1].body)

	c.resp = reply(t, `{}`)
	_, err = a.ResetPassword(context.Background(), "rt", "newpass")
	assert.Equal(t, errs.KindUnexpected, errs.KindOf(err))
}

func TestAuth_UpdateUser_RefreshesCache(t *testing.T) {
	t.Parallel()
	c := &fakeCaller{resp: reply(t, `{"user":{"id":"7","name":"Bob","email":"ann@x.io"}}`)}
	s := &fakeSession{token: "T", user: &model.User{ID: "7", Name: "Ann", Email: "ann@x.io"}}
	a := NewAuth(c, s, nil)

	name := "Bob"
	u, err := a.UpdateUser(context.Background(), model.UserPatch{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Bob", u.Name)
	assert.Equal(t, "Bob", s.user.Name)
	assert.Equal(t, "PUT", c.calls[0].method)
	assert.Equal(t, map[string]any{"name": "Bob"}, c.calls[0].body)
	assert.Equal(t, "T", s.token, "update does not touch the token")
}

func TestAuth_CurrentUserAndLogout(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c := &fakeCaller{}
	s := &fakeSession{}
	a := NewAuth(c, s, nil)

	_, err := a.CurrentUser(ctx)
	require.ErrorIs(t, err, errs.ErrNotFound)
	assert.Equal(t, errs.MsgNotLoggedIn, err.Error())

	s.token, s.user = "T", &model.User{ID: "1", Name: "A", Email: "a@b.com"}
	u, err := a.CurrentUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, "1", u.ID)

	require.NoError(t, a.Logout(ctx))
	assert.Equal(t, 1, s.cleared)
	ok, _ := a.LoggedIn(ctx)
	assert.False(t, ok)
	assert.Empty(t, c.calls, "session reads and logout never hit the network")

	s.clearErr = errors.New("disk")
	assert.Equal(t, errs.KindUnexpected, errs.KindOf(a.Logout(ctx)))
}

const productJSON = `{"id":"1","name":"Apple","description":"d","price":2.99,"category":"Fruits","quantity":5,"created_at":"t1","updated_at":"t2"}`

func TestProducts_ListGet(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c := &fakeCaller{resp: reply(t, "["+productJSON+"]")}
	r := NewProducts(c, zaptest.NewLogger(t))

	ps, err := r.List(ctx)
	require.NoError(t, err)
	require.Len(t, ps, 1)
	assert.True(t, ps[0].Price.Equal(decimal.RequireFromString("2.99")))

	c.resp = reply(t, `[]`)
	ps, err = r.List(ctx)
	require.NoError(t, err)
	assert.NotNil(t, ps)
	assert.Empty(t, ps)

	c.resp = reply(t, productJSON)
	p, err := r.Get(ctx, "a b/1")
	require.NoError(t, err)
	assert.Equal(t, "Apple", p.Name)
	assert.Equal(t, "/products/a%20b%2F1", c.calls[2].path)
}

func TestProducts_Mutations(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c := &fakeCaller{resp: reply(t, productJSON)}
	r := NewProducts(c, nil)

	_, err := r.Add(ctx, model.NewProduct{Name: "Apple", Description: "d", Price: decimal.RequireFromString("2.99"), Category: "Fruits", Quantity: 5})
	require.NoError(t, err)
	assert.Equal(t, "POST", c.calls[0].method)
	assert.Equal(t, "/addproducts", c.calls[0].path)
	assert.Equal(t, json.Number("2.99"), c.calls[0].body.(map[string]any)["price"])

	q := 3
	_, err = r.Update(ctx, "1", model.ProductPatch{Quantity: &q})
	require.NoError(t, err)
	assert.Equal(t, "PUT", c.calls[1].method)
	assert.Equal(t, "/products/1", c.calls[1].path)
	assert.Equal(t, map[string]any{"quantity": 3}, c.calls[1].body)

	c.resp = nil
	require.NoError(t, r.Delete(ctx, "1"))
	assert.Equal(t, "DELETE", c.calls[2].method)
}

func TestProducts_Errors(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	r := NewProducts(&fakeCaller{err: &errs.StatusError{Code: 404, Reason: "Product not found"}}, nil)
	_, err := r.Get(ctx, "9")
	assert.Equal(t, "An error occurred: Product not found", err.Error())
	assert.ErrorIs(t, r.Delete(ctx, "9"), errs.ErrServerRejected)

	r = NewProducts(&fakeCaller{resp: reply(t, `[{"id":1}]`)}, nil)
	_, err = r.List(ctx)
	assert.Equal(t, errs.KindUnexpected, errs.KindOf(err))

	r = NewProducts(&fakeCaller{err: fmt.Errorf("get: %w", context.DeadlineExceeded)}, nil)
	_, err = r.List(ctx)
	assert.ErrorIs(t, err, errs.ErrUnreachable)
}

package credential

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"portfolio-chat/internal/integrations/paramstore"
)

type fakeGetter struct {
	val   string
	err   error
	calls int
}

func (f *fakeGetter) GetParameter(_ context.Context, _ string) (string, error) {
	f.calls++
	return f.val, f.err
}

func TestStatic(t *testing.T) {
	key, err := Static(" sk-env ").APIKey(context.Background())
	require.NoError(t, err)
	require.Equal(t, "sk-env", key)

	_, err = Static("").APIKey(context.Background())
	require.ErrorIs(t, err, ErrNotConfigured)
}

func TestNewParamStore_Validates(t *testing.T) {
	_, err := NewParamStore(nil, "/chat/openai")
	require.ErrorContains(t, err, "nil")

	_, err = NewParamStore(&fakeGetter{}, " ")
	require.ErrorContains(t, err, "empty")
}

func TestParamStore_JSONToken_Cached(t *testing.T) {
	g := &fakeGetter{val: `{"token":"sk-from-ssm"}`}
	p, err := NewParamStore(g, "/chat/openai")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		key, err := p.APIKey(context.Background())
		require.NoError(t, err)
		require.Equal(t, "sk-from-ssm", key)
	}
	require.Equal(t, 1, g.calls, "SSM must only be called once per process lifetime")
}

func TestParamStore_PlainToken(t *testing.T) {
	p, err := NewParamStore(&fakeGetter{val: "sk-plain\n"}, "/chat/openai")
	require.NoError(t, err)
	key, err := p.APIKey(context.Background())
	require.NoError(t, err)
	require.Equal(t, "sk-plain", key)
}

func TestParamStore_Errors(t *testing.T) {
	cases := []struct {
		name    string
		getter  *fakeGetter
		wantErr string
		notConf bool
	}{
		{name: "getter error", getter: &fakeGetter{err: errors.New("ssm unavailable")}, wantErr: "ssm unavailable"},
		{name: "malformed json", getter: &fakeGetter{val: `{"broken`}, wantErr: "unmarshal"},
		{name: "missing token field", getter: &fakeGetter{val: `{"other":"value"}`}, notConf: true},
		{name: "empty value", getter: &fakeGetter{val: "  "}, notConf: true},
		{name: "parameter missing", getter: &fakeGetter{err: paramstore.ErrNotFound}, notConf: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p, err := NewParamStore(tc.getter, "/chat/openai")
			require.NoError(t, err)
			_, err = p.APIKey(context.Background())
			require.Error(t, err)
			if tc.notConf {
				require.ErrorIs(t, err, ErrNotConfigured)
				return
			}
			require.ErrorContains(t, err, tc.wantErr)
		})
	}
}

func TestParamStore_FailureIsRetried(t *testing.T) {
	g := &fakeGetter{err: errors.New("temporary ssm failure")}
	p, err := NewParamStore(g, "/chat/openai")
	require.NoError(t, err)

	_, err = p.APIKey(context.Background())
	require.Error(t, err)

	g.err = nil
	g.val = "sk-later"
	key, err := p.APIKey(context.Background())
	require.NoError(t, err)
	require.Equal(t, "sk-later", key)
	require.Equal(t, 2, g.calls)
}

func TestChain(t *testing.T) {
	g := &fakeGetter{val: "sk-ssm"}
	p, err := NewParamStore(g, "/chat/openai")
	require.NoError(t, err)

	key, err := Chain{Static(""), nil, p}.APIKey(context.Background())
	require.NoError(t, err)
	require.Equal(t, "sk-ssm", key)

	key, err = Chain{Static("sk-env"), p}.APIKey(context.Background())
	require.NoError(t, err)
	require.Equal(t, "sk-env", key)

	_, err = Chain{Static("")}.APIKey(context.Background())
	require.ErrorIs(t, err, ErrNotConfigured)

	_, err = Chain{}.APIKey(context.Background())
	require.ErrorIs(t, err, ErrNotConfigured)

	g.err = errors.New("boom")
	p2, err := NewParamStore(g, "/chat/openai")
	require.NoError(t, err)
	_, err = Chain{Static(""), p2}.APIKey(context.Background())
	require.ErrorContains(t, err, "boom")
	require.NotErrorIs(t, err, ErrNotConfigured)
}

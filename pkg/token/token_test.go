package token

import (
	"net/http/cookiejar"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCookieString(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		want   string
		wantOK bool
	}{
		{name: "single", raw: "csrftoken=abc", want: "abc", wantOK: true},
		{name: "among others", raw: "sessionid=s1; csrftoken=abc; theme=dark", want: "abc", wantOK: true},
		{name: "percent decoded", raw: "csrftoken=a%20b%2Fc", want: "a b/c", wantOK: true},
		{name: "plus kept", raw: "csrftoken=a+b", want: "a+b", wantOK: true},
		{name: "prefix name does not match", raw: "xcsrftoken=abc", wantOK: false},
		{name: "missing", raw: "sessionid=s1", wantOK: false},
		{name: "empty", raw: "", wantOK: false},
		{name: "malformed escape", raw: "csrftoken=%zz", wantOK: false},
		{name: "first wins", raw: "csrftoken=one; csrftoken=two", want: "one", wantOK: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := CookieString(tt.raw, "csrftoken")
			require.Equal(t, tt.wantOK, ok)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestStringProvider_RereadsSource(t *testing.T) {
	raw := "csrftoken=first"
	p := StringProvider{Source: func() string { return raw }, Name: "csrftoken"}

	v, ok := p.Token()
	require.True(t, ok)
	require.Equal(t, "first", v)

	raw = "csrftoken=second"
	v, ok = p.Token()
	require.True(t, ok)
	require.Equal(t, "second", v)

	_, ok = StringProvider{Name: "csrftoken"}.Token()
	require.False(t, ok)
}

func TestJarProvider(t *testing.T) {
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	u, err := url.Parse("http://kb.local/")
	require.NoError(t, err)

	p := JarProvider{Jar: jar, URL: u, Name: "csrftoken"}
	_, ok := p.Token()
	require.False(t, ok)

	Seed(jar, u, "sessionid=s1; csrftoken=tok%3D1; broken")
	v, ok := p.Token()
	require.True(t, ok)
	require.Equal(t, "tok=1", v)
}

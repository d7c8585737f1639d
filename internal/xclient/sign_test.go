package xclient

import (
	"net/http"
	"strings"
	"testing"
	"time"
)

func fixedClient(t *testing.T) *HTTPClient {
	t.Helper()
	c, err := New(testAccount())
	if err != nil {
		t.Fatal(err)
	}
	c.nowFn = func() time.Time { return time.Unix(1700000000, 0) }
	c.nonceFn = func() string { return "fixednonce" }
	return c
}

func TestOAuth1SignatureIsStableForFixedInputs(t *testing.T) {
	c := fixedClient(t)
	sign := func() string {
		req, _ := http.NewRequest(http.MethodGet, "https://api.twitter.com/2/users/1/tweets?max_results=5", nil)
		c.oauth1Sign(req, map[string]string{"max_results": "5"})
		return req.Header.Get("Authorization")
	}
	first := sign()
	if first == "" || !strings.HasPrefix(first, "OAuth ") {
		t.Fatalf("header %q", first)
	}
	if second := sign(); second != first {
		t.Fatalf("signature not deterministic:\n%s\n%s", first, second)
	}
}

func TestOAuth1SignatureChangesWithMethod(t *testing.T) {
	c := fixedClient(t)
	get, _ := http.NewRequest(http.MethodGet, "https://api.twitter.com/2/tweets", nil)
	post, _ := http.NewRequest(http.MethodPost, "https://api.twitter.com/2/tweets", nil)
	c.oauth1Sign(get, nil)
	c.oauth1Sign(post, nil)
	if get.Header.Get("Authorization") == post.Header.Get("Authorization") {
		t.Fatal("GET and POST must not share a signature")
	}
}

func TestOAuth1HeaderCarriesAllParams(t *testing.T) {
	c := fixedClient(t)
	req, _ := http.NewRequest(http.MethodPost, "https://api.twitter.com/2/tweets", nil)
	c.oauth1Sign(req, nil)
	auth := req.Header.Get("Authorization")
	for _, k := range []string{
		"oauth_consumer_key=\"ck\"",
		"oauth_token=\"at\"",
		"oauth_signature_method=\"HMAC-SHA1\"",
		"oauth_timestamp=\"1700000000\"",
		"oauth_nonce=\"fixednonce\"",
		"oauth_version=\"1.0\"",
		"oauth_signature=",
	} {
		if !strings.Contains(auth, k) {
			t.Fatalf("missing %s in %s", k, auth)
		}
	}
}

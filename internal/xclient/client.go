package xclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"rotapost/internal/metrics"
	"rotapost/internal/model"
)

// ErrMissingCredentials is returned when any of the four OAuth1 secrets is
// absent from an account.
var ErrMissingCredentials = errors.New("missing twitter api credentials")

// Tweet is the posted-item subset returned by the API.
type Tweet struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Client is the posting capability the orchestrators depend on. The real
// network client and the dry-run double both satisfy it.
type Client interface {
	Post(ctx context.Context, text string) (Tweet, error)
	Reply(ctx context.Context, text, inReplyToID string) (Tweet, error)
	// LatestTweet returns the newest original tweet id for handle, or ""
	// when there is none (or none newer than sinceID).
	LatestTweet(ctx context.Context, handle, sinceID string) (string, error)
}

// HTTPClient posts through the X API v2 with OAuth 1.0a user-context signing.
type HTTPClient struct {
	baseURL     string
	creds       model.Account
	httpClient  *http.Client
	limiter     *rate.Limiter
	maxAttempts int
	baseBackoff time.Duration
	nowFn       func() time.Time
	nonceFn     func() string
}

// New constructs a signed client for the account, failing fast when any of
// the four required secrets is absent.
func New(account model.Account) (*HTTPClient, error) {
	if account.APIKey == "" || account.APIKeySecret == "" || account.AccessToken == "" || account.AccessTokenSecret == "" {
		return nil, ErrMissingCredentials
	}
	return &HTTPClient{
		baseURL:     "https://api.twitter.com/2",
		creds:       account,
		httpClient:  &http.Client{Timeout: 15 * time.Second},
		limiter:     sharedLimiter(),
		maxAttempts: getEnvInt("X_API_MAX_ATTEMPTS", 5),
		baseBackoff: time.Duration(getEnvInt("X_API_BASE_BACKOFF_MS", 500)) * time.Millisecond,
		nowFn:       time.Now,
		nonceFn:     defaultNonce,
	}, nil
}

type tweetRequest struct {
	Text  string `json:"text"`
	Reply *struct {
		InReplyToTweetID string `json:"in_reply_to_tweet_id"`
	} `json:"reply,omitempty"`
}

func (c *HTTPClient) createTweet(ctx context.Context, body tweetRequest) (Tweet, error) {
	var out Tweet
	payload, err := json.Marshal(body)
	if err != nil {
		return out, err
	}
	u := c.baseURL + "/tweets"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(payload))
	if err != nil {
		return out, err
	}
	req.Header.Set("Content-Type", "application/json")
	c.oauth1Sign(req, nil)
	if err := c.limiter.Wait(ctx); err != nil {
		return out, err
	}
	resp, err := c.doWithRetry(ctx, req)
	if err != nil {
		return out, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return out, fmt.Errorf("x api status %d", resp.StatusCode)
	}
	var raw struct {
		Data Tweet `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return out, err
	}
	if raw.Data.ID == "" {
		return out, errors.New("empty response from x api")
	}
	return raw.Data, nil
}

// Post publishes a standalone tweet.
func (c *HTTPClient) Post(ctx context.Context, text string) (Tweet, error) {
	return c.createTweet(ctx, tweetRequest{Text: text})
}

// Reply publishes a reply to an existing tweet.
func (c *HTTPClient) Reply(ctx context.Context, text, inReplyToID string) (Tweet, error) {
	body := tweetRequest{Text: text}
	body.Reply = &struct {
		InReplyToTweetID string `json:"in_reply_to_tweet_id"`
	}{InReplyToTweetID: inReplyToID}
	return c.createTweet(ctx, body)
}

func (c *HTTPClient) getJSON(ctx context.Context, u string, params map[string]string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	c.oauth1Sign(req, params)
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	resp, err := c.doWithRetry(ctx, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("x api status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

// LatestTweet resolves handle to a user id and returns their newest original
// tweet id, restricted to tweets after sinceID when one is supplied. An
// unknown handle or an empty timeline yields "" without an error.
func (c *HTTPClient) LatestTweet(ctx context.Context, handle, sinceID string) (string, error) {
	if handle == "" {
		return "", errors.New("empty handle")
	}
	var user struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	u := c.baseURL + "/users/by/username/" + url.PathEscape(handle)
	if err := c.getJSON(ctx, u, nil, &user); err != nil {
		return "", err
	}
	if user.Data.ID == "" {
		return "", nil
	}

	params := map[string]string{
		"max_results": "5",
		"exclude":     "retweets,replies",
	}
	if sinceID != "" {
		params["since_id"] = sinceID
	}
	var timeline struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	tu := c.baseURL + "/users/" + url.PathEscape(user.Data.ID) + "/tweets?" + encodeQuery(params)
	if err := c.getJSON(ctx, tu, params, &timeline); err != nil {
		return "", err
	}
	for _, t := range timeline.Data {
		if t.ID != "" {
			return t.ID, nil
		}
	}
	return "", nil
}

func (c *HTTPClient) doWithRetry(ctx context.Context, req *http.Request) (*http.Response, error) {
	backoff := c.baseBackoff
	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		r := req.Clone(ctx)
		if req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, err
			}
			r.Body = body
		}
		resp, err := c.httpClient.Do(r)
		if err == nil {
			if resp.StatusCode == http.StatusTooManyRequests || (resp.StatusCode >= 500 && resp.StatusCode <= 599) {
				ra := resp.Header.Get("Retry-After")
				_ = resp.Body.Close()
				metrics.IncAPIRetry(req.URL.Path)
				wait := backoff
				if ra != "" {
					if secs, err := strconv.Atoi(ra); err == nil {
						wait = time.Duration(secs) * time.Second
					} else if t, err := http.ParseTime(ra); err == nil {
						if d := time.Until(t); d > 0 {
							wait = d
						}
					}
				}
				select {
				case <-time.After(wait):
				case <-ctx.Done():
					return nil, ctx.Err()
				}
				backoff *= 2
				continue
			}
			return resp, nil
		}
		lastErr = err
		metrics.IncAPIRetry(req.URL.Path)
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		backoff *= 2
	}
	return nil, fmt.Errorf("request failed after %d attempts: %v", c.maxAttempts, lastErr)
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if i, err := strconv.Atoi(v); err == nil && i > 0 {
		return i
	}
	return def
}

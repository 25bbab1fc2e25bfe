package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// refreshPath is the one endpoint that is called without a bearer header.
const refreshPath = "auth/refresh"

var refreshesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "storefront_refreshes_total",
	Help: "Total credential refresh attempts by result",
}, []string{"result"})

// tokenPair is the data payload of a successful refresh response.
type tokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// refreshCall is one in-flight credential refresh. Concurrent authorization
// failures all wait on the same call and observe its single result, so one
// expiry episode consumes the refresh token exactly once.
type refreshCall struct {
	done chan struct{}
	err  error
}

// refreshSession refreshes the session credentials, coalescing concurrent
// callers onto a single in-flight refresh.
func (c *Client) refreshSession(ctx context.Context) error {
	c.refreshMu.Lock()
	if call := c.refreshing; call != nil {
		c.refreshMu.Unlock()
		select {
		case <-call.done:
			return call.err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	call := &refreshCall{done: make(chan struct{})}
	c.refreshing = call
	c.refreshMu.Unlock()

	call.err = c.doRefresh(ctx)

	c.refreshMu.Lock()
	c.refreshing = nil
	c.refreshMu.Unlock()
	close(call.done)

	return call.err
}

// doRefresh performs the actual refresh request and rotates the session
// tokens on success.
func (c *Client) doRefresh(ctx context.Context) error {
	_, refreshToken := c.session.Tokens()
	if refreshToken == "" {
		refreshesTotal.WithLabelValues("failure").Inc()
		return fmt.Errorf("no refresh token available")
	}

	body := fmt.Sprintf(`{"refresh_token":%q}`, refreshToken)

	env, err := c.do(ctx, requestSpec{
		method: http.MethodPost,
		path:   refreshPath,
		body:   []byte(body),
		authed: false,
	})
	if err != nil {
		refreshesTotal.WithLabelValues("failure").Inc()
		c.logger.Warn().Err(err).Msg("Credential refresh failed")
		return fmt.Errorf("refresh credentials: %w", err)
	}

	var pair tokenPair
	if err := unmarshalData(env, &pair); err != nil {
		refreshesTotal.WithLabelValues("failure").Inc()
		return fmt.Errorf("decode refresh response: %w", err)
	}
	if pair.AccessToken == "" {
		refreshesTotal.WithLabelValues("failure").Inc()
		return fmt.Errorf("refresh response missing access token")
	}

	c.session.SetTokens(pair.AccessToken, pair.RefreshToken)
	refreshesTotal.WithLabelValues("success").Inc()
	c.logger.Info().Msg("Session credentials refreshed")

	return nil
}

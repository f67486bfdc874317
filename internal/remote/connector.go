package remote

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/markport/internal/model"
	appErr "github.com/xxxsen/markport/internal/pkg/errors"
)

// Connector opens the repository of an owner. It fails with
// ErrReauthRequired when no usable session exists.
type Connector interface {
	Connect(ctx context.Context, ownerID string) (Repo, error)
}

type SessionStore interface {
	GetByOwner(ctx context.Context, ownerID string) (*model.RemoteSession, error)
}

type SessionConnector struct {
	store  SessionStore
	client *http.Client
	cache  *expirable.LRU[string, *Client]
}

func NewSessionConnector(store SessionStore, httpClient *http.Client, cacheSize int, cacheTTL time.Duration) *SessionConnector {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	c := &SessionConnector{store: store, client: httpClient}
	if cacheSize > 0 && cacheTTL > 0 {
		c.cache = expirable.NewLRU[string, *Client](cacheSize, nil, cacheTTL)
	}
	return c
}

func (c *SessionConnector) Connect(ctx context.Context, ownerID string) (Repo, error) {
	if ownerID == "" {
		return nil, appErr.ErrReauthRequired
	}
	if c.cache != nil {
		if cached, ok := c.cache.Get(ownerID); ok {
			logutil.GetLogger(ctx).Debug("remote session cache hit", zap.String("owner", ownerID))
			return cached, nil
		}
	}
	sess, err := c.store.GetByOwner(ctx, ownerID)
	if err != nil {
		if appErr.IsNotFound(err) {
			return nil, appErr.ErrReauthRequired
		}
		return nil, fmt.Errorf("load remote session: %w", err)
	}
	if sess.ServiceURL == "" || sess.AccessToken == "" {
		return nil, appErr.ErrReauthRequired
	}
	client := NewClient(NewHTTPSession(c.client, sess.ServiceURL, sess.OwnerID, sess.AccessToken))
	if c.cache != nil {
		c.cache.Add(ownerID, client)
	}
	return client, nil
}

// Invalidate drops the cached client of ownerID so the next Connect reads
// the stored session again.
func (c *SessionConnector) Invalidate(ownerID string) {
	if c.cache != nil {
		c.cache.Remove(ownerID)
	}
}

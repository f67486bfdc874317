package service

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/markport/internal/model"
	appErr "github.com/xxxsen/markport/internal/pkg/errors"
	"github.com/xxxsen/markport/internal/repo"
)

// SessionInvalidator drops cached remote clients of an owner.
type SessionInvalidator interface {
	Invalidate(ownerID string)
}

// SessionService stores the remote session handed over by the sign-in flow.
type SessionService struct {
	sessions *repo.SessionRepo
	cache    SessionInvalidator
}

func NewSessionService(sessions *repo.SessionRepo, cache SessionInvalidator) *SessionService {
	return &SessionService{sessions: sessions, cache: cache}
}

func (s *SessionService) Put(ctx context.Context, ownerID, serviceURL, accessToken string) error {
	serviceURL = strings.TrimRight(strings.TrimSpace(serviceURL), "/")
	accessToken = strings.TrimSpace(accessToken)
	uri, err := url.Parse(serviceURL)
	if err != nil || (uri.Scheme != "http" && uri.Scheme != "https") || uri.Host == "" {
		return appErr.ErrInvalid
	}
	if ownerID == "" || accessToken == "" {
		return appErr.ErrInvalid
	}
	now := time.Now().Unix()
	if err := s.sessions.Upsert(ctx, &model.RemoteSession{
		OwnerID:     ownerID,
		ServiceURL:  serviceURL,
		AccessToken: accessToken,
		Ctime:       now,
		Mtime:       now,
	}); err != nil {
		return err
	}
	if s.cache != nil {
		s.cache.Invalidate(ownerID)
	}
	logutil.GetLogger(ctx).Info("remote session stored", zap.String("owner", ownerID), zap.String("service", serviceURL))
	return nil
}

func (s *SessionService) Delete(ctx context.Context, ownerID string) error {
	if err := s.sessions.Delete(ctx, ownerID); err != nil {
		return err
	}
	if s.cache != nil {
		s.cache.Invalidate(ownerID)
	}
	return nil
}

package service

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"tierdrive/internal/domain"
	"tierdrive/internal/repository"
)

type SubscriptionService struct {
	tx       TxRunner
	subs     SubscriptionStore
	packages PackageStore
	logger   *zap.Logger
}

func NewSubscriptionService(tx TxRunner, subs SubscriptionStore, packages PackageStore, logger *zap.Logger) *SubscriptionService {
	return &SubscriptionService{
		tx:       tx,
		subs:     subs,
		packages: packages,
		logger:   logger.Named("subscriptions"),
	}
}

// Activate делает пакет активным для пользователя. Предыдущая активная
// подписка закрывается в той же транзакции, так что активной всегда остаётся одна.
func (s *SubscriptionService) Activate(ctx context.Context, userID string, packageID uuid.UUID) (*domain.UserSubscription, error) {
	if userID == "" {
		return nil, domain.ErrAuthRequired
	}

	var sub *domain.UserSubscription
	err := s.tx.WithTx(ctx, func(q repository.Querier) error {
		if _, err := s.packages.GetByID(ctx, q, packageID); err != nil {
			return err
		}

		activated, err := s.subs.Activate(ctx, q, userID, packageID)
		if err != nil {
			return err
		}
		sub = activated
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("subscription activated",
		zap.String("user_id", userID),
		zap.String("package", sub.PackageSlug))

	return sub, nil
}

// History возвращает все подписки пользователя, новые первыми
func (s *SubscriptionService) History(ctx context.Context, userID string) ([]domain.UserSubscription, error) {
	return s.subs.ListByUser(ctx, s.tx.Querier(), userID)
}

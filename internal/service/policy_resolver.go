package service

import (
	"context"
	"strings"

	"tierdrive/internal/domain"
	"tierdrive/internal/repository"
)

// PolicyResolver возвращает лимиты активного пакета пользователя.
// Ничего не кэширует: каждая проверка читает последнее зафиксированное состояние.
type PolicyResolver struct {
	tx   TxRunner
	subs SubscriptionStore
}

func NewPolicyResolver(tx TxRunner, subs SubscriptionStore) *PolicyResolver {
	return &PolicyResolver{tx: tx, subs: subs}
}

func (r *PolicyResolver) ResolveActive(ctx context.Context, userID string) (*domain.Policy, error) {
	return r.resolveIn(ctx, r.tx.Querier(), userID)
}

// resolveIn читает политику через переданный хендл, внутри транзакции это сама транзакция
func (r *PolicyResolver) resolveIn(ctx context.Context, q repository.Querier, userID string) (*domain.Policy, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, domain.ErrAuthRequired
	}
	return r.subs.FindActivePolicy(ctx, q, userID)
}

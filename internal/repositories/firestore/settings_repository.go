package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	pfirestore "github.com/skm-mango/storefront/internal/platform/firestore"
	"github.com/skm-mango/storefront/internal/repositories"
)

const settingsCollection = "settings"

// SettingsRepository stores one document per setting key.
type SettingsRepository struct {
	provider *pfirestore.Provider
	settings *pfirestore.Collection[settingDocument]
}

var _ repositories.SettingsRepository = (*SettingsRepository)(nil)

// NewSettingsRepository constructs a Firestore-backed settings repository.
func NewSettingsRepository(provider *pfirestore.Provider) (*SettingsRepository, error) {
	if provider == nil {
		return nil, errors.New("settings repository requires firestore provider")
	}
	return &SettingsRepository{
		provider: provider,
		settings: pfirestore.NewCollection[settingDocument](provider, settingsCollection),
	}, nil
}

// All returns every stored setting keyed by name.
func (r *SettingsRepository) All(ctx context.Context) (map[string]string, error) {
	docs, err := r.settings.Query(ctx, nil)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(docs))
	for _, doc := range docs {
		if key := strings.TrimSpace(doc.Key); key != "" {
			out[key] = doc.Value
		}
	}
	return out, nil
}

// Upsert writes every value in one transaction.
func (r *SettingsRepository) Upsert(ctx context.Context, values map[string]string, updatedAt time.Time) error {
	if len(values) == 0 {
		return nil
	}
	write := func(ctx context.Context) error {
		for key, value := range values {
			key = strings.TrimSpace(key)
			if key == "" {
				return errors.New("settings repository: key is required")
			}
			if err := r.settings.Set(ctx, key, settingDocument{Key: key, Value: value, UpdatedAt: updatedAt.UTC()}); err != nil {
				return err
			}
		}
		return nil
	}
	if _, ok := pfirestore.TransactionFromContext(ctx); ok {
		return write(ctx)
	}
	return r.provider.RunTransaction(ctx, func(ctx context.Context, _ *firestore.Transaction) error {
		return write(ctx)
	})
}

package firestore

import (
	"context"
	"errors"
	"strings"

	"cloud.google.com/go/firestore"

	"github.com/skm-mango/storefront/internal/domain"
	pfirestore "github.com/skm-mango/storefront/internal/platform/firestore"
	"github.com/skm-mango/storefront/internal/repositories"
)

const addressCollection = "addresses"

// AddressRepository persists delivery addresses in a top-level collection keyed by address id.
type AddressRepository struct {
	provider  *pfirestore.Provider
	addresses *pfirestore.Collection[addressDocument]
}

var _ repositories.AddressRepository = (*AddressRepository)(nil)

// NewAddressRepository constructs a Firestore-backed address repository.
func NewAddressRepository(provider *pfirestore.Provider) (*AddressRepository, error) {
	if provider == nil {
		return nil, errors.New("address repository requires firestore provider")
	}
	return &AddressRepository{
		provider:  provider,
		addresses: pfirestore.NewCollection[addressDocument](provider, addressCollection),
	}, nil
}

// ListByUser returns every address owned by userID in storage order.
func (r *AddressRepository) ListByUser(ctx context.Context, userID string) ([]domain.Address, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, errors.New("address repository: user id is required")
	}
	docs, err := r.addresses.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("userId", "==", userID)
	})
	if err != nil {
		return nil, err
	}
	out := make([]domain.Address, 0, len(docs))
	for _, doc := range docs {
		out = append(out, doc.toDomain())
	}
	return out, nil
}

// FindByID loads one address regardless of owner so callers can report ownership mismatches.
func (r *AddressRepository) FindByID(ctx context.Context, addressID string) (domain.Address, error) {
	id := strings.TrimSpace(addressID)
	doc, err := r.addresses.Get(ctx, id)
	if err != nil {
		return domain.Address{}, err
	}
	addr := doc.toDomain()
	addr.ID = id
	return addr, nil
}

// Insert creates a new address document.
func (r *AddressRepository) Insert(ctx context.Context, address domain.Address) error {
	if strings.TrimSpace(address.ID) == "" {
		return errors.New("address repository: address id is required")
	}
	return r.addresses.Create(ctx, address.ID, newAddressDocument(address))
}

// Delete removes the address document.
func (r *AddressRepository) Delete(ctx context.Context, addressID string) error {
	return r.addresses.Delete(ctx, strings.TrimSpace(addressID))
}

// SetDefault flips the default flag on one address.
func (r *AddressRepository) SetDefault(ctx context.Context, addressID string, isDefault bool) error {
	ref, err := r.addresses.Doc(ctx, strings.TrimSpace(addressID))
	if err != nil {
		return err
	}
	updates := []firestore.Update{{Path: "isDefault", Value: isDefault}}
	if tx, ok := pfirestore.TransactionFromContext(ctx); ok {
		return pfirestore.WrapError("addresses.setDefault", tx.Update(ref, updates))
	}
	_, err = ref.Update(ctx, updates)
	return pfirestore.WrapError("addresses.setDefault", err)
}

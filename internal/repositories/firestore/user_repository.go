package firestore

import (
	"context"
	"errors"
	"strings"

	"github.com/skm-mango/storefront/internal/domain"
	pfirestore "github.com/skm-mango/storefront/internal/platform/firestore"
	"github.com/skm-mango/storefront/internal/repositories"
)

const userCollection = "users"

// UserRepository reads the account documents written by the auth service.
type UserRepository struct {
	users *pfirestore.Collection[userDocument]
}

var _ repositories.UserRepository = (*UserRepository)(nil)

// NewUserRepository constructs a Firestore-backed user repository.
func NewUserRepository(provider *pfirestore.Provider) (*UserRepository, error) {
	if provider == nil {
		return nil, errors.New("user repository requires firestore provider")
	}
	return &UserRepository{users: pfirestore.NewCollection[userDocument](provider, userCollection)}, nil
}

// FindByID loads the user by UID.
func (r *UserRepository) FindByID(ctx context.Context, userID string) (domain.User, error) {
	id := strings.TrimSpace(userID)
	if id == "" {
		return domain.User{}, errors.New("user id is required")
	}
	doc, err := r.users.Get(ctx, id)
	if err != nil {
		return domain.User{}, err
	}
	return doc.toDomain(id), nil
}

package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/skm-mango/storefront/internal/repositories"
)

const addressIDPrefix = "adr_"

var (
	// ErrAddressInvalidInput signals a missing or malformed address field.
	ErrAddressInvalidInput = errors.New("address: invalid input")
	// ErrAddressNotFound indicates the address does not exist.
	ErrAddressNotFound = errors.New("address: not found")
	// ErrAddressForbidden indicates the address belongs to another user.
	ErrAddressForbidden = errors.New("address: not owned by user")
	// ErrAddressOutsideZone indicates the state is not served.
	ErrAddressOutsideZone = errors.New("address: outside delivery zones")
	// ErrAddressUnavailable indicates the address store could not be reached.
	ErrAddressUnavailable = errors.New("address: unavailable")

	addressPhonePattern   = regexp.MustCompile(`^\d{10}$`)
	addressPincodePattern = regexp.MustCompile(`^\d{6}$`)
)

// AddressFieldError names the offending field of an invalid address.
type AddressFieldError struct {
	Field   string
	Message string
}

func (e *AddressFieldError) Error() string { return e.Message }

func (e *AddressFieldError) Unwrap() error { return ErrAddressInvalidInput }

// AddressServiceDeps bundles collaborators required to construct the address service.
type AddressServiceDeps struct {
	Addresses   repositories.AddressRepository
	Users       repositories.UserRepository
	Zones       ZoneSource
	EnforceZone bool
	UnitOfWork  repositories.UnitOfWork
	Clock       func() time.Time
	IDGenerator func() string
	Logger      func(ctx context.Context, event string, fields map[string]any)
}

type addressService struct {
	addresses   repositories.AddressRepository
	users       repositories.UserRepository
	zones       ZoneSource
	enforceZone bool
	unitOfWork  repositories.UnitOfWork
	clock       func() time.Time
	newID       func() string
	logger      func(context.Context, string, map[string]any)
}

var _ AddressService = (*addressService)(nil)

// NewAddressService wires repositories into an AddressService.
func NewAddressService(deps AddressServiceDeps) (AddressService, error) {
	if deps.Addresses == nil {
		return nil, errors.New("address service: address repository is required")
	}
	if deps.EnforceZone && deps.Zones == nil {
		return nil, errors.New("address service: zone source is required when zones are enforced")
	}
	unit := deps.UnitOfWork
	if unit == nil {
		unit = noopUnitOfWork{}
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string {
			return ulid.Make().String()
		}
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &addressService{
		addresses:   deps.Addresses,
		users:       deps.Users,
		zones:       deps.Zones,
		enforceZone: deps.EnforceZone,
		unitOfWork:  unit,
		clock: func() time.Time {
			return clock().UTC()
		},
		newID:  idGen,
		logger: logger,
	}, nil
}

// ListAddresses returns the default address first, then the rest newest first.
func (s *addressService) ListAddresses(ctx context.Context, userID string) ([]Address, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrAddressInvalidInput)
	}
	addresses, err := s.addresses.ListByUser(ctx, userID)
	if err != nil {
		return nil, s.mapError(err)
	}
	sortAddresses(addresses)
	return addresses, nil
}

// AddAddress validates and stores a new address. The first address, or one flagged default, becomes the default.
func (s *addressService) AddAddress(ctx context.Context, userID string, fields AddressFields) (Address, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return Address{}, fmt.Errorf("%w: user id is required", ErrAddressInvalidInput)
	}
	fields = trimAddressFields(fields)
	if err := validateAddressFields(fields); err != nil {
		return Address{}, err
	}
	if err := s.checkZone(ctx, fields.State); err != nil {
		return Address{}, err
	}

	var saved Address
	err := s.unitOfWork.RunInTx(ctx, func(ctx context.Context) error {
		if s.users != nil {
			if _, err := s.users.FindByID(ctx, userID); err != nil {
				if isRepoNotFound(err) {
					return userFacing(ErrAddressNotFound, "User not found")
				}
				return err
			}
		}
		existing, err := s.addresses.ListByUser(ctx, userID)
		if err != nil {
			return err
		}

		address := Address{
			ID:          addressIDPrefix + s.newID(),
			UserID:      userID,
			FullName:    fields.FullName,
			Phone:       fields.Phone,
			AddressLine: fields.AddressLine,
			City:        fields.City,
			State:       fields.State,
			Pincode:     fields.Pincode,
			IsDefault:   len(existing) == 0 || fields.IsDefault,
			CreatedAt:   s.clock(),
		}
		if fields.IsDefault {
			for _, other := range existing {
				if !other.IsDefault {
					continue
				}
				if err := s.addresses.SetDefault(ctx, other.ID, false); err != nil {
					return err
				}
			}
		}
		if err := s.addresses.Insert(ctx, address); err != nil {
			return err
		}
		saved = address
		return nil
	})
	if err != nil {
		return Address{}, s.mapError(err)
	}

	s.logger(ctx, "address.created", map[string]any{
		"userId":    userID,
		"addressId": saved.ID,
		"default":   saved.IsDefault,
	})
	return saved, nil
}

// DeleteAddress removes an address owned by userID.
func (s *addressService) DeleteAddress(ctx context.Context, userID string, addressID string) error {
	userID = strings.TrimSpace(userID)
	addressID = strings.TrimSpace(addressID)
	if userID == "" || addressID == "" {
		return fmt.Errorf("%w: user id and address id are required", ErrAddressInvalidInput)
	}
	address, err := s.addresses.FindByID(ctx, addressID)
	if err != nil {
		return s.mapError(err)
	}
	if address.UserID != userID {
		return userFacing(ErrAddressForbidden, "Address does not belong to the user")
	}
	if err := s.addresses.Delete(ctx, addressID); err != nil {
		return s.mapError(err)
	}
	return nil
}

func (s *addressService) checkZone(ctx context.Context, state string) error {
	if !s.enforceZone {
		return nil
	}
	zones, err := s.zones.DeliveryZones(ctx)
	if err != nil {
		return err
	}
	folded := foldCase(state)
	for _, zone := range zones {
		if foldCase(zone) == folded {
			return nil
		}
	}
	return userFacing(ErrAddressOutsideZone, "Delivery is available only in: %s", strings.Join(zones, ", "))
}

func (s *addressService) mapError(err error) error {
	if err == nil {
		return nil
	}
	var uErr *userError
	if errors.As(err, &uErr) {
		return uErr
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return userFacing(ErrAddressNotFound, "Address not found")
		case repoErr.IsUnavailable():
			return fmt.Errorf("%w: %v", ErrAddressUnavailable, err)
		}
	}
	return err
}

func validateAddressFields(fields AddressFields) error {
	required := []struct {
		field, value, message string
	}{
		{"full_name", fields.FullName, "Full name is required"},
		{"phone", fields.Phone, "Phone is required"},
		{"address_line", fields.AddressLine, "Address line is required"},
		{"city", fields.City, "City is required"},
		{"state", fields.State, "State is required"},
		{"pincode", fields.Pincode, "Pincode is required"},
	}
	for _, r := range required {
		if r.value == "" {
			return &AddressFieldError{Field: r.field, Message: r.message}
		}
	}
	if !addressPhonePattern.MatchString(fields.Phone) {
		return &AddressFieldError{Field: "phone", Message: "Phone must be 10 digits"}
	}
	if !addressPincodePattern.MatchString(fields.Pincode) {
		return &AddressFieldError{Field: "pincode", Message: "Pincode must be 6 digits"}
	}
	return nil
}

func trimAddressFields(fields AddressFields) AddressFields {
	fields.FullName = strings.TrimSpace(fields.FullName)
	fields.Phone = strings.TrimSpace(fields.Phone)
	fields.AddressLine = strings.TrimSpace(fields.AddressLine)
	fields.City = strings.TrimSpace(fields.City)
	fields.State = strings.TrimSpace(fields.State)
	fields.Pincode = strings.TrimSpace(fields.Pincode)
	return fields
}

func sortAddresses(addresses []Address) {
	sort.SliceStable(addresses, func(i, j int) bool {
		if addresses[i].IsDefault != addresses[j].IsDefault {
			return addresses[i].IsDefault
		}
		return addresses[i].CreatedAt.After(addresses[j].CreatedAt)
	})
}

func isRepoNotFound(err error) bool {
	var repoErr repositories.RepositoryError
	return errors.As(err, &repoErr) && repoErr.IsNotFound()
}

type noopUnitOfWork struct{}

func (noopUnitOfWork) RunInTx(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}

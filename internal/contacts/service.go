package contacts

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"github.com/olegbarsky/tradeport-backend/pkg/db/models"
	pkgerrors "github.com/olegbarsky/tradeport-backend/pkg/errors"
)

// maxContactsPerUser caps the delivery address book.
const maxContactsPerUser = 5

// Service is the contact directory.
type Service interface {
	List(ctx context.Context, userID uint) ([]ContactDTO, error)
	Create(ctx context.Context, userID uint, input CreateContactInput) (*ContactDTO, error)
	Update(ctx context.Context, userID uint, input UpdateContactInput) (*ContactDTO, error)
	Delete(ctx context.Context, userID uint, rawIDs string) (int64, error)
}

type contactsRepo interface {
	ListByUser(ctx context.Context, userID uint) ([]models.Contact, error)
	CountByUser(ctx context.Context, userID uint) (int64, error)
	Create(ctx context.Context, contact *models.Contact) error
	FindOwned(ctx context.Context, id, userID uint) (*models.Contact, error)
	UpdateFields(ctx context.Context, id, userID uint, fields map[string]any) (int64, error)
	DeleteByIDs(ctx context.Context, userID uint, ids []uint) (int64, error)
}

type service struct {
	repo contactsRepo
}

// NewService constructs the contact directory service.
func NewService(repo contactsRepo) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("contacts repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) List(ctx context.Context, userID uint) ([]ContactDTO, error) {
	rows, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list contacts")
	}
	result := make([]ContactDTO, 0, len(rows))
	for _, row := range rows {
		result = append(result, FromModel(row))
	}
	return result, nil
}

func (s *service) Create(ctx context.Context, userID uint, input CreateContactInput) (*ContactDTO, error) {
	count, err := s.repo.CountByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count contacts")
	}
	if count >= maxContactsPerUser {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("at most %d contacts are allowed", maxContactsPerUser))
	}

	contact := models.Contact{
		UserID:    userID,
		City:      strings.TrimSpace(input.City),
		Street:    strings.TrimSpace(input.Street),
		House:     strings.TrimSpace(input.House),
		Structure: strings.TrimSpace(input.Structure),
		Building:  strings.TrimSpace(input.Building),
		Apartment: strings.TrimSpace(input.Apartment),
		Phone:     strings.TrimSpace(input.Phone),
	}
	if err := s.repo.Create(ctx, &contact); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create contact")
	}
	dto := FromModel(contact)
	return &dto, nil
}

func (s *service) Update(ctx context.Context, userID uint, input UpdateContactInput) (*ContactDTO, error) {
	fields := map[string]any{}
	setIf(fields, "city", input.City)
	setIf(fields, "street", input.Street)
	setIf(fields, "house", input.House)
	setIf(fields, "structure", input.Structure)
	setIf(fields, "building", input.Building)
	setIf(fields, "apartment", input.Apartment)
	setIf(fields, "phone", input.Phone)

	if len(fields) > 0 {
		changed, err := s.repo.UpdateFields(ctx, input.ID, userID, fields)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update contact")
		}
		if changed == 0 {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "contact not found")
		}
	}

	contact, err := s.repo.FindOwned(ctx, input.ID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "contact not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load contact")
	}
	dto := FromModel(*contact)
	return &dto, nil
}

func (s *service) Delete(ctx context.Context, userID uint, rawIDs string) (int64, error) {
	ids := parseIDList(rawIDs)
	if len(ids) == 0 {
		return 0, nil
	}
	deleted, err := s.repo.DeleteByIDs(ctx, userID, ids)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete contacts")
	}
	return deleted, nil
}

func setIf(fields map[string]any, column string, value *string) {
	if value != nil {
		fields[column] = strings.TrimSpace(*value)
	}
}

func parseIDList(raw string) []uint {
	parts := strings.Split(raw, ",")
	ids := make([]uint, 0, len(parts))
	for _, part := range parts {
		value, err := strconv.ParseUint(strings.TrimSpace(part), 10, 64)
		if err != nil || value == 0 {
			continue
		}
		ids = append(ids, uint(value))
	}
	return ids
}

// internal/services/user_service.go
package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/gaojunran/tronclass-signin-api-cqupt/internal/models"
	"github.com/gaojunran/tronclass-signin-api-cqupt/internal/repositories"
)

type UserService interface {
	List(ctx context.Context) ([]*models.UserWithCookie, error)
	Add(ctx context.Context, name string) (*models.User, error)
	Remove(ctx context.Context, id uuid.UUID) error
	Rename(ctx context.Context, id uuid.UUID, newName string) (*models.User, error)
	SetAuto(ctx context.Context, id uuid.UUID, isAuto bool) (*models.User, error)
	RefreshCookie(ctx context.Context, id uuid.UUID, value string, expires *time.Time) (*models.Cookie, error)
	AddAbsence(ctx context.Context, id uuid.UUID, classBeginAt time.Time, plusMinutes, minusMinutes int) (*models.Absence, error)
	RemoveAbsence(ctx context.Context, absenceID uuid.UUID) error
}

type userService struct {
	users    repositories.UserRepository
	cookies  repositories.CookieRepository
	absences repositories.AbsenceRepository
}

func NewUserService(
	users repositories.UserRepository,
	cookies repositories.CookieRepository,
	absences repositories.AbsenceRepository,
) UserService {
	return &userService{users: users, cookies: cookies, absences: absences}
}

func (s *userService) List(ctx context.Context) ([]*models.UserWithCookie, error) {
	return s.users.ListWithCookies(ctx)
}

func (s *userService) Add(ctx context.Context, name string) (*models.User, error) {
	u := &models.User{
		ID:        uuid.New(),
		Name:      name,
		IsAuto:    true, // new accounts opt into auto check-in
		CreatedAt: time.Now().UTC(),
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *userService) Remove(ctx context.Context, id uuid.UUID) error {
	return s.users.Delete(ctx, id)
}

func (s *userService) Rename(ctx context.Context, id uuid.UUID, newName string) (*models.User, error) {
	if err := s.users.Rename(ctx, id, newName); err != nil {
		return nil, err
	}
	return s.users.GetByID(ctx, id)
}

func (s *userService) SetAuto(ctx context.Context, id uuid.UUID, isAuto bool) (*models.User, error) {
	if err := s.users.SetAuto(ctx, id, isAuto); err != nil {
		return nil, err
	}
	return s.users.GetByID(ctx, id)
}

func (s *userService) RefreshCookie(ctx context.Context, id uuid.UUID, value string, expires *time.Time) (*models.Cookie, error) {
	if _, err := s.users.GetByID(ctx, id); err != nil {
		return nil, err
	}
	c := &models.Cookie{
		ID:        uuid.New(),
		UserID:    id,
		Value:     value,
		Expires:   expires,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.cookies.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *userService) AddAbsence(ctx context.Context, id uuid.UUID, classBeginAt time.Time, plusMinutes, minusMinutes int) (*models.Absence, error) {
	if _, err := s.users.GetByID(ctx, id); err != nil {
		return nil, err
	}
	a := &models.Absence{
		ID:           uuid.New(),
		UserID:       id,
		ClassBeginAt: classBeginAt,
		StartsAt:     classBeginAt.Add(-time.Duration(minusMinutes) * time.Minute),
		EndsAt:       classBeginAt.Add(time.Duration(plusMinutes) * time.Minute),
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.absences.Create(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *userService) RemoveAbsence(ctx context.Context, absenceID uuid.UUID) error {
	return s.absences.Delete(ctx, absenceID)
}

package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/okian/avalia/internal/domain/model"
	"github.com/okian/avalia/internal/domain/types"
)

// Authenticate checks the shared admin password.
func (s *Service) Authenticate(password string) error {
	hash := s.store.AdminPasswordHash()
	if hash == "" || password == "" {
		return ErrUnauthorized
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrUnauthorized
		}
		return err
	}
	return nil
}

// ChangePassword replaces the admin password and pushes the new value.
func (s *Service) ChangePassword(ctx context.Context, current, next, confirm string) error {
	if err := s.Authenticate(current); err != nil {
		return err
	}
	if len(next) < model.MinPasswordLength {
		return fmt.Errorf("%w: password must have at least %d characters", ErrValidation, model.MinPasswordLength)
	}
	if next != confirm {
		return fmt.Errorf("%w: passwords do not match", ErrValidation)
	}

	h, err := s.hashPassword(next)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkStarted(); err != nil {
		return err
	}
	if err := s.store.SetAdminPasswordHash(ctx, h); err != nil {
		return err
	}
	s.logger.Info(ctx, "admin password changed")
	s.engine.AdminPasswordChanged(ctx, next)
	return nil
}

// Preferences returns the stored UI preferences.
func (s *Service) Preferences() types.Preferences {
	return types.Preferences{
		LastEvaluatorName: s.store.LastEvaluatorName(),
		Theme:             s.store.Theme(),
	}
}

// SetPreferences stores UI preferences. Empty fields are left unchanged.
func (s *Service) SetPreferences(ctx context.Context, p types.Preferences) (types.Preferences, error) {
	switch p.Theme {
	case "", model.ThemeLight, model.ThemeDark:
	default:
		return types.Preferences{}, fmt.Errorf("%w: theme must be light or dark", ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkStarted(); err != nil {
		return types.Preferences{}, err
	}
	if p.Theme != "" {
		if err := s.store.SetTheme(ctx, p.Theme); err != nil {
			return types.Preferences{}, err
		}
	}
	if name := strings.TrimSpace(p.LastEvaluatorName); name != "" {
		if err := s.store.SetLastEvaluatorName(ctx, name); err != nil {
			return types.Preferences{}, err
		}
	}
	return s.Preferences(), nil
}

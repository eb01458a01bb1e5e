package acquisition

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/dataacquisition/das/internal/api/models"
)

// Validation constants.
const (
	MaxTitleLength    = 256
	MaxCategoryLength = 64
)

// OrgLister returns the organizations the bearer of a token belongs to.
type OrgLister interface {
	Organizations(ctx context.Context, token string) ([]string, error)
}

// Caller identifies who is acting on a request.
type Caller struct {
	UserID string
	// Token is the raw bearer token, forwarded to the OrgLister.
	Token string
}

// ServiceConfig holds dependencies for the Service.
type ServiceConfig struct {
	Repository Repository

	// Orgs restricts callers to their own organizations. Nil disables the check.
	Orgs OrgLister

	// ValidateTransitions rejects state changes outside CanTransition.
	// Off by default: any state may overwrite any other.
	ValidateTransitions bool

	// IDGenerator defaults to NewUUID.
	IDGenerator IDGenerator

	Logger zerolog.Logger
}

// Service provides acquisition request operations.
type Service struct {
	repo                Repository
	orgs                OrgLister
	validateTransitions bool
	newID               IDGenerator
	logger              zerolog.Logger
}

// NewService creates a new acquisition request service.
func NewService(cfg ServiceConfig) *Service {
	newID := cfg.IDGenerator
	if newID == nil {
		newID = NewUUID
	}
	return &Service{
		repo:                cfg.Repository,
		orgs:                cfg.Orgs,
		validateTransitions: cfg.ValidateTransitions,
		newID:               newID,
		logger:              cfg.Logger,
	}
}

// Create validates the input and stores a new request in state VALIDATED.
func (s *Service) Create(ctx context.Context, caller Caller, in NewRequestInput) (*Request, error) {
	if fieldErrors := validateCreateInput(in); len(fieldErrors) > 0 {
		return nil, &ValidationError{Errors: fieldErrors}
	}

	allowed, err := s.memberOf(ctx, caller, in.OrgUUID)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, ErrForbiddenOrg
	}

	req := NewRequest(in, WithIDGenerator(s.newID))
	if err := s.repo.Put(ctx, req); err != nil {
		return nil, err
	}

	s.logger.Info().
		Object("request", req).
		Str("user_id", caller.UserID).
		Msg("acquisition request created")

	return req, nil
}

// Get returns the request with the given id. Requests of organizations the
// caller does not belong to are reported as not found.
func (s *Service) Get(ctx context.Context, caller Caller, id string) (*Request, error) {
	req, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	allowed, err := s.memberOf(ctx, caller, req.OrgUUID)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, ErrRequestNotFound
	}

	return req, nil
}

// UpdateState moves a request to a new state on behalf of caller.
func (s *Service) UpdateState(ctx context.Context, caller Caller, id string, to State) (*Request, error) {
	req, err := s.Get(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	return s.setState(ctx, req, to)
}

// ApplyCallback applies a progress report from the downloader or the metadata parser.
func (s *Service) ApplyCallback(ctx context.Context, cb Callback) (*Request, error) {
	to, err := cb.TargetState()
	if err != nil {
		return nil, err
	}

	req, err := s.repo.Get(ctx, cb.ID)
	if err != nil {
		return nil, err
	}
	return s.setState(ctx, req, to)
}

// setState overwrites the stored request with the new state.
func (s *Service) setState(ctx context.Context, req *Request, to State) (*Request, error) {
	if !to.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidState, to)
	}
	if s.validateTransitions && !CanTransition(req.State, to) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, req.State, to)
	}

	from := req.State
	req.State = to
	if err := s.repo.Put(ctx, req); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("request_id", req.ID).
		Str("from", string(from)).
		Str("to", string(to)).
		Msg("acquisition request state changed")

	return req, nil
}

// memberOf reports whether caller may act on requests of orgUUID.
func (s *Service) memberOf(ctx context.Context, caller Caller, orgUUID string) (bool, error) {
	if s.orgs == nil {
		return true, nil
	}
	orgs, err := s.orgs.Organizations(ctx, caller.Token)
	if err != nil {
		return false, fmt.Errorf("listing organizations: %w", err)
	}
	return slices.Contains(orgs, orgUUID), nil
}

// validateCreateInput validates the create request input.
func validateCreateInput(in NewRequestInput) []models.FieldError {
	var errs []models.FieldError

	if strings.TrimSpace(in.Title) == "" {
		errs = append(errs, models.FieldError{Field: "title", Message: "is required"})
	} else if utf8.RuneCountInString(in.Title) > MaxTitleLength {
		errs = append(errs, models.FieldError{Field: "title", Message: "must be at most 256 characters"})
	}

	if strings.TrimSpace(in.OrgUUID) == "" {
		errs = append(errs, models.FieldError{Field: "orgUUID", Message: "is required"})
	} else if strings.ContainsAny(in.OrgUUID, ":*?[]\\") {
		errs = append(errs, models.FieldError{Field: "orgUUID", Message: "must not contain ':' or glob characters"})
	}

	if strings.TrimSpace(in.Source) == "" {
		errs = append(errs, models.FieldError{Field: "source", Message: "is required"})
	}

	if strings.TrimSpace(in.Category) == "" {
		errs = append(errs, models.FieldError{Field: "category", Message: "is required"})
	} else if len(in.Category) > MaxCategoryLength {
		errs = append(errs, models.FieldError{Field: "category", Message: "must be at most 64 characters"})
	}

	return errs
}

// ValidationError represents validation errors.
type ValidationError struct {
	Errors []models.FieldError
}

func (e *ValidationError) Error() string {
	return "validation failed"
}

package user

import (
	"context"
	"errors"
	"strings"
	"time"

	"talkative-backend/internal/database"
	"talkative-backend/internal/dto"
	internaljwt "talkative-backend/internal/jwt"
	"talkative-backend/internal/model"

	"github.com/google/uuid"
)

type Service struct {
	repo Repository
	now  func() time.Time
}

var issueTokens = internaljwt.CreateTokenWithRefresh

// SetTokenIssuer overrides token issuance. Intended for tests, which have no
// Redis to store refresh tokens in.
func SetTokenIssuer(issuer func(internaljwt.User, int64) (internaljwt.TokenResponse, error)) {
	if issuer == nil {
		issueTokens = internaljwt.CreateTokenWithRefresh
		return
	}
	issueTokens = issuer
}

func New(db *database.Database) *Service {
	return &Service{
		repo: NewDynamoRepository(db),
		now:  time.Now,
	}
}

func NewWithRepository(repo Repository, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{
		repo: repo,
		now:  now,
	}
}

func (s *Service) Register(ctx context.Context, params RegisterParams) (AuthResult, error) {
	email := normalizeEmail(params.Email)
	password := strings.TrimSpace(params.Password)
	name := strings.TrimSpace(params.Name)

	if email == "" || password == "" || name == "" {
		return AuthResult{}, newError(ErrorCodeValidation, "missing required fields", nil)
	}

	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		return AuthResult{}, newError(ErrorCodeConflict, "user already exists", nil)
	} else if !errors.Is(err, ErrNotFound) {
		return AuthResult{}, newError(ErrorCodeInternal, "failed to check existing user", err)
	}

	newUser, err := internaljwt.NewUser(internaljwt.RegisterUser{
		Email:    email,
		Password: password,
	})
	if err != nil {
		return AuthResult{}, newError(ErrorCodeInternal, "failed to prepare user", err)
	}

	newUser.Id = uuid.NewString()

	item := model.UserItem{
		UserID:       newUser.Id,
		Name:         name,
		Email:        email,
		Pic:          strings.TrimSpace(params.Pic),
		PasswordHash: newUser.PasswordHash,
		CreatedAt:    s.now().UTC().Format(time.RFC3339),
	}

	if err := s.repo.CreateUser(ctx, item); err != nil {
		return AuthResult{}, newError(ErrorCodeInternal, "failed to save user", err)
	}

	tokens, err := issueTokens(newUser, 0)
	if err != nil {
		return AuthResult{}, newError(ErrorCodeInternal, "failed to issue tokens", err)
	}

	return AuthResult{
		User:   toDTO(item),
		Tokens: tokens,
	}, nil
}

func (s *Service) Login(ctx context.Context, params LoginParams) (AuthResult, error) {
	email := normalizeEmail(params.Email)
	if email == "" || params.Password == "" {
		return AuthResult{}, newError(ErrorCodeValidation, "missing required fields", nil)
	}

	item, err := s.repo.FindByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		return AuthResult{}, newError(ErrorCodeUnauthorized, "invalid email or password", nil)
	} else if err != nil {
		return AuthResult{}, newError(ErrorCodeInternal, "failed to look up user", err)
	}

	if !internaljwt.ValidatePassword(item.PasswordHash, params.Password) {
		return AuthResult{}, newError(ErrorCodeUnauthorized, "invalid email or password", nil)
	}

	tokens, err := issueTokens(internaljwt.User{Id: item.UserID, Email: item.Email}, 0)
	if err != nil {
		return AuthResult{}, newError(ErrorCodeInternal, "failed to issue tokens", err)
	}

	return AuthResult{
		User:   toDTO(item),
		Tokens: tokens,
	}, nil
}

// Search finds users matching the query by name or email, excluding the
// caller.
func (s *Service) Search(ctx context.Context, query, excludeUserID string) ([]dto.UserDTO, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []dto.UserDTO{}, nil
	}

	items, err := s.repo.SearchUsers(ctx, query)
	if err != nil {
		return nil, newError(ErrorCodeInternal, "failed to search users", err)
	}

	users := make([]dto.UserDTO, 0, len(items))
	for _, item := range items {
		if item.UserID == excludeUserID {
			continue
		}
		users = append(users, toDTO(item))
	}
	return users, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func toDTO(item model.UserItem) dto.UserDTO {
	return dto.UserDTO{
		ID:    item.UserID,
		Name:  item.Name,
		Email: item.Email,
		Pic:   item.Pic,
	}
}

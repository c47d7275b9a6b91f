package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/argon2"

	"github.com/theprogrammerknownasat/dnd-scheduler/internal/apperror"
)

// sessionKeyPrefix is the Redis key prefix for session data.
const sessionKeyPrefix = "session:"

// sessionTokenBytes is the number of random bytes in a session token.
// 32 bytes = 256 bits of entropy, hex-encoded to 64 characters.
const sessionTokenBytes = 32

// argon2id parameters (OWASP baseline: 64 MiB, 3 passes, 4 lanes).
const (
	argonTime    = 3
	argonMemory  = 64 * 1024 // 64 MB in KiB
	argonThreads = 4
	argonKeyLen  = 32
	argonSaltLen = 16
)

// usernamePattern restricts usernames to lowercase slugs; they end up in
// availability primary keys and audit rows.
var usernamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_.-]{2,63}$`)

// AuthService defines the business logic contract for authentication.
// Handlers call these methods -- they never touch the repository directly.
type AuthService interface {
	Register(ctx context.Context, input RegisterInput) (*User, error)
	Login(ctx context.Context, input LoginInput) (token string, user *User, err error)
	ValidateSession(ctx context.Context, token string) (*Session, error)
	DestroySession(ctx context.Context, token string) error
	UpdateTimezone(ctx context.Context, token, userID, timezone string) error

	// Site administration.
	ListUsers(ctx context.Context, page, perPage int) ([]User, int, error)
	SetAdmin(ctx context.Context, actorID, userID string, isAdmin bool) error
}

// authService implements AuthService with argon2id hashing and Redis sessions.
type authService struct {
	repo       UserRepository
	redis      *redis.Client
	sessionTTL time.Duration
}

// NewAuthService creates a new auth service with the given dependencies.
func NewAuthService(repo UserRepository, rdb *redis.Client, sessionTTL time.Duration) AuthService {
	return &authService{
		repo:       repo,
		redis:      rdb,
		sessionTTL: sessionTTL,
	}
}

// NormalizeUsername lowercases and trims a username.
func NormalizeUsername(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Register creates a new user account. The first account on a fresh install
// becomes the site administrator.
func (s *authService) Register(ctx context.Context, input RegisterInput) (*User, error) {
	username := NormalizeUsername(input.Username)
	if !usernamePattern.MatchString(username) {
		return nil, apperror.NewValidation("username must be 3-64 characters of a-z, 0-9, '.', '_' or '-'")
	}

	displayName := strings.TrimSpace(input.DisplayName)
	if displayName == "" {
		displayName = username
	}
	if len(displayName) > 100 {
		return nil, apperror.NewValidation("display name must be at most 100 characters")
	}
	if len(input.Password) < 8 || len(input.Password) > 128 {
		return nil, apperror.NewValidation("password must be 8-128 characters")
	}

	tz, err := normalizeTimezone(input.Timezone)
	if err != nil {
		return nil, err
	}

	// Check uniqueness before doing expensive hashing.
	exists, err := s.repo.UsernameExists(ctx, username)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("checking username: %w", err))
	}
	if exists {
		return nil, apperror.NewConflict("that username is already taken")
	}

	count, err := s.repo.CountUsers(ctx)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("counting users: %w", err))
	}

	hash, err := hashPassword(input.Password)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("hashing password: %w", err))
	}

	user := &User{
		ID:           uuid.NewString(),
		Username:     username,
		DisplayName:  displayName,
		PasswordHash: hash,
		IsAdmin:      count == 0,
		Timezone:     tz,
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("creating user: %w", err))
	}

	slog.Info("user registered",
		slog.String("user_id", user.ID),
		slog.String("username", user.Username),
		slog.Bool("is_admin", user.IsAdmin),
	)
	return user, nil
}

// Login authenticates a user by username and password. On success it creates
// a new session in Redis and returns the session token for the cookie.
func (s *authService) Login(ctx context.Context, input LoginInput) (string, *User, error) {
	user, err := s.repo.FindByUsername(ctx, NormalizeUsername(input.Username))
	if err != nil {
		// Don't reveal whether the username exists.
		if isNotFound(err) {
			return "", nil, apperror.NewUnauthorized("invalid username or password")
		}
		return "", nil, apperror.NewInternal(fmt.Errorf("finding user: %w", err))
	}

	if !verifyPassword(input.Password, user.PasswordHash) {
		return "", nil, apperror.NewUnauthorized("invalid username or password")
	}

	token, err := s.createSession(ctx, user)
	if err != nil {
		return "", nil, apperror.NewInternal(fmt.Errorf("creating session: %w", err))
	}

	// Fire-and-forget, non-critical.
	if err := s.repo.UpdateLastLogin(ctx, user.ID); err != nil {
		slog.Warn("failed to update last login",
			slog.String("user_id", user.ID),
			slog.Any("error", err),
		)
	}

	slog.Info("user logged in",
		slog.String("user_id", user.ID),
		slog.String("username", user.Username),
	)
	return token, user, nil
}

// ValidateSession looks up a session token in Redis and returns the session
// data if it exists and hasn't expired.
func (s *authService) ValidateSession(ctx context.Context, token string) (*Session, error) {
	data, err := s.redis.Get(ctx, sessionKeyPrefix+token).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, apperror.NewUnauthorized("session expired or invalid")
	}
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("reading session from Redis: %w", err))
	}

	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("unmarshaling session: %w", err))
	}
	return &session, nil
}

// DestroySession removes a session from Redis, effectively logging the user out.
func (s *authService) DestroySession(ctx context.Context, token string) error {
	if err := s.redis.Del(ctx, sessionKeyPrefix+token).Err(); err != nil {
		return apperror.NewInternal(fmt.Errorf("deleting session from Redis: %w", err))
	}
	return nil
}

// UpdateTimezone stores the user's zone and refreshes the current session so
// the next request already sees it. An empty zone reverts to canonical.
func (s *authService) UpdateTimezone(ctx context.Context, token, userID, timezone string) error {
	tz, err := normalizeTimezone(timezone)
	if err != nil {
		return err
	}
	if err := s.repo.UpdateTimezone(ctx, userID, tz); err != nil {
		if isNotFound(err) {
			return err
		}
		return apperror.NewInternal(fmt.Errorf("updating timezone: %w", err))
	}

	if token == "" {
		return nil
	}
	session, err := s.ValidateSession(ctx, token)
	if err != nil {
		return nil // The cookie expired in between; nothing to refresh.
	}
	session.Timezone = ""
	if tz != nil {
		session.Timezone = *tz
	}
	data, err := json.Marshal(session)
	if err != nil {
		return apperror.NewInternal(fmt.Errorf("marshaling session: %w", err))
	}
	if err := s.redis.Set(ctx, sessionKeyPrefix+token, data, redis.KeepTTL).Err(); err != nil {
		return apperror.NewInternal(fmt.Errorf("refreshing session: %w", err))
	}
	return nil
}

// ListUsers returns one page of accounts for the admin surface.
func (s *authService) ListUsers(ctx context.Context, page, perPage int) ([]User, int, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 50
	}
	users, total, err := s.repo.ListUsers(ctx, (page-1)*perPage, perPage)
	if err != nil {
		return nil, 0, apperror.NewInternal(fmt.Errorf("listing users: %w", err))
	}
	return users, total, nil
}

// SetAdmin grants or revokes site admin. Admins cannot demote themselves and
// the last admin cannot be demoted.
func (s *authService) SetAdmin(ctx context.Context, actorID, userID string, isAdmin bool) error {
	if !isAdmin {
		if actorID == userID {
			return apperror.NewBadRequest("you cannot remove your own admin rights")
		}
		admins, err := s.repo.CountAdmins(ctx)
		if err != nil {
			return apperror.NewInternal(fmt.Errorf("counting admins: %w", err))
		}
		if admins <= 1 {
			return apperror.NewBadRequest("cannot remove the last administrator")
		}
	}
	if err := s.repo.UpdateIsAdmin(ctx, userID, isAdmin); err != nil {
		if isNotFound(err) {
			return err
		}
		return apperror.NewInternal(fmt.Errorf("updating admin flag: %w", err))
	}
	slog.Info("admin flag changed",
		slog.String("actor_id", actorID),
		slog.String("user_id", userID),
		slog.Bool("is_admin", isAdmin),
	)
	return nil
}

// createSession generates a random session token, stores the session data in
// Redis with the configured TTL, and returns the token.
func (s *authService) createSession(ctx context.Context, user *User) (string, error) {
	token, err := generateSessionToken()
	if err != nil {
		return "", fmt.Errorf("generating session token: %w", err)
	}

	session := Session{
		UserID:    user.ID,
		Username:  user.Username,
		Name:      user.DisplayName,
		IsAdmin:   user.IsAdmin,
		CreatedAt: time.Now().UTC(),
	}
	if user.Timezone != nil {
		session.Timezone = *user.Timezone
	}

	data, err := json.Marshal(session)
	if err != nil {
		return "", fmt.Errorf("marshaling session: %w", err)
	}
	if err := s.redis.Set(ctx, sessionKeyPrefix+token, data, s.sessionTTL).Err(); err != nil {
		return "", fmt.Errorf("storing session in Redis: %w", err)
	}
	return token, nil
}

// normalizeTimezone validates an IANA zone name. Empty means "use canonical".
func normalizeTimezone(name string) (*string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}
	if _, err := time.LoadLocation(name); err != nil {
		return nil, apperror.NewValidation(fmt.Sprintf("unknown timezone %q", name))
	}
	return &name, nil
}

// --- Password Hashing (argon2id) ---

// hashPassword creates an argon2id hash in PHC string format:
// $argon2id$v=19$m=65536,t=3,p=4$<salt>$<hash>
func hashPassword(password string) (string, error) {
	salt := make([]byte, argonSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generating salt: %w", err)
	}

	hash := argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, argonKeyLen)

	b64Salt := base64.RawStdEncoding.EncodeToString(salt)
	b64Hash := base64.RawStdEncoding.EncodeToString(hash)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, argonMemory, argonTime, argonThreads, b64Salt, b64Hash), nil
}

// verifyPassword checks a plaintext password against an argon2id hash string.
func verifyPassword(password, encodedHash string) bool {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 {
		return false
	}

	var memory uint32
	var iterations uint32
	var parallelism uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &iterations, &parallelism); err != nil {
		return false
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false
	}
	expectedHash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false
	}

	computedHash := argon2.IDKey([]byte(password), salt, iterations, memory, parallelism, uint32(len(expectedHash)))
	return subtle.ConstantTimeCompare(expectedHash, computedHash) == 1
}

// --- Helpers ---

// generateSessionToken creates a cryptographically random hex-encoded token.
func generateSessionToken() (string, error) {
	b := make([]byte, sessionTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func isNotFound(err error) bool {
	var appErr *apperror.AppError
	return errors.As(err, &appErr) && appErr.Code == 404
}

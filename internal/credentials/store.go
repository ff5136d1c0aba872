package credentials

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"compass-api/internal/shared"

	"github.com/aidarkhanov/nanoid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Repository is the persistence surface the store runs on. Implementations
// are externally synchronized; the store performs no locking of its own.
type Repository interface {
	Insert(ctx context.Context, cred *Credential) error
	ActiveByPrefix(ctx context.Context, prefix string) ([]Credential, error)
	IsActive(ctx context.Context, id string) (bool, error)
	TouchLastUsed(ctx context.Context, id string, t time.Time) error
	SetActive(ctx context.Context, accountID, id string, active bool) (bool, error)
	SetLabel(ctx context.Context, accountID, id, label string) (bool, error)
	Delete(ctx context.Context, accountID, id string) (bool, error)
	ListByAccount(ctx context.Context, accountID string) ([]Credential, error)
}

type cachedAuth struct {
	CredentialID string `json:"credential_id"`
	AccountID    string `json:"account_id"`
}

// Store maps opaque bearer secrets to account identity. Authentication
// results are cached in redis keyed by the digest of the candidate secret;
// every cache hit re-checks the active flag against the repository so revokes
// take effect immediately.
type Store struct {
	repo  Repository
	redis *redis.Client
	log   *zap.SugaredLogger
}

func NewStore(repo Repository, redisClient *redis.Client, log *zap.SugaredLogger) *Store {
	return &Store{repo: repo, redis: redisClient, log: log}
}

// Issue creates a new credential for accountID. The plaintext secret is
// returned exactly once and is never retrievable again.
func (s *Store) Issue(ctx context.Context, accountID, label string) (string, *Credential, error) {
	secret, prefix, err := GenerateSecret()
	if err != nil {
		return "", nil, fmt.Errorf("generating secret: %w", err)
	}
	salt, err := nanoid.Generate(secretAlphabet, 16)
	if err != nil {
		return "", nil, fmt.Errorf("generating salt: %w", err)
	}
	id, err := nanoid.Generate(secretAlphabet, shared.CredentialIDLength)
	if err != nil {
		return "", nil, fmt.Errorf("generating credential id: %w", err)
	}

	cred := &Credential{
		ID:        "key_" + id,
		AccountID: accountID,
		Hash:      HashSecret(secret, salt),
		Salt:      salt,
		Prefix:    prefix,
		Label:     label,
		CreatedAt: time.Now().UTC(),
		Active:    true,
	}
	if err := s.repo.Insert(ctx, cred); err != nil {
		return "", nil, err
	}
	return secret, cred, nil
}

// Authenticate resolves a candidate secret to its owning account. Every
// failure mode collapses into ErrUnauthorized; callers learn nothing about
// why a candidate was rejected.
func (s *Store) Authenticate(ctx context.Context, candidate string) (string, error) {
	if !HasSecretTag(candidate) {
		return "", shared.ErrUnauthorized
	}

	if hit, ok := s.cacheGet(ctx, candidate); ok {
		active, err := s.repo.IsActive(ctx, hit.CredentialID)
		if err == nil && active {
			go s.touch(hit.CredentialID)
			return hit.AccountID, nil
		}
		s.cacheDel(ctx, candidate)
	}

	prefix := candidate[:shared.LookupPrefixLength]
	matches, err := s.repo.ActiveByPrefix(ctx, prefix)
	if err != nil {
		s.log.Errorw("credential lookup failed", "error", err)
		return "", shared.ErrUnauthorized
	}

	// Prefix collisions are expected; check every candidate row.
	for i := range matches {
		cred := &matches[i]
		if !VerifySecret(candidate, cred.Salt, cred.Hash) {
			continue
		}
		go s.touch(cred.ID)
		s.cacheSet(ctx, candidate, cachedAuth{CredentialID: cred.ID, AccountID: cred.AccountID})
		return cred.AccountID, nil
	}
	return "", shared.ErrUnauthorized
}

// Revoke flips the active flag. Not-found and ownership mismatch are both a
// plain false so callers cannot probe for other accounts' credentials.
func (s *Store) Revoke(ctx context.Context, accountID, id string) bool {
	ok, err := s.repo.SetActive(ctx, accountID, id, false)
	if err != nil {
		s.log.Errorw("credential revoke failed", "error", err)
		return false
	}
	return ok
}

func (s *Store) Rename(ctx context.Context, accountID, id, label string) bool {
	ok, err := s.repo.SetLabel(ctx, accountID, id, label)
	if err != nil {
		s.log.Errorw("credential rename failed", "error", err)
		return false
	}
	return ok
}

func (s *Store) Delete(ctx context.Context, accountID, id string) bool {
	ok, err := s.repo.Delete(ctx, accountID, id)
	if err != nil {
		s.log.Errorw("credential delete failed", "error", err)
		return false
	}
	return ok
}

// List returns the caller's credentials. Hash and salt are never serialized.
func (s *Store) List(ctx context.Context, accountID string) ([]Credential, error) {
	return s.repo.ListByAccount(ctx, accountID)
}

func (s *Store) touch(id string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.repo.TouchLastUsed(ctx, id, time.Now().UTC()); err != nil {
		s.log.Warnw("failed updating credential last_used", "error", err)
	}
}

// cacheKey is derived from the candidate's digest, not its plaintext, so the
// plaintext never lands in redis either.
func cacheKey(candidate string) string {
	sum := sha256.Sum256([]byte(candidate))
	return "v1:auth:secret:" + hex.EncodeToString(sum[:])
}

func (s *Store) cacheGet(ctx context.Context, candidate string) (cachedAuth, bool) {
	if s.redis == nil {
		return cachedAuth{}, false
	}
	raw, err := s.redis.Get(ctx, cacheKey(candidate)).Result()
	if err != nil {
		return cachedAuth{}, false
	}
	var hit cachedAuth
	if err := json.Unmarshal([]byte(raw), &hit); err != nil {
		s.log.Errorw("error unmarshalling auth cache", "error", err)
		return cachedAuth{}, false
	}
	return hit, true
}

func (s *Store) cacheSet(ctx context.Context, candidate string, hit cachedAuth) {
	if s.redis == nil {
		return
	}
	raw, err := json.Marshal(hit)
	if err != nil {
		return
	}
	s.redis.Set(ctx, cacheKey(candidate), raw, shared.CredentialCacheTTL)
}

func (s *Store) cacheDel(ctx context.Context, candidate string) {
	if s.redis == nil {
		return
	}
	s.redis.Del(ctx, cacheKey(candidate))
}

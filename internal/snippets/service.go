package snippets

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/snipstash/backend/internal/auth"
	"github.com/snipstash/backend/internal/embedding"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	// ErrNotFound covers nonexistent records, records hidden from the
	// requester, and mutations by non-owners. The three causes are
	// indistinguishable on purpose: existence of private snippets must
	// not leak to unauthorized callers.
	ErrNotFound = errors.New("snippets: not found")

	errMissingDatabase   = errors.New("database handle is required")
	errMissingEmbedder   = errors.New("embedding generator is required")
	errMissingMembership = errors.New("membership checker is required")
	errMissingIDProvider = errors.New("id provider is required")
	errTeamNotAssigned   = fmt.Errorf("%w: snippet has no team for team visibility", ErrInvalidPayload)
	errNotTeamMember     = fmt.Errorf("%w: owner is not a member of the team", ErrInvalidPayload)
	noOpLogger           = zap.NewNop()
)

// ServiceError carries a stable machine-readable code alongside the cause.
type ServiceError struct {
	code string
	err  error
}

func (e *ServiceError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *ServiceError) Unwrap() error {
	return e.err
}

func (e *ServiceError) Code() string {
	return e.code
}

const (
	opServiceNew = "snippets.service.new"
	opCreate     = "snippets.create"
	opGet        = "snippets.get"
	opList       = "snippets.list"
	opUpdate     = "snippets.update"
	opDelete     = "snippets.delete"
	opSearch     = "snippets.search"
)

func newServiceError(operation, reason string, cause error) error {
	code := fmt.Sprintf("%s.%s", operation, reason)
	return &ServiceError{code: code, err: cause}
}

// EmbeddingGenerator is the slice of the embedding generator the service needs.
type EmbeddingGenerator interface {
	Embed(ctx context.Context, text string) (embedding.Vector, error)
}

// MembershipChecker resolves team membership for access decisions.
type MembershipChecker interface {
	IsMember(ctx context.Context, userID, teamID int64) (bool, error)
}

// ServiceConfig describes the dependencies of the snippet service.
type ServiceConfig struct {
	Database           *gorm.DB
	Embedder           EmbeddingGenerator
	Memberships        MembershipChecker
	Clock              func() time.Time
	IDProvider         IDProvider
	Logger             *zap.Logger
	DefaultSearchLimit int
}

// Service implements snippet storage, access control, and semantic search.
type Service struct {
	db           *gorm.DB
	embedder     EmbeddingGenerator
	memberships  MembershipChecker
	clock        func() time.Time
	idProvider   IDProvider
	logger       *zap.Logger
	defaultLimit int
}

// NewService constructs the snippet service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, newServiceError(opServiceNew, "missing_database", errMissingDatabase)
	}
	if cfg.Embedder == nil {
		return nil, newServiceError(opServiceNew, "missing_embedder", errMissingEmbedder)
	}
	if cfg.Memberships == nil {
		return nil, newServiceError(opServiceNew, "missing_memberships", errMissingMembership)
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	idProvider := cfg.IDProvider
	if idProvider == nil {
		return nil, newServiceError(opServiceNew, "missing_id_provider", errMissingIDProvider)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	defaultLimit := cfg.DefaultSearchLimit
	if defaultLimit <= 0 {
		defaultLimit = 10
	}

	return &Service{
		db:           cfg.Database,
		embedder:     cfg.Embedder,
		memberships:  cfg.Memberships,
		clock:        clock,
		idProvider:   idProvider,
		logger:       logger,
		defaultLimit: defaultLimit,
	}, nil
}

// Create persists a snippet for the owner. The embedding is computed
// best-effort: generation failure leaves the embedding null and is never
// allowed to block the record write.
func (s *Service) Create(ctx context.Context, userID int64, payload CreatePayload) (Snippet, error) {
	if err := payload.Validate(); err != nil {
		return Snippet{}, err
	}

	teamID := payload.TeamID
	if payload.Visibility != VisibilityTeam {
		// The write path owns the invariant: a team id only exists
		// alongside team visibility.
		teamID = nil
	} else {
		member, err := s.memberships.IsMember(ctx, userID, *payload.TeamID)
		if err != nil {
			s.logError(opCreate, "membership_check_failed", err, zap.Int64("user_id", userID))
			return Snippet{}, newServiceError(opCreate, "membership_check_failed", err)
		}
		if !member {
			return Snippet{}, errNotTeamMember
		}
	}

	tags, err := encodeTags(payload.Tags)
	if err != nil {
		return Snippet{}, newServiceError(opCreate, "tags_encode_failed", err)
	}

	record := Snippet{
		Title:       payload.Title,
		Code:        payload.Code,
		Language:    payload.Language,
		Description: payload.Description,
		Tags:        tags,
		UserID:      userID,
		TeamID:      teamID,
		Visibility:  payload.Visibility,
	}

	text := CanonicalText(payload.Title, payload.Language, payload.Description, payload.Tags, payload.Code)
	if vector, err := s.embedder.Embed(ctx, text); err != nil {
		s.logger.Warn("embedding generation failed, creating snippet without vector",
			zap.Error(err), zap.Int64("user_id", userID))
	} else if encoded, err := vector.Encode(); err != nil {
		s.logger.Warn("embedding encode failed, creating snippet without vector", zap.Error(err))
	} else {
		record.Embedding = encoded
	}

	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&record).Error; err != nil {
			return newServiceError(opCreate, "insert_failed", err)
		}
		return s.recordActivity(tx, opCreate, userID, record.ID, ActivityActionCreate)
	})
	if txErr != nil {
		s.logError(opCreate, "transaction_failed", txErr, zap.Int64("user_id", userID))
		return Snippet{}, txErr
	}

	return record, nil
}

// GetByID returns a snippet visible to the requester: owned by them,
// shared via the record's team, or public. Everything else is ErrNotFound.
func (s *Service) GetByID(ctx context.Context, id int64, requester auth.Identity) (Snippet, error) {
	var record Snippet
	err := s.db.WithContext(ctx).Where("id = ?", id).Take(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Snippet{}, ErrNotFound
	}
	if err != nil {
		s.logError(opGet, "query_failed", err, zap.Int64("snippet_id", id))
		return Snippet{}, newServiceError(opGet, "query_failed", err)
	}

	if !requester.IsAnonymous() && record.UserID == requester.UserID {
		return record, nil
	}
	if record.Visibility == VisibilityPublic {
		return record, nil
	}
	if record.Visibility == VisibilityTeam && record.TeamID != nil && !requester.IsAnonymous() {
		member, err := s.memberships.IsMember(ctx, requester.UserID, *record.TeamID)
		if err != nil {
			s.logError(opGet, "membership_check_failed", err, zap.Int64("snippet_id", id))
			return Snippet{}, newServiceError(opGet, "membership_check_failed", err)
		}
		if member {
			return record, nil
		}
	}

	return Snippet{}, ErrNotFound
}

// ListForUser returns all snippets owned by the user, newest first.
func (s *Service) ListForUser(ctx context.Context, userID int64) ([]Snippet, error) {
	var records []Snippet
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		Find(&records).Error
	if err != nil {
		s.logError(opList, "user_query_failed", err, zap.Int64("user_id", userID))
		return nil, newServiceError(opList, "user_query_failed", err)
	}
	return records, nil
}

// ListForTeam returns the team-visible snippets of a team, newest first.
func (s *Service) ListForTeam(ctx context.Context, teamID int64) ([]Snippet, error) {
	var records []Snippet
	err := s.db.WithContext(ctx).
		Where("team_id = ? AND visibility = ?", teamID, VisibilityTeam).
		Order("updated_at DESC").
		Find(&records).Error
	if err != nil {
		s.logError(opList, "team_query_failed", err, zap.Int64("team_id", teamID))
		return nil, newServiceError(opList, "team_query_failed", err)
	}
	return records, nil
}

// ListPublic returns all public snippets, newest first.
func (s *Service) ListPublic(ctx context.Context) ([]Snippet, error) {
	var records []Snippet
	err := s.db.WithContext(ctx).
		Where("visibility = ?", VisibilityPublic).
		Order("updated_at DESC").
		Find(&records).Error
	if err != nil {
		s.logError(opList, "public_query_failed", err)
		return nil, newServiceError(opList, "public_query_failed", err)
	}
	return records, nil
}

// Update applies a partial update to an owned snippet. The embedding is
// regenerated only when a semantically relevant field actually changes;
// if regeneration fails the previous embedding is retained, stale but
// still searchable.
func (s *Service) Update(ctx context.Context, id int64, userID int64, payload UpdatePayload) (Snippet, error) {
	if err := payload.Validate(); err != nil {
		return Snippet{}, err
	}

	var existing Snippet
	err := s.db.WithContext(ctx).Where("id = ?", id).Take(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Snippet{}, ErrNotFound
	}
	if err != nil {
		s.logError(opUpdate, "query_failed", err, zap.Int64("snippet_id", id))
		return Snippet{}, newServiceError(opUpdate, "query_failed", err)
	}
	if existing.UserID != userID {
		// Ownership failures surface as not-found, same as read denial.
		return Snippet{}, ErrNotFound
	}

	merged, relevantChanged, err := applyUpdate(existing, payload)
	if err != nil {
		return Snippet{}, err
	}

	if relevantChanged {
		text := CanonicalText(merged.Title, merged.Language, merged.Description, merged.TagList(), merged.Code)
		if vector, embedErr := s.embedder.Embed(ctx, text); embedErr != nil {
			s.logger.Warn("embedding regeneration failed, retaining previous vector",
				zap.Error(embedErr), zap.Int64("snippet_id", id))
		} else if encoded, encodeErr := vector.Encode(); encodeErr != nil {
			s.logger.Warn("embedding encode failed, retaining previous vector", zap.Error(encodeErr))
		} else {
			merged.Embedding = encoded
		}
	}

	merged.UpdatedAt = s.clock().UTC()
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(&merged).Error; err != nil {
			return newServiceError(opUpdate, "save_failed", err)
		}
		return s.recordActivity(tx, opUpdate, userID, merged.ID, ActivityActionUpdate)
	})
	if txErr != nil {
		s.logError(opUpdate, "transaction_failed", txErr, zap.Int64("snippet_id", id))
		return Snippet{}, txErr
	}

	return merged, nil
}

// Delete removes an owned snippet. Non-owners and unknown ids both
// report ErrNotFound.
func (s *Service) Delete(ctx context.Context, id int64, userID int64) error {
	var existing Snippet
	err := s.db.WithContext(ctx).Where("id = ?", id).Take(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if err != nil {
		s.logError(opDelete, "query_failed", err, zap.Int64("snippet_id", id))
		return newServiceError(opDelete, "query_failed", err)
	}
	if existing.UserID != userID {
		return ErrNotFound
	}

	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&Snippet{}, existing.ID).Error; err != nil {
			return newServiceError(opDelete, "delete_failed", err)
		}
		return s.recordActivity(tx, opDelete, userID, existing.ID, ActivityActionDelete)
	})
	if txErr != nil {
		s.logError(opDelete, "transaction_failed", txErr, zap.Int64("snippet_id", id))
		return txErr
	}

	return nil
}

// applyUpdate merges the payload over the stored record and reports
// whether any embedding-relevant field changed value. Tags compare
// structurally; visibility and team id changes alone never trigger
// re-embedding.
func applyUpdate(existing Snippet, payload UpdatePayload) (Snippet, bool, error) {
	merged := existing
	relevantChanged := false

	if payload.Title != nil && *payload.Title != existing.Title {
		merged.Title = *payload.Title
		relevantChanged = true
	}
	if payload.Code != nil && *payload.Code != existing.Code {
		merged.Code = *payload.Code
		relevantChanged = true
	}
	if payload.Language != nil && *payload.Language != existing.Language {
		merged.Language = *payload.Language
		relevantChanged = true
	}
	if payload.Description != nil && *payload.Description != existing.Description {
		merged.Description = *payload.Description
		relevantChanged = true
	}
	if payload.Tags != nil && !tagsEqual(*payload.Tags, existing.TagList()) {
		encoded, err := encodeTags(*payload.Tags)
		if err != nil {
			return Snippet{}, false, newServiceError(opUpdate, "tags_encode_failed", err)
		}
		merged.Tags = encoded
		relevantChanged = true
	}
	if payload.Visibility != nil {
		merged.Visibility = *payload.Visibility
		if *payload.Visibility == VisibilityTeam {
			if existing.TeamID == nil {
				return Snippet{}, false, errTeamNotAssigned
			}
		} else {
			merged.TeamID = nil
		}
	}

	return merged, relevantChanged, nil
}

func (s *Service) recordActivity(tx *gorm.DB, operation string, userID, snippetID int64, action ActivityAction) error {
	activityID, err := s.idProvider.NewID()
	if err != nil {
		return newServiceError(operation, "id_generation_failed", err)
	}
	record := ActivityRecord{
		ActivityID: activityID,
		UserID:     userID,
		SnippetID:  snippetID,
		Action:     action,
		OccurredAt: s.clock().UTC(),
	}
	if err := tx.Create(&record).Error; err != nil {
		return newServiceError(operation, "activity_insert_failed", err)
	}
	return nil
}

func (s *Service) loggerOrDefault() *zap.Logger {
	if s == nil || s.logger == nil {
		return noOpLogger
	}
	return s.logger
}

func (s *Service) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	s.loggerOrDefault().Error("snippets service error", attrs...)
}

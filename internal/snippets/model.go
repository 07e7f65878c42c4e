package snippets

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"
)

// Visibility controls who can read a snippet besides its owner.
type Visibility string

const (
	VisibilityPrivate Visibility = "private"
	VisibilityTeam    Visibility = "team"
	VisibilityPublic  Visibility = "public"
)

const (
	maxTitleLength       = 255
	maxLanguageLength    = 100
	maxDescriptionLength = 1000
	maxTagLength         = 50
	maxTagCount          = 10
)

// ErrInvalidPayload indicates a create or update payload that violates
// the snippet field constraints.
var ErrInvalidPayload = errors.New("snippets: invalid payload")

// ParseVisibility validates raw input and returns a Visibility.
func ParseVisibility(rawInput string) (Visibility, error) {
	switch Visibility(strings.ToLower(strings.TrimSpace(rawInput))) {
	case VisibilityPrivate:
		return VisibilityPrivate, nil
	case VisibilityTeam:
		return VisibilityTeam, nil
	case VisibilityPublic:
		return VisibilityPublic, nil
	default:
		return "", fmt.Errorf("%w: unknown visibility %q", ErrInvalidPayload, rawInput)
	}
}

// Snippet models the persisted snippet record. The embedding column is
// internal ranking state: it is never serialized into API responses.
type Snippet struct {
	ID          int64          `gorm:"column:id;primaryKey;autoIncrement"`
	Title       string         `gorm:"column:title;size:255;not null"`
	Code        string         `gorm:"column:code;type:text;not null"`
	Language    string         `gorm:"column:language;size:100;not null"`
	Description string         `gorm:"column:description;size:1000;not null;default:''"`
	Tags        datatypes.JSON `gorm:"column:tags;not null;default:'[]'"`
	UserID      int64          `gorm:"column:user_id;not null;index:idx_snippets_user"`
	TeamID      *int64         `gorm:"column:team_id;index:idx_snippets_team"`
	Visibility  Visibility     `gorm:"column:visibility;size:10;not null;default:'private';index:idx_snippets_visibility"`
	Embedding   datatypes.JSON `gorm:"column:embedding"`
	CreatedAt   time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName provides the explicit table binding for GORM.
func (Snippet) TableName() string {
	return "snippets"
}

// TagList decodes the stored tags column. A missing or corrupt column
// decodes to an empty list rather than failing a read path.
func (s Snippet) TagList() []string {
	if len(s.Tags) == 0 {
		return []string{}
	}
	var tags []string
	if err := json.Unmarshal(s.Tags, &tags); err != nil || tags == nil {
		return []string{}
	}
	return tags
}

func encodeTags(tags []string) (datatypes.JSON, error) {
	if tags == nil {
		tags = []string{}
	}
	raw, err := json.Marshal(tags)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}

func tagsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// CreatePayload carries the fields accepted when creating a snippet.
type CreatePayload struct {
	Title       string
	Code        string
	Language    string
	Description string
	Tags        []string
	TeamID      *int64
	Visibility  Visibility
}

// Validate checks the payload against the snippet field constraints.
func (p CreatePayload) Validate() error {
	if err := validateTitle(p.Title); err != nil {
		return err
	}
	if err := validateCode(p.Code); err != nil {
		return err
	}
	if err := validateLanguage(p.Language); err != nil {
		return err
	}
	if err := validateDescription(p.Description); err != nil {
		return err
	}
	if err := validateTags(p.Tags); err != nil {
		return err
	}
	if _, err := ParseVisibility(string(p.Visibility)); err != nil {
		return err
	}
	if p.Visibility == VisibilityTeam && (p.TeamID == nil || *p.TeamID <= 0) {
		return fmt.Errorf("%w: team id is required for team visibility", ErrInvalidPayload)
	}
	return nil
}

// UpdatePayload carries a partial update. Nil fields are left untouched.
// The team id is deliberately not updatable: it is derived from the
// owner's membership at creation and nulled when visibility leaves team.
type UpdatePayload struct {
	Title       *string
	Code        *string
	Language    *string
	Description *string
	Tags        *[]string
	Visibility  *Visibility
}

// IsEmpty reports whether the payload updates nothing.
func (p UpdatePayload) IsEmpty() bool {
	return p.Title == nil && p.Code == nil && p.Language == nil &&
		p.Description == nil && p.Tags == nil && p.Visibility == nil
}

// Validate checks the present fields against the snippet field constraints.
func (p UpdatePayload) Validate() error {
	if p.Title != nil {
		if err := validateTitle(*p.Title); err != nil {
			return err
		}
	}
	if p.Code != nil {
		if err := validateCode(*p.Code); err != nil {
			return err
		}
	}
	if p.Language != nil {
		if err := validateLanguage(*p.Language); err != nil {
			return err
		}
	}
	if p.Description != nil {
		if err := validateDescription(*p.Description); err != nil {
			return err
		}
	}
	if p.Tags != nil {
		if err := validateTags(*p.Tags); err != nil {
			return err
		}
	}
	if p.Visibility != nil {
		if _, err := ParseVisibility(string(*p.Visibility)); err != nil {
			return err
		}
	}
	return nil
}

func validateTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidPayload)
	}
	if len(title) > maxTitleLength {
		return fmt.Errorf("%w: title exceeds %d characters", ErrInvalidPayload, maxTitleLength)
	}
	return nil
}

func validateCode(code string) error {
	if code == "" {
		return fmt.Errorf("%w: code cannot be empty", ErrInvalidPayload)
	}
	return nil
}

func validateLanguage(language string) error {
	if strings.TrimSpace(language) == "" {
		return fmt.Errorf("%w: language is required", ErrInvalidPayload)
	}
	if len(language) > maxLanguageLength {
		return fmt.Errorf("%w: language exceeds %d characters", ErrInvalidPayload, maxLanguageLength)
	}
	return nil
}

func validateDescription(description string) error {
	if len(description) > maxDescriptionLength {
		return fmt.Errorf("%w: description exceeds %d characters", ErrInvalidPayload, maxDescriptionLength)
	}
	return nil
}

func validateTags(tags []string) error {
	if len(tags) > maxTagCount {
		return fmt.Errorf("%w: at most %d tags allowed", ErrInvalidPayload, maxTagCount)
	}
	for _, tag := range tags {
		if len(tag) > maxTagLength {
			return fmt.Errorf("%w: tag exceeds %d characters", ErrInvalidPayload, maxTagLength)
		}
	}
	return nil
}

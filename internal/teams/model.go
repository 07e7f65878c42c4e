package teams

import "time"

// Team models a named group of users that can share snippets.
type Team struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement"`
	Name      string    `gorm:"column:name;size:190;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName provides the explicit table binding for GORM.
func (Team) TableName() string {
	return "teams"
}

// Membership links a user to a team.
type Membership struct {
	TeamID   int64     `gorm:"column:team_id;primaryKey;not null"`
	UserID   int64     `gorm:"column:user_id;primaryKey;not null;index:idx_team_members_user"`
	Role     string    `gorm:"column:role;size:50;not null;default:'member'"`
	JoinedAt time.Time `gorm:"column:joined_at;autoCreateTime"`
}

// TableName provides the explicit table binding for GORM.
func (Membership) TableName() string {
	return "team_members"
}

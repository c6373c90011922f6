package domain

import "time"

// User holds the reader attributes consumed by ranking. Account data lives elsewhere.
type User struct {
	ID         string     `json:"id"`
	Topics     []string   `json:"topics"`
	SkillLevel SkillLevel `json:"skillLevel,omitempty"`
}

// RoleProfile is the dynamic role distribution owned by the role engine.
type RoleProfile struct {
	UserID    string       `json:"userId"`
	Roles     []RoleWeight `json:"roles"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

// UpdateResult reports a single profile recomputation.
type UpdateResult struct {
	UserID       string       `json:"userId"`
	Before       []RoleWeight `json:"before"`
	After        []RoleWeight `json:"after"`
	RolesTouched int          `json:"rolesTouched"`
}

// BatchResult aggregates a batch job run.
type BatchResult struct {
	Processed int `json:"processed"`
	Updated   int `json:"updated"`
	Errors    int `json:"errors"`
}

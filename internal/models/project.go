package models

import "time"

// Project groups the objects discovered from one repository connection.
// TotalObjects and AutoMigrationPercentage are recomputed each time a
// discovery run replaces the project's object set.
type Project struct {
	ID                      string    `json:"id"`
	Name                    string    `json:"name"`
	ConnectionID            string    `json:"connection_id"`
	Description             string    `json:"description,omitempty"`
	TotalObjects            int       `json:"total_objects"`
	AutoMigrationPercentage int       `json:"auto_migration_percentage"`
	Created                 time.Time `json:"created"`
	Updated                 time.Time `json:"updated"`
}

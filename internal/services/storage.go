package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"metamigrate/internal/common"
	"metamigrate/internal/interfaces"
	"metamigrate/internal/models"

	bolt "go.etcd.io/bbolt"
)

const (
	connectionsBucket = "connections"
	projectsBucket    = "projects"
	objectsBucket     = "objects"
	assessmentsBucket = "assessments"
	issuesBucket      = "issues"
	syncStatusBucket  = "sync_status"
)

type storage struct {
	db     *bolt.DB
	config *common.StorageConfig
}

// NewStorage opens the bbolt database and ensures all entity buckets exist.
func NewStorage(config *common.StorageConfig) (interfaces.Storage, error) {
	dbDir := filepath.Dir(config.DatabasePath)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	if config.BackupDir != "" {
		if err := os.MkdirAll(config.BackupDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create backup directory: %w", err)
		}
	}

	db, err := bolt.Open(config.DatabasePath, 0600, &bolt.Options{
		Timeout: 1 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	buckets := []string{
		connectionsBucket, projectsBucket, objectsBucket,
		assessmentsBucket, issuesBucket, syncStatusBucket,
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range buckets {
			if _, err := tx.CreateBucketIfNotExists([]byte(bucket)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create buckets: %w", err)
	}

	return &storage{
		db:     db,
		config: config,
	}, nil
}

func (s *storage) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// --- connections ---

func (s *storage) SaveConnection(conn *models.RepositoryConnection) error {
	if conn.ID == "" {
		return common.NewValidationError("CONNECTION_ID", "connection id is required")
	}
	return s.put(connectionsBucket, conn.ID, conn)
}

func (s *storage) GetConnection(id string) (*models.RepositoryConnection, error) {
	var conn models.RepositoryConnection
	if err := s.get(connectionsBucket, id, &conn); err != nil {
		return nil, common.NewNotFoundError("CONNECTION_NOT_FOUND",
			fmt.Sprintf("connection %s not found", id))
	}
	return &conn, nil
}

func (s *storage) ListConnections() ([]*models.RepositoryConnection, error) {
	var conns []*models.RepositoryConnection
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(connectionsBucket)).ForEach(func(k, v []byte) error {
			var conn models.RepositoryConnection
			if err := json.Unmarshal(v, &conn); err != nil {
				return nil
			}
			conns = append(conns, &conn)
			return nil
		})
	})
	return conns, err
}

func (s *storage) DeleteConnection(id string) error {
	return s.delete(connectionsBucket, id)
}

// --- projects ---

func (s *storage) SaveProject(project *models.Project) error {
	if project.ID == "" {
		return common.NewValidationError("PROJECT_ID", "project id is required")
	}
	return s.put(projectsBucket, project.ID, project)
}

func (s *storage) GetProject(id string) (*models.Project, error) {
	var project models.Project
	if err := s.get(projectsBucket, id, &project); err != nil {
		return nil, common.NewNotFoundError("PROJECT_NOT_FOUND",
			fmt.Sprintf("project %s not found", id))
	}
	return &project, nil
}

func (s *storage) ListProjects() ([]*models.Project, error) {
	var projects []*models.Project
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(projectsBucket)).ForEach(func(k, v []byte) error {
			var project models.Project
			if err := json.Unmarshal(v, &project); err != nil {
				return nil
			}
			projects = append(projects, &project)
			return nil
		})
	})
	return projects, err
}

func (s *storage) DeleteProject(id string) error {
	// Project-scoped entities go with the project.
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket([]byte(projectsBucket)).Delete([]byte(id)); err != nil {
			return err
		}
		for _, bucket := range []string{objectsBucket, assessmentsBucket, issuesBucket} {
			if err := deletePrefix(tx.Bucket([]byte(bucket)), scopedPrefix(id)); err != nil {
				return err
			}
		}
		return tx.Bucket([]byte(syncStatusBucket)).Delete([]byte(id))
	})
}

// --- discovered objects ---

// ReplaceObjects supersedes the project's whole object set in one
// transaction, so readers never observe a half-written discovery run.
func (s *storage) ReplaceObjects(projectID string, objects []*models.DiscoveredObject) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(objectsBucket))

		if err := deletePrefix(bucket, scopedPrefix(projectID)); err != nil {
			return err
		}

		for _, obj := range objects {
			data, err := json.Marshal(obj)
			if err != nil {
				return fmt.Errorf("failed to marshal object %s: %w", obj.Name, err)
			}
			key := scopedKey(projectID, obj.ID)
			if err := bucket.Put(key, data); err != nil {
				return fmt.Errorf("failed to save object %s: %w", obj.Name, err)
			}
		}
		return nil
	})
}

func (s *storage) ListObjects(projectID string) ([]*models.DiscoveredObject, error) {
	var objects []*models.DiscoveredObject
	err := s.scanPrefix(objectsBucket, scopedPrefix(projectID), func(v []byte) {
		var obj models.DiscoveredObject
		if err := json.Unmarshal(v, &obj); err == nil {
			objects = append(objects, &obj)
		}
	})
	return objects, err
}

// --- assessments ---

// SaveAssessment appends to the project's assessment history. Keys embed the
// creation time so history lists back in run order.
func (s *storage) SaveAssessment(result *models.AssessmentResult) error {
	if result.ProjectID == "" {
		return common.NewValidationError("ASSESSMENT_PROJECT", "assessment project id is required")
	}
	key := fmt.Sprintf("%s:%s:%s", result.ProjectID, result.Created.UTC().Format(time.RFC3339Nano), result.ID)
	return s.db.Update(func(tx *bolt.Tx) error {
		data, err := json.Marshal(result)
		if err != nil {
			return err
		}
		return tx.Bucket([]byte(assessmentsBucket)).Put([]byte(key), data)
	})
}

func (s *storage) ListAssessments(projectID string) ([]*models.AssessmentResult, error) {
	var results []*models.AssessmentResult
	err := s.scanPrefix(assessmentsBucket, scopedPrefix(projectID), func(v []byte) {
		var result models.AssessmentResult
		if err := json.Unmarshal(v, &result); err == nil {
			results = append(results, &result)
		}
	})
	return results, err
}

// --- issues ---

func (s *storage) SaveIssue(issue *models.Issue) error {
	if issue.ProjectID == "" {
		return common.NewValidationError("ISSUE_PROJECT", "issue project id is required")
	}
	return s.put(issuesBucket, string(scopedKey(issue.ProjectID, issue.ID)), issue)
}

func (s *storage) ListIssues(projectID string) ([]*models.Issue, error) {
	var issues []*models.Issue
	err := s.scanPrefix(issuesBucket, scopedPrefix(projectID), func(v []byte) {
		var issue models.Issue
		if err := json.Unmarshal(v, &issue); err == nil {
			issues = append(issues, &issue)
		}
	})
	return issues, err
}

func (s *storage) UpdateIssue(issue *models.Issue) error {
	key := string(scopedKey(issue.ProjectID, issue.ID))
	err := s.db.View(func(tx *bolt.Tx) error {
		if tx.Bucket([]byte(issuesBucket)).Get([]byte(key)) == nil {
			return fmt.Errorf("missing")
		}
		return nil
	})
	if err != nil {
		return common.NewNotFoundError("ISSUE_NOT_FOUND",
			fmt.Sprintf("issue %s not found", issue.ID))
	}
	issue.Updated = time.Now()
	return s.put(issuesBucket, key, issue)
}

// --- sync status ---

func (s *storage) GetSyncStatus(projectID string) (*models.SyncStatus, error) {
	var status models.SyncStatus
	if err := s.get(syncStatusBucket, projectID, &status); err != nil {
		return nil, common.NewNotFoundError("SYNC_STATUS_NOT_FOUND",
			fmt.Sprintf("no sync status for project %s", projectID))
	}
	return &status, nil
}

// PutSyncStatus replaces the project's single status record, last write
// wins.
func (s *storage) PutSyncStatus(status *models.SyncStatus) error {
	if status.ProjectID == "" {
		return common.NewValidationError("SYNC_PROJECT", "sync status project id is required")
	}
	return s.put(syncStatusBucket, status.ProjectID, status)
}

// --- maintenance ---

// Backup copies the database file into the configured backup directory.
func (s *storage) Backup() error {
	if s.config.BackupDir == "" {
		return nil
	}

	timestamp := time.Now().Format("20060102_150405")
	backupPath := filepath.Join(s.config.BackupDir, fmt.Sprintf("metamigrate_%s.db", timestamp))

	return s.db.View(func(tx *bolt.Tx) error {
		return tx.CopyFile(backupPath, 0600)
	})
}

// PruneAssessments drops assessment history created before the cutoff.
func (s *storage) PruneAssessments(olderThan time.Time) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(assessmentsBucket))
		c := bucket.Cursor()

		var keysToDelete [][]byte
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var result models.AssessmentResult
			if err := json.Unmarshal(v, &result); err != nil {
				continue
			}
			if result.Created.Before(olderThan) {
				keysToDelete = append(keysToDelete, append([]byte(nil), k...))
			}
		}

		for _, key := range keysToDelete {
			if err := bucket.Delete(key); err != nil {
				return fmt.Errorf("failed to delete old assessment: %w", err)
			}
		}
		return nil
	})
}

// --- helpers ---

func scopedPrefix(projectID string) []byte {
	return []byte(projectID + ":")
}

func scopedKey(projectID, id string) []byte {
	return []byte(fmt.Sprintf("%s:%s", projectID, id))
}

func (s *storage) put(bucket, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal %s record: %w", bucket, err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucket)).Put([]byte(key), data)
	})
}

func (s *storage) get(bucket, key string, out interface{}) error {
	return s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket([]byte(bucket)).Get([]byte(key))
		if data == nil {
			return fmt.Errorf("no %s record for key %s", bucket, key)
		}
		return json.Unmarshal(data, out)
	})
}

func (s *storage) delete(bucket, key string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucket)).Delete([]byte(key))
	})
}

func (s *storage) scanPrefix(bucket string, prefix []byte, fn func(v []byte)) error {
	return s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket([]byte(bucket)).Cursor()
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			fn(v)
		}
		return nil
	})
}

func deletePrefix(bucket *bolt.Bucket, prefix []byte) error {
	c := bucket.Cursor()
	var keysToDelete [][]byte
	for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
		keysToDelete = append(keysToDelete, append([]byte(nil), k...))
	}
	for _, key := range keysToDelete {
		if err := bucket.Delete(key); err != nil {
			return err
		}
	}
	return nil
}

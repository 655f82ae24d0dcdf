package domain

import "time"

// File is metadata for an object stored in S3.
type File struct {
	FileID      string     `json:"id" dynamodbav:"file_id"`
	OwnerID     string     `json:"owner_id" dynamodbav:"owner_id"`
	Name        string     `json:"name" dynamodbav:"name"`
	ContentType string     `json:"content_type" dynamodbav:"content_type"`
	S3Key       string     `json:"-" dynamodbav:"s3_key"`
	Size        int64      `json:"size" dynamodbav:"size"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty" dynamodbav:"deleted_at"`
	CreatedAt   time.Time  `json:"created" dynamodbav:"created_at"`
}

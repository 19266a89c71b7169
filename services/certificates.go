package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"blockademia-progress/models"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/gosimple/unidecode"
)

// Certificate is handed to the certificate collaborator once per completed course.
type Certificate struct {
	UserID     string
	CourseID   string
	CourseName string
	Entry      models.CourseProgressEntry
}

// CertificateIssuer is the certificate collaborator.
type CertificateIssuer interface {
	Issue(ctx context.Context, cert Certificate) error
}

// ObjectUploader stores a blob and returns its public URL (utils.R2Bucket).
type ObjectUploader interface {
	PutObject(ctx context.Context, key string, body []byte, contentType string) (string, error)
}

// R2CertificateIssuer renders a JSON certificate and uploads it to object storage.
type R2CertificateIssuer struct {
	Uploader ObjectUploader
	Now      func() time.Time
}

func NewR2CertificateIssuer(uploader ObjectUploader) *R2CertificateIssuer {
	return &R2CertificateIssuer{Uploader: uploader, Now: time.Now}
}

type certificateDocument struct {
	ID               string     `json:"id"`
	UserID           string     `json:"user_id"`
	CourseID         string     `json:"course_id"`
	CourseName       string     `json:"course_name"`
	PrintableTitle   string     `json:"printable_title"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
	LessonsCompleted int        `json:"lessons_completed"`
	XPEarned         int64      `json:"xp_earned"`
	IssuedAt         time.Time  `json:"issued_at"`
}

// CertificateKey is the object key for a user's course certificate.
func CertificateKey(userID, courseID, courseName string) string {
	name := slug.Make(courseName)
	if name == "" {
		name = "course"
	}
	return fmt.Sprintf("certificates/%s/%s-%s.json", userID, name, slug.Make(courseID))
}

func (i *R2CertificateIssuer) Issue(ctx context.Context, cert Certificate) error {
	doc := certificateDocument{
		ID:               uuid.NewString(),
		UserID:           cert.UserID,
		CourseID:         cert.CourseID,
		CourseName:       cert.CourseName,
		PrintableTitle:   unidecode.Unidecode(cert.CourseName),
		CompletedAt:      cert.Entry.CompletedAt,
		LessonsCompleted: cert.Entry.LessonsCompleted,
		XPEarned:         cert.Entry.XPEarned,
		IssuedAt:         i.Now().UTC(),
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode certificate: %w", err)
	}

	key := CertificateKey(cert.UserID, cert.CourseID, cert.CourseName)
	url, err := i.Uploader.PutObject(ctx, key, body, "application/json")
	if err != nil {
		return fmt.Errorf("upload certificate %s: %w", key, err)
	}
	log.Printf("📜 Certificate issued: %s → %s (%s)", cert.UserID, cert.CourseID, url)
	return nil
}

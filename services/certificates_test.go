package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"blockademia-progress/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUploader struct {
	key         string
	body        []byte
	contentType string
	err         error
}

func (u *fakeUploader) PutObject(_ context.Context, key string, body []byte, contentType string) (string, error) {
	if u.err != nil {
		return "", u.err
	}
	u.key, u.body, u.contentType = key, body, contentType
	return "https://cdn.example.com/" + key, nil
}

func TestCertificateKey(t *testing.T) {
	assert.Equal(t,
		"certificates/u1/introduccion-a-solidity-c-1.json",
		CertificateKey("u1", "c-1", "Introducción a Solidity"))
	assert.Equal(t, "certificates/u1/course-c1.json", CertificateKey("u1", "c1", "!!!"))
}

func TestR2CertificateIssuerUploadsDocument(t *testing.T) {
	uploader := &fakeUploader{}
	issuer := NewR2CertificateIssuer(uploader)
	issuer.Now = func() time.Time { return testNow }

	completed := testNow.Add(-time.Hour)
	err := issuer.Issue(context.Background(), Certificate{
		UserID:     "u1",
		CourseID:   "c-1",
		CourseName: "Introducción a Solidity",
		Entry: models.CourseProgressEntry{
			Progress:         100,
			LessonsCompleted: 10,
			TotalLessons:     10,
			XPEarned:         500,
			Completed:        true,
			CompletedAt:      &completed,
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "application/json", uploader.contentType)
	assert.Equal(t, CertificateKey("u1", "c-1", "Introducción a Solidity"), uploader.key)

	var doc certificateDocument
	require.NoError(t, json.Unmarshal(uploader.body, &doc))
	assert.NotEmpty(t, doc.ID)
	assert.Equal(t, "Introduccion a Solidity", doc.PrintableTitle)
	assert.Equal(t, "Introducción a Solidity", doc.CourseName)
	assert.Equal(t, int64(500), doc.XPEarned)
	assert.True(t, doc.IssuedAt.Equal(testNow))
}

func TestR2CertificateIssuerWrapsUploadErrors(t *testing.T) {
	boom := errors.New("bucket offline")
	issuer := NewR2CertificateIssuer(&fakeUploader{err: boom})
	err := issuer.Issue(context.Background(), Certificate{UserID: "u1", CourseID: "c1", CourseName: "C1"})
	assert.ErrorIs(t, err, boom)
}

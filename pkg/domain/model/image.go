package model

import (
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

type ImageID string

func NewImageID() ImageID {
	return ImageID(uuid.New().String())
}

func (x ImageID) String() string { return string(x) }

// ClaimImage is a photo attached to a claim. Analysis is written once by the analysis step.
type ClaimImage struct {
	ID          ImageID        `json:"id" firestore:"id"`
	ClaimID     ClaimID        `json:"claim_id" firestore:"claim_id"`
	FileName    string         `json:"file_name" firestore:"file_name"`
	ContentType string         `json:"content_type" firestore:"content_type"`
	Size        int64          `json:"size" firestore:"size"`
	ObjectKey   string         `json:"object_key" firestore:"object_key"`
	PublicURL   string         `json:"public_url" firestore:"public_url"`
	Analysis    *ImageAnalysis `json:"analysis,omitempty" firestore:"analysis"`
	UploadedAt  time.Time      `json:"uploaded_at" firestore:"uploaded_at"`
}

func (x *ClaimImage) Copy() *ClaimImage {
	if x == nil {
		return nil
	}
	cp := *x
	if x.Analysis != nil {
		a := *x.Analysis
		cp.Analysis = &a
	}
	return &cp
}

// SanitizeFileName keeps the base name and replaces characters unsafe in object keys
func SanitizeFileName(name string) string {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	var b strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	out := strings.Trim(b.String(), ".")
	if out == "" {
		return "image"
	}
	return out
}

// ImageObjectKey returns the blob key for an image: claims/<claim>/<image>/<file>
func ImageObjectKey(claimID ClaimID, imageID ImageID, fileName string) string {
	return path.Join("claims", claimID.String(), imageID.String(), SanitizeFileName(fileName))
}

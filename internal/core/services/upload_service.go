package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	"solilend/internal/adapters/persistence/models"
	"solilend/internal/adapters/persistence/repositories"
	"solilend/internal/config"

	"github.com/google/uuid"
)

// Upload errors
var (
	ErrFileTooLarge      = errors.New("file exceeds the maximum allowed size")
	ErrUnsupportedFile   = errors.New("only JPEG and PNG images are accepted")
	ErrUnknownUploadKind = errors.New("unknown upload purpose")
)

// Upload purposes
const (
	UploadIDCard       = "id_card"
	UploadSelfie       = "selfie"
	UploadPaymentProof = "payment_proof"
)

var allowedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

// UploadService stores member-submitted images on disk and records them so
// TTL-bound purposes can be purged later.
type UploadService struct {
	uploadRepo repositories.UploadRepository
	cfg        config.UploadConfig
}

// NewUploadService creates a new upload service
func NewUploadService(uploadRepo repositories.UploadRepository, cfg config.UploadConfig) *UploadService {
	return &UploadService{uploadRepo: uploadRepo, cfg: cfg}
}

// Store validates and saves an uploaded image, returning its record. Selfies
// carry an expiry; identity documents and payment proofs are permanent.
func (s *UploadService) Store(ctx context.Context, memberID uint, purpose string, fh *multipart.FileHeader) (*models.UploadedFile, error) {
	if purpose != UploadIDCard && purpose != UploadSelfie && purpose != UploadPaymentProof {
		return nil, ErrUnknownUploadKind
	}
	if fh.Size > s.cfg.MaxSizeBytes {
		return nil, ErrFileTooLarge
	}

	ext := strings.ToLower(filepath.Ext(fh.Filename))
	if !allowedExtensions[ext] {
		return nil, ErrUnsupportedFile
	}

	fileName := fmt.Sprintf("%s_%s%s", purpose, uuid.New().String(), ext)
	if err := s.saveToDisk(fh, fileName); err != nil {
		return nil, err
	}

	var expiresAt *time.Time
	if purpose == UploadSelfie && s.cfg.SelfieTTLDays > 0 {
		t := time.Now().AddDate(0, 0, s.cfg.SelfieTTLDays)
		expiresAt = &t
	}

	record := &models.UploadedFile{
		MemberID:  memberID,
		Purpose:   purpose,
		FileName:  fileName,
		URL:       strings.TrimRight(s.cfg.BaseURL, "/") + "/" + fileName,
		ExpiresAt: expiresAt,
	}
	if err := s.uploadRepo.Create(ctx, record); err != nil {
		// The record is the source of truth; an orphaned file on disk is
		// worse than no file
		_ = os.Remove(filepath.Join(s.cfg.Dir, fileName))
		return nil, err
	}

	log.Printf("📎 Uploaded %s for member %d: %s", purpose, memberID, fileName)
	return record, nil
}

func (s *UploadService) saveToDisk(fh *multipart.FileHeader, fileName string) error {
	if err := os.MkdirAll(s.cfg.Dir, 0o755); err != nil {
		return err
	}

	src, err := fh.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.Create(filepath.Join(s.cfg.Dir, fileName))
	if err != nil {
		return err
	}
	defer dst.Close()

	_, err = io.Copy(dst, src)
	return err
}

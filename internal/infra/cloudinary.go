package infra

import (
	"context"
	"fmt"
	"os"

	"github.com/Vovarama1992/storyreels/internal/models"
	"github.com/Vovarama1992/storyreels/internal/ports"
	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// ReelTransformation asks for a bandwidth-friendly mp4: auto:eco quality,
// 720px wide, h264.
const ReelTransformation = "f_mp4,q_auto:eco,w_720,vc_h264"

type cloudinaryUploader interface {
	Upload(ctx context.Context, file interface{}, params uploader.UploadParams) (*uploader.UploadResult, error)
}

type CloudinaryStore struct {
	api cloudinaryUploader
}

func NewCloudinaryStore(cloudName, apiKey, apiSecret string) (*CloudinaryStore, error) {
	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("cloudinary init: %w", err)
	}
	return &CloudinaryStore{api: &cld.Upload}, nil
}

var _ ports.MediaStore = (*CloudinaryStore)(nil)

func (s *CloudinaryStore) Submit(ctx context.Context, path string, category models.Category) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: open staged file: %v", ports.ErrRemoteSubmission, err)
	}
	defer f.Close()

	params := uploader.UploadParams{
		ResourceType: "video",
		Folder:       category.Folder(),
	}
	if category == models.UserReel {
		params.Eager = ReelTransformation
	}

	res, err := s.api.Upload(ctx, f, params)
	if err != nil {
		return "", fmt.Errorf("%w: cloudinary upload: %v", ports.ErrRemoteSubmission, err)
	}
	if res == nil {
		return "", fmt.Errorf("%w: cloudinary returned no result", ports.ErrRemoteSubmission)
	}
	if res.Error.Message != "" {
		return "", fmt.Errorf("%w: cloudinary: %s", ports.ErrRemoteSubmission, res.Error.Message)
	}

	if category == models.UserReel {
		if len(res.Eager) == 0 || res.Eager[0].SecureURL == "" {
			return "", fmt.Errorf("%w: cloudinary returned no transformed variant", ports.ErrRemoteSubmission)
		}
		return res.Eager[0].SecureURL, nil
	}

	if res.SecureURL == "" {
		return "", fmt.Errorf("%w: cloudinary returned no url", ports.ErrRemoteSubmission)
	}
	return res.SecureURL, nil
}

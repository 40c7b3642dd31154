package services

import (
	"context"
	"fmt"
	"mime/multipart"
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

const CloudinaryFolder = "smartaqar/properties"

// CloudinaryImageStore keeps images on Cloudinary. It is used instead of the
// local disk when credentials are configured.
type CloudinaryImageStore struct {
	cld    *cloudinary.Cloudinary
	folder string
}

func NewCloudinaryImageStore(cloudName, apiKey, apiSecret string) (*CloudinaryImageStore, error) {
	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Cloudinary: %w", err)
	}
	return &CloudinaryImageStore{cld: cld, folder: CloudinaryFolder}, nil
}

func (s *CloudinaryImageStore) Save(ctx context.Context, fh *multipart.FileHeader) (string, error) {
	file, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	name := imageFileName(fh)
	name = strings.TrimSuffix(name, path.Ext(name))
	res, err := s.cld.Upload.Upload(ctx, file, uploader.UploadParams{
		Folder:       s.folder,
		PublicID:     name,
		ResourceType: "image",
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to Cloudinary: %w", err)
	}
	if res.Error.Message != "" {
		return "", fmt.Errorf("cloudinary upload rejected: %s", res.Error.Message)
	}
	return res.SecureURL, nil
}

func (s *CloudinaryImageStore) Remove(ctx context.Context, ref string) error {
	publicID := CloudinaryPublicID(ref, s.folder)
	if publicID == "" {
		return nil
	}
	if _, err := s.cld.Upload.Destroy(ctx, uploader.DestroyParams{
		PublicID:     publicID,
		ResourceType: "image",
	}); err != nil {
		return fmt.Errorf("failed to delete from Cloudinary: %w", err)
	}
	return nil
}

func (s *CloudinaryImageStore) Owns(ref string) bool {
	return CloudinaryPublicID(ref, s.folder) != ""
}

var versionSegment = regexp.MustCompile(`^v\d+$`)

// CloudinaryPublicID extracts the public id from a delivery URL such as
// https://res.cloudinary.com/demo/image/upload/v17/smartaqar/properties/property-1.jpg.
// It returns "" for URLs outside folder.
func CloudinaryPublicID(ref, folder string) string {
	u, err := url.Parse(ref)
	if err != nil || !strings.HasSuffix(u.Host, "cloudinary.com") {
		return ""
	}
	_, rest, found := strings.Cut(u.Path, "/upload/")
	if !found {
		return ""
	}
	segments := strings.Split(rest, "/")
	if len(segments) > 0 && versionSegment.MatchString(segments[0]) {
		segments = segments[1:]
	}
	id := strings.Join(segments, "/")
	id = strings.TrimSuffix(id, path.Ext(id))
	if !strings.HasPrefix(id, folder+"/") {
		return ""
	}
	return id
}

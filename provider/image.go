package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/draftforge/draftforge/artifact"
	"github.com/draftforge/draftforge/config"
)

// ImageService generates article images. It is not a research adapter: the
// image planner drives it per image slot and substitutes a placeholder URL
// when generation fails, rather than failing the stage.
type ImageService struct {
	base  *Base
	creds config.Credentials
}

// NewImageService creates the image generation client.
func NewImageService(base *Base, creds config.Credentials) *ImageService {
	return &ImageService{
		base:  base,
		creds: creds,
	}
}

// Name returns the provider identifier for provenance.
func (s *ImageService) Name() string {
	return "image-service"
}

// IsLive reports whether an image service URL is configured.
func (s *ImageService) IsLive() bool {
	return s.creds.ImageServiceURL != ""
}

// imageResponse covers both response shapes the service may return: a bare
// url field or an OpenAI-style data array.
type imageResponse struct {
	URL  string `json:"url"`
	Data []struct {
		URL string `json:"url"`
	} `json:"data"`
}

// Generate asks the image service to render prompt and returns the image URL.
func (s *ImageService) Generate(ctx context.Context, prompt string) (string, error) {
	if !s.IsLive() {
		return "", credentialErr(artifact.KindImageSet, config.EnvImageServiceURL)
	}

	body, err := json.Marshal(map[string]string{"prompt": prompt})
	if err != nil {
		return "", schemaErr(artifact.KindImageSet, err)
	}

	endpoint := strings.TrimSuffix(s.creds.ImageServiceURL, "/") + "/generate"
	req, err := http.NewRequest(http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", transportErr(artifact.KindImageSet, err)
	}
	req.Header.Set("Content-Type", "application/json")

	raw, err := s.base.FetchJSON(ctx, artifact.KindImageSet, req)
	if err != nil {
		return "", err
	}

	var resp imageResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", schemaErr(artifact.KindImageSet, err)
	}

	imageURL := resp.URL
	if imageURL == "" && len(resp.Data) > 0 {
		imageURL = resp.Data[0].URL
	}
	if imageURL == "" {
		return "", schemaErr(artifact.KindImageSet, fmt.Errorf("no image url in response"))
	}

	return imageURL, nil
}

// PlaceholderURL returns the deterministic stand-in for a failed or skipped
// generation. slot keeps URLs unique within one article's image set.
func PlaceholderURL(slug string, slot int) string {
	text := strings.ReplaceAll(slug, "-", " ")
	if slot > 0 {
		text = fmt.Sprintf("%s %d", text, slot)
	}
	return "https://placehold.co/1200x675?text=" + url.QueryEscape(text)
}

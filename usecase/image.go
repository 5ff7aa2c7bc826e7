package usecase

import (
	"encoding/base64"
	"strings"

	"dormscout-backend/model"
)

// ParseImageDataURL accepts "data:<mime>;base64,<payload>" or bare base64.
// An empty string means no image was supplied.
func ParseImageDataURL(s string) (*model.Image, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	mime, payload := "image/jpeg", s
	if strings.HasPrefix(s, "data:") {
		header, data, ok := strings.Cut(s, ",")
		if !ok {
			return nil, invalid("image", "malformed data URL")
		}
		meta := strings.TrimPrefix(header, "data:")
		if !strings.HasSuffix(meta, ";base64") {
			return nil, invalid("image", "data URL must be base64 encoded")
		}
		if m := strings.TrimSuffix(meta, ";base64"); m != "" {
			mime = m
		}
		payload = data
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, invalid("image", "invalid base64 payload")
	}
	if len(raw) == 0 {
		return nil, invalid("image", "empty image")
	}
	return &model.Image{MIMEType: mime, Data: raw, Ref: s}, nil
}

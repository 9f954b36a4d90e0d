package gateway

import (
	"encoding/json"
	"errors"
	"strings"
)

// UploadShape names the JSON layout the upload endpoint answers with. Deployments
// of the service disagree, so the layout is configured rather than guessed.
type UploadShape string

const (
	// ShapeMediaURL expects {"mediaUrl": "https://..."}.
	ShapeMediaURL UploadShape = "media_url"
	// ShapeURLList expects [{"url": "https://..."}], taking the first entry.
	ShapeURLList UploadShape = "url_list"
)

var errNoURL = errors.New("upload response has no media URL")

// Valid reports whether s is a known shape.
func (s UploadShape) Valid() bool {
	return s == ShapeMediaURL || s == ShapeURLList
}

func (s UploadShape) parse(body []byte) (string, error) {
	switch s {
	case ShapeURLList:
		var items []struct {
			URL string `json:"url"`
		}
		if err := json.Unmarshal(body, &items); err != nil {
			return "", err
		}
		if len(items) == 0 || strings.TrimSpace(items[0].URL) == "" {
			return "", errNoURL
		}
		return strings.TrimSpace(items[0].URL), nil
	default:
		var obj struct {
			MediaURL string `json:"mediaUrl"`
		}
		if err := json.Unmarshal(body, &obj); err != nil {
			return "", err
		}
		if strings.TrimSpace(obj.MediaURL) == "" {
			return "", errNoURL
		}
		return strings.TrimSpace(obj.MediaURL), nil
	}
}

func (s UploadShape) missingMessage() string {
	if s == ShapeURLList {
		return "No url returned from upload"
	}
	return "No mediaUrl returned from upload"
}

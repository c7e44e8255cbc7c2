package issuance

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/tidwall/gjson"
)

// MimeUnknown is the content type of unrecognized attachments.
const MimeUnknown = "unknown"

// ErrBadMetadata is returned when a metadata document cannot be read back.
var ErrBadMetadata = errors.New("malformed issuance metadata")

// Attachment references an external file, such as the token icon.
type Attachment struct {
	Name     string `json:"name"`
	URL      string `json:"url"`
	MimeType string `json:"mimeType"`
}

// MetadataData is the body of the metadata document.
type MetadataData struct {
	TokenName   string       `json:"tokenName"`
	Description string       `json:"description"`
	Issuer      string       `json:"issuer"`
	URLs        []Attachment `json:"urls,omitempty"`
}

// Metadata is the document embedded in an issuance transaction:
//
//	{"data":{"tokenName":..,"description":..,"issuer":..,"urls":[..]}}
//
// tokenName holds the symbol and description the token's display name.
type Metadata struct {
	Data MetadataData `json:"data"`
}

// BuildMetadata describes req. The urls list is present only when an icon
// URL was given.
func BuildMetadata(req Request) Metadata {
	m := Metadata{Data: MetadataData{
		TokenName:   strings.TrimSpace(req.Symbol),
		Description: strings.TrimSpace(req.Name),
		Issuer:      strings.TrimSpace(req.Issuer),
	}}
	if icon := strings.TrimSpace(req.IconURL); icon != "" {
		m.Data.URLs = []Attachment{{
			Name:     "icon",
			URL:      icon,
			MimeType: MimeTypeFromPath(icon),
		}}
	}
	return m
}

// Icon returns the icon attachment, if any.
func (m Metadata) Icon() (Attachment, bool) {
	for _, a := range m.Data.URLs {
		if a.Name == "icon" {
			return a, true
		}
	}
	return Attachment{}, false
}

// Marshal renders the canonical JSON form. Field order is fixed and URLs
// are not HTML-escaped.
func (m Metadata) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(m); err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// ParseMetadata reads a metadata document back. Unknown fields are ignored.
func ParseMetadata(raw []byte) (Metadata, error) {
	if !gjson.ValidBytes(raw) {
		return Metadata{}, ErrBadMetadata
	}
	data := gjson.GetBytes(raw, "data")
	if !data.IsObject() {
		return Metadata{}, fmt.Errorf("%w: missing data object", ErrBadMetadata)
	}
	m := Metadata{Data: MetadataData{
		TokenName:   data.Get("tokenName").String(),
		Description: data.Get("description").String(),
		Issuer:      data.Get("issuer").String(),
	}}
	if urls := data.Get("urls"); urls.Exists() {
		if !urls.IsArray() {
			return Metadata{}, fmt.Errorf("%w: urls is not a list", ErrBadMetadata)
		}
		for _, u := range urls.Array() {
			m.Data.URLs = append(m.Data.URLs, Attachment{
				Name:     u.Get("name").String(),
				URL:      u.Get("url").String(),
				MimeType: u.Get("mimeType").String(),
			})
		}
	}
	return m, nil
}

var mimeTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".bmp":  "image/bmp",
	".svg":  "image/svg+xml",
	".webp": "image/webp",
	".ico":  "image/x-icon",
	".tif":  "image/tiff",
	".tiff": "image/tiff",
	".json": "application/json",
	".pdf":  "application/pdf",
	".txt":  "text/plain",
	".html": "text/html",
	".htm":  "text/html",
}

// MimeTypeFromPath guesses a content type from the extension of a URL or
// file path. Query strings and fragments are ignored. Unrecognized
// extensions give MimeUnknown.
func MimeTypeFromPath(p string) string {
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	ext := strings.ToLower(path.Ext(p))
	if t, ok := mimeTypes[ext]; ok {
		return t
	}
	return MimeUnknown
}

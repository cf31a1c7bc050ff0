package document

import (
	"errors"
	"fmt"
	"mime"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// UploadRules bound what an uploaded document may look like.
type UploadRules struct {
	MaxSize    int64
	Extensions []string
}

// ParseExtensions splits a comma separated list like ".pdf,.png".
func ParseExtensions(list string) []string {
	var out []string
	for _, ext := range strings.Split(list, ",") {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		out = append(out, ext)
	}
	return out
}

// ValidateUploadedFile checks size and extension of an upload. The returned
// error message is safe to show to the client.
func (r UploadRules) ValidateUploadedFile(fileName string, size int64) error {
	if size == 0 {
		return errors.New("The submitted file is empty.")
	}

	if r.MaxSize > 0 && size > r.MaxSize {
		return fmt.Errorf("File size exceeds the %d MB limit.", r.MaxSize>>20)
	}

	if len(r.Extensions) > 0 {
		ext := strings.ToLower(filepath.Ext(fileName))
		allowed := false
		for _, e := range r.Extensions {
			if e == ext {
				allowed = true
				break
			}
		}
		if !allowed {
			return fmt.Errorf("File type %q is not supported. Allowed: %s.", ext, strings.Join(r.Extensions, ", "))
		}
	}

	return nil
}

// GenerateObjectKey builds a collision free key below prefix/owner/.
func GenerateObjectKey(prefix string, owner uuid.UUID, fileName string) string {
	ext := strings.ToLower(filepath.Ext(fileName))
	return fmt.Sprintf("%s/%s/%s%s", strings.Trim(prefix, "/"), owner, uuid.New(), ext)
}

// ContentType guesses the MIME type from the file extension.
func ContentType(fileName string) string {
	if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(fileName))); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

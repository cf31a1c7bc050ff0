package document

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestParseExtensions(t *testing.T) {
	assert.Equal(t, []string{".pdf", ".png", ".jpg"}, ParseExtensions(" .PDF, png,,.jpg "))
	assert.Nil(t, ParseExtensions(""))
}

func TestValidateUploadedFile(t *testing.T) {
	rules := UploadRules{MaxSize: 1 << 20, Extensions: []string{".pdf", ".png"}}

	assert.NoError(t, rules.ValidateUploadedFile("passport.PNG", 1024))
	assert.Error(t, rules.ValidateUploadedFile("passport.png", 0))
	assert.Error(t, rules.ValidateUploadedFile("passport.png", 2<<20))
	assert.Error(t, rules.ValidateUploadedFile("passport.exe", 1024))

	assert.NoError(t, UploadRules{}.ValidateUploadedFile("anything.bin", 5))
}

func TestGenerateObjectKey(t *testing.T) {
	owner := uuid.New()
	key := GenerateObjectKey("/id-documents/", owner, "Scan.PDF")

	assert.True(t, strings.HasPrefix(key, "id-documents/"+owner.String()+"/"))
	assert.True(t, strings.HasSuffix(key, ".pdf"))
	assert.NotEqual(t, key, GenerateObjectKey("id-documents", owner, "Scan.PDF"))
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "application/pdf", ContentType("a.pdf"))
	assert.Equal(t, "application/octet-stream", ContentType("noext"))
}

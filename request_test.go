package llmadapter

import (
	"bytes"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
)

func testPng(t *testing.T, width, height int) []byte {
	t.Helper()

	var buf bytes.Buffer

	assert.Nil(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, width, height))))

	return buf.Bytes()
}

func readPart(t *testing.T, p Part) string {
	t.Helper()

	buf, err := io.ReadAll(p.Content())

	assert.Nil(t, err)

	return string(buf)
}

func TestRequestTextMessages(t *testing.T) {
	req := NewUntypedRequest().
		WithInstruction("system text").
		WithInstructionReader(strings.NewReader("system reader")).
		WithText(RoleUser, "user text", "user text 2").
		WithTextReader(RoleAi, strings.NewReader("ai text"))

	assert.Nil(t, req.err)
	assert.Len(t, req.Messages, 4)

	assert.Equal(t, RoleSystem, req.Messages[0].Role)
	assert.Equal(t, "system text", readPart(t, req.Messages[0].Parts[0]))
	assert.Equal(t, RoleSystem, req.Messages[1].Role)
	assert.Equal(t, "system reader", readPart(t, req.Messages[1].Parts[0]))
	assert.Equal(t, RoleUser, req.Messages[2].Role)
	assert.Len(t, req.Messages[2].Parts, 2)
	assert.Equal(t, "user text 2", readPart(t, req.Messages[2].Parts[1]))
	assert.Equal(t, RoleAi, req.Messages[3].Role)

	for _, msg := range req.Messages {
		assert.False(t, msg.HasImages())
	}
}

func TestRequestImages(t *testing.T) {
	img := testPng(t, 4, 4)

	req := NewUntypedRequest().
		WithImage(RoleUser, bytes.NewReader(img)).
		WithImageUrl(RoleUser, "https://example.com/cat.png").
		WithTextAndImages(RoleUser, "What is this?", bytes.NewReader(img), bytes.NewReader(img))

	assert.Nil(t, req.err)
	assert.Len(t, req.Messages, 3)

	assert.True(t, req.Messages[0].HasImages())
	assert.Equal(t, PartImage, req.Messages[0].Parts[0].Type)
	assert.Equal(t, "image/png", req.Messages[0].Parts[0].MimeType)
	assert.Equal(t, string(img), readPart(t, req.Messages[0].Parts[0]))

	assert.Equal(t, PartImageUrl, req.Messages[1].Parts[0].Type)
	assert.Equal(t, "https://example.com/cat.png", readPart(t, req.Messages[1].Parts[0]))

	assert.Len(t, req.Messages[2].Parts, 3)
	assert.Equal(t, PartText, req.Messages[2].Parts[0].Type)
	assert.Equal(t, "What is this?", readPart(t, req.Messages[2].Parts[0]))
	assert.Equal(t, PartImage, req.Messages[2].Parts[1].Type)
	assert.Equal(t, PartImage, req.Messages[2].Parts[2].Type)
}

func TestRequestLargeImageIsDownscaled(t *testing.T) {
	req := NewUntypedRequest().WithImage(RoleUser, bytes.NewReader(testPng(t, 3000, 1500)))

	assert.Nil(t, req.err)
	assert.Equal(t, "image/jpeg", req.Messages[0].Parts[0].MimeType)

	cfg, _, err := image.DecodeConfig(req.Messages[0].Parts[0].Content())

	assert.Nil(t, err)
	assert.Equal(t, 1568, cfg.Width)
	assert.Equal(t, 784, cfg.Height)
}

func TestRequestInvalidImage(t *testing.T) {
	req := NewUntypedRequest().
		WithTextAndImages(RoleUser, "What is this?", strings.NewReader("definitely not an image"))

	assert.ErrorContains(t, req.err, "unsupported image format")
	assert.Len(t, req.Messages, 0)
}

func TestRequestImageFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "image.png")

	assert.Nil(t, os.WriteFile(path, testPng(t, 8, 8), 0o600))

	req := NewUntypedRequest().WithImageFile(RoleUser, path)

	assert.Nil(t, req.err)
	assert.Equal(t, "image/png", req.Messages[0].Parts[0].MimeType)

	req = NewUntypedRequest().WithImageFile(RoleUser, filepath.Join(t.TempDir(), "missing.png"))

	assert.ErrorContains(t, req.err, "could not open image")
}

func TestRequestOptions(t *testing.T) {
	req := NewUntypedRequest().
		WithId("theid").
		WithModel("themodel").
		WithMaxTokens(400).
		WithMaxCandidates(2).
		WithTemperature(0.2).
		WithTopP(0.9)

	inner := req.ToRequest()

	assert.Equal(t, "theid", inner.Id)
	assert.Equal(t, "themodel", *inner.Model)
	assert.Equal(t, 400, *inner.MaxTokens)
	assert.Equal(t, 2, *inner.MaxCandidates)
	assert.Equal(t, 0.2, *inner.Temperature)
	assert.Equal(t, 0.9, *inner.TopP)
	assert.Nil(t, inner.ResponseSchema)
}

func TestTypedRequestSchema(t *testing.T) {
	type Output struct {
		Caption string `json:"caption" jsonschema_description:"Image caption"`
	}

	req := NewRequest[Output]()

	assert.NotNil(t, req.ResponseSchema)
	assert.Equal(t, "object", req.ResponseSchema.Type)
	assert.Equal(t, "Image caption", req.ResponseSchema.Properties.Value("caption").Description)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("disk on fire")
}

func TestRequestPartsCanBeReadRepeatedly(t *testing.T) {
	img := testPng(t, 16, 16)
	req := NewUntypedRequest().
		WithTextReader(RoleUser, strings.NewReader("Describe this image.")).
		WithTextAndImages(RoleUser, "And this one.", bytes.NewReader(img))

	assert.Nil(t, req.err)

	for range 2 {
		assert.Equal(t, "Describe this image.", readPart(t, req.ToRequest().Messages[0].Parts[0]))
		assert.Equal(t, "And this one.", readPart(t, req.ToRequest().Messages[1].Parts[0]))
		assert.Equal(t, string(img), readPart(t, req.ToRequest().Messages[1].Parts[1]))
	}
}

func TestRequestTextReaderError(t *testing.T) {
	req := NewUntypedRequest().WithTextReader(RoleUser, failingReader{})

	assert.ErrorContains(t, req.Err(), "disk on fire")
	assert.Len(t, req.Messages, 0)
}

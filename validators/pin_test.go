package validators

import (
	"testing"

	"pindrop/pin-api/internal/quota"
	"pindrop/pin-api/internal/service"

	"github.com/stretchr/testify/assert"
)

func TestPinPayload(t *testing.T) {
	manyRefs := make([]string, maxImagesPerPin+1)
	for i := range manyRefs {
		manyRefs[i] = "ref"
	}

	tcs := []struct {
		name string
		in   service.CreatePinInput
		exp  error
	}{
		{
			name: "Text",
			in:   service.CreatePinInput{Kind: quota.KindText, Content: "hi"},
		},
		{
			name: "TextEmpty",
			in:   service.CreatePinInput{Kind: quota.KindText},
			exp:  ErrNoContent,
		},
		{
			name: "CodeEmpty",
			in:   service.CreatePinInput{Kind: quota.KindCode, Language: "go"},
			exp:  ErrNoContent,
		},
		{
			name: "URL",
			in:   service.CreatePinInput{Kind: quota.KindURL, Content: "https://example.com"},
		},
		{
			name: "Image",
			in:   service.CreatePinInput{Kind: quota.KindImage, ImageRefs: []string{"a"}},
		},
		{
			name: "ImageNoRefs",
			in:   service.CreatePinInput{Kind: quota.KindImage},
			exp:  ErrNoImages,
		},
		{
			name: "ImageTooManyRefs",
			in:   service.CreatePinInput{Kind: quota.KindImage, ImageRefs: manyRefs},
			exp:  ErrTooManyImages,
		},
		{
			name: "MixedTextOnly",
			in:   service.CreatePinInput{Kind: quota.KindMixed, Content: "hi"},
		},
		{
			name: "MixedImagesOnly",
			in:   service.CreatePinInput{Kind: quota.KindMixed, ImageRefs: []string{"a"}},
		},
		{
			name: "MixedEmpty",
			in:   service.CreatePinInput{Kind: quota.KindMixed},
			exp:  ErrNoContent,
		},
		{
			name: "File",
			in:   service.CreatePinInput{Kind: quota.KindFile, FileKey: "k", FileSize: 1},
		},
		{
			name: "FileNoKey",
			in:   service.CreatePinInput{Kind: quota.KindFile, FileSize: 1},
			exp:  ErrNoFileKey,
		},
		{
			name: "UnknownKind",
			in:   service.CreatePinInput{Kind: quota.Kind("hologram")},
			exp:  ErrUnknownKind,
		},
	}

	for _, c := range tcs {
		t.Run(c.name, func(t *testing.T) {
			err := PinPayload(&c.in)
			if c.exp == nil {
				assert.NoError(t, err)
				return
			}

			assert.ErrorIs(t, err, c.exp)
		})
	}
}

package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripCodeFences(t *testing.T) {
	assert.Equal(t, `{"a":1}`, StripCodeFences("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, StripCodeFences("```\n{\"a\":1}```"))
	assert.Equal(t, `plain`, StripCodeFences("  plain  "))
}

func TestFirstJSONObject(t *testing.T) {
	got, ok := FirstJSONObject(`Sure! {"is_waste": true, "x": {"y": 1}} hope this helps`)
	assert.True(t, ok)
	assert.Equal(t, `{"is_waste": true, "x": {"y": 1}}`, got)

	_, ok = FirstJSONObject("no json here")
	assert.False(t, ok)
	_, ok = FirstJSONObject("} backwards {")
	assert.False(t, ok)
}

func TestPickImageMIME(t *testing.T) {
	png := []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0, 0}
	jpg := []byte{0xFF, 0xD8, 0xFF, 0xE0}
	assert.Equal(t, "image/png", PickImageMIME("", png))
	assert.Equal(t, "image/jpeg", PickImageMIME("", jpg))
	assert.Equal(t, "image/webp", PickImageMIME("image/webp", jpg))
	assert.Equal(t, "image/jpeg", PickImageMIME("text/plain", []byte("hello world")))
}

func TestImageExt(t *testing.T) {
	png := []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}
	assert.Equal(t, ".jpeg", ImageExt("Photo.JPEG", nil))
	assert.Equal(t, ".png", ImageExt("../../etc/passwd", png))
	assert.Equal(t, ".jpg", ImageExt("evil.php", []byte("<?php")))
}

func TestSHA256Hex(t *testing.T) {
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", SHA256Hex(nil))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc", 5))
	assert.Equal(t, "ab…", Truncate("abcdef", 2))
}

func TestTruncateUTF16(t *testing.T) {
	assert.Equal(t, "abc", TruncateUTF16("abc", 3))
	assert.Equal(t, "ab…", TruncateUTF16("abcdef", 3))
	// эмодзи занимают по две единицы UTF-16
	assert.Equal(t, "🗑🗑", TruncateUTF16("🗑🗑", 4))
	assert.Equal(t, "🗑…", TruncateUTF16("🗑🗑🗑", 4))
	assert.Equal(t, "a…", TruncateUTF16("a🗑🗑", 4))
	assert.Equal(t, "", TruncateUTF16("abc", 0))
}

package source

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheKey(t *testing.T) {
	assert.Equal(t, "org_model_weights.bin", Remote{RepositoryID: "org/model", Filename: "weights.bin"}.CacheKey())
	assert.Equal(t, "org_model_onnx_model.onnx", Remote{RepositoryID: "org/model", Filename: "onnx/model.onnx"}.CacheKey())
}

func TestStructuralEquality(t *testing.T) {
	var a Reference = Remote{RepositoryID: "o/m", Filename: "f"}
	var b Reference = Remote{RepositoryID: "o/m", Filename: "f"}
	assert.True(t, a == b)
	assert.False(t, Reference(LocalFile{Path: "f"}) == Reference(Bundled{AssetPath: "f"}))
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "Built-in: model.tflite", Bundled{AssetPath: "models/model.tflite"}.DisplayName())
	assert.Equal(t, "Local: custom_model.tflite", LocalFile{Path: "/sdcard/Models/custom_model.tflite"}.DisplayName())
	assert.Equal(t, "HuggingFace: llama.bin", Remote{RepositoryID: "TheBloke/x", Filename: "llama.bin"}.DisplayName())
}

func TestParseReference(t *testing.T) {
	cases := map[string]Reference{
		"bundled:models/a.tflite":      Bundled{AssetPath: "models/a.tflite"},
		"file:custom.bin":              LocalFile{Path: "custom.bin"},
		"hf:org/model/weights.bin":     Remote{RepositoryID: "org/model", Filename: "weights.bin"},
		"hf://org/model/weights.bin":   Remote{RepositoryID: "org/model", Filename: "weights.bin"},
		" huggingface:org/m/file.gguf": Remote{RepositoryID: "org/m", Filename: "file.gguf"},
	}
	for in, want := range cases {
		got, err := ParseReference(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
		// String is the inverse for canonical input
		back, err := ParseReference(got.String())
		require.NoError(t, err)
		assert.Equal(t, got, back)
	}
	for _, bad := range []string{"", "nocolon", "ftp:x", "hf:onlyname", "hf:org/", "file:"} {
		_, err := ParseReference(bad)
		assert.Error(t, err, bad)
	}
}

func TestSpecJSON(t *testing.T) {
	for _, ref := range []Reference{
		Bundled{AssetPath: "a.bin"},
		LocalFile{Path: "b.bin"},
		Remote{RepositoryID: "o/m", Filename: "c.bin"},
	} {
		b, err := MarshalReference(ref)
		require.NoError(t, err)
		got, err := UnmarshalReference(b)
		require.NoError(t, err)
		assert.Equal(t, ref, got)
	}
	_, err := UnmarshalReference([]byte(`{"kind":"remote","repository":"o/m"}`))
	assert.Error(t, err)
	_, err = MarshalReference(nil)
	assert.Error(t, err)
}

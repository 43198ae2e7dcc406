package source

import (
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"agentcore/pkg/types"
)

// Reference is a logical pointer to a model artifact. It is a closed set:
// Bundled, LocalFile and Remote are the only implementations. All variants
// are comparable values, so == is structural equality.
type Reference interface {
	// DisplayName is a short label for pickers and logs.
	DisplayName() string
	String() string
	isReference()
}

// Bundled names an artifact shipped with the application under the assets dir.
type Bundled struct {
	AssetPath string
}

// LocalFile names an artifact in the local store, or the id of an imported model.
type LocalFile struct {
	Path string
}

// Remote names an artifact in a HuggingFace-style model repository.
type Remote struct {
	RepositoryID string
	Filename     string
}

func (Bundled) isReference()   {}
func (LocalFile) isReference() {}
func (Remote) isReference()    {}

func (b Bundled) DisplayName() string   { return "Built-in: " + path.Base(b.AssetPath) }
func (l LocalFile) DisplayName() string { return "Local: " + path.Base(l.Path) }
func (r Remote) DisplayName() string    { return "HuggingFace: " + r.Filename }

func (b Bundled) String() string   { return "bundled:" + b.AssetPath }
func (l LocalFile) String() string { return "file:" + l.Path }
func (r Remote) String() string    { return "hf:" + r.RepositoryID + "/" + r.Filename }

// CacheKey is the store name a remote artifact is cached under. Slashes are
// flattened so the key is a single file name: org/model + weights.bin gives
// org_model_weights.bin.
func (r Remote) CacheKey() string {
	return strings.ReplaceAll(r.RepositoryID+"_"+r.Filename, "/", "_")
}

// ParseReference parses the String form of a reference:
//
//	bundled:<asset path>
//	file:<store name or model id>
//	hf:<org>/<repo>/<filename>
func ParseReference(s string) (Reference, error) {
	scheme, rest, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || rest == "" {
		return nil, fmt.Errorf("invalid model reference %q", s)
	}
	switch scheme {
	case "bundled", "asset":
		return Bundled{AssetPath: rest}, nil
	case "file", "local":
		return LocalFile{Path: rest}, nil
	case "hf", "huggingface":
		rest = strings.TrimPrefix(rest, "//")
		i := strings.LastIndex(rest, "/")
		if i <= 0 || i == len(rest)-1 {
			return nil, fmt.Errorf("invalid remote reference %q: want hf:<repo>/<filename>", s)
		}
		return Remote{RepositoryID: rest[:i], Filename: rest[i+1:]}, nil
	default:
		return nil, fmt.Errorf("unknown reference scheme %q", scheme)
	}
}

// ToSpec converts ref to its JSON form.
func ToSpec(ref Reference) types.ModelReference {
	switch r := ref.(type) {
	case Bundled:
		return types.ModelReference{Kind: "bundled", AssetPath: r.AssetPath}
	case LocalFile:
		return types.ModelReference{Kind: "local", Path: r.Path}
	case Remote:
		return types.ModelReference{Kind: "remote", Repository: r.RepositoryID, Filename: r.Filename}
	}
	return types.ModelReference{}
}

// FromSpec converts the JSON form back, validating required fields.
func FromSpec(s types.ModelReference) (Reference, error) {
	switch s.Kind {
	case "bundled":
		if s.AssetPath == "" {
			return nil, fmt.Errorf("bundled reference requires asset_path")
		}
		return Bundled{AssetPath: s.AssetPath}, nil
	case "local":
		if s.Path == "" {
			return nil, fmt.Errorf("local reference requires path")
		}
		return LocalFile{Path: s.Path}, nil
	case "remote":
		if s.Repository == "" || s.Filename == "" {
			return nil, fmt.Errorf("remote reference requires repository and filename")
		}
		return Remote{RepositoryID: s.Repository, Filename: s.Filename}, nil
	default:
		return nil, fmt.Errorf("unknown reference kind %q", s.Kind)
	}
}

// MarshalReference encodes ref as JSON.
func MarshalReference(ref Reference) ([]byte, error) {
	if ref == nil {
		return nil, fmt.Errorf("nil reference")
	}
	return json.Marshal(ToSpec(ref))
}

// UnmarshalReference decodes a reference encoded by MarshalReference.
func UnmarshalReference(b []byte) (Reference, error) {
	var s types.ModelReference
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, err
	}
	return FromSpec(s)
}

package types

// Modality tags the kind of data a model consumes or produces.
type Modality string

const (
	ModalityText   Modality = "text"
	ModalityImage  Modality = "image"
	ModalityAudio  Modality = "audio"
	ModalityBinary Modality = "binary"
)

// LocalModelInfo describes a model registered as loaded or imported.
type LocalModelInfo struct {
	// Stable identifier for the model.
	// example: phi-mini
	ModelID string `json:"model_id" example:"phi-mini"`
	// Absolute path of the artifact backing the model.
	// example: /home/user/.agentcore/models/org_model_weights.onnx
	StoragePath string `json:"storage_path" example:"/home/user/.agentcore/models/org_model_weights.onnx"`
	// Free-form version label.
	// example: 1.0
	Version string `json:"version,omitempty" example:"1.0"`
	// Modalities accepted as input.
	InputTypes []Modality `json:"input_types,omitempty"`
	// Modalities produced as output.
	OutputTypes []Modality `json:"output_types,omitempty"`
	// Artifact size in bytes.
	// example: 52428800
	SizeBytes int64 `json:"size_bytes" example:"52428800"`
	// Memory required to hold the model, in bytes.
	// example: 104857600
	RequiredMemoryBytes int64 `json:"required_memory_bytes" example:"104857600"`
	// Reference the artifact was resolved from.
	Reference *ModelReference `json:"reference,omitempty"`
}

// IsCompatible reports whether availableMemoryBytes can hold the model.
func (i LocalModelInfo) IsCompatible(availableMemoryBytes int64) bool {
	return availableMemoryBytes >= i.RequiredMemoryBytes
}

// Accepts reports whether the model lists m among its input types. Models
// registered without input types accept anything.
func (i LocalModelInfo) Accepts(m Modality) bool {
	if len(i.InputTypes) == 0 {
		return true
	}
	for _, t := range i.InputTypes {
		if t == m {
			return true
		}
	}
	return false
}

// ModelReference is the JSON form of a model reference.
type ModelReference struct {
	// One of bundled, local, remote.
	// example: remote
	Kind string `json:"kind" example:"remote"`
	// Asset path for bundled references.
	AssetPath string `json:"asset_path,omitempty"`
	// Store name or model id for local references.
	Path string `json:"path,omitempty"`
	// Repository id for remote references.
	// example: org/model
	Repository string `json:"repository,omitempty" example:"org/model"`
	// File name inside the repository for remote references.
	// example: weights.onnx
	Filename string `json:"filename,omitempty" example:"weights.onnx"`
}

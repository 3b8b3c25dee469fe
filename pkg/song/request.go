package song

import (
	"fmt"
	"unicode/utf8"
)

// Models supported by the generation service.
const (
	ModelV5      = "V5"
	ModelV45Plus = "V4_5PLUS"
	ModelV45All  = "V4_5ALL"
	ModelV45     = "V4_5"
	ModelV4      = "V4"
)

// DefaultModel is used when the request doesn't set one.
const DefaultModel = ModelV45All

const (
	GenderMale   = "male"
	GenderFemale = "female"
)

const (
	titleLimit        = 80
	simplePromptLimit = 500
)

type limits struct {
	prompt int
	style  int
}

// Custom-mode bounds are model dependent.
var modelLimits = map[string]limits{
	ModelV5:      {prompt: 5000, style: 1000},
	ModelV45Plus: {prompt: 5000, style: 1000},
	ModelV45All:  {prompt: 5000, style: 1000},
	ModelV45:     {prompt: 3000, style: 200},
	ModelV4:      {prompt: 3000, style: 200},
}

// Tags groups the ID3 metadata attached to materialized tracks.
type Tags struct {
	Artist        string
	Album         string
	Track         int
	Cover         string
	GenerateCover bool
}

// Request is a validated song generation request. Prompt and Style must be
// resolved to plain text before the request reaches this package.
type Request struct {
	Title        string
	Prompt       string
	Style        string
	Model        string
	Gender       string
	Instrumental bool
	Duration     int
	Tags         Tags
}

// CustomMode reports whether the request drives title and style explicitly.
// Without both, the service autogenerates them from the prompt.
func (r *Request) CustomMode() bool {
	return r.Title != "" && r.Style != ""
}

// Validate enforces required fields and the model-dependent length bounds.
// It must pass before any call to the service is made.
func (r *Request) Validate() error {
	if r.Prompt == "" {
		return &ValidationError{Field: "prompt", Reason: "required"}
	}
	model := r.Model
	if model == "" {
		model = DefaultModel
	}
	lim, ok := modelLimits[model]
	if !ok {
		return &ValidationError{Field: "model", Reason: fmt.Sprintf("unknown model %q", r.Model)}
	}
	if r.Gender != "" && r.Gender != GenderMale && r.Gender != GenderFemale {
		return &ValidationError{Field: "gender", Reason: fmt.Sprintf("must be %q or %q", GenderMale, GenderFemale)}
	}
	if r.Title == "" != (r.Style == "") {
		return &ValidationError{Field: "title", Reason: "custom mode requires both title and style"}
	}
	// Bounds count characters, not bytes
	if n := utf8.RuneCountInString(r.Title); n > titleLimit {
		return &ValidationError{Field: "title", Reason: fmt.Sprintf("%d chars exceeds limit of %d", n, titleLimit)}
	}
	if !r.CustomMode() {
		if n := utf8.RuneCountInString(r.Prompt); n > simplePromptLimit {
			return &ValidationError{Field: "prompt", Reason: fmt.Sprintf("%d chars exceeds simple mode limit of %d", n, simplePromptLimit)}
		}
		return nil
	}
	if n := utf8.RuneCountInString(r.Prompt); n > lim.prompt {
		return &ValidationError{Field: "prompt", Reason: fmt.Sprintf("%d chars exceeds %s limit of %d", n, model, lim.prompt)}
	}
	if n := utf8.RuneCountInString(r.Style); n > lim.style {
		return &ValidationError{Field: "style", Reason: fmt.Sprintf("%d chars exceeds %s limit of %d", n, model, lim.style)}
	}
	return nil
}

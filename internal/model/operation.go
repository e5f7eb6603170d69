package model

import (
	"errors"
	"fmt"
)

// ErrInvalidOperation rejects a malformed operation descriptor at submission
// time, before any job is created.
var ErrInvalidOperation = errors.New("invalid operation")

// Operation types
type OperationType string

const (
	OpStyleTransfer     OperationType = "style_transfer"
	OpBackgroundRemoval OperationType = "background_removal"
	OpCaptionGeneration OperationType = "caption_generation"
	OpAudioEnhancement  OperationType = "audio_enhancement"
	OpAutoEnhance       OperationType = "auto_enhance"
)

var ValidOperationTypes = []OperationType{
	OpStyleTransfer, OpBackgroundRemoval, OpCaptionGeneration,
	OpAudioEnhancement, OpAutoEnhance,
}

// Pipeline step names. auto_enhance expands to color correction followed by
// stabilization inside a single job.
const (
	StepColorCorrection = "color_correction"
	StepStabilization   = "stabilization"
)

// Style presets
type StylePreset string

const (
	StyleAnime       StylePreset = "anime"
	StyleWatercolor  StylePreset = "watercolor"
	StyleOilPainting StylePreset = "oil_painting"
	StyleCyberpunk   StylePreset = "cyberpunk"
	StyleNoir        StylePreset = "noir"
)

// Background modes
type BackgroundMode string

const (
	BackgroundTransparent BackgroundMode = "transparent"
	BackgroundBlur        BackgroundMode = "blur"
	BackgroundReplace     BackgroundMode = "replace"
)

// Caption languages
type Language string

const (
	LanguageEN Language = "en"
	LanguageTR Language = "tr"
	LanguageFR Language = "fr"
)

// Audio presets
type AudioPreset string

const (
	AudioPresetVoice   AudioPreset = "voice"
	AudioPresetMusic   AudioPreset = "music"
	AudioPresetDenoise AudioPreset = "denoise"
)

// StyleTransferParams configures a style_transfer operation
type StyleTransferParams struct {
	Style    StylePreset `json:"style" validate:"required,oneof=anime watercolor oil_painting cyberpunk noir"`
	Strength *float64    `json:"strength" validate:"omitempty,min=0,max=1"`
}

// BackgroundRemovalParams configures a background_removal operation
type BackgroundRemovalParams struct {
	Mode           BackgroundMode `json:"mode" validate:"required,oneof=transparent blur replace"`
	ReplacementRef string         `json:"replacementRef,omitempty" validate:"required_if=Mode replace"`
}

// CaptionGenerationParams configures a caption_generation operation
type CaptionGenerationParams struct {
	Language Language `json:"language" validate:"required,oneof=en tr fr"`
	BurnIn   bool     `json:"burnIn"`
}

// AudioEnhancementParams configures an audio_enhancement operation
type AudioEnhancementParams struct {
	Preset         AudioPreset `json:"preset" validate:"required,oneof=voice music denoise"`
	TargetLoudness *float64    `json:"targetLoudness" validate:"omitempty,min=-36,max=-6"`
}

// AutoEnhanceParams configures an auto_enhance operation. The pipeline picks
// sensible defaults, so there are no required fields.
type AutoEnhanceParams struct {
	Intensity *float64 `json:"intensity" validate:"omitempty,min=0,max=1"`
}

// EditOperation is a closed tagged variant: Type selects exactly one of the
// params blocks below. Unknown types and mismatched params are rejected at
// submission, never passed through untyped.
type EditOperation struct {
	Type              OperationType            `json:"type" validate:"required"`
	StyleTransfer     *StyleTransferParams     `json:"styleTransfer,omitempty"`
	BackgroundRemoval *BackgroundRemovalParams `json:"backgroundRemoval,omitempty"`
	CaptionGeneration *CaptionGenerationParams `json:"captionGeneration,omitempty"`
	AudioEnhancement  *AudioEnhancementParams  `json:"audioEnhancement,omitempty"`
	AutoEnhance       *AutoEnhanceParams       `json:"autoEnhance,omitempty"`
}

// paramsSet returns which params blocks are populated.
func (op *EditOperation) paramsSet() []OperationType {
	var set []OperationType
	if op.StyleTransfer != nil {
		set = append(set, OpStyleTransfer)
	}
	if op.BackgroundRemoval != nil {
		set = append(set, OpBackgroundRemoval)
	}
	if op.CaptionGeneration != nil {
		set = append(set, OpCaptionGeneration)
	}
	if op.AudioEnhancement != nil {
		set = append(set, OpAudioEnhancement)
	}
	if op.AutoEnhance != nil {
		set = append(set, OpAutoEnhance)
	}
	return set
}

// Validate enforces the closed-variant rules: the type must be a registered
// operation, the params block must match the type, and no foreign params block
// may ride along. Field-level constraints are left to the request validator.
func (op *EditOperation) Validate() error {
	known := false
	for _, t := range ValidOperationTypes {
		if op.Type == t {
			known = true
			break
		}
	}
	if !known {
		return fmt.Errorf("%w: unknown operation type %q", ErrInvalidOperation, op.Type)
	}

	set := op.paramsSet()
	for _, t := range set {
		if t != op.Type {
			return fmt.Errorf("%w: params for %q do not belong on a %q operation", ErrInvalidOperation, t, op.Type)
		}
	}

	// auto_enhance is the only operation whose params are optional.
	if len(set) == 0 && op.Type != OpAutoEnhance {
		return fmt.Errorf("%w: missing required parameters for %q", ErrInvalidOperation, op.Type)
	}

	if op.BackgroundRemoval != nil &&
		op.BackgroundRemoval.Mode == BackgroundReplace &&
		op.BackgroundRemoval.ReplacementRef == "" {
		return fmt.Errorf("%w: background_removal with mode %q requires replacementRef", ErrInvalidOperation, BackgroundReplace)
	}

	return nil
}

// Steps returns the ordered pipeline steps the scheduler drives for this
// operation. Every operation is a single step except auto_enhance, which runs
// color correction then stabilization as one job producing one version.
func (op *EditOperation) Steps() []string {
	if op.Type == OpAutoEnhance {
		return []string{StepColorCorrection, StepStabilization}
	}
	return []string{string(op.Type)}
}

// AppliedOperation is the record stamped onto the version an operation
// produced. Steps lists every pipeline step that ran, so a composed
// auto_enhance version carries both color_correction and stabilization.
type AppliedOperation struct {
	JobID string        `json:"jobId"`
	Type  OperationType `json:"type"`
	Steps []string      `json:"steps"`
}

// Applied builds the version record for a finished operation.
func (op *EditOperation) Applied(jobID string) *AppliedOperation {
	return &AppliedOperation{
		JobID: jobID,
		Type:  op.Type,
		Steps: op.Steps(),
	}
}

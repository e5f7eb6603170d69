package model

import (
	"errors"
	"testing"
)

func TestValidateKnownOperations(t *testing.T) {
	ops := []EditOperation{
		{Type: OpStyleTransfer, StyleTransfer: &StyleTransferParams{Style: StyleAnime}},
		{Type: OpBackgroundRemoval, BackgroundRemoval: &BackgroundRemovalParams{Mode: BackgroundBlur}},
		{Type: OpCaptionGeneration, CaptionGeneration: &CaptionGenerationParams{Language: LanguageEN}},
		{Type: OpAudioEnhancement, AudioEnhancement: &AudioEnhancementParams{Preset: AudioPresetVoice}},
		{Type: OpAutoEnhance},
		{Type: OpAutoEnhance, AutoEnhance: &AutoEnhanceParams{}},
	}

	for _, op := range ops {
		if err := op.Validate(); err != nil {
			t.Errorf("%s: unexpected validation error: %v", op.Type, err)
		}
	}
}

func TestValidateUnknownType(t *testing.T) {
	op := EditOperation{Type: "deep_fake"}
	if err := op.Validate(); !errors.Is(err, ErrInvalidOperation) {
		t.Errorf("expected ErrInvalidOperation, got %v", err)
	}
}

func TestValidateMissingParams(t *testing.T) {
	op := EditOperation{Type: OpStyleTransfer}
	if err := op.Validate(); !errors.Is(err, ErrInvalidOperation) {
		t.Errorf("expected ErrInvalidOperation for missing params, got %v", err)
	}
}

func TestValidateMismatchedParams(t *testing.T) {
	op := EditOperation{
		Type:          OpCaptionGeneration,
		StyleTransfer: &StyleTransferParams{Style: StyleNoir},
	}
	if err := op.Validate(); !errors.Is(err, ErrInvalidOperation) {
		t.Errorf("expected ErrInvalidOperation for foreign params, got %v", err)
	}

	// Matching params plus a foreign block is still rejected.
	op = EditOperation{
		Type:              OpCaptionGeneration,
		CaptionGeneration: &CaptionGenerationParams{Language: LanguageTR},
		AudioEnhancement:  &AudioEnhancementParams{Preset: AudioPresetMusic},
	}
	if err := op.Validate(); !errors.Is(err, ErrInvalidOperation) {
		t.Errorf("expected ErrInvalidOperation for extra params block, got %v", err)
	}
}

func TestValidateBackgroundReplaceNeedsRef(t *testing.T) {
	op := EditOperation{
		Type:              OpBackgroundRemoval,
		BackgroundRemoval: &BackgroundRemovalParams{Mode: BackgroundReplace},
	}
	if err := op.Validate(); !errors.Is(err, ErrInvalidOperation) {
		t.Errorf("expected ErrInvalidOperation without replacementRef, got %v", err)
	}

	op.BackgroundRemoval.ReplacementRef = "blob://backgrounds/beach"
	if err := op.Validate(); err != nil {
		t.Errorf("unexpected error with replacementRef: %v", err)
	}
}

func TestStepsExpansion(t *testing.T) {
	op := EditOperation{Type: OpAutoEnhance}
	steps := op.Steps()
	if len(steps) != 2 || steps[0] != StepColorCorrection || steps[1] != StepStabilization {
		t.Errorf("auto_enhance steps = %v, want [%s %s]", steps, StepColorCorrection, StepStabilization)
	}

	op = EditOperation{Type: OpStyleTransfer, StyleTransfer: &StyleTransferParams{Style: StyleAnime}}
	steps = op.Steps()
	if len(steps) != 1 || steps[0] != string(OpStyleTransfer) {
		t.Errorf("style_transfer steps = %v, want single step", steps)
	}
}

func TestAppliedRecordsAllSteps(t *testing.T) {
	op := EditOperation{Type: OpAutoEnhance}
	applied := op.Applied("job-1")
	if applied.JobID != "job-1" || applied.Type != OpAutoEnhance {
		t.Errorf("unexpected applied record %+v", applied)
	}
	if len(applied.Steps) != 2 {
		t.Errorf("expected both pipeline steps on the record, got %v", applied.Steps)
	}
}

package ml

import "errors"

var (
	// ErrInsufficientData means the history is too small (or too one-sided)
	// to train on. Callers should collect more events and retry.
	ErrInsufficientData = errors.New("insufficient data to train")

	// ErrModelNotTrained is reported when no trained bundle is available.
	// It is the normal state for new users.
	ErrModelNotTrained = errors.New("model not trained")

	// ErrUnseenCategory means a categorical value was absent at fit time.
	ErrUnseenCategory = errors.New("unseen category")

	// ErrCorruptedArtifact means persisted model state is partial or unreadable.
	ErrCorruptedArtifact = errors.New("corrupted or missing model artifact")

	// ErrPredictionsDisabled is reported when predictions are switched off.
	ErrPredictionsDisabled = errors.New("predictions disabled")

	// ErrEncoderFrozen is returned when Fit is called on a fitted encoder.
	ErrEncoderFrozen = errors.New("encoder already fitted")

	// ErrDimension means a row's width differs from the fitted width.
	ErrDimension = errors.New("feature dimension mismatch")

	// ErrEmptyInput means Fit was given no rows.
	ErrEmptyInput = errors.New("empty training input")

	// ErrFeatureImportanceDisabled is reported when importance ranking is
	// switched off in configuration.
	ErrFeatureImportanceDisabled = errors.New("feature importance disabled")

	// ErrInvalidUser means a user id is not safe to use as a directory name.
	ErrInvalidUser = errors.New("invalid user id")
)

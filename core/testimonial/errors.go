package testimonial

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/eliseea/mobility/core"
)

// GenerationFailedMessage is shown to the student when a draft could not be generated.
const GenerationFailedMessage = "La génération du témoignage a échoué. Vérifiez vos réponses et réessayez."

var (
	// ErrCredentialMissing is returned by a Generator that has no credential. The pipeline falls back to FallbackDraft.
	ErrCredentialMissing = errors.New("generation service credential is not configured")
	// ErrBusy is returned while a generation or a publication is in flight.
	ErrBusy = errors.New("a generation or a publication is already in progress")
	// ErrAlreadyExists is returned when saving a testimonial over a different one with the same ID.
	ErrAlreadyExists = errors.New("testimonial already exists")
	ErrNotStudent    = errors.WithMessage(core.ErrForbidden, "only students write testimonials")
)

// GenerationError reports a generation service that answered with an error or an unusable payload.
type GenerationError struct {
	Err error
}

func NewGenerationError(err error) error {
	return &GenerationError{Err: err}
}

func (e GenerationError) Error() string {
	if e.Err == nil {
		return "generation failed"
	}
	return "generation failed: " + e.Err.Error()
}

func (e GenerationError) Unwrap() error { return e.Err }

// StageError reports an operation attempted in a stage that does not allow it.
type StageError struct {
	Stage Stage
	Op    string
}

func (e StageError) Error() string {
	return fmt.Sprintf("cannot %s a testimonial in stage %s", e.Op, e.Stage)
}

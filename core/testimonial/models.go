package testimonial

import (
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/pmezard/go-difflib/difflib"
	"golang.org/x/crypto/blake2b"

	"github.com/eliseea/mobility/core"
)

type (
	Status string
	Stage  string
)

const (
	StatusDraft     Status = "DRAFT"
	StatusPublished Status = "PUBLISHED"

	StageForm      Stage = "FORM"
	StageLoading   Stage = "LOADING"
	StageReview    Stage = "REVIEW"
	StagePublished Stage = "PUBLISHED"
)

const (
	fallbackTitle   = "Une expérience inoubliable en Espagne"
	fallbackContent = "Mon stage à Séville a été une révélation. J'ai non seulement amélioré mon espagnol, " +
		"mais j'ai aussi appris des techniques de jardinage que je ne connaissais pas. " +
		"L'accueil a été chaleureux malgré la barrière de la langue au début. Je recommande à tous de partir !"
)

// Evaluation is the end-of-stay questionnaire. It only seeds the generation and is never stored.
type Evaluation struct {
	Logistics  int    `json:"logistics" validate:"rating"`
	Reception  int    `json:"reception" validate:"rating"`
	Skills     int    `json:"skills" validate:"rating"`
	Content    string `json:"content" validate:"notblank"`
	Highlights string `json:"highlights"`
}

func (e *Evaluation) Validate(validate *validator.Validate) error {
	e.Content = core.CleanString(e.Content)
	e.Highlights = core.CleanString(e.Highlights)
	return validate.Struct(e)
}

// Draft is the generated title and body, before human review.
type Draft struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// FallbackDraft is used when the generation service has no credential.
func FallbackDraft() Draft {
	return Draft{Title: fallbackTitle, Content: fallbackContent}
}

// ParseDraft decodes a generation response. It must be a JSON object with exactly
// the non-blank string fields "title" and "content".
func ParseDraft(data []byte) (Draft, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return Draft{}, NewGenerationError(errors.Wrap(err, "response is not a JSON object"))
	}
	if len(raw) != 2 {
		return Draft{}, NewGenerationError(errors.Errorf("response has %d fields, want title and content", len(raw)))
	}

	fields := make(map[string]string, 2)
	for _, name := range []string{"title", "content"} {
		msg, ok := raw[name]
		if !ok {
			return Draft{}, NewGenerationError(errors.Errorf("response has no %q field", name))
		}
		var s string
		if err := json.Unmarshal(msg, &s); err != nil {
			return Draft{}, NewGenerationError(errors.Errorf("response field %q is not a string", name))
		}
		if s = core.CleanString(s); s == "" {
			return Draft{}, NewGenerationError(errors.Errorf("response field %q is blank", name))
		}
		fields[name] = s
	}
	return Draft{Title: fields["title"], Content: fields["content"]}, nil
}

// Testimonial is the published narrative of a Mobility. Published testimonials are immutable.
type Testimonial struct {
	ID          string     `json:"id"`
	MobilityID  string     `json:"mobility_id"`
	AuthorID    string     `json:"author_id"`
	AuthorName  string     `json:"author_name"`
	Title       string     `json:"title"`
	Content     string     `json:"content"`
	Status      Status     `json:"status"`
	AIAssisted  bool       `json:"ai_assisted"`
	EditRatio   float64    `json:"edit_ratio"` // similarity of the published content with the generated one, 1 when untouched
	Digest      string     `json:"digest"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
}

// ComputeDigest returns the hex BLAKE2b-256 sum of a title and content.
func ComputeDigest(title, content string) string {
	sum := blake2b.Sum256([]byte(title + "\x00" + content))
	return hex.EncodeToString(sum[:])
}

// Verify reports whether title and content still match the digest computed at publication.
func (t Testimonial) Verify() bool {
	return t.Digest != "" && t.Digest == ComputeDigest(t.Title, t.Content)
}

// EditRatio measures, word by word, how close edited stayed to generated (1 means identical).
func EditRatio(generated, edited string) float64 {
	a, b := strings.Fields(generated), strings.Fields(edited)
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	return difflib.NewMatcher(a, b).Ratio()
}

// ContentDiff returns a unified diff from the generated content to the edited one.
func ContentDiff(generated, edited string) (string, error) {
	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(generated),
		B:        difflib.SplitLines(edited),
		FromFile: "generated",
		ToFile:   "edited",
		Context:  3,
	})
}

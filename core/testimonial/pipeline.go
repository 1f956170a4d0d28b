package testimonial

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/eliseea/mobility/core"
	"github.com/eliseea/mobility/core/mobility"
	"github.com/eliseea/mobility/core/user"
)

// Pipeline is one student's testimonial run: FORM -> LOADING -> REVIEW -> PUBLISHED.
// A failed generation goes back from LOADING to FORM, and Back goes from REVIEW to FORM.
//
// The lock is never held during I/O. While LOADING, or while a publication is being saved,
// every mutating operation returns ErrBusy.
type Pipeline struct {
	svc    *Service
	author user.User

	mu         sync.Mutex
	stage      Stage
	publishing bool
	mob        mobility.Mobility
	draft      Draft
	edited     string
	fallback   bool
	pendingID  string
	lastErr    string
	published  *Testimonial
}

// Snapshot is a consistent view of a Pipeline.
type Snapshot struct {
	Stage         Stage        `json:"stage"`
	Busy          bool         `json:"busy"`
	Draft         *Draft       `json:"draft,omitempty"`
	EditedContent string       `json:"edited_content,omitempty"`
	Fallback      bool         `json:"fallback"`
	Error         string       `json:"error,omitempty"`
	Published     *Testimonial `json:"published,omitempty"`
}

func newPipeline(svc *Service, author user.User) *Pipeline {
	return &Pipeline{svc: svc, author: author, stage: StageForm}
}

// checkStage must be called with p.mu held.
func (p *Pipeline) checkStage(want Stage, op string) error {
	if p.stage == StageLoading || p.publishing {
		return ErrBusy
	}
	if p.stage != want {
		return &StageError{Stage: p.stage, Op: op}
	}
	return nil
}

func (p *Pipeline) busy() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stage == StageLoading || p.publishing
}

// publishedBefore reports whether the run was published before t.
func (p *Pipeline) publishedBefore(t time.Time) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stage == StagePublished && p.published.PublishedAt.Before(t)
}

func (p *Pipeline) Stage() Stage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stage
}

func (p *Pipeline) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := Snapshot{
		Stage:     p.stage,
		Busy:      p.stage == StageLoading || p.publishing,
		Fallback:  p.fallback,
		Error:     p.lastErr,
		Published: p.published,
	}
	if p.stage == StageReview || p.stage == StagePublished {
		draft := p.draft
		s.Draft = &draft
		s.EditedContent = p.edited
	}
	return s
}

// Submit validates the evaluation, then drafts the testimonial from it and from the author's journal.
// An invalid evaluation leaves the pipeline in FORM without calling the generator.
// The generator is called once; the call is not cancelled with ctx, only bounded by the service timeout.
func (p *Pipeline) Submit(ctx context.Context, eval Evaluation) (Draft, error) {
	p.mu.Lock()
	if err := p.checkStage(StageForm, "submit"); err != nil {
		p.mu.Unlock()
		return Draft{}, err
	}
	if err := eval.Validate(p.svc.validate); err != nil {
		p.mu.Unlock()
		return Draft{}, err
	}
	p.stage = StageLoading
	p.lastErr = ""
	p.mu.Unlock()

	genCtx, cancel := context.WithTimeout(detach(ctx), p.svc.timeout)
	defer cancel()
	draft, fallback, mob, err := p.svc.generate(genCtx, p.author, eval)

	p.mu.Lock()
	defer p.mu.Unlock()
	if err != nil {
		p.stage = StageForm
		p.lastErr = userMessage(err)
		return Draft{}, err
	}
	p.stage = StageReview
	p.mob = mob
	p.draft = draft
	p.edited = draft.Content
	p.fallback = fallback
	p.pendingID = p.svc.newID()
	return draft, nil
}

// Edit replaces the reviewed content.
func (p *Pipeline) Edit(content string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.checkStage(StageReview, "edit"); err != nil {
		return err
	}
	p.edited = content
	return nil
}

// Back drops the draft and returns to FORM.
func (p *Pipeline) Back() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.checkStage(StageReview, "go back from"); err != nil {
		return err
	}
	p.stage = StageForm
	p.mob = mobility.Mobility{}
	p.draft = Draft{}
	p.edited = ""
	p.fallback = false
	p.pendingID = ""
	p.lastErr = ""
	return nil
}

// Diff returns the unified diff from the generated content to the reviewed one, and their EditRatio.
func (p *Pipeline) Diff() (string, float64, error) {
	p.mu.Lock()
	if p.stage != StageReview && p.stage != StagePublished {
		err := &StageError{Stage: p.stage, Op: "diff"}
		p.mu.Unlock()
		return "", 0, err
	}
	generated, edited := p.draft.Content, p.edited
	p.mu.Unlock()

	diff, err := ContentDiff(generated, edited)
	if err != nil {
		return "", 0, errors.Wrap(err, "diffing content")
	}
	return diff, EditRatio(generated, edited), nil
}

// Publish saves the reviewed testimonial as PUBLISHED, with editedContent as its body
// (the current reviewed content when blank) and the generated title. The content is stored as is.
// On a *core.PersistenceError the pipeline stays in REVIEW and Publish may be retried;
// retries reuse the same testimonial ID.
func (p *Pipeline) Publish(ctx context.Context, editedContent string) (Testimonial, error) {
	p.mu.Lock()
	if err := p.checkStage(StageReview, "publish"); err != nil {
		p.mu.Unlock()
		return Testimonial{}, err
	}
	content := editedContent
	if core.CleanString(content) == "" {
		content = p.edited
	}
	if core.CleanString(content) == "" {
		p.mu.Unlock()
		return Testimonial{}, core.NewValidationError(
			errors.New("content cannot be blank"),
			core.FieldError{Field: "content", Error: "this field cannot be blank"},
		)
	}

	now := p.svc.now()
	t := Testimonial{
		ID:          p.pendingID,
		MobilityID:  p.mob.ID,
		AuthorID:    p.author.ID,
		AuthorName:  p.author.Name,
		Title:       p.draft.Title,
		Content:     content,
		Status:      StatusPublished,
		AIAssisted:  !p.fallback,
		EditRatio:   EditRatio(p.draft.Content, content),
		Digest:      ComputeDigest(p.draft.Title, content),
		PublishedAt: &now,
	}
	mob := p.mob
	p.edited = content
	p.publishing = true
	p.mu.Unlock()

	saveCtx, cancel := context.WithTimeout(detach(ctx), p.svc.timeout)
	defer cancel()
	err := p.svc.repo.SaveTestimonial(saveCtx, t)

	p.mu.Lock()
	p.publishing = false
	if err != nil {
		p.mu.Unlock()
		return Testimonial{}, core.NewPersistenceError(err, "saving testimonial")
	}
	p.stage = StagePublished
	p.published = &t
	p.mu.Unlock()

	p.svc.notifyPublished(t, mob)
	return t, nil
}

func userMessage(err error) string {
	if errors.Is(err, core.ErrNotFound) {
		return "Aucune mobilité n'est associée à votre compte."
	}
	return GenerationFailedMessage
}

// detachedContext keeps the values of its parent but neither its deadline nor its cancellation.
type detachedContext struct {
	parent context.Context
}

func detach(ctx context.Context) context.Context {
	return detachedContext{parent: ctx}
}

func (detachedContext) Deadline() (time.Time, bool)         { return time.Time{}, false }
func (detachedContext) Done() <-chan struct{}               { return nil }
func (detachedContext) Err() error                          { return nil }
func (c detachedContext) Value(key interface{}) interface{} { return c.parent.Value(key) }

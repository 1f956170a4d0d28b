package testimonial

import (
	"context"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/eliseea/mobility/core/journal"
)

// Generator drafts a testimonial. Implementations return ErrCredentialMissing, without calling out,
// when they are not configured, and a *GenerationError when the service fails or answers garbage.
type Generator interface {
	Generate(ctx context.Context, req GenerationRequest) (Draft, error)
}

// DigestLine sums up a journal entry for the generation request.
type DigestLine struct {
	Date       time.Time
	Activities string
	Mood       int
	Content    string
}

func (l DigestLine) String() string {
	return fmt.Sprintf("Date: %s, Activités: %s, Ressenti: %d/5, Contenu: %s",
		l.Date.Format(journal.DateLayout), l.Activities, l.Mood, l.Content)
}

type GenerationRequest struct {
	AuthorName  string
	Destination string
	Evaluation  Evaluation
	Journal     []DigestLine // chronological
}

// NewGenerationRequest digests entries in chronological order, whatever order they come in.
func NewGenerationRequest(authorName, destination string, eval Evaluation, entries []journal.Entry) GenerationRequest {
	sorted := make([]journal.Entry, len(entries))
	copy(sorted, entries)
	journal.SortChronologically(sorted)

	lines := make([]DigestLine, 0, len(sorted))
	for _, e := range sorted {
		lines = append(lines, DigestLine{
			Date:       e.Date,
			Activities: e.Activities,
			Mood:       e.Mood,
			Content:    e.Content,
		})
	}
	return GenerationRequest{
		AuthorName:  authorName,
		Destination: destination,
		Evaluation:  eval,
		Journal:     lines,
	}
}

var promptTmpl = template.Must(template.New("prompt").Parse(
	`Tu es un expert en communication pour le consortium ELISEEA (Echanges des Lycées d'Île-de-France).
Ton objectif est de rédiger un témoignage inspirant et synthétique pour un étudiant nommé {{.AuthorName}} qui revient d'une mobilité à {{.Destination}}.

Voici les données d'entrée :

RÉPONSES AU QUESTIONNAIRE DE FIN DE STAGE :
- Points forts : {{.Evaluation.Highlights}}
- Note logistique : {{.Evaluation.Logistics}}/5
- Note accueil : {{.Evaluation.Reception}}/5
- Note compétences acquises : {{.Evaluation.Skills}}/5
- Contenu du stage : {{.Evaluation.Content}}

EXTRAITS DU JOURNAL DE BORD :
{{range .Journal}}{{.}}
{{else}}(aucune entrée)
{{end}}
CONSIGNES DE RÉDACTION :
1. Rédige un témoignage à la première personne ("Je").
2. Le ton doit être vivant, authentique et encourageant pour les futurs élèves.
3. Mets en avant les compétences acquises (savoir-faire et savoir-être) et l'aspect culturel.
4. Fais environ 150-200 mots.
5. Propose un titre accrocheur pour ce témoignage.

Format de réponse attendu (JSON, uniquement ces deux champs) :
{
  "title": "Titre du témoignage",
  "content": "Corps du témoignage..."
}
`))

// Prompt renders the instruction sent to the generation service.
func (r GenerationRequest) Prompt() string {
	var b strings.Builder
	if err := promptTmpl.Execute(&b, r); err != nil {
		// the template only reads fields of r
		panic(err)
	}
	return b.String()
}

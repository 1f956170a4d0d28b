package database

import (
	"time"

	"github.com/eliseea/mobility/core/journal"
	"github.com/eliseea/mobility/core/mobility"
	"github.com/eliseea/mobility/core/user"
)

// Demo record IDs.
const (
	DemoStudentID  = "u1"
	DemoTeacherID  = "u2"
	DemoAdminID    = "u3"
	DemoMobilityID = "m1"
)

// Fixtures is the data loaded by the seed command and by the in-memory database.
type Fixtures struct {
	Users      []user.User
	Mobilities []mobility.Mobility
	Checklist  []mobility.ChecklistItem
	Journal    []journal.Entry
}

func date(s string) time.Time {
	t, err := time.Parse(journal.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func datePtr(s string) *time.Time {
	t := date(s)
	return &t
}

// DemoFixtures returns a student on an internship in Seville, with a teacher and an admin.
func DemoFixtures() Fixtures {
	created := date("2024-01-15")

	return Fixtures{
		Users: []user.User{
			{ID: DemoStudentID, Name: "Alice Martin", Email: "alice.martin@eliseea.eu", Role: user.RoleStudent, CreatedAt: created},
			{ID: DemoTeacherID, Name: "M. Dupont", Email: "prof.dupont@eliseea.eu", Role: user.RoleTeacher, CreatedAt: created},
			{ID: DemoAdminID, Name: "Admin ELISEEA", Email: "admin@eliseea.eu", Role: user.RoleAdmin, CreatedAt: created},
		},
		Mobilities: []mobility.Mobility{
			{
				ID:               DemoMobilityID,
				UserID:           DemoStudentID,
				Destination:      "Séville, Espagne",
				CountryCode:      "ES",
				HostOrganization: "Jardines de Sevilla",
				Kind:             mobility.KindInternship,
				Status:           mobility.StatusPreparation,
				StartDate:        date("2024-05-01"),
				EndDate:          date("2024-06-30"),
			},
		},
		Checklist: []mobility.ChecklistItem{
			{
				ID: "c1", MobilityID: DemoMobilityID, Position: 1,
				Label:          "Contrat Pédagogique (Learning Agreement)",
				Description:    "Faire signer par le tuteur et l'établissement.",
				Deadline:       datePtr("2024-03-01"),
				RequiresUpload: true,
				Status:         mobility.ItemValidated,
				UpdatedAt:      created,
			},
			{
				ID: "c2", MobilityID: DemoMobilityID, Position: 2,
				Label:          "Convention de Stage",
				Description:    "Version trilingue obligatoire.",
				Deadline:       datePtr("2024-03-15"),
				RequiresUpload: true,
				UploadedFile:   "convention_alice.pdf",
				Status:         mobility.ItemDone,
				UpdatedAt:      created,
			},
			{
				ID: "c3", MobilityID: DemoMobilityID, Position: 3,
				Label:          "Carte Européenne d'Assurance Maladie",
				Description:    "Demander sur le site Ameli.",
				Deadline:       datePtr("2024-04-01"),
				RequiresUpload: true,
				Status:         mobility.ItemTodo,
				UpdatedAt:      created,
			},
			{
				ID: "c4", MobilityID: DemoMobilityID, Position: 4,
				Label:       "Test Linguistique OLS (Avant départ)",
				Description: "Passer le test de niveau sur la plateforme EU.",
				Deadline:    datePtr("2024-04-10"),
				Status:      mobility.ItemInProgress,
				UpdatedAt:   created,
			},
			{
				ID: "c5", MobilityID: DemoMobilityID, Position: 5,
				Label:       "Recherche de logement",
				Description: "Confirmer l'adresse à l'équipe pédagogique.",
				Deadline:    datePtr("2024-04-15"),
				Status:      mobility.ItemInProgress,
				UpdatedAt:   created,
			},
		},
		Journal: []journal.Entry{
			{
				ID:         "j1",
				MobilityID: DemoMobilityID,
				Date:       date("2024-05-02"),
				Content:    "Premier jour ! L'accueil était super. J'ai rencontré mon tuteur, Carlos. Il parle un peu français.",
				Activities: "Visite de l'entreprise, présentation de l'équipe.",
				Skills:     "Adaptabilité, Compréhension orale (Espagnol)",
				Mood:       5,
				Photos:     []string{"https://picsum.photos/300/200"},
				CreatedAt:  date("2024-05-02"),
			},
			{
				ID:         "j2",
				MobilityID: DemoMobilityID,
				Date:       date("2024-05-05"),
				Content:    "C'est un peu dur de comprendre l'accent andalou, mais je m'accroche. J'ai commencé à travailler sur les parterres de fleurs.",
				Activities: "Jardinage, Entretien des outils.",
				Skills:     "Techniques horticoles, Autonomie",
				Mood:       3,
				Photos:     []string{},
				CreatedAt:  date("2024-05-05"),
			},
		},
	}
}

package echoapi

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eliseea/mobility/core/journal"
	"github.com/eliseea/mobility/core/mobility"
	"github.com/eliseea/mobility/core/testimonial"
	"github.com/eliseea/mobility/core/user"
	"github.com/eliseea/mobility/storage/database"
	"github.com/eliseea/mobility/tests"
)

var testDraft = testimonial.Draft{Title: "Six semaines à Séville", Content: "Un stage riche en découvertes."}

func TestHome(t *testing.T) {
	app, _ := setup(t, &testutil.StubGenerator{Draft: testDraft})

	req, rec := newAuthRequest(http.MethodGet, "/", "")
	app.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Welcome to the ELISEEA mobility API!", rec.Body.String())
}

func TestUserAPI(t *testing.T) {
	app, svcs := setup(t, &testutil.StubGenerator{Draft: testDraft})
	student := testutil.DemoUser(t, database.DemoStudentID)
	studentToken := getToken(t, svcs, student)
	adminToken := getToken(t, svcs, testutil.DemoUser(t, database.DemoAdminID))
	ghostToken := getToken(t, svcs, user.User{ID: "ghost", Name: "Ghost", Role: user.RoleAdmin})

	runHttpTests(t, app, []httpTest{
		{
			name:     "me without token",
			method:   http.MethodGet,
			path:     "/v1/users/me",
			wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, errMissingToken),
		},
		{
			name:     "me",
			method:   http.MethodGet,
			path:     "/v1/users/me",
			token:    studentToken,
			wantCode: http.StatusOK,
			wantData: marchallObj(t, student),
		},
		{
			name:     "unknown subject",
			method:   http.MethodGet,
			path:     "/v1/users/me",
			token:    ghostToken,
			wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, httpErr{Error: "user not authenticated"}),
		},
		{
			name:     "query as student",
			method:   http.MethodGet,
			path:     "/v1/users",
			token:    studentToken,
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name:     "create with invalid data",
			method:   http.MethodPost,
			path:     "/v1/users",
			body:     []byte(`{"name": " ", "email": "nope", "role": "GUEST"}`),
			token:    adminToken,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "create",
			method:   http.MethodPost,
			path:     "/v1/users",
			body:     []byte(`{"id": "u4", "name": "Bob Durand", "email": "bob.durand@eliseea.eu", "role": "STUDENT"}`),
			token:    adminToken,
			wantCode: http.StatusCreated,
		},
	})

	t.Run("query as admin", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/users", adminToken)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var users []user.User
		decode(t, rec, &users)
		assert.Len(t, users, 4)
	})
}

func TestMobilityAPI(t *testing.T) {
	app, svcs := setup(t, &testutil.StubGenerator{Draft: testDraft})
	fixtures := database.DemoFixtures()
	studentToken := getToken(t, svcs, testutil.DemoUser(t, database.DemoStudentID))
	teacherToken := getToken(t, svcs, testutil.DemoUser(t, database.DemoTeacherID))
	otherToken := getToken(t, svcs, user.User{ID: "u4", Role: user.RoleStudent})
	_, err := svcs.User.Create(context.Background(), user.NewUser{ID: "u4", Name: "Bob Durand", Email: "bob@eliseea.eu", Role: user.RoleStudent})
	require.NoError(t, err)

	items := make([]checklistItemResponse, 0, len(fixtures.Checklist))
	for _, item := range fixtures.Checklist {
		items = append(items, newChecklistItemResponse(item))
	}

	runHttpTests(t, app, []httpTest{
		{
			name:     "mobility without token",
			method:   http.MethodGet,
			path:     "/v1/mobility",
			wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, errMissingToken),
		},
		{
			name:     "own mobility",
			method:   http.MethodGet,
			path:     "/v1/mobility",
			token:    studentToken,
			wantCode: http.StatusOK,
			wantData: marchallObj(t, fixtures.Mobilities[0]),
		},
		{
			name:     "student mobility as teacher",
			method:   http.MethodGet,
			path:     "/v1/mobility?user_id=u1",
			token:    teacherToken,
			wantCode: http.StatusOK,
			wantData: marchallObj(t, fixtures.Mobilities[0]),
		},
		{
			name:     "teacher has no mobility",
			method:   http.MethodGet,
			path:     "/v1/mobility",
			token:    teacherToken,
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "mobility: not found"}),
		},
		{
			name:     "other student mobility",
			method:   http.MethodGet,
			path:     "/v1/mobility?user_id=u1",
			token:    otherToken,
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "mobility: not found"}),
		},
		{
			name:     "checklist",
			method:   http.MethodGet,
			path:     "/v1/mobilities/m1/checklist",
			token:    studentToken,
			wantCode: http.StatusOK,
			wantData: marchallObj(t, items),
		},
		{
			name:     "checklist of another student",
			method:   http.MethodGet,
			path:     "/v1/mobilities/m1/checklist",
			token:    otherToken,
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "mobility: not found"}),
		},
		{
			name:     "progress",
			method:   http.MethodGet,
			path:     "/v1/mobilities/m1/progress",
			token:    teacherToken,
			wantCode: http.StatusOK,
			wantData: marchallObj(t, mobility.ComputeProgress(fixtures.Checklist)),
		},
	})

	t.Run("missing uploads are flagged", func(t *testing.T) {
		var got []checklistItemResponse
		req, rec := newAuthRequest(http.MethodGet, "/v1/mobilities/m1/checklist", studentToken)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		decode(t, rec, &got)

		missing := make(map[string]bool)
		for _, item := range got {
			missing[item.ID] = item.MissingUpload
		}
		assert.Equal(t, map[string]bool{"c1": true, "c2": false, "c3": true, "c4": false, "c5": false}, missing)
	})
}

func TestChecklistAdvanceAPI(t *testing.T) {
	app, svcs := setup(t, &testutil.StubGenerator{Draft: testDraft})
	studentToken := getToken(t, svcs, testutil.DemoUser(t, database.DemoStudentID))
	teacherToken := getToken(t, svcs, testutil.DemoUser(t, database.DemoTeacherID))

	advance := func(t *testing.T, token, itemID string, body string) (int, checklistItemResponse) {
		t.Helper()
		req, rec := newAuthRequest(http.MethodPost, "/v1/checklist/"+itemID+"/advance", token, []byte(body))
		app.ServeHTTP(rec, req)
		var res checklistItemResponse
		if rec.Code == http.StatusOK {
			decode(t, rec, &res)
		}
		return rec.Code, res
	}

	tests := []struct {
		name       string
		token      string
		itemID     string
		body       string
		wantCode   int
		wantStatus mobility.ItemStatus
	}{
		{"student completes a todo", studentToken, "c3", `{}`, http.StatusOK, mobility.ItemDone},
		{"student reopens it", studentToken, "c3", `{"from": "DONE"}`, http.StatusOK, mobility.ItemInProgress},
		{"stale replay is idempotent", studentToken, "c3", `{"from": "DONE"}`, http.StatusOK, mobility.ItemInProgress},
		{"student completes in progress", studentToken, "c4", `{"from": "IN_PROGRESS"}`, http.StatusOK, mobility.ItemDone},
		{"student cannot touch validated", studentToken, "c1", `{}`, http.StatusOK, mobility.ItemValidated},
		{"teacher validates", teacherToken, "c2", `{}`, http.StatusOK, mobility.ItemValidated},
		{"teacher unvalidates", teacherToken, "c2", `{"from": "VALIDATED"}`, http.StatusOK, mobility.ItemDone},
		{"teacher ignores todo", teacherToken, "c5", `{}`, http.StatusOK, mobility.ItemInProgress},
		{"conflicting from", studentToken, "c5", `{"from": "TODO"}`, http.StatusConflict, ""},
		{"unknown from", studentToken, "c5", `{"from": "LOST"}`, http.StatusBadRequest, ""},
		{"unknown item", studentToken, "c42", `{}`, http.StatusNotFound, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, item := advance(t, tt.token, tt.itemID, tt.body)
			require.Equal(t, tt.wantCode, code)
			if tt.wantStatus != "" {
				assert.Equal(t, tt.wantStatus, item.Status)
				assert.Equal(t, tt.itemID, item.ID)
			}
		})
	}

	t.Run("progress follows the transitions", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/mobilities/m1/progress", studentToken)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var progress mobility.Progress
		decode(t, rec, &progress)
		// c1 VALIDATED, c2 DONE, c3 IN_PROGRESS, c4 DONE, c5 IN_PROGRESS
		assert.Equal(t, 5, progress.Total)
		assert.Equal(t, 3, progress.Completed)
		assert.Equal(t, 1, progress.Validated)
		assert.Equal(t, 60, progress.Percent)
	})
}

func TestJournalAPI(t *testing.T) {
	app, svcs := setup(t, &testutil.StubGenerator{Draft: testDraft})
	studentToken := getToken(t, svcs, testutil.DemoUser(t, database.DemoStudentID))
	teacherToken := getToken(t, svcs, testutil.DemoUser(t, database.DemoTeacherID))

	runHttpTests(t, app, []httpTest{
		{
			name:     "list",
			method:   http.MethodGet,
			path:     "/v1/mobilities/m1/journal",
			token:    teacherToken,
			wantCode: http.StatusOK,
			wantData: marchallObj(t, database.DemoFixtures().Journal),
		},
		{
			name:     "list unknown mobility",
			method:   http.MethodGet,
			path:     "/v1/mobilities/m42/journal",
			token:    studentToken,
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "mobility: not found"}),
		},
		{
			name:     "teacher cannot write",
			method:   http.MethodPost,
			path:     "/v1/mobilities/m1/journal",
			body:     []byte(`{"date": "2024-05-06", "content": "Bonjour", "mood": 4}`),
			token:    teacherToken,
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name:     "invalid entry",
			method:   http.MethodPost,
			path:     "/v1/mobilities/m1/journal",
			body:     []byte(`{"date": "06/05/2024", "content": "  ", "mood": 9}`),
			token:    studentToken,
			wantCode: http.StatusBadRequest,
		},
	})

	t.Run("create", func(t *testing.T) {
		body := []byte(`{"date": "2024-05-03", "content": "Visite de l'Alcázar.", "mood": 4}`)
		req, rec := newAuthRequest(http.MethodPost, "/v1/mobilities/m1/journal", studentToken, body)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code)

		var entry journal.Entry
		decode(t, rec, &entry)
		assert.NotEmpty(t, entry.ID)
		assert.Equal(t, "Visite de l'Alcázar.", entry.Content)
		assert.Equal(t, []string{}, entry.Photos)

		req, rec = newAuthRequest(http.MethodGet, "/v1/mobilities/m1/journal", studentToken)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var entries []journal.Entry
		decode(t, rec, &entries)
		require.Len(t, entries, 3)
		assert.Equal(t, []string{"j1", entry.ID, "j2"}, []string{entries[0].ID, entries[1].ID, entries[2].ID})
	})
}

func TestTestimonialAPI(t *testing.T) {
	gen := &testutil.StubGenerator{Draft: testDraft}
	app, svcs := setup(t, gen)
	studentToken := getToken(t, svcs, testutil.DemoUser(t, database.DemoStudentID))
	teacherToken := getToken(t, svcs, testutil.DemoUser(t, database.DemoTeacherID))
	evaluation := []byte(`{"logistics": 4, "reception": 5, "skills": 4, "content": "Super accueil", "highlights": "Les jardins"}`)

	call := func(t *testing.T, method, path, token string, body ...[]byte) (int, []byte) {
		t.Helper()
		req, rec := newAuthRequest(method, path, token, body...)
		app.ServeHTTP(rec, req)
		return rec.Code, rec.Body.Bytes()
	}
	snapshot := func(t *testing.T, data []byte) testimonial.Snapshot {
		t.Helper()
		var snap testimonial.Snapshot
		require.NoError(t, json.Unmarshal(data, &snap))
		return snap
	}

	t.Run("staff have no pipeline", func(t *testing.T) {
		code, _ := call(t, http.MethodGet, "/v1/testimonial", teacherToken)
		assert.Equal(t, http.StatusForbidden, code)
	})

	t.Run("starts in form", func(t *testing.T) {
		code, data := call(t, http.MethodGet, "/v1/testimonial", studentToken)
		require.Equal(t, http.StatusOK, code)
		assert.Equal(t, testimonial.StageForm, snapshot(t, data).Stage)
	})

	t.Run("stage guards", func(t *testing.T) {
		code, _ := call(t, http.MethodPost, "/v1/testimonial/publish", studentToken, []byte(`{}`))
		assert.Equal(t, http.StatusConflict, code)
		code, _ = call(t, http.MethodGet, "/v1/testimonial/diff", studentToken)
		assert.Equal(t, http.StatusConflict, code)
	})

	t.Run("invalid evaluation", func(t *testing.T) {
		code, _ := call(t, http.MethodPost, "/v1/testimonial/generate", studentToken,
			[]byte(`{"logistics": 0, "reception": 5, "skills": 4, "content": "ok"}`))
		assert.Equal(t, http.StatusBadRequest, code)
		assert.Empty(t, gen.Requests())
	})

	t.Run("generate", func(t *testing.T) {
		code, data := call(t, http.MethodPost, "/v1/testimonial/generate", studentToken, evaluation)
		require.Equal(t, http.StatusOK, code)

		snap := snapshot(t, data)
		assert.Equal(t, testimonial.StageReview, snap.Stage)
		require.NotNil(t, snap.Draft)
		assert.Equal(t, testDraft, *snap.Draft)
		assert.Equal(t, testDraft.Content, snap.EditedContent)
		assert.False(t, snap.Fallback)
		require.Len(t, gen.Requests(), 1)
	})

	t.Run("generate twice", func(t *testing.T) {
		code, _ := call(t, http.MethodPost, "/v1/testimonial/generate", studentToken, evaluation)
		assert.Equal(t, http.StatusConflict, code)
		assert.Len(t, gen.Requests(), 1)
	})

	t.Run("edit and diff", func(t *testing.T) {
		code, data := call(t, http.MethodPut, "/v1/testimonial/draft", studentToken,
			[]byte(`{"content": "Un stage riche en rencontres."}`))
		require.Equal(t, http.StatusOK, code)
		assert.Equal(t, "Un stage riche en rencontres.", snapshot(t, data).EditedContent)

		code, data = call(t, http.MethodGet, "/v1/testimonial/diff", studentToken)
		require.Equal(t, http.StatusOK, code)
		var diff DiffResponse
		require.NoError(t, json.Unmarshal(data, &diff))
		assert.Contains(t, diff.Diff, "-Un stage riche en découvertes.")
		assert.Contains(t, diff.Diff, "+Un stage riche en rencontres.")
		assert.True(t, diff.Ratio > 0 && diff.Ratio < 1)
	})

	var published testimonial.Testimonial
	t.Run("publish", func(t *testing.T) {
		code, data := call(t, http.MethodPost, "/v1/testimonial/publish", studentToken, []byte(`{}`))
		require.Equal(t, http.StatusCreated, code)
		require.NoError(t, json.Unmarshal(data, &published))

		assert.NotEmpty(t, published.ID)
		assert.Equal(t, database.DemoMobilityID, published.MobilityID)
		assert.Equal(t, testDraft.Title, published.Title)
		assert.Equal(t, "Un stage riche en rencontres.", published.Content)
		assert.Equal(t, testimonial.StatusPublished, published.Status)
		assert.True(t, published.AIAssisted)
		assert.True(t, published.Verify())
		assert.Len(t, svcs.Mailer.Sent(), 1)
	})

	t.Run("publish twice", func(t *testing.T) {
		code, _ := call(t, http.MethodPost, "/v1/testimonial/publish", studentToken, []byte(`{}`))
		assert.Equal(t, http.StatusConflict, code)
		assert.Len(t, svcs.Mailer.Sent(), 1)
	})

	t.Run("teacher reads the published testimonial", func(t *testing.T) {
		code, data := call(t, http.MethodGet, "/v1/mobilities/m1/testimonials", teacherToken)
		require.Equal(t, http.StatusOK, code)
		var ts []testimonial.Testimonial
		require.NoError(t, json.Unmarshal(data, &ts))
		require.Len(t, ts, 1)
		assert.Equal(t, published.ID, ts[0].ID)
	})

	t.Run("restart", func(t *testing.T) {
		code, data := call(t, http.MethodPost, "/v1/testimonial/restart", studentToken)
		require.Equal(t, http.StatusOK, code)
		assert.Equal(t, testimonial.StageForm, snapshot(t, data).Stage)
	})
}

func TestTestimonialAPIGenerationFailure(t *testing.T) {
	gen := &testutil.StubGenerator{Err: errors.New("upstream unavailable")}
	app, svcs := setup(t, gen)
	studentToken := getToken(t, svcs, testutil.DemoUser(t, database.DemoStudentID))
	evaluation := []byte(`{"logistics": 4, "reception": 5, "skills": 4, "content": "Super accueil"}`)

	runHttpTests(t, app, []httpTest{
		{
			name:     "generation fails",
			method:   http.MethodPost,
			path:     "/v1/testimonial/generate",
			body:     evaluation,
			token:    studentToken,
			wantCode: http.StatusBadGateway,
			wantData: marchallObj(t, httpErr{Error: testimonial.GenerationFailedMessage}),
		},
	})

	req, rec := newAuthRequest(http.MethodGet, "/v1/testimonial", studentToken)
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var snap testimonial.Snapshot
	decode(t, rec, &snap)
	assert.Equal(t, testimonial.StageForm, snap.Stage)
	assert.Equal(t, testimonial.GenerationFailedMessage, snap.Error)
}

func TestTestimonialAPIFallback(t *testing.T) {
	app, svcs := setup(t, &testutil.StubGenerator{Err: testimonial.ErrCredentialMissing})
	studentToken := getToken(t, svcs, testutil.DemoUser(t, database.DemoStudentID))

	req, rec := newAuthRequest(http.MethodPost, "/v1/testimonial/generate", studentToken,
		[]byte(`{"logistics": 3, "reception": 3, "skills": 3, "content": "Correct"}`))
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var snap testimonial.Snapshot
	decode(t, rec, &snap)
	assert.Equal(t, testimonial.StageReview, snap.Stage)
	assert.True(t, snap.Fallback)
	require.NotNil(t, snap.Draft)
	assert.Equal(t, testimonial.FallbackDraft(), *snap.Draft)

	req, rec = newAuthRequest(http.MethodPost, "/v1/testimonial/publish", studentToken, []byte(`{}`))
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	var published testimonial.Testimonial
	decode(t, rec, &published)
	assert.False(t, published.AIAssisted)
	assert.Equal(t, 1.0, published.EditRatio)
}

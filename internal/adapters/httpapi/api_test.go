package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	_ "modernc.org/sqlite"

	"activityboard/internal/adapters/activityapi"
	"activityboard/internal/adapters/email"
	"activityboard/internal/adapters/storage"
	activityStore "activityboard/internal/adapters/storage/activity"
	"activityboard/internal/application/orchestrators"
	"activityboard/internal/domain/activity"
)

var apiNow = time.Date(2026, 9, 14, 8, 45, 0, 0, time.UTC)

// newTestAPI serves a freshly seeded catalog.
func newTestAPI(t *testing.T, boardURL string) (*httptest.Server, *email.NoopSender) {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, storage.InitDB(db))

	store := activityStore.NewSQLiteStore(db)
	require.NoError(t, orchestrators.ExecuteSeedActivities(context.Background(),
		orchestrators.SeedActivitiesDeps{Store: store}))

	sender := email.NewNoopSender()
	srv := httptest.NewServer(NewMux(Config{
		Store:    store,
		Sender:   sender,
		BoardURL: boardURL,
		Now:      func() time.Time { return apiNow },
	}))
	t.Cleanup(srv.Close)
	return srv, sender
}

func call(t *testing.T, method, rawURL string) (int, string) {
	t.Helper()
	req, err := http.NewRequest(method, rawURL, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestListActivities_KeepsCatalogOrder(t *testing.T) {
	srv, _ := newTestAPI(t, "")
	status, body := call(t, http.MethodGet, srv.URL+"/activities")
	require.Equal(t, http.StatusOK, status)

	var names []string
	gjson.Parse(body).ForEach(func(key, _ gjson.Result) bool {
		names = append(names, key.String())
		return true
	})
	want := orchestrators.DefaultCatalog()
	require.Len(t, names, len(want))
	for i, a := range want {
		assert.Equal(t, a.Name, names[i])
	}
	assert.Equal(t, int64(12), gjson.Get(body, "Chess Club.max_participants").Int())
	assert.Equal(t, "michael@mergington.edu", gjson.Get(body, "Chess Club.participants.0").String())
}

func TestSignup_StatusAndDetail(t *testing.T) {
	srv, sender := newTestAPI(t, "")
	signup := func(name, email string) (int, string) {
		return call(t, http.MethodPost, srv.URL+"/activities/"+url.PathEscape(name)+"/signup?email="+url.QueryEscape(email))
	}

	status, body := signup("Chess Club", "new@mergington.edu")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Signed up new@mergington.edu for Chess Club", gjson.Get(body, "message").String())
	require.Len(t, sender.Sent(), 1)
	assert.Equal(t, "new@mergington.edu", sender.Sent()[0].To)

	tests := []struct {
		name       string
		activity   string
		email      string
		wantStatus int
		wantDetail string
	}{
		{"unknown activity", "Underwater Basket Weaving", "a@mergington.edu", http.StatusNotFound, DetailNotFound},
		{"duplicate", "Chess Club", "michael@mergington.edu", http.StatusBadRequest, DetailAlreadyJoined},
		{"empty email", "Chess Club", "", http.StatusUnprocessableEntity, DetailEmailRequired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := signup(tt.activity, tt.email)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantDetail, gjson.Get(body, "detail").String())
		})
	}
}

func TestSignup_FullActivity(t *testing.T) {
	srv, _ := newTestAPI(t, "")
	// Tennis Club seats 16 and starts with one participant.
	for i := range 15 {
		email := "player" + string(rune('a'+i)) + "@mergington.edu"
		status, _ := call(t, http.MethodPost, srv.URL+"/activities/Tennis%20Club/signup?email="+url.QueryEscape(email))
		require.Equal(t, http.StatusOK, status, email)
	}
	status, body := call(t, http.MethodPost, srv.URL+"/activities/Tennis%20Club/signup?email=late%40mergington.edu")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, DetailFull, gjson.Get(body, "detail").String())
}

func TestSignup_MissingEmailIsValidationList(t *testing.T) {
	srv, _ := newTestAPI(t, "")
	status, body := call(t, http.MethodPost, srv.URL+"/activities/Chess%20Club/signup")
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.True(t, gjson.Get(body, "detail").IsArray())
	assert.Equal(t, "email", gjson.Get(body, "detail.0.loc.1").String())
}

func TestRemove_StatusAndDetail(t *testing.T) {
	srv, _ := newTestAPI(t, "")

	status, body := call(t, http.MethodDelete, srv.URL+"/activities/Chess%20Club/remove?email=michael%40mergington.edu")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Removed michael@mergington.edu from Chess Club", gjson.Get(body, "message").String())

	status, body = call(t, http.MethodDelete, srv.URL+"/activities/Chess%20Club/remove?email=michael%40mergington.edu")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, DetailNotSignedUp, gjson.Get(body, "detail").String())

	status, body = call(t, http.MethodDelete, srv.URL+"/activities/Nope/remove?email=a%40b.c")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, DetailNotFound, gjson.Get(body, "detail").String())
}

func TestRoot_RedirectsToBoard(t *testing.T) {
	srv, _ := newTestAPI(t, "http://localhost:8080/")
	client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }}
	resp, err := client.Get(srv.URL + "/")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusTemporaryRedirect, resp.StatusCode)
	assert.Equal(t, "http://localhost:8080/", resp.Header.Get("Location"))

	bare, _ := newTestAPI(t, "")
	status, _ := call(t, http.MethodGet, bare.URL+"/")
	assert.Equal(t, http.StatusNotFound, status)
}

// TestClientContract drives the board's API client against this server.
func TestClientContract(t *testing.T) {
	srv, _ := newTestAPI(t, "")
	client, err := activityapi.NewClient(srv.URL, nil, nil)
	require.NoError(t, err)
	ctx := context.Background()

	list, err := client.ListActivities(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, list)
	assert.Equal(t, "Chess Club", list[0].Name)
	assert.Equal(t, 10, list[0].SpotsLeft())

	res, err := client.Signup(ctx, "Programming Class", "b+tag@mergington.edu")
	require.NoError(t, err)
	assert.Equal(t, "Signed up b+tag@mergington.edu for Programming Class", res.Message)

	_, err = client.Signup(ctx, "Programming Class", "b+tag@mergington.edu")
	var apiErr *activityapi.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, DetailAlreadyJoined, apiErr.Detail)

	res, err = client.Remove(ctx, "Programming Class", "b+tag@mergington.edu")
	require.NoError(t, err)
	assert.Equal(t, "Removed b+tag@mergington.edu from Programming Class", res.Message)
}

func TestEncodeCatalog(t *testing.T) {
	body, err := encodeCatalog(orchestrators.DefaultCatalog()[:1])
	require.NoError(t, err)
	var decoded map[string]activityBody
	require.NoError(t, json.Unmarshal(body, &decoded))
	assert.True(t, strings.HasPrefix(string(body), `{"Chess Club":`))

	bare, err := encodeCatalog([]activity.Activity{{Name: "Drop-in", MaxParticipants: 3}})
	require.NoError(t, err)
	assert.Contains(t, string(bare), `"participants":[]`)

	empty, err := encodeCatalog(nil)
	require.NoError(t, err)
	assert.Equal(t, "{}", string(empty))
}

package browser_test

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/playwright-community/playwright-go"

	_ "modernc.org/sqlite"

	"activityboard/internal/adapters/activityapi"
	web "activityboard/internal/adapters/http"
	"activityboard/internal/adapters/http/perf"
	"activityboard/internal/adapters/httpapi"
	"activityboard/internal/adapters/storage"
	activityStore "activityboard/internal/adapters/storage/activity"
	"activityboard/internal/application/orchestrators"
)

// testApp holds the running API, the board and the Playwright handles.
type testApp struct {
	BaseURL string
	APIURL  string
	DB      *sql.DB
	Store   *activityStore.SQLiteStore
	PW      *playwright.Playwright
	Browser playwright.Browser
}

// newTestApp starts the Activities API on a temp SQLite DB seeded with the
// default catalog, the board in front of it, and a headless Chromium.
func newTestApp(t *testing.T) *testApp {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)&_txlock=immediate"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("failed to open test DB: %v", err)
	}
	if err := storage.InitDB(db); err != nil {
		t.Fatalf("failed to migrate test DB: %v", err)
	}

	ctx := context.Background()
	store := activityStore.NewSQLiteStore(db)
	if err := orchestrators.ExecuteSeedActivities(ctx, orchestrators.SeedActivitiesDeps{Store: store}); err != nil {
		t.Fatalf("failed to seed activities: %v", err)
	}

	apiSrv := httptest.NewServer(httpapi.NewMux(httpapi.Config{Store: store}))

	collector := perf.NewCollector(1000)
	client, err := activityapi.NewClient(apiSrv.URL, nil, collector)
	if err != nil {
		t.Fatalf("failed to create api client: %v", err)
	}
	board, err := web.NewMux(web.Config{
		API:                client,
		Collector:          collector,
		CSRFKey:            []byte("browser-tests-csrf-key-32-bytes!"),
		RateLimitPerSecond: 1000,
	})
	if err != nil {
		t.Fatalf("failed to create board: %v", err)
	}
	boardSrv := httptest.NewServer(board)

	pw, err := playwright.Run()
	if err != nil {
		t.Fatalf("failed to start Playwright: %v", err)
	}
	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(true),
	})
	if err != nil {
		t.Fatalf("failed to launch browser: %v", err)
	}

	app := &testApp{
		BaseURL: boardSrv.URL,
		APIURL:  apiSrv.URL,
		DB:      db,
		Store:   store,
		PW:      pw,
		Browser: browser,
	}

	t.Cleanup(func() {
		browser.Close()
		pw.Stop()
		boardSrv.Close()
		apiSrv.Close()
		db.Close()
	})

	return app
}

// newPage creates a new browser page (tab).
func (a *testApp) newPage(t *testing.T) playwright.Page {
	t.Helper()
	page, err := a.Browser.NewPage()
	if err != nil {
		t.Fatalf("failed to create page: %v", err)
	}
	t.Cleanup(func() { page.Close() })
	return page
}

// open loads the board and waits for htmx to be ready.
func (a *testApp) open(t *testing.T, page playwright.Page) {
	t.Helper()
	if _, err := page.Goto(a.BaseURL + "/"); err != nil {
		t.Fatalf("failed to navigate to board: %v", err)
	}
	if _, err := page.WaitForFunction("() => window.htmx !== undefined", nil, playwright.PageWaitForFunctionOptions{
		Timeout: playwright.Float(10000),
	}); err != nil {
		t.Fatalf("htmx did not load: %v", err)
	}
}

// waitText waits until the locator's text contains want.
func waitText(t *testing.T, loc playwright.Locator, want string) {
	t.Helper()
	if err := loc.Filter(playwright.LocatorFilterOptions{HasText: want}).WaitFor(playwright.LocatorWaitForOptions{
		Timeout: playwright.Float(5000),
	}); err != nil {
		t.Fatalf("text %q did not appear: %v", want, err)
	}
}

// apiStatus calls the API directly, bypassing the board.
func (a *testApp) apiStatus(t *testing.T, method, path string) int {
	t.Helper()
	req, err := http.NewRequest(method, a.APIURL+path, nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("api request: %v", err)
	}
	resp.Body.Close()
	return resp.StatusCode
}

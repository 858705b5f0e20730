//go:build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/cucumber/godog"
	"github.com/google/uuid"
)

// testContext holds state shared across step definitions within a scenario.
type testContext struct {
	stack        *stack
	sessionID    string
	client       *http.Client
	response     *http.Response
	responseBody []byte
}

func newTestContext() *testContext {
	return &testContext{
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// reset tears the previous scenario's stack down.
func (tc *testContext) reset() {
	if tc.stack != nil {
		tc.stack.close()
	}

	tc.stack = nil
	tc.response = nil
	tc.responseBody = nil
}

// InitializeScenario registers step definitions for each scenario.
func InitializeScenario(ctx *godog.ScenarioContext) {
	tc := newTestContext()

	ctx.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
		tc.reset()
		tc.sessionID = uuid.NewString()
		return ctx, nil
	})

	ctx.After(func(ctx context.Context, _ *godog.Scenario, _ error) (context.Context, error) {
		tc.reset()
		return ctx, nil
	})

	ctx.Step(`^the service is running$`, tc.theServiceIsRunning)
	ctx.Step(`^the service is running with "([^"]*)" enabled$`, tc.theServiceIsRunningWithFlag)
	ctx.Step(`^the remote collection has posts titled "([^"]*)"$`, tc.theRemoteHasPosts)
	ctx.Step(`^the remote is failing$`, tc.theRemoteIsFailing)
	ctx.Step(`^I request (GET|POST|PUT) "([^"]*)"$`, tc.iRequest)
	ctx.Step(`^I request (POST|PUT) "([^"]*)" with body:$`, tc.iRequestWithBody)
	ctx.Step(`^I import the exported quotes$`, tc.iImportTheExport)
	ctx.Step(`^I switch to a new session$`, tc.iSwitchSession)
	ctx.Step(`^the response status should be (\d+)$`, tc.theResponseStatusShouldBe)
	ctx.Step(`^the response should contain "([^"]*)"$`, tc.theResponseShouldContain)
	ctx.Step(`^the JSON field "([^"]*)" should be "([^"]*)"$`, tc.theJSONFieldShouldBe)
	ctx.Step(`^the response should list (\d+) quotes?$`, tc.theResponseShouldListQuotes)
	ctx.Step(`^the remote should have received the quote "([^"]*)" in "([^"]*)"$`, tc.theRemoteReceived)
}

func (tc *testContext) theServiceIsRunning() error {
	return tc.start(nil)
}

func (tc *testContext) theServiceIsRunningWithFlag(flag string) error {
	return tc.start(map[string]bool{flag: true})
}

func (tc *testContext) start(features map[string]bool) error {
	s, err := newStack(stackOptions{features: features})
	if err != nil {
		return err
	}

	tc.stack = s

	if err := tc.iRequest(http.MethodGet, "/-/live"); err != nil {
		return err
	}

	return tc.theResponseStatusShouldBe(http.StatusOK)
}

func (tc *testContext) theRemoteHasPosts(titles string) error {
	parts := strings.Split(titles, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	tc.stack.remote.setTitles(parts...)

	return nil
}

func (tc *testContext) theRemoteIsFailing() error {
	tc.stack.remote.setFailing(true)
	return nil
}

func (tc *testContext) iSwitchSession() error {
	tc.sessionID = uuid.NewString()
	return nil
}

func (tc *testContext) iRequest(method, path string) error {
	return tc.send(method, path, nil)
}

func (tc *testContext) iRequestWithBody(method, path string, body *godog.DocString) error {
	return tc.send(method, path, []byte(body.Content))
}

// iImportTheExport posts the previous response body back to the import
// endpoint.
func (tc *testContext) iImportTheExport() error {
	if len(tc.responseBody) == 0 {
		return fmt.Errorf("no export to import")
	}

	return tc.send(http.MethodPost, "/api/v1/quotes/import", tc.responseBody)
}

func (tc *testContext) send(method, path string, body []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, tc.stack.server.URL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("X-Session-ID", tc.sessionID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := tc.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	tc.response = resp
	tc.responseBody, err = io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	return nil
}

func (tc *testContext) theResponseStatusShouldBe(expectedCode int) error {
	if tc.response == nil {
		return fmt.Errorf("no response received")
	}

	if tc.response.StatusCode != expectedCode {
		return fmt.Errorf("expected status %d, got %d. Body: %s",
			expectedCode, tc.response.StatusCode, string(tc.responseBody))
	}

	return nil
}

func (tc *testContext) theResponseShouldContain(text string) error {
	if !strings.Contains(string(tc.responseBody), text) {
		return fmt.Errorf("response body does not contain %q.\nBody: %s", text, tc.responseBody)
	}

	return nil
}

// theJSONFieldShouldBe compares a dotted path into the JSON body, e.g.
// "submission.synced" or "error.code".
func (tc *testContext) theJSONFieldShouldBe(path, want string) error {
	var doc any
	if err := json.Unmarshal(tc.responseBody, &doc); err != nil {
		return fmt.Errorf("response is not JSON: %w", err)
	}

	for _, part := range strings.Split(path, ".") {
		obj, ok := doc.(map[string]any)
		if !ok {
			return fmt.Errorf("%q: %v is not an object", path, doc)
		}

		doc, ok = obj[part]
		if !ok {
			return fmt.Errorf("%q: field %q missing in %s", path, part, tc.responseBody)
		}
	}

	if got := fmt.Sprint(doc); got != want {
		return fmt.Errorf("%q: expected %q, got %q", path, want, got)
	}

	return nil
}

func (tc *testContext) theResponseShouldListQuotes(n int) error {
	var page struct {
		Items []json.RawMessage `json:"items"`
	}

	if err := json.Unmarshal(tc.responseBody, &page); err != nil {
		return fmt.Errorf("response is not a quote page: %w", err)
	}

	if len(page.Items) != n {
		return fmt.Errorf("expected %d quotes, got %d: %s", n, len(page.Items), tc.responseBody)
	}

	return nil
}

func (tc *testContext) theRemoteReceived(text, category string) error {
	for _, s := range tc.stack.remote.submissions() {
		if s["text"] == text && s["category"] == category {
			return nil
		}
	}

	return fmt.Errorf("remote never received %q/%q: %v", text, category, tc.stack.remote.submissions())
}

// TestFeatures runs the GoDog BDD test suite.
func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"../features"},
			TestingT: t,
			Tags:     os.Getenv("GODOG_TAGS"),
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}

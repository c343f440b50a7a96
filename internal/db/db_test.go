// Package db provides integration tests for SurrealDB operations.
package db

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"testing"
	"time"

	"github.com/raphaelgruber/veridata-go/internal/models"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

var testDB *Client
var testContainer testcontainers.Container

// TestMain sets up and tears down the SurrealDB container for all tests.
func TestMain(m *testing.M) {
	// Disable ryuk (cleanup container) as it can cause issues in some environments
	os.Setenv("TESTCONTAINERS_RYUK_DISABLED", "true")

	ctx := context.Background()

	// Start SurrealDB container
	var err error
	testContainer, err = testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "surrealdb/surrealdb:v3.0.0-beta.1",
			ExposedPorts: []string{"8000/tcp"},
			Cmd:          []string{"start", "--log", "info", "--user", "root", "--pass", "root"},
			WaitingFor:   wait.ForLog("Started web server").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		log.Fatalf("Failed to start SurrealDB container: %v", err)
	}

	// Get container host and port
	host, err := testContainer.Host(ctx)
	if err != nil {
		log.Fatalf("Failed to get container host: %v", err)
	}
	// Workaround: testcontainers may return "null" as host in some environments
	if host == "" || host == "null" {
		host = "localhost"
	}
	mappedPort, err := testContainer.MappedPort(ctx, "8000")
	if err != nil {
		log.Fatalf("Failed to get mapped port: %v", err)
	}

	// Connect to test database
	testDB, err = NewClient(ctx, Config{
		URL:       fmt.Sprintf("ws://%s:%s/rpc", host, mappedPort.Port()),
		Namespace: "test",
		Database:  "test",
		Username:  "root",
		Password:  "root",
		AuthLevel: "root",
	}, nil)
	if err != nil {
		log.Fatalf("Failed to connect to test database: %v", err)
	}

	if err := testDB.InitSchema(ctx); err != nil {
		log.Fatalf("Failed to initialize schema: %v", err)
	}

	// Run tests
	code := m.Run()

	// Cleanup
	_ = testDB.Close(ctx)
	_ = testContainer.Terminate(ctx)

	os.Exit(code)
}

func wipe(t *testing.T) {
	t.Helper()
	if err := testDB.WipeData(context.Background()); err != nil {
		t.Fatalf("WipeData failed: %v", err)
	}
}

func testDataset(id string) models.Dataset {
	return models.Dataset{
		DatasetID:      id,
		Title:          "Air Quality Measurements",
		Theme:          "environment",
		Description:    "Hourly air quality readings from monitoring stations",
		URL:            "https://data.example.org/dataset/" + id,
		License:        "CC-BY-4.0",
		RefreshCadence: "daily",
		Tags:           []string{"air", "environment"},
		Resources: []models.Resource{
			{ID: id + "-r1", URL: "https://data.example.org/files/" + id + ".csv", Format: "csv", SizeBytes: 2048},
		},
	}
}

func TestCreateAndFetchDataset(t *testing.T) {
	wipe(t)
	ctx := context.Background()

	created, err := testDB.CreateDataset(ctx, testDataset("air-quality"))
	if err != nil {
		t.Fatalf("CreateDataset failed: %v", err)
	}
	if created.DatasetID != "air-quality" {
		t.Errorf("Expected dataset_id 'air-quality', got %q", created.DatasetID)
	}

	datasets, err := testDB.DatasetsByIDs(ctx, []string{"air-quality", "does-not-exist"})
	if err != nil {
		t.Fatalf("DatasetsByIDs failed: %v", err)
	}
	if len(datasets) != 1 {
		t.Fatalf("Expected 1 dataset, got %d", len(datasets))
	}
	if len(datasets[0].Resources) != 1 {
		t.Errorf("Expected 1 resource, got %d", len(datasets[0].Resources))
	}
	if datasets[0].LastAnalysis != nil {
		t.Error("LastAnalysis should be nil before any verification pass")
	}

	// Duplicate dataset_id violates the unique index
	_, err = testDB.CreateDataset(ctx, testDataset("air-quality"))
	if !errors.Is(err, ErrAlreadyExists) {
		t.Errorf("Expected ErrAlreadyExists for duplicate dataset, got %v", err)
	}

	// Empty id list short-circuits without a query
	empty, err := testDB.DatasetsByIDs(ctx, nil)
	if err != nil {
		t.Fatalf("DatasetsByIDs with empty input failed: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("Expected empty result, got %d", len(empty))
	}
}

func TestUnstructuredComments(t *testing.T) {
	wipe(t)
	ctx := context.Background()

	first, err := testDB.CreateComment(ctx, "air-quality", "The CSV download seems to miss station 12.")
	if err != nil {
		t.Fatalf("CreateComment failed: %v", err)
	}
	second, err := testDB.CreateComment(ctx, "air-quality", "Great dataset, thanks!")
	if err != nil {
		t.Fatalf("CreateComment failed: %v", err)
	}

	comments, err := testDB.UnstructuredComments(ctx, 20)
	if err != nil {
		t.Fatalf("UnstructuredComments failed: %v", err)
	}
	if len(comments) != 2 {
		t.Fatalf("Expected 2 unstructured comments, got %d", len(comments))
	}

	// Once a comment has a response it drops out of the unstructured set
	_, err = testDB.CreateResponse(ctx, first.ID, "air-quality", models.OkMessage([]models.Statement{
		{ID: 1, Text: "Station 12 is missing from the CSV download.", Category: "data quality"},
	}))
	if err != nil {
		t.Fatalf("CreateResponse failed: %v", err)
	}

	comments, err = testDB.UnstructuredComments(ctx, 20)
	if err != nil {
		t.Fatalf("UnstructuredComments after response failed: %v", err)
	}
	if len(comments) != 1 {
		t.Fatalf("Expected 1 unstructured comment, got %d", len(comments))
	}
	if comments[0].ID != second.ID {
		t.Errorf("Expected remaining comment %v, got %v", second.ID, comments[0].ID)
	}

	// Limit caps the page size
	limited, err := testDB.UnstructuredComments(ctx, 0)
	if err != nil {
		t.Fatalf("UnstructuredComments with limit 0 failed: %v", err)
	}
	if len(limited) != 0 {
		t.Errorf("Expected 0 comments with limit 0, got %d", len(limited))
	}
}

func TestCreateResponseDuplicate(t *testing.T) {
	wipe(t)
	ctx := context.Background()

	comment, err := testDB.CreateComment(ctx, "air-quality", "Is the license really CC-BY?")
	if err != nil {
		t.Fatalf("CreateComment failed: %v", err)
	}

	msg := models.OkMessage([]models.Statement{
		{ID: 1, Text: "The dataset license is CC-BY.", Category: "licensing"},
	})
	created, err := testDB.CreateResponse(ctx, comment.ID, "air-quality", msg)
	if err != nil {
		t.Fatalf("CreateResponse failed: %v", err)
	}
	if created.Score != nil {
		t.Errorf("New response should have nil score, got %v", *created.Score)
	}
	if len(created.Message.Statements) != 1 {
		t.Errorf("Expected 1 statement, got %d", len(created.Message.Statements))
	}

	// Second response for the same comment hits the unique index
	_, err = testDB.CreateResponse(ctx, comment.ID, "air-quality", msg)
	if !errors.Is(err, ErrAlreadyExists) {
		t.Errorf("Expected ErrAlreadyExists for duplicate response, got %v", err)
	}
}

func TestUnscoredResponsesAndUpdate(t *testing.T) {
	wipe(t)
	ctx := context.Background()

	// Two datasets, three comments; ordering by dataset_id groups work units
	var responses []*models.Response
	for _, c := range []struct{ dataset, text string }{
		{"water-levels", "River gauge 3 reports negative depth."},
		{"air-quality", "PM10 values look off in January."},
		{"air-quality", "Missing data for weekends."},
	} {
		comment, err := testDB.CreateComment(ctx, c.dataset, c.text)
		if err != nil {
			t.Fatalf("CreateComment failed: %v", err)
		}
		resp, err := testDB.CreateResponse(ctx, comment.ID, c.dataset, models.OkMessage([]models.Statement{
			{ID: 1, Text: c.text, Category: "data quality"},
		}))
		if err != nil {
			t.Fatalf("CreateResponse failed: %v", err)
		}
		responses = append(responses, resp)
	}

	unscored, err := testDB.UnscoredResponses(ctx, 20)
	if err != nil {
		t.Fatalf("UnscoredResponses failed: %v", err)
	}
	if len(unscored) != 3 {
		t.Fatalf("Expected 3 unscored responses, got %d", len(unscored))
	}
	if unscored[0].DatasetID != "air-quality" || unscored[2].DatasetID != "water-levels" {
		t.Errorf("Expected responses ordered by dataset_id, got %q %q %q",
			unscored[0].DatasetID, unscored[1].DatasetID, unscored[2].DatasetID)
	}

	// Scoring one removes it from the unscored set
	scored := responses[0]
	msg := scored.Message
	msg.Statements[0].Analysis = &models.Analysis{
		Comment:         "Confirmed by the gauge readings file.",
		Accepted:        true,
		MatchPercentage: 80,
	}
	if err := testDB.UpdateResponse(ctx, scored.ID, msg, 80); err != nil {
		t.Fatalf("UpdateResponse failed: %v", err)
	}

	unscored, err = testDB.UnscoredResponses(ctx, 20)
	if err != nil {
		t.Fatalf("UnscoredResponses after update failed: %v", err)
	}
	if len(unscored) != 2 {
		t.Fatalf("Expected 2 unscored responses after update, got %d", len(unscored))
	}

	fetched, err := testDB.GetResponse(ctx, models.MustRecordIDString(scored.ID))
	if err != nil {
		t.Fatalf("GetResponse failed: %v", err)
	}
	if fetched == nil {
		t.Fatal("GetResponse returned nil")
	}
	if fetched.Score == nil || *fetched.Score != 80 {
		t.Errorf("Expected score 80, got %v", fetched.Score)
	}
	if fetched.Message.Statements[0].Analysis == nil {
		t.Error("Expected analysis on the scored statement")
	}

	// Sentinel score marks failed passes as processed
	failed := responses[1]
	if err := testDB.UpdateResponse(ctx, failed.ID, failed.Message.WithError("no resources"), models.SentinelScore); err != nil {
		t.Fatalf("UpdateResponse with sentinel failed: %v", err)
	}
	unscored, err = testDB.UnscoredResponses(ctx, 20)
	if err != nil {
		t.Fatalf("UnscoredResponses after sentinel failed: %v", err)
	}
	if len(unscored) != 1 {
		t.Fatalf("Expected 1 unscored response after sentinel update, got %d", len(unscored))
	}
}

func TestStampLastAnalysis(t *testing.T) {
	wipe(t)
	ctx := context.Background()

	if _, err := testDB.CreateDataset(ctx, testDataset("water-levels")); err != nil {
		t.Fatalf("CreateDataset failed: %v", err)
	}

	if err := testDB.StampLastAnalysis(ctx, "water-levels"); err != nil {
		t.Fatalf("StampLastAnalysis failed: %v", err)
	}

	datasets, err := testDB.DatasetsByIDs(ctx, []string{"water-levels"})
	if err != nil {
		t.Fatalf("DatasetsByIDs failed: %v", err)
	}
	if len(datasets) != 1 {
		t.Fatalf("Expected 1 dataset, got %d", len(datasets))
	}
	if datasets[0].LastAnalysis == nil {
		t.Fatal("LastAnalysis should be set after stamping")
	}
	if time.Since(*datasets[0].LastAnalysis) > time.Minute {
		t.Errorf("LastAnalysis timestamp looks stale: %v", *datasets[0].LastAnalysis)
	}
}

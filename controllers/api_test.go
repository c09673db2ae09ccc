package controllers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"lms/cache"
	"lms/config"
	"lms/models"
	"lms/routes"
	"lms/services"
	"lms/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type recordingSink struct {
	mu     sync.Mutex
	events []services.Event
}

func (r *recordingSink) Dispatch(event services.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingSink) count(eventType services.EventType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, event := range r.events {
		if event.Type == eventType {
			n++
		}
	}
	return n
}

type testEnv struct {
	app  *fiber.App
	db   *gorm.DB
	sink *recordingSink
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:apitest_%s_%d?mode=memory&cache=shared", t.Name(), time.Now().UnixNano())), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, utils.Migrate(db))

	cfg := &config.Config{
		JWTSecret:  "testsecret",
		ServerPort: "8080",
		CacheTTL:   time.Minute,
	}

	sink := &recordingSink{}
	app := fiber.New()
	routes.SetupRoutes(app, db, cfg, routes.Deps{
		Cache:    cache.NewMemoryCache(),
		Sessions: session.New(),
		Events:   sink,
	})

	return &testEnv{app: app, db: db, sink: sink}
}

func (env *testEnv) request(t *testing.T, method, path, token string, payload interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewBuffer(data)
	}

	req := httptest.NewRequest(method, path, body)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", token)
	}

	resp, err := env.app.Test(req)
	require.NoError(t, err)

	var result map[string]interface{}
	raw, _ := io.ReadAll(resp.Body)
	// listings return arrays, everything else returns objects
	_ = json.Unmarshal(raw, &result)
	return resp, result
}

func (env *testEnv) register(t *testing.T, username, role string) string {
	t.Helper()
	resp, result := env.request(t, "POST", "/api/auth/register", "", map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": "password",
		"role":     role,
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	token, _ := result["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func TestEnrollmentAndCertificateFlow(t *testing.T) {
	env := newTestEnv(t)
	authorToken := env.register(t, "author", "author")
	studentToken := env.register(t, "student", "student")

	// author creates a three-lesson course
	resp, result := env.request(t, "POST", "/api/courses", authorToken, map[string]interface{}{
		"title":         "HTML",
		"description":   "markup course",
		"start_date":    "2026-09-01",
		"duration":      4,
		"price":         100,
		"count_lessons": 3,
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	courseID := int(result["course"].(map[string]interface{})["ID"].(float64))

	for i := 1; i <= 3; i++ {
		resp, _ = env.request(t, "POST", fmt.Sprintf("/api/courses/%d/lessons", courseID), authorToken, map[string]string{
			"name":    fmt.Sprintf("Lesson %d", i),
			"preview": "short preview",
		})
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
	}

	// student enrolls, once
	resp, result = env.request(t, "POST", fmt.Sprintf("/api/courses/%d/enroll", courseID), studentToken, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "You have been enrolled in the course", result["message"])
	assert.Equal(t, 1, env.sink.count(services.EventEnrolled))

	resp, result = env.request(t, "POST", fmt.Sprintf("/api/courses/%d/enroll", courseID), studentToken, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "You are already enrolled in this course", result["message"])
	assert.Equal(t, 1, env.sink.count(services.EventEnrolled))

	// three tracking records, none passed, progress 0
	var trackings []models.Tracking
	require.NoError(t, env.db.Order("id").Find(&trackings).Error)
	require.Len(t, trackings, 3)

	_, result = env.request(t, "GET", fmt.Sprintf("/api/courses/%d/progress", courseID), studentToken, nil)
	assert.EqualValues(t, 0, result["progress"])

	// author marks two lessons passed: 66.67, not yet eligible
	updates := []map[string]interface{}{
		{"id": trackings[0].ID, "passed": true},
		{"id": trackings[1].ID, "passed": true},
	}
	resp, _ = env.request(t, "PATCH", "/api/trackings", authorToken, updates)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	_, result = env.request(t, "GET", fmt.Sprintf("/api/courses/%d/progress", courseID), studentToken, nil)
	assert.InDelta(t, 66.67, result["progress"].(float64), 0.001)

	resp, result = env.request(t, "POST", fmt.Sprintf("/api/courses/%d/certificate", courseID), studentToken, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, false, result["eligible"])
	assert.Equal(t, 0, env.sink.count(services.EventCertificateIssued))

	// final lesson passed: certificate goes out exactly once
	resp, _ = env.request(t, "PATCH", "/api/trackings", authorToken, []map[string]interface{}{
		{"id": trackings[2].ID, "passed": true},
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, result = env.request(t, "POST", fmt.Sprintf("/api/courses/%d/certificate", courseID), studentToken, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, true, result["eligible"])
	assert.NotEmpty(t, result["certificate"])
	assert.Equal(t, 1, env.sink.count(services.EventCertificateIssued))
}

func TestLessonQuotaOverHTTP(t *testing.T) {
	env := newTestEnv(t)
	authorToken := env.register(t, "author", "author")

	resp, result := env.request(t, "POST", "/api/courses", authorToken, map[string]interface{}{
		"title":         "Short course",
		"start_date":    "2026-09-01",
		"count_lessons": 2,
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	courseID := int(result["course"].(map[string]interface{})["ID"].(float64))

	for i := 1; i <= 2; i++ {
		resp, _ = env.request(t, "POST", fmt.Sprintf("/api/courses/%d/lessons", courseID), authorToken, map[string]string{
			"name": fmt.Sprintf("Lesson %d", i),
		})
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
	}

	resp, result = env.request(t, "POST", fmt.Sprintf("/api/courses/%d/lessons", courseID), authorToken, map[string]string{
		"name": "Over quota",
	})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, result["message"], "2")

	var count int64
	require.NoError(t, env.db.Model(&models.Lesson{}).Count(&count).Error)
	assert.EqualValues(t, 2, count)
}

func TestStudentsCannotCreateCourses(t *testing.T) {
	env := newTestEnv(t)
	studentToken := env.register(t, "student", "student")

	resp, _ := env.request(t, "POST", "/api/courses", studentToken, map[string]interface{}{
		"title":         "Nope",
		"start_date":    "2026-09-01",
		"count_lessons": 1,
	})
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestLessonPreviewLengthValidated(t *testing.T) {
	env := newTestEnv(t)
	authorToken := env.register(t, "author", "author")

	resp, result := env.request(t, "POST", "/api/courses", authorToken, map[string]interface{}{
		"title":         "Course",
		"start_date":    "2026-09-01",
		"count_lessons": 1,
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	courseID := int(result["course"].(map[string]interface{})["ID"].(float64))

	long := bytes.Repeat([]byte("x"), 201)
	resp, _ = env.request(t, "POST", fmt.Sprintf("/api/courses/%d/lessons", courseID), authorToken, map[string]string{
		"name":    "Lesson",
		"preview": string(long),
	})
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
}

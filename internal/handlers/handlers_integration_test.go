package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/nishiisharma/Assignment1.kombee/internal/handlers"
	"github.com/nishiisharma/Assignment1.kombee/internal/middleware"
	"github.com/nishiisharma/Assignment1.kombee/internal/models"
	"github.com/nishiisharma/Assignment1.kombee/internal/repositories"
	"github.com/nishiisharma/Assignment1.kombee/internal/security"
	"github.com/nishiisharma/Assignment1.kombee/internal/services"
	"github.com/nishiisharma/Assignment1.kombee/internal/storage"
)

// setupApp sets up a Fiber app for testing with in-memory SQLite, a temp-dir
// file stash and the full handler/service/repository wiring.
func setupApp(t *testing.T) (*fiber.App, *security.TokenIssuer) {
	t.Helper()

	// Configure Viper for testing
	viper.SetDefault("JWT_SECRET", "test_jwt_secret")
	viper.AutomaticEnv()
	jwtSecret := viper.GetString("JWT_SECRET")

	// Initialize in-memory SQLite database, one per test
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	assert.NoError(t, err)

	err = db.AutoMigrate(&models.User{}, &models.Hobby{}, &models.FileUpload{})
	assert.NoError(t, err)

	tokenIssuer, err := security.NewTokenIssuer(jwtSecret, "PracticeAPI", "PracticeAPIUsers")
	assert.NoError(t, err)
	passwordHasher := security.NewPasswordHasher(bcrypt.MinCost)
	fileStash, err := storage.NewDiskStash(t.TempDir())
	assert.NoError(t, err)

	userRepo := repositories.NewGORMUserRepository(db)
	accountService := services.NewAccountService(userRepo, fileStash, passwordHasher, tokenIssuer, nil) // nil for RabbitMQ client
	userHandler := handlers.NewUserHandler(accountService)

	app := fiber.New()
	apiV1 := app.Group("/api/v1")
	userHandler.RegisterRoutes(apiV1, middleware.AuthRequired(tokenIssuer))

	return app, tokenIssuer
}

// TestMain runs setup and teardown for all tests
func TestMain(m *testing.M) {
	// Suppress logging during tests for cleaner output
	log.SetOutput(io.Discard)
	code := m.Run()
	os.Exit(code)
}

// registrationFields returns a complete, valid registration form.
func registrationFields(email string) map[string]string {
	return map[string]string{
		"first_name":       "Alice",
		"last_name":        "Doe",
		"email":            email,
		"contact_number":   "1234567890",
		"postcode":         "12345",
		"password":         "password123",
		"confirm_password": "password123",
		"gender":           "female",
		"address":          "1 Main Street",
		"city":             "Springfield",
		"state":            "IL",
	}
}

// newRegisterRequest builds a multipart registration request with the given
// form fields, hobby tags and uploaded files (name -> content).
func newRegisterRequest(t *testing.T, fields map[string]string, hobbies []string, files map[string]string) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for key, value := range fields {
		assert.NoError(t, writer.WriteField(key, value))
	}
	for _, hobby := range hobbies {
		assert.NoError(t, writer.WriteField("hobbies", hobby))
	}
	for name, content := range files {
		part, err := writer.CreateFormFile("files", name)
		assert.NoError(t, err)
		_, err = part.Write([]byte(content))
		assert.NoError(t, err)
	}
	assert.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/register", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func newJSONRequest(t *testing.T, method, target string, payload interface{}) *http.Request {
	t.Helper()
	jsonBody, err := json.Marshal(payload)
	assert.NoError(t, err)
	req := httptest.NewRequest(method, target, bytes.NewReader(jsonBody))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeBody(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	resp.Body.Close()
}

// loginFor registers nothing; it just logs in an existing user and returns
// the issued token.
func loginFor(t *testing.T, app *fiber.App, email, password string) string {
	t.Helper()
	req := newJSONRequest(t, http.MethodPost, "/api/v1/users/login", map[string]string{
		"email":    email,
		"password": password,
	})
	resp, err := app.Test(req, -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var loginResp map[string]string
	decodeBody(t, resp, &loginResp)
	assert.NotEmpty(t, loginResp["token"])
	return loginResp["token"]
}

func TestRegisterAndLogin(t *testing.T) {
	app, tokenIssuer := setupApp(t)

	// Register with one hobby and one file
	req := newRegisterRequest(t, registrationFields("alice@example.com"), []string{"chess"}, map[string]string{"cv.pdf": "resume bytes"})
	resp, err := app.Test(req, -1) // -1 for no timeout
	assert.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	var registerResp map[string]interface{}
	decodeBody(t, resp, &registerResp)
	assert.Equal(t, "User registered successfully", registerResp["message"])

	// Registering the same email again conflicts, whatever the other fields say
	dupFields := registrationFields("alice@example.com")
	dupFields["first_name"] = "NotAlice"
	req = newRegisterRequest(t, dupFields, []string{"golf"}, nil)
	resp, err = app.Test(req, -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	// Login succeeds and the token carries the user's identity
	token := loginFor(t, app, "alice@example.com", "password123")
	claims, err := tokenIssuer.Validate(token)
	assert.NoError(t, err)
	assert.Equal(t, "alice@example.com", claims["sub"])
	assert.Equal(t, "Alice Doe", claims["name"])
	assert.NotEmpty(t, claims["uid"])
}

func TestLoginFailuresAreUniform(t *testing.T) {
	app, _ := setupApp(t)

	req := newRegisterRequest(t, registrationFields("alice@example.com"), []string{"chess"}, nil)
	resp, err := app.Test(req, -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	// Known email, wrong password
	req = newJSONRequest(t, http.MethodPost, "/api/v1/users/login", map[string]string{
		"email":    "alice@example.com",
		"password": "wrongpassword",
	})
	resp, err = app.Test(req, -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	var wrongPassword map[string]interface{}
	decodeBody(t, resp, &wrongPassword)

	// Unknown email
	req = newJSONRequest(t, http.MethodPost, "/api/v1/users/login", map[string]string{
		"email":    "nobody@example.com",
		"password": "password123",
	})
	resp, err = app.Test(req, -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	var unknownEmail map[string]interface{}
	decodeBody(t, resp, &unknownEmail)

	// Identical bodies: nothing reveals which check failed
	assert.Equal(t, wrongPassword, unknownEmail)
}

func TestRegisterValidation(t *testing.T) {
	app, _ := setupApp(t)

	// Confirm-password mismatch
	fields := registrationFields("bob@example.com")
	fields["confirm_password"] = "different"
	resp, err := app.Test(newRegisterRequest(t, fields, []string{"chess"}, nil), -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var body map[string]interface{}
	decodeBody(t, resp, &body)
	assert.Equal(t, "Validation failed", body["message"])
	assert.Contains(t, body["errors"], "ConfirmPassword")

	// Password below minimum length
	fields = registrationFields("bob@example.com")
	fields["password"] = "short"
	fields["confirm_password"] = "short"
	resp, err = app.Test(newRegisterRequest(t, fields, []string{"chess"}, nil), -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	// Malformed email
	fields = registrationFields("not-an-email")
	resp, err = app.Test(newRegisterRequest(t, fields, []string{"chess"}, nil), -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	// Missing hobbies
	resp, err = app.Test(newRegisterRequest(t, registrationFields("bob@example.com"), nil, nil), -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	app, _ := setupApp(t)

	protected := []struct {
		method string
		target string
	}{
		{http.MethodPut, "/api/v1/users/update/some-id"},
		{http.MethodDelete, "/api/v1/users/delete/some-id"},
		{http.MethodGet, "/api/v1/users/protected-route"},
	}
	for _, route := range protected {
		req := httptest.NewRequest(route.method, route.target, nil)
		resp, err := app.Test(req, -1)
		assert.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "%s %s", route.method, route.target)
		resp.Body.Close()
	}

	// A malformed Authorization header is rejected the same way
	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/protected-route", nil)
	req.Header.Set("Authorization", "Token abc")
	resp, err := app.Test(req, -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

func TestProtectedRouteEchoesClaims(t *testing.T) {
	app, _ := setupApp(t)

	resp, err := app.Test(newRegisterRequest(t, registrationFields("alice@example.com"), []string{"chess"}, nil), -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	token := loginFor(t, app, "alice@example.com", "password123")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/protected-route", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err = app.Test(req, -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Message string                 `json:"message"`
		Claims  map[string]interface{} `json:"claims"`
	}
	decodeBody(t, resp, &body)
	assert.Equal(t, "alice@example.com", body.Claims["sub"])
	assert.NotEmpty(t, body.Claims["uid"])
	assert.NotEmpty(t, body.Claims["jti"])
}

// listPage mirrors the JSON shape of the listing endpoint.
type listPage struct {
	TotalCount  int64                  `json:"total_count"`
	CurrentPage int                    `json:"current_page"`
	PageSize    int                    `json:"page_size"`
	Users       []services.UserSummary `json:"users"`
}

func fetchList(t *testing.T, app *fiber.App, target string) listPage {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, target, nil), -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var page listPage
	decodeBody(t, resp, &page)
	return page
}

func TestUserLifecycle(t *testing.T) {
	app, _ := setupApp(t)

	// Register user A with hobby "chess" and one file
	resp, err := app.Test(newRegisterRequest(t, registrationFields("alice@example.com"), []string{"chess"}, map[string]string{"cv.pdf": "resume bytes"}), -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	token := loginFor(t, app, "alice@example.com", "password123")

	// Listing is public and projects hobby and file names
	page := fetchList(t, app, "/api/v1/users/list")
	assert.EqualValues(t, 1, page.TotalCount)
	assert.Len(t, page.Users, 1)
	assert.Equal(t, []string{"chess"}, page.Users[0].Hobbies)
	assert.Equal(t, []string{"cv.pdf"}, page.Users[0].Files)
	userID := page.Users[0].ID
	assert.NotEmpty(t, userID)

	// Update replaces the hobby set wholesale
	updatePayload := map[string]interface{}{
		"first_name":     "Alice",
		"last_name":      "Doe",
		"email":          "alice@example.com",
		"contact_number": "1234567890",
		"postcode":       "12345",
		"gender":         "female",
		"address":        "2 New Street",
		"city":           "Shelbyville",
		"state":          "IL",
		"hobbies":        []string{"running", "chess"},
	}
	req := newJSONRequest(t, http.MethodPut, "/api/v1/users/update/"+userID, updatePayload)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err = app.Test(req, -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var updateResp map[string]interface{}
	decodeBody(t, resp, &updateResp)
	assert.Equal(t, "User updated successfully", updateResp["message"])

	page = fetchList(t, app, "/api/v1/users/list")
	assert.Len(t, page.Users, 1)
	assert.ElementsMatch(t, []string{"running", "chess"}, page.Users[0].Hobbies)
	assert.Equal(t, "Shelbyville", page.Users[0].City)
	// Files survive the update untouched
	assert.Equal(t, []string{"cv.pdf"}, page.Users[0].Files)

	// Updating a nonexistent user is a 404
	req = newJSONRequest(t, http.MethodPut, "/api/v1/users/update/never-existed", updatePayload)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err = app.Test(req, -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	// Delete removes the user and its children
	req = httptest.NewRequest(http.MethodDelete, "/api/v1/users/delete/"+userID, nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err = app.Test(req, -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	page = fetchList(t, app, "/api/v1/users/list")
	assert.EqualValues(t, 0, page.TotalCount)
	assert.Empty(t, page.Users)

	// Deleting again is a 404, first and every time after
	req = httptest.NewRequest(http.MethodDelete, "/api/v1/users/delete/"+userID, nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err = app.Test(req, -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestListPagination(t *testing.T) {
	app, _ := setupApp(t)

	for i := 0; i < 12; i++ {
		email := fmt.Sprintf("user%02d@example.com", i)
		resp, err := app.Test(newRegisterRequest(t, registrationFields(email), []string{"chess"}, nil), -1)
		assert.NoError(t, err)
		assert.Equal(t, http.StatusCreated, resp.StatusCode)
		resp.Body.Close()
	}

	// Defaults: page 1 of 10
	page := fetchList(t, app, "/api/v1/users/list")
	assert.EqualValues(t, 12, page.TotalCount)
	assert.Equal(t, 1, page.CurrentPage)
	assert.Equal(t, 10, page.PageSize)
	assert.Len(t, page.Users, 10)

	// Page 2 holds the remainder; the total count does not change
	page = fetchList(t, app, "/api/v1/users/list?page=2&page_size=10")
	assert.EqualValues(t, 12, page.TotalCount)
	assert.Equal(t, 2, page.CurrentPage)
	assert.Len(t, page.Users, 2)

	// A custom page size is honored
	page = fetchList(t, app, "/api/v1/users/list?page=1&page_size=5")
	assert.EqualValues(t, 12, page.TotalCount)
	assert.Equal(t, 5, page.PageSize)
	assert.Len(t, page.Users, 5)
}

package http_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/zimra-fiscal/internal/domain/entity"
	apphttp "github.com/jhoicas/zimra-fiscal/internal/interfaces/http"
	pkgjwt "github.com/jhoicas/zimra-fiscal/pkg/jwt"
)

const (
	testJWTSecret = "test-secret-key-for-unit-tests"
	testUserID    = "00000000-0000-0000-0000-000000000001"
	testCompanyID = "00000000-0000-0000-0000-000000000002"
	testIssuer    = "zimra-fiscal-test"
	testTTL       = time.Hour
)

// roleApp ruta protegida por JWT + RBAC que devuelve el rol leído del contexto.
func roleApp(allowed ...string) *fiber.App {
	app := fiber.New()
	app.Get("/protected",
		apphttp.AuthMiddleware(testJWTSecret),
		apphttp.RequireRole(allowed...),
		func(c *fiber.Ctx) error {
			return c.JSON(fiber.Map{"ok": true, "role": apphttp.GetRole(c)})
		},
	)
	return app
}

func tokenForRole(t *testing.T, role string) string {
	t.Helper()
	tok, err := pkgjwt.Generate(testJWTSecret, testIssuer,
		pkgjwt.Operator{UserID: testUserID, CompanyID: testCompanyID, Role: role}, testTTL)
	require.NoError(t, err)
	return "Bearer " + tok
}

func get(t *testing.T, app *fiber.App, authHeader string) (*http.Response, string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp, string(body)
}

// ── RequireRole ──

func TestRequireRole_AdminAccede(t *testing.T) {
	resp, body := get(t, roleApp(entity.RoleAdmin), tokenForRole(t, entity.RoleAdmin))

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"ok":true,"role":"admin"}`, body)
}

func TestRequireRole_VariosRolesPermitidos(t *testing.T) {
	resp, _ := get(t, roleApp(entity.RoleAdmin, entity.RoleAccountant), tokenForRole(t, entity.RoleAccountant))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRequireRole_AccountantBloqueadoEnRutaAdmin(t *testing.T) {
	resp, body := get(t, roleApp(entity.RoleAdmin), tokenForRole(t, entity.RoleAccountant))

	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Contains(t, body, "FORBIDDEN")
}

func TestRequireRole_SinRolEnContexto(t *testing.T) {
	app := fiber.New()
	app.Get("/protected", apphttp.RequireRole(entity.RoleAdmin), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	resp, body := get(t, app, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, body, "MISSING_ROLE")
}

func TestAuthMiddleware_TokenFirmadoSinRol(t *testing.T) {
	raw, err := gojwt.NewWithClaims(gojwt.SigningMethodHS256, gojwt.MapClaims{
		"sub":        testUserID,
		"company_id": testCompanyID,
		"exp":        time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testJWTSecret))
	require.NoError(t, err)

	resp, body := get(t, roleApp(entity.RoleAdmin), "Bearer "+raw)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, body, "INVALID_TOKEN")
}

// ── AuthMiddleware ──

func TestAuthMiddleware_RechazaCabeceras(t *testing.T) {
	cases := map[string]string{
		"sin header":       "",
		"esquema basic":    "Basic abc",
		"token vacio":      "Bearer ",
		"token malformado": "Bearer token.invalido.aqui",
	}
	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			resp, _ := get(t, roleApp(entity.RoleAdmin), header)
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		})
	}
}

func TestAuthMiddleware_ExtraeClaims(t *testing.T) {
	app := fiber.New()
	app.Get("/me", apphttp.AuthMiddleware(testJWTSecret), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"user_id":    apphttp.GetUserID(c),
			"company_id": apphttp.GetCompanyID(c),
			"role":       apphttp.GetRole(c),
		})
	})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", tokenForRole(t, entity.RoleAccountant))
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, testUserID, body["user_id"])
	assert.Equal(t, testCompanyID, body["company_id"])
	assert.Equal(t, entity.RoleAccountant, body["role"])
}

// ── pkg/jwt ──

func TestJWT_TokenExpirado(t *testing.T) {
	tok, err := pkgjwt.Generate(testJWTSecret, testIssuer, adminOperator(), -time.Minute)
	require.NoError(t, err)

	_, err = pkgjwt.Parse(testJWTSecret, tok)
	assert.Error(t, err)
}

func TestJWT_SecretIncorrecto(t *testing.T) {
	tok, err := pkgjwt.Generate(testJWTSecret, testIssuer, adminOperator(), testTTL)
	require.NoError(t, err)

	_, err = pkgjwt.Parse("otro-secret-completamente-distinto", tok)
	assert.Error(t, err)
}

func TestJWT_OperadorIdaYVuelta(t *testing.T) {
	tok, err := pkgjwt.Generate(testJWTSecret, testIssuer, adminOperator(), testTTL)
	require.NoError(t, err)

	op, err := pkgjwt.Parse(testJWTSecret, tok)
	require.NoError(t, err)
	assert.Equal(t, adminOperator(), op)
}

func TestJWT_OperadorIncompleto(t *testing.T) {
	_, err := pkgjwt.Generate(testJWTSecret, testIssuer, pkgjwt.Operator{UserID: testUserID, CompanyID: testCompanyID}, testTTL)
	assert.ErrorIs(t, err, pkgjwt.ErrIncompleteClaims)

	// Token válido de otro emisor sin company_id.
	foreign := gojwt.NewWithClaims(gojwt.SigningMethodHS256, gojwt.MapClaims{
		"sub":  testUserID,
		"role": entity.RoleAdmin,
		"iat":  time.Now().Unix(),
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	raw, err := foreign.SignedString([]byte(testJWTSecret))
	require.NoError(t, err)
	_, err = pkgjwt.Parse(testJWTSecret, raw)
	assert.ErrorIs(t, err, pkgjwt.ErrIncompleteClaims)
}

func TestJWT_RechazaAlgoritmoDistinto(t *testing.T) {
	foreign := gojwt.NewWithClaims(gojwt.SigningMethodHS512, gojwt.MapClaims{
		"sub":        testUserID,
		"company_id": testCompanyID,
		"role":       entity.RoleAdmin,
		"exp":        time.Now().Add(time.Hour).Unix(),
	})
	raw, err := foreign.SignedString([]byte(testJWTSecret))
	require.NoError(t, err)
	_, err = pkgjwt.Parse(testJWTSecret, raw)
	assert.Error(t, err)
}

func adminOperator() pkgjwt.Operator {
	return pkgjwt.Operator{UserID: testUserID, CompanyID: testCompanyID, Role: entity.RoleAdmin}
}

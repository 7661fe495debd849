package middleware

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/suite"
)

// mockHandler is a test handler that captures if it was called and the context
type mockHandler struct {
	called  bool
	context context.Context
}

func (m *mockHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	m.called = true
	m.context = r.Context()
	w.WriteHeader(http.StatusOK)
}

type AuthMiddlewareTestSuite struct {
	suite.Suite
	signingKey  []byte
	nextHandler *mockHandler
	middleware  func(http.Handler) http.Handler
}

func TestAuthMiddlewareTestSuite(t *testing.T) {
	suite.Run(t, new(AuthMiddlewareTestSuite))
}

func (s *AuthMiddlewareTestSuite) SetupTest() {
	s.signingKey = []byte("test-signing-key")
	s.nextHandler = &mockHandler{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.middleware = Auth(s.signingKey, logger)
}

func (s *AuthMiddlewareTestSuite) makeRequest(authHeader string) *httptest.ResponseRecorder {
	handler := s.middleware(s.nextHandler)
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func (s *AuthMiddlewareTestSuite) signToken(key []byte, claims Claims) string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(key)
	s.Require().NoError(err)
	return signed
}

func (s *AuthMiddlewareTestSuite) TestValidToken() {
	token := s.signToken(s.signingKey, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-42",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	w := s.makeRequest("Bearer " + token)

	s.Equal(http.StatusOK, w.Code)
	s.True(s.nextHandler.called)
	s.Equal("user-42", GetUserID(s.nextHandler.context))
}

func (s *AuthMiddlewareTestSuite) TestMissingAuthorizationHeader() {
	w := s.makeRequest("")

	s.Equal(http.StatusUnauthorized, w.Code)
	s.False(s.nextHandler.called)
	s.Contains(w.Body.String(), "unauthorized")
}

func (s *AuthMiddlewareTestSuite) TestNonBearerScheme() {
	w := s.makeRequest("Basic dXNlcjpwYXNz")

	s.Equal(http.StatusUnauthorized, w.Code)
	s.False(s.nextHandler.called)
}

func (s *AuthMiddlewareTestSuite) TestWrongSigningKey() {
	token := s.signToken([]byte("some-other-key"), Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-42",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	w := s.makeRequest("Bearer " + token)

	s.Equal(http.StatusUnauthorized, w.Code)
	s.False(s.nextHandler.called)
}

func (s *AuthMiddlewareTestSuite) TestExpiredToken() {
	token := s.signToken(s.signingKey, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-42",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	})

	w := s.makeRequest("Bearer " + token)

	s.Equal(http.StatusUnauthorized, w.Code)
	s.False(s.nextHandler.called)
}

func (s *AuthMiddlewareTestSuite) TestTokenWithoutSubject() {
	token := s.signToken(s.signingKey, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	w := s.makeRequest("Bearer " + token)

	s.Equal(http.StatusUnauthorized, w.Code)
	s.False(s.nextHandler.called)
}

func (s *AuthMiddlewareTestSuite) TestMalformedToken() {
	w := s.makeRequest("Bearer not.a.token")

	s.Equal(http.StatusUnauthorized, w.Code)
	s.False(s.nextHandler.called)
}

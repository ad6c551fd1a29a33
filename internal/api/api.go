// Package api maps the POS services onto an HTTP surface. A JWT only
// identifies the caller; authorization is decided by the in-memory session
// guard on every request.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"mercado-pos/domain"
	"mercado-pos/internal/audit"
	"mercado-pos/internal/backup"
	"mercado-pos/internal/ledger"
	"mercado-pos/internal/products"
	"mercado-pos/internal/register"
	"mercado-pos/internal/session"
	"mercado-pos/internal/users"
)

type ctxKey string

const ctxSession ctxKey = "session"

// Handler bundles dependencies for HTTP handlers.
type Handler struct {
	guard    *session.Guard
	ledger   *ledger.Service
	register *register.Service
	backups  *backup.Manager
	products *products.Service
	users    *users.Service
	audit    *audit.Logger
	log      *zap.Logger
	secret   string
}

// New constructs a Handler.
func New(
	guard *session.Guard,
	ledgerSvc *ledger.Service,
	registerSvc *register.Service,
	backups *backup.Manager,
	productsSvc *products.Service,
	usersSvc *users.Service,
	auditLog *audit.Logger,
	log *zap.Logger,
	secret string,
) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		guard:    guard,
		ledger:   ledgerSvc,
		register: registerSvc,
		backups:  backups,
		products: productsSvc,
		users:    usersSvc,
		audit:    auditLog,
		log:      log,
		secret:   secret,
	}
}

// Router wires up the HTTP API.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	}))
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", h.health)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", h.login)
		r.Group(func(protected chi.Router) {
			protected.Use(h.authMiddleware)
			protected.Post("/logout", h.logout)
			protected.Get("/session", h.currentSession)
			protected.Post("/activity", h.activity)
		})
	})

	r.Group(func(pr chi.Router) {
		pr.Use(h.authMiddleware)

		pr.Route("/products", func(r chi.Router) {
			r.Get("/", h.listProducts)
			r.Get("/low-stock", h.lowStock)
			r.Get("/barcode/{barcode}", h.productByBarcode)
			r.Get("/{id}", h.getProduct)
			r.Post("/", h.createProduct)
			r.Put("/{id}", h.updateProduct)
			r.Post("/{id}/stock", h.adjustStock)
			r.Delete("/{id}", h.deleteProduct)
		})

		pr.Route("/sales", func(r chi.Router) {
			r.Post("/", h.finalizeSale)
			r.Get("/today", h.todaySales)
			r.Get("/today/summary", h.todaySummary)
		})

		pr.Route("/reports", func(r chi.Router) {
			r.Get("/sales", h.allSales)
			r.Get("/summary", h.salesSummary)
			r.Post("/close-register", h.closeRegister)
		})

		pr.Route("/backups", func(r chi.Router) {
			r.Get("/", h.listBackups)
			r.Get("/stats", h.backupStats)
			r.Post("/", h.createBackup)
			r.Post("/restore", h.restoreBackup)
			r.Delete("/{filename}", h.deleteBackup)
		})

		pr.Route("/users", func(r chi.Router) {
			r.Get("/", h.listUsers)
			r.Get("/{id}", h.getUser)
			r.Post("/", h.createUser)
			r.Put("/{id}", h.updateUser)
			r.Delete("/{id}", h.deleteUser)
		})
	})

	return r
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Authentication helpers

type authClaims struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

func (h *Handler) generateToken(sess *domain.Session) (string, error) {
	claims := authClaims{
		UserID:   sess.UserID,
		Username: sess.Username,
		Role:     sess.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(h.secret))
}

func (h *Handler) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" || !strings.HasPrefix(strings.ToLower(header), "bearer ") {
			respondError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		tokenString := strings.TrimSpace(header[len("Bearer "):])
		token, err := jwt.ParseWithClaims(tokenString, &authClaims{}, func(token *jwt.Token) (interface{}, error) {
			if token.Method != jwt.SigningMethodHS256 {
				return nil, errors.New("unexpected signing method")
			}
			return []byte(h.secret), nil
		})
		if err != nil || !token.Valid {
			respondError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		claims, ok := token.Claims.(*authClaims)
		if !ok {
			respondError(w, http.StatusUnauthorized, "invalid token claims")
			return
		}

		// The token only names the caller; the live session decides.
		sess, err := h.guard.Authorize(claims.UserID)
		if err != nil {
			respondServiceError(w, err)
			return
		}
		ctx := context.WithValue(r.Context(), ctxSession, sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func sessionFromContext(r *http.Request) *domain.Session {
	if sess, ok := r.Context().Value(ctxSession).(*domain.Session); ok {
		return sess
	}
	return nil
}

func (h *Handler) requireRole(w http.ResponseWriter, r *http.Request, resource string, allowed ...string) *domain.Session {
	sess := sessionFromContext(r)
	if sess == nil {
		respondError(w, http.StatusUnauthorized, "missing session")
		return nil
	}
	for _, role := range allowed {
		if sess.Role == role {
			return sess
		}
	}
	h.audit.Record(audit.AccessDenied, actorOf(sess), map[string]any{"resource": resource})
	respondError(w, http.StatusForbidden, "insufficient permissions")
	return nil
}

func actorOf(sess *domain.Session) *audit.Actor {
	if sess == nil {
		return nil
	}
	return &audit.Actor{ID: sess.UserID, Username: sess.Username}
}

// Helpers

func decodeJSON(r *http.Request, dest interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dest)
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	_ = encoder.Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func respondServiceError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch domain.KindOf(err) {
	case domain.KindValidation:
		status = http.StatusBadRequest
	case domain.KindAuth:
		status = http.StatusUnauthorized
	case domain.KindForbidden:
		status = http.StatusForbidden
	case domain.KindNotFound:
		status = http.StatusNotFound
	case domain.KindConflict:
		status = http.StatusConflict
	}
	respondError(w, status, err.Error())
}

package middleware

import (
	"strings"

	"github.com/fieldops/stockledger/internal/domain/shared"
	"github.com/fieldops/stockledger/internal/infrastructure/config"
	"github.com/fieldops/stockledger/internal/infrastructure/logger"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Actor context keys
const (
	ActorIDKey    = "actor_id"
	ActorEmailKey = "actor_email"
	ActorNameKey  = "actor_name"
	AuthHeaderKey = "Authorization"
	BearerPrefix  = "Bearer "

	// ActorIDHeader is the development fallback when no token is presented
	ActorIDHeader = "X-Actor-ID"
)

// ActorClaims are the token claims the ledger cares about. Authorization
// happens upstream; the identity here is recorded for audit only.
type ActorClaims struct {
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// ActorFromToken returns a middleware that resolves the acting user from a
// Bearer token, falling back to the X-Actor-ID header. Requests without any
// identity pass through; handlers that audit an actor reject them with 401.
func ActorFromToken(cfg *config.JWTConfig, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := parseBearer(c, cfg)
		if err != nil {
			log.Debug("token rejected",
				zap.String("path", c.Request.URL.Path),
				zap.Error(err),
			)
		}

		var actorID string
		if claims != nil {
			actorID = claims.Subject
			c.Set(ActorIDKey, claims.Subject)
			c.Set(ActorEmailKey, claims.Email)
			c.Set(ActorNameKey, claims.Name)
		} else if headerID := c.GetHeader(ActorIDHeader); headerID != "" {
			actorID = headerID
			c.Set(ActorIDKey, headerID)
		}

		if actorID != "" {
			ctx, _ := logger.WithActorID(c.Request.Context(), logger.FromContext(c.Request.Context()), actorID)
			c.Request = c.Request.WithContext(ctx)
		}

		c.Next()
	}
}

func parseBearer(c *gin.Context, cfg *config.JWTConfig) (*ActorClaims, error) {
	authHeader := c.GetHeader(AuthHeaderKey)
	if authHeader == "" || !strings.HasPrefix(authHeader, BearerPrefix) {
		return nil, nil
	}
	tokenString := strings.TrimPrefix(authHeader, BearerPrefix)
	if tokenString == "" {
		return nil, nil
	}

	claims := &ActorClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(cfg.Secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(cfg.Issuer),
	)
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, jwt.ErrTokenUnverifiable
	}
	return claims, nil
}

// GetActor builds the audit identity from the gin context. Returns a zero
// actor when the request carried no usable identity.
func GetActor(c *gin.Context) shared.Actor {
	actor := shared.Actor{
		Email: c.GetString(ActorEmailKey),
		Name:  c.GetString(ActorNameKey),
	}
	if idStr := c.GetString(ActorIDKey); idStr != "" {
		if id, err := uuid.Parse(idStr); err == nil {
			actor.ID = id
		}
	}
	return actor
}

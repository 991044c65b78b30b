package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/William-Gao/frootful-sales-aggregation-sub000/internal/application/reconciliation"
	"github.com/William-Gao/frootful-sales-aggregation-sub000/internal/domain/shared"
	"github.com/William-Gao/frootful-sales-aggregation-sub000/internal/infrastructure/logger"
	"github.com/William-Gao/frootful-sales-aggregation-sub000/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Headers that identify the caller
const (
	OrganizationHeader      = "X-Organization-ID"
	UserHeader              = "X-User-ID"
	AutomatedHeader         = "X-Automated"
	ExportDestinationHeader = "X-Export-Destination"
)

// ActorKey is the gin context key holding the reconciliation.ActorContext
const ActorKey = "actor"

// ActorConfig configures the Actor middleware
type ActorConfig struct {
	// SkipPaths bypass actor extraction entirely
	SkipPaths []string
}

// DefaultActorConfig skips the health endpoint
func DefaultActorConfig() ActorConfig {
	return ActorConfig{SkipPaths: []string{"/health", "/api/v1/health"}}
}

// Actor builds the caller's ActorContext from request headers. The
// organization header is required; the user header is optional because the
// intake pipeline calls without one.
func Actor(cfg ActorConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		for _, skip := range cfg.SkipPaths {
			if path == skip {
				c.Next()
				return
			}
		}

		actor, code, msg := actorFromHeaders(c)
		if code != "" {
			c.AbortWithStatusJSON(http.StatusBadRequest,
				dto.NewErrorResponseWithRequestID(code, msg, GetRequestID(c)))
			return
		}
		c.Set(ActorKey, actor)

		actorID := ""
		if actor.ActorID != uuid.Nil {
			actorID = actor.ActorID.String()
		}
		ctx := logger.WithActor(c.Request.Context(), actor.OrganizationID.String(), actorID)
		c.Request = c.Request.WithContext(ctx)

		if span := trace.SpanFromContext(ctx); span.IsRecording() {
			span.SetAttributes(
				attribute.String("organization_id", actor.OrganizationID.String()),
				attribute.String("actor_id", actorID),
				attribute.Bool("automated", actor.Automated),
			)
		}
		c.Next()
	}
}

func actorFromHeaders(c *gin.Context) (reconciliation.ActorContext, string, string) {
	var actor reconciliation.ActorContext

	org := strings.TrimSpace(c.GetHeader(OrganizationHeader))
	if org == "" {
		return actor, shared.CodeMissingRequiredContext, OrganizationHeader + " header is required"
	}
	orgID, err := uuid.Parse(org)
	if err != nil || orgID == uuid.Nil {
		return actor, shared.CodeInvalidInput, OrganizationHeader + " must be a UUID"
	}
	actor.OrganizationID = orgID

	if user := strings.TrimSpace(c.GetHeader(UserHeader)); user != "" {
		userID, err := uuid.Parse(user)
		if err != nil {
			return actor, shared.CodeInvalidInput, UserHeader + " must be a UUID"
		}
		actor.ActorID = userID
	}

	if automated := c.GetHeader(AutomatedHeader); automated != "" {
		v, err := strconv.ParseBool(automated)
		if err != nil {
			return actor, shared.CodeInvalidInput, AutomatedHeader + " must be true or false"
		}
		actor.Automated = v
	}
	actor.ExportDestination = strings.TrimSpace(c.GetHeader(ExportDestinationHeader))
	return actor, "", ""
}

// GetActor returns the ActorContext set by Actor
func GetActor(c *gin.Context) (reconciliation.ActorContext, bool) {
	v, ok := c.Get(ActorKey)
	if !ok {
		return reconciliation.ActorContext{}, false
	}
	actor, ok := v.(reconciliation.ActorContext)
	return actor, ok
}

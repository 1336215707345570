package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-event-api/internal/middleware"
	"github.com/noah-isme/campus-event-api/internal/models"
	appErrors "github.com/noah-isme/campus-event-api/pkg/errors"
	"github.com/noah-isme/campus-event-api/pkg/response"
)

// actorFromContext returns the authenticated caller or writes a 401.
func actorFromContext(c *gin.Context) (models.Actor, bool) {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return models.Actor{}, false
	}
	return actor, true
}

func bindError(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
}

// respondCached writes data with cache metadata attached.
func respondCached(c *gin.Context, status int, data interface{}, pagination *models.Pagination, hit bool) {
	middleware.SetCacheHit(c, hit)
	response.JSON(c, status, data, pagination, middleware.ExtractMeta(c))
}

package middleware

import (
	apiError "distributor-portal/internal/errors"
	"distributor-portal/internal/logger"
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next() // Execute the handler first

		// detect any errors
		if len(c.Errors) > 0 {
			err := c.Errors.Last().Err

			var apiErr *apiError.APIError

			// if it's our custom APIError
			if !errors.As(err, &apiErr) {
				// If it's a raw error we didn't wrap, treat as Internal
				apiErr = apiError.Internal(err)
			}

			log := logger.FromGin(c)
			if apiErr.Status >= 500 {
				log.Error("request failed", zap.Error(apiErr.Internal), zap.String("path", c.FullPath()))
			} else {
				log.Info(apiErr.Message, zap.NamedError("cause", apiErr.Internal), zap.Int("status", apiErr.Status))
			}

			// Respond with JSON
			c.AbortWithStatusJSON(apiErr.Status, apiErr)
		}
	}
}

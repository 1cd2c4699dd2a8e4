package http

import (
	"github.com/gin-gonic/gin"

	"github.com/yanqian/points-dashboard/internal/domain/dashboard"
)

const credentialsKey = "dashboard_credentials"

func setCredentials(c *gin.Context, creds dashboard.Credentials) {
	c.Set(credentialsKey, creds)
}

func getCredentials(c *gin.Context) (dashboard.Credentials, bool) {
	value, ok := c.Get(credentialsKey)
	if !ok {
		return dashboard.Credentials{}, false
	}
	creds, ok := value.(dashboard.Credentials)
	return creds, ok
}

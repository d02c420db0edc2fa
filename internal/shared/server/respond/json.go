package respond

import "github.com/gin-gonic/gin"

// JSON writes payload with the given status. Success responses go
// through here so the shape stays uniform with Error.
func JSON(c *gin.Context, status int, payload interface{}) {
	c.JSON(status, payload)
}

// Package rest is the JSON HTTP API of the game server.
package rest

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/survivalcamp/gameerr"
)

// respondError writes err as {"error", "code"} with its mapped status. The
// error is attached to the context so the access log records it.
func respondError(c *gin.Context, err error) {
	_ = c.Error(err)
	body := gin.H{
		"error": gameerr.PublicMessage(err),
		"code":  string(gameerr.CodeOf(err)),
	}
	var ge *gameerr.Error
	if errors.As(err, &ge) && len(ge.Meta) > 0 {
		body["meta"] = ge.Meta
	}
	c.JSON(gameerr.HTTPStatus(err), body)
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg, "code": string(gameerr.CodeValidation)})
}

// bind decodes the JSON body into dst, answering 400 on failure.
func bind(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		badRequest(c, err.Error())
		return false
	}
	return true
}

// intParam parses a numeric path parameter, answering 400 on failure.
func intParam(c *gin.Context, name string) (int, bool) {
	v, err := strconv.Atoi(c.Param(name))
	if err != nil {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return v, true
}

// playerParam returns the :id path parameter. SelfOnly has already checked it.
func playerParam(c *gin.Context) int64 {
	id, _ := strconv.ParseInt(c.Param("id"), 10, 64)
	return id
}

func queryLimit(c *gin.Context) int {
	n, _ := strconv.Atoi(c.Query("limit"))
	return n
}

package server

import (
	"fmt"
	"strconv"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	formdomain "github.com/quillform/quillform/internal/form/domain"
)

func idParam(c *gin.Context, name string) (snowflake.ID, error) {
	raw := c.Param(name)
	parsed, err := snowflake.ParseString(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: bad %s", ErrInvalidRequest, name)
	}
	return parsed, nil
}

// pageQuery reads skip/limit query parameters; limit 0 means unbounded.
func pageQuery(c *gin.Context) (formdomain.Page, error) {
	page := formdomain.Page{}

	if raw := c.Query("skip"); raw != "" {
		skip, err := strconv.Atoi(raw)
		if err != nil || skip < 0 {
			return page, fmt.Errorf("%w: bad skip", ErrInvalidRequest)
		}
		page.Offset = skip
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return page, fmt.Errorf("%w: bad limit", ErrInvalidRequest)
		}
		page.Limit = limit
	}
	return page, nil
}

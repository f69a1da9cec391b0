package pagination

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ledgerkeep/billing-console/pkg/common"
)

const (
	// DefaultLimit is used when no limit query parameter is provided
	DefaultLimit = 20
	// MaxLimit caps the limit query parameter
	MaxLimit = 100
	// DefaultOffset is used when no offset query parameter is provided
	DefaultOffset = 0
)

// Params holds parsed pagination parameters
type Params struct {
	Limit  int
	Offset int
}

// ParseParams extracts limit and offset from the request query string.
// Invalid or out-of-range values fall back to the defaults.
func ParseParams(c *gin.Context) Params {
	params := Params{
		Limit:  DefaultLimit,
		Offset: DefaultOffset,
	}

	if raw := c.Query("limit"); raw != "" {
		if limit, err := strconv.Atoi(raw); err == nil && limit > 0 {
			if limit > MaxLimit {
				limit = MaxLimit
			}
			params.Limit = limit
		}
	}

	if raw := c.Query("offset"); raw != "" {
		if offset, err := strconv.Atoi(raw); err == nil && offset >= 0 {
			params.Offset = offset
		}
	}

	return params
}

// BuildMeta builds the pagination metadata for a list response
func BuildMeta(limit, offset int, total int64) *common.Meta {
	return &common.Meta{
		Limit:  limit,
		Offset: offset,
		Total:  total,
	}
}

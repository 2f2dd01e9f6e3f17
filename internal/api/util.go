package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/DonQuixuote/shape-tcg/internal/constants"
	"github.com/DonQuixuote/shape-tcg/internal/keys"
)

// ownerParam reads the :owner path segment. It writes a 400 and returns
// false when the address is blank.
func ownerParam(c *gin.Context) (string, bool) {
	owner := keys.Owner(c.Param("owner"))
	if owner == "" {
		c.JSON(http.StatusBadRequest, gin.H{constants.JSONKeyError: constants.ErrInvalidOwner})
		return "", false
	}
	return owner, true
}

// limitQuery parses ?limit=N within [1,max], returning def otherwise.
func limitQuery(c *gin.Context, def, max int) int {
	if s := c.Query("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 && n <= max {
			return n
		}
	}
	return def
}

// normalizeTimestamps recursively renames GORM model keys (ID, CreatedAt,
// UpdatedAt, DeletedAt) to snake_case so clients consistently receive
// snake_case keys.
func normalizeTimestamps(v interface{}) interface{} {
	switch vv := v.(type) {
	case map[string]interface{}:
		for k, val := range vv {
			vv[k] = normalizeTimestamps(val)
		}
		for from, to := range map[string]string{
			"ID":        "id",
			"CreatedAt": "created_at",
			"UpdatedAt": "updated_at",
			"DeletedAt": "deleted_at",
		} {
			if val, ok := vv[from]; ok {
				vv[to] = val
				delete(vv, from)
			}
		}
		return vv
	case []interface{}:
		for i := range vv {
			vv[i] = normalizeTimestamps(vv[i])
		}
		return vv
	default:
		return v
	}
}

// MarshalIntoSnakeTimestamps marshals v into JSON, decodes it back into
// generic values and normalizes GORM model keys to snake_case.
func MarshalIntoSnakeTimestamps(v interface{}) (interface{}, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out interface{}
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return normalizeTimestamps(out), nil
}
